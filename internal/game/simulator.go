package game

import (
	"errors"
	"fmt"
	"math"
)

// Outcome of one simulation step.
type Outcome string

const (
	Continuing  Outcome = "CONTINUING"
	FellInHole  Outcome = "FELL_IN_HOLE"
	ReachedGoal Outcome = "REACHED_GOAL"
)

// StepResult is the tagged result of one simulation step. Hole is the index
// of the hole the ball fell into (into Board.Holes()), -1 otherwise.
// FellInHole and ReachedGoal are terminal: the host must reset the ball
// before stepping again.
type StepResult struct {
	Outcome Outcome `json:"outcome"`
	Hole    int     `json:"hole"`
}

// ErrNonFiniteState is returned when NaN or Inf has entered the ball state or
// tilt input. Continuing would make every geometric query undefined, so the
// step refuses to run; the host should reset the ball.
var ErrNonFiniteState = errors.New("non-finite simulation state")

// Config is the physics tuning supplied at simulator construction.
type Config struct {
	Gravity             float64 `json:"gravity"`              // board-plane acceleration scale
	Damping             float64 `json:"damping"`              // linear drag, models rolling friction
	Restitution         float64 `json:"restitution"`          // normal velocity kept per bounce, [0,1)
	MaxTilt             float64 `json:"max_tilt"`             // max |pitch| / |roll| in radians
	FixedTimestep       float64 `json:"fixed_timestep"`       // seconds per step
	CollisionIterations int     `json:"collision_iterations"` // resolver budget per step
}

func (c Config) Validate() error {
	if !(c.Gravity > 0) {
		return fmt.Errorf("gravity must be positive, got %g", c.Gravity)
	}
	if c.Damping < 0 {
		return fmt.Errorf("damping must be non-negative, got %g", c.Damping)
	}
	if c.Restitution < 0 || c.Restitution >= 1 {
		return fmt.Errorf("restitution must be in [0,1), got %g", c.Restitution)
	}
	if !(c.MaxTilt > 0) {
		return fmt.Errorf("max tilt must be positive, got %g", c.MaxTilt)
	}
	if !(c.FixedTimestep > 0) {
		return fmt.Errorf("fixed timestep must be positive, got %g", c.FixedTimestep)
	}
	if c.CollisionIterations < 1 {
		return fmt.Errorf("collision iterations must be at least 1, got %d", c.CollisionIterations)
	}
	return nil
}

// Simulator advances the ball through fixed-size steps: tilt-derived
// acceleration, semi-implicit Euler integration, wall collision resolution,
// then hole and goal checks. It is stateless apart from its config; all
// mutable state lives in the Ball.
type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{cfg: cfg}, nil
}

func (s *Simulator) Config() Config { return s.cfg }

// Step advances the ball by dt. The host is expected to call it at the fixed
// simulation rate (a fixed-timestep accumulator over wall-clock frame time);
// the tunneling guarantees assume a bounded per-step displacement.
func (s *Simulator) Step(dt float64, tilt TiltState, board *Board, ball *Ball) (StepResult, error) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return StepResult{}, fmt.Errorf("%w: dt %g", ErrNonFiniteState, dt)
	}
	if !ball.Position.IsFinite() || !ball.Velocity.IsFinite() {
		return StepResult{}, fmt.Errorf("%w: ball at (%g, %g) velocity (%g, %g)",
			ErrNonFiniteState, ball.Position.X, ball.Position.Y, ball.Velocity.X, ball.Velocity.Y)
	}
	if math.IsNaN(tilt.Pitch) || math.IsInf(tilt.Pitch, 0) || math.IsNaN(tilt.Roll) || math.IsInf(tilt.Roll, 0) {
		return StepResult{}, fmt.Errorf("%w: tilt (%g, %g)", ErrNonFiniteState, tilt.Pitch, tilt.Roll)
	}

	// Board-plane projection of gravity under the current tilt, plus linear
	// drag. Velocity is integrated before position (semi-implicit Euler) for
	// bounded energy drift over long runs.
	accel := NewVec2(math.Sin(tilt.Roll), math.Sin(tilt.Pitch)).Times(s.cfg.Gravity).
		Minus(ball.Velocity.Times(s.cfg.Damping))
	ball.Velocity = ball.Velocity.Plus(accel.Times(dt))
	disp := ball.Velocity.Times(dt)

	res := ResolveWalls(ball, disp, board, s.cfg.Restitution, s.cfg.CollisionIterations)
	ball.Position = res.Position
	ball.Velocity = res.Velocity

	// Holes are checked after collision resolution so a ball bouncing along a
	// wall next to a hole is not dropped mid-bounce, and before the goal so
	// that falling wins on (malformed) overlapping hole/goal regions.
	for i, h := range board.Holes() {
		if CircleContainsPoint(h.Center, h.Radius, ball.Position) {
			return StepResult{Outcome: FellInHole, Hole: i}, nil
		}
	}
	if g := board.Goal(); CircleContainsPoint(g.Center, g.Radius, ball.Position) {
		return StepResult{Outcome: ReachedGoal, Hole: -1}, nil
	}
	return StepResult{Outcome: Continuing, Hole: -1}, nil
}
