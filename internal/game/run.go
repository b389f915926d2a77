package game

import (
	"log"
	"sync"
	"time"
)

// RunStatus is the lifecycle state of one level attempt.
type RunStatus string

const (
	RunInProgress RunStatus = "IN_PROGRESS"
	RunWon        RunStatus = "WON"
	RunLost       RunStatus = "LOST"
	RunAbandoned  RunStatus = "ABANDONED"
)

// Pilot drives the board tilt when a run is in demo mode. Implementations
// live outside this package; the run only asks for the next tilt deltas.
type Pilot interface {
	NextMove(ball Ball, tilt TiltState, now time.Time) (dPitch, dRoll float64)
	Reset()
}

// Snapshot is the run state published to clients between fixed steps.
type Snapshot struct {
	Ball      Ball      `json:"ball"`
	Tilt      TiltState `json:"tilt"`
	Status    RunStatus `json:"status"`
	Hole      int       `json:"hole"` // hole index on a lost run, -1 otherwise
	ElapsedMs int64     `json:"elapsed_ms"`
}

// Run is one player's attempt at one level: the immutable board plus the
// mutable ball, tilt and clock. All methods are safe for concurrent use; the
// renderer-facing Snapshot is always a copy taken outside a step.
type Run struct {
	ID         string
	Token      string
	LevelID    int
	LevelName  string
	PlayerID   int // 0 for anonymous runs
	PlayerName string

	board *Board
	sim   *Simulator
	pilot Pilot

	mu           sync.Mutex
	ball         *Ball
	tilt         TiltState
	status       RunStatus
	hole         int
	accumulator  float64
	elapsed      time.Duration
	lastAdvance  time.Time
	lastActivity time.Time
	dbID         int

	CreatedAt time.Time
}

// maxFrameTime caps how much wall-clock time one Advance call may consume.
// A stalled loop (GC pause, suspended host) catches up gradually instead of
// firing thousands of steps at once.
const maxFrameTime = 0.25

// NewRun creates a run with the ball at the level start point.
func NewRun(id, token string, levelID int, levelName string, board *Board, sim *Simulator, ballRadius float64, pilot Pilot) *Run {
	now := time.Now()
	return &Run{
		ID:           id,
		Token:        token,
		LevelID:      levelID,
		LevelName:    levelName,
		board:        board,
		sim:          sim,
		pilot:        pilot,
		ball:         NewBall(board.Start(), ballRadius),
		status:       RunInProgress,
		hole:         -1,
		lastAdvance:  now,
		lastActivity: now,
		CreatedAt:    now,
	}
}

// Board exposes the immutable level geometry for clients to draw.
func (r *Run) Board() *Board { return r.board }

// Tilt applies an input delta to the board inclination. Ignored once the run
// has reached a terminal state.
func (r *Run) Tilt(dPitch, dRoll float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity = time.Now()
	if r.status != RunInProgress {
		return
	}
	r.tilt.Rotate(dPitch, dRoll, r.sim.Config().MaxTilt)
}

// Restart puts the ball back at the start with zero velocity and tilt and
// restarts the clock. The only way out of a terminal state.
func (r *Run) Restart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.ball.Reset(r.board.Start())
	r.tilt.Reset()
	r.status = RunInProgress
	r.hole = -1
	r.accumulator = 0
	r.elapsed = 0
	r.lastAdvance = now
	r.lastActivity = now
	if r.pilot != nil {
		r.pilot.Reset()
	}
}

// Advance consumes wall-clock time since the last call into fixed simulation
// steps and returns the resulting snapshot. The second return value is true
// on the call during which the run reached a terminal state.
func (r *Run) Advance(now time.Time) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != RunInProgress {
		r.lastAdvance = now
		return r.snapshotLocked(), false
	}

	if r.pilot != nil {
		dPitch, dRoll := r.pilot.NextMove(*r.ball, r.tilt, now)
		r.tilt.Rotate(dPitch, dRoll, r.sim.Config().MaxTilt)
	}

	frame := now.Sub(r.lastAdvance).Seconds()
	r.lastAdvance = now
	if frame < 0 {
		frame = 0
	}
	if frame > maxFrameTime {
		frame = maxFrameTime
	}
	r.accumulator += frame

	dt := r.sim.Config().FixedTimestep
	terminal := false
	for r.accumulator >= dt {
		r.accumulator -= dt
		res, err := r.sim.Step(dt, r.tilt, r.board, r.ball)
		if err != nil {
			// Non-finite state: reset the ball rather than corrupt the run.
			log.Printf("[RUN] %s: %v - resetting ball", r.ID, err)
			r.ball.Reset(r.board.Start())
			r.tilt.Reset()
			r.accumulator = 0
			break
		}
		r.elapsed += time.Duration(dt * float64(time.Second))
		switch res.Outcome {
		case FellInHole:
			r.status = RunLost
			r.hole = res.Hole
			terminal = true
		case ReachedGoal:
			r.status = RunWon
			terminal = true
		}
		if terminal {
			r.accumulator = 0
			break
		}
	}

	return r.snapshotLocked(), terminal
}

// Snapshot returns a copy of the current run state.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Run) snapshotLocked() Snapshot {
	return Snapshot{
		Ball:      *r.ball,
		Tilt:      r.tilt,
		Status:    r.status,
		Hole:      r.hole,
		ElapsedMs: r.elapsed.Milliseconds(),
	}
}

// Status returns the current lifecycle state.
func (r *Run) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// LastActivity is the last time a client touched the run.
func (r *Run) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

// Touch marks the run as recently used without changing its state.
func (r *Run) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity = time.Now()
}

func (r *Run) abandon() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == RunInProgress {
		r.status = RunAbandoned
	}
}
