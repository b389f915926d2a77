// Package ai provides autopilots for demo runs.
package ai

import (
	"errors"
	"log"
	"time"

	"github.com/khuttun/labyrinth/internal/game"
)

const (
	// maxRotationPerSec bounds how fast the autopilot may turn the board, in
	// radians of combined tilt change per second.
	maxRotationPerSec = 0.25
	// targetRadius is how close the ball must get to a waypoint before the
	// tracer advances to the next one.
	targetRadius = 10.0
	// maxVelocityDiff is the velocity error that maps to full board tilt.
	maxVelocityDiff = 100.0
)

// ErrShortPath is returned when a level path has fewer than two waypoints.
var ErrShortPath = errors.New("path needs at least two waypoints")

// PathTracer steers the ball along a level's authored waypoint path. Each
// update it aims the ball's velocity at the current waypoint and tilts the
// board toward the angle that closes the velocity error, with the turn rate
// capped so the board moves like a (steady) human hand.
type PathTracer struct {
	waypoints  []game.Vec2
	maxTilt    float64
	index      int
	prevUpdate time.Time
}

// NewPathTracer creates a tracer for a waypoint path. The first waypoint is
// the start position, so tracking begins at the second.
func NewPathTracer(waypoints []game.Vec2, maxTilt float64) (*PathTracer, error) {
	if len(waypoints) < 2 {
		return nil, ErrShortPath
	}
	return &PathTracer{
		waypoints: waypoints,
		maxTilt:   maxTilt,
		index:     1,
	}, nil
}

// Reset rewinds the tracer to the start of the path.
func (p *PathTracer) Reset() {
	p.index = 1
	p.prevUpdate = time.Time{}
}

// NextMove returns the tilt delta to apply this update.
func (p *PathTracer) NextMove(ball game.Ball, tilt game.TiltState, now time.Time) (dPitch, dRoll float64) {
	// Rotation budget for this update. The first update after a reset has no
	// reference time, so it gets a nominal 10ms budget.
	maxRotation := maxRotationPerSec * 0.01
	if !p.prevUpdate.IsZero() {
		maxRotation = maxRotationPerSec * now.Sub(p.prevUpdate).Seconds()
	}
	p.prevUpdate = now

	toTarget := p.waypoints[p.index].Minus(ball.Position)

	// Advance to the next waypoint once the current one is close enough.
	if p.index < len(p.waypoints)-1 && toTarget.Magnitude() <= targetRadius {
		p.index++
		toTarget = p.waypoints[p.index].Minus(ball.Position)
		log.Printf("[AI] Tracking path point %d", p.index)
	}

	// Target velocity points at the waypoint, scaled by distance. The board
	// angle that chases it is proportional to the velocity error, saturating
	// at full tilt.
	vDiff := toTarget.Minus(ball.Velocity)
	vDiffLen := vDiff.Magnitude()
	var targetAngle game.Vec2
	if vDiffLen > 0 {
		scale := p.maxTilt * clamp(vDiffLen, 0, maxVelocityDiff) / maxVelocityDiff
		targetAngle = vDiff.Times(scale / vDiffLen)
	}

	// Rotate toward the target angle within this update's budget. The tilt
	// x-axis is roll (drives motion along board X), y is pitch.
	angleDiff := targetAngle.Minus(game.NewVec2(tilt.Roll, tilt.Pitch))
	angleDiffLen := angleDiff.Magnitude()
	if angleDiffLen == 0 {
		return 0, 0
	}
	rotation := angleDiff.Times(clamp(angleDiffLen, 0, maxRotation) / angleDiffLen)
	return rotation.Y, rotation.X
}

// Target returns the waypoint currently being tracked.
func (p *PathTracer) Target() game.Vec2 { return p.waypoints[p.index] }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
