package game

import "math"

// timeEpsilon: contacts closer than this along the sweep count as
// simultaneous and go through the head-on tie-break.
const timeEpsilon = 1e-9

// Resolution is the outcome of resolving a proposed displacement against the
// board's walls.
type Resolution struct {
	Position Vec2
	Velocity Vec2
	Hits     int  // wall contacts resolved during the step
	Clamped  bool // iteration budget exhausted on degenerate geometry
}

// ResolveWalls sweeps the ball along the proposed displacement, bouncing off
// every wall it meets, and returns the corrected end position and velocity.
// The ball itself is not mutated; the simulator applies the result.
//
// Each iteration finds the earliest contact among all walls, advances the
// ball to it, and reflects both the remaining displacement and the velocity
// about the contact normal, scaled by the restitution coefficient. When two
// walls report the same contact time (a corner), the wall hit more head-on
// wins, which keeps corner behavior deterministic. If the iteration budget
// runs out while still colliding, the ball is left at the last contact point
// with the rest of the step dropped: stability over accuracy on pathological
// geometry.
func ResolveWalls(ball *Ball, disp Vec2, board *Board, restitution float64, maxIterations int) Resolution {
	pos := ball.Position
	vel := ball.Velocity
	remaining := disp
	hits := 0

	for iter := 0; iter < maxIterations; iter++ {
		if remaining.IsZero() {
			return Resolution{Position: pos, Velocity: vel, Hits: hits}
		}

		target := pos.Plus(remaining)
		dir := remaining.Normalize()
		var best Contact
		found := false
		for _, w := range board.Walls() {
			c, ok := SweptCircleWall(pos, target, ball.Radius, w)
			if !ok {
				continue
			}
			switch {
			case !found || c.Time < best.Time-timeEpsilon:
				best = c
				found = true
			case c.Time <= best.Time+timeEpsilon:
				if math.Abs(dir.Dot(c.Normal)) > math.Abs(dir.Dot(best.Normal)) {
					best = c
				}
			}
		}

		if !found {
			return Resolution{Position: target, Velocity: vel, Hits: hits}
		}

		pos = best.Point
		remaining = reflect(remaining.Times(1-best.Time), best.Normal, restitution)
		vel = reflect(vel, best.Normal, restitution)
		hits++
	}

	return Resolution{Position: pos, Velocity: vel, Hits: hits, Clamped: true}
}

// reflect mirrors the component of v along the (unit) normal n, keeping the
// tangential component and scaling the bounced component by the restitution.
// Vectors already moving away from the surface pass through unchanged.
func reflect(v, n Vec2, restitution float64) Vec2 {
	vn := v.Dot(n)
	if vn >= 0 {
		return v
	}
	return v.Minus(n.Times((1 + restitution) * vn))
}
