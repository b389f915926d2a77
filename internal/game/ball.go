package game

// Ball is the mutable simulation state. Position and velocity are written
// exclusively by the Simulator during a step; every other component reads
// only. Radius is constant for the lifetime of a level attempt.
type Ball struct {
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
	Radius   float64 `json:"radius"`
}

// NewBall places a ball at the level start point with zero velocity.
func NewBall(start Vec2, radius float64) *Ball {
	return &Ball{Position: start, Radius: radius}
}

// Reset returns the ball to the start point with zero velocity, discarding
// any in-flight state. Used on level restart.
func (b *Ball) Reset(start Vec2) {
	b.Position = start
	b.Velocity = Vec2{}
}
