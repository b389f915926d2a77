package game

import "math"

// Wall is an immutable line segment with a thickness. Maze walls and the four
// board edges are both represented this way.
type Wall struct {
	A         Vec2    `json:"a"`
	B         Vec2    `json:"b"`
	Thickness float64 `json:"thickness"`
}

// Hole is a circle the ball can fall into, ending the run in failure.
type Hole struct {
	Center Vec2    `json:"center"`
	Radius float64 `json:"radius"`
}

// Goal is the circle the ball must reach to finish the level.
type Goal struct {
	Center Vec2    `json:"center"`
	Radius float64 `json:"radius"`
}

// contactSlop is the distance below which a circle is considered resting on a
// surface. Keeps resting contacts from re-registering as new collisions.
const contactSlop = 1e-9

// ClosestPointOnSegment returns the point on segment a-b closest to p.
// A degenerate (zero-length) segment yields a.
func ClosestPointOnSegment(p, a, b Vec2) Vec2 {
	ab := b.Minus(a)
	den := ab.MagnitudeSquared()
	if den == 0 {
		return a
	}
	u := p.Minus(a).Dot(ab) / den
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	return a.Plus(ab.Times(u))
}

// DistancePointToSegment returns the shortest Euclidean distance from p to
// segment a-b. Zero when p lies on the segment.
func DistancePointToSegment(p, a, b Vec2) float64 {
	return p.Minus(ClosestPointOnSegment(p, a, b)).Magnitude()
}

// CircleContainsPoint reports whether p is inside the circle. The boundary
// counts as inside; hole and goal containment both rely on that.
func CircleContainsPoint(center Vec2, radius float64, p Vec2) bool {
	return p.Minus(center).MagnitudeSquared() <= radius*radius
}

// Contact describes the earliest touch of a swept circle against a wall.
type Contact struct {
	Time   float64 // fraction of the sweep in [0,1]
	Point  Vec2    // circle center at the moment of contact
	Normal Vec2    // unit normal pointing from the wall toward the circle
}

// SweptCircleWall sweeps a circle of the given radius from p0 to p1 and
// returns the earliest contact with the wall, or false if the sweep stays
// clear. The wall is treated as a capsule of radius radius+thickness/2 around
// its centerline, so even a displacement far longer than the wall is thick
// cannot pass through undetected.
func SweptCircleWall(p0, p1 Vec2, radius float64, w Wall) (Contact, bool) {
	reach := radius + w.Thickness/2
	d := p1.Minus(p0)

	// Already touching: report an immediate contact only while the motion
	// still points into the wall. A resting ball that is moving away (or not
	// moving) is not colliding.
	away := p0.Minus(ClosestPointOnSegment(p0, w.A, w.B))
	if away.Magnitude() <= reach+contactSlop {
		n := away.Normalize()
		if n.IsZero() {
			// Center exactly on the wall line; pick the side opposing motion.
			n = w.B.Minus(w.A).Normalize().LeftNormal()
			if d.Dot(n) > 0 {
				n = n.Invert()
			}
		}
		if d.Dot(n) < 0 {
			return Contact{Time: 0, Point: p0, Normal: n}, true
		}
		return Contact{}, false
	}

	if d.IsZero() {
		return Contact{}, false
	}

	var best Contact
	found := false

	// Face contact: the sweep crosses the reach-offset line over the segment
	// interior.
	ab := w.B.Minus(w.A)
	if n := ab.Normalize().LeftNormal(); !n.IsZero() {
		s0 := p0.Minus(w.A).Dot(n)
		s1 := p1.Minus(w.A).Dot(n)
		if s0 < 0 {
			n = n.Invert()
			s0, s1 = -s0, -s1
		}
		if s0 > reach && s1 < s0 {
			t := (s0 - reach) / (s0 - s1)
			if t <= 1 {
				at := p0.Plus(d.Times(t))
				if u := at.Minus(w.A).Dot(ab) / ab.MagnitudeSquared(); u >= 0 && u <= 1 {
					best = Contact{Time: t, Point: at, Normal: n}
					found = true
				}
			}
		}
	}

	// Cap contacts: the sweep enters one of the endpoint circles.
	for _, end := range [2]Vec2{w.A, w.B} {
		t, ok := rayCircleEntry(p0, d, end, reach)
		if !ok || (found && t >= best.Time) {
			continue
		}
		at := p0.Plus(d.Times(t))
		n := at.Minus(end).Normalize()
		if d.Dot(n) < 0 {
			best = Contact{Time: t, Point: at, Normal: n}
			found = true
		}
	}

	return best, found
}

// rayCircleEntry solves |p0 + t*d - c| = r for the entry root and returns it
// when it lies within the sweep.
func rayCircleEntry(p0, d, c Vec2, r float64) (float64, bool) {
	f := p0.Minus(c)
	a := d.MagnitudeSquared()
	if a == 0 {
		return 0, false
	}
	b := 2 * d.Dot(f)
	k := f.MagnitudeSquared() - r*r
	disc := b*b - 4*a*k
	if disc < 0 {
		return 0, false
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}
