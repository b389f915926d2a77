// Package level parses maze level documents and turns them into board
// geometry. It is the only place that understands the level file format; the
// physics core consumes the resulting game.Board and never touches files.
package level

import (
	"encoding/json"
	"fmt"

	"github.com/khuttun/labyrinth/internal/game"
)

// Point is a 2D point in level coordinates (origin at the bottom-left of the
// board).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an axis-aligned rectangle anchored at its bottom-left corner.
type Rect struct {
	Pos  Point `json:"pos"`
	Size Size  `json:"size"`
}

// Document is one authored level. Walls are axis-aligned rectangles; the end
// zone is a rectangle whose inscribed circle becomes the goal; holes are
// points that get the configured hole radius. Path is an optional waypoint
// chain from start to end used by the autopilot.
type Document struct {
	Name  string  `json:"name"`
	Size  Size    `json:"size"`
	Start Point   `json:"start"`
	End   Rect    `json:"end"`
	Walls []Rect  `json:"walls"`
	Holes []Point `json:"holes"`
	Path  []Point `json:"path,omitempty"`
}

// Parse decodes and validates a level document.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode level: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the document before any geometry is built, so malformed
// levels are rejected here and never reach the physics core.
func (d *Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("level has no name")
	}
	if d.Size.W <= 0 || d.Size.H <= 0 {
		return fmt.Errorf("level %q: board size %g x %g", d.Name, d.Size.W, d.Size.H)
	}
	if !d.contains(d.Start) {
		return fmt.Errorf("level %q: start (%g, %g) outside board", d.Name, d.Start.X, d.Start.Y)
	}
	if d.End.Size.W <= 0 || d.End.Size.H <= 0 {
		return fmt.Errorf("level %q: end zone size %g x %g", d.Name, d.End.Size.W, d.End.Size.H)
	}
	if !d.contains(d.End.Pos) || !d.contains(Point{X: d.End.Pos.X + d.End.Size.W, Y: d.End.Pos.Y + d.End.Size.H}) {
		return fmt.Errorf("level %q: end zone outside board", d.Name)
	}
	for i, w := range d.Walls {
		if w.Size.W <= 0 || w.Size.H <= 0 {
			return fmt.Errorf("level %q: wall %d has size %g x %g", d.Name, i, w.Size.W, w.Size.H)
		}
	}
	for i, h := range d.Holes {
		if !d.contains(h) {
			return fmt.Errorf("level %q: hole %d outside board", d.Name, i)
		}
	}
	return nil
}

func (d *Document) contains(p Point) bool {
	return p.X >= 0 && p.X <= d.Size.W && p.Y >= 0 && p.Y <= d.Size.H
}

// Board builds the immutable physics board for this level. Each wall
// rectangle becomes a centerline segment along its long axis with the short
// side as thickness; the end zone becomes the goal circle inscribed in its
// rectangle; each hole point becomes a circle of holeRadius.
func (d *Document) Board(holeRadius float64) (*game.Board, error) {
	walls := make([]game.Wall, 0, len(d.Walls))
	for _, r := range d.Walls {
		walls = append(walls, wallSegment(r))
	}

	holes := make([]game.Hole, 0, len(d.Holes))
	for _, p := range d.Holes {
		holes = append(holes, game.Hole{Center: game.NewVec2(p.X, p.Y), Radius: holeRadius})
	}

	goal := game.Goal{
		Center: game.NewVec2(d.End.Pos.X+d.End.Size.W/2, d.End.Pos.Y+d.End.Size.H/2),
		Radius: min(d.End.Size.W, d.End.Size.H) / 2,
	}

	return game.NewBoard(d.Size.W, d.Size.H, game.NewVec2(d.Start.X, d.Start.Y), walls, holes, goal)
}

// Waypoints returns the authored path as board-plane vectors, empty when the
// level has none.
func (d *Document) Waypoints() []game.Vec2 {
	pts := make([]game.Vec2, 0, len(d.Path))
	for _, p := range d.Path {
		pts = append(pts, game.NewVec2(p.X, p.Y))
	}
	return pts
}

func wallSegment(r Rect) game.Wall {
	if r.Size.W >= r.Size.H {
		y := r.Pos.Y + r.Size.H/2
		return game.Wall{
			A:         game.NewVec2(r.Pos.X, y),
			B:         game.NewVec2(r.Pos.X+r.Size.W, y),
			Thickness: r.Size.H,
		}
	}
	x := r.Pos.X + r.Size.W/2
	return game.Wall{
		A:         game.NewVec2(x, r.Pos.Y),
		B:         game.NewVec2(x, r.Pos.Y+r.Size.H),
		Thickness: r.Size.W,
	}
}
