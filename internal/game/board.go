package game

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when a Board is constructed from degenerate
// level geometry. The loader is expected to reject malformed levels before
// this point; the check here fails fast instead of producing undefined
// behavior at step time.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Board is the immutable maze: walls (including the four boundary walls
// derived from the board size), holes, one goal and the ball start point.
// Built once at level load and safe for concurrent reads afterwards.
type Board struct {
	walls  []Wall
	holes  []Hole
	goal   Goal
	width  float64
	height float64
	start  Vec2
}

// NewBoard validates the geometry and builds a board spanning (0,0) to
// (width,height). The supplied slices are copied.
func NewBoard(width, height float64, start Vec2, walls []Wall, holes []Hole, goal Goal) (*Board, error) {
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("%w: board size %g x %g", ErrInvalidGeometry, width, height)
	}
	if !start.IsFinite() || start.X < 0 || start.X > width || start.Y < 0 || start.Y > height {
		return nil, fmt.Errorf("%w: start point (%g, %g) outside board", ErrInvalidGeometry, start.X, start.Y)
	}
	for i, w := range walls {
		if !w.A.IsFinite() || !w.B.IsFinite() || w.Thickness < 0 {
			return nil, fmt.Errorf("%w: wall %d", ErrInvalidGeometry, i)
		}
		if w.A.Minus(w.B).IsZero() {
			return nil, fmt.Errorf("%w: wall %d has zero length", ErrInvalidGeometry, i)
		}
	}
	for i, h := range holes {
		if !h.Center.IsFinite() || !(h.Radius > 0) {
			return nil, fmt.Errorf("%w: hole %d", ErrInvalidGeometry, i)
		}
	}
	if !goal.Center.IsFinite() || !(goal.Radius > 0) {
		return nil, fmt.Errorf("%w: goal", ErrInvalidGeometry)
	}

	all := make([]Wall, 0, len(walls)+4)
	all = append(all, walls...)
	all = append(all,
		Wall{A: NewVec2(0, 0), B: NewVec2(width, 0)},
		Wall{A: NewVec2(width, 0), B: NewVec2(width, height)},
		Wall{A: NewVec2(width, height), B: NewVec2(0, height)},
		Wall{A: NewVec2(0, height), B: NewVec2(0, 0)},
	)

	hs := make([]Hole, len(holes))
	copy(hs, holes)

	return &Board{
		walls:  all,
		holes:  hs,
		goal:   goal,
		width:  width,
		height: height,
		start:  start,
	}, nil
}

// Walls returns every wall segment, boundary walls last. Callers must not
// mutate the returned slice.
func (b *Board) Walls() []Wall { return b.walls }

// Holes returns the hole circles. Callers must not mutate the returned slice.
func (b *Board) Holes() []Hole { return b.holes }

func (b *Board) Goal() Goal { return b.goal }

func (b *Board) Width() float64 { return b.width }

func (b *Board) Height() float64 { return b.height }

// Start is the designated ball start point for the level.
func (b *Board) Start() Vec2 { return b.start }
