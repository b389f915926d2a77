package game

import (
	"errors"
	"testing"
)

func TestNewBoardAddsBoundaryWalls(t *testing.T) {
	walls := []Wall{{A: NewVec2(2, 2), B: NewVec2(8, 2), Thickness: 0.2}}
	b, err := NewBoard(10, 8, NewVec2(1, 1), walls, nil, Goal{Center: NewVec2(9, 7), Radius: 0.5})
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if got := len(b.Walls()); got != len(walls)+4 {
		t.Errorf("wall count: got %d, want %d", got, len(walls)+4)
	}
	if b.Width() != 10 || b.Height() != 8 {
		t.Errorf("size: got %g x %g", b.Width(), b.Height())
	}
	if b.Start() != NewVec2(1, 1) {
		t.Errorf("start: got (%g, %g)", b.Start().X, b.Start().Y)
	}
}

func TestNewBoardCopiesInput(t *testing.T) {
	walls := []Wall{{A: NewVec2(2, 2), B: NewVec2(8, 2)}}
	holes := []Hole{{Center: NewVec2(5, 5), Radius: 1}}
	b, err := NewBoard(10, 10, NewVec2(1, 1), walls, holes, Goal{Center: NewVec2(9, 9), Radius: 0.5})
	if err != nil {
		t.Fatalf("board: %v", err)
	}

	walls[0].A = NewVec2(99, 99)
	holes[0].Radius = 99
	if b.Walls()[0].A == NewVec2(99, 99) || b.Holes()[0].Radius == 99 {
		t.Error("board must not alias caller slices")
	}
}

func TestNewBoardRejectsDegenerateGeometry(t *testing.T) {
	goal := Goal{Center: NewVec2(9, 9), Radius: 0.5}

	cases := []struct {
		name  string
		build func() (*Board, error)
	}{
		{"zero width", func() (*Board, error) {
			return NewBoard(0, 10, NewVec2(1, 1), nil, nil, goal)
		}},
		{"negative height", func() (*Board, error) {
			return NewBoard(10, -1, NewVec2(1, 1), nil, nil, goal)
		}},
		{"start outside board", func() (*Board, error) {
			return NewBoard(10, 10, NewVec2(11, 1), nil, nil, goal)
		}},
		{"zero-length wall", func() (*Board, error) {
			return NewBoard(10, 10, NewVec2(1, 1), []Wall{{A: NewVec2(3, 3), B: NewVec2(3, 3)}}, nil, goal)
		}},
		{"negative wall thickness", func() (*Board, error) {
			return NewBoard(10, 10, NewVec2(1, 1), []Wall{{A: NewVec2(3, 3), B: NewVec2(4, 3), Thickness: -1}}, nil, goal)
		}},
		{"zero-radius hole", func() (*Board, error) {
			return NewBoard(10, 10, NewVec2(1, 1), nil, []Hole{{Center: NewVec2(5, 5)}}, goal)
		}},
		{"zero-radius goal", func() (*Board, error) {
			return NewBoard(10, 10, NewVec2(1, 1), nil, nil, Goal{Center: NewVec2(9, 9)})
		}},
	}
	for _, tc := range cases {
		if _, err := tc.build(); !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("%s: got %v, want ErrInvalidGeometry", tc.name, err)
		}
	}
}
