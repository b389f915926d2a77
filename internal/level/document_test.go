package level

import (
	"context"
	"errors"
	"testing"
)

const docJSON = `{
	"name": "Test",
	"size": {"w": 100, "h": 75},
	"start": {"x": 8, "y": 66},
	"end": {"pos": {"x": 86, "y": 6}, "size": {"w": 8, "h": 10}},
	"walls": [
		{"pos": {"x": 10, "y": 50}, "size": {"w": 60, "h": 2}},
		{"pos": {"x": 30, "y": 20}, "size": {"w": 2, "h": 12}}
	],
	"holes": [{"x": 20, "y": 60}],
	"path": [{"x": 8, "y": 66}, {"x": 90, "y": 11}]
}`

func TestParseBuildsBoard(t *testing.T) {
	doc, err := Parse([]byte(docJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	board, err := doc.Board(2.5)
	if err != nil {
		t.Fatalf("board: %v", err)
	}

	// Two maze walls plus four boundary walls.
	if got := len(board.Walls()); got != 6 {
		t.Errorf("wall count: got %d, want 6", got)
	}

	// Horizontal rect becomes a horizontal centerline with the short side as
	// thickness.
	w := board.Walls()[0]
	if w.A.Y != 51 || w.B.Y != 51 || w.A.X != 10 || w.B.X != 70 || w.Thickness != 2 {
		t.Errorf("horizontal wall conversion: %+v", w)
	}

	// Vertical rect becomes a vertical centerline.
	w = board.Walls()[1]
	if w.A.X != 31 || w.B.X != 31 || w.A.Y != 20 || w.B.Y != 32 || w.Thickness != 2 {
		t.Errorf("vertical wall conversion: %+v", w)
	}

	// Goal is the inscribed circle of the end zone.
	g := board.Goal()
	if g.Center.X != 90 || g.Center.Y != 11 || g.Radius != 4 {
		t.Errorf("goal conversion: %+v", g)
	}

	if len(board.Holes()) != 1 || board.Holes()[0].Radius != 2.5 {
		t.Errorf("hole conversion: %+v", board.Holes())
	}

	if got := doc.Waypoints(); len(got) != 2 || got[1].X != 90 {
		t.Errorf("waypoints: %+v", got)
	}
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"missing name", `{"size":{"w":10,"h":10},"start":{"x":1,"y":1},"end":{"pos":{"x":5,"y":5},"size":{"w":2,"h":2}}}`},
		{"zero size", `{"name":"x","size":{"w":0,"h":10},"start":{"x":1,"y":1},"end":{"pos":{"x":5,"y":5},"size":{"w":2,"h":2}}}`},
		{"start outside", `{"name":"x","size":{"w":10,"h":10},"start":{"x":11,"y":1},"end":{"pos":{"x":5,"y":5},"size":{"w":2,"h":2}}}`},
		{"end outside", `{"name":"x","size":{"w":10,"h":10},"start":{"x":1,"y":1},"end":{"pos":{"x":9,"y":9},"size":{"w":5,"h":5}}}`},
		{"degenerate wall", `{"name":"x","size":{"w":10,"h":10},"start":{"x":1,"y":1},"end":{"pos":{"x":5,"y":5},"size":{"w":2,"h":2}},"walls":[{"pos":{"x":1,"y":1},"size":{"w":0,"h":3}}]}`},
		{"hole outside", `{"name":"x","size":{"w":10,"h":10},"start":{"x":1,"y":1},"end":{"pos":{"x":5,"y":5},"size":{"w":2,"h":2}},"holes":[{"x":-1,"y":1}]}`},
	}
	for _, tc := range cases {
		if _, err := Parse([]byte(tc.json)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestStoreServesBuiltinsWithoutDatabase(t *testing.T) {
	s, err := NewStore(nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ctx := context.Background()

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) < 2 {
		t.Fatalf("expected at least 2 built-in levels, got %d", len(recs))
	}

	doc, err := s.Get(ctx, recs[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := doc.Board(2.5); err != nil {
		t.Errorf("built-in level %q must build a valid board: %v", doc.Name, err)
	}

	if _, err := s.Get(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing level: got %v, want ErrNotFound", err)
	}
}

func TestStorePutAndDeleteInMemory(t *testing.T) {
	s, err := NewStore(nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ctx := context.Background()

	doc, err := Parse([]byte(docJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	id, err := s.Put(ctx, doc)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil || got.Name != "Test" {
		t.Fatalf("get after put: %v %v", got, err)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: got %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}
