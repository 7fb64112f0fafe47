package pyramid

import "testing"

func fourLevelPyramid() *Pyramid {
	// Mirrors the spec.md §8 fixture: 4 levels, TW=TH=256, 1024x1024 at
	// level 0 -> 4x4 tiles at level 0, shrinking by 2x per level up.
	return New(256, 256, [][2]int{
		{4, 4}, // scale 0
		{2, 2}, // scale 1
		{1, 1}, // scale 2
		{1, 1}, // scale 3 (top)
	})
}

func TestNewZeroInitialized(t *testing.T) {
	p := fourLevelPyramid()
	if len(p.Levels) != 4 {
		t.Fatalf("levels = %d, want 4", len(p.Levels))
	}
	for _, lvl := range p.Levels {
		for _, tile := range lvl.Tiles {
			if tile.Exists || tile.HasLL || tile.HasH {
				t.Fatalf("tile at scale %d not zero-initialized: %+v", lvl.Scale, tile)
			}
		}
	}
}

func TestTileOutOfBounds(t *testing.T) {
	p := fourLevelPyramid()
	if p.Tile(0, -1, 0) != nil {
		t.Fatal("expected nil for negative x")
	}
	if p.Tile(0, 4, 0) != nil {
		t.Fatal("expected nil for x past width")
	}
	if p.Tile(5, 0, 0) != nil {
		t.Fatal("expected nil for scale past MaxScale")
	}
}

func TestParentChildRoundTrip(t *testing.T) {
	p := fourLevelPyramid()
	leaf := p.Tile(0, 3, 2)
	parent := p.Parent(leaf)
	if parent == nil || parent.Scale != 1 || parent.X != 1 || parent.Y != 1 {
		t.Fatalf("unexpected parent: %+v", parent)
	}
	children := p.Children(parent)
	found := false
	for _, c := range children {
		if c == leaf {
			found = true
		}
	}
	if !found {
		t.Fatal("leaf not among its parent's children")
	}
}

func TestTopLevelHasNoParent(t *testing.T) {
	p := fourLevelPyramid()
	top := p.Tile(3, 0, 0)
	if p.Parent(top) != nil {
		t.Fatal("top-level tile must have no parent")
	}
}

func TestNeighbors8CornerCapped(t *testing.T) {
	p := fourLevelPyramid()
	corner := p.Tile(0, 0, 0)
	neighbors := p.Neighbors8(corner)
	present := 0
	for _, n := range neighbors {
		if n != nil {
			present++
		}
	}
	// A top-left corner tile in a 4x4 grid has exactly 3 in-bounds neighbours.
	if present != 3 {
		t.Fatalf("present neighbours = %d, want 3", present)
	}
}
