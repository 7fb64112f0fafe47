package closure

import (
	"testing"

	"github.com/cocosip/go-isyntax/pyramid"
)

// fourLevelPyramid mirrors the spec.md §8 fixture: 4 levels, TW=TH=256,
// 1024x1024 at level 0, every tile existing.
func fourLevelPyramid() *pyramid.Pyramid {
	p := pyramid.New(256, 256, [][2]int{
		{4, 4}, // scale 0
		{2, 2}, // scale 1
		{1, 1}, // scale 2
		{1, 1}, // scale 3 (top)
	})
	for i := range p.Levels {
		for j := range p.Levels[i].Tiles {
			p.Levels[i].Tiles[j].Exists = true
		}
	}
	return p
}

func contains(l *pyramid.List, t *pyramid.Tile) bool {
	found := false
	l.Each(func(x *pyramid.Tile) {
		if x == t {
			found = true
		}
	})
	return found
}

func allClear(t *testing.T, l *pyramid.List) {
	t.Helper()
	l.Each(func(x *pyramid.Tile) {
		if x.CacheMarked() {
			t.Fatalf("tile scale=%d x=%d y=%d still cache_marked after Build", x.Scale, x.X, x.Y)
		}
	})
}

func TestBuildTopLevelTileClosureIsSingleton(t *testing.T) {
	p := fourLevelPyramid()
	cache := &pyramid.List{Name: "cache_list"}
	target := p.Tile(3, 0, 0)
	pyramid.InsertFront(cache, target)

	plan := Build(p, cache, target)

	if plan.IDWT.Len() != 1 {
		t.Fatalf("idwt_list len = %d, want 1", plan.IDWT.Len())
	}
	if plan.IDWT.Head() != target {
		t.Fatalf("idwt_list head = %+v, want target", plan.IDWT.Head())
	}
	if plan.Coeff.Len() != 0 {
		t.Fatalf("coeff_list len = %d, want 0 (top level has no same-scale neighbours)", plan.Coeff.Len())
	}
	allClear(t, plan.IDWT)
	allClear(t, plan.Coeff)
	allClear(t, plan.Children)
}

func TestBuildCornerTileClosureSpansAllLevels(t *testing.T) {
	p := fourLevelPyramid()
	cache := &pyramid.List{Name: "cache_list"}
	target := p.Tile(0, 0, 0)
	pyramid.InsertFront(cache, target)

	plan := Build(p, cache, target)

	// One ancestor per level 0..3 (spec.md §8 scenario 2).
	if plan.IDWT.Len() != 4 {
		t.Fatalf("idwt_list len = %d, want 4", plan.IDWT.Len())
	}
	wantAncestors := []*pyramid.Tile{
		target,
		p.Tile(1, 0, 0),
		p.Tile(2, 0, 0),
		p.Tile(3, 0, 0),
	}
	for _, want := range wantAncestors {
		if !contains(plan.IDWT, want) {
			t.Fatalf("idwt_list missing ancestor scale=%d x=%d y=%d", want.Scale, want.X, want.Y)
		}
	}

	// Corner neighbours: 3 at level 0 (target's same-level neighbours) plus
	// 3 at level 1 (the level-1 ancestor's same-level neighbours); levels 2
	// and 3 are 1x1 and contribute none.
	if plan.Coeff.Len() != 6 {
		t.Fatalf("coeff_list len = %d, want 6", plan.Coeff.Len())
	}

	// Every tile that would otherwise be a sibling child is already claimed
	// by coeff_list in this fixture (the level-0 corner's same-level
	// neighbours are exactly its parent's other three children, and
	// likewise one level up), so children_list is empty here — still
	// consistent with spec.md §8's "≥" LRU-size bound, since
	// idwt(4)+coeff(6) alone already exceeds 1+3+3+1.
	if plan.Children.Len() != 0 {
		t.Fatalf("children_list len = %d, want 0", plan.Children.Len())
	}

	total := plan.IDWT.Len() + plan.Coeff.Len() + plan.Children.Len()
	if total < 8 {
		t.Fatalf("total closure size = %d, want >= 8 per spec.md §8 scenario 2", total)
	}

	allClear(t, plan.IDWT)
	allClear(t, plan.Coeff)
	allClear(t, plan.Children)
}

func TestBuildListsAreDisjoint(t *testing.T) {
	p := fourLevelPyramid()
	cache := &pyramid.List{Name: "cache_list"}
	target := p.Tile(0, 2, 1)
	pyramid.InsertFront(cache, target)

	plan := Build(p, cache, target)

	seen := map[*pyramid.Tile]string{}
	check := func(l *pyramid.List, name string) {
		l.Each(func(tile *pyramid.Tile) {
			if prev, ok := seen[tile]; ok {
				t.Fatalf("tile scale=%d x=%d y=%d present in both %s and %s", tile.Scale, tile.X, tile.Y, prev, name)
			}
			seen[tile] = name
		})
	}
	check(plan.IDWT, "idwt_list")
	check(plan.Coeff, "coeff_list")
	check(plan.Children, "children_list")
}

func TestBuildParentsOrderedBeforeChildrenInIDWTList(t *testing.T) {
	p := fourLevelPyramid()
	cache := &pyramid.List{Name: "cache_list"}
	target := p.Tile(0, 1, 1)
	pyramid.InsertFront(cache, target)

	plan := Build(p, cache, target)

	depth := map[*pyramid.Tile]int{}
	i := 0
	plan.IDWT.Each(func(tile *pyramid.Tile) {
		depth[tile] = i
		i++
	})
	plan.IDWT.Each(func(tile *pyramid.Tile) {
		parent := p.Parent(tile)
		if parent == nil {
			return
		}
		if pIdx, ok := depth[parent]; ok {
			if pIdx >= depth[tile] {
				t.Fatalf("parent scale=%d not ordered before child scale=%d in idwt_list", parent.Scale, tile.Scale)
			}
		}
	})
}

func TestBuildRemovesClosureTilesFromCacheList(t *testing.T) {
	p := fourLevelPyramid()
	cache := &pyramid.List{Name: "cache_list"}
	// Seed the cache with every tile in the pyramid, LRU order irrelevant.
	for i := range p.Levels {
		for j := range p.Levels[i].Tiles {
			pyramid.InsertFront(cache, &p.Levels[i].Tiles[j])
		}
	}
	target := p.Tile(0, 0, 0)

	plan := Build(p, cache, target)

	plan.IDWT.Each(func(tile *pyramid.Tile) {
		if contains(cache, tile) {
			t.Fatalf("idwt tile scale=%d x=%d y=%d still present in cache list", tile.Scale, tile.X, tile.Y)
		}
	})
	plan.Coeff.Each(func(tile *pyramid.Tile) {
		if contains(cache, tile) {
			t.Fatalf("coeff tile scale=%d x=%d y=%d still present in cache list", tile.Scale, tile.X, tile.Y)
		}
	})
}
