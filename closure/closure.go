// Package closure builds the dependency closure of tiles that must be
// touched in order to reconstruct one target tile, per spec.md §4.4. It is
// a direct port of libisyntax's isyntax_make_tile_lists_by_scale and the
// list bookkeeping around isyntax_tile_read
// (original_source/src/isyntax/isyntax_reader.c): walk the pyramid from the
// target tile's own scale up to the top, at each scale marking neighbours of
// already-queued tiles as needing coefficients and parents of queued tiles
// as needing an inverse transform, then finally collecting the children
// that will receive LL coefficients as a side effect of those transforms.
package closure

import "github.com/cocosip/go-isyntax/pyramid"

// Plan holds the three disjoint lists that isyntax_tile_read builds before
// doing any I/O: idwtList tiles require an inverse wavelet transform so
// their children receive LL coefficients (the target tile is always its
// tail); coeffList tiles are neighbours of an idwtList tile and need only
// their H coefficients loaded; childrenList tiles receive LL coefficients
// purely as a side effect of an idwtList ancestor's transform and need no
// I/O of their own.
//
// Every tile named in a Plan was cache_marked during planning and has had
// that mark cleared again by the time Build returns (spec.md §4.4, §8's
// "closures are disjoint, cache_marked cleared").
type Plan struct {
	IDWT     *pyramid.List
	Coeff    *pyramid.List
	Children *pyramid.List
}

// Build computes the closure for reading target out of cache's current LRU
// list, removing every involved tile from cache as it is discovered (so it
// cannot be evicted mid-read) and leaving the three returned lists ordered
// parents-before-children, matching the order the reconstruction engine
// must process them in.
func Build(pyr *pyramid.Pyramid, cache *pyramid.List, target *pyramid.Tile) *Plan {
	idwt := &pyramid.List{Name: "idwt_list"}
	coeff := &pyramid.List{Name: "coeff_list"}
	children := &pyramid.List{Name: "children_list"}

	pyramid.Remove(target)
	target.SetCacheMarked(true)
	pyramid.InsertFront(idwt, target)

	for scale := target.Scale; scale <= pyr.MaxScale; scale++ {
		markNeighborsAsCoeff(pyr, idwt, coeff, scale)

		addParents(pyr, idwt, idwt, scale)
		addParents(pyr, coeff, idwt, scale)
	}

	// Every idwt tile's four children receive LL coefficients from that
	// tile's transform; bump them into children_list unless already spoken
	// for by idwt_list or coeff_list.
	idwt.Each(func(t *pyramid.Tile) {
		addChildren(pyr, t, children)
	})

	idwt.Each(clearMark)
	coeff.Each(clearMark)
	children.Each(clearMark)

	return &Plan{IDWT: idwt, Coeff: coeff, Children: children}
}

func clearMark(t *pyramid.Tile) { t.SetCacheMarked(false) }

// markNeighborsAsCoeff marks the 8-neighbourhood (plus self, matching the
// original's -1..1/-1..1 scan which revisits the centre tile harmlessly
// since it is already cache_marked) of every idwt-list tile at scale as
// needing coefficients, moving each newly-found tile from cache into coeff.
func markNeighborsAsCoeff(pyr *pyramid.Pyramid, idwt, coeff *pyramid.List, scale int) {
	idwt.Each(func(tile *pyramid.Tile) {
		if tile.Scale != scale {
			return
		}
		level := &pyr.Levels[scale]
		for yOff := -1; yOff <= 1; yOff++ {
			for xOff := -1; xOff <= 1; xOff++ {
				nx, ny := tile.X+xOff, tile.Y+yOff
				if nx < 0 || nx >= level.WidthInTiles || ny < 0 || ny >= level.HeightInTiles {
					continue
				}
				neighbor := pyr.Tile(scale, nx, ny)
				if neighbor.CacheMarked() || !neighbor.Exists {
					continue
				}
				pyramid.Remove(neighbor)
				neighbor.SetCacheMarked(true)
				pyramid.InsertFront(coeff, neighbor)
			}
		}
	})
}

// addParents walks every tile in scanList that sits at scale and, if its
// parent exists and is not already marked, moves the parent from cache into
// dst (always idwt_list: a parent must run an inverse transform to hand its
// children LL coefficients).
func addParents(pyr *pyramid.Pyramid, scanList, dst *pyramid.List, scale int) {
	scanList.Each(func(tile *pyramid.Tile) {
		if tile.Scale != scale {
			return
		}
		parent := pyr.Parent(tile)
		if parent == nil || !parent.Exists || parent.CacheMarked() {
			return
		}
		pyramid.Remove(parent)
		parent.SetCacheMarked(true)
		pyramid.InsertFront(dst, parent)
	})
}

// addChildren moves tile's four children into children_list unless a
// child is already spoken for by idwt_list or coeff_list.
func addChildren(pyr *pyramid.Pyramid, tile *pyramid.Tile, children *pyramid.List) {
	if tile.Scale <= 0 {
		return
	}
	for _, child := range pyr.Children(tile) {
		if child == nil || child.CacheMarked() {
			continue
		}
		pyramid.Remove(child)
		pyramid.InsertFront(children, child)
	}
}
