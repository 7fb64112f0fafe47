// Package engine implements the tile reconstruction engine (spec.md §4,
// the core of this module): given a single (scale, tx, ty), it builds the
// dependency closure, loads missing coefficients, synthesizes LL for every
// non-target tile in the closure, and colour-converts the target tile's LL
// into a pixel buffer. It is a direct port of isyntax_tile_read
// (original_source/src/isyntax/isyntax_reader.c), down to the splice order
// and the "trim on every call" cadence.
package engine

import (
	"fmt"

	"github.com/cocosip/go-isyntax/cache"
	"github.com/cocosip/go-isyntax/closure"
	"github.com/cocosip/go-isyntax/codeblock"
	"github.com/cocosip/go-isyntax/colorspace"
	"github.com/cocosip/go-isyntax/pyramid"
	"github.com/cocosip/go-isyntax/wavelet"
)

// Engine ties the pyramid, cache and coefficient loader together for one
// open file. Every ReadTile call is serialized on Cache.Mu, matching spec.md
// §5's "strict single-mutex serialization of read_tile" — the mutex lives on
// the Cache, not the Engine, so two Engines over two files sharing one Cache
// (spec.md §3) still serialize against each other correctly.
type Engine struct {
	Pyramid *pyramid.Pyramid
	Cache   *cache.Cache
	Loader  *codeblock.Loader
}

// New creates a reconstruction engine over an already-injected cache and a
// loader wired to the file's directory, decompressor registry and I/O.
func New(pyr *pyramid.Pyramid, c *cache.Cache, loader *codeblock.Loader) *Engine {
	return &Engine{Pyramid: pyr, Cache: c, Loader: loader}
}

// ReadTile reconstructs the tile at (scale, x, y) and, if format is non-nil,
// colour-converts it into a RGBA/BGRA pixel buffer of
// TileWidth*TileHeight*4 bytes. Passing a nil format performs the same
// closure build and coefficient loading (useful for pre-warming the cache)
// without paying for colour conversion.
//
// Non-existent tiles return a buffer filled with 0xFF and a nil error
// (spec.md §4.5 edge policy), leaving the cache unchanged.
func (e *Engine) ReadTile(scale, x, y int, format *colorspace.Format) ([]byte, error) {
	e.Cache.Mu.Lock()
	defer e.Cache.Mu.Unlock()

	tw, th := e.Pyramid.TileWidth, e.Pyramid.TileHeight
	out := make([]byte, tw*th*4)

	target := e.Pyramid.Tile(scale, x, y)
	if target == nil {
		return nil, fmt.Errorf("engine: tile scale=%d x=%d y=%d out of bounds", scale, x, y)
	}
	if !target.Exists {
		for i := range out {
			out[i] = 0xFF
		}
		return out, nil
	}

	plan := closure.Build(e.Pyramid, e.Cache.List, target)

	if err := e.loadCoefficients(plan); err != nil {
		return nil, err
	}

	if err := e.executeIDWT(plan, target, format, out); err != nil {
		return nil, err
	}

	// Splice order matches isyntax_tile_read: children, then coeff, then
	// idwt. idwt_list runs parents-first with the target at its tail, so the
	// target is then moved to the cache's head explicitly.
	pyramid.SpliceFront(e.Cache.List, plan.Children)
	pyramid.SpliceFront(e.Cache.List, plan.Coeff)
	pyramid.SpliceFront(e.Cache.List, plan.IDWT)
	pyramid.InsertFront(e.Cache.List, target)

	e.Cache.Trim(e.Cache.TargetSize)

	return out, nil
}

// loadCoefficients performs spec.md §4.5 steps 1-2: H for coeff_list, then
// H (and top-level LL) for idwt_list.
func (e *Engine) loadCoefficients(plan *closure.Plan) error {
	var err error
	plan.Coeff.Each(func(tile *pyramid.Tile) {
		if err != nil || tile.HasH {
			return
		}
		err = e.Loader.LoadH(tile)
	})
	if err != nil {
		return fmt.Errorf("engine: loading coeff_list: %w", err)
	}

	plan.IDWT.Each(func(tile *pyramid.Tile) {
		if err != nil {
			return
		}
		if !tile.HasH {
			err = e.Loader.LoadH(tile)
		}
		if err == nil && tile.Scale == e.Pyramid.MaxScale && !tile.HasLL {
			err = e.Loader.LoadLL(tile)
			if err == nil {
				tile.LLInvalidEdges = invalidEdgesMask(e.Pyramid, tile)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("engine: loading idwt_list: %w", err)
	}
	return nil
}

// invalidEdgesMask computes tile's ll_invalid_edges bitmask (spec.md §3):
// bit i (matching pyramid.(*Pyramid).Neighbors8's ordering) is set when the
// same-scale neighbour in that direction does not exist, so the edge policy
// in synthesizeChildren never needs to re-derive pyramid-boundary geometry
// on every read. Only computed for top-level tiles, the only ones loaded
// directly rather than produced by a parent's IDWT.
func invalidEdgesMask(pyr *pyramid.Pyramid, tile *pyramid.Tile) uint8 {
	var mask uint8
	for i, n := range pyr.Neighbors8(tile) {
		if n == nil || !n.Exists {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// executeIDWT performs spec.md §4.5 step 3: walk idwt_list head (top level)
// to tail (target), synthesizing each non-target tile's children's LL; for
// the target tile, colour-convert its own (now fully determined) LL planes
// into out when format is non-nil.
func (e *Engine) executeIDWT(plan *closure.Plan, target *pyramid.Tile, format *colorspace.Format, out []byte) error {
	tw, th := e.Pyramid.TileWidth, e.Pyramid.TileHeight

	var resultErr error
	plan.IDWT.Each(func(tile *pyramid.Tile) {
		if resultErr != nil {
			return
		}
		if tile == target {
			if format != nil {
				colorspace.TileToPixels(
					tile.Channels[pyramid.ChannelY].CoeffLL,
					tile.Channels[pyramid.ChannelCo].CoeffLL,
					tile.Channels[pyramid.ChannelCg].CoeffLL,
					tw, th, *format, out,
				)
			}
			return
		}
		if tile.Scale == 0 {
			// No finer scale exists below the leaves; nothing to propagate.
			return
		}
		resultErr = e.synthesizeChildren(tile)
	})
	return resultErr
}

// synthesizeChildren runs one inverse-transform level per channel, combining
// tile's LL and H — padded with its own and its 8 same-scale neighbours' H
// coefficients (spec.md §4.4's cross-tile border, "the conceptual centre")
// — to produce the LL quadrants for its four children, and allocates/writes
// them from the cache's LL pool. Children that already have LL (e.g. from a
// previous request) are left untouched.
func (e *Engine) synthesizeChildren(tile *pyramid.Tile) error {
	children := e.Pyramid.Children(tile)
	needWork := false
	for _, c := range children {
		if c != nil && c.Exists && !c.HasLL {
			needWork = true
		}
	}
	if !needWork {
		return nil
	}

	neighbors := e.Pyramid.Neighbors8(tile)

	tw, th := e.Pyramid.TileWidth, e.Pyramid.TileHeight
	for ch := 0; ch < pyramid.NumChannels; ch++ {
		ll := tile.Channels[ch].CoeffLL
		h := tile.Channels[ch].CoeffH
		if ll == nil {
			ll = wavelet.DummyLL(tw, th)
		}
		if h == nil {
			h = wavelet.DummyH(tw, th)
		}

		var neighborH [8][]int16
		for i, n := range neighbors {
			if n == nil || !n.Exists || !n.HasH || tile.LLInvalidEdges&(1<<uint(i)) != 0 {
				continue // edge policy (spec.md §4.5): dummy (nil -> zero) border
			}
			neighborH[i] = n.Channels[ch].CoeffH
		}

		synthesized := wavelet.TileSynthesis53(ll, h, neighborH, tw, th)

		for i, child := range children {
			if child == nil || !child.Exists || child.HasLL {
				continue
			}
			block, err := e.Cache.LLPool.Alloc()
			if err != nil {
				return fmt.Errorf("engine: allocating synthesized LL for child: %w", err)
			}
			copy(block, synthesized[i])
			child.Channels[ch].CoeffLL = block
		}
	}
	for _, child := range children {
		if child != nil && child.Exists {
			child.HasLL = true
		}
	}
	return nil
}
