// Package pyramid holds the tile/level data model shared by the cache, the
// dependency-closure planner and the reconstruction engine.
//
// The layout mirrors amspath/libisyntax's isyntax_image_t / isyntax_level_t /
// isyntax_tile_t: one Pyramid per open file, one Level per scale, and a flat
// Tile array per level allocated once at open time and never reallocated —
// so callers may keep raw *Tile pointers for the lifetime of the Pyramid
// instead of the index-juggling the C original needs to survive a realloc.
package pyramid

// Channel identifies one of the three colour planes a tile carries.
type Channel int

const (
	ChannelY Channel = iota
	ChannelCo
	ChannelCg
	NumChannels = 3
)

// TileChannel holds the optional LL and H coefficient planes for one colour
// channel of one tile. A present plane is always a slice handed out by a
// blockpool.Pool; it is owned by the tile until evicted or freed.
type TileChannel struct {
	CoeffLL []int16 // TW*TH samples, or nil
	CoeffH  []int16 // 3*TW*TH samples (LH, HL, HH consecutive), or nil
}

// Tile is one (scale, tx, ty) cell of the pyramid. Tile is deliberately a
// plain struct, not an interface: the cache, closure planner and engine all
// need direct field access under the cache mutex.
type Tile struct {
	Scale, X, Y int

	Exists bool
	HasLL  bool
	HasH   bool

	Channels [NumChannels]TileChannel

	// LLInvalidEdges is a bitmask, indexed the same way as Neighbors8's
	// return value, of which same-scale neighbour directions must be
	// treated as absent for this tile's own cross-tile H padding (spec.md
	// §4.5's edge policy) regardless of whether pyramid.(*Pyramid).Tile
	// returns a non-nil neighbour there. Computed once, when a top-level
	// tile's LL is loaded directly from its codeblock (spec.md §3: only
	// top-level tiles are loaded rather than produced by a parent's IDWT),
	// from which same-scale directions fall outside the pyramid's bounds or
	// hold a tile that does not exist.
	LLInvalidEdges uint8

	CodeblockIndex      uint32
	CodeblockChunkIndex uint32
	DataChunkIndex      uint32

	// LRU linkage, manipulated only by (*pyramid.List) methods under the
	// cache's mutex.
	prev, next *Tile
	inList     *List

	// cacheMarked is scratch state for the closure planner (spec.md §4.4):
	// true while a tile is already claimed by one of the three closure
	// lists being built for the in-flight request.
	cacheMarked bool
}

// CacheMarked reports whether the tile is currently claimed by an
// in-progress closure build.
func (t *Tile) CacheMarked() bool { return t.cacheMarked }

// SetCacheMarked sets or clears the closure scratch flag. Must be cleared on
// every touched tile before a closure's execution phase begins (spec.md §4.4).
func (t *Tile) SetCacheMarked(v bool) { t.cacheMarked = v }

// Level is one resolution of the pyramid.
type Level struct {
	Scale           int
	WidthInTiles    int
	HeightInTiles   int
	DownsampleFactor float64
	Tiles           []Tile
}

func (l *Level) tileAt(x, y int) *Tile {
	if x < 0 || y < 0 || x >= l.WidthInTiles || y >= l.HeightInTiles {
		return nil
	}
	return &l.Tiles[y*l.WidthInTiles+x]
}

// Pyramid is the full set of levels for one open file, plus the fixed tile
// pixel dimensions that size both coefficient planes and the block pools.
type Pyramid struct {
	TileWidth  int
	TileHeight int
	MaxScale   int // highest scale index, i.e. the coarsest/top level
	Levels     []Level

	// PaddingPerLevel is the file-reported per-level wavelet-transform
	// padding (spec.md §4.6) the region planner folds into its coordinate
	// offset. Zero for pyramids built without that metadata (e.g. tests).
	PaddingPerLevel int
}

// New allocates a zero-initialized pyramid: every tile record exists (in the
// Go slice sense) from the start, matching spec.md §3's lifecycle note that
// tile state records are created once at open time and live for the file's
// lifetime; only coefficient planes are created on demand.
func New(tileWidth, tileHeight int, levelTileCounts [][2]int) *Pyramid {
	p := &Pyramid{
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		MaxScale:   len(levelTileCounts) - 1,
		Levels:     make([]Level, len(levelTileCounts)),
	}
	for scale, wh := range levelTileCounts {
		w, h := wh[0], wh[1]
		p.Levels[scale] = Level{
			Scale:            scale,
			WidthInTiles:     w,
			HeightInTiles:    h,
			DownsampleFactor: float64(uint64(1) << uint(scale)),
			Tiles:            make([]Tile, w*h),
		}
		for i := range p.Levels[scale].Tiles {
			t := &p.Levels[scale].Tiles[i]
			t.Scale = scale
			t.X = i % w
			t.Y = i / w
		}
	}
	return p
}

// Tile returns the tile record at (scale, x, y), or nil if out of bounds.
func (p *Pyramid) Tile(scale, x, y int) *Tile {
	if scale < 0 || scale >= len(p.Levels) {
		return nil
	}
	return p.Levels[scale].tileAt(x, y)
}

// Parent returns the tile's parent (scale+1, x/2, y/2), or nil if the tile
// is already at the top scale or the parent is out of bounds.
func (p *Pyramid) Parent(t *Tile) *Tile {
	if t.Scale >= p.MaxScale {
		return nil
	}
	return p.Tile(t.Scale+1, t.X/2, t.Y/2)
}

// Children returns the tile's four children at scale-1, in
// top-left/top-right/bottom-left/bottom-right order. Entries are nil where
// out of bounds. Scale-0 tiles have no children (all four are nil).
func (p *Pyramid) Children(t *Tile) [4]*Tile {
	var out [4]*Tile
	if t.Scale == 0 {
		return out
	}
	cs := t.Scale - 1
	cx, cy := t.X*2, t.Y*2
	out[0] = p.Tile(cs, cx, cy)
	out[1] = p.Tile(cs, cx+1, cy)
	out[2] = p.Tile(cs, cx, cy+1)
	out[3] = p.Tile(cs, cx+1, cy+1)
	return out
}

// Neighbors8 returns the tile's eight same-scale neighbours in row-major
// order (top-left, top-center, top-right, center-left, center-right,
// bottom-left, bottom-center, bottom-right). Out-of-bounds entries are nil.
func (p *Pyramid) Neighbors8(t *Tile) [8]*Tile {
	var out [8]*Tile
	i := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			out[i] = p.Tile(t.Scale, t.X+dx, t.Y+dy)
			i++
		}
	}
	return out
}
