package isyntax

import (
	"fmt"

	isyntaxcache "github.com/cocosip/go-isyntax/cache"
	"github.com/cocosip/go-isyntax/codeblock"
	"github.com/cocosip/go-isyntax/colorspace"
	"github.com/cocosip/go-isyntax/engine"
	"github.com/cocosip/go-isyntax/region"
)

// Format selects the output pixel byte order for ReadTile/ReadRegion
// (spec.md §6). It is a re-export of colorspace.Format so callers of this
// package never need to import the internal colorspace package themselves.
type Format = colorspace.Format

const (
	RGBA = colorspace.RGBA
	BGRA = colorspace.BGRA
)

// Cache is the opaque cache handle spec.md §6's cache_create returns: a tile
// LRU plus the two block-pool allocators it is backed by (spec.md §4.2).
// One Cache may be injected against several Files, provided their tile
// dimensions agree (spec.md §3).
type Cache struct {
	c *isyntaxcache.Cache
}

// CacheCreate creates an empty cache with the given debug name (minted as a
// UUID if empty) and LRU target size in tiles. Pools are not sized until the
// first CacheInject (spec.md §6 cache_create / §4.2).
func CacheCreate(name string, targetSize int) *Cache {
	return &Cache{c: isyntaxcache.New(name, targetSize)}
}

// CacheInject attaches cache's pool allocators to file, sizing the pools
// from file's block dimensions on the first call against any file. A
// subsequent call with a file whose tile dimensions differ from the ones
// the cache was already sized for returns InvalidArgument (spec.md §6
// cache_inject).
func CacheInject(cache *Cache, file *File) error {
	tw, th := file.TileDimensions()
	if err := cache.c.Inject(tw, th); err != nil {
		return wrapErr("cache_inject", InvalidArgument, err)
	}

	loader := &codeblock.Loader{
		Directory:         file.meta.Directory,
		Decompressors:     file.meta.Decompressors,
		File:              file.reader,
		CompressorVersion: file.meta.CompressorVersion,
		LLPool:            cache.c.LLPool,
		HPool:             cache.c.HPool,
		TileWidth:         tw,
		TileHeight:        th,
	}
	eng := engine.New(file.meta.Pyramid, cache.c, loader)

	file.cachesMu.Lock()
	defer file.cachesMu.Unlock()
	file.engines[cache] = &engineHandle{
		engine:  eng,
		planner: region.New(file.meta.Pyramid, eng),
	}
	return nil
}

// CacheDestroy tears down cache's two block pools. The cache, and every
// file it was injected against, must not be used afterward.
func CacheDestroy(cache *Cache) error {
	cache.c.Destroy()
	return nil
}

// engineHandle bundles the reconstruction engine and region planner that
// CacheInject builds for one (File, Cache) pair; a repeated CacheInject of
// the same pair replaces it with a new one.
type engineHandle struct {
	engine  *engine.Engine
	planner *region.Planner
}

func (f *File) handleFor(cache *Cache) (*engineHandle, error) {
	f.cachesMu.Lock()
	defer f.cachesMu.Unlock()
	h, ok := f.engines[cache]
	if !ok {
		return nil, fmt.Errorf("isyntax: cache %q was never injected against this file", cache.c.Name)
	}
	return h, nil
}

// ReadTile reconstructs the tile at (level, tx, ty) into a freshly allocated
// RGBA/BGRA pixel buffer of TileWidth*TileHeight*4 bytes (spec.md §6
// read_tile). A tile for which Exists is false returns an opaque-white
// buffer and a nil error rather than an error (spec.md §7).
func ReadTile(file *File, cache *Cache, level, tx, ty int, format Format) ([]byte, error) {
	h, err := file.handleFor(cache)
	if err != nil {
		return nil, wrapErr("read_tile", InvalidArgument, err)
	}
	buf, err := h.engine.ReadTile(level, tx, ty, &format)
	if err != nil {
		return nil, classifyEngineErr("read_tile", err)
	}
	return buf, nil
}

// ReadRegion reconstructs the w x h pixel rectangle at (x, y) of level into
// a freshly allocated pixel buffer of stride w*4 bytes (spec.md §6
// read_region / §4.6).
func ReadRegion(file *File, cache *Cache, level, x, y, w, h int, format Format) ([]byte, error) {
	handle, err := file.handleFor(cache)
	if err != nil {
		return nil, wrapErr("read_region", InvalidArgument, err)
	}
	buf, err := handle.planner.ReadRegion(level, x, y, w, h, format)
	if err != nil {
		return nil, classifyEngineErr("read_region", err)
	}
	return buf, nil
}
