// Package cache implements the tile coefficient cache: an LRU list of tile
// states backed by two fixed-size block-pool allocators, one for LL planes
// and one for H planes (spec.md §4.2). It is a direct port of libisyntax's
// isyntax_cache_create/isyntax_cache_inject/isyntax_cache_trim
// (original_source/src/isyntax/isyntax_reader.c): pool sizing is deferred
// until the first Inject, since only then is the file's block size known,
// and Trim evicts tail-first until the LRU list is back at the target size,
// freeing both LL and H planes for every channel of each evicted tile.
package cache

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cocosip/go-isyntax/blockpool"
	"github.com/cocosip/go-isyntax/pyramid"
)

const (
	arenaBytes        = 256 * 1024 * 1024 // block_allocator_create's chunk granularity (MEGABYTES(256))
	totalBudgetBytes  = 32 * 1024 * 1024 * 1024
	llShareDenominator = 4 // ll_coeff_block_allocator_capacity_in_blocks = total/4
)

// Cache is the memoisation layer shared by every read_tile/read_region call
// against one open file (or several files sharing block dimensions; spec.md
// §5 "Shared resources").
type Cache struct {
	// Mu is the single mutex spec.md §4.2/§5 describes as owned by the
	// cache: every mutating call against the LRU list or the pools, and
	// the reconstruction engine's whole read_tile critical section, holds
	// this lock. It lives here (rather than on engine.Engine) specifically
	// so multiple engines over multiple files can share one Cache and still
	// serialize correctly (spec.md §3 "may be shared by multiple files").
	Mu sync.Mutex

	Name        string
	TargetSize  int
	List        *pyramid.List
	LLPool      *blockpool.Pool
	HPool       *blockpool.Pool
	BlockWidth  int
	BlockHeight int
	injected    bool
}

// New creates an empty cache. If name is empty a UUID is minted so distinct
// cache instances remain distinguishable in logs (spec.md §6 cache_create
// takes an optional debug name).
func New(name string, targetSize int) *Cache {
	if name == "" {
		name = uuid.NewString()
	}
	return &Cache{
		Name:       name,
		TargetSize: targetSize,
		List:       &pyramid.List{Name: name + ":cache_list"},
	}
}

// Inject sizes the cache's block pools for the given block dimensions, the
// first time it is called. Subsequent calls with different dimensions
// return an error (spec.md §6's "files with mismatched block dimensions
// sharing one cache"); subsequent calls with matching dimensions are a
// no-op, matching isyntax_cache_inject's idempotence.
func (c *Cache) Inject(blockWidth, blockHeight int) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if c.injected {
		if blockWidth != c.BlockWidth || blockHeight != c.BlockHeight {
			return fmt.Errorf("cache: block dimensions %dx%d do not match cache's existing %dx%d",
				blockWidth, blockHeight, c.BlockWidth, c.BlockHeight)
		}
		return nil
	}

	llBlockSize := blockWidth * blockHeight
	llCapacity := (totalBudgetBytes / (llBlockSize * 2)) / llShareDenominator
	hBlockSize := llBlockSize * 3
	hCapacity := llCapacity * 3

	c.BlockWidth = blockWidth
	c.BlockHeight = blockHeight
	c.LLPool = blockpool.New(llBlockSize, llCapacity, arenaBytes)
	c.HPool = blockpool.New(hBlockSize, hCapacity, arenaBytes)
	c.injected = true
	return nil
}

// Trim evicts tiles from the tail of the LRU list until its length is at
// most targetSize, freeing both LL and H planes for every channel of each
// evicted tile back to their pools. Callers must already hold Mu (the
// reconstruction engine calls it as the last step of its read_tile critical
// section, spec.md §4.5); Trim does not lock it itself to stay reentrant
// within that section.
func (c *Cache) Trim(targetSize int) {
	for c.List.Len() > targetSize {
		tile := c.List.Tail()
		if tile == nil {
			return
		}
		pyramid.Remove(tile)
		for i := range tile.Channels {
			if tile.HasLL {
				c.LLPool.Free(tile.Channels[i].CoeffLL)
				tile.Channels[i].CoeffLL = nil
			}
			if tile.HasH {
				c.HPool.Free(tile.Channels[i].CoeffH)
				tile.Channels[i].CoeffH = nil
			}
		}
		tile.HasLL = false
		tile.HasH = false
	}
}

// Destroy releases both block pools. The cache must not be used afterward.
func (c *Cache) Destroy() {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if c.LLPool != nil {
		c.LLPool.Destroy()
	}
	if c.HPool != nil {
		c.HPool.Destroy()
	}
}
