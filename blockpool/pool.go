// Package blockpool implements the fixed-block-size slab allocator that
// backs the LL and H coefficient planes (spec.md §4.1). It is grounded on
// amspath/libisyntax's block_allocator_t (original_source/src/utils/block_allocator.h):
// blocks are carved out of contiguous "chunk" arenas, sized in whole blocks,
// and recycled through a free list instead of going back to the Go runtime
// allocator on every alloc/free — the steady-state path under cache churn
// never calls into the general-purpose allocator.
package blockpool

import (
	"errors"
	"sync"
)

// ErrOutOfMemory is returned by Alloc when the pool has already grown to
// its configured maximum chunk count and the free list is empty.
var ErrOutOfMemory = errors.New("blockpool: out of memory")

// ErrForeignBlock is returned by Free when the given block did not
// originate from this pool.
var ErrForeignBlock = errors.New("blockpool: block not owned by this pool")

// Pool is a slab allocator for blocks of int16 coefficients, one fixed
// BlockSize (in int16 samples) per pool. Two pools exist per cache: one
// sized for LL planes (TW*TH samples), one for H planes (3*TW*TH samples).
type Pool struct {
	mu sync.Mutex

	blockSize      int // samples per block
	blocksPerChunk int
	maxChunks      int

	chunks [][]int16 // each chunk is a contiguous arena of blocksPerChunk blocks
	free   [][]int16 // free blocks, sliced out of a chunk's backing array

	// outstanding tracks every block currently handed out by this pool,
	// keyed by the address of its first element, so Free can recognize a
	// block that did not come from here (ErrForeignBlock) instead of
	// silently corrupting the free list.
	outstanding map[*int16]struct{}

	allocatedBlocks int // currently handed-out blocks, for pool stats/tests
}

// New creates a pool for blocks of blockSize int16 samples, grown in arenas
// of chunkSizeBytes bytes at a time (rounded down to a whole number of
// blocks, minimum one block per chunk). The cap is maxBlocks rounded up to
// a whole number of chunks (see MaxBlocks).
func New(blockSize, maxBlocks, chunkSizeBytes int) *Pool {
	if blockSize <= 0 {
		blockSize = 1
	}
	blockBytes := blockSize * 2 // int16
	blocksPerChunk := chunkSizeBytes / blockBytes
	if blocksPerChunk < 1 {
		blocksPerChunk = 1
	}
	maxChunks := (maxBlocks + blocksPerChunk - 1) / blocksPerChunk
	if maxChunks < 1 {
		maxChunks = 1
	}
	return &Pool{
		blockSize:      blockSize,
		blocksPerChunk: blocksPerChunk,
		maxChunks:      maxChunks,
	}
}

// Alloc returns an uninitialized block of BlockSize() int16 samples. It
// grows the pool by one chunk when the free list is empty and the chunk
// cap has not been reached, and returns ErrOutOfMemory otherwise.
func (p *Pool) Alloc() ([]int16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		if len(p.chunks) >= p.maxChunks {
			return nil, ErrOutOfMemory
		}
		chunk := make([]int16, p.blocksPerChunk*p.blockSize)
		p.chunks = append(p.chunks, chunk)
		for i := 0; i < p.blocksPerChunk; i++ {
			p.free = append(p.free, chunk[i*p.blockSize:(i+1)*p.blockSize:(i+1)*p.blockSize])
		}
	}

	n := len(p.free)
	block := p.free[n-1]
	p.free = p.free[:n-1]
	p.allocatedBlocks++
	if p.outstanding == nil {
		p.outstanding = make(map[*int16]struct{})
	}
	p.outstanding[&block[0]] = struct{}{}
	return block, nil
}

// Free returns block to the pool's free list. block must be a slice
// previously returned by Alloc on this pool and not yet freed; otherwise
// Free returns ErrForeignBlock and leaves the pool untouched.
func (p *Pool) Free(block []int16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(block) == 0 {
		return ErrForeignBlock
	}
	key := &block[0]
	if _, ok := p.outstanding[key]; !ok {
		return ErrForeignBlock
	}
	delete(p.outstanding, key)
	p.free = append(p.free, block)
	p.allocatedBlocks--
	return nil
}

// Destroy releases every chunk the pool owns. The pool must not be used
// afterward.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = nil
	p.free = nil
	p.outstanding = nil
	p.allocatedBlocks = 0
}

// BlockSize returns the number of int16 samples in one block.
func (p *Pool) BlockSize() int {
	return p.blockSize
}

// Stats reports the number of blocks currently allocated, currently free,
// and the total capacity across all chunks grown so far (not the
// theoretical maximum — that is InUse+Free+room still available from
// ungrown chunks).
func (p *Pool) Stats() (inUse, free, grownCapacity int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocatedBlocks, len(p.free), len(p.chunks) * p.blocksPerChunk
}

// MaxBlocks returns the hard capacity the pool was configured with
// (expressed in whole chunks, so it may be rounded up slightly from the
// value passed to New).
func (p *Pool) MaxBlocks() int {
	return p.maxChunks * p.blocksPerChunk
}
