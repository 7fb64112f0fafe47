package codeblock

import (
	"fmt"
	"io"

	"github.com/cocosip/go-isyntax/blockpool"
	"github.com/cocosip/go-isyntax/pyramid"
)

// safetyBytes is appended to every codeblock read so Decompress's bitstream
// reader may over-read by up to 56 bits without a bounds check on every bit
// (spec.md §4.3).
const safetyBytes = 7

// Loader loads the coefficient planes for a single tile, per spec.md §4.3.
// It is the seam between the reconstruction engine and the three external
// collaborators named in spec.md §1: the codeblock directory, raw file I/O,
// and the per-codeblock decompressor.
type Loader struct {
	Directory         Directory
	Decompressors     *Registry
	File              io.ReaderAt
	CompressorVersion int
	LLPool            *blockpool.Pool
	HPool             *blockpool.Pool
	TileWidth         int
	TileHeight        int
}

// LoadLL fills every channel's CoeffLL for tile by decompressing its LL
// codeblocks. Valid only for top-level (tile.Scale == pyramid.MaxScale)
// tiles; spec.md §3 invariant: a non-top-level tile's LL comes exclusively
// from its parent's IDWT output, never from the file.
func (l *Loader) LoadLL(tile *pyramid.Tile) error {
	chunk, err := l.Directory.Chunk(tile.DataChunkIndex)
	if err != nil {
		return fmt.Errorf("codeblock: chunk lookup for LL: %w", err)
	}
	for c := 0; c < pyramid.NumChannels; c++ {
		idx := tile.CodeblockIndex + uint32(c*chunk.CodeblockCountPerColor)
		plane, err := l.loadOne(idx, KindLL)
		if err != nil {
			for p := 0; p < c; p++ {
				l.LLPool.Free(tile.Channels[p].CoeffLL)
				tile.Channels[p].CoeffLL = nil
			}
			return err
		}
		tile.Channels[c].CoeffLL = plane
	}
	tile.HasLL = true
	return nil
}

// LoadH fills every channel's CoeffH for tile by decompressing its H
// (LH/HL/HH) codeblocks, following the chunking rule in spec.md §3.
func (l *Loader) LoadH(tile *pyramid.Tile) error {
	chunk, err := l.Directory.Chunk(tile.DataChunkIndex)
	if err != nil {
		return fmt.Errorf("codeblock: chunk lookup for H: %w", err)
	}
	inChunk := CodeblockInChunk(chunk.TopScale, tile.Scale, tile.X, tile.Y)
	if inChunk < 0 {
		return fmt.Errorf("codeblock: tile scale %d not within 3 scales of chunk top %d", tile.Scale, chunk.TopScale)
	}
	for c := 0; c < pyramid.NumChannels; c++ {
		idx := tile.CodeblockChunkIndex + uint32(inChunk) + uint32(c*chunk.CodeblockCountPerColor)
		plane, err := l.loadOne(idx, KindH)
		if err != nil {
			for p := 0; p < c; p++ {
				l.HPool.Free(tile.Channels[p].CoeffH)
				tile.Channels[p].CoeffH = nil
			}
			return err
		}
		tile.Channels[c].CoeffH = plane
	}
	tile.HasH = true
	return nil
}

// loadOne reads, decompresses and returns one plane, or returns the
// allocated block to its pool and propagates the error on failure (spec.md
// §4.3 post-condition / §7 "no plane is leaked").
func (l *Loader) loadOne(codeblockIndex uint32, kind Kind) ([]int16, error) {
	desc, err := l.Directory.Descriptor(codeblockIndex)
	if err != nil {
		return nil, fmt.Errorf("codeblock: descriptor lookup: %w", err)
	}

	pool := l.LLPool
	if kind == KindH {
		pool = l.HPool
	}
	block, err := pool.Alloc()
	if err != nil {
		return nil, fmt.Errorf("codeblock: allocate %s plane: %w", kind, err)
	}

	raw := make([]byte, desc.Size+safetyBytes)
	n, err := l.File.ReadAt(raw[:desc.Size], desc.Offset)
	if err != nil && !(err == io.EOF && int64(n) == desc.Size) {
		pool.Free(block)
		return nil, fmt.Errorf("codeblock: read at offset %d: %w: %w", desc.Offset, ErrIO, err)
	}

	decompressor, err := l.Decompressors.Get(l.CompressorVersion)
	if err != nil {
		pool.Free(block)
		return nil, fmt.Errorf("codeblock: %w", err)
	}
	if err := decompressor.Decompress(raw, l.TileWidth, l.TileHeight, kind, l.CompressorVersion, block); err != nil {
		pool.Free(block)
		return nil, fmt.Errorf("codeblock: decompress %s: %w: %w", kind, ErrDecompress, err)
	}
	return block, nil
}
