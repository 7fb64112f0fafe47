// Package codeblock defines the contract the (external, out-of-scope per
// spec.md §1) file-format parser and codeblock decompressor must satisfy,
// plus the coefficient loader (spec.md §4.3) that drives them on behalf of
// the reconstruction engine.
//
// The Directory/Decompressor split and the Decompressor registry mirror the
// teacher's codec package (codec/codec.go, codec/registry.go): a small
// interface plus a name/version-keyed, RWMutex-guarded registry, rather
// than a concrete struct wired by hand.
package codeblock

import "errors"

// ErrNotFound is returned by a Directory when asked for a codeblock or
// chunk index it has no entry for.
var ErrNotFound = errors.New("codeblock: not found")

// ErrIO marks a Loader failure that occurred doing positional file I/O, so
// callers above (the engine, the public API's error classifier) can tell it
// apart from a decompression failure without string-matching error text
// (spec.md §7's IO vs Decompress taxonomy).
var ErrIO = errors.New("codeblock: io error")

// ErrDecompress marks a Loader failure that occurred inside the external
// Decompressor, for the same reason as ErrIO.
var ErrDecompress = errors.New("codeblock: decompress error")

// Kind distinguishes the two coefficient-plane flavours a codeblock can
// hold (spec.md §3).
type Kind int

const (
	KindLL Kind = iota
	KindH
)

func (k Kind) String() string {
	if k == KindLL {
		return "LL"
	}
	return "H"
}

// Descriptor locates one codeblock's compressed payload in the file.
type Descriptor struct {
	Offset int64
	Size   int64
}

// Chunk describes the data chunk a tile's H codeblock belongs to (spec.md
// §3's "chunking rule"): up to three adjacent scales, topScale down to
// topScale-2, sharing one file locality region.
type Chunk struct {
	TopScale               int
	CodeblockCountPerColor int
}

// Directory is the read-only map from codeblock/chunk indices to file
// locations that the (external) format parser builds at open time. It never
// changes after open (spec.md §5 "Shared resources").
type Directory interface {
	// Chunk returns the data chunk a tile (identified by its
	// DataChunkIndex) was grouped into.
	Chunk(dataChunkIndex uint32) (Chunk, error)
	// Descriptor returns the file location of a single codeblock.
	Descriptor(codeblockIndex uint32) (Descriptor, error)
}

// CodeblockInChunk implements the chunking rule from spec.md §3: given the
// chunk's top scale S and the tile's own scale s, returns the offset of
// that tile's H codeblock within the chunk (0 at S, one of 4 at S-1, one of
// 16 at S-2).
func CodeblockInChunk(topScale, tileScale, tx, ty int) int {
	switch topScale - tileScale {
	case 0:
		return 0
	case 1:
		return 1 + (ty%2)*2 + (tx % 2)
	case 2:
		return 5 + (ty%4)*4 + (tx % 4)
	default:
		// Out of the spec'd range; callers should never reach this for a
		// well-formed chunk, but return a value that can't collide with
		// the valid 0..20 range; Loader.LoadH rejects a negative offset
		// with an error rather than loading the wrong codeblock.
		return -1
	}
}
