package isyntax

import (
	"io"
	"sync"

	"github.com/cocosip/go-isyntax/codeblock"
	"github.com/cocosip/go-isyntax/pyramid"
)

// OpenFlags selects how much of a file Open must parse (spec.md §6).
type OpenFlags int

const (
	// FlagFull parses the complete header, seek table and codeblock
	// directory.
	FlagFull OpenFlags = iota
	// FlagReadBarcodeOnly aborts parsing as soon as the barcode attribute is
	// seen, for bulk directory walks that only need Barcode().
	FlagReadBarcodeOnly
)

// Metadata is everything the (external, spec.md §1(i)) file-format parser
// must hand back from Parse: the populated pyramid and codeblock directory
// the reconstruction engine consumes, plus the pass-through accessors
// spec.md §6 exposes on a file handle. This module ships no iSyntax
// bitstream parser of its own (see DESIGN.md); Parser is the seam a caller
// plugs a real one into, the same way codeblock.Decompressor is the seam for
// the entropy decoder.
type Metadata struct {
	Pyramid   *pyramid.Pyramid
	Directory codeblock.Directory

	// Decompressors resolves the per-codeblock entropy decoder by
	// compressor version; the parser that produces Metadata is also
	// responsible for registering whichever Decompressor implementation
	// matches the file's data_model_major_version (spec.md §6).
	Decompressors     *codeblock.Registry
	CompressorVersion int

	// WidthsByLevel/HeightsByLevel are the real (unpadded) pixel dimensions
	// per level, each <= WidthInTiles*TileWidth / HeightInTiles*TileHeight.
	WidthsByLevel  []int
	HeightsByLevel []int

	MicronsPerPixelX float64
	MicronsPerPixelY float64
	Barcode          string

	// LabelJPEG/MacroJPEG are pass-through label/macro image bytes
	// (spec.md §6 read_label_image_jpeg/read_macro_image_jpeg); this module
	// performs no JPEG decoding of its own (spec.md §1(iii) out of scope).
	LabelJPEG []byte
	MacroJPEG []byte
}

// Parser is the external file-format parser collaborator named in spec.md
// §1(i): given a path and open flags, it reads the embedded metadata tree
// and seek-table and returns the populated Metadata plus a positional
// reader over the codeblock payloads (and an optional Closer, for parsers
// that hold the underlying os.File open themselves).
type Parser interface {
	Parse(path string, flags OpenFlags) (*Metadata, io.ReaderAt, io.Closer, error)
}

// File is the opaque handle spec.md §6's open() returns: the pyramid's tile
// arrays, the codeblock directory, and whatever Engine instances have been
// built for Caches injected against this file so far.
type File struct {
	meta   *Metadata
	reader io.ReaderAt
	closer io.Closer

	cachesMu sync.Mutex
	engines  map[*Cache]*engineHandle
}

// Open parses path with parser under flags and returns an opaque file
// handle. Init is called implicitly, matching isyntax_open's behaviour of
// never requiring a caller to remember the separate init() step before the
// first real operation.
func Open(path string, flags OpenFlags, parser Parser) (*File, error) {
	Init()

	meta, reader, closer, err := parser.Parse(path, flags)
	if err != nil {
		return nil, wrapErr("open", IO, err)
	}
	if meta == nil || meta.Pyramid == nil || meta.Directory == nil {
		return nil, wrapErr("open", InvalidArgument, errMissingMetadata)
	}
	return &File{
		meta:    meta,
		reader:  reader,
		closer:  closer,
		engines: make(map[*Cache]*engineHandle),
	}, nil
}

// Close releases the file's underlying reader, if any. Per spec.md §6 this
// also conceptually releases the tile arrays and parser state; in Go those
// are ordinary heap objects reclaimed by the garbage collector once File
// itself becomes unreachable, so Close's only observable side effect is
// closing the reader.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	if err := f.closer.Close(); err != nil {
		return wrapErr("close", IO, err)
	}
	return nil
}

// LevelCount returns the number of pyramid levels (spec.md §6 metadata
// getters).
func (f *File) LevelCount() int { return len(f.meta.Pyramid.Levels) }

// TileDimensions returns the fixed tile/codeblock pixel dimensions.
func (f *File) TileDimensions() (width, height int) {
	return f.meta.Pyramid.TileWidth, f.meta.Pyramid.TileHeight
}

// LevelDownsample returns 2^level, the pyramid's downsample factor for that
// scale.
func (f *File) LevelDownsample(level int) float64 {
	if level < 0 || level >= len(f.meta.Pyramid.Levels) {
		return 0
	}
	return f.meta.Pyramid.Levels[level].DownsampleFactor
}

// LevelDimensions returns the real (unpadded) pixel width/height of level,
// or (0, 0) if the parser did not report dimensions for it.
func (f *File) LevelDimensions(level int) (width, height int) {
	if level < 0 || level >= len(f.meta.WidthsByLevel) || level >= len(f.meta.HeightsByLevel) {
		return 0, 0
	}
	return f.meta.WidthsByLevel[level], f.meta.HeightsByLevel[level]
}

// MicronsPerPixel returns the level-0 micron-per-pixel calibration.
func (f *File) MicronsPerPixel() (x, y float64) {
	return f.meta.MicronsPerPixelX, f.meta.MicronsPerPixelY
}

// Barcode returns the slide barcode string, populated even when the file was
// opened with FlagReadBarcodeOnly.
func (f *File) Barcode() string { return f.meta.Barcode }

// ReadLabelImageJPEG returns the label image's JPEG bytes, unmodified
// (spec.md §6 read_label_image_jpeg). Returns nil if the file carries none.
func (f *File) ReadLabelImageJPEG() ([]byte, error) {
	return f.meta.LabelJPEG, nil
}

// ReadMacroImageJPEG returns the macro image's JPEG bytes, unmodified
// (spec.md §6 read_macro_image_jpeg). Returns nil if the file carries none.
func (f *File) ReadMacroImageJPEG() ([]byte, error) {
	return f.meta.MacroJPEG, nil
}
