package isyntax

import (
	"errors"
	"io"
	"testing"

	"github.com/cocosip/go-isyntax/codeblock"
	"github.com/cocosip/go-isyntax/pyramid"
)

// fakeDirectory/fakeDecompressor mirror the lower packages' own test
// doubles (engine_test.go, region_test.go): this module ships no production
// iSyntax parser, so exercising the public API end to end means standing up
// the same kind of fake collaborators a real Parser would otherwise supply.
type fakeDirectory struct {
	chunks      map[uint32]codeblock.Chunk
	descriptors map[uint32]codeblock.Descriptor
}

func (d *fakeDirectory) Chunk(dataChunkIndex uint32) (codeblock.Chunk, error) {
	c, ok := d.chunks[dataChunkIndex]
	if !ok {
		return codeblock.Chunk{}, codeblock.ErrNotFound
	}
	return c, nil
}

func (d *fakeDirectory) Descriptor(codeblockIndex uint32) (codeblock.Descriptor, error) {
	desc, ok := d.descriptors[codeblockIndex]
	if !ok {
		return codeblock.Descriptor{}, codeblock.ErrNotFound
	}
	return desc, nil
}

type fakeReaderAt struct{ data []byte }

func (f *fakeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, f.data[off:])
	return n, nil
}

type fakeDecompressor struct{ marker int16 }

func (d fakeDecompressor) Decompress(raw []byte, blockWidth, blockHeight int, kind codeblock.Kind, compressorVersion int, out []int16) error {
	for i := range out {
		out[i] = d.marker
	}
	return nil
}

type closeTracker struct{ closed bool }

func (c *closeTracker) Close() error { c.closed = true; return nil }

// fakeParser is the Parser a caller would supply in production, reimagined
// as an in-memory stand-in: it builds a 2-level pyramid (scale 0: 2x2
// tiles, scale 1: 1x1 top tile), TW=TH=2, one data chunk per tile, wired
// through a constant-marker decompressor.
type fakeParser struct {
	closer *closeTracker
}

func (fp *fakeParser) Parse(path string, flags OpenFlags) (*Metadata, io.ReaderAt, io.Closer, error) {
	pyr := pyramid.New(2, 2, [][2]int{
		{2, 2}, // scale 0
		{1, 1}, // scale 1 (top)
	})
	dir := &fakeDirectory{
		chunks:      map[uint32]codeblock.Chunk{},
		descriptors: map[uint32]codeblock.Descriptor{},
	}
	for i := range pyr.Levels {
		for j := range pyr.Levels[i].Tiles {
			tile := &pyr.Levels[i].Tiles[j]
			tile.Exists = true
			tile.DataChunkIndex = uint32(i*10 + j)
			tile.CodeblockIndex = uint32(i*100 + j*10)
			tile.CodeblockChunkIndex = tile.CodeblockIndex
			dir.chunks[tile.DataChunkIndex] = codeblock.Chunk{TopScale: tile.Scale, CodeblockCountPerColor: 1}
			for c := 0; c < pyramid.NumChannels; c++ {
				dir.descriptors[tile.CodeblockIndex+uint32(c)] = codeblock.Descriptor{Offset: 0, Size: 4}
			}
		}
	}
	registry := codeblock.NewRegistry()
	registry.Register(1, fakeDecompressor{marker: 0})

	meta := &Metadata{
		Pyramid:           pyr,
		Directory:         dir,
		Decompressors:     registry,
		CompressorVersion: 1,
		WidthsByLevel:     []int{4, 2},
		HeightsByLevel:    []int{4, 2},
		MicronsPerPixelX:  0.25,
		MicronsPerPixelY:  0.25,
		Barcode:           "TESTBARCODE",
		LabelJPEG:         []byte{0xFF, 0xD8, 'l', 'b', 'l'},
		MacroJPEG:         []byte{0xFF, 0xD8, 'm', 'a', 'c'},
	}
	var closer io.Closer
	if fp.closer != nil {
		closer = fp.closer
	}
	return meta, &fakeReaderAt{data: make([]byte, 64)}, closer, nil
}

func openFixture(t *testing.T) (*File, *Cache) {
	t.Helper()
	f, err := Open("fixture.isyntax", FlagFull, &fakeParser{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := CacheCreate("", 10)
	if err := CacheInject(c, f); err != nil {
		t.Fatalf("CacheInject: %v", err)
	}
	return f, c
}

func TestOpenCloseLifecycle(t *testing.T) {
	closer := &closeTracker{}
	f, err := Open("fixture.isyntax", FlagFull, &fakeParser{closer: closer})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.Barcode() != "TESTBARCODE" {
		t.Fatalf("Barcode() = %q, want TESTBARCODE", f.Barcode())
	}
	if w, h := f.TileDimensions(); w != 2 || h != 2 {
		t.Fatalf("TileDimensions() = %d,%d, want 2,2", w, h)
	}
	if f.LevelCount() != 2 {
		t.Fatalf("LevelCount() = %d, want 2", f.LevelCount())
	}
	if w, h := f.LevelDimensions(0); w != 4 || h != 4 {
		t.Fatalf("LevelDimensions(0) = %d,%d, want 4,4", w, h)
	}
	x, y := f.MicronsPerPixel()
	if x != 0.25 || y != 0.25 {
		t.Fatalf("MicronsPerPixel() = %v,%v, want 0.25,0.25", x, y)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closer.closed {
		t.Fatal("Close did not close the parser-supplied Closer")
	}
}

func TestReadLabelAndMacroPassThrough(t *testing.T) {
	f, _ := openFixture(t)
	label, err := f.ReadLabelImageJPEG()
	if err != nil || string(label) != string([]byte{0xFF, 0xD8, 'l', 'b', 'l'}) {
		t.Fatalf("ReadLabelImageJPEG() = %v, %v", label, err)
	}
	macro, err := f.ReadMacroImageJPEG()
	if err != nil || string(macro) != string([]byte{0xFF, 0xD8, 'm', 'a', 'c'}) {
		t.Fatalf("ReadMacroImageJPEG() = %v, %v", macro, err)
	}
}

func TestReadTileTopLevel(t *testing.T) {
	f, c := openFixture(t)
	buf, err := ReadTile(f, c, 1, 0, 0, RGBA)
	if err != nil {
		t.Fatalf("ReadTile: %v", err)
	}
	if len(buf) != 2*2*4 {
		t.Fatalf("len(buf) = %d, want %d", len(buf), 2*2*4)
	}
	for i := 0; i < len(buf); i += 4 {
		if buf[i] != 0 || buf[i+1] != 0 || buf[i+2] != 0 || buf[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want opaque black (flat zero coefficients)", i/4, buf[i:i+4])
		}
	}
}

func TestReadTileRGBABGRAByteSwap(t *testing.T) {
	f, c := openFixture(t)
	rgba, err := ReadTile(f, c, 1, 0, 0, RGBA)
	if err != nil {
		t.Fatalf("ReadTile RGBA: %v", err)
	}
	bgra, err := ReadTile(f, c, 1, 0, 0, BGRA)
	if err != nil {
		t.Fatalf("ReadTile BGRA: %v", err)
	}
	for i := 0; i < len(rgba); i += 4 {
		if rgba[i] != bgra[i+2] || rgba[i+2] != bgra[i] || rgba[i+1] != bgra[i+1] || rgba[i+3] != bgra[i+3] {
			t.Fatalf("pixel %d: RGBA %v vs BGRA %v not a 0/2 byte-swap", i/4, rgba[i:i+4], bgra[i:i+4])
		}
	}
}

func TestReadTileIdempotent(t *testing.T) {
	f, c := openFixture(t)
	a, err := ReadTile(f, c, 0, 0, 0, RGBA)
	if err != nil {
		t.Fatalf("ReadTile 1: %v", err)
	}
	b, err := ReadTile(f, c, 0, 0, 0, RGBA)
	if err != nil {
		t.Fatalf("ReadTile 2: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("two ReadTile calls for the same tile produced different pixels")
	}
}

func TestReadTileWithoutInjectIsInvalidArgument(t *testing.T) {
	f, err := Open("fixture.isyntax", FlagFull, &fakeParser{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := CacheCreate("", 10)
	_, err = ReadTile(f, c, 0, 0, 0, RGBA)
	if err == nil {
		t.Fatal("expected an error reading a tile through a cache never injected against this file")
	}
	var ierr *Error
	if !errors.As(err, &ierr) || ierr.Code != InvalidArgument {
		t.Fatalf("err = %v, want *Error{Code: InvalidArgument}", err)
	}
}

func TestReadRegionCoversRequestedTiles(t *testing.T) {
	f, c := openFixture(t)
	buf, err := ReadRegion(f, c, 0, 0, 0, 4, 4, RGBA)
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	if len(buf) != 4*4*4 {
		t.Fatalf("len(buf) = %d, want %d", len(buf), 4*4*4)
	}
}

func TestCacheDestroy(t *testing.T) {
	f, c := openFixture(t)
	if _, err := ReadTile(f, c, 0, 0, 0, RGBA); err != nil {
		t.Fatalf("ReadTile: %v", err)
	}
	if err := CacheDestroy(c); err != nil {
		t.Fatalf("CacheDestroy: %v", err)
	}
}
