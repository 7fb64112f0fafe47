package wavelet

// TileWidth/TileHeight are not fixed package constants: every Pyramid can
// choose its own, so TileSynthesis53 takes them as parameters.

// PadL/PadR are the number of same-scale-neighbour subband samples borrowed
// onto each side of a tile's own LL/H before running the inverse transform,
// so the 5/3 lifting recurrence sees real cross-tile high-pass energy at a
// tile's border instead of mirroring its own edge (spec.md §4.4, "the
// conceptual centre"): ISYNTAX_IDWT_PAD_L == ISYNTAX_IDWT_PAD_R == 4.
const (
	PadL = 4
	PadR = 4

	// FirstValidPixel is the first column/row, in a padded and
	// reconstructed 2*(tileWidth+PadL+PadR) buffer, whose pixel no longer
	// carries boundary-extension error: by the time the lifting recurrence
	// has consumed a full PadL-deep run of real neighbour samples on its
	// low side the following sample is exact, which lands at 2*PadL-1
	// (spec.md §4.4's named constant, 7 for PadL=4). TileSynthesis53
	// recomputes this per call from whatever border width it actually used,
	// since a tile smaller than PadL/PadR (never true in a real file) clamps
	// its border to its own extent.
	FirstValidPixel = 2*PadL - 1
)

// DummyH returns a newly allocated all-zero H plane of the given tile
// dimensions, for the edge policy in spec.md §4.5. Each call allocates a
// fresh plane; no plane is shared between calls. The engine substitutes it
// for a tile's own missing H; TileSynthesis53 itself treats a nil neighbour
// H as zero high-pass energy.
func DummyH(tileWidth, tileHeight int) []int16 {
	return make([]int16, 3*tileWidth*tileHeight)
}

// neutralLL is the coefficient value DummyLL fills a missing LL plane with.
// The same value is used for every channel; colorspace.InverseYCoCg maps a
// zero Y/Co/Cg sample to black, not to mid-grey.
const neutralLL = 0

// DummyLL returns a newly allocated LL plane of the given tile dimensions
// filled with neutralLL (zero), used for the same edge policy as DummyH
// (spec.md §4.5). Each call allocates a fresh plane; no plane is shared
// between calls, and the plane does not decode to grey.
func DummyLL(tileWidth, tileHeight int) []int16 {
	plane := make([]int16, tileWidth*tileHeight)
	for i := range plane {
		plane[i] = neutralLL
	}
	return plane
}

// TileSynthesis53 runs one level of the inverse 5/3 transform over a tile's
// LL plane and its own plus its 8 same-scale neighbours' H coefficient
// triplets, producing the LL input for each of the tile's four children.
//
// ll must be tileWidth*tileHeight samples. ownH must be
// 3*tileWidth*tileHeight samples (LH, HL, HH consecutive, matching
// TileChannel.CoeffH's layout). neighborH is in
// pyramid.(*Pyramid).Neighbors8 order (top-left, top-center, top-right,
// centre-left, centre-right, bottom-left, bottom-center, bottom-right);
// each entry is either ownH-shaped or nil, nil meaning the edge policy
// (spec.md §4.5: neighbour does not exist, or the synthesizing tile's
// ll_invalid_edges bit for that direction is set) substitutes zero
// high-pass energy for that border.
//
// The returned [4][]int16 is ordered top-left, top-right, bottom-left,
// bottom-right, matching pyramid.(*Pyramid).Children.
func TileSynthesis53(ll, ownH []int16, neighborH [8][]int16, tileWidth, tileHeight int) [4][]int16 {
	// Real iSyntax tiles are always far larger than PadL/PadR (128/256px
	// vs. a 4-sample border); clamp the border width to the tile's own
	// extent so degenerate tiny tiles (tests) never index outside their
	// neighbours' planes instead of silently producing a wrong PadL.
	padX, padY := PadL, PadL
	if tileWidth < padX {
		padX = tileWidth
	}
	if tileHeight < padY {
		padY = tileHeight
	}

	llPlane := padLLPlane(ll, tileWidth, tileHeight, padX, padY)
	lh := padHBand(ownH[0:tileWidth*tileHeight], neighborH, 0, tileWidth, tileHeight, padX, padY)
	hl := padHBand(ownH[tileWidth*tileHeight:2*tileWidth*tileHeight], neighborH, 1, tileWidth, tileHeight, padX, padY)
	hh := padHBand(ownH[2*tileWidth*tileHeight:3*tileWidth*tileHeight], neighborH, 2, tileWidth, tileHeight, padX, padY)

	pw, ph := tileWidth+2*padX, tileHeight+2*padY
	width, height := 2*pw, 2*ph
	combined := make([]int32, width*height)
	placeQuadrant(combined, width, llPlane, pw, ph, 0, 0)
	placeQuadrant(combined, width, hl, pw, ph, pw, 0)
	placeQuadrant(combined, width, lh, pw, ph, 0, ph)
	placeQuadrant(combined, width, hh, pw, ph, pw, ph)

	inverse2D(combined, width, height, width)

	offX, offY := 2*padX-1, 2*padY-1
	var children [4][]int16
	children[0] = extractQuadrant(combined, width, offX, offY, tileWidth, tileHeight)
	children[1] = extractQuadrant(combined, width, offX+tileWidth, offY, tileWidth, tileHeight)
	children[2] = extractQuadrant(combined, width, offX, offY+tileHeight, tileWidth, tileHeight)
	children[3] = extractQuadrant(combined, width, offX+tileWidth, offY+tileHeight, tileWidth, tileHeight)
	return children
}

func placeQuadrant(combined []int32, stride int, plane []int16, w, h, x0, y0 int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			combined[(y0+y)*stride+x0+x] = int32(plane[y*w+x])
		}
	}
}

// padLLPlane borders own (a tileWidth*tileHeight LL plane) with pad extra
// samples on every side, clamped to the tile's own edge. No same-scale
// neighbour ever contributes to LL padding (spec.md §4.4's dependency
// closure only ever loads H, never LL, for a neighbour tile), so the only
// available border data is the tile's own edge repeated outward — the
// standard replicate/clamp boundary extension.
func padLLPlane(own []int16, tileWidth, tileHeight, padX, padY int) []int16 {
	width, height := tileWidth+2*padX, tileHeight+2*padY
	out := make([]int16, width*height)
	for py := 0; py < height; py++ {
		sy := clamp(py-padY, 0, tileHeight-1)
		for px := 0; px < width; px++ {
			sx := clamp(px-padX, 0, tileWidth-1)
			out[py*width+px] = own[sy*tileWidth+sx]
		}
	}
	return out
}

// padHBand borders one of own's three H subbands (selected by bandOffset:
// 0 = LH, 1 = HL, 2 = HH) with pad extra samples on every side, drawn from
// the corresponding subband of whichever same-scale neighbour sits in that
// direction (neighborH, in pyramid.Neighbors8 order), or zero when that
// neighbour is nil.
func padHBand(ownBand []int16, neighborH [8][]int16, bandOffset, tileWidth, tileHeight, padX, padY int) []int16 {
	width, height := tileWidth+2*padX, tileHeight+2*padY
	out := make([]int16, width*height)
	for py := 0; py < height; py++ {
		ry, ly := padRegion(py, padY, tileHeight)
		for px := 0; px < width; px++ {
			rx, lx := padRegion(px, padX, tileWidth)
			if rx == 1 && ry == 1 {
				out[py*width+px] = ownBand[ly*tileWidth+lx]
				continue
			}
			dir := neighborDirection[[2]int{rx, ry}]
			h := neighborH[dir]
			if h == nil {
				continue // dummy: zero high-pass energy
			}
			out[py*width+px] = h[bandOffset*tileWidth*tileHeight+ly*tileWidth+lx]
		}
	}
	return out
}

// padRegion maps a padded coordinate p in [0, size+2*pad) to which of the
// three bands along that axis it falls in (0 = borrowed from the low-side
// neighbour, 1 = the tile's own data, 2 = borrowed from the high-side
// neighbour) and the corresponding local coordinate within that band's own
// tileWidth/tileHeight-sized plane.
func padRegion(p, pad, size int) (band, local int) {
	switch {
	case p < pad:
		return 0, size - pad + p
	case p < pad+size:
		return 1, p - pad
	default:
		return 2, p - pad - size
	}
}

// neighborDirection maps a (bandX, bandY) pair, each in {0, 1, 2} with (1,1)
// excluded (that's the tile's own data, handled before this lookup), onto
// the matching index into pyramid.(*Pyramid).Neighbors8's row-major
// ordering.
var neighborDirection = map[[2]int]int{
	{0, 0}: 0, {1, 0}: 1, {2, 0}: 2,
	{0, 1}: 3, {2, 1}: 4,
	{0, 2}: 5, {1, 2}: 6, {2, 2}: 7,
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func extractQuadrant(combined []int32, stride, x0, y0, w, h int) []int16 {
	out := make([]int16, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = int16(combined[(y0+y)*stride+x0+x])
		}
	}
	return out
}
