// Package colorspace implements the reversible colour transform that turns
// a tile's decoded Y/Co/Cg coefficient planes into RGB pixels (spec.md
// §4.5 "YCoCg→RGB conversion"). The integer lifting formulas are those of
// the lossless YCoCg-R transform.
package colorspace

// Format selects the output pixel byte order.
type Format int

const (
	RGBA Format = iota
	BGRA
)

func clip8(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// InverseYCoCg converts one reversible YCoCg-transformed sample back to RGB,
// clipped to [0, 255], using the lossless YCoCg-R inverse lifting steps:
// tmp = y - cg>>1, g = cg + tmp, b = tmp - co>>1, r = b + co.
func InverseYCoCg(y, co, cg int32) (r, g, b uint8) {
	tmp := y - (cg >> 1)
	gFull := cg + tmp
	bFull := tmp - (co >> 1)
	rFull := bFull + co
	return clip8(rFull), clip8(gFull), clip8(bFull)
}

// TileToPixels converts one tile's three TW*TH channel planes (Y, Co, Cg,
// matching pyramid.ChannelY/ChannelCo/ChannelCg order) into a width*4
// stride-packed pixel buffer in the requested format, alpha fixed at 255.
// out must be at least width*height*4 bytes.
func TileToPixels(y, co, cg []int16, width, height int, format Format, out []byte) {
	for i := 0; i < width*height; i++ {
		r, g, b := InverseYCoCg(int32(y[i]), int32(co[i]), int32(cg[i]))
		o := i * 4
		switch format {
		case BGRA:
			out[o+0] = b
			out[o+1] = g
			out[o+2] = r
			out[o+3] = 255
		default: // RGBA
			out[o+0] = r
			out[o+1] = g
			out[o+2] = b
			out[o+3] = 255
		}
	}
}
