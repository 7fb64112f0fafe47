// Package wavelet implements the reversible 5/3 inverse discrete wavelet
// transform used to turn one tile's LL coefficients plus its three
// high-pass subbands into the LL input for its four children (spec.md
// §4.5). The lifting scheme itself is ported from the teacher's
// jpeg2000/wavelet/dwt53.go, in turn a direct translation of OpenJPEG's
// opj_idwt53_h_cas0/cas1 — restructured here for single-level tile
// synthesis instead of a generic multi-level JPEG2000 codestream.
package wavelet

// inverse1D performs the inverse 5/3 lifting transform on one row or column
// of deinterleaved subband samples (low-pass in data[:sn], high-pass in
// data[sn:]), writing the reconstructed signal back into data in place.
// cas0 selects low-pass-starts-at-even-index parity; iSyntax tiles are
// always even-aligned to their parent, so TileSynthesis53 only ever calls
// this with cas0 = true, but both cases are kept since they're two branches
// of the same primitive, not two different algorithms.
func inverse1D(data []int32, cas0 bool) {
	width := len(data)
	if cas0 {
		if width <= 1 {
			return
		}
		sn := int32((width + 1) >> 1)
		tmp := make([]int32, width)

		var d1c, d1n, s1n, s0c, s0n int32
		s1n = data[0]
		d1n = data[sn]
		s0n = s1n - ((d1n + 1) >> 1)

		var i, j int32
		for i, j = 0, 1; i < int32(width)-3; i, j = i+2, j+1 {
			d1c = d1n
			s0c = s0n
			s1n = data[j]
			d1n = data[sn+j]
			s0n = s1n - ((d1c + d1n + 2) >> 2)
			tmp[i] = s0c
			tmp[i+1] = d1c + ((s0c + s0n) >> 1)
		}
		tmp[i] = s0n

		if (width & 1) != 0 {
			tmp[width-1] = data[(width-1)/2] - ((d1n + 1) >> 1)
			tmp[width-2] = d1n + ((s0n + tmp[width-1]) >> 1)
		} else {
			tmp[width-1] = d1n + s0n
		}
		copy(data, tmp)
		return
	}

	if width == 1 {
		data[0] /= 2
		return
	}
	if width == 2 {
		out1 := data[0] - ((data[1] + 1) >> 1)
		out0 := data[1] + out1
		data[0] = out0
		data[1] = out1
		return
	}

	sn := int32(width >> 1)
	tmp := make([]int32, width)

	var s1, s2, dc, dn int32
	s1 = data[sn+1]
	dc = data[0] - ((data[sn] + s1 + 2) >> 2)
	tmp[0] = data[sn] + dc

	notOdd := int32(0)
	if (width & 1) == 0 {
		notOdd = 1
	}
	limit := int32(width) - 2 - notOdd

	var i, j int32
	for i, j = 1, 1; i < limit; i, j = i+2, j+1 {
		s2 = data[sn+j+1]
		dn = data[j] - ((s1 + s2 + 2) >> 2)
		tmp[i] = dc
		tmp[i+1] = s1 + ((dn + dc) >> 1)
		dc = dn
		s1 = s2
	}
	tmp[i] = dc

	if (width & 1) == 0 {
		dn = data[width/2-1] - ((s1 + 1) >> 1)
		tmp[width-2] = s1 + ((dn + dc) >> 1)
		tmp[width-1] = dn
	} else {
		tmp[width-1] = s1 + dc
	}
	copy(data, tmp)
}

// inverse2D runs the inverse transform over rows then columns of a
// width*height subband-domain image stored row-major with the given
// stride, in place. This ordering (rows before columns) matches OpenJPEG's
// inverse pass order, the mirror image of the forward transform's
// columns-then-rows order.
func inverse2D(data []int32, width, height, stride int) {
	if width <= 1 && height <= 1 {
		return
	}
	if width > 1 {
		row := make([]int32, width)
		for y := 0; y < height; y++ {
			copy(row, data[y*stride:y*stride+width])
			inverse1D(row, true)
			copy(data[y*stride:y*stride+width], row)
		}
	}
	if height > 1 {
		col := make([]int32, height)
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				col[y] = data[y*stride+x]
			}
			inverse1D(col, true)
			for y := 0; y < height; y++ {
				data[y*stride+x] = col[y]
			}
		}
	}
}
