// Package region implements the region planner (spec.md §4.6): it
// decomposes a pixel rectangle into whole tiles, fans out one read_tile per
// tile with golang.org/x/sync/errgroup, composites the results, and for
// non-tile-aligned origins resamples with golang.org/x/image/draw's
// bilinear scaler over a one-pixel oversize margin.
package region

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/cocosip/go-isyntax/colorspace"
	"github.com/cocosip/go-isyntax/engine"
	"github.com/cocosip/go-isyntax/pyramid"
)

// paddingCalibration is the unexplained "-1.5" the per-level coordinate
// offset carries (spec.md §4.6 and §9 Open Questions: annotated "why??" in
// the source the spec was distilled from). Kept as a named, documented
// constant rather than inlined, precisely because it has never been
// explained and any future recalibration should only need to touch this
// one line.
const paddingCalibration = -1.5

// Planner composes read_tile calls against one engine into read_region
// results.
type Planner struct {
	Pyramid *pyramid.Pyramid
	Engine  *engine.Engine
}

// New creates a region planner over an already-constructed engine.
func New(pyr *pyramid.Pyramid, e *engine.Engine) *Planner {
	return &Planner{Pyramid: pyr, Engine: e}
}

// ReadRegion reconstructs the w x h pixel rectangle at (x, y) of the given
// scale, in the requested colour format. Pixels outside both the pyramid's
// tile grid and any existing tile are opaque white, matching read_tile's own
// edge policy.
func (p *Planner) ReadRegion(scale, x, y, w, h int, format colorspace.Format) ([]byte, error) {
	if scale < 0 || scale >= len(p.Pyramid.Levels) {
		return nil, fmt.Errorf("region: scale %d out of bounds", scale)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("region: invalid size %dx%d", w, h)
	}

	level := &p.Pyramid.Levels[scale]
	offset := p.levelOffset(level)
	originX := float64(x) + offset
	originY := float64(y) + offset

	fracX := originX - math.Floor(originX)
	fracY := originY - math.Floor(originY)

	if fracX == 0 && fracY == 0 {
		out, err := p.compositeTiles(scale, int(originX), int(originY), w, h)
		if err != nil {
			return nil, err
		}
		return applyFormat(out, format), nil
	}

	floorX, floorY := int(math.Floor(originX)), int(math.Floor(originY))
	padded, err := p.compositeTiles(scale, floorX, floorY, w+1, h+1)
	if err != nil {
		return nil, err
	}
	out := bilinearResample(padded, w+1, h+1, w, h)
	return applyFormat(out, format), nil
}

// levelOffset computes "(per-level padding * (1 << L_total) - per-level
// padding) / downsample_factor - 1.5" (spec.md §4.6).
func (p *Planner) levelOffset(level *pyramid.Level) float64 {
	totalLevels := p.Pyramid.MaxScale + 1
	padding := float64(p.Pyramid.PaddingPerLevel)
	numerator := padding*float64(uint64(1)<<uint(totalLevels)) - padding
	return numerator/level.DownsampleFactor + paddingCalibration
}

type tileJob struct {
	tx, ty int
}

// compositeTiles decomposes [originX, originX+w) x [originY, originY+h) at
// the given scale into whole tiles, reads them concurrently, and copies
// each tile's clipped sub-rectangle into an RGBA output buffer. Tiles
// outside the pyramid's grid are left opaque white; tiles inside the grid
// but with exists=false are filled opaque white by read_tile itself.
func (p *Planner) compositeTiles(scale, originX, originY, w, h int) ([]byte, error) {
	tw, th := p.Pyramid.TileWidth, p.Pyramid.TileHeight

	txStart := floorDiv(originX, tw)
	txEnd := floorDiv(originX+w-1, tw)
	tyStart := floorDiv(originY, th)
	tyEnd := floorDiv(originY+h-1, th)

	var jobs []tileJob
	for ty := tyStart; ty <= tyEnd; ty++ {
		for tx := txStart; tx <= txEnd; tx++ {
			jobs = append(jobs, tileJob{tx, ty})
		}
	}

	bufs := make([][]byte, len(jobs))
	rgba := colorspace.RGBA
	var g errgroup.Group
	for i, job := range jobs {
		if p.Pyramid.Tile(scale, job.tx, job.ty) == nil {
			continue // geometrically out of bounds: leave opaque white
		}
		i, job := i, job
		g.Go(func() error {
			buf, err := p.Engine.ReadTile(scale, job.tx, job.ty, &rgba)
			if err != nil {
				return fmt.Errorf("region: reading tile scale=%d x=%d y=%d: %w", scale, job.tx, job.ty, err)
			}
			bufs[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]byte, w*h*4)
	for i := range out {
		out[i] = 0xFF
	}
	for i, job := range jobs {
		if bufs[i] == nil {
			continue
		}
		copyTileInto(out, w, h, originX, originY, bufs[i], tw, th, job.tx*tw, job.ty*th)
	}
	return out, nil
}

// copyTileInto copies the overlap between a tile's pixel rectangle and the
// destination rectangle, both expressed in the same absolute pixel space.
func copyTileInto(dst []byte, dstW, dstH, dstOriginX, dstOriginY int, tileBuf []byte, tw, th, tileOriginX, tileOriginY int) {
	x0 := max(dstOriginX, tileOriginX)
	y0 := max(dstOriginY, tileOriginY)
	x1 := min(dstOriginX+dstW, tileOriginX+tw)
	y1 := min(dstOriginY+dstH, tileOriginY+th)
	if x0 >= x1 || y0 >= y1 {
		return
	}
	rowBytes := (x1 - x0) * 4
	for y := y0; y < y1; y++ {
		srcOff := (y-tileOriginY)*tw*4 + (x0-tileOriginX)*4
		dstOff := (y-dstOriginY)*dstW*4 + (x0-dstOriginX)*4
		copy(dst[dstOff:dstOff+rowBytes], tileBuf[srcOff:srcOff+rowBytes])
	}
}

// bilinearResample scales an RGBA buffer from srcW x srcH down (or up) to
// dstW x dstH using golang.org/x/image/draw's bilinear sampler.
func bilinearResample(src []byte, srcW, srcH, dstW, dstH int) []byte {
	srcImg := &image.NRGBA{Pix: src, Stride: srcW * 4, Rect: image.Rect(0, 0, srcW, srcH)}
	dstImg := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	draw.BiLinear.Scale(dstImg, dstImg.Bounds(), srcImg, srcImg.Bounds(), draw.Src, nil)
	return dstImg.Pix
}

// applyFormat converts an RGBA-ordered buffer to BGRA in place when
// requested; RGBA is returned unchanged.
func applyFormat(buf []byte, format colorspace.Format) []byte {
	if format == colorspace.BGRA {
		for i := 0; i+2 < len(buf); i += 4 {
			buf[i], buf[i+2] = buf[i+2], buf[i]
		}
	}
	return buf
}

// floorDiv is integer division rounding toward negative infinity, needed
// because tile decomposition must handle negative pixel origins (the
// padding offset can push the floored origin below zero).
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
