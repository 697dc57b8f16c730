package svg

import (
	"github.com/gogpu/svgrender"
	"github.com/gogpu/svgrender/internal/blend"
)

// BlendMode is the small set of Porter-Duff operators the compositor
// pipeline needs (group.go and clip.go), mapped onto the host library's
// fuller internal/blend.BlendMode so every composite in the core goes
// through the same premultiplied-alpha math rather than a hand-rolled one.
type BlendMode int

const (
	SourceOver BlendMode = iota
	Clear
	DestOut
	Xor
)

func (m BlendMode) toBlend() blend.BlendMode {
	switch m {
	case Clear:
		return blend.BlendClear
	case DestOut:
		return blend.BlendDestinationOut
	case Xor:
		return blend.BlendXor
	default:
		return blend.BlendSourceOver
	}
}

// FilterQuality selects the resampling policy DrawSurface uses when its
// source and destination scales differ (§4.A). The core never needs more
// than a binary choice between "fast" and "accurate".
type FilterQuality int

const (
	FilterQualityLow FilterQuality = iota
	FilterQualityHigh
)

// Canvas is the uniform façade the compositor pipeline renders through,
// realized here over gg.Pixmap/gg.Context. A production backend swaps
// this implementation for one backed by a different host 2D library
// without touching walker.go, group.go or clip.go.
type Canvas interface {
	// CurrentTransform returns the canvas's active transform.
	CurrentTransform() Transform
	// SetTransform replaces the active transform outright.
	SetTransform(t Transform)
	// Concat composes t onto the active transform (t applied first).
	Concat(t Transform)
	// ResetTransform restores the identity transform.
	ResetTransform()

	// PaintRect fills rect (in the canvas's current transform space) with
	// a solid premultiplied color using mode.
	PaintRect(rect Rect, color [4]float64, mode BlendMode)

	// DrawSurface composites src onto the canvas at its own transform,
	// through mode at the given opacity.
	DrawSurface(src *PixmapCanvas, mode BlendMode, opacity float64)

	// ClearWith clears the entire canvas to a solid premultiplied color.
	ClearWith(color [4]float64)

	// Size returns the canvas's pixel dimensions.
	Size() ScreenSize
}

// PixmapCanvas is the production Canvas implementation, backed by a
// gg.Pixmap for storage and a lazily-built gg.Context for path/text
// rasterization.
//
// gg.Pixmap.SetPixel/GetPixel store straight (non-premultiplied) alpha,
// but FillSpanBlend already treats the same backing buffer as
// premultiplied when blending (see pixmap.go), so premultiplied storage
// is not foreign to gg — PixmapCanvas standardizes on it for every
// compositing entry point required by this package (PaintRect,
// DrawSurface, ClearWith) and only converts to straight alpha at the
// narrow boundary where gg.Context's path rasterizer needs a gg.RGBA
// brush color.
type PixmapCanvas struct {
	pixmap    *gg.Pixmap
	transform Transform
	ctx       *gg.Context // built lazily, only when a path actually needs filling
}

// NewPixmapCanvas allocates a transparent canvas of the given size.
func NewPixmapCanvas(size ScreenSize) *PixmapCanvas {
	return &PixmapCanvas{
		pixmap:    gg.NewPixmap(size.Width, size.Height),
		transform: Identity(),
	}
}

// WrapPixmap adapts an existing gg.Pixmap (e.g. one just checked out of
// a LayerPool) as a Canvas.
func WrapPixmap(pm *gg.Pixmap) *PixmapCanvas {
	return &PixmapCanvas{pixmap: pm, transform: Identity()}
}

// Pixmap exposes the backing pixmap for collaborators (filter.go, mask.go)
// that need direct pixel access.
func (c *PixmapCanvas) Pixmap() *gg.Pixmap { return c.pixmap }

// Context lazily constructs (and caches) a gg.Context over this canvas's
// pixmap, used by path.go to rasterize fills and strokes.
func (c *PixmapCanvas) Context() *gg.Context {
	if c.ctx == nil {
		c.ctx = gg.NewContext(c.pixmap.Width(), c.pixmap.Height(), gg.WithPixmap(c.pixmap))
	}
	c.ctx.SetTransform(c.transform.ToMatrix())
	return c.ctx
}

func (c *PixmapCanvas) CurrentTransform() Transform { return c.transform }

func (c *PixmapCanvas) SetTransform(t Transform) {
	c.transform = t
	if c.ctx != nil {
		c.ctx.SetTransform(t.ToMatrix())
	}
}

func (c *PixmapCanvas) Concat(t Transform) {
	c.SetTransform(c.transform.Append(t))
}

func (c *PixmapCanvas) ResetTransform() {
	c.SetTransform(Identity())
}

func (c *PixmapCanvas) Size() ScreenSize {
	return ScreenSize{Width: c.pixmap.Width(), Height: c.pixmap.Height()}
}

// premultiply converts straight RGBA in [0,1] to premultiplied bytes.
func premultiply(col [4]float64) (r, g, b, a byte) {
	cl := func(v float64) byte {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 255
		}
		return byte(v*255 + 0.5)
	}
	a = cl(col[3])
	r = cl(col[0] * col[3])
	g = cl(col[1] * col[3])
	b = cl(col[2] * col[3])
	return
}

func (c *PixmapCanvas) pixelIndex(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= c.pixmap.Width() || y >= c.pixmap.Height() {
		return 0, false
	}
	return (y*c.pixmap.Width() + x) * 4, true
}

// blendPixel composites one premultiplied src pixel onto the canvas's
// backing buffer at (x,y) through mode, bypassing gg.Pixmap's
// straight-alpha SetPixel/GetPixel so the buffer stays premultiplied end
// to end.
func (c *PixmapCanvas) blendPixel(x, y int, sr, sg, sb, sa byte, mode BlendMode) {
	i, ok := c.pixelIndex(x, y)
	if !ok {
		return
	}
	data := c.pixmap.Data()
	fn := blend.GetBlendFunc(mode.toBlend())
	r, g, b, a := fn(sr, sg, sb, sa, data[i], data[i+1], data[i+2], data[i+3])
	data[i], data[i+1], data[i+2], data[i+3] = r, g, b, a
}

// PaintRect fills an axis-aligned rect in device pixel space (rect is
// assumed already transformed by the caller, matching how group.go and
// clip.go use this method for full-surface/layer operations).
func (c *PixmapCanvas) PaintRect(rect Rect, color [4]float64, mode BlendMode) {
	sr, sg, sb, sa := premultiply(color)
	x0, y0 := int(rect.MinX), int(rect.MinY)
	x1, y1 := int(rect.MaxX), int(rect.MaxY)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c.blendPixel(x, y, sr, sg, sb, sa, mode)
		}
	}
}

// ClearWith fills the whole canvas with a solid premultiplied color,
// bypassing blending entirely (used to seed clip masks with opaque black,
// matching clip.rs's initial fill, and to clear layers borrowed from the
// pool, matching layers.rs's zero-fill-on-grow path).
func (c *PixmapCanvas) ClearWith(color [4]float64) {
	sr, sg, sb, sa := premultiply(color)
	data := c.pixmap.Data()
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = sr, sg, sb, sa
	}
	c.ctx = nil
}

// DrawSurface composites src onto c pixel-for-pixel in src's own device
// space (the compositor always renders sub-surfaces at the canvas's full
// resolution, so no resampling is needed — FilterQuality only matters for
// filter.go's blur/offset kernels, never for this path).
func (c *PixmapCanvas) DrawSurface(src *PixmapCanvas, mode BlendMode, opacity float64) {
	sdata := src.pixmap.Data()
	w, h := src.pixmap.Width(), src.pixmap.Height()
	clampOpacity := opacity
	if clampOpacity < 0 {
		clampOpacity = 0
	}
	if clampOpacity > 1 {
		clampOpacity = 1
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			sr, sg, sb, sa := sdata[i], sdata[i+1], sdata[i+2], sdata[i+3]
			if clampOpacity < 1 {
				sr = scaleByte(sr, clampOpacity)
				sg = scaleByte(sg, clampOpacity)
				sb = scaleByte(sb, clampOpacity)
				sa = scaleByte(sa, clampOpacity)
			}
			if sa == 0 && mode == SourceOver {
				continue
			}
			c.blendPixel(x, y, sr, sg, sb, sa, mode)
		}
	}
}

func scaleByte(v byte, scale float64) byte {
	out := float64(v) * scale
	if out < 0 {
		return 0
	}
	if out > 255 {
		return 255
	}
	return byte(out + 0.5)
}
