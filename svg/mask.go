package svg

import "github.com/gogpu/svgrender/internal/color"

// MaskEngine evaluates <mask> definitions into a luminance-derived alpha
// multiplier and applies it to a rendered group's layer.
//
// SVG masks multiply the masked content's alpha by the mask layer's
// luminance (converted through sRGB-to-linear per the spec's default
// mask-type, "luminance"), rather than by the mask's own alpha the way a
// clip-path does — this is the one place color.SRGBToLinear earns its
// keep in this package, converting each mask pixel's straight RGB before
// weighting it into a single luminance value.
type MaskEngine struct {
	tree *Tree
	pool *LayerPool
}

// NewMaskEngine builds a MaskEngine over tree, borrowing scratch layers
// from pool.
func NewMaskEngine(tree *Tree, pool *LayerPool) *MaskEngine {
	return &MaskEngine{tree: tree, pool: pool}
}

// Apply multiplies canvas's alpha channel by maskName's luminance mask,
// evaluated in bbox's object bounding box for objectBoundingBox-unit masks.
func (e *MaskEngine) Apply(canvas *PixmapCanvas, maskName string, bbox Rect, walker *TreeWalker) {
	md, ok := e.tree.Masks[maskName]
	if !ok {
		return
	}
	e.apply(canvas, md, bbox, walker)
}

func (e *MaskEngine) apply(canvas *PixmapCanvas, md *MaskDef, bbox Rect, walker *TreeWalker) {
	lease, ok := e.pool.Get()
	if !ok {
		return
	}
	defer lease.Release()
	maskLayer := lease.Canvas

	contentTransform := canvas.CurrentTransform()
	if md.ContentUnits == ObjectBoundingBox {
		contentTransform = contentTransform.Append(BBoxToUserSpace(bbox))
	}
	maskLayer.SetTransform(contentTransform)
	for _, child := range md.Children {
		walker.RenderNode(maskLayer, child)
	}

	if md.Mask != "" {
		if nested, ok := e.tree.Masks[md.Mask]; ok {
			e.apply(maskLayer, nested, bbox, walker)
		}
	}

	clipToRegion(maskLayer, canvas.CurrentTransform(), resolveMaskRegion(md, bbox))
	multiplyByLuminance(canvas, maskLayer)
}

// resolveMaskRegion maps md.Region (in md.Units coordinate space) into the
// same local content space bbox itself lives in, defaulting to SVG's
// -10%/+120% objectBoundingBox region when no explicit x/y/width/height was
// set, mirroring group.go's resolveFilterRegion for <filter> regions. The
// default region is always bbox-relative regardless of md.Units — maskUnits
// only governs how an *explicit* x/y/width/height is interpreted, not the
// implicit default, which SVG defines as a percentage of the bounding box
// no matter what maskUnits says.
func resolveMaskRegion(md *MaskDef, bbox Rect) Rect {
	region := md.Region
	isDefault := region.FuzzyEqual(Rect{})
	if isDefault {
		region = Rect{MinX: -0.1, MinY: -0.1, MaxX: 1.1, MaxY: 1.1}
	}
	if isDefault || md.Units == ObjectBoundingBox {
		t := BBoxToUserSpace(bbox)
		minX, minY := t.ApplyPoint(region.MinX, region.MinY)
		maxX, maxY := t.ApplyPoint(region.MaxX, region.MaxY)
		return Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	}
	return region
}

// clipToRegion zeroes every maskLayer pixel whose device position (mapping
// region through t) falls outside region, matching the SVG mask element's
// own region restriction: content outside a mask's x/y/width/height rect
// never contributes, regardless of what its children painted.
func clipToRegion(maskLayer *PixmapCanvas, t Transform, region Rect) {
	x0, y0 := t.ApplyPoint(region.MinX, region.MinY)
	x1, y1 := t.ApplyPoint(region.MaxX, region.MaxY)
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}

	data := maskLayer.Pixmap().Data()
	w := maskLayer.Pixmap().Width()
	h := maskLayer.Pixmap().Height()
	for y := 0; y < h; y++ {
		inY := float64(y) >= y0 && float64(y) < y1
		for x := 0; x < w; x++ {
			if inY && float64(x) >= x0 && float64(x) < x1 {
				continue
			}
			i := (y*w + x) * 4
			data[i], data[i+1], data[i+2], data[i+3] = 0, 0, 0, 0
		}
	}
}

// multiplyByLuminance scales every pixel of dst by the corresponding
// pixel of maskLayer's perceptual luminance (computed from its
// premultiplied color converted to linear light), matching SVG's default
// mask-type="luminance" semantics.
func multiplyByLuminance(dst, maskLayer *PixmapCanvas) {
	d := dst.Pixmap().Data()
	m := maskLayer.Pixmap().Data()
	n := len(d) / 4
	if len(m)/4 != n {
		return
	}
	for i := 0; i < n; i++ {
		o := i * 4
		ma := m[o+3]
		if ma == 0 {
			d[o], d[o+1], d[o+2], d[o+3] = 0, 0, 0, 0
			continue
		}
		// Un-premultiply the mask layer's color to get its straight RGB,
		// convert to linear light, and weight by Rec. 709 luminance
		// coefficients (the same ones usvg uses for mask evaluation).
		r := float32(m[o]) / float32(ma)
		g := float32(m[o+1]) / float32(ma)
		b := float32(m[o+2]) / float32(ma)
		lr := color.SRGBToLinear(r)
		lg := color.SRGBToLinear(g)
		lb := color.SRGBToLinear(b)
		luminance := 0.2126*lr + 0.7152*lg + 0.0722*lb
		alphaFactor := luminance * (float32(ma) / 255)

		d[o] = scaleByteF(d[o], alphaFactor)
		d[o+1] = scaleByteF(d[o+1], alphaFactor)
		d[o+2] = scaleByteF(d[o+2], alphaFactor)
		d[o+3] = scaleByteF(d[o+3], alphaFactor)
	}
}

func scaleByteF(v byte, factor float32) byte {
	out := float32(v) * factor
	if out < 0 {
		return 0
	}
	if out > 255 {
		return 255
	}
	return byte(out + 0.5)
}
