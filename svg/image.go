package svg

import (
	"image"

	"github.com/gogpu/svgrender"
)

// toImageBuf copies a standard library image.Image into a gg.ImageBuf so
// it can be drawn through gg.Context.DrawImage, which only accepts the
// host library's own buffer type.
func toImageBuf(src image.Image) (*gg.ImageBuf, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	buf, err := gg.NewImageBuf(w, h, gg.FormatRGBA8)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			_ = buf.SetRGBA(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8)) //nolint:gosec // 8-bit shift is exact
		}
	}
	return buf, nil
}

// drawImage blits img's raster data into rect (already positioned in the
// node's local coordinate space by the tree builder, including any
// preserveAspectRatio fit) through canvas's current transform.
func drawImage(canvas *PixmapCanvas, img *ImageDef) {
	if img == nil || img.Image == nil {
		return
	}
	bounds := img.Image.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	dstW, dstH := img.Rect.Width(), img.Rect.Height()
	if srcW == 0 || srcH == 0 || dstW <= 0 || dstH <= 0 {
		return
	}

	buf, err := toImageBuf(img.Image)
	if err != nil {
		return
	}

	ctx := canvas.Context()
	ctx.Push()
	ctx.Translate(img.Rect.MinX, img.Rect.MinY)
	ctx.Scale(dstW/float64(srcW), dstH/float64(srcH))
	ctx.DrawImage(buf, 0, 0)
	ctx.Pop()
}
