package svg

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDrawImagePlacesContentAtItsRect(t *testing.T) {
	size := ScreenSize{Width: 20, Height: 20}
	canvas := NewPixmapCanvas(size)

	img := &ImageDef{
		Image: solidImage(4, 4, color.RGBA{R: 255, G: 0, B: 0, A: 255}),
		Rect:  Rect{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15},
	}
	drawImage(canvas, img)

	if alphaAt(canvas, 10, 10) == 0 {
		t.Error("expected the image to paint inside its destination rect")
	}
	if alphaAt(canvas, 1, 1) != 0 {
		t.Error("expected nothing painted outside the image's destination rect")
	}
}

func TestDrawImageIgnoresNilImage(t *testing.T) {
	size := ScreenSize{Width: 4, Height: 4}
	canvas := NewPixmapCanvas(size)
	drawImage(canvas, &ImageDef{Image: nil, Rect: Rect{MinX: 0, MinY: 0, MaxX: 4, MaxY: 4}})
	if alphaAt(canvas, 1, 1) != 0 {
		t.Error("a nil image should never paint anything")
	}
}

func TestDrawImageIgnoresDegenerateRect(t *testing.T) {
	size := ScreenSize{Width: 4, Height: 4}
	canvas := NewPixmapCanvas(size)
	img := &ImageDef{
		Image: solidImage(2, 2, color.RGBA{R: 255, A: 255}),
		Rect:  Rect{MinX: 0, MinY: 0, MaxX: 0, MaxY: 0},
	}
	drawImage(canvas, img)
	if alphaAt(canvas, 0, 0) != 0 {
		t.Error("a zero-size destination rect should result in nothing painted")
	}
}
