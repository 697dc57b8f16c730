package svg

import (
	"github.com/gogpu/svgrender"
)

// PaintKind discriminates PaintDef.
type PaintKind int

const (
	PaintNone PaintKind = iota
	PaintColor
	PaintLinearGradient
	PaintRadialGradient
)

// GradientStop is one <stop> of a gradient paint server.
type GradientStop struct {
	Offset float64
	Color  gg.RGBA
}

// PaintDef is a resolved SVG paint server: a flat color or a gradient.
// Patterns (<pattern>) are out of scope (see SPEC_FULL.md Non-goals).
type PaintDef struct {
	Kind  PaintKind
	Color gg.RGBA

	// Linear gradient geometry, in Units coordinate space.
	X1, Y1, X2, Y2 float64

	// Radial gradient geometry.
	CX, CY, R, FX, FY float64

	Stops             []GradientStop
	Units             Units
	GradientTransform Transform
	Spread            gg.ExtendMode
}

// Fill is a path's fill paint plus its fill-time parameters.
type Fill struct {
	Paint   *PaintDef
	Opacity float64
	Rule    gg.FillRule
}

// Stroke is a path's stroke paint plus its stroke-time parameters.
type Stroke struct {
	Paint      *PaintDef
	Opacity    float64
	Width      float64
	LineCap    gg.LineCap
	LineJoin   gg.LineJoin
	MiterLimit float64
	Dashes     []float64
	DashOffset float64
}

// resolveBrush turns a PaintDef into the host library's paint
// representation, mapping objectBoundingBox-relative gradient geometry
// into user space via bbox when required. bbox may be the NewBBox
// sentinel for userSpaceOnUse paints, in which case it is never consulted.
func resolveBrush(p *PaintDef, opacity float64, bbox Rect) gg.Pattern {
	if p == nil {
		return gg.NewSolidPattern(gg.Transparent)
	}

	applyOpacity := func(c gg.RGBA) gg.RGBA {
		return gg.RGBA{R: c.R, G: c.G, B: c.B, A: c.A * opacity}
	}

	switch p.Kind {
	case PaintColor:
		return gg.NewSolidPattern(applyOpacity(p.Color))

	case PaintLinearGradient:
		x1, y1, x2, y2 := p.X1, p.Y1, p.X2, p.Y2
		if p.Units == ObjectBoundingBox {
			toUser := BBoxToUserSpace(bbox)
			x1, y1 = toUser.ApplyPoint(x1, y1)
			x2, y2 = toUser.ApplyPoint(x2, y2)
		}
		grad := gg.NewLinearGradientBrush(x1, y1, x2, y2)
		for _, s := range p.Stops {
			grad.AddColorStop(s.Offset, applyOpacity(s.Color))
		}
		grad.SetExtend(p.Spread)
		return grad

	case PaintRadialGradient:
		cx, cy, r, fx, fy := p.CX, p.CY, p.R, p.FX, p.FY
		if p.Units == ObjectBoundingBox {
			toUser := BBoxToUserSpace(bbox)
			cx, cy = toUser.ApplyPoint(cx, cy)
			fx, fy = toUser.ApplyPoint(fx, fy)
			r *= (bbox.Width() + bbox.Height()) / 2
		}
		grad := gg.NewRadialGradientBrush(cx, cy, 0, r)
		grad.SetFocus(fx, fy)
		for _, s := range p.Stops {
			grad.AddColorStop(s.Offset, applyOpacity(s.Color))
		}
		grad.SetExtend(p.Spread)
		return grad

	default:
		return gg.NewSolidPattern(gg.Transparent)
	}
}
