package svg

import "github.com/gogpu/svgrender"

// drawPath rasterizes a filled and/or stroked path onto canvas using its
// own transform and paint, resolving objectBoundingBox paint servers
// against bbox.
func drawPath(canvas *PixmapCanvas, p *PathDef, bbox Rect) {
	if p == nil {
		return
	}
	ctx := canvas.Context()
	buildOutline(ctx, p.Segments)

	if p.Fill != nil && p.Fill.Paint != nil && p.Fill.Paint.Kind != PaintNone {
		ctx.SetFillPattern(resolveBrush(p.Fill.Paint, p.Fill.Opacity, bbox))
		ctx.SetFillRule(p.Fill.Rule)
		if p.Stroke != nil {
			ctx.FillPreserve()
		} else {
			ctx.Fill()
		}
	}

	if p.Stroke != nil && p.Stroke.Paint != nil && p.Stroke.Paint.Kind != PaintNone {
		ctx.SetStrokePattern(resolveBrush(p.Stroke.Paint, p.Stroke.Opacity, bbox))
		ctx.SetLineWidth(p.Stroke.Width)
		ctx.SetLineCap(p.Stroke.LineCap)
		ctx.SetLineJoin(p.Stroke.LineJoin)
		ctx.SetMiterLimit(p.Stroke.MiterLimit)
		if len(p.Stroke.Dashes) > 0 {
			ctx.SetDash(p.Stroke.Dashes...)
			ctx.SetDashOffset(p.Stroke.DashOffset)
		} else {
			ctx.ClearDash()
		}
		ctx.Stroke()
	}

	ctx.ClearPath()
}

// drawPathOperator rasterizes only p's combined fill+stroke outline as an
// opaque white shape into a scratch layer, then composites that shape
// onto canvas through mode. This is how clip.go turns path geometry into
// a Clear/Xor contribution to a clip mask, since the host context's own
// SetBlendMode only exposes separable blend modes, not the Porter-Duff
// Clear/Xor operators clip-path evaluation needs (internal/blend.go is
// the only place those live).
func drawPathOperator(canvas *PixmapCanvas, p *PathDef, mode BlendMode) {
	if p == nil {
		return
	}
	scratch := NewPixmapCanvas(canvas.Size())
	scratch.SetTransform(canvas.CurrentTransform())

	ctx := scratch.Context()
	buildOutline(ctx, p.Segments)
	ctx.SetFillPattern(gg.NewSolidPattern(gg.RGBA{R: 1, G: 1, B: 1, A: 1}))
	ctx.SetFillRule(gg.FillRuleNonZero)
	ctx.Fill()
	ctx.ClearPath()

	canvas.DrawSurface(scratch, mode, 1)
}

func buildOutline(ctx *gg.Context, segs []PathSegment) {
	ctx.ClearPath()
	for _, s := range segs {
		switch s.Kind {
		case SegMoveTo:
			ctx.MoveTo(s.X, s.Y)
		case SegLineTo:
			ctx.LineTo(s.X, s.Y)
		case SegCubicTo:
			ctx.CubicTo(s.X1, s.Y1, s.X2, s.Y2, s.X, s.Y)
		case SegClose:
			ctx.ClosePath()
		}
	}
}
