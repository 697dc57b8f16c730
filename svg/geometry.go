// Package svg implements the group-compositor rendering core shared by
// SVG rendering backends: nested group semantics, layer pooling, clip-path
// evaluation, masking, filter effects and the background-image replay used
// by filters that read BackgroundImage/BackgroundAlpha.
//
// The package renders a pre-built, immutable Tree (see tree.go) onto a
// Canvas (see canvas.go) backed by the vendored gg 2D graphics library.
package svg

import (
	"math"

	"github.com/gogpu/svgrender"
)

// Transform is a 2x3 affine transformation matrix:
//
//	x' = A*x + C*y + E
//	y' = B*x + D*y + F
//
// This mirrors gg.Matrix's row layout but keeps its own type so the core
// doesn't leak a host-library type through its public surface.
type Transform struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, D: 1}
}

// ToMatrix converts a Transform to the host library's native matrix type.
func (t Transform) ToMatrix() gg.Matrix {
	return gg.Matrix{A: t.A, B: t.C, C: t.E, D: t.B, E: t.D, F: t.F}
}

// TransformFromMatrix converts a native gg.Matrix back to a Transform.
func TransformFromMatrix(m gg.Matrix) Transform {
	return Transform{A: m.A, B: m.D, C: m.B, D: m.E, E: m.C, F: m.F}
}

// Append composes this transform with other, applying other first
// (i.e. the result maps a point p to t.Apply(other.Apply(p))), matching
// usvg's Transform::append used throughout the original renderer.
func (t Transform) Append(other Transform) Transform {
	return Transform{
		A: t.A*other.A + t.C*other.B,
		B: t.B*other.A + t.D*other.B,
		C: t.A*other.C + t.C*other.D,
		D: t.B*other.C + t.D*other.D,
		E: t.A*other.E + t.C*other.F + t.E,
		F: t.B*other.E + t.D*other.F + t.F,
	}
}

// TranslationTransform creates a pure translation.
func TranslationTransform(x, y float64) Transform {
	return Transform{A: 1, D: 1, E: x, F: y}
}

// ScaleTransform creates a pure scale.
func ScaleTransform(x, y float64) Transform {
	return Transform{A: x, D: y}
}

// ApplyPoint maps a point through the transform.
func (t Transform) ApplyPoint(x, y float64) (float64, float64) {
	return t.A*x + t.C*y + t.E, t.B*x + t.D*y + t.F
}

// IsIdentity reports whether t is the identity transform.
func (t Transform) IsIdentity() bool {
	return t.A == 1 && t.B == 0 && t.C == 0 && t.D == 1 && t.E == 0 && t.F == 0
}

// Rect is an axis-aligned floating-point rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewRect builds a Rect from position and size. Returns false if the
// resulting rectangle has zero or negative area, mirroring usvg's
// Rect::new fallibility (degenerate rects are not valid bboxes, §4.D step 6).
func NewRect(x, y, w, h float64) (Rect, bool) {
	if w <= 0 || h <= 0 {
		return Rect{}, false
	}
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}, true
}

// NewBBox returns the sentinel "no area accumulated yet" rectangle per
// spec §3: min-valued origin, max-valued extents, so that Expand always
// widens it and FuzzyEqual can detect "never touched".
func NewBBox() Rect {
	return Rect{MinX: math.MaxFloat64, MinY: math.MaxFloat64, MaxX: -math.MaxFloat64, MaxY: -math.MaxFloat64}
}

// Width returns the rectangle's width.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the rectangle's height.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Expand returns the union of r and other.
func (r Rect) Expand(other Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, other.MinX),
		MinY: math.Min(r.MinY, other.MinY),
		MaxX: math.Max(r.MaxX, other.MaxX),
		MaxY: math.Max(r.MaxY, other.MaxY),
	}
}

// FuzzyEqual reports whether r and other are equal within a small tolerance.
func (r Rect) FuzzyEqual(other Rect) bool {
	const eps = 1e-6
	return math.Abs(r.MinX-other.MinX) < eps &&
		math.Abs(r.MinY-other.MinY) < eps &&
		math.Abs(r.MaxX-other.MaxX) < eps &&
		math.Abs(r.MaxY-other.MaxY) < eps
}

// corners returns the four corners of the rect for transform mapping.
func (r Rect) corners() [4][2]float64 {
	return [4][2]float64{
		{r.MinX, r.MinY}, {r.MaxX, r.MinY}, {r.MaxX, r.MaxY}, {r.MinX, r.MaxY},
	}
}

// TransformBy maps r through t, returning the new axis-aligned bounding
// box of the transformed corners. Returns false if r is the NewBBox
// sentinel (nothing to transform) or degenerate.
func (r Rect) TransformBy(t Transform) (Rect, bool) {
	if r.FuzzyEqual(NewBBox()) {
		return Rect{}, false
	}
	out := NewBBox()
	for _, c := range r.corners() {
		x, y := t.ApplyPoint(c[0], c[1])
		out.MinX = math.Min(out.MinX, x)
		out.MinY = math.Min(out.MinY, y)
		out.MaxX = math.Max(out.MaxX, x)
		out.MaxY = math.Max(out.MaxY, y)
	}
	return out, true
}

// BBoxToUserSpace returns the transform that maps the [0,1]x[0,1] unit
// square onto bbox, used for objectBoundingBox-unit clip-paths and masks.
func BBoxToUserSpace(bbox Rect) Transform {
	return Transform{A: bbox.Width(), D: bbox.Height(), E: bbox.MinX, F: bbox.MinY}
}

// ScreenSize holds positive integer output dimensions.
type ScreenSize struct {
	Width, Height int
}

// IsValid reports whether both dimensions are positive.
func (s ScreenSize) IsValid() bool {
	return s.Width > 0 && s.Height > 0
}

// Units distinguishes SVG's two coordinate-system tags for clip-paths,
// masks and gradients.
type Units int

const (
	UserSpaceOnUse Units = iota
	ObjectBoundingBox
)

// Align enumerates preserveAspectRatio alignment keywords.
type Align int

const (
	AlignXMidYMid Align = iota
	AlignNone
	AlignXMinYMin
	AlignXMidYMin
	AlignXMaxYMin
	AlignXMinYMid
	AlignXMaxYMid
	AlignXMinYMax
	AlignXMidYMax
	AlignXMaxYMax
)

// MeetOrSlice enumerates preserveAspectRatio's "meet"/"slice" scale policy.
type MeetOrSlice int

const (
	Meet MeetOrSlice = iota
	Slice
)

// AspectRatio is SVG's preserveAspectRatio attribute.
type AspectRatio struct {
	Align       Align
	MeetOrSlice MeetOrSlice
}

// ViewBox is the logical viewBox rectangle plus its aspect-ratio policy.
type ViewBox struct {
	Rect   Rect
	Aspect AspectRatio
}

// ViewBoxToTransform derives the affine that maps the viewBox's user-space
// rectangle into the img pixel rectangle, honoring the aspect-ratio
// policy. This is the `utils::view_box_to_transform` collaborator named
// in spec §6.
func ViewBoxToTransform(vb ViewBox, img ScreenSize) Transform {
	vbRect := vb.Rect
	if vbRect.Width() <= 0 || vbRect.Height() <= 0 {
		return Identity()
	}

	sx := float64(img.Width) / vbRect.Width()
	sy := float64(img.Height) / vbRect.Height()

	if vb.Aspect.Align != AlignNone {
		if vb.Aspect.MeetOrSlice == Slice {
			sx = math.Max(sx, sy)
		} else {
			sx = math.Min(sx, sy)
		}
		sy = sx
	}

	tx := -vbRect.MinX * sx
	ty := -vbRect.MinY * sy

	dx := float64(img.Width) - vbRect.Width()*sx
	dy := float64(img.Height) - vbRect.Height()*sy

	switch vb.Aspect.Align {
	case AlignXMidYMid, AlignXMidYMin, AlignXMidYMax:
		tx += dx / 2
	case AlignXMaxYMin, AlignXMaxYMid, AlignXMaxYMax:
		tx += dx
	}
	switch vb.Aspect.Align {
	case AlignXMinYMid, AlignXMidYMid, AlignXMaxYMid:
		ty += dy / 2
	case AlignXMinYMax, AlignXMidYMax, AlignXMaxYMax:
		ty += dy
	}

	return Transform{A: sx, D: sy, E: tx, F: ty}
}

// FitTo mirrors usvg's FitTo: how an intrinsic size scales to an output
// image size for create_root_image (§6).
type FitTo struct {
	kind fitKind
	arg  float64
}

type fitKind int

const (
	fitOriginal fitKind = iota
	fitWidth
	fitHeight
	fitZoom
)

// FitOriginal keeps the intrinsic size unchanged.
func FitOriginal() FitTo { return FitTo{kind: fitOriginal} }

// FitWidth scales so the output width equals w, preserving aspect ratio.
func FitWidth(w float64) FitTo { return FitTo{kind: fitWidth, arg: w} }

// FitHeight scales so the output height equals h, preserving aspect ratio.
func FitHeight(h float64) FitTo { return FitTo{kind: fitHeight, arg: h} }

// FitZoom scales both dimensions by a uniform factor.
func FitZoom(z float64) FitTo { return FitTo{kind: fitZoom, arg: z} }

// Fit resolves the policy against an intrinsic size, returning the
// resulting positive-integer output size. Returns false if the intrinsic
// size or the scale factor is degenerate.
func (f FitTo) Fit(size ScreenSize) (ScreenSize, bool) {
	if !size.IsValid() {
		return ScreenSize{}, false
	}
	switch f.kind {
	case fitOriginal:
		return size, true
	case fitWidth:
		if f.arg <= 0 {
			return ScreenSize{}, false
		}
		scale := f.arg / float64(size.Width)
		return ScreenSize{Width: round(f.arg), Height: round(float64(size.Height) * scale)}, true
	case fitHeight:
		if f.arg <= 0 {
			return ScreenSize{}, false
		}
		scale := f.arg / float64(size.Height)
		return ScreenSize{Width: round(float64(size.Width) * scale), Height: round(f.arg)}, true
	case fitZoom:
		if f.arg <= 0 {
			return ScreenSize{}, false
		}
		return ScreenSize{Width: round(float64(size.Width) * f.arg), Height: round(float64(size.Height) * f.arg)}, true
	default:
		return ScreenSize{}, false
	}
}

func round(v float64) int {
	r := int(math.Round(v))
	if r < 1 {
		r = 1
	}
	return r
}
