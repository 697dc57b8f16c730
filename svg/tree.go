package svg

import "image"

// NodeID is a stable, arena-relative identifier for a node in a Tree.
// Parent/child/defs back-references are expressed as NodeID rather than
// pointers because the document graph is cyclic (a clip-path can itself
// reference a group that has a mask that references the same clip-path's
// sibling, and RenderState.RenderUntil needs identity comparison that
// pointers would also give but that a value-type Node could not).
type NodeID int

// NoNode is the zero value meaning "no node", used for optional
// references (Group.ClipPath, FilterPrimitive.Result lookups, etc.).
const NoNode NodeID = -1

// NodeKind discriminates the payload carried by a Node.
type NodeKind int

const (
	KindGroup NodeKind = iota
	KindPath
	KindImage
)

// Node is one element of the arena. Exactly one of Group, Path, Image is
// populated, selected by Kind.
type Node struct {
	Kind     NodeKind
	Parent   NodeID
	Children []NodeID

	Group *Group
	Path  *PathDef
	Image *ImageDef
}

// Group is a <g> element: the unit the compositor pipeline in group.go
// operates on. A leaf Path/Image node never carries filter/mask/clip/
// opacity state directly; usvg-style trees always wrap such nodes in an
// enclosing Group when any of that state is needed, and RenderNode does
// the same (see walker.go).
type Group struct {
	Transform Transform

	// ClipPath/Mask/Filter name a definition in Tree.Defs. NoNode/""
	// (resolved through Tree.ClipPaths etc. by name) means "none".
	ClipPath string
	Mask     string
	Filters  []string

	Opacity float64 // 1.0 = fully opaque, the default

	// IsolatedBlend is the blend mode the parent composites this group's
	// result with (SVG's mix-blend-mode); SourceOver is the default.
	BlendMode BlendMode

	// EnableBackground marks a group as the nearest ancestor boundary at
	// which `enable-background: new` starts accumulating a background
	// image for descendant filters reading BackgroundImage/BackgroundAlpha
	// (spec §4.F, SVG 1.1 §15.6).
	EnableBackground bool
}

// PathDef is a filled/stroked vector path.
type PathDef struct {
	Segments []PathSegment
	Fill     *Fill
	Stroke   *Stroke
	Bounds   Rect // geometric bbox in the path's own local coordinate space
}

// SegmentKind discriminates PathSegment.
type SegmentKind int

const (
	SegMoveTo SegmentKind = iota
	SegLineTo
	SegCubicTo
	SegClose
)

// PathSegment is one command of a path's outline. CubicTo uses all three
// points (X1,Y1 and X2,Y2 are the control points, X,Y is the endpoint);
// the others use only X,Y.
type PathSegment struct {
	Kind           SegmentKind
	X, Y           float64
	X1, Y1, X2, Y2 float64
}

// ImageDef is a rasterized image positioned in its parent's coordinate
// space at ViewBox (which already encodes any preserveAspectRatio fit).
type ImageDef struct {
	Image image.Image
	Rect  Rect
}

// ClipPathDef is a <clipPath> definition (clip.go evaluates it).
type ClipPathDef struct {
	Units     Units
	Transform Transform
	// ClipPath names a second clip-path definition applied on top of this
	// one's own shapes, mirroring usvg's ClipPath.clip_path (the nested
	// Xor/DestOut case in clip.go).
	ClipPath string
	Children []NodeID // Path/Group nodes forming the clip geometry
}

// MaskDef is a <mask> definition (mask.go evaluates it).
type MaskDef struct {
	Units        Units
	ContentUnits Units
	Region       Rect // in Units coordinate space
	Mask         string // optional nested mask-on-a-mask, by name
	Children     []NodeID
}

// FilterInput names one of the well-known filter primitive inputs, or a
// previous primitive's Result.
type FilterInput string

const (
	InputSourceGraphic FilterInput = "SourceGraphic"
	InputSourceAlpha   FilterInput = "SourceAlpha"
	InputBackgroundImg FilterInput = "BackgroundImage"
	InputBackgroundA   FilterInput = "BackgroundAlpha"
	InputFillPaint     FilterInput = "FillPaint"
	InputStrokePaint   FilterInput = "StrokePaint"
)

// FilterPrimitiveKind discriminates FilterPrimitive.
type FilterPrimitiveKind int

const (
	FeGaussianBlur FilterPrimitiveKind = iota
	FeOffset
	FeFlood
	FeMerge
	FeColorMatrix
	FeComposite
	FeDropShadow
)

// FilterPrimitive is one <feXxx> step of a <filter>.
type FilterPrimitive struct {
	Kind   FilterPrimitiveKind
	Input  FilterInput
	Input2 FilterInput // feComposite's second input, feMerge ignores this
	Result string      // name other primitives can reference as Input

	// Subregion, in filter primitive units; zero Rect means "filter region".
	Subregion Rect

	StdDeviationX, StdDeviationY float64 // feGaussianBlur
	Dx, Dy                       float64 // feOffset, feDropShadow
	FloodColor                   [4]float64 // feFlood, premultiplied RGBA in [0,1]
	MergeInputs                  []FilterInput // feMerge
	Matrix                       [20]float64   // feColorMatrix
	Operator                     CompositeOperator // feComposite
}

// CompositeOperator enumerates feComposite's operator attribute.
type CompositeOperator int

const (
	CompositeOver CompositeOperator = iota
	CompositeIn
	CompositeOut
	CompositeAtop
	CompositeXor
)

// FilterDef is a <filter> definition (filter.go evaluates it).
type FilterDef struct {
	Units          Units
	PrimitiveUnits Units
	Region         Rect // in Units coordinate space, default -10% +120%
	Primitives     []FilterPrimitive
}

// Tree is the immutable, arena-backed document produced by a TreeBuilder.
// Every cross-reference inside the tree (parent, children, clip-path,
// mask, filter, nested clip-path/mask) is a NodeID or a string name
// resolved through the Defs maps, never a pointer, so the structure can
// be freely cyclic in its reference graph without Go needing unsafe
// tricks to represent it.
type Tree struct {
	Nodes []Node
	Root  NodeID

	Size    ScreenSize
	ViewBox ViewBox

	ClipPaths map[string]*ClipPathDef
	Masks     map[string]*MaskDef
	Filters   map[string]*FilterDef
}

// Node returns the node for id.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.Nodes) {
		return nil
	}
	return &t.Nodes[id]
}

// Children returns the child NodeIDs of id.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	return n.Children
}

// AbsTransform computes the accumulated transform from the tree root down
// to and including id's own Group.Transform (identity if id is not a
// Group or has none).
func (t *Tree) AbsTransform(id NodeID) Transform {
	var chain []NodeID
	for cur := id; cur != NoNode; {
		chain = append(chain, cur)
		n := t.Node(cur)
		if n == nil {
			break
		}
		cur = n.Parent
	}
	result := Identity()
	for i := len(chain) - 1; i >= 0; i-- {
		n := t.Node(chain[i])
		if n != nil && n.Group != nil {
			result = result.Append(n.Group.Transform)
		}
	}
	return result
}

// FindFilterBackgroundStart walks up from id to find the nearest Group
// ancestor with EnableBackground set, returning NoNode if there is none.
// This is the node BackgroundResolver replays from (spec §4.F).
func (t *Tree) FindFilterBackgroundStart(id NodeID) NodeID {
	for cur := id; cur != NoNode; {
		n := t.Node(cur)
		if n == nil {
			return NoNode
		}
		if n.Group != nil && n.Group.EnableBackground {
			return cur
		}
		cur = n.Parent
	}
	return NoNode
}
