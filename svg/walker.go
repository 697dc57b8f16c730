package svg

// RenderState drives the bounded sub-walk TreeWalker performs when a
// filter reads BackgroundImage/BackgroundAlpha: a plain recursive render
// cannot express "stop early once you reach this node", so every render
// call threads this three-way state through the recursion exactly as
// render.rs's RenderState enum does.
type RenderState int

const (
	// StateOk means rendering proceeds normally.
	StateOk RenderState = iota
	// StateRenderUntil means rendering must stop once the node named by
	// TreeWalker.renderUntil is reached (not rendering it), because the
	// caller only wants everything *before* it for a background replay.
	StateRenderUntil
	// StateBackgroundFinished is returned once RenderUntil's target node
	// has been reached, signaling every caller up the stack to stop
	// descending without rendering anything further.
	StateBackgroundFinished
)

// TreeWalker recursively renders a Tree onto a Canvas, dispatching each
// node to GroupCompositor (for <g>), path.go (for leaf paths) or image.go
// (for leaf images), and maintaining the transform stack and running
// bbox accumulation the rest of the pipeline depends on.
type TreeWalker struct {
	tree       *Tree
	compositor *GroupCompositor
	background *BackgroundResolver

	// renderUntil is the node identity RenderNode stops before, only
	// meaningful while a BackgroundResolver replay is in progress.
	// Comparison is by NodeID (arena identity), never by structural
	// equality, because two distinct nodes can be built from identical
	// field values.
	renderUntil NodeID
	state       RenderState
}

// NewTreeWalker builds a walker over tree, wiring it to a compositor and
// background resolver sharing the same layer pool.
func NewTreeWalker(tree *Tree, pool *LayerPool) *TreeWalker {
	w := &TreeWalker{tree: tree, renderUntil: NoNode, state: StateOk}
	w.compositor = NewGroupCompositor(tree, pool, w)
	w.background = NewBackgroundResolver(tree, w)
	return w
}

// RenderNodeToCanvas sets canvas's transform to the viewBox-to-device
// transform composed with id's own ancestor chain, then renders id onto
// it — the single §4.E top-level entry point both CreateRootImage
// (root.go, id = the document root) and BackgroundResolver.Prepare
// (background.go, id = the enable-background boundary somewhere inside
// the tree) go through, so neither call site can drift out of sync with
// the other on how a node's starting transform is derived.
func (w *TreeWalker) RenderNodeToCanvas(canvas *PixmapCanvas, id NodeID) Rect {
	vbTransform := ViewBoxToTransform(w.tree.ViewBox, canvas.Size())
	parent := NoNode
	if n := w.tree.Node(id); n != nil {
		parent = n.Parent
	}
	canvas.SetTransform(vbTransform.Append(w.tree.AbsTransform(parent)))
	return w.RenderNode(canvas, id)
}

// RenderNode renders a single node (and its subtree, if it is a group)
// onto canvas using canvas's current transform as the parent space, and
// returns the node's bounding box in that same space. Returns the
// NewBBox sentinel if rendering was short-circuited by a background
// replay reaching its boundary.
func (w *TreeWalker) RenderNode(canvas *PixmapCanvas, id NodeID) Rect {
	if w.state == StateBackgroundFinished {
		return NewBBox()
	}
	if w.state == StateRenderUntil && id == w.renderUntil {
		w.state = StateBackgroundFinished
		return NewBBox()
	}

	n := w.tree.Node(id)
	if n == nil {
		return NewBBox()
	}

	switch n.Kind {
	case KindGroup:
		return w.compositor.RenderGroupImpl(canvas, id, n.Group)
	case KindPath:
		saved := canvas.CurrentTransform()
		drawPath(canvas, n.Path, n.Path.Bounds)
		canvas.SetTransform(saved)
		return n.Path.Bounds
	case KindImage:
		saved := canvas.CurrentTransform()
		drawImage(canvas, n.Image)
		canvas.SetTransform(saved)
		return n.Image.Rect
	default:
		return NewBBox()
	}
}

// renderGroupChildren renders every child of id onto canvas (canvas's
// transform must already include id's own Group.Transform) and returns
// the union of their bounding boxes, or the NewBBox sentinel if the
// group is empty or every child resolved to an empty bbox.
func (w *TreeWalker) renderGroupChildren(canvas *PixmapCanvas, id NodeID) Rect {
	bbox := NewBBox()
	for _, child := range w.tree.Children(id) {
		childBBox := w.RenderNode(canvas, child)
		if w.state == StateBackgroundFinished {
			break
		}
		bbox = bbox.Expand(childBBox)
	}
	return bbox
}
