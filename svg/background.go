package svg

// BackgroundResolver reconstructs the BackgroundImage/BackgroundAlpha
// filter inputs defined by SVG 1.1 §15.6: the accumulated rendering of
// every sibling that painted before the current, filtered group, scoped
// to the nearest ancestor with `enable-background: new` set.
//
// There is no persistent background buffer kept around the whole render
// pass — that would mean every group pays for a buffer it almost never
// needs. Instead, Prepare performs a bounded replay: re-walk the tree
// from the enable-background boundary, stopping just short of the node
// that asked for its background, and hand back whatever got painted.
// This mirrors render.rs's own approach (render_node_to_canvas's
// RenderState plumbing) exactly, including the requirement that "stop
// short of" be a node-identity comparison and not a structural one,
// since sibling nodes can be structurally identical.
type BackgroundResolver struct {
	tree   *Tree
	walker *TreeWalker
}

// NewBackgroundResolver builds a resolver over tree, replaying through
// walker's own RenderNode so the replay uses identical draw logic to a
// normal render (no second code path to keep in sync).
func NewBackgroundResolver(tree *Tree, walker *TreeWalker) *BackgroundResolver {
	return &BackgroundResolver{tree: tree, walker: walker}
}

// Prepare returns the rendered background visible to node `until`'s
// filter, sized to match the canvas the filter itself is running on.
// Returns a fully transparent canvas if `until` has no enable-background
// ancestor (nothing to reconstruct).
func (r *BackgroundResolver) Prepare(until NodeID, size ScreenSize) *PixmapCanvas {
	start := r.tree.FindFilterBackgroundStart(until)
	if start == NoNode {
		return NewPixmapCanvas(size)
	}

	canvas := NewPixmapCanvas(size)
	if r.tree.Node(start) == nil {
		return canvas
	}

	savedState, savedUntil := r.walker.state, r.walker.renderUntil
	r.walker.state = StateRenderUntil
	r.walker.renderUntil = until

	// RenderNodeToCanvas (walker.go) derives the replay's starting
	// transform the same way CreateRootImage does for a live render —
	// viewBox-to-device composed with start's own ancestor chain — so the
	// replayed background lands in the same coordinate space as the
	// canvas the requesting filter is actually running on.
	r.walker.RenderNodeToCanvas(canvas, start)

	r.walker.state, r.walker.renderUntil = savedState, savedUntil
	return canvas
}
