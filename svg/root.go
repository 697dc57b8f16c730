package svg

// CreateRootImage renders tree's root node to a freshly allocated canvas
// sized per fit, applying the viewBox-to-image transform before any
// content is drawn. Grounded on render.rs's create_root_image: allocate
// the destination, derive its transform from the viewBox and the
// requested fit policy, then hand off to the ordinary node-render
// recursion via TreeWalker.RenderNodeToCanvas (walker.go), the same
// §4.E entry point BackgroundResolver.Prepare uses for its replay.
func CreateRootImage(tree *Tree, fit FitTo) (*PixmapCanvas, bool) {
	size, ok := fit.Fit(tree.Size)
	if !ok {
		return nil, false
	}

	canvas := NewPixmapCanvas(size)
	pool := NewLayerPool(size)
	walker := NewTreeWalker(tree, pool)
	walker.RenderNodeToCanvas(canvas, tree.Root)

	return canvas, true
}
