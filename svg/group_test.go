package svg

import "testing"

func TestRenderGroupImplAppliesOpacity(t *testing.T) {
	size := ScreenSize{Width: 8, Height: 8}
	builder := NewTreeBuilder(size, ViewBox{Rect: Rect{MinX: 0, MinY: 0, MaxX: 8, MaxY: 8}})
	g := builder.AddGroup(builder.Root(), &Group{Transform: Identity(), Opacity: 0.5})
	builder.AddPath(g, solidFillPath(8, [4]float64{1, 0, 0, 1}))
	tree := builder.Build()

	pool := NewLayerPool(size)
	canvas := NewPixmapCanvas(size)
	walker := NewTreeWalker(tree, pool)

	walker.RenderNode(canvas, g)

	a := alphaAt(canvas, 4, 4)
	if a < 110 || a > 145 {
		t.Errorf("expected roughly half-opacity alpha (~127), got %d", a)
	}
}

func TestRenderGroupImplReturnsBBoxInParentSpace(t *testing.T) {
	size := ScreenSize{Width: 20, Height: 20}
	builder := NewTreeBuilder(size, ViewBox{Rect: Rect{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20}})
	g := builder.AddGroup(builder.Root(), &Group{Transform: TranslationTransform(5, 5), Opacity: 1})
	builder.AddPath(g, squarePath(0, 0, 4))
	tree := builder.Build()

	pool := NewLayerPool(size)
	canvas := NewPixmapCanvas(size)
	walker := NewTreeWalker(tree, pool)

	bbox := walker.RenderNode(canvas, g)
	want := Rect{MinX: 5, MinY: 5, MaxX: 9, MaxY: 9}
	if !bbox.FuzzyEqual(want) {
		t.Errorf("expected bbox translated into parent space %+v, got %+v", want, bbox)
	}
}

func TestRenderGroupImplEmptyGroupReturnsSentinelBBox(t *testing.T) {
	size := ScreenSize{Width: 8, Height: 8}
	builder := NewTreeBuilder(size, ViewBox{Rect: Rect{MinX: 0, MinY: 0, MaxX: 8, MaxY: 8}})
	g := builder.AddGroup(builder.Root(), &Group{Transform: Identity(), Opacity: 1})
	tree := builder.Build()

	pool := NewLayerPool(size)
	canvas := NewPixmapCanvas(size)
	walker := NewTreeWalker(tree, pool)

	bbox := walker.RenderNode(canvas, g)
	if !bbox.FuzzyEqual(NewBBox()) {
		t.Errorf("an empty group should report the sentinel bbox, got %+v", bbox)
	}
}

func TestRenderGroupImplAppliesClipPathBeforeComposite(t *testing.T) {
	size := ScreenSize{Width: 20, Height: 20}
	builder := NewTreeBuilder(size, ViewBox{Rect: Rect{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20}})
	clipShape := builder.AddPath(NoNode, squarePath(0, 0, 10))
	g := builder.AddGroup(builder.Root(), &Group{Transform: Identity(), Opacity: 1, ClipPath: "clip"})
	builder.AddPath(g, squarePath(0, 0, 20))
	tree := builder.Build()
	tree.ClipPaths["clip"] = &ClipPathDef{Transform: Identity(), Children: []NodeID{clipShape}}

	pool := NewLayerPool(size)
	canvas := NewPixmapCanvas(size)
	walker := NewTreeWalker(tree, pool)

	walker.RenderNode(canvas, g)

	if alphaAt(canvas, 5, 5) == 0 {
		t.Error("content inside the group's clip-path should survive")
	}
	if alphaAt(canvas, 15, 15) != 0 {
		t.Error("content outside the group's clip-path should be erased before compositing")
	}
}

func TestRenderGroupImplLeavesLayerPoolBalanced(t *testing.T) {
	size := ScreenSize{Width: 8, Height: 8}
	builder := NewTreeBuilder(size, ViewBox{Rect: Rect{MinX: 0, MinY: 0, MaxX: 8, MaxY: 8}})
	outer := builder.AddGroup(builder.Root(), &Group{Transform: Identity(), Opacity: 1, ClipPath: "clip"})
	clipShape := builder.AddPath(NoNode, squarePath(0, 0, 8))
	builder.AddPath(outer, squarePath(0, 0, 8))
	tree := builder.Build()
	tree.ClipPaths["clip"] = &ClipPathDef{Transform: Identity(), Children: []NodeID{clipShape}}

	pool := NewLayerPool(size)
	canvas := NewPixmapCanvas(size)
	walker := NewTreeWalker(tree, pool)

	walker.RenderNode(canvas, outer)

	if pool.InUse() != 0 {
		t.Errorf("every leased layer should be released by the time rendering returns, got %d in use", pool.InUse())
	}
}
