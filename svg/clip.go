package svg

// ClipEngine evaluates <clipPath> definitions into an alpha mask and
// applies that mask to a rendered group's layer, grounded on
// resvg-cairo/src/clip.rs's clip()/clip_group()/draw_group_child().
//
// The mask is built in its own borrowed layer: opaque black seeds the
// whole surface, each clip shape punches a transparent hole into it
// (conceptually the Clear operator; mathematically dest*(1-coverage),
// i.e. DestOut fed the shape's own rasterized alpha as source — see
// path.go's drawPathOperator), and the result composites onto the target
// layer with DestOut so everything outside the clip geometry is erased.
//
// Two distinct kinds of nesting exist and must not be confused:
//   - a clip-path definition that itself names another clip-path
//     (ClipPathDef.ClipPath) is applied directly to the target canvas as
//     its own independent clip pass, intersecting the two clip regions
//     rather than subtracting one mask from the other.
//   - a Group *inside* a clip-path's content that itself carries a
//     clip-path (Group.ClipPath) needs its own isolated layer: only its
//     first child is drawn into that layer, the group's own clip-path is
//     applied to it there, and the result is combined into the outer
//     mask with the two-step Xor-then-DestOut composite (clip_group).
type ClipEngine struct {
	tree *Tree
	pool *LayerPool
}

// NewClipEngine builds a ClipEngine over tree, borrowing scratch layers
// from pool.
func NewClipEngine(tree *Tree, pool *LayerPool) *ClipEngine {
	return &ClipEngine{tree: tree, pool: pool}
}

// Apply clips canvas's current contents to the geometry named by
// clipPathName, evaluated in bbox's object bounding box (group.go only
// calls this once a finite bbox has been computed — see §4.D step 6).
func (e *ClipEngine) Apply(canvas *PixmapCanvas, clipPathName string, bbox Rect, walker *TreeWalker) {
	cp, ok := e.tree.ClipPaths[clipPathName]
	if !ok {
		return
	}
	e.clip(canvas, cp, bbox, walker)
}

func (e *ClipEngine) clip(canvas *PixmapCanvas, cp *ClipPathDef, bbox Rect, walker *TreeWalker) {
	lease, ok := e.pool.Get()
	if !ok {
		return
	}
	defer lease.Release()
	mask := lease.Canvas

	mask.ClearWith([4]float64{0, 0, 0, 1})

	t := canvas.CurrentTransform().Append(cp.Transform)
	if cp.Units == ObjectBoundingBox {
		t = t.Append(BBoxToUserSpace(bbox))
	}
	mask.SetTransform(t)

	for _, child := range cp.Children {
		e.drawClipChild(mask, child, bbox, walker)
	}

	// A clip-path chained to another clip-path (via its own clip-path
	// attribute) is applied as a second, independent pass directly on
	// canvas, intersecting its region with this one rather than being
	// folded into this mask.
	if cp.ClipPath != "" {
		if nested, ok := e.tree.ClipPaths[cp.ClipPath]; ok {
			e.clip(canvas, nested, bbox, walker)
		}
	}

	canvas.DrawSurface(mask, DestOut, 1)
}

// drawClipChild draws one clip-path child onto mask, matching clip.rs's
// own dispatch: a Path child punches its coverage as a hole directly; a
// Group child is only meaningful when it carries its own clip-path
// (clip_group), in which case its first child is drawn into an isolated
// layer and combined with the mask. A Group child without a clip-path
// contributes nothing, mirroring clip_group's no-op when g.clip_path is
// None.
func (e *ClipEngine) drawClipChild(mask *PixmapCanvas, id NodeID, bbox Rect, walker *TreeWalker) {
	n := e.tree.Node(id)
	if n == nil {
		return
	}
	switch n.Kind {
	case KindPath:
		saved := mask.CurrentTransform()
		drawPathOperator(mask, n.Path, DestOut)
		mask.SetTransform(saved)
	case KindGroup:
		if n.Group.ClipPath != "" {
			saved := mask.CurrentTransform()
			mask.Concat(n.Group.Transform)
			e.clipGroup(mask, n, bbox, walker)
			mask.SetTransform(saved)
		}
	}
}

// clipGroup handles a clip-path child Group that itself carries a
// clip-path: its first child is rendered into an isolated layer, that
// layer is clipped by the group's own clip-path, and the result is
// subtracted from the outer mask via the Xor-then-DestOut two-step
// composite, matching clip.rs's clip_group exactly.
func (e *ClipEngine) clipGroup(mask *PixmapCanvas, groupNode *Node, bbox Rect, walker *TreeWalker) {
	lease, ok := e.pool.Get()
	if !ok {
		return
	}
	defer lease.Release()
	sub := lease.Canvas
	sub.SetTransform(mask.CurrentTransform())

	if len(groupNode.Children) > 0 {
		first := e.tree.Node(groupNode.Children[0])
		if first != nil && first.Kind == KindPath {
			drawPath(sub, first.Path, bbox)
		}
	}

	if cp, ok := e.tree.ClipPaths[groupNode.Group.ClipPath]; ok {
		e.clip(sub, cp, bbox, walker)
	}

	// The outer clip layer is subtracted by sub's coverage in two
	// sequential composites, matching the spec's explicit "Xor then
	// DestOut" two-step dance (not a single blend mode choice).
	mask.DrawSurface(sub, Xor, 1)
	mask.DrawSurface(sub, DestOut, 1)
}
