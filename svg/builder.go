package svg

// TreeBuilder assembles a Tree's arena incrementally, for programmatic
// construction (used by tests and by any future parser front-end).
type TreeBuilder struct {
	tree *Tree
}

// NewTreeBuilder starts a new tree of the given output size and viewBox.
func NewTreeBuilder(size ScreenSize, vb ViewBox) *TreeBuilder {
	b := &TreeBuilder{
		tree: &Tree{
			Size:      size,
			ViewBox:   vb,
			Root:      NoNode,
			ClipPaths: map[string]*ClipPathDef{},
			Masks:     map[string]*MaskDef{},
			Filters:   map[string]*FilterDef{},
		},
	}
	b.tree.Root = b.addNode(Node{Kind: KindGroup, Parent: NoNode, Group: &Group{Transform: Identity(), Opacity: 1}})
	return b
}

func (b *TreeBuilder) addNode(n Node) NodeID {
	id := NodeID(len(b.tree.Nodes))
	b.tree.Nodes = append(b.tree.Nodes, n)
	return id
}

// Root returns the tree's root node id (always a Group).
func (b *TreeBuilder) Root() NodeID { return b.tree.Root }

// AddGroup appends a new child Group under parent and returns its id.
func (b *TreeBuilder) AddGroup(parent NodeID, g *Group) NodeID {
	if g.Opacity == 0 && g.Transform.IsIdentity() && g.BlendMode == 0 {
		// Leave zero-value Opacity (uninitialized caller) defaulting to
		// fully opaque rather than silently invisible.
		g.Opacity = 1
	}
	id := b.addNode(Node{Kind: KindGroup, Parent: parent, Group: g})
	b.attach(parent, id)
	return id
}

// AddPath appends a new child path under parent and returns its id.
func (b *TreeBuilder) AddPath(parent NodeID, p *PathDef) NodeID {
	id := b.addNode(Node{Kind: KindPath, Parent: parent, Path: p})
	b.attach(parent, id)
	return id
}

// AddImage appends a new child image under parent and returns its id.
func (b *TreeBuilder) AddImage(parent NodeID, img *ImageDef) NodeID {
	id := b.addNode(Node{Kind: KindImage, Parent: parent, Image: img})
	b.attach(parent, id)
	return id
}

func (b *TreeBuilder) attach(parent, child NodeID) {
	n := b.tree.Node(parent)
	if n == nil {
		return
	}
	n.Children = append(n.Children, child)
}

// DefineClipPath registers a named <clipPath> definition.
func (b *TreeBuilder) DefineClipPath(name string, cp *ClipPathDef) {
	b.tree.ClipPaths[name] = cp
}

// DefineMask registers a named <mask> definition.
func (b *TreeBuilder) DefineMask(name string, md *MaskDef) {
	b.tree.Masks[name] = md
}

// DefineFilter registers a named <filter> definition.
func (b *TreeBuilder) DefineFilter(name string, fd *FilterDef) {
	b.tree.Filters[name] = fd
}

// Build finalizes and returns the constructed Tree.
func (b *TreeBuilder) Build() *Tree {
	return b.tree
}
