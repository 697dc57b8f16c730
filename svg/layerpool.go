package svg

import "github.com/gogpu/svgrender"

// LayerPool hands out same-sized, transparent sub-surfaces to the
// compositor pipeline and reuses them once released, grounded on
// layers.rs's Layers: a LIFO free list keyed only by "how many are
// currently checked out", not by a generic size/format bucket map —
// every sub-surface in a single render pass is exactly the canvas's root
// size, so no bucketing is needed.
//
// Leases are refcounted rather than returned to a free-list slice
// directly because group.go's pipeline nests borrows (a group's own
// sub-surface, plus a second surface for its clip mask, plus a third for
// its mask-luminance buffer can all be live at once); LIFO reuse only
// works if "currently checked out" is tracked precisely.
type LayerPool struct {
	size   ScreenSize
	surfs  []*PixmapCanvas
	leased int // number of surfaces currently on loan
}

// NewLayerPool creates a pool that lends out canvases of the given size.
func NewLayerPool(size ScreenSize) *LayerPool {
	return &LayerPool{size: size}
}

// Layer is a leased canvas. Callers must call Release exactly once when
// done, typically via `defer layer.Release()` immediately after Get
// succeeds — Go has no destructor to do this automatically the way
// layers.rs's Drop impl does.
type Layer struct {
	Canvas *PixmapCanvas
	pool   *LayerPool
	index  int
}

// Get borrows a canvas, allocating a new one only if every previously
// allocated surface is currently on loan (mirrors Layers::get: reuse
// d[used_layers] when used_layers < d.len(), otherwise push a fresh one).
// Returns ok=false on allocation failure (spec §7 kind 1), logging a
// warning and leaving the caller to skip whatever subtree needed this
// layer rather than panicking, matching internal/image.Pool.Get's own
// nil-on-failure contract.
func (p *LayerPool) Get() (*Layer, bool) {
	if p.size.Width <= 0 || p.size.Height <= 0 {
		gg.Logger().Warn("Failed to create a WxH surface", "width", p.size.Width, "height", p.size.Height)
		return nil, false
	}
	var canvas *PixmapCanvas
	if p.leased < len(p.surfs) {
		canvas = p.surfs[p.leased]
		canvas.ClearWith([4]float64{0, 0, 0, 0})
	} else {
		canvas = NewPixmapCanvas(p.size)
		p.surfs = append(p.surfs, canvas)
	}
	index := p.leased
	p.leased++
	return &Layer{Canvas: canvas, pool: p, index: index}, true
}

// Release returns the layer to the pool. Calling Release more than once,
// or out of LIFO order relative to sibling leases still outstanding, is a
// caller bug; the pool does not attempt to detect it, matching the
// original's reliance on Rust's move semantics to make the mistake
// unrepresentable rather than runtime-checked.
func (l *Layer) Release() {
	if l == nil || l.pool == nil {
		return
	}
	if l.pool.leased > 0 {
		l.pool.leased--
	}
	l.pool = nil
}

// InUse reports how many surfaces are currently leased, exposed for tests
// asserting the pool returns to zero after a render pass completes.
func (p *LayerPool) InUse() int { return p.leased }

// Allocated reports how many distinct surfaces this pool has ever
// allocated, exposed for tests asserting reuse actually happens (the
// count should stop growing once the deepest nesting level is reached).
func (p *LayerPool) Allocated() int { return len(p.surfs) }
