// Package quadtree implements a dynamic spatial index for circles.
//
// Nodes cache the largest radius found in their subtree, which lets queries
// skip every region that cannot hold an entry overlapping the query circle.
// Leaves split when they overflow, branches merge back when their subtree
// empties out, and the root grows when an entry lands outside of it.
//
// A Quadtree is not safe for concurrent use. Callers write entry positions and
// radii between ticks, call Update once per tick, then query.
package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	DefaultSplitThreshold = 10
	DefaultMinSideLength  = 10
	DefaultMaxGrowth      = 64
)

// Options configures a Quadtree. Zero values select the defaults.
type Options struct {
	// The number of entries a leaf holds before it splits.
	SplitThreshold int

	// The subtree entry count below which a branch collapses back into a
	// leaf. Defaults to half of SplitThreshold.
	MergeThreshold int

	// Nodes whose width or height is not above this length never split. This
	// bounds the depth when many entries share a position.
	MinSideLength float32

	// The number of times the root may double while inserting a single
	// entry.
	MaxGrowth int
}

func (o Options) withDefaults() Options {
	if o.SplitThreshold <= 0 {
		o.SplitThreshold = DefaultSplitThreshold
	}
	if o.MergeThreshold <= 0 || o.MergeThreshold > o.SplitThreshold {
		o.MergeThreshold = o.SplitThreshold / 2
	}
	if o.MinSideLength <= 0 || !isFinite(o.MinSideLength) {
		o.MinSideLength = DefaultMinSideLength
	}
	if o.MaxGrowth <= 0 {
		o.MaxGrowth = DefaultMaxGrowth
	}
	return o
}

// Quadtree is a region quadtree of circles.
type Quadtree struct {
	opts  Options
	arena arena
	root  nodeID
	index index

	splits    int
	merges    int
	growths   int
	evictions int
}

// New creates a quadtree covering region.
func New(region Region, splitThreshold, mergeThreshold int, minSideLength float32) *Quadtree {
	return NewWithOptions(region, Options{
		SplitThreshold: splitThreshold,
		MergeThreshold: mergeThreshold,
		MinSideLength:  minSideLength,
	})
}

// NewWithOptions creates a quadtree covering region. A region without area is
// widened to the minimum side length so that it can grow.
func NewWithOptions(region Region, opts Options) *Quadtree {
	opts = opts.withDefaults()

	if region.Width() <= 0 {
		region.Right = region.Left + opts.MinSideLength
	}
	if region.Height() <= 0 {
		region.Top = region.Bottom + opts.MinSideLength
	}

	t := &Quadtree{
		opts:  opts,
		index: newIndex(),
	}
	t.root = t.arena.alloc(region, noNode)
	return t
}

func (t *Quadtree) Options() Options {
	return t.opts
}

// Bounds returns the region currently covered by the root.
func (t *Quadtree) Bounds() Region {
	return t.arena.get(t.root).region
}

// Len returns the number of indexed entries.
func (t *Quadtree) Len() int {
	return t.index.len()
}

func (t *Quadtree) Contains(h Handle) bool {
	_, ok := t.index.entry(h)
	return ok
}

// Entry returns the tracked entry with the given handle.
func (t *Quadtree) Entry(h Handle) (*Entry, bool) {
	return t.index.entry(h)
}

// Insert indexes e. The tree keeps a reference to e and reads its geometry on
// every Update. Inserting a handle that is already indexed replaces the
// previous entry.
//
// The root grows until it contains e. An error is returned when the geometry
// of e is not finite or when growing is not enough, in which case the tree is
// left unchanged.
func (t *Quadtree) Insert(e *Entry) error {
	if err := t.checkInsert(e); err != nil {
		return err
	}

	if _, ok := t.index.entry(e.Handle); ok {
		t.Remove(e.Handle)
	}
	return t.insert(e)
}

// checkInsert returns the error inserting e would fail with, without changing
// the tree.
func (t *Quadtree) checkInsert(e *Entry) error {
	if !e.hasFiniteGeometry() {
		return invalidGeometry(e)
	}

	if growths, ok := t.growthsNeeded(e.Position); !ok {
		return growthExhausted(e, t.Bounds(), growths)
	}
	return nil
}

func (t *Quadtree) insert(e *Entry) error {
	if err := t.checkInsert(e); err != nil {
		return err
	}

	for !t.arena.get(t.root).region.Contains(e.Position) {
		t.grow(e.Position)
	}

	t.index.track(e)
	t.insertAt(t.root, e)
	return nil
}

// insertAt descends from id to the leaf containing e, stores e there and
// splits the leaf when it overflows.
func (t *Quadtree) insertAt(id nodeID, e *Entry) {
	for {
		n := t.arena.get(id)
		if !n.branch {
			break
		}
		id = n.children[quadrantOf(n.mid, e.Position)]
	}

	if !t.arena.get(id).region.Contains(e.Position) {
		invariantViolation("descent reached a leaf that does not contain the entry", id)
	}

	t.index.apply(t.arena.appendEntry(id, e))
	t.arena.adjustSize(id, 1)
	t.arena.raiseRadius(id, e.Radius)
	t.splitIfNeeded(id)
}

func (t *Quadtree) splitIfNeeded(id nodeID) {
	n := t.arena.get(id)
	if n.branch ||
		len(n.entries) <= t.opts.SplitThreshold ||
		n.region.Width() <= t.opts.MinSideLength ||
		n.region.Height() <= t.opts.MinSideLength {
		return
	}
	t.split(id)
}

// split turns leaf id into a branch. Entries that drifted out of the leaf
// since the last update are pulled out first and reinserted from the root,
// since no child would contain them.
func (t *Quadtree) split(id nodeID) {
	n := t.arena.get(id)
	region := n.region
	entries := n.entries

	var staying, drifted []*Entry
	for _, e := range entries {
		if region.Contains(e.Position) {
			staying = append(staying, e)
		} else {
			drifted = append(drifted, e)
		}
	}

	mid := region.Center()
	quadrants := region.quadrantsAround(mid)

	var children [4]nodeID
	for i, q := range quadrants {
		children[i] = t.arena.alloc(q, id)
	}

	n = t.arena.get(id)
	n.branch = true
	n.mid = mid
	n.children = children
	n.entries = nil
	t.arena.adjustSize(id, -len(entries))

	for _, e := range staying {
		t.insertAt(children[quadrantOf(mid, e.Position)], e)
	}
	t.arena.refreshRadius(id)

	t.splits++
	instrumentStructuralChange(changeSplit)

	for _, e := range drifted {
		t.reinsert(e)
	}
}

// merge collapses branch id into a leaf holding every entry of its subtree.
// Entries are appended directly so the merged leaf never splits right away.
func (t *Quadtree) merge(id nodeID) {
	entries := t.arena.collect(id, nil)

	n := t.arena.get(id)
	n.branch = false
	n.mid = Vector2{}
	n.children = [4]nodeID{noNode, noNode, noNode, noNode}
	n.entries = make([]*Entry, 0, len(entries))

	deltas := make([]indexDelta, 0, len(entries))
	for _, e := range entries {
		deltas = append(deltas, t.arena.appendEntry(id, e))
	}
	t.index.apply(deltas...)
	t.arena.refreshRadius(id)

	t.merges++
	instrumentStructuralChange(changeMerge)
}

// reinsert inserts an entry that was already tracked. Entries that cannot be
// placed anymore are dropped from the tree.
func (t *Quadtree) reinsert(e *Entry) {
	if err := t.insert(e); err != nil {
		t.index.untrack(e.Handle)
		t.evictions++
		instrumentStructuralChange(changeEviction)

		logs.Warn(errors.New("evicting entry from quadtree").
			WithTag("handle", e.Handle).
			Wrap(err))
	}
}

// Remove removes the entry with handle h. It returns false when no such entry
// is indexed.
func (t *Quadtree) Remove(h Handle) bool {
	id, ok := t.index.lookup(h)
	if ok && t.arena.removeEntry(id, h) {
		instrumentRemoval(pathFast)
	} else if id, ok = t.arena.findAndRemove(t.root, h); ok {
		instrumentRemoval(pathSlow)
	} else {
		t.index.untrack(h)
		return false
	}

	t.index.untrack(h)
	t.arena.refreshRadius(id)
	t.mergeAbove(id)
	return true
}

// mergeAbove collapses the highest ancestor of id whose subtree fell below the
// merge threshold.
func (t *Quadtree) mergeAbove(id nodeID) {
	target := noNode
	for p := t.arena.get(id).parent; p != noNode; p = t.arena.get(p).parent {
		if t.arena.get(p).size >= t.opts.MergeThreshold {
			break
		}
		target = p
	}

	if target != noNode {
		t.merge(target)
	}
}
