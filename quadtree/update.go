package quadtree

import (
	"time"
)

// Update reconciles the tree with the positions and radii written by the
// caller since the last call. Entries that left their leaf are reinserted,
// underfull branches collapse, then every cached max radius is rebuilt.
//
// Radii are rebuilt after positions so the cached values describe where
// entries ended up, not where they were.
func (t *Quadtree) Update() {
	defer instrumentUpdateLatency(time.Now())

	t.reposition(t.root)
	t.recomputeRadius(t.root)
}

func (t *Quadtree) reposition(id nodeID) {
	n := t.arena.get(id)

	if n.branch {
		// Children may be released by merges triggered further down.
		children := n.children
		for _, c := range children {
			if t.arena.valid(c) && t.arena.get(c).parent == id {
				t.reposition(c)
			}
		}

		if n = t.arena.get(id); n.branch && n.size < t.opts.MergeThreshold {
			t.merge(id)
		}
		return
	}

	region := n.region
	kept := n.entries[:0]
	var moved []*Entry

	for _, e := range n.entries {
		if region.Contains(e.Position) && isFinite(e.Radius) {
			kept = append(kept, e)
		} else {
			moved = append(moved, e)
		}
	}
	if len(moved) == 0 {
		return
	}

	for i := len(kept); i < len(n.entries); i++ {
		n.entries[i] = nil
	}
	n.entries = kept
	t.arena.adjustSize(id, -len(moved))

	for _, e := range moved {
		t.index.apply(indexDelta{handle: e.Handle, node: noNode})
		t.reinsert(e)
	}
}

// recomputeRadius rebuilds the cached max radius of every node below id,
// children first.
func (t *Quadtree) recomputeRadius(id nodeID) float32 {
	n := t.arena.get(id)
	r := emptyRadius

	if n.branch {
		children := n.children
		for _, c := range children {
			if cr := t.recomputeRadius(c); cr > r {
				r = cr
			}
		}
	} else {
		r = t.arena.localRadius(id)
	}

	t.arena.get(id).maxRadius = r
	return r
}
