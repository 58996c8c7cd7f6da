package quadtree

import (
	"math"
)

type nodeID int32

const noNode nodeID = -1

// The max radius of a subtree without entries. Lower than any real radius so
// that empty regions are always pruned.
var emptyRadius = (float32)(math.Inf(-1))

// node is either a leaf holding entries or a branch holding exactly four
// children, never both.
type node struct {
	region Region
	parent nodeID

	branch   bool
	mid      Vector2
	children [4]nodeID

	entries []*Entry

	// Largest entry radius in the subtree.
	maxRadius float32

	// Number of entries in the subtree.
	size int

	released bool
}

func (n *node) isLeaf() bool {
	return !n.released && !n.branch
}

// arena owns every node of a tree. Nodes refer to each other by id so parent
// links are plain indexes rather than owning pointers.
//
// Pointers returned by get are only valid until the next alloc.
type arena struct {
	nodes []node
	free  []nodeID
}

func (a *arena) alloc(region Region, parent nodeID) nodeID {
	n := node{
		region:    region,
		parent:    parent,
		children:  [4]nodeID{noNode, noNode, noNode, noNode},
		maxRadius: emptyRadius,
	}

	if l := len(a.free); l > 0 {
		id := a.free[l-1]
		a.free = a.free[:l-1]
		a.nodes[id] = n
		return id
	}

	a.nodes = append(a.nodes, n)
	return nodeID(len(a.nodes) - 1)
}

func (a *arena) release(id nodeID) {
	a.nodes[id] = node{
		parent:    noNode,
		children:  [4]nodeID{noNode, noNode, noNode, noNode},
		maxRadius: emptyRadius,
		released:  true,
	}
	a.free = append(a.free, id)
}

func (a *arena) get(id nodeID) *node {
	return &a.nodes[id]
}

func (a *arena) valid(id nodeID) bool {
	return id >= 0 && int(id) < len(a.nodes) && !a.nodes[id].released
}

// adjustSize adds delta to the entry count of id and all its ancestors.
func (a *arena) adjustSize(id nodeID, delta int) {
	for id != noNode {
		n := a.get(id)
		n.size += delta
		id = n.parent
	}
}

// raiseRadius propagates r upward for as long as it increases an ancestor's
// cached max.
func (a *arena) raiseRadius(id nodeID, r float32) {
	for id != noNode {
		n := a.get(id)
		if n.maxRadius >= r {
			return
		}
		n.maxRadius = r
		id = n.parent
	}
}

// refreshRadius recomputes the cached max of id from its direct content and
// propagates upward while the value changes.
func (a *arena) refreshRadius(id nodeID) {
	for id != noNode {
		n := a.get(id)
		r := a.localRadius(id)
		if r == n.maxRadius {
			return
		}
		n.maxRadius = r
		id = n.parent
	}
}

// localRadius returns the max radius of a node computed from its entries, or
// from its children's cached values for a branch.
func (a *arena) localRadius(id nodeID) float32 {
	n := a.get(id)
	r := emptyRadius

	if n.branch {
		for _, c := range n.children {
			if cr := a.get(c).maxRadius; cr > r {
				r = cr
			}
		}
		return r
	}

	for _, e := range n.entries {
		if e.Radius > r {
			r = e.Radius
		}
	}
	return r
}

// appendEntry stores e in the leaf without touching counts or radii.
func (a *arena) appendEntry(id nodeID, e *Entry) indexDelta {
	n := a.get(id)
	n.entries = append(n.entries, e)
	return indexDelta{handle: e.Handle, node: id}
}

// removeEntry removes the entry with handle h from leaf id.
func (a *arena) removeEntry(id nodeID, h Handle) bool {
	if !a.valid(id) {
		return false
	}

	n := a.get(id)
	if n.branch {
		return false
	}

	for i, e := range n.entries {
		if e.Handle != h {
			continue
		}

		last := len(n.entries) - 1
		n.entries[i] = n.entries[last]
		n.entries[last] = nil
		n.entries = n.entries[:last]
		a.adjustSize(id, -1)
		return true
	}
	return false
}

// findAndRemove searches the whole subtree of id for h and returns the leaf it
// was removed from.
func (a *arena) findAndRemove(id nodeID, h Handle) (nodeID, bool) {
	n := a.get(id)
	if !n.branch {
		if a.removeEntry(id, h) {
			return id, true
		}
		return noNode, false
	}

	for _, c := range n.children {
		if leaf, ok := a.findAndRemove(c, h); ok {
			return leaf, true
		}
	}
	return noNode, false
}

// collect appends every entry below id to entries and releases the
// descendants of id. id itself stays allocated.
func (a *arena) collect(id nodeID, entries []*Entry) []*Entry {
	n := a.get(id)
	if !n.branch {
		return append(entries, n.entries...)
	}

	for _, c := range n.children {
		entries = a.collect(c, entries)
		a.release(c)
	}
	return entries
}
