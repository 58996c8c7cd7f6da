package quadtree

// indexDelta records where an entry now lives. A delta whose node is noNode
// unmaps the entry.
type indexDelta struct {
	handle Handle
	node   nodeID
}

// index maps handles to the leaf holding them and to the tracked entries.
//
// The node mapping is a cache: structural changes report deltas that keep it
// current, but removal never trusts it blindly and falls back to a full
// scan when it is stale.
type index struct {
	nodes   map[Handle]nodeID
	entries map[Handle]*Entry
}

func newIndex() index {
	return index{
		nodes:   make(map[Handle]nodeID),
		entries: make(map[Handle]*Entry),
	}
}

func (x *index) apply(deltas ...indexDelta) {
	for _, d := range deltas {
		if d.node == noNode {
			delete(x.nodes, d.handle)
			continue
		}
		x.nodes[d.handle] = d.node
	}
}

func (x *index) track(e *Entry) {
	x.entries[e.Handle] = e
}

func (x *index) untrack(h Handle) {
	delete(x.entries, h)
	delete(x.nodes, h)
}

func (x *index) lookup(h Handle) (nodeID, bool) {
	id, ok := x.nodes[h]
	return id, ok
}

func (x *index) entry(h Handle) (*Entry, bool) {
	e, ok := x.entries[h]
	return e, ok
}

func (x *index) len() int {
	return len(x.entries)
}
