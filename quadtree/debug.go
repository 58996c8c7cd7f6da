package quadtree

// DebugInfo summarizes the shape of a tree.
type DebugInfo struct {
	Bounds     Region `json:"bounds"`
	NodeCount  int    `json:"node_count"`
	LeafCount  int    `json:"leaf_count"`
	MaxDepth   int    `json:"max_depth"`
	EntryCount int    `json:"entry_count"`
	Splits     int    `json:"splits"`
	Merges     int    `json:"merges"`
	Growths    int    `json:"growths"`
	Evictions  int    `json:"evictions"`
}

func (t *Quadtree) DebugInfo() DebugInfo {
	info := DebugInfo{
		Bounds:    t.Bounds(),
		Splits:    t.splits,
		Merges:    t.merges,
		Growths:   t.growths,
		Evictions: t.evictions,
	}

	t.walk(t.root, 0, func(n *node, depth int) {
		info.NodeCount++
		if depth > info.MaxDepth {
			info.MaxDepth = depth
		}
		if !n.branch {
			info.LeafCount++
			info.EntryCount += len(n.entries)
		}
	})
	return info
}

// VisitNodes calls fn for every node, parents before children. entryCount is
// the number of entries stored in the node, which is always 0 for branches.
func (t *Quadtree) VisitNodes(fn func(region Region, depth, entryCount int)) {
	t.walk(t.root, 0, func(n *node, depth int) {
		fn(n.region, depth, len(n.entries))
	})
}

func (t *Quadtree) walk(id nodeID, depth int, fn func(n *node, depth int)) {
	n := t.arena.get(id)
	fn(n, depth)

	if n.branch {
		for _, c := range n.children {
			t.walk(c, depth+1, fn)
		}
	}
}
