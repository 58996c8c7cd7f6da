package quadtree

// Query returns the handles of every entry whose circle overlaps the circle at
// p with the given radius. The order of the results is unspecified.
func (t *Quadtree) Query(p Vector2, radius float32) []Handle {
	return t.query(p, radius, nil, nil)
}

// QueryEntry returns the handles of the entries overlapping e, excluding e
// itself.
func (t *Quadtree) QueryEntry(e *Entry) []Handle {
	return t.query(e.Position, e.Radius, &e.Handle, nil)
}

// QueryFor returns the handles of the entries overlapping the indexed entry
// with handle h, excluding h itself. It returns nil when h is not indexed.
func (t *Quadtree) QueryFor(h Handle) []Handle {
	e, ok := t.index.entry(h)
	if !ok {
		return nil
	}
	return t.QueryEntry(e)
}

func (t *Quadtree) query(p Vector2, radius float32, exclude *Handle, res []Handle) []Handle {
	if !p.IsFinite() || !isFinite(radius) {
		return res
	}

	stack := []nodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.arena.get(id)
		if n.region.DistanceTo(p) > n.maxRadius+radius {
			continue
		}

		if n.branch {
			stack = append(stack, n.children[:]...)
			continue
		}

		for _, e := range n.entries {
			if exclude != nil && e.Handle == *exclude {
				continue
			}
			if e.Overlaps(p, radius) {
				res = append(res, e.Handle)
			}
		}
	}
	return res
}
