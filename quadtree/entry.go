package quadtree

// Handle identifies an indexed object. Two entries are the same entry when
// their handles are equal, whatever their geometry.
type Handle uint32

// Entry is a circle tracked by a Quadtree. The caller owns it and may change
// Position and Radius at any time; the tree picks the changes up on the next
// Update.
type Entry struct {
	Handle   Handle
	Position Vector2
	Radius   float32
}

func (e *Entry) hasFiniteGeometry() bool {
	return e.Position.IsFinite() && isFinite(e.Radius)
}

// Overlaps reports whether the circle at p with radius r touches the entry.
// Touching circles overlap.
func (e *Entry) Overlaps(p Vector2, r float32) bool {
	return Distance(p, e.Position) <= r+e.Radius
}
