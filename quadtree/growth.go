package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// grownRegion returns the region doubling bounds toward p, the split point of
// that region and the quadrant the old bounds take in it. It returns false
// when the doubled region is not finite.
func grownRegion(bounds Region, p Vector2) (region Region, mid Vector2, slot int, ok bool) {
	center := bounds.Center()
	w := bounds.Width()
	h := bounds.Height()

	region = bounds
	slot = quadrantBottomLeft

	if p.X >= center.X {
		region.Right = bounds.Right + w
		mid.X = bounds.Right
	} else {
		region.Left = bounds.Left - w
		mid.X = bounds.Left
		slot |= quadrantBottomRight
	}

	if p.Y >= center.Y {
		region.Top = bounds.Top + h
		mid.Y = bounds.Top
	} else {
		region.Bottom = bounds.Bottom - h
		mid.Y = bounds.Bottom
		slot |= quadrantTopLeft
	}

	return region, mid, slot, region.isFinite()
}

// growthsNeeded returns how many times the root must grow to contain p. It
// returns false when p cannot be reached within MaxGrowth doublings.
func (t *Quadtree) growthsNeeded(p Vector2) (int, bool) {
	bounds := t.Bounds()
	for growths := 0; growths <= t.opts.MaxGrowth; growths++ {
		if bounds.Contains(p) {
			return growths, true
		}

		region, _, _, ok := grownRegion(bounds, p)
		if !ok {
			return growths, false
		}
		bounds = region
	}
	return t.opts.MaxGrowth, false
}

// grow doubles the root toward p. The old root becomes the child on the
// opposite side of the growth direction and keeps its whole subtree, so no
// entry moves.
func (t *Quadtree) grow(p Vector2) {
	old := t.arena.get(t.root)
	bounds := old.region

	region, mid, slot, ok := grownRegion(bounds, p)
	if !ok {
		invariantViolation("root grown to a region that is not finite", t.root)
	}

	oldRoot := t.root
	size := old.size
	maxRadius := old.maxRadius

	root := t.arena.alloc(region, noNode)
	quadrants := region.quadrantsAround(mid)

	var children [4]nodeID
	for i, q := range quadrants {
		if i == slot {
			children[i] = oldRoot
			continue
		}
		children[i] = t.arena.alloc(q, root)
	}

	t.arena.get(oldRoot).parent = root

	n := t.arena.get(root)
	n.branch = true
	n.mid = mid
	n.children = children
	n.size = size
	n.maxRadius = maxRadius

	t.root = root
	t.growths++
	instrumentStructuralChange(changeGrowth)

	logs.WithTag("from", bounds).
		WithTag("to", region).
		WithTag("toward", p).
		Debug("quadtree root grown")
}
