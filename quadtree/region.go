package quadtree

import (
	"math"
)

// Vector2 is a point or a displacement in the plane.
type Vector2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func NewVector2(x, y float32) Vector2 {
	return Vector2{X: x, Y: y}
}

func (v Vector2) Add(o Vector2) Vector2 {
	return Vector2{v.X + o.X, v.Y + o.Y}
}

func (v Vector2) Sub(o Vector2) Vector2 {
	return Vector2{v.X - o.X, v.Y - o.Y}
}

func (v Vector2) Mul(s float32) Vector2 {
	return Vector2{v.X * s, v.Y * s}
}

func (v Vector2) Length() float32 {
	return (float32)(math.Hypot((float64)(v.X), (float64)(v.Y)))
}

// IsFinite reports whether both coordinates are neither NaN nor infinite.
func (v Vector2) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

func Distance(a, b Vector2) float32 {
	return a.Sub(b).Length()
}

func isFinite(f float32) bool {
	return !math.IsNaN((float64)(f)) && !math.IsInf((float64)(f), 0)
}

// Region is an axis-aligned rectangle. Y grows upward, so Top >= Bottom.
type Region struct {
	Top    float32 `json:"top"`
	Right  float32 `json:"right"`
	Bottom float32 `json:"bottom"`
	Left   float32 `json:"left"`
}

// NewRegion creates a region from its bottom-left corner and its size.
// Negative sizes are clamped to zero.
func NewRegion(x, y, width, height float32) Region {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	return Region{
		Top:    y + height,
		Right:  x + width,
		Bottom: y,
		Left:   x,
	}
}

func (r Region) Width() float32 {
	return r.Right - r.Left
}

func (r Region) Height() float32 {
	return r.Top - r.Bottom
}

func (r Region) Center() Vector2 {
	return Vector2{
		X: r.Left + r.Width()/2,
		Y: r.Bottom + r.Height()/2,
	}
}

// Contains reports whether p lies in the region. All four edges are inclusive.
func (r Region) Contains(p Vector2) bool {
	return p.X >= r.Left && p.X <= r.Right &&
		p.Y >= r.Bottom && p.Y <= r.Top
}

// DistanceTo returns the distance from p to the closest point of the region,
// or 0 when p is inside.
func (r Region) DistanceTo(p Vector2) float32 {
	var dx, dy float32

	if p.X < r.Left {
		dx = r.Left - p.X
	} else if p.X > r.Right {
		dx = p.X - r.Right
	}

	if p.Y < r.Bottom {
		dy = r.Bottom - p.Y
	} else if p.Y > r.Top {
		dy = p.Y - r.Top
	}

	if dx == 0 && dy == 0 {
		return 0
	}
	return Vector2{dx, dy}.Length()
}

// Quadrants splits the region at its center. See quadrantsAround for the
// ordering.
func (r Region) Quadrants() [4]Region {
	return r.quadrantsAround(r.Center())
}

// quadrantsAround splits the region at mid. Every sub-region takes its inner
// edges from mid itself so neighbors share bit-identical edges.
//
// Order: bottom-left, bottom-right, top-left, top-right, which matches
// quadrantOf.
func (r Region) quadrantsAround(mid Vector2) [4]Region {
	return [4]Region{
		{Top: mid.Y, Right: mid.X, Bottom: r.Bottom, Left: r.Left},
		{Top: mid.Y, Right: r.Right, Bottom: r.Bottom, Left: mid.X},
		{Top: r.Top, Right: mid.X, Bottom: mid.Y, Left: r.Left},
		{Top: r.Top, Right: r.Right, Bottom: mid.Y, Left: mid.X},
	}
}

const (
	quadrantBottomLeft = iota
	quadrantBottomRight
	quadrantTopLeft
	quadrantTopRight
)

// quadrantOf returns the quadrant index of p relative to mid. Points on the
// split lines go right and up, so every point maps to exactly one quadrant.
func quadrantOf(mid Vector2, p Vector2) int {
	i := quadrantBottomLeft
	if p.X >= mid.X {
		i |= quadrantBottomRight
	}
	if p.Y >= mid.Y {
		i |= quadrantTopLeft
	}
	return i
}

func (r Region) isFinite() bool {
	return isFinite(r.Top) && isFinite(r.Right) && isFinite(r.Bottom) && isFinite(r.Left)
}
