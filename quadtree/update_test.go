package quadtree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuadtreeUpdateRepositions(t *testing.T) {
	tree := New(NewRegion(0, 0, 16, 16), 2, 1, 1)

	entries := []*Entry{
		{Handle: 0, Position: Vector2{1, 1}},
		{Handle: 1, Position: Vector2{15, 1}},
		{Handle: 2, Position: Vector2{1, 15}},
		{Handle: 3, Position: Vector2{15, 15}},
	}
	for _, e := range entries {
		require.NoError(t, tree.Insert(e))
	}

	entries[0].Position = Vector2{14, 14}
	tree.Update()
	requireValidTree(t, tree)

	require.Empty(t, tree.Query(Vector2{1, 1}, 1))
	require.Equal(t, []Handle{0, 3}, sortedHandles(tree.Query(Vector2{14.5, 14.5}, 1)))

	leaf, ok := tree.index.lookup(0)
	require.True(t, ok)
	require.True(t, tree.arena.get(leaf).region.Contains(Vector2{14, 14}))
}

func TestQuadtreeUpdateRadiusFollowsPosition(t *testing.T) {
	tree := New(NewRegion(0, 0, 16, 16), 2, 1, 1)

	a := &Entry{Handle: 0, Position: Vector2{1, 1}}
	for _, e := range []*Entry{
		a,
		{Handle: 1, Position: Vector2{15, 1}},
		{Handle: 2, Position: Vector2{1, 15}},
		{Handle: 3, Position: Vector2{15, 15}},
	} {
		require.NoError(t, tree.Insert(e))
	}

	// Grow the detection radius while moving into the top right quadrant. A
	// query probing only that side must see the new radius.
	a.Position = Vector2{12, 12}
	a.Radius = 5
	tree.Update()
	requireValidTree(t, tree)

	require.Equal(t, []Handle{0}, tree.Query(Vector2{12, 17.5}, 0.5))
	require.Empty(t, tree.Query(Vector2{1, 7}, 0.5))

	a.Radius = 0
	tree.Update()
	require.Empty(t, tree.Query(Vector2{12, 17.5}, 0.5))
	requireValidTree(t, tree)
}

func TestQuadtreeUpdateGrows(t *testing.T) {
	tree := New(NewRegion(0, 0, 10, 10), 4, 2, 1)

	e := &Entry{Handle: 1, Position: Vector2{5, 5}}
	require.NoError(t, tree.Insert(e))

	e.Position = Vector2{-30, 42}
	tree.Update()

	require.True(t, tree.Bounds().Contains(e.Position))
	require.Greater(t, tree.DebugInfo().Growths, 0)
	require.Equal(t, []Handle{1}, tree.Query(Vector2{-30, 42}, 0))
	requireValidTree(t, tree)
}

func TestQuadtreeUpdateEvictsNonFiniteEntries(t *testing.T) {
	tree := New(NewRegion(0, 0, 10, 10), 4, 2, 1)

	good := &Entry{Handle: 1, Position: Vector2{2, 2}, Radius: 1}
	bad := &Entry{Handle: 2, Position: Vector2{3, 3}, Radius: 1}
	require.NoError(t, tree.Insert(good))
	require.NoError(t, tree.Insert(bad))

	bad.Position.X = float32(math.NaN())
	tree.Update()

	require.Equal(t, 1, tree.Len())
	require.False(t, tree.Contains(2))
	require.Equal(t, 1, tree.DebugInfo().Evictions)
	require.False(t, tree.Remove(2))

	good.Radius = float32(math.Inf(1))
	tree.Update()
	require.Zero(t, tree.Len())
	require.Equal(t, 2, tree.DebugInfo().Evictions)
	requireValidTree(t, tree)
}

func TestQuadtreeUpdateMerges(t *testing.T) {
	tree := New(NewRegion(0, 0, 16, 16), 2, 2, 1)

	entries := []*Entry{
		{Handle: 0, Position: Vector2{1, 1}},
		{Handle: 1, Position: Vector2{2, 2}},
		{Handle: 2, Position: Vector2{3, 3}},
	}
	for _, e := range entries {
		require.NoError(t, tree.Insert(e))
	}
	require.Greater(t, tree.DebugInfo().MaxDepth, 1)

	for i, e := range entries {
		e.Position = Vector2{15 - float32(i), 15 - float32(i)}
	}
	tree.Update()
	requireValidTree(t, tree)

	info := tree.DebugInfo()
	require.Greater(t, info.Merges, 0)
	require.Equal(t, 3, info.EntryCount)
	require.Empty(t, tree.Query(Vector2{2, 2}, 2))
	require.Equal(t, []Handle{0, 1, 2}, sortedHandles(tree.Query(Vector2{14, 14}, 1.5)))

	// The bottom left quadrant is a single empty leaf again.
	var leaves int
	bottomLeft := NewRegion(0, 0, 8, 8)
	tree.VisitNodes(func(region Region, depth, entryCount int) {
		if region == bottomLeft {
			leaves++
			require.Equal(t, 1, depth)
			require.Zero(t, entryCount)
		}
	})
	require.Equal(t, 1, leaves)
}

func TestQuadtreeUpdateWithoutChanges(t *testing.T) {
	tree := New(NewRegion(0, 0, 16, 16), 2, 1, 1)
	for i := 0; i < 10; i++ {
		require.NoError(t, tree.Insert(&Entry{
			Handle:   Handle(i),
			Position: Vector2{float32(i), float32(16 - i)},
			Radius:   float32(i) / 10,
		}))
	}

	before := tree.DebugInfo()
	tree.Update()
	tree.Update()
	require.Equal(t, before, tree.DebugInfo())
	requireValidTree(t, tree)
}
