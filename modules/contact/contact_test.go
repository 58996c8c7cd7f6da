package contact

import (
	"testing"
	"time"

	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/quadtree"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T) *models.World {
	world := models.NewWorld(1, time.Second, quadtree.NewRegion(0, 0, 100, 100), quadtree.Options{
		SplitThreshold: 4,
		MinSideLength:  1,
	})
	t.Cleanup(world.Close)
	return world
}

func addBody(t *testing.T, w *models.World, kind models.BodyKind, x, y, radius, vx float32) *models.Body {
	b, err := w.AddBody(kind, quadtree.Vector2{X: x, Y: y}, radius, quadtree.Vector2{X: vx})
	require.NoError(t, err)
	return b
}

func TestModuleInit(t *testing.T) {
	world := newTestWorld(t)

	_, ok := StateOf(world)
	require.False(t, ok)

	var a, b Module
	a.Init(world)
	b.Init(world)

	state, ok := StateOf(world)
	require.True(t, ok)
	require.Same(t, state, a.state)
	require.Same(t, state, b.state)
}

func TestModuleHandleFrame(t *testing.T) {
	world := newTestWorld(t)

	var m Module
	m.Init(world)

	var frames [][]Event
	cancel := m.state.Subscribe(func(events []Event) {
		frames = append(frames, events)
	})
	defer cancel()

	detector := addBody(t, world, models.BodyKindDetector, 10, 10, 2, 10)
	wall := addBody(t, world, models.BodyKindStatic, 33, 10, 2, 0)
	far := addBody(t, world, models.BodyKindStatic, 80, 80, 1, 0)

	step := func() []Event {
		frames = nil
		world.Step(time.Second)
		m.HandleFrame()

		if len(frames) == 0 {
			return nil
		}
		require.Len(t, frames, 1)
		return frames[0]
	}

	t.Run("no contact", func(t *testing.T) {
		require.Empty(t, step())
		require.Empty(t, m.state.Contacts(detector.ID))
	})

	t.Run("enter", func(t *testing.T) {
		events := step()
		require.Equal(t, []Event{{
			Type:     EventEnter,
			World:    world.UUID,
			Frame:    2,
			Detector: detector.ID,
			Other:    wall.ID,
		}}, events)
		require.Equal(t, []quadtree.Handle{wall.ID}, m.state.Contacts(detector.ID))
		require.Equal(t, []quadtree.Handle{detector.ID}, m.state.Detectors())
	})

	t.Run("stay", func(t *testing.T) {
		detector.SetVelocity(quadtree.Vector2{X: 1})

		events := step()
		require.Len(t, events, 1)
		require.Equal(t, EventStay, events[0].Type)
		require.Equal(t, wall.ID, events[0].Other)
	})

	t.Run("exit when the other body leaves", func(t *testing.T) {
		require.True(t, world.RemoveBody(wall.ID))

		events := step()
		require.Len(t, events, 1)
		require.Equal(t, EventExit, events[0].Type)
		require.Equal(t, wall.ID, events[0].Other)
		require.Empty(t, m.state.Contacts(detector.ID))
	})

	t.Run("exit when the detector leaves", func(t *testing.T) {
		detector.SetVelocity(quadtree.Vector2{})
		detector.SetPosition(quadtree.Vector2{X: 80, Y: 80})

		events := step()
		require.Len(t, events, 1)
		require.Equal(t, EventEnter, events[0].Type)
		require.Equal(t, far.ID, events[0].Other)

		require.True(t, world.RemoveBody(detector.ID))

		events = step()
		require.Len(t, events, 1)
		require.Equal(t, EventExit, events[0].Type)
		require.Equal(t, detector.ID, events[0].Detector)
		require.Empty(t, m.state.Detectors())
	})
}

func TestStateSubscribe(t *testing.T) {
	var s State

	var received int
	cancel := s.Subscribe(func(events []Event) {
		received += len(events)
	})
	require.Equal(t, 1, s.SubscriberCount())

	s.notify([]Event{{Type: EventEnter}, {Type: EventExit}})
	require.Equal(t, 2, received)

	cancel()
	cancel()
	require.Zero(t, s.SubscriberCount())

	s.notify([]Event{{Type: EventEnter}})
	require.Equal(t, 2, received)
}

func TestStateDiff(t *testing.T) {
	var s State

	events := s.diff(map[quadtree.Handle]map[quadtree.Handle]struct{}{
		1: {2: {}, 3: {}},
	})
	require.Equal(t, []Event{
		{Type: EventEnter, Detector: 1, Other: 2},
		{Type: EventEnter, Detector: 1, Other: 3},
	}, events)

	events = s.diff(map[quadtree.Handle]map[quadtree.Handle]struct{}{
		1: {3: {}, 4: {}},
	})
	require.Equal(t, []Event{
		{Type: EventExit, Detector: 1, Other: 2},
		{Type: EventStay, Detector: 1, Other: 3},
		{Type: EventEnter, Detector: 1, Other: 4},
	}, events)

	events = s.diff(nil)
	require.Equal(t, []Event{
		{Type: EventExit, Detector: 1, Other: 3},
		{Type: EventExit, Detector: 1, Other: 4},
	}, events)
	require.Empty(t, s.Contacts(1))
	require.Empty(t, s.diff(nil))
}
