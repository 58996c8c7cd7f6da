package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/aukilabs/broadphase/featureflag"
	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/modules"
	"github.com/aukilabs/broadphase/modules/contact"
	"github.com/aukilabs/broadphase/quadtree"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, withContacts bool) (*models.WorldStore, string) {
	store := &models.WorldStore{}

	world := models.NewWorld(store.NewID(), 10*time.Millisecond, quadtree.NewRegion(0, 0, 100, 100), quadtree.Options{})
	require.NoError(t, store.Add(context.Background(), world))
	t.Cleanup(func() {
		store.Remove(context.Background(), world)
	})

	if withContacts {
		detach := modules.Attach(world, &contact.Module{})
		t.Cleanup(detach)
	}

	go world.StartDispatchFrames()
	return store, store.GlobalWorldID(world.ID)
}

func newTestHandler(store *models.WorldStore, flags ...string) func() Handler {
	return func() Handler {
		var h Handler = &ContactHandler{
			ClientSyncClockInterval: 250 * time.Millisecond,
			ClientIdleTimeout:       time.Minute,
			Worlds:                  store,
			FeatureFlags:            featureflag.New(flags),
		}

		h = HandlerWithLogs(h, 100*time.Millisecond)
		h = HandlerWithMetrics(h, "https://broadphase-test.com")
		return h
	}
}

func TestContactHandlerWorldJoin(t *testing.T) {
	t.Run("joins a world and receives its state", func(t *testing.T) {
		store, worldID := newTestStore(t, true)
		world, _ := store.GetByGlobalID(worldID)

		_, err := world.AddBody(models.BodyKindStatic, quadtree.Vector2{X: 50, Y: 50}, 1, quadtree.Vector2{})
		require.NoError(t, err)

		dial, close := NewTestingEnv(t, newTestHandler(store))
		defer close()

		conn := dial(worldID)

		var join WorldJoinData
		require.NoError(t, ReceiveType(t, conn, MsgTypeWorldJoin).DataTo(&join))
		require.Equal(t, worldID, join.WorldID)
		require.Equal(t, world.UUID, join.WorldUUID)

		var bodies []models.BodyState
		require.NoError(t, ReceiveType(t, conn, MsgTypeWorldState).DataTo(&bodies))
		require.Len(t, bodies, 1)
		require.Equal(t, models.BodyKindStatic, bodies[0].Kind)
	})

	t.Run("unknown world", func(t *testing.T) {
		store, _ := newTestStore(t, true)

		dial, close := NewTestingEnv(t, newTestHandler(store))
		defer close()

		conn := dial("bpx42")

		var data ErrorData
		require.NoError(t, ReceiveType(t, conn, MsgTypeError).DataTo(&data))
		require.Equal(t, ErrorCodeNotFound, data.Code)
	})

	t.Run("world without contact events", func(t *testing.T) {
		store, worldID := newTestStore(t, false)

		dial, close := NewTestingEnv(t, newTestHandler(store))
		defer close()

		conn := dial(worldID)

		var data ErrorData
		require.NoError(t, ReceiveType(t, conn, MsgTypeError).DataTo(&data))
		require.Equal(t, ErrorCodeDisabled, data.Code)
	})
}

func TestContactHandlerPing(t *testing.T) {
	store, worldID := newTestStore(t, true)

	dial, close := NewTestingEnv(t, newTestHandler(store))
	defer close()

	conn := dial(worldID)
	ReceiveType(t, conn, MsgTypeWorldJoin)

	SendMsg(t, conn, MsgTypePing, 7, nil)
	require.Equal(t, uint32(7), ReceiveType(t, conn, MsgTypePong).RequestID)
}

func TestContactHandlerContactEvents(t *testing.T) {
	store, worldID := newTestStore(t, true)
	world, _ := store.GetByGlobalID(worldID)

	dial, close := NewTestingEnv(t, newTestHandler(store))
	defer close()

	conn := dial(worldID)
	ReceiveType(t, conn, MsgTypeWorldJoin)

	SendMsg(t, conn, MsgTypeBodyAddRequest, 1, BodyAddData{
		Kind:   string(models.BodyKindDetector),
		X:      10,
		Y:      10,
		Radius: 2,
	})
	SendMsg(t, conn, MsgTypeBodyAddRequest, 2, BodyAddData{
		Kind:   string(models.BodyKindStatic),
		X:      12,
		Y:      10,
		Radius: 2,
	})

	// Contact events can be sent before the second response.
	var detector, wall BodyAddResponseData
	var events []contact.Event
	for wall.BodyID == 0 || len(events) == 0 {
		msg, _, err := Receive(conn)
		require.NoError(t, err)

		switch {
		case msg.Type == MsgTypeBodyAddResponse && msg.RequestID == 1:
			require.NoError(t, msg.DataTo(&detector))

		case msg.Type == MsgTypeBodyAddResponse && msg.RequestID == 2:
			require.NoError(t, msg.DataTo(&wall))

		case msg.Type == MsgTypeContactEvents && len(events) == 0:
			require.NoError(t, msg.DataTo(&events))
		}
	}

	require.Len(t, events, 1)
	require.Equal(t, contact.EventEnter, events[0].Type)
	require.Equal(t, world.UUID, events[0].World)
	require.Equal(t, quadtree.Handle(detector.BodyID), events[0].Detector)
	require.Equal(t, quadtree.Handle(wall.BodyID), events[0].Other)

	x := float32(80)
	SendMsg(t, conn, MsgTypeBodyUpdate, 3, BodyUpdateData{
		BodyID: wall.BodyID,
		X:      &x,
	})

	for {
		require.NoError(t, ReceiveType(t, conn, MsgTypeContactEvents).DataTo(&events))
		if events[0].Type == contact.EventExit {
			break
		}
		require.Equal(t, contact.EventStay, events[0].Type)
	}

	SendMsg(t, conn, MsgTypeBodyRemoveRequest, 4, BodyRemoveData{BodyID: wall.BodyID})
	require.Equal(t, uint32(4), ReceiveType(t, conn, MsgTypeBodyRemoveResponse).RequestID)

	_, ok := world.BodyByID(quadtree.Handle(wall.BodyID))
	require.False(t, ok)
}

func TestContactHandlerBodyControl(t *testing.T) {
	t.Run("invalid geometry", func(t *testing.T) {
		store, worldID := newTestStore(t, true)

		dial, close := NewTestingEnv(t, newTestHandler(store))
		defer close()

		conn := dial(worldID)
		ReceiveType(t, conn, MsgTypeWorldJoin)

		SendMsg(t, conn, MsgTypeBodyAddRequest, 1, BodyAddData{Radius: -1})

		var data ErrorData
		res := ReceiveType(t, conn, MsgTypeError)
		require.Equal(t, uint32(1), res.RequestID)
		require.NoError(t, res.DataTo(&data))
		require.Equal(t, ErrorCodeBadRequest, data.Code)
	})

	t.Run("body owned by another client", func(t *testing.T) {
		store, worldID := newTestStore(t, true)
		world, _ := store.GetByGlobalID(worldID)

		body, err := world.AddBody(models.BodyKindStatic, quadtree.Vector2{X: 50, Y: 50}, 1, quadtree.Vector2{})
		require.NoError(t, err)

		dial, close := NewTestingEnv(t, newTestHandler(store))
		defer close()

		conn := dial(worldID)
		ReceiveType(t, conn, MsgTypeWorldJoin)

		SendMsg(t, conn, MsgTypeBodyRemoveRequest, 1, BodyRemoveData{BodyID: uint32(body.ID)})

		var data ErrorData
		require.NoError(t, ReceiveType(t, conn, MsgTypeError).DataTo(&data))
		require.Equal(t, ErrorCodeUnauthorized, data.Code)
		require.Equal(t, 1, world.BodyCount())
	})

	t.Run("disabled", func(t *testing.T) {
		store, worldID := newTestStore(t, true)

		dial, close := NewTestingEnv(t, newTestHandler(store, string(featureflag.FlagDisableBodyControl)))
		defer close()

		conn := dial(worldID)
		ReceiveType(t, conn, MsgTypeWorldJoin)

		SendMsg(t, conn, MsgTypeBodyAddRequest, 1, BodyAddData{X: 1, Y: 1, Radius: 1})

		var data ErrorData
		require.NoError(t, ReceiveType(t, conn, MsgTypeError).DataTo(&data))
		require.Equal(t, ErrorCodeDisabled, data.Code)
	})

	t.Run("bodies are removed on disconnect", func(t *testing.T) {
		store, worldID := newTestStore(t, true)
		world, _ := store.GetByGlobalID(worldID)

		dial, close := NewTestingEnv(t, newTestHandler(store))
		defer close()

		conn := dial(worldID)
		ReceiveType(t, conn, MsgTypeWorldJoin)

		SendMsg(t, conn, MsgTypeBodyAddRequest, 1, BodyAddData{X: 1, Y: 1, Radius: 1})
		ReceiveType(t, conn, MsgTypeBodyAddResponse)
		require.Equal(t, 1, world.BodyCount())

		conn.Close()
		require.Eventually(t, func() bool {
			return world.BodyCount() == 0
		}, 5*time.Second, 10*time.Millisecond)
	})
}
