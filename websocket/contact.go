package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/broadphase/featureflag"
	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/modules/contact"
	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	// The header that carries the id of a client.
	HeaderClientID = "X-Client-Id"

	// The query parameter that names the world to join.
	WorldQueryParam = "world"
)

// ContactHandler streams the contact events of a world to a client and lets
// the client place bodies in that world.
type ContactHandler struct {
	// The interval between each sync clock message sent to the connected
	// client.
	ClientSyncClockInterval time.Duration

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The store that contains the served worlds.
	Worlds *models.WorldStore

	FeatureFlags featureflag.FeatureFlag

	conn         *websocket.Conn
	clientID     string
	worldID      string
	currentWorld *models.World
	unsubscribe  func()

	bodiesMutex sync.Mutex
	bodies      map[quadtree.Handle]struct{}
}

func (h *ContactHandler) HandleConnect(conn *websocket.Conn) {
	req := conn.Request()
	h.clientID = req.Header.Get(HeaderClientID)
	h.worldID = req.URL.Query().Get(WorldQueryParam)
	h.conn = conn
}

func (h *ContactHandler) HandleWorldJoin(ctx context.Context, respond ResponseSender) error {
	world, ok := h.Worlds.GetByGlobalID(h.worldID)
	if !ok {
		sendError(respond, 0, ErrorCodeNotFound)
		return nil
	}

	state, ok := contact.StateOf(world)
	if !ok {
		sendError(respond, 0, ErrorCodeDisabled)
		return nil
	}

	msg, err := NewMsg(MsgTypeWorldJoin, 0, WorldJoinData{
		WorldID:   h.Worlds.GlobalWorldID(world.ID),
		WorldUUID: world.UUID,
	})
	if err != nil {
		return err
	}
	respond.Send(msg)

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableWorldState, func() {
		if msg, err = NewMsg(MsgTypeWorldState, 0, models.BodyStates(world.Bodies())); err == nil {
			respond.Send(msg)
		}
	})
	if err != nil {
		return err
	}

	h.currentWorld = world
	h.unsubscribe = state.Subscribe(func(events []contact.Event) {
		msg, err := NewMsg(MsgTypeContactEvents, 0, events)
		if err != nil {
			logs.WithClientID(h.clientID).Error(err)
			return
		}
		respond.Send(msg)
	})
	return nil
}

func (h *ContactHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	res, err := NewMsg(MsgTypePong, msg.RequestID, nil)
	if err != nil {
		return err
	}
	respond.Send(res)
	return nil
}

func (h *ContactHandler) HandleBodyAdd(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req BodyAddData
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	world, err := h.controlledWorld(respond, msg)
	if world == nil {
		return err
	}

	kind, err := models.ParseBodyKind(req.Kind)
	if err != nil || req.Radius < 0 {
		sendError(respond, msg.RequestID, ErrorCodeBadRequest)
		return nil
	}

	body, err := world.AddBody(kind,
		quadtree.Vector2{X: req.X, Y: req.Y},
		req.Radius,
		quadtree.Vector2{X: req.VX, Y: req.VY},
	)
	if errors.IsType(err, quadtree.ErrTypeInvalidGeometry) || errors.IsType(err, quadtree.ErrTypeGrowthExhausted) {
		sendError(respond, msg.RequestID, ErrorCodeBadRequest)
		return nil
	}
	if err != nil {
		return err
	}

	h.bodiesMutex.Lock()
	if h.bodies == nil {
		h.bodies = make(map[quadtree.Handle]struct{})
	}
	h.bodies[body.ID] = struct{}{}
	h.bodiesMutex.Unlock()

	res, err := NewMsg(MsgTypeBodyAddResponse, msg.RequestID, BodyAddResponseData{
		BodyID: uint32(body.ID),
	})
	if err != nil {
		return err
	}
	respond.Send(res)
	return nil
}

func (h *ContactHandler) HandleBodyRemove(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req BodyRemoveData
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	world, err := h.controlledWorld(respond, msg)
	if world == nil {
		return err
	}

	id := quadtree.Handle(req.BodyID)
	if !h.owns(id) {
		sendError(respond, msg.RequestID, ErrorCodeUnauthorized)
		return nil
	}

	h.bodiesMutex.Lock()
	delete(h.bodies, id)
	h.bodiesMutex.Unlock()

	if !world.RemoveBody(id) {
		sendError(respond, msg.RequestID, ErrorCodeNotFound)
		return nil
	}

	res, err := NewMsg(MsgTypeBodyRemoveResponse, msg.RequestID, nil)
	if err != nil {
		return err
	}
	respond.Send(res)
	return nil
}

func (h *ContactHandler) HandleBodyUpdate(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req BodyUpdateData
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	world, err := h.controlledWorld(respond, msg)
	if world == nil {
		return err
	}

	id := quadtree.Handle(req.BodyID)
	if !h.owns(id) {
		sendError(respond, msg.RequestID, ErrorCodeUnauthorized)
		return nil
	}

	if req.Radius != nil && *req.Radius < 0 {
		sendError(respond, msg.RequestID, ErrorCodeBadRequest)
		return nil
	}

	body, ok := world.BodyByID(id)
	if !ok {
		sendError(respond, msg.RequestID, ErrorCodeNotFound)
		return nil
	}

	position := body.Position()
	if req.X != nil {
		position.X = *req.X
	}
	if req.Y != nil {
		position.Y = *req.Y
	}
	body.SetPosition(position)

	velocity := body.Velocity()
	if req.VX != nil {
		velocity.X = *req.VX
	}
	if req.VY != nil {
		velocity.Y = *req.VY
	}
	body.SetVelocity(velocity)

	if req.Radius != nil {
		body.SetRadius(*req.Radius)
	}
	return nil
}

// controlledWorld returns the joined world when clients are allowed to
// control bodies. A nil world with a nil error means the request was answered
// with an error message.
func (h *ContactHandler) controlledWorld(respond ResponseSender, msg Msg) (*models.World, error) {
	if h.currentWorld == nil {
		return nil, errors.New("world not joined").
			WithType(ErrTypeWorldNotJoined).
			WithTag("msg_type", msg.Type)
	}

	disabled := false
	h.FeatureFlags.IfSet(featureflag.FlagDisableBodyControl, func() {
		disabled = true
	})
	if disabled {
		sendError(respond, msg.RequestID, ErrorCodeDisabled)
		return nil, nil
	}
	return h.currentWorld, nil
}

func (h *ContactHandler) owns(id quadtree.Handle) bool {
	h.bodiesMutex.Lock()
	defer h.bodiesMutex.Unlock()

	_, ok := h.bodies[id]
	return ok
}

func (h *ContactHandler) HandleDisconnect(_ error) {
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}

	if h.currentWorld == nil {
		return
	}

	h.bodiesMutex.Lock()
	defer h.bodiesMutex.Unlock()

	for id := range h.bodies {
		h.currentWorld.RemoveBody(id)
		delete(h.bodies, id)
	}
	h.currentWorld = nil
}

func (h *ContactHandler) SendSyncClock(ctx context.Context, respond ResponseSender) error {
	msg, err := NewMsg(MsgTypeSyncClock, 0, nil)
	if err != nil {
		return err
	}
	respond.Send(msg)
	return nil
}

func (h *ContactHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		return Receive(h.conn)
	}
}

func (h *ContactHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		return Send(h.conn, msg)
	}
}

func (h *ContactHandler) Close() {
}

func (h *ContactHandler) SyncClockInterval() time.Duration {
	return h.ClientSyncClockInterval
}

func (h *ContactHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *ContactHandler) GetWorlds() *models.WorldStore {
	return h.Worlds
}

func (h *ContactHandler) CurrentWorld() *models.World {
	return h.currentWorld
}

func (h *ContactHandler) GetClientID() string {
	return h.clientID
}

func sendError(respond ResponseSender, requestID uint32, code string) {
	msg, err := NewMsg(MsgTypeError, requestID, ErrorData{Code: code})
	if err != nil {
		logs.Warn(err)
		return
	}
	respond.Send(msg)
}
