package websocket

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// MsgType identifies the payload of a message.
type MsgType string

const (
	MsgTypePing              MsgType = "ping"
	MsgTypePong              MsgType = "pong"
	MsgTypeSyncClock         MsgType = "sync_clock"
	MsgTypeError             MsgType = "error"
	MsgTypeWorldJoin         MsgType = "world_join"
	MsgTypeWorldState        MsgType = "world_state"
	MsgTypeBodyAddRequest    MsgType = "body_add_request"
	MsgTypeBodyAddResponse   MsgType = "body_add_response"
	MsgTypeBodyRemoveRequest MsgType = "body_remove_request"
	MsgTypeBodyRemoveResponse MsgType = "body_remove_response"
	MsgTypeBodyUpdate        MsgType = "body_update"
	MsgTypeContactEvents     MsgType = "contact_events"
)

// Error codes sent to clients in error messages.
const (
	ErrorCodeBadRequest   = "bad_request"
	ErrorCodeNotFound     = "not_found"
	ErrorCodeUnauthorized = "unauthorized"
	ErrorCodeDisabled     = "disabled"
)

// Error types of the errors returned by handlers.
const (
	ErrTypeWorldNotJoined = "world_not_joined"
	ErrTypeInvalidMsg     = "invalid_msg"
	ErrTypeSendBufferFull = "send_buffer_full"
)

// Msg is a JSON message exchanged with a client.
type Msg struct {
	Type      MsgType         `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID uint32          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMsg creates a message carrying v as its data.
func NewMsg(t MsgType, requestID uint32, v any) (Msg, error) {
	msg := Msg{
		Type:      t,
		Timestamp: time.Now(),
		RequestID: requestID,
	}

	if v == nil {
		return msg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithTag("msg_type", t).
			Wrap(err)
	}
	msg.Data = data
	return msg, nil
}

// DataTo decodes the message data into v.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return errors.New("message has no data").
			WithType(ErrTypeInvalidMsg).
			WithTag("msg_type", m.Type)
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeInvalidMsg).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

// ErrorData is the data of an error message.
type ErrorData struct {
	Code string `json:"code"`
}

type WorldJoinData struct {
	WorldID   string `json:"world_id"`
	WorldUUID string `json:"world_uuid"`
}

type BodyAddData struct {
	Kind   string  `json:"kind"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Radius float32 `json:"radius"`
	VX     float32 `json:"vx"`
	VY     float32 `json:"vy"`
}

type BodyAddResponseData struct {
	BodyID uint32 `json:"body_id"`
}

type BodyRemoveData struct {
	BodyID uint32 `json:"body_id"`
}

// BodyUpdateData changes the geometry of a body. Nil fields are left as is.
type BodyUpdateData struct {
	BodyID uint32   `json:"body_id"`
	X      *float32 `json:"x,omitempty"`
	Y      *float32 `json:"y,omitempty"`
	Radius *float32 `json:"radius,omitempty"`
	VX     *float32 `json:"vx,omitempty"`
	VY     *float32 `json:"vy,omitempty"`
}

// Receiver is a function that receives a message.
type Receiver func() (Msg, int, error)

// Sender is a function that sends a message.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to be sent to the connected client.
type ResponseSender interface {
	Send(Msg)
}

// Receive reads a message from conn. The returned int is the number of bytes
// read.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var data []byte
	if err := websocket.Message.Receive(conn, &data); err != nil {
		return Msg{}, 0, err
	}

	var msg Msg
	if err := json.Unmarshal(data, &msg); err != nil {
		return Msg{}, len(data), errors.New("decoding message failed").
			WithType(ErrTypeInvalidMsg).
			Wrap(err)
	}
	return msg, len(data), nil
}

// Send writes msg to conn as a text frame. The returned int is the number of
// bytes written.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.New("encoding message failed").Wrap(err)
	}

	if err := websocket.Message.Send(conn, string(data)); err != nil {
		return 0, err
	}
	return len(data), nil
}
