package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// NewTestingEnv starts a server running the handlers returned by newHandler.
// The returned function dials a client connection to the given world.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (dial func(worldID string) *websocket.Conn, close func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	dial, closeServer := newTestingEnv(t, newHandler)
	return dial, func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
		closeServer()
	}
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (func(string) *websocket.Conn, func()) {
	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	var conns []*websocket.Conn

	dial := func(worldID string) *websocket.Conn {
		location := strings.ReplaceAll(server.URL, "http://", "ws://") +
			"/?" + url.Values{WorldQueryParam: {worldID}}.Encode()

		config, err := websocket.NewConfig(location, "http://localhost")
		if err != nil {
			t.Fatalf("error initializing web socket: %s", err)
		}

		config.Header.Set("User-Agent", "ted")
		config.Header.Set("X-Forwarded-For", "192.0.0.0")
		config.Header.Set(HeaderClientID, uuid.NewString())

		conn, err := websocket.DialConfig(config)
		if err != nil {
			t.Fatalf("error dialing web socket: %s", err)
		}

		conns = append(conns, conn)
		return conn
	}

	return dial, func() {
		for _, c := range conns {
			c.Close()
		}
		server.Close()
	}
}

// ReceiveType reads messages from conn until one of the given type arrives.
func ReceiveType(t *testing.T, conn *websocket.Conn, msgType MsgType) Msg {
	deadline := time.Now().Add(5 * time.Second)
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	for {
		msg, _, err := Receive(conn)
		if err != nil {
			t.Fatalf("error receiving %s message: %s", msgType, err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

// SendMsg sends a message carrying v to conn.
func SendMsg(t *testing.T, conn *websocket.Conn, msgType MsgType, requestID uint32, v any) {
	msg, err := NewMsg(msgType, requestID, v)
	if err != nil {
		t.Fatalf("error creating %s message: %s", msgType, err)
	}

	if _, err := Send(conn, msg); err != nil {
		t.Fatalf("error sending %s message: %s", msgType, err)
	}
}
