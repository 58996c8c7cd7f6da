package websocket

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	worldIDTag   = "world_id"
	worldUUIDTag = "world_uuid"
)

// HandlerWithLogs wraps h to log connections and a periodic summary of the
// messages exchanged with the client.
func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	originalRequest *http.Request

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int

	worldID   string
	worldUUID string
}

type httpHeaders struct {
	UserAgent     string `json:"user_agent,omitempty"`
	XForwardedFor string `json:"x_forwarded_for,omitempty"`
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	h.originalRequest = conn.Request()

	logs.WithClientID(h.GetClientID()).
		Info("new client is connected")
}

func (h *handlerWithLogs) HandleWorldJoin(ctx context.Context, respond ResponseSender) error {
	err := h.Handler.HandleWorldJoin(ctx, respond)

	headers := httpHeaders{
		UserAgent:     h.originalRequest.UserAgent(),
		XForwardedFor: h.originalRequest.Header.Get("X-Forwarded-For"),
	}

	if world := h.CurrentWorld(); world != nil {
		h.worldID = h.GetWorlds().GlobalWorldID(world.ID)
		h.worldUUID = world.UUID

		logs.WithClientID(h.GetClientID()).
			WithTag(worldIDTag, h.worldID).
			WithTag(worldUUIDTag, h.worldUUID).
			WithTag("http_headers", headers).
			Info("client joined a world")
		return err
	}

	logs.WithClientID(h.GetClientID()).
		WithTag(worldIDTag, h.originalRequest.URL.Query().Get(WorldQueryParam)).
		WithTag("http_headers", headers).
		Info("client failed to join a world")
	return err
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	logs.WithClientID(h.GetClientID()).
		WithTag(worldIDTag, h.worldID).
		WithTag("reason", err).
		Info("client disconnected")
}

func (h *handlerWithLogs) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			logs.WithClientID(h.GetClientID()).
				WithTag(worldIDTag, h.worldID).
				WithTag(worldUUIDTag, h.worldUUID).
				Error(errors.New("receiving message failed").Wrap(err))
		} else if err == nil {
			logs.WithClientID(h.GetClientID()).
				WithTag(worldIDTag, h.worldID).
				WithTag("msg_type", msg.Type).
				Debug("message received")
			h.incCounter("received_" + string(msg.Type))
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		n, err := sender(msg)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			logs.WithClientID(h.GetClientID()).
				WithTag(worldIDTag, h.worldID).
				WithTag(worldUUIDTag, h.worldUUID).
				WithTag("msg_type", msg.Type).
				Error(errors.New("sending message failed").Wrap(err))
		} else if err == nil {
			logs.WithClientID(h.GetClientID()).
				WithTag(worldIDTag, h.worldID).
				WithTag("msg_type", msg.Type).
				Debug("message sent")
			h.incCounter("sent_" + string(msg.Type))
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(key string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[key]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 {
		return
	}

	entry := logs.
		WithClientID(h.GetClientID()).
		WithTag(worldIDTag, h.worldID).
		WithTag(worldUUIDTag, h.worldUUID).
		WithTag("time_interval", h.summaryInterval)

	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	entry.Info("message summary")
}
