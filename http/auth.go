package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeMissingClientID = "missing_client_id"
)

// VerifyClientID is a WebSocket handshake that rejects connections without a
// client id header.
func VerifyClientID(header string) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if r.Header.Get(header) != "" {
			return nil
		}

		err := errors.New("client id header is missing").
			WithType(ErrTypeMissingClientID).
			WithTag("header", header).
			WithTag("remote_addr", r.RemoteAddr)
		logs.Warn(err)
		return err
	}
}
