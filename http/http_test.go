package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListenAndServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		ListenAndServe(ctx,
			&http.Server{Addr: "127.0.0.1:0", Handler: http.HandlerFunc(HandleHealthCheck)},
			&http.Server{Addr: "127.0.0.1:0", Handler: http.HandlerFunc(HandleHealthCheck)},
		)
		close(done)
	}()

	time.Sleep(time.Millisecond * 50)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond*10)
}
