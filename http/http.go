package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// ShutdownTimeout bounds how long servers wait for in-flight requests once the
// context passed to ListenAndServe is done.
var ShutdownTimeout = time.Second * 10

// ListenAndServe runs the given servers until ctx is done.
func ListenAndServe(ctx context.Context, servers ...*http.Server) {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				logs.Warn(errors.New("shutting down server failed").
					WithTag("addr", s.Addr).
					WithTag("timeout", ShutdownTimeout).
					Wrap(err))
			}
		}
	}()

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s *http.Server) {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("broadphase server listening")

			switch err := s.ListenAndServe(); err {
			case nil, http.ErrServerClosed, context.Canceled:
				logs.WithTag("addr", s.Addr).Info("broadphase server stopped")

			default:
				logs.Warn(errors.New("broadphase server failed").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}(s)
	}

	wg.Wait()
}

// MetricsPathFormatter returns the path label of a request. Requests answered
// with 301, 400, 404 or 405 get an empty label and world and body ids of the
// debug API are replaced by placeholders.
func MetricsPathFormatter(statusCode int, path string) string {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusMethodNotAllowed:
		return ""
	}

	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[1] != "worlds" || parts[2] == "" {
		return path
	}

	parts[2] = "{world_id}"
	if len(parts) > 4 && parts[3] == "bodies" && parts[4] != "" {
		parts[4] = "{body_id}"
	}
	return strings.Join(parts, "/")
}
