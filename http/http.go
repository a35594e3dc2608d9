package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	// ShutdownTimeout bounds the graceful shutdown of each server.
	ShutdownTimeout = time.Second * 5

	ErrTypeListen = "server_listen_failed"
)

// ListenAndServe runs the servers until ctx is done or one of them stops
// with an error, then shuts all of them down. It returns the first error
// that stopped a server.
func ListenAndServe(ctx context.Context, servers ...*http.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *http.Server) {
			logs.WithTag("addr", s.Addr).Info("starting server")

			err := s.ListenAndServe()
			if err == nil || errors.Is(err, http.ErrServerClosed) {
				logs.WithTag("addr", s.Addr).Info("stopping server")
				errs <- nil
				return
			}

			errs <- errors.New("server stopped").
				WithType(ErrTypeListen).
				WithTag("addr", s.Addr).
				Wrap(err)
			cancel()
		}(s)
	}

	<-ctx.Done()
	for _, s := range servers {
		shutdown(s)
	}

	var err error
	for range servers {
		if serverErr := <-errs; serverErr != nil && err == nil {
			err = serverErr
		}
	}
	return err
}

func shutdown(s *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		logs.Warn(errors.New("shutting down the server failed").
			WithTag("addr", s.Addr).
			WithTag("timeout", ShutdownTimeout.String()).
			Wrap(err))
		s.Close()
	}
}

// MetricsPathFormatter returns empty string on HTTP 301, 400, 404 or 405 statusCode
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed {
		return ""
	}

	return path
}
