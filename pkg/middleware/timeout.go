package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
	"github.com/BronsonLau/NLP-Course/pkg/logger"
)

// Timeout bounds each request to limit. If the handler has sent nothing by
// the deadline the client gets a 503 JSON error and anything the handler
// writes afterwards is dropped. A non-positive limit disables it.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			gw := &guardedWriter{w: w, header: make(http.Header)}
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case <-finished:
				return
			case <-ctx.Done():
			}
			if !gw.expire() {
				return
			}
			err := &apperrors.DeadlineError{Op: r.Method + " " + r.URL.Path, Limit: limit, Cause: ctx.Err()}
			logger.FromContext(r.Context()).Warn("request deadline exceeded", "path", r.URL.Path, "limit", limit)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(apperrors.HTTPStatusCode(err))
			json.NewEncoder(w).Encode(map[string]string{"error": apperrors.PublicMessage(err)})
		})
	}
}

// guardedWriter hands the response to whichever side claims it first: the
// handler by writing, or the deadline by expire. The handler gets its own
// header map, copied downstream when it starts the response.
type guardedWriter struct {
	w       http.ResponseWriter
	header  http.Header
	mu      sync.Mutex
	started bool
	expired bool
}

func (g *guardedWriter) Header() http.Header { return g.header }

func (g *guardedWriter) start() {
	if g.started {
		return
	}
	g.started = true
	dst := g.w.Header()
	for k, v := range g.header {
		dst[k] = v
	}
}

// expire reports whether the deadline won, i.e. the handler had not
// started its response.
func (g *guardedWriter) expire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = true
	return !g.started
}

func (g *guardedWriter) WriteHeader(code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired {
		return
	}
	if g.started {
		return
	}
	g.start()
	g.w.WriteHeader(code)
}

func (g *guardedWriter) Write(b []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired {
		return 0, http.ErrHandlerTimeout
	}
	g.start()
	return g.w.Write(b)
}
