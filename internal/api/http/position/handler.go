package position

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
	"github.com/oshokin/geoalarm/internal/logger"
)

// Engine is the subset of engine operations served over HTTP.
type Engine interface {
	SubmitPosition(ctx context.Context, p domain.Position) error
	Status() domain.Status
}

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

const (
	// maxBodyBytes caps request bodies; a position fits in a few hundred bytes.
	maxBodyBytes = 64 << 10
	// checkTimeout bounds all health checks of one request.
	checkTimeout = 3 * time.Second
)

type handler struct {
	ctx    context.Context //nolint:containedctx // Carries the named logger.
	engine Engine
	checks map[string]Checker
}

// NewHandler builds the chi router.
func NewHandler(ctx context.Context, eng Engine, checks map[string]Checker) http.Handler {
	h := &handler{
		ctx:    logger.WithName(ctx, "http"),
		engine: eng,
		checks: checks,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.ctx))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/positions", h.submitPosition)
		r.Get("/status", h.status)
	})

	return r
}

func (h *handler) submitPosition(w http.ResponseWriter, r *http.Request) {
	var body map[string]any

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	p, err := domain.PositionFromPayload(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err = p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err = h.engine.SubmitPosition(r.Context(), p); err != nil {
		switch {
		case errors.Is(err, engine.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "request cancelled before the sample was queued")
		default:
			logger.ErrorKV(h.ctx, "Position submission failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	current := h.engine.Status()

	writeJSON(w, http.StatusOK, current.Payload())
}

type checkResult struct {
	Status string `json:"status"`
	Phase  string `json:"phase,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	var (
		results = make(map[string]checkResult, len(h.checks)+1)
		code    = http.StatusOK
	)

	results["engine"] = checkResult{Status: "ok", Phase: h.engine.Status().Phase.String()}

	for name, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			logger.ErrorKV(h.ctx, "Health check failed", "name", name, "error", err)

			results[name] = checkResult{Status: "error"}
			code = http.StatusServiceUnavailable

			continue
		}

		results[name] = checkResult{Status: "ok"}
	}

	writeJSON(w, code, results)
}

func requestLogger(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				start = time.Now()
				ww    = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			)

			defer func() {
				logger.DebugKV(ctx, "HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
