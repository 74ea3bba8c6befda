// Package server exposes the dashboard pages over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"energy_dashboard/internal/dashboard"
	"energy_dashboard/internal/options"
)

const HeaderRequestID = "X-Request-ID"

// unknownPageLabel stands in for page ids outside the dashboard so that
// metric cardinality stays bounded.
const unknownPageLabel = "unknown"

// Renderer runs page pipelines and lists their options.
type Renderer interface {
	Render(ctx context.Context, page string, v options.Values) (any, error)
	Options(page string) (options.Catalog, error)
}

type Server struct {
	renderer  Renderer
	ws        http.Handler
	metrics   *Metrics
	accessLog io.Writer
	logger    *slog.Logger
}

type Option func(*Server)

// WithWebSocket serves h on /ws.
func WithWebSocket(h http.Handler) Option {
	return func(s *Server) { s.ws = h }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAccessLog writes one Apache-style line per request to w.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) { s.accessLog = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(renderer Renderer, opts ...Option) *Server {
	s := &Server{renderer: renderer}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With(slog.String("module", "server"))
	}
	return s
}

// Router returns the routes without the access log and CORS wrappers.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID)

	r.Handle("/health", s.metrics.WrapHandler("/health", http.HandlerFunc(healthHandler))).Methods(http.MethodGet)
	r.Handle("/api/options", s.metrics.WrapHandler("/api/options", http.HandlerFunc(s.optionsHandler))).Methods(http.MethodGet)
	r.Handle("/api/pages/{page}", s.metrics.WrapHandler("/api/pages/{page}", http.HandlerFunc(s.pageHandler))).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	if s.ws != nil {
		// Not wrapped: the upgrade needs the raw ResponseWriter.
		r.Handle("/ws", s.ws)
	}
	return r
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.ExposedHeaders([]string{HeaderRequestID}),
	)(h)
	if s.accessLog != nil {
		h = handlers.LoggingHandler(s.accessLog, h)
	}
	return h
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

type optionsResponse struct {
	Page     string          `json:"page,omitempty"`
	Options  options.Catalog `json:"options"`
	Defaults options.Values  `json:"defaults"`
}

func (s *Server) optionsHandler(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Query().Get("page")
	catalog, err := s.renderer.Options(page)
	if err != nil {
		s.writeFailure(w, r, page, err)
		return
	}
	s.writeJSON(w, http.StatusOK, optionsResponse{Page: page, Options: catalog, Defaults: catalog.Defaults()})
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	page := mux.Vars(r)["page"]
	v := make(options.Values)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			v[key] = values[0]
		}
	}

	data, err := s.renderer.Render(r.Context(), page, v)
	if err != nil {
		s.writeFailure(w, r, page, err)
		return
	}
	s.metrics.PageRendered(page, "ok")
	s.writeJSON(w, http.StatusOK, data)
}

// writeFailure maps err to a status code. Only unexpected errors are logged.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, page string, err error) {
	failure := dashboard.Describe(err)
	switch {
	case failure.Kind == dashboard.KindUnknownPage:
		s.metrics.PageRendered(unknownPageLabel, failure.Kind)
	case page != "":
		s.metrics.PageRendered(page, failure.Kind)
	}

	status := http.StatusBadGateway
	switch failure.Kind {
	case dashboard.KindOptionsNotSet:
		status = http.StatusBadRequest
	case dashboard.KindInvalidOption:
		status = http.StatusUnprocessableEntity
	case dashboard.KindUnknownPage:
		status = http.StatusNotFound
	default:
		s.logger.Error("page request failed",
			slog.String("request", RequestID(r.Context())),
			slog.String("page", page),
			slog.Any("error", err))
	}
	s.writeJSON(w, status, failure)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", slog.Int("status", status), slog.Any("error", err))
	}
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}
