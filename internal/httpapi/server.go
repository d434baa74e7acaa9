package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ent0n29/hrdesk/internal/bridge"
	"github.com/ent0n29/hrdesk/internal/config"
	"github.com/ent0n29/hrdesk/internal/intake"
	"github.com/ent0n29/hrdesk/internal/observability"
	"github.com/ent0n29/hrdesk/internal/reliability"
	"github.com/ent0n29/hrdesk/internal/session"
	"github.com/ent0n29/hrdesk/internal/store"
)

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Sessions *session.Manager
	Intake   *intake.Service
	Bridge   *bridge.Service
	Store    store.Store
	Metrics  *observability.Metrics
	Log      logrus.FieldLogger
	// AssistantMode and CacheMode are reported by /healthz.
	AssistantMode string
	CacheMode     string
	// ReadyChecks run on /readyz in addition to the store ping.
	ReadyChecks map[string]func(context.Context) error
}

type Server struct {
	cfg      config.Config
	deps     Deps
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		cfg:  cfg,
		deps: deps,
		log:  log.WithField("component", "httpapi"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				for _, allowed := range cfg.AllowedOrigins {
					if strings.EqualFold(allowed, origin) {
						return true
					}
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors(s.cfg.AllowedOrigins, s.cfg.AllowAnyOrigin))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/chat", s.handleChat)
	r.Post("/api/query", s.handleQuery)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/turns", s.handleTurn)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/ws", s.handleSessionWS)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/end", s.handleEndSession)
		r.Post("/sessions/{id}/turns", s.handleSessionTurn)

		r.Get("/statistics", s.handleStatistics)
		r.Get("/reports", s.handleReport)
		r.Get("/employees", s.handleEmployees)
		r.Get("/schema", s.handleSchema)
		r.Get("/perf/latency", s.handlePerfLatency)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"assistant_mode":  s.deps.AssistantMode,
		"store_mode":      s.storeMode(),
		"cache_mode":      s.deps.CacheMode,
		"active_sessions": s.activeSessions(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true
	if s.deps.Store != nil {
		checks["store"] = "ok"
		if err := s.deps.Store.Ping(ctx); err != nil {
			checks["store"] = err.Error()
			ready = false
		}
	}
	for name, check := range s.deps.ReadyChecks {
		checks[name] = "ok"
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
		}
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{
		"status":     status,
		"store_mode": s.storeMode(),
		"checks":     checks,
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Metrics.LatencyReport())
}

func (s *Server) storeMode() string {
	if s.deps.Store == nil {
		return "disabled"
	}
	return s.deps.Store.Mode()
}

func (s *Server) activeSessions() int {
	if s.deps.Sessions == nil {
		return 0
	}
	return s.deps.Sessions.ActiveCount()
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// chatErrorResponse is the proxy endpoint failure shape.
type chatErrorResponse struct {
	Error string           `json:"error"`
	Type  reliability.Kind `json:"type"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondKindError writes a classified failure with the retry hints the
// caller needs to decide on its own retry.
func respondKindError(w http.ResponseWriter, e *reliability.Error) {
	if e.Kind == reliability.KindOverloaded {
		w.Header().Set("x-should-retry", "true")
		if e.RetryAfter != "" {
			w.Header().Set("Retry-After", e.RetryAfter)
		}
	}
	respondJSON(w, e.HTTPStatus(), chatErrorResponse{Error: e.Message, Type: e.Kind})
}
