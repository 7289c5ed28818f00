package api

import (
	"context"
	"net/http"
	"time"

	"jobsnap/services/capture/internal/models"
	"jobsnap/services/capture/internal/page"
	"jobsnap/services/capture/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type SettingsStore interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, settings models.Settings) error
}

type Pinger interface {
	Ping(ctx context.Context, apiKey string) error
}

type Prober interface {
	Probe(ctx context.Context, webhookURL string) error
}

type Pages interface {
	Open(ctx context.Context, url string, rawHTML string) (*page.Page, error)
	Close(tabID string) bool
}

type Agents interface {
	Inject(ctx context.Context, tabID string) error
	Unload(tabID string) error
}

type Capturer interface {
	Capture(ctx context.Context, tabID string) *pipeline.Result
	Process(ctx context.Context, doc *models.PageDocument) *pipeline.Result
}

type Submitter interface {
	Submit(tabID string) (string, error)
}

// Deps groups what the handlers need.
type Deps struct {
	Settings SettingsStore
	Pinger   Pinger
	Prober   Prober
	Pages    Pages
	Agents   Agents
	Pipeline Capturer
	Runner   Submitter

	// Preload injects the extractor as soon as a tab opens.
	Preload bool
}

type Server struct {
	deps   Deps
	logger *zap.Logger
	router chi.Router
}

func NewServer(deps Deps, logger *zap.Logger) *Server {
	s := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", s.handleGetSettings)
		r.Put("/", s.handlePutSettings)
		r.Post("/test", s.handleTestSettings)
	})

	r.Route("/tabs", func(r chi.Router) {
		r.Post("/", s.handleOpenTab)
		r.Delete("/{tabID}", s.handleCloseTab)
		r.Post("/{tabID}/capture", s.handleCaptureTab)
	})

	r.Post("/captures", s.handleCapture)
	r.Post("/captures/process", s.handleProcess)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
