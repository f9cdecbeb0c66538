// Package server serves the dashboard pages and the JSON API the pages use
// to drive per-visitor sessions.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"cityops/internal/activity"
	"cityops/internal/geo"
	"cityops/internal/insights"
	"cityops/internal/mapsync"
	"cityops/internal/metrics"
	"cityops/internal/scenario"
	"cityops/internal/session"
)

const defaultTileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

// Options wires the server's collaborators. Nil fields get defaults.
type Options struct {
	BasePath string
	Registry *scenario.Registry
	Sessions *session.Store
	Insights *insights.Catalogue
	Activity activity.Writer
	Metrics  *metrics.Registry
	Logger   *slog.Logger
	Basemap  mapsync.BasemapConfig
	Frame    geo.FrameOptions
	Now      func() time.Time
}

// Server is the dashboard HTTP surface.
type Server struct {
	basePath string
	registry *scenario.Registry
	sessions *session.Store
	insights *insights.Catalogue
	activity activity.Writer
	metrics  *metrics.Registry
	log      *slog.Logger
	basemap  mapsync.BasemapConfig
	frame    geo.FrameOptions
	now      func() time.Time
	validate *validator.Validate
	pages    pageSet
	handler  http.Handler
}

// New builds the server and its router.
func New(opts Options) *Server {
	s := &Server{
		basePath: strings.TrimRight(opts.BasePath, "/"),
		registry: opts.Registry,
		sessions: opts.Sessions,
		insights: opts.Insights,
		activity: opts.Activity,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		basemap:  opts.Basemap,
		frame:    opts.Frame,
		now:      opts.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		pages:    mustParsePages(),
	}
	if s.registry == nil {
		s.registry = scenario.DefaultRegistry()
	}
	if s.sessions == nil {
		s.sessions = session.NewStore(session.Options{Registry: s.registry})
	}
	if s.insights == nil {
		s.insights = insights.Default()
	}
	if s.activity == nil {
		s.activity = activity.Discard{}
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRegistry()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.basemap.TileURL == "" {
		s.basemap.TileURL = defaultTileURL
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage(PageLanding))
	r.Get("/command-center", s.handlePage(PageCommandCenter))
	r.Get("/copilot", s.handlePage(PageCopilot))
	r.Get("/insights", s.handlePage(PageInsights))
	r.Get("/vlr", s.handlePage(PageVLR))
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/scenarios", s.handleListScenarios)
		r.Get("/scenarios/{key}", s.handleGetScenario)
		r.Post("/bounds", s.handleBounds)
		r.Get("/insights", s.handleInsights)
		r.Post("/map-errors", s.handleMapError)
		r.Get("/basemap/style.json", s.handleBasemapStyle)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/scenario", s.handleSelectScenario)
			r.Post("/focus", s.handleFocus)
			r.Get("/ops", s.handleOps)
			r.Get("/chat/{area}", s.handleChatState)
			r.Post("/chat/{area}", s.handleChat)
			r.Get("/wizard", s.handleWizard)
			r.Post("/wizard", s.handleWizardAction)
		})
	})

	if s.basePath == "" {
		return r
	}
	root := chi.NewRouter()
	root.Mount(s.basePath, r)
	root.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, s.basePath+"/", http.StatusFound)
	})
	return root
}

// observe records request metrics and logs each request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := s.now().Sub(start)
		s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), dur)
		s.log.Debug("http request",
			"method", r.Method, "route", route, "status", status,
			"duration", dur, "request_id", middleware.GetReqID(r.Context()))
	})
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", addr, "base_path", s.basePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("dashboard shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
