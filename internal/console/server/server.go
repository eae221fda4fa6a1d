package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/console/handler"
	"github.com/xela07ax/devpulse/internal/infra"
)

// Deps всё, что нужно API-серверу. Gatherer и Realtime опциональны.
type Deps struct {
	Logger      *zap.Logger
	Metrics     *infra.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string

	MetricsHandler     *handler.MetricsHandler
	InsightHandler     *handler.InsightHandler
	IntegrationHandler *handler.IntegrationHandler
	Realtime           http.Handler

	// Integrations отдаётся в /health: какие внешние API настроены
	Integrations func() map[string]bool
}

// APIServer HTTP-поверхность дашборда.
type APIServer struct {
	router  *chi.Mux
	handler http.Handler
	logger  *zap.Logger
	deps    Deps
	started time.Time
}

// NewAPIServer инициализирует роутер со всеми маршрутами
func NewAPIServer(d Deps) *APIServer {
	if d.Metrics == nil {
		d.Metrics = infra.NewMetrics(nil)
	}
	s := &APIServer{
		router:  chi.NewRouter(),
		logger:  d.Logger.Named("api"),
		deps:    d,
		started: time.Now(),
	}
	s.routes()

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Trace-ID"}),
		handlers.ExposedHeaders([]string{"X-Trace-ID", "Retry-After"}),
	)(s.router)
	return s
}

func (s *APIServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(infra.TracingMiddleware)
	r.Use(infra.RequestLogger(s.logger, s.deps.Metrics))
	r.Use(middleware.Recoverer)

	// --- 2. Служебные роуты ---
	r.Get("/health", s.health)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if s.deps.Realtime != nil {
		r.Get("/ws", s.deps.Realtime.ServeHTTP)
	}

	// --- 3. API дашборда ---
	r.Route("/api", func(r chi.Router) {
		m := s.deps.MetricsHandler
		r.Get("/dashboard", m.Dashboard)
		r.Get("/analytics", m.Analytics)
		r.Get("/analytics/benchmarks", m.Benchmarks)
		r.Get("/series/{name}", m.Series)
		r.Get("/activities", m.Activities)

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", m.Teams)
			r.Get("/members", m.Members) // раньше /{id}, иначе "members" уйдёт в id
			r.Get("/comparison", m.CompareTeams)
			r.Get("/{id}", m.Team)
		})
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", m.Projects)
			r.Get("/{id}", m.Project)
		})

		// Инсайты, рекомендации, прогнозы и прокси к LLM
		r.Route("/ai", func(r chi.Router) {
			in := s.deps.InsightHandler
			r.Route("/insights", func(r chi.Router) {
				r.Get("/", in.List)
				r.Post("/analyze", in.Analyze)
				r.Get("/{id}", in.Get)
				r.Patch("/{id}", in.UpdateStatus)
			})
			r.Get("/recommendations", in.Recommendations)
			r.Patch("/recommendations/{id}", in.UpdateRecommendation)
			r.Get("/predictions", in.Predictions)

			r.Post("/chat", s.deps.IntegrationHandler.Chat)
			r.Post("/generate-insight", s.deps.IntegrationHandler.GenerateInsight)
		})

		r.Get("/github/repos/{owner}/{repo}/stats", s.deps.IntegrationHandler.RepoStats)
	})
}

type healthResponse struct {
	Status       string          `json:"status"`
	Uptime       string          `json:"uptime"`
	Integrations map[string]bool `json:"integrations,omitempty"`
}

func (s *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Uptime: time.Since(s.started).Round(time.Second).String()}
	if s.deps.Integrations != nil {
		resp.Integrations = s.deps.Integrations()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ServeHTTP позволяет использовать APIServer как стандартный http.Handler
func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
