// Package http serves the read-only JSON reporting API.
package http

import (
	"context"
	"net/http"
	"time"

	"talentdesk/internal/budget"
	applog "talentdesk/internal/log"
	"talentdesk/internal/middleware/ratelimit"
	"talentdesk/internal/middleware/security"
	"talentdesk/internal/middleware/trace"
	"talentdesk/internal/report"
	"talentdesk/internal/services"
)

// Reports is what the handlers read from; services.ReportService implements it.
type Reports interface {
	Version(ctx context.Context) (string, error)
	Monthly(ctx context.Context) ([]report.MonthlyReport, error)
	MonthlyFor(ctx context.Context, month string) (report.MonthlyReport, error)
	Annual(ctx context.Context) ([]report.AnnualReport, error)
	AnnualFor(ctx context.Context, year string) (report.AnnualReport, error)
	AllTime(ctx context.Context, perTalent bool) (report.AllTimeReport, error)
	TalentBudget(ctx context.Context, talentID int64, now time.Time) (budget.TalentBudget, error)
	ManagerBudget(ctx context.Context, managerID int64, now time.Time) (budget.ManagerBudget, error)
	Dashboard(ctx context.Context, now time.Time) (services.Dashboard, error)
}

var _ Reports = (*services.ReportService)(nil)

// Options wires the optional parts of the server. Zero values disable them.
type Options struct {
	// Metrics serves /metrics; nil leaves the route unregistered.
	Metrics        http.Handler
	Observe        trace.Observer
	RateLimit      int
	TrustedProxies []string
	Logger         *applog.Logger
	Now            func() time.Time
}

type Server struct {
	http    *http.Server
	reports Reports
	logger  *applog.Logger
	limiter *ratelimit.Limiter
	now     func() time.Time
}

// NewServer builds the route table and middleware chain. Requests pass
// trace, then security headers, then the rate limiter. Handlers log through
// the request logger tagged with the http component.
func NewServer(addr string, reports Reports, opts Options) (*Server, error) {
	clientIP, err := security.NewClientIP(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		reports: reports,
		logger:  opts.Logger.WithComponent(applog.ComponentHTTP),
		now:     opts.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reports/monthly", s.handleMonthly)
	mux.HandleFunc("GET /api/reports/monthly/{month}", s.handleMonthlyFor)
	mux.HandleFunc("GET /api/reports/annual", s.handleAnnual)
	mux.HandleFunc("GET /api/reports/annual/{year}", s.handleAnnualFor)
	mux.HandleFunc("GET /api/reports/all-time", s.handleAllTime)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/budgets/talents/{id}", s.handleTalentBudget)
	mux.HandleFunc("GET /api/budgets/managers/{id}", s.handleManagerBudget)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	var handler http.Handler = applog.ComponentMiddleware(applog.ComponentHTTP)(mux)
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit})
		handler = s.limiter.Middleware(clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})(handler)
	}
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = trace.NewMiddleware(clientIP.Extract, opts.Logger, opts.Observe).Middleware(handler)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler is the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start blocks serving until Shutdown; it returns nil on a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.http.Shutdown(ctx)
}
