package http

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"financas/internal/auth"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
	appweb "financas/web"
)

const (
	defaultBalanceCacheTTL     = 5 * time.Minute
	defaultBalanceCacheEntries = 1000
	cacheCleanupInterval       = 10 * time.Minute
	staticMaxAge               = 3600
	readyTimeout               = 2 * time.Second
)

// Auth is the authentication the server needs: the page level operations
// plus the middleware that resolves the session cookie.
type Auth interface {
	auth.Authenticator
	Middleware(next http.Handler) http.Handler
}

// SessionSweeper removes expired sessions from storage.
type SessionSweeper interface {
	CleanExpiredSessions(ctx context.Context) (int64, error)
}

// Options wires the server. Auth, Plans and Transactions are required.
type Options struct {
	Addr         string
	Auth         Auth
	Plans        services.PlanStore
	Transactions services.TransactionStore
	// Publisher announces new transactions to the export worker; nil
	// disables the export.
	Publisher services.SyncPublisher
	Sessions  SessionSweeper
	// Ready reports whether the backing services answer.
	Ready   func(ctx context.Context) error
	Chooser core.Chooser
	Logger  *log.Logger
	Metrics *Metrics

	SessionTTL          time.Duration
	RateLimitPerMinute  int
	BalanceCacheTTL     time.Duration
	BalanceCacheEntries int
}

// Server serves the web pages.
type Server struct {
	http.Server

	auth       Auth
	plans      services.PlanStore
	txs        services.TransactionStore
	publisher  services.SyncPublisher
	ready      func(ctx context.Context) error
	choose     core.Chooser
	logger     *log.Logger
	metrics    *Metrics
	views      *renderer
	sessionTTL time.Duration

	balances *cache.LRUCache[int64, core.Balance]
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer parses the templates, builds the middleware chain and starts the
// background cleanup. Call Shutdown to stop it.
func NewServer(opts Options) (*Server, error) {
	if opts.Auth == nil || opts.Plans == nil || opts.Transactions == nil {
		return nil, fmt.Errorf("http server: auth, plans and transactions are required")
	}
	views, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Chooser == nil {
		opts.Chooser = core.DefaultChooser
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = auth.DefaultSessionTTL
	}
	if opts.BalanceCacheTTL <= 0 {
		opts.BalanceCacheTTL = defaultBalanceCacheTTL
	}
	if opts.BalanceCacheEntries <= 0 {
		opts.BalanceCacheEntries = defaultBalanceCacheEntries
	}
	logger := log.Or(opts.Logger, log.ComponentHTTP)

	s := &Server{
		auth:       opts.Auth,
		plans:      opts.Plans,
		txs:        opts.Transactions,
		publisher:  opts.Publisher,
		ready:      opts.Ready,
		choose:     opts.Chooser,
		logger:     logger,
		metrics:    opts.Metrics,
		views:      views,
		sessionTTL: opts.SessionTTL,
		balances: cache.NewLRUCache[int64, core.Balance](opts.BalanceCacheEntries, opts.BalanceCacheTTL,
			cache.WithObserver(opts.Metrics.ObserveCache)),
		caches:   cache.NewManager(logger),
		detector: security.NewDetector(),
	}

	limits := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limits.RequestsPerMinute = opts.RateLimitPerMinute
	}
	s.limiter = ratelimit.NewLimiter(limits)

	s.caches.Register(s.balances)
	if opts.Sessions != nil {
		s.caches.Register(sessionCleaner{store: opts.Sessions, logger: logger})
	}
	s.caches.StartCleanup(context.Background(), cacheCleanupInterval)

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		s.stopBackground()
		return nil, err
	}

	tracer := trace.NewMiddleware(logger, s.detector.ClientIP, s.metrics.ObserveRequest)
	var handler http.Handler = mux
	handler = s.auth.Middleware(handler)
	handler = s.limiter.Middleware(s.detector.ClientIP, s.rateLimited)(handler)
	handler = security.NoStore(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(logger, func(string) { s.metrics.SuspiciousRequests.Inc() })(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /cadastro", s.handleRegisterForm)
	mux.HandleFunc("POST /cadastro", s.handleRegister)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)

	private := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.auth.RequireLogin(h))
	}
	private("GET /logout", s.handleLogout)
	private("POST /logout", s.handleLogout)
	private("GET /perfil", s.handleProfile)
	private("GET /configuracoes", s.handleSettings)

	private("GET /planejamentos", s.handleListPlans)
	private("GET /planejamentos/novo", s.handleNewPlanForm)
	private("POST /planejamentos/novo", s.handleCreatePlan)
	private("GET /planejamentos/{id}/editar", s.handleEditPlanForm)
	private("POST /planejamentos/{id}/editar", s.handleEditPlan)
	private("POST /planejamentos/{id}/excluir", s.handleDeletePlan)

	private("GET /movimentacoes", s.handleListTransactions)
	private("GET /movimentacoes/nova", s.handleNewTransactionForm)
	private("POST /movimentacoes/nova", s.handleCreateTransaction)

	mux.HandleFunc("/", s.handleNotFound)
	return nil
}

// Shutdown stops the background cleanup and the rate limiter, then shuts
// the HTTP server down. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) stopBackground() {
	s.caches.Stop()
	s.limiter.Stop()
}

// sessionCleaner lets the cache manager sweep expired sessions along with
// the in-memory caches.
type sessionCleaner struct {
	store  SessionSweeper
	logger *log.Logger
}

func (c sessionCleaner) CleanExpired() int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := c.store.CleanExpiredSessions(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to clean expired sessions", log.FieldError, err)
		return 0
	}
	return int(n)
}
