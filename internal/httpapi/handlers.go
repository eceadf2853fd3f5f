package httpapi

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"formgate.org/internal/auth"
	"formgate.org/internal/obs"
	"formgate.org/internal/ratelimit"
	"formgate.org/internal/submission"
)

const serviceName = "formgate-api"

// Limit is a fixed-window budget for one endpoint.
type Limit struct {
	Max    int
	Window time.Duration
}

// Limits holds the per-endpoint budgets.
type Limits struct {
	Waitlist Limit
	Contact  Limit
	Login    Limit
}

// DefaultLimits mirrors the configuration defaults.
var DefaultLimits = Limits{
	Waitlist: Limit{Max: 3, Window: time.Minute},
	Contact:  Limit{Max: 5, Window: time.Minute},
	Login:    Limit{Max: 5, Window: 15 * time.Minute},
}

// Options wires the API. Nil stores are replaced with fresh in-memory ones.
type Options struct {
	Version        string
	Production     bool
	Credentials    auth.Credentials
	Limits         Limits
	FloodPerSecond float64
	FloodBurst     int
	AllowedOrigins []string
	TrustedProxies int
	MaxBodyBytes   int64

	Waitlist *submission.Store[submission.Waitlist]
	Contacts *submission.Store[submission.Contact]
	Sessions *auth.SessionStore
	Limiter  *ratelimit.Limiter
	CSRF     *auth.CSRF
	Now      func() time.Time
}

// API is the HTTP layer.
type API struct {
	router   chi.Router
	version  string
	secure   bool
	limits   Limits
	now      func() time.Time
	draining atomic.Bool

	credentials auth.Credentials

	waitlist *submission.Store[submission.Waitlist]
	contacts *submission.Store[submission.Contact]
	sessions *auth.SessionStore
	limiter  *ratelimit.Limiter
	csrf     *auth.CSRF
	admin    auth.Chain
	flood    *FloodGuard
}

func New(opts Options) *API {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	if opts.Waitlist == nil {
		opts.Waitlist = submission.NewWaitlistStore(submission.Options{Now: opts.Now})
	}
	if opts.Contacts == nil {
		opts.Contacts = submission.NewContactStore(submission.Options{Now: opts.Now})
	}
	if opts.Sessions == nil {
		opts.Sessions = auth.NewSessionStore(auth.DefaultSessionTTL, auth.WithSessionClock(opts.Now))
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(ratelimit.WithClock(opts.Now))
	}
	if opts.CSRF == nil {
		opts.CSRF = auth.NewCSRF("", 0, opts.Now)
	}

	a := &API{
		version:  opts.Version,
		secure:   opts.Production,
		limits:   opts.Limits,
		now:      opts.Now,
		waitlist: opts.Waitlist,
		contacts: opts.Contacts,
		sessions: opts.Sessions,
		limiter:  opts.Limiter,
		csrf:     opts.CSRF,
		admin: auth.Chain{
			auth.SessionAuthenticator{Sessions: opts.Sessions},
			auth.BasicAuthenticator{Credentials: opts.Credentials},
		},
		flood:       NewFloodGuard(opts.FloodPerSecond, opts.FloodBurst),
		credentials: opts.Credentials,
	}
	a.router = a.routes(opts)
	return a
}

func (a *API) routes(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(ClientIP(opts.TrustedProxies))
	r.Use(LoggingJSON)
	r.Use(Recover)
	r.Use(obs.Instrument(routePattern))
	r.Use(SecurityHeaders)
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(a.flood.Middleware)
	r.Use(MaxBodyBytes(opts.MaxBodyBytes))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	jsonBody := middleware.AllowContentType("application/json")

	r.Route("/api", func(r chi.Router) {
		r.Get("/csrf", a.handleCSRF)

		r.With(jsonBody).Post("/waitlist", a.handleWaitlistSubmit)
		r.With(middleware.NoCache, a.requireAdmin).Get("/waitlist", a.handleWaitlistList)

		r.With(jsonBody).Post("/contact", a.handleContactSubmit)
		r.With(middleware.NoCache, a.requireAdmin).Get("/contact", a.handleContactList)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NoCache)
			r.With(jsonBody).Post("/login", a.handleLogin)
			r.Post("/logout", a.handleLogout)
			r.With(a.requireAdmin).Get("/session", a.handleSessionInfo)
			r.With(a.requireAdmin).Get("/waitlist/export", a.handleWaitlistExport)
		})
	})
	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// Handler returns the root http.Handler.
func (a *API) Handler() http.Handler {
	return a.router
}

// SetDraining makes /readyz fail so load balancers stop routing here before
// shutdown.
func (a *API) SetDraining(v bool) {
	a.draining.Store(v)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  "shutting down",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         serviceName,
		"time":         a.now().UTC().Format(time.RFC3339),
		"version":      a.version,
		"csrf_enabled": a.csrf.Enabled(),
	})
}
