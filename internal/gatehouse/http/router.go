package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lodgepole/gatehouse/internal/gatehouse/service"
	"github.com/lodgepole/gatehouse/internal/gatehouse/store"
	"github.com/lodgepole/gatehouse/pkg/httpx"
	"github.com/lodgepole/gatehouse/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	cookies      CookieConfig

	store               store.Store
	RegistrationService *service.RegistrationService
	PasswordService     *service.PasswordService
	OAuthService        *service.OAuthService
	SessionService      *service.SessionService
}

// CookieConfig controls how the session cookie is written.
type CookieConfig struct {
	Name   string
	Secure bool
}

func NewRouter(
	buildVersion string,
	cookies CookieConfig,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		cookies:      cookies,
		store:        st,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerSystem()
}

func (r *Router) registerAuth() {
	signupHandler := &SignupHandler{
		RegistrationService: r.RegistrationService,
		Cookies:             r.cookies,
	}
	// POST /signup - strict rate limit by IP (account creation)
	r.Mux.Handle("POST /v1/signup",
		httpx.Chain(signupHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	loginHandler := &LoginHandler{
		PasswordService: r.PasswordService,
		Cookies:         r.cookies,
	}
	// POST /login - throttling is owned by the service-level login limiter
	// (exact per-window attempt accounting); only the lenient transport
	// limit applies here so the two policies don't interleave.
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	oauthHandler := &OAuthCallbackHandler{
		OAuthService: r.OAuthService,
		Cookies:      r.cookies,
	}
	// POST /oauth/{provider}/callback - strict rate limit by IP
	r.Mux.Handle("POST /v1/oauth/{provider}/callback",
		httpx.Chain(oauthHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	logoutHandler := &LogoutHandler{
		SessionService: r.SessionService,
		Cookies:        r.cookies,
	}
	// POST /logout - moderate rate limit; idempotent, no auth required
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSessions() {
	authn := SessionMiddleware(r.SessionService, r.cookies)

	meHandler := &MeHandler{}
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(meHandler,
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	listHandler := &SessionListHandler{SessionService: r.SessionService}
	r.Mux.Handle("GET /v1/sessions",
		httpx.Chain(listHandler,
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	revokeHandler := &SessionRevokeAllHandler{
		SessionService: r.SessionService,
		Cookies:        r.cookies,
	}
	r.Mux.Handle("DELETE /v1/sessions",
		httpx.Chain(revokeHandler,
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
