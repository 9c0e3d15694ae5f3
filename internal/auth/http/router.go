package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/service"
	"github.com/kindergrid/kindergrid/internal/auth/store"
	"github.com/kindergrid/kindergrid/pkg/httpx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
	"github.com/kindergrid/kindergrid/pkg/verify"

	_ "github.com/kindergrid/kindergrid/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *verify.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	TokenService   *service.TokenService
	SessionService *service.SessionService
	AccountService *service.AccountService
	MFAService     *service.MFAService
}

func NewRouter(
	verifier *verify.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerTokens()
	r.registerSessions()
	r.registerMFA()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
//
//	@title			Kindergrid Authentication Service API
//	@version		0.1.0
//	@description	Token issuance, verification, and session revocation for the
//	@description	kindergrid learning platform. Guardian tokens authenticate
//	@description	account holders; dependent tokens carry age-band session
//	@description	ceilings and are revocable before expiry.
//
//	@contact.name				Kindergrid Platform Team
//	@contact.url				https://github.com/kindergrid/kindergrid
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Kindergrid token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAccounts() {
	registerHandler := &RegisterHandler{AccountService: r.AccountService}
	r.Mux.Handle("POST /v1/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	dependentsHandler := &DependentsHandler{AccountService: r.AccountService}

	// Dependent management is guardian-only. Rate limiting runs before
	// verification, always.
	securedCreate := httpx.Chain(http.HandlerFunc(dependentsHandler.HandleCreate),
		httpx.RateLimitByCaller(httpx.ModerateLimit),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireGuardian(),
	)
	securedList := httpx.Chain(http.HandlerFunc(dependentsHandler.HandleList),
		httpx.RateLimitByCaller(httpx.LenientLimit),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireGuardian(),
	)

	r.Mux.Handle("POST /v1/dependents", securedCreate)
	r.Mux.Handle("GET /v1/dependents", securedList)
}

func (r *Router) registerTokens() {
	// POST /login - strict rate limit by IP (credential guessing surface)
	loginHandler := &LoginHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /tokens/dependent - the handler passes the raw bearer token to the
	// service, which runs the full verification pipeline itself. No
	// AuthnMiddleware here: double verification would hit the revocation
	// store twice per issuance.
	issueHandler := &IssueDependentTokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/tokens/dependent",
		httpx.Chain(issueHandler,
			httpx.RateLimitByCaller(httpx.ModerateLimit),
		),
	)

	// POST /validate - introspection for out-of-band collaborators
	validateHandler := &ValidateHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/validate",
		httpx.Chain(validateHandler,
			httpx.RateLimitByCaller(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSessions() {
	// POST /logout - parses rather than verifies, so a revoked token can
	// still log out. Moderate limit by IP.
	logoutHandler := &LogoutHandler{SessionService: r.SessionService}
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /sessions/force-end - verification happens in the service (it
	// needs the raw guardian token), same as dependent issuance.
	forceEndHandler := &ForceEndHandler{SessionService: r.SessionService}
	r.Mux.Handle("POST /v1/sessions/force-end",
		httpx.Chain(forceEndHandler,
			httpx.RateLimitByCaller(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	// Strict limit: TOTP codes are six digits, don't let anyone grind them.
	secured := httpx.Chain(http.HandlerFunc(h.HandleEnroll),
		httpx.RateLimitByCaller(httpx.StrictLimit),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireGuardian(),
	)

	r.Mux.Handle("POST /v1/mfa/totp/enroll", secured)
}

func (r *Router) registerSystem() {
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
