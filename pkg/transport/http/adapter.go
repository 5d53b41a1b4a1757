// Package http serves the gateway API over HTTP: the auth-status
// document, the per-method login endpoints, resource access checks,
// user management, and the server-rendered login gate page.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pforte-dev/pforte/pkg/api"
	"github.com/pforte-dev/pforte/pkg/auth"
	"github.com/pforte-dev/pforte/pkg/auth/ldap"
	"github.com/pforte-dev/pforte/pkg/auth/local"
	"github.com/pforte-dev/pforte/pkg/auth/ntlm"
	"github.com/pforte-dev/pforte/pkg/auth/oidc"
	"github.com/pforte-dev/pforte/pkg/auth/token"
	"github.com/pforte-dev/pforte/pkg/authz"
	"github.com/pforte-dev/pforte/pkg/config"
	"github.com/pforte-dev/pforte/pkg/observability"
	"github.com/pforte-dev/pforte/pkg/transport"
	"github.com/pforte-dev/pforte/pkg/userstore"
)

// maxBodySize bounds request bodies on JSON endpoints.
const maxBodySize = 1 << 20 // 1 MB

// Adapter routes gateway requests to the appropriate handler. All
// handlers read configuration through the provider so reloads take
// effect without rewiring; only the route table is fixed at startup.
type Adapter struct {
	cfg     *config.Provider
	store   userstore.Store
	issuer  *token.Issuer
	chain   func() *auth.Chain
	local   *local.Verifier
	ldap    *ldap.Registry
	oidc    *oidc.Registry
	ntlm    *ntlm.Flow
	limiter auth.LoginLimiter
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Options carries the adapter's collaborators. Config, Store, Issuer,
// and Chain are required; verifier registries for disabled methods may
// be nil.
type Options struct {
	Config  *config.Provider
	Store   userstore.Store
	Issuer  *token.Issuer
	Chain   func() *auth.Chain
	Local   *local.Verifier
	LDAP    *ldap.Registry
	OIDC    *oidc.Registry
	NTLM    *ntlm.Flow
	Limiter auth.LoginLimiter
	Logger  *slog.Logger
}

// NewAdapter creates the adapter and registers its routes.
func NewAdapter(opts Options) *Adapter {
	a := &Adapter{
		cfg:     opts.Config,
		store:   opts.Store,
		issuer:  opts.Issuer,
		chain:   opts.Chain,
		local:   opts.Local,
		ldap:    opts.LDAP,
		oidc:    opts.OIDC,
		ntlm:    opts.NTLM,
		limiter: opts.Limiter,
		logger:  opts.Logger,
		mux:     http.NewServeMux(),
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	c := a.cfg.Get()
	base := basePath(c)
	admin := a.adminOnly

	a.mux.HandleFunc("GET "+base+"/api/auth/status", a.handleStatus)
	a.mux.HandleFunc("POST "+base+"/api/auth/local/login", a.handleLocalLogin)
	a.mux.HandleFunc("POST "+base+"/api/auth/ldap/login", a.handleLdapLogin)
	a.mux.HandleFunc("GET "+base+"/api/auth/oidc/{provider}", a.handleOidcStart)
	a.mux.HandleFunc("GET "+base+"/api/auth/oidc/{provider}/callback", a.handleOidcCallback)
	a.mux.HandleFunc("GET "+base+"/api/auth/ntlm/login", a.handleNtlmLogin)
	a.mux.HandleFunc("POST "+base+"/api/auth/logout", a.handleLogout)

	pathID := func(r *http.Request) string { return r.PathValue("id") }
	a.mux.Handle("GET "+base+"/api/apps/{id}",
		auth.ChatRequired(pathID)(http.HandlerFunc(a.handleApp)))
	a.mux.Handle("GET "+base+"/api/models/{id}",
		auth.Required()(auth.ResourceAccess(auth.ResourceModel, pathID)(http.HandlerFunc(a.handleModel))))

	a.mux.Handle("GET "+base+"/api/users", admin(a.handleListUsers))
	a.mux.Handle("POST "+base+"/api/users", admin(a.handleCreateUser))
	a.mux.Handle("POST "+base+"/api/users/{id}/activate", admin(a.handleActivateUser))
	a.mux.Handle("POST "+base+"/api/users/{id}/deactivate", admin(a.handleDeactivateUser))
	a.mux.Handle("PUT "+base+"/api/users/{id}/groups", admin(a.handleUpdateGroups))

	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	if c.Observability.Metrics.Enabled {
		a.mux.Handle("GET "+c.Observability.Metrics.Path, promhttp.Handler())
	}
	a.mux.HandleFunc("GET /{$}", a.handleGatePage)

	return a
}

// Handler returns the fully wrapped http.Handler: recovery, request ID,
// logging, metrics, then identity resolution, then the route table.
// Identity resolution never rejects, so it is safe to apply globally.
func (a *Adapter) Handler() http.Handler {
	return transport.Chain(
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(a.logger),
		observability.MetricsMiddleware,
		auth.ResolveIdentity(a.chain, a.authzConfig),
	)(a.mux)
}

func (a *Adapter) authzConfig() *authz.Config {
	return &a.cfg.Get().Authorization
}

// adminOnly guards user-management handlers: a principal must be
// present and its resolved permission set must carry IsAdmin.
func (a *Adapter) adminOnly(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFromContext(r.Context())
		if p == nil || p.IsAnonymous() {
			api.WriteError(w, http.StatusUnauthorized,
				api.NewError(api.CodeAuthRequired, "authentication required"))
			return
		}
		perms, ok := auth.PermissionsFromContext(r.Context())
		if !ok || !perms.IsAdmin {
			api.WriteError(w, http.StatusForbidden,
				api.NewError(api.CodeAdminRequired, "administrator access required"))
			return
		}
		next(w, r)
	})
}

// basePath normalizes the configured route prefix: no trailing slash,
// empty for root.
func basePath(c *config.Config) string {
	return strings.TrimSuffix(c.Server.BasePath, "/")
}

// decodeJSON decodes a bounded JSON request body into dst. It writes
// the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.WriteError(w, http.StatusRequestEntityTooLarge,
				api.NewErrorf(api.CodeInvalidRequest, "request body too large (max %d bytes)", maxBodySize))
			return false
		}
		api.WriteError(w, http.StatusBadRequest,
			api.NewError(api.CodeInvalidRequest, "invalid JSON body"))
		return false
	}
	return true
}

// clientKey builds the rate-limiter key from the claimed username and
// the remote host. Attempts are counted per username+address pair.
func clientKey(username string, r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return username + "|" + host
}

// setTokenCookie attaches the gateway token as a cookie so browser
// navigations (the gate page itself, provider round trips) carry the
// session without an Authorization header.
func setTokenCookie(w http.ResponseWriter, tok string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     token.CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearTokenCookie expires the token cookie.
func clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     token.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// absoluteURL builds an absolute URL for the given path from the
// request's host and forwarded scheme.
func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, path)
}
