package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pforte-dev/pforte/pkg/api"
	"github.com/pforte-dev/pforte/pkg/auth"
	"github.com/pforte-dev/pforte/pkg/auth/ldap"
	"github.com/pforte-dev/pforte/pkg/auth/local"
	"github.com/pforte-dev/pforte/pkg/config"
	"github.com/pforte-dev/pforte/pkg/observability"
	"github.com/pforte-dev/pforte/pkg/userstore"
)

// handleStatus serves the auth-status document the gate bases its
// load-or-login decision on. It is reachable without authentication.
func (a *Adapter) handleStatus(w http.ResponseWriter, r *http.Request) {
	c := a.cfg.Get()

	resp := api.StatusResponse{
		AuthMethods:   a.methodStatuses(c),
		AnonymousAuth: api.AnonymousStatus{Enabled: c.Auth.Anonymous.Enabled},
	}
	if c.Auth.OIDC.Enabled {
		resp.AutoRedirect = c.Auth.OIDC.AutoRedirect
		resp.AutoRedirectWindowSeconds = int64(c.Gate.AutoRedirectWindow.Seconds())
	}
	if c.Gate.Title != "" || c.Gate.Subtitle != "" {
		resp.GateUI = &api.GateUI{Title: c.Gate.Title, Subtitle: c.Gate.Subtitle}
	}

	if p := auth.PrincipalFromContext(r.Context()); p != nil && !p.IsAnonymous() {
		perms, _ := auth.PermissionsFromContext(r.Context())
		resp.Authenticated = true
		resp.User = &api.UserInfo{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Groups:      p.RawGroups,
			Method:      string(p.Method),
			IsAdmin:     perms.IsAdmin,
		}
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

// methodStatuses reports enabled methods and their providers from the
// current configuration.
func (a *Adapter) methodStatuses(c *config.Config) map[string]api.MethodStatus {
	ldapStatus := api.MethodStatus{Enabled: c.Auth.LDAP.Enabled}
	for _, p := range c.Auth.LDAP.Providers {
		ldapStatus.Providers = append(ldapStatus.Providers, api.Provider{Name: p.Name})
	}

	oidcStatus := api.MethodStatus{Enabled: c.Auth.OIDC.Enabled}
	for _, p := range c.Auth.OIDC.Providers {
		oidcStatus.Providers = append(oidcStatus.Providers, api.Provider{Name: p.Name, Label: p.Label})
	}

	return map[string]api.MethodStatus{
		"local": {Enabled: c.Auth.Local.Enabled},
		"ldap":  ldapStatus,
		"oidc":  oidcStatus,
		"ntlm":  {Enabled: c.Auth.NTLM.Enabled},
	}
}

// handleLocalLogin verifies a username/password against the user store
// and returns a signed gateway token.
func (a *Adapter) handleLocalLogin(w http.ResponseWriter, r *http.Request) {
	c := a.cfg.Get()
	if !c.Auth.Local.Enabled || a.local == nil {
		observability.LoginAttemptsTotal.WithLabelValues("local", "method_disabled").Inc()
		api.WriteError(w, http.StatusForbidden,
			api.NewError(api.CodeMethodDisabled, "local authentication is disabled"))
		return
	}

	var req api.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !a.allowAttempt(w, "local", req.Username, r) {
		return
	}

	p, err := a.local.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, local.ErrInvalidCredentials) {
			observability.LoginAttemptsTotal.WithLabelValues("local", "invalid_credentials").Inc()
			api.WriteError(w, http.StatusUnauthorized,
				api.NewError(api.CodeInvalidCredentials, "invalid username or password"))
			return
		}
		a.logger.Error("local login failed", slog.String("error", err.Error()))
		observability.LoginAttemptsTotal.WithLabelValues("local", "error").Inc()
		api.WriteError(w, http.StatusInternalServerError,
			api.NewError(api.CodeServerError, "login temporarily unavailable"))
		return
	}

	observability.LoginAttemptsTotal.WithLabelValues("local", "success").Inc()
	a.finishLogin(w, r, p, c.Auth.Local.SessionTimeout, c)
}

// handleLdapLogin verifies a bind against a configured directory and
// returns a signed gateway token.
func (a *Adapter) handleLdapLogin(w http.ResponseWriter, r *http.Request) {
	c := a.cfg.Get()
	if !c.Auth.LDAP.Enabled || a.ldap == nil {
		observability.LoginAttemptsTotal.WithLabelValues("ldap", "method_disabled").Inc()
		api.WriteError(w, http.StatusForbidden,
			api.NewError(api.CodeMethodDisabled, "ldap authentication is disabled"))
		return
	}

	var req api.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !a.allowAttempt(w, "ldap", req.Username, r) {
		return
	}

	p, err := a.ldap.Verify(r.Context(), req.Provider, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ldap.ErrInvalidCredentials):
			observability.LoginAttemptsTotal.WithLabelValues("ldap", "invalid_credentials").Inc()
			api.WriteError(w, http.StatusUnauthorized,
				api.NewError(api.CodeInvalidCredentials, "invalid username or password"))
		case errors.Is(err, ldap.ErrUnknownProvider):
			observability.LoginAttemptsTotal.WithLabelValues("ldap", "error").Inc()
			api.WriteError(w, http.StatusBadRequest,
				api.NewError(api.CodeInvalidRequest, "unknown ldap provider"))
		default:
			a.logger.Error("ldap login failed", slog.String("error", err.Error()))
			observability.LoginAttemptsTotal.WithLabelValues("ldap", "error").Inc()
			api.WriteError(w, http.StatusInternalServerError,
				api.NewError(api.CodeServerError, "login temporarily unavailable"))
		}
		return
	}

	observability.LoginAttemptsTotal.WithLabelValues("ldap", "success").Inc()
	a.finishLogin(w, r, p, c.Auth.LDAP.SessionTimeout, c)
}

// handleOidcStart redirects the browser to the provider's authorize
// endpoint.
func (a *Adapter) handleOidcStart(w http.ResponseWriter, r *http.Request) {
	c := a.cfg.Get()
	if !c.Auth.OIDC.Enabled || a.oidc == nil {
		api.WriteError(w, http.StatusForbidden,
			api.NewError(api.CodeMethodDisabled, "oidc authentication is disabled"))
		return
	}

	provider := r.PathValue("provider")
	returnURL := r.URL.Query().Get("returnUrl")
	redirectURI := absoluteURL(r, basePath(c)+"/api/auth/oidc/"+provider+"/callback")

	target, err := a.oidc.AuthURL(provider, redirectURI, returnURL)
	if err != nil {
		api.WriteError(w, http.StatusNotFound,
			api.NewErrorf(api.CodeNotFound, "unknown oidc provider %q", provider))
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// handleOidcCallback exchanges the authorization code, issues a gateway
// token, and sends the browser back to the gate with the token in hand.
// A failed exchange lands on the gate with an error marker instead of a
// dead end in the provider round trip.
func (a *Adapter) handleOidcCallback(w http.ResponseWriter, r *http.Request) {
	c := a.cfg.Get()
	if !c.Auth.OIDC.Enabled || a.oidc == nil {
		api.WriteError(w, http.StatusForbidden,
			api.NewError(api.CodeMethodDisabled, "oidc authentication is disabled"))
		return
	}

	provider := r.PathValue("provider")
	q := r.URL.Query()
	redirectURI := absoluteURL(r, basePath(c)+"/api/auth/oidc/"+provider+"/callback")

	p, err := a.oidc.HandleCallback(r.Context(), provider, q.Get("code"), redirectURI)
	if err != nil {
		a.logger.Warn("oidc callback rejected",
			slog.String("provider", provider), slog.String("error", err.Error()))
		observability.LoginAttemptsTotal.WithLabelValues("oidc", "callback_failed").Inc()
		http.Redirect(w, r, "/?error=callback_failed", http.StatusFound)
		return
	}

	observability.LoginAttemptsTotal.WithLabelValues("oidc", "success").Inc()

	a.selfHealAdmin(r.Context(), c, p)
	ttl := effectiveTTL(c.Auth.OIDC.SessionTimeout, c)
	tok, err := a.issuer.Issue(p, ttl)
	if err != nil {
		a.logger.Error("token issuance failed", slog.String("error", err.Error()))
		api.WriteError(w, http.StatusInternalServerError,
			api.NewError(api.CodeServerError, "login temporarily unavailable"))
		return
	}
	setTokenCookie(w, tok, ttl)

	http.Redirect(w, r, callbackReturnURL(q.Get("state"), tok), http.StatusFound)
}

// callbackReturnURL builds the post-callback navigation target: the
// state-carried return URL when it is a safe relative path, otherwise
// the root, with the token attached for the gate to store.
func callbackReturnURL(state, tok string) string {
	target := "/"
	if strings.HasPrefix(state, "/") && !strings.HasPrefix(state, "//") {
		target = state
	}
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("token", tok)
	u.RawQuery = q.Encode()
	return u.String()
}

// handleNtlmLogin drives the challenge/response handshake over the
// WWW-Authenticate header. Completion issues a gateway token and sends
// the browser back to the gate with the ntlm success marker.
func (a *Adapter) handleNtlmLogin(w http.ResponseWriter, r *http.Request) {
	c := a.cfg.Get()
	if !c.Auth.NTLM.Enabled || a.ntlm == nil {
		api.WriteError(w, http.StatusForbidden,
			api.NewError(api.CodeMethodDisabled, "ntlm authentication is disabled"))
		return
	}

	res, err := a.ntlm.Step(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		observability.LoginAttemptsTotal.WithLabelValues("ntlm", "handshake_failed").Inc()
		api.WriteError(w, http.StatusUnauthorized,
			api.NewError(api.CodeCallbackFailed, "ntlm handshake failed"))
		return
	}

	if !res.Done {
		header := "NTLM"
		if res.Challenge != "" {
			header = "NTLM " + res.Challenge
		}
		w.Header().Set("WWW-Authenticate", header)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	observability.LoginAttemptsTotal.WithLabelValues("ntlm", "success").Inc()

	a.selfHealAdmin(r.Context(), c, res.Principal)
	ttl := effectiveTTL(c.Auth.NTLM.SessionTimeout, c)
	tok, err := a.issuer.Issue(res.Principal, ttl)
	if err != nil {
		a.logger.Error("token issuance failed", slog.String("error", err.Error()))
		api.WriteError(w, http.StatusInternalServerError,
			api.NewError(api.CodeServerError, "login temporarily unavailable"))
		return
	}
	setTokenCookie(w, tok, ttl)

	http.Redirect(w, r, "/?ntlm=success", http.StatusFound)
}

// handleLogout expires the token cookie. Tokens are stateless, so there
// is nothing to revoke server-side; the client discards its copy.
func (a *Adapter) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearTokenCookie(w)
	api.WriteJSON(w, http.StatusOK, api.LoginResponse{Success: true})
}

// allowAttempt consults the login rate limiter. It writes the 429
// response itself and reports whether the attempt may proceed.
func (a *Adapter) allowAttempt(w http.ResponseWriter, method, username string, r *http.Request) bool {
	if a.limiter == nil {
		return true
	}
	if err := a.limiter.Allow(clientKey(username, r)); err != nil {
		observability.LoginAttemptsTotal.WithLabelValues(method, "rate_limited").Inc()
		api.WriteError(w, http.StatusTooManyRequests,
			api.NewError(api.CodeTooManyRequests, "too many login attempts, try again later"))
		return false
	}
	return true
}

// finishLogin is the common tail of the credential login endpoints:
// admin self-heal, token issuance, cookie, and the JSON response.
func (a *Adapter) finishLogin(w http.ResponseWriter, r *http.Request, p *auth.Principal, sessionTimeout time.Duration, c *config.Config) {
	a.selfHealAdmin(r.Context(), c, p)

	ttl := effectiveTTL(sessionTimeout, c)
	tok, err := a.issuer.Issue(p, ttl)
	if err != nil {
		a.logger.Error("token issuance failed", slog.String("error", err.Error()))
		api.WriteError(w, http.StatusInternalServerError,
			api.NewError(api.CodeServerError, "login temporarily unavailable"))
		return
	}
	setTokenCookie(w, tok, ttl)
	api.WriteJSON(w, http.StatusOK, api.LoginResponse{Success: true, Token: tok})
}

// selfHealAdmin restores admin reachability: when no active user can
// reach the admin group through an enabled method, the first principal
// to authenticate successfully is promoted. A no-op whenever a
// reachable administrator exists.
func (a *Adapter) selfHealAdmin(ctx context.Context, c *config.Config, p *auth.Principal) {
	if len(c.Authorization.AdminGroups) == 0 {
		return
	}

	has, err := userstore.HasAnyAdmin(ctx, a.store, &c.Authorization, c.MethodsEnabled())
	if err != nil {
		a.logger.Error("admin reachability check failed", slog.String("error", err.Error()))
		return
	}
	if has {
		return
	}

	group := c.Authorization.AdminGroups[0]
	changed, err := userstore.AssignAdminGroup(ctx, a.store, p.ID, group)
	if err != nil {
		a.logger.Error("admin rescue failed",
			slog.String("user_id", p.ID), slog.String("error", err.Error()))
		return
	}
	if changed {
		a.logger.Warn("no reachable administrator, promoted authenticated user",
			slog.String("user_id", p.ID), slog.String("group", group))
	}
}

// effectiveTTL resolves the token lifetime: the per-method session
// timeout when set, otherwise the configured default.
func effectiveTTL(sessionTimeout time.Duration, c *config.Config) time.Duration {
	if sessionTimeout > 0 {
		return sessionTimeout
	}
	if c.Auth.Token.TTL > 0 {
		return c.Auth.Token.TTL
	}
	return 24 * time.Hour
}
