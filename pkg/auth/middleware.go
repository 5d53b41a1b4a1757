package auth

import (
	"log/slog"
	"net/http"

	"github.com/pforte-dev/pforte/pkg/api"
	"github.com/pforte-dev/pforte/pkg/authz"
	"github.com/pforte-dev/pforte/pkg/debug"
	"github.com/pforte-dev/pforte/pkg/observability"
)

// Resource names a protected resource category. The access check is
// identical for every category; only the denial code differs.
type Resource string

const (
	ResourceApp   Resource = "app"
	ResourceModel Resource = "model"
)

// denialCode maps a resource category to its stable error code.
func denialCode(resource Resource) api.Code {
	switch resource {
	case ResourceModel:
		return api.CodeModelAccessDenied
	default:
		return api.CodeAppAccessDenied
	}
}

// ResolveIdentity creates middleware that runs the authentication chain
// and stores the resulting principal and permission set in the request
// context. It never rejects a request: a failed or absent credential
// simply leaves the context without a principal, and downstream
// middleware decides whether that is acceptable.
//
// Both the chain and the authorization config are provider functions so
// that hot-reloaded configuration takes effect without re-wiring.
func ResolveIdentity(chain func() *Chain, authzCfg func() *authz.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := chain().Authenticate(r.Context(), r)

			switch {
			case result.Decision == Yes && result.Principal != nil && result.Principal.ID != "":
				p := result.Principal
				observability.AuthDecisionsTotal.WithLabelValues(string(p.Method), "yes").Inc()
				debug.Log("auth", "principal resolved",
					"method", string(p.Method),
					"principal", p.ID,
					"path", r.URL.Path,
				)

				ctx := SetPrincipal(r.Context(), p)
				ctx = SetPermissions(ctx, authz.Resolve(p.RawGroups, authzCfg()))
				r = r.WithContext(ctx)

			case result.Decision == No:
				observability.AuthDecisionsTotal.WithLabelValues("", "no").Inc()
				if result.Err != nil && result.Err != ErrUnauthenticated {
					slog.Debug("credential rejected",
						"path", r.URL.Path,
						"remote_addr", r.RemoteAddr,
						"error", result.Err,
					)
				}

			default:
				slog.Error("authenticator returned principal with empty id", "path", r.URL.Path)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Required creates middleware that rejects requests carrying no
// principal. The anonymous placeholder passes: it is only ever produced
// when anonymous access is enabled.
func Required() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) == nil {
				api.WriteError(w, http.StatusUnauthorized,
					api.NewError(api.CodeAuthRequired, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ResourceAccess creates middleware that checks the resolved permission
// set against a specific resource ID. idFrom extracts the resource ID
// from the request (route parameter, header). An empty ID is an invalid
// request, not a denial.
func ResourceAccess(resource Resource, idFrom func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := idFrom(r)
			if id == "" {
				api.WriteError(w, http.StatusBadRequest,
					api.NewErrorf(api.CodeInvalidRequest, "missing %s id", resource))
				return
			}

			perms, ok := PermissionsFromContext(r.Context())
			if !ok {
				api.WriteError(w, http.StatusUnauthorized,
					api.NewError(api.CodeAuthRequired, "authentication required"))
				return
			}

			allowed := false
			switch resource {
			case ResourceModel:
				allowed = perms.AllowsModel(id)
			default:
				allowed = perms.AllowsApp(id)
			}

			if !allowed {
				p := PrincipalFromContext(r.Context())
				slog.Warn("resource access denied",
					"resource", string(resource),
					"id", id,
					"principal", principalID(p),
				)
				observability.AccessDenialsTotal.WithLabelValues(string(resource)).Inc()
				api.WriteError(w, http.StatusForbidden,
					api.NewErrorf(denialCode(resource), "access to %s %q denied", resource, id))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ChatRequired creates the composite middleware protecting chat
// application endpoints: a principal must be present, and non-anonymous
// principals must additionally hold a grant for the requested app.
// Anonymous principals skip the per-user grant check; their access is
// governed by app visibility, not grants.
func ChatRequired(idFrom func(*http.Request) string) func(http.Handler) http.Handler {
	required := Required()
	appAccess := ResourceAccess(ResourceApp, idFrom)

	return func(next http.Handler) http.Handler {
		guarded := appAccess(next)
		return required(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()).IsAnonymous() {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		}))
	}
}

func principalID(p *Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}
