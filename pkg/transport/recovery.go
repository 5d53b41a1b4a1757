package transport

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/pforte-dev/pforte/pkg/api"
)

// Recovery converts panics into a 500 JSON error response. The panic
// value and stack are logged; the client sees a generic message.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic in handler",
						slog.Any("panic", rec),
						slog.String("path", r.URL.Path),
						slog.String("request_id", RequestIDFromContext(r.Context())),
						slog.String("stack", string(debug.Stack())),
					)
					api.WriteError(w, http.StatusInternalServerError,
						api.NewError(api.CodeServerError, "internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
