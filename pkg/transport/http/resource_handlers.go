package http

import (
	"net/http"

	"github.com/pforte-dev/pforte/pkg/api"
)

// handleApp confirms access to a chat application. The grant check
// already ran in middleware; reaching this handler means access.
func (a *Adapter) handleApp(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, api.ResourceGrant{
		ID:      r.PathValue("id"),
		Allowed: true,
	})
}

// handleModel confirms access to a model.
func (a *Adapter) handleModel(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, api.ResourceGrant{
		ID:      r.PathValue("id"),
		Allowed: true,
	})
}

// handleHealthz reports liveness. It deliberately skips the user store:
// a degraded store should surface as request errors, not flapping
// liveness probes.
func (a *Adapter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
