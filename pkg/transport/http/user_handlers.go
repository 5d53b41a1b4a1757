package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pforte-dev/pforte/pkg/api"
	"github.com/pforte-dev/pforte/pkg/auth/local"
	"github.com/pforte-dev/pforte/pkg/authz"
	"github.com/pforte-dev/pforte/pkg/observability"
	"github.com/pforte-dev/pforte/pkg/userstore"
)

// The user-management endpoints enforce the admin-reachability
// invariant: any mutation that would strip the last active, reachable
// administrator of admin access is vetoed with LAST_ADMIN.

// handleListUsers returns every stored user, active and inactive.
func (a *Adapter) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.List(r.Context())
	if err != nil {
		a.storeError(w, "listing users", err)
		return
	}

	list := api.UserList{Users: make([]api.UserRecord, 0, len(users))}
	for _, u := range users {
		list.Users = append(list.Users, userRecord(u))
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// handleCreateUser creates a local user with a bcrypt password hash.
func (a *Adapter) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		api.WriteError(w, http.StatusBadRequest,
			api.NewError(api.CodeInvalidRequest, "username and password are required"))
		return
	}

	hash, err := local.HashPassword(req.Password)
	if err != nil {
		a.storeError(w, "hashing password", err)
		return
	}

	now := time.Now().UTC()
	u := &userstore.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		PasswordHash:   hash,
		Active:         true,
		InternalGroups: req.Groups,
		AuthMethods:    req.AuthMethods,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := a.store.Create(r.Context(), u); err != nil {
		if errors.Is(err, userstore.ErrConflict) {
			api.WriteError(w, http.StatusConflict,
				api.NewErrorf(api.CodeConflict, "username %q is taken", req.Username))
			return
		}
		a.storeError(w, "creating user", err)
		return
	}

	a.logger.Info("user created", slog.String("user_id", u.ID), slog.String("username", u.Username))
	api.WriteJSON(w, http.StatusCreated, userRecord(u))
}

// handleActivateUser re-enables a deactivated user.
func (a *Adapter) handleActivateUser(w http.ResponseWriter, r *http.Request) {
	a.setActive(w, r, true)
}

// handleDeactivateUser disables a user, vetoing removal of the last
// administrator.
func (a *Adapter) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	a.setActive(w, r, false)
}

func (a *Adapter) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id := r.PathValue("id")
	c := a.cfg.Get()

	if !active {
		last, err := userstore.IsLastAdmin(r.Context(), a.store, &c.Authorization, id)
		if err != nil {
			a.storeError(w, "checking admin invariant", err)
			return
		}
		if last {
			observability.AdminRescueTotal.WithLabelValues("veto").Inc()
			api.WriteError(w, http.StatusConflict,
				api.NewError(api.CodeLastAdmin, "cannot deactivate the last administrator"))
			return
		}
	}

	u, err := a.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			api.WriteError(w, http.StatusNotFound,
				api.NewErrorf(api.CodeNotFound, "user %q not found", id))
			return
		}
		a.storeError(w, "loading user", err)
		return
	}

	u = u.Clone()
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
	if err := a.store.Update(r.Context(), u); err != nil {
		a.storeError(w, "updating user", err)
		return
	}

	api.WriteJSON(w, http.StatusOK, userRecord(u))
}

// handleUpdateGroups replaces a user's internal groups, vetoing a
// change that would demote the last administrator.
func (a *Adapter) handleUpdateGroups(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c := a.cfg.Get()

	var req api.UpdateGroupsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	last, err := userstore.IsLastAdmin(r.Context(), a.store, &c.Authorization, id)
	if err != nil {
		a.storeError(w, "checking admin invariant", err)
		return
	}
	if last && !groupsCarryAdmin(req.Groups, &c.Authorization) {
		observability.AdminRescueTotal.WithLabelValues("veto").Inc()
		api.WriteError(w, http.StatusConflict,
			api.NewError(api.CodeLastAdmin, "cannot demote the last administrator"))
		return
	}

	u, err := a.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			api.WriteError(w, http.StatusNotFound,
				api.NewErrorf(api.CodeNotFound, "user %q not found", id))
			return
		}
		a.storeError(w, "loading user", err)
		return
	}

	u = u.Clone()
	u.InternalGroups = req.Groups
	u.UpdatedAt = time.Now().UTC()
	if err := a.store.Update(r.Context(), u); err != nil {
		a.storeError(w, "updating user", err)
		return
	}

	api.WriteJSON(w, http.StatusOK, userRecord(u))
}

// groupsCarryAdmin reports whether the groups, expanded through
// inheritance, include an admin group.
func groupsCarryAdmin(groups []string, cfg *authz.Config) bool {
	effective := authz.ExpandGroups(groups, cfg)
	for _, admin := range cfg.AdminGroups {
		if _, ok := effective[admin]; ok {
			return true
		}
	}
	return false
}

// userRecord maps a stored user to its API view, omitting the hash.
func userRecord(u *userstore.User) api.UserRecord {
	return api.UserRecord{
		ID:             u.ID,
		Username:       u.Username,
		Active:         u.Active,
		InternalGroups: u.InternalGroups,
		AuthMethods:    u.AuthMethods,
		CreatedAt:      u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// storeError logs a backend failure and answers with a generic 500.
func (a *Adapter) storeError(w http.ResponseWriter, op string, err error) {
	a.logger.Error(op, slog.String("error", err.Error()))
	api.WriteError(w, http.StatusInternalServerError,
		api.NewError(api.CodeServerError, "internal server error"))
}
