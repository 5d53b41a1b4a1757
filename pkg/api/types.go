package api

// MethodStatus reports whether one authentication method is enabled and,
// for multi-provider methods, which providers it offers.
type MethodStatus struct {
	Enabled   bool       `json:"enabled"`
	Providers []Provider `json:"providers,omitempty"`
}

// Provider identifies one configured identity provider for a method
// (OIDC and LDAP support several in parallel).
type Provider struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
}

// AnonymousStatus reports whether unauthenticated access is allowed.
type AnonymousStatus struct {
	Enabled bool `json:"enabled"`
}

// GateUI carries display hints for the pre-bootstrap login gate.
type GateUI struct {
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
}

// UserInfo describes the authenticated principal in the status document.
type UserInfo struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Groups      []string `json:"groups,omitempty"`
	Method      string   `json:"method"`
	IsAdmin     bool     `json:"isAdmin"`
}

// StatusResponse is the document served by GET /api/auth/status. The
// pre-bootstrap gate bases its entire load-or-login decision on it.
type StatusResponse struct {
	Authenticated bool                    `json:"authenticated"`
	AuthMethods   map[string]MethodStatus `json:"authMethods"`
	AnonymousAuth AnonymousStatus         `json:"anonymousAuth"`
	// AutoRedirect names the provider the gate should navigate to
	// without showing a login form, or is empty.
	AutoRedirect string `json:"autoRedirect,omitempty"`

	// AutoRedirectWindowSeconds is the per-provider throttle window the
	// gate applies between automatic redirects.
	AutoRedirectWindowSeconds int64 `json:"autoRedirectWindowSeconds,omitempty"`

	GateUI *GateUI   `json:"gateUI,omitempty"`
	User   *UserInfo `json:"user,omitempty"`
}

// LoginRequest is the body of POST /api/auth/{local,ldap}/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Provider selects an LDAP provider when several are configured.
	Provider string `json:"provider,omitempty"`
}

// UserRecord is the user-management view of a stored user. Password
// hashes never leave the store.
type UserRecord struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Active         bool     `json:"active"`
	InternalGroups []string `json:"internalGroups,omitempty"`
	AuthMethods    []string `json:"authMethods,omitempty"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

// UserList is the body of GET /api/users.
type UserList struct {
	Users []UserRecord `json:"users"`
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Groups      []string `json:"groups,omitempty"`
	AuthMethods []string `json:"authMethods,omitempty"`
}

// UpdateGroupsRequest is the body of PUT /api/users/{id}/groups. It
// replaces the user's internal groups wholesale.
type UpdateGroupsRequest struct {
	Groups []string `json:"groups"`
}

// ResourceGrant confirms access to a single resource.
type ResourceGrant struct {
	ID      string `json:"id"`
	Allowed bool   `json:"allowed"`
}

// LoginResponse is the body returned by login endpoints. On success,
// Token carries a signed platform bearer token; on failure, Error holds
// a human-readable message (the structured code travels in the HTTP
// error envelope).
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}
