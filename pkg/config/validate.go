package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// auth.token.secret is required: every login flow converges on an
	// issued token.
	if c.Auth.Token.Secret == "" && c.Auth.Token.SecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.token.secret or auth.token.secret_file is required"))
	}

	// At least one way in must exist.
	methods := c.MethodsEnabled()
	anyEnabled := c.Auth.Anonymous.Enabled
	for _, enabled := range methods {
		anyEnabled = anyEnabled || enabled
	}
	if !anyEnabled {
		errs = append(errs, fmt.Errorf("auth: no authentication method enabled and anonymous access disabled"))
	}

	// ldap/oidc need providers when enabled.
	if c.Auth.LDAP.Enabled && len(c.Auth.LDAP.Providers) == 0 {
		errs = append(errs, fmt.Errorf("auth.ldap.providers must not be empty when auth.ldap.enabled is true"))
	}
	if c.Auth.OIDC.Enabled && len(c.Auth.OIDC.Providers) == 0 {
		errs = append(errs, fmt.Errorf("auth.oidc.providers must not be empty when auth.oidc.enabled is true"))
	}

	// auto_redirect must name a configured provider.
	if c.Auth.OIDC.AutoRedirect != "" {
		found := false
		for _, p := range c.Auth.OIDC.Providers {
			if p.Name == c.Auth.OIDC.AutoRedirect {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("auth.oidc.auto_redirect %q does not match any configured provider", c.Auth.OIDC.AutoRedirect))
		}
	}

	for i, p := range c.Auth.OIDC.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("auth.oidc.providers[%d].name is required", i))
		}
		if c.Auth.OIDC.Enabled && p.AuthorizeURL == "" {
			errs = append(errs, fmt.Errorf("auth.oidc.providers[%d].authorize_url is required", i))
		}
	}
	for i, p := range c.Auth.LDAP.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("auth.ldap.providers[%d].name is required", i))
		}
		if c.Auth.LDAP.Enabled && p.URL == "" {
			errs = append(errs, fmt.Errorf("auth.ldap.providers[%d].url is required", i))
		}
	}

	// Group inheritance must form a DAG; cycles surface at load time,
	// never at request time.
	if err := c.Authorization.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("authorization: %w", err))
	}
	if len(c.Authorization.AdminGroups) == 0 {
		errs = append(errs, fmt.Errorf("authorization.admin_groups must not be empty"))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "file", "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"file\", \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	if c.Storage.Type == "file" && c.Storage.File.Path == "" {
		errs = append(errs, fmt.Errorf("storage.file.path is required when storage.type is \"file\""))
	}
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	if c.Gate.AutoRedirectWindow < 0 {
		errs = append(errs, fmt.Errorf("gate.auto_redirect_window must not be negative"))
	}

	return errors.Join(errs...)
}
