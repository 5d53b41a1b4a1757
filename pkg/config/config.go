// Package config provides unified configuration for the pforte gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PFORTE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
//
// The loaded Config is immutable; hot reload swaps the whole value
// atomically through Provider.
package config

import (
	"time"

	"github.com/pforte-dev/pforte/pkg/authz"
)

// Config holds all configuration for the pforte gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Authorization authz.Config        `yaml:"authorization"`
	Gate          GateConfig          `yaml:"gate"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`      // default: 8080
	BasePath     string        `yaml:"base_path"` // prefix for API routes, default: ""
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig holds per-method authentication settings.
type AuthConfig struct {
	Anonymous AnonymousConfig `yaml:"anonymous"`
	Token     TokenConfig     `yaml:"token"`
	Local     LocalConfig     `yaml:"local"`
	LDAP      LDAPConfig      `yaml:"ldap"`
	NTLM      NTLMConfig      `yaml:"ntlm"`
	OIDC      OIDCConfig      `yaml:"oidc"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AnonymousConfig controls anonymous access.
type AnonymousConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TokenConfig holds the gateway token issuer settings. The secret may
// arrive as an ENC[...] literal in the environment; the secret store
// decrypts it before configuration loads.
type TokenConfig struct {
	Secret     string        `yaml:"secret"`
	SecretFile string        `yaml:"secret_file"` // _file variant for secret
	Issuer     string        `yaml:"issuer"`      // default: "pforte"
	TTL        time.Duration `yaml:"ttl"`         // default: 24h
}

// LocalConfig holds username/password auth against the user store.
type LocalConfig struct {
	Enabled        bool          `yaml:"enabled"` // default: true
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// LDAPConfig holds directory auth settings.
type LDAPConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	SessionTimeout time.Duration        `yaml:"session_timeout"`
	Providers      []LDAPProviderConfig `yaml:"providers"`
}

// LDAPProviderConfig describes one directory server.
type LDAPProviderConfig struct {
	Name             string `yaml:"name"`
	URL              string `yaml:"url"`
	BaseDN           string `yaml:"base_dn"`
	BindDN           string `yaml:"bind_dn"`
	BindPassword     string `yaml:"bind_password"`
	BindPasswordFile string `yaml:"bind_password_file"` // _file variant
}

// NTLMConfig holds Windows integrated auth settings.
type NTLMConfig struct {
	Enabled        bool          `yaml:"enabled"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	Label          string        `yaml:"label"` // login button text
}

// OIDCConfig holds OpenID Connect settings.
type OIDCConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	SessionTimeout time.Duration        `yaml:"session_timeout"`
	Providers      []OIDCProviderConfig `yaml:"providers"`

	// AutoRedirect names the provider to redirect to without showing
	// the login form. Must match a configured provider name.
	AutoRedirect string `yaml:"auto_redirect"`
}

// OIDCProviderConfig describes one OIDC identity provider.
type OIDCProviderConfig struct {
	Name             string `yaml:"name"`
	Label            string `yaml:"label"`
	AuthorizeURL     string `yaml:"authorize_url"`
	TokenURL         string `yaml:"token_url"`
	ClientID         string `yaml:"client_id"`
	ClientSecret     string `yaml:"client_secret"`
	ClientSecretFile string `yaml:"client_secret_file"` // _file variant
	Scopes           string `yaml:"scopes"`
}

// ProxyConfig holds trusted reverse-proxy header auth settings.
type ProxyConfig struct {
	Enabled        bool   `yaml:"enabled"`
	UserHeader     string `yaml:"user_header"`     // default: X-Forwarded-User
	GroupsHeader   string `yaml:"groups_header"`   // default: X-Forwarded-Groups
	GroupSeparator string `yaml:"group_separator"` // default: ","
}

// RateLimitConfig bounds login attempts per username+source.
type RateLimitConfig struct {
	MaxAttempts int           `yaml:"max_attempts"` // default: 10, 0 disables
	Window      time.Duration `yaml:"window"`       // default: 1m
}

// GateConfig holds pre-bootstrap gate settings.
type GateConfig struct {
	// Title and Subtitle are display hints for the login gate.
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`

	// AutoRedirectWindow throttles repeated provider redirects.
	// Default: 5m.
	AutoRedirectWindow time.Duration `yaml:"auto_redirect_window"`
}

// StorageConfig holds user store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "file", "memory" or "postgres", default: "file"
	File     FileConfig     `yaml:"file"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// FileConfig holds the JSON file store settings.
type FileConfig struct {
	Path string `yaml:"path"` // default: "users.json"
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Auth: AuthConfig{
			Token: TokenConfig{
				Issuer: "pforte",
				TTL:    24 * time.Hour,
			},
			Local: LocalConfig{
				Enabled: true,
			},
			Proxy: ProxyConfig{
				UserHeader:     "X-Forwarded-User",
				GroupsHeader:   "X-Forwarded-Groups",
				GroupSeparator: ",",
			},
			RateLimit: RateLimitConfig{
				MaxAttempts: 10,
				Window:      time.Minute,
			},
		},
		Authorization: authz.Config{
			AdminGroups: []string{"admins"},
		},
		Gate: GateConfig{
			Title:              "pforte",
			AutoRedirectWindow: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Type: "file",
			File: FileConfig{Path: "users.json"},
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// MethodsEnabled returns the enabled-state of every authentication
// method, keyed by method name. Admin reachability checks consume this.
func (c *Config) MethodsEnabled() map[string]bool {
	return map[string]bool{
		"local": c.Auth.Local.Enabled,
		"ldap":  c.Auth.LDAP.Enabled,
		"ntlm":  c.Auth.NTLM.Enabled,
		"oidc":  c.Auth.OIDC.Enabled,
		"proxy": c.Auth.Proxy.Enabled,
	}
}
