package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, PFORTE_CONFIG env, ./config.yaml, /etc/pforte/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. PFORTE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/pforte/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("PFORTE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/pforte/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. Secret
// values arriving here have already passed through the secret store's
// decryption pass.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PFORTE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PFORTE_BASE_PATH"); v != "" {
		cfg.Server.BasePath = v
	}
	if v := os.Getenv("PFORTE_TOKEN_SECRET"); v != "" {
		cfg.Auth.Token.Secret = v
	}
	if v := os.Getenv("PFORTE_ANONYMOUS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.Anonymous.Enabled = b
		}
	}
	if v := os.Getenv("PFORTE_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("PFORTE_USERS_FILE"); v != "" {
		cfg.Storage.File.Path = v
	}
	if v := os.Getenv("PFORTE_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("PFORTE_AUTO_REDIRECT"); v != "" {
		cfg.Auth.OIDC.AutoRedirect = v
	}
	if v := os.Getenv("PFORTE_REDIRECT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Gate.AutoRedirectWindow = d
		}
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// auth.token.secret_file -> auth.token.secret
	if cfg.Auth.Token.SecretFile != "" && cfg.Auth.Token.Secret == "" {
		val, err := readSecretFile(cfg.Auth.Token.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.token.secret_file: %w", err)
		}
		cfg.Auth.Token.Secret = val
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// auth.ldap.providers[*].bind_password_file -> bind_password
	for i := range cfg.Auth.LDAP.Providers {
		p := &cfg.Auth.LDAP.Providers[i]
		if p.BindPasswordFile != "" && p.BindPassword == "" {
			val, err := readSecretFile(p.BindPasswordFile)
			if err != nil {
				return fmt.Errorf("auth.ldap.providers[%d].bind_password_file: %w", i, err)
			}
			p.BindPassword = val
		}
	}

	// auth.oidc.providers[*].client_secret_file -> client_secret
	for i := range cfg.Auth.OIDC.Providers {
		p := &cfg.Auth.OIDC.Providers[i]
		if p.ClientSecretFile != "" && p.ClientSecret == "" {
			val, err := readSecretFile(p.ClientSecretFile)
			if err != nil {
				return fmt.Errorf("auth.oidc.providers[%d].client_secret_file: %w", i, err)
			}
			p.ClientSecret = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
