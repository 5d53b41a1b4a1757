package config

import (
	"log/slog"
	"sync/atomic"

	"github.com/pforte-dev/pforte/pkg/debug"
)

// Provider serves the current configuration and supports hot reload.
// Readers always see a complete, validated Config; a reload replaces
// the pointer atomically and never mutates a Config in place.
type Provider struct {
	path    string
	static  bool
	current atomic.Pointer[Config]
}

// NewProvider loads the initial configuration from path (empty for
// discovery) and returns a provider serving it.
func NewProvider(path string) (*Provider, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	p := &Provider{path: path}
	p.current.Store(cfg)
	return p, nil
}

// NewStaticProvider wraps an already-built configuration; Reload is a
// no-op. Intended for tests and embedded use.
func NewStaticProvider(cfg *Config) *Provider {
	p := &Provider{static: true}
	p.current.Store(cfg)
	return p
}

// Get returns the current configuration. The returned value must be
// treated as read-only.
func (p *Provider) Get() *Config {
	return p.current.Load()
}

// Reload re-runs the full load pipeline and swaps the configuration in.
// A failed reload keeps the previous configuration in service.
func (p *Provider) Reload() error {
	if p.static {
		return nil
	}

	cfg, err := Load(p.path)
	if err != nil {
		slog.Error("config reload failed, keeping previous configuration", "error", err)
		return err
	}

	p.current.Store(cfg)
	slog.Info("configuration reloaded")
	debug.Log("config", "active configuration after reload",
		"storage", cfg.Storage.Type,
		"anonymous", cfg.Auth.Anonymous.Enabled,
		"methods", cfg.MethodsEnabled(),
	)
	return nil
}
