// Command server runs the pforte authentication gateway.
//
// Configuration is loaded from a YAML file (-config flag, PFORTE_CONFIG,
// ./config.yaml, or /etc/pforte/config.yaml) with PFORTE_* environment
// overrides. Encrypted ENC[AES256_GCM,...] environment values are
// decrypted in-process before anything else reads them; the key comes
// from PFORTE_ENCRYPTION_KEY. SIGHUP reloads the configuration file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pforte-dev/pforte/pkg/auth"
	"github.com/pforte-dev/pforte/pkg/auth/ldap"
	"github.com/pforte-dev/pforte/pkg/auth/local"
	"github.com/pforte-dev/pforte/pkg/auth/ntlm"
	"github.com/pforte-dev/pforte/pkg/auth/oidc"
	"github.com/pforte-dev/pforte/pkg/auth/proxy"
	"github.com/pforte-dev/pforte/pkg/auth/token"
	"github.com/pforte-dev/pforte/pkg/config"
	"github.com/pforte-dev/pforte/pkg/debug"
	"github.com/pforte-dev/pforte/pkg/secrets"
	transporthttp "github.com/pforte-dev/pforte/pkg/transport/http"
	"github.com/pforte-dev/pforte/pkg/userstore"
	"github.com/pforte-dev/pforte/pkg/userstore/file"
	"github.com/pforte-dev/pforte/pkg/userstore/memory"
	"github.com/pforte-dev/pforte/pkg/userstore/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	// Secret bootstrap runs before the config loader touches the
	// environment.
	production := os.Getenv("PFORTE_ENV") == "production"
	res, err := secrets.Bootstrap(secrets.OSEnv{}, secrets.Options{Production: production})
	if err != nil {
		return fmt.Errorf("secret bootstrap: %w", err)
	}
	if res.Failed > 0 {
		slog.Warn("some encrypted values could not be decrypted", "failed", res.Failed)
	}

	// Debug categories and log level are read from the environment after
	// the bootstrap pass so encrypted values have been replaced.
	debug.Init()
	if cats := debug.Categories(); len(cats) > 0 {
		slog.Info("debug logging enabled", "categories", cats)
	}

	provider, err := config.NewProvider(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	c := provider.Get()

	store, err := openStore(context.Background(), c)
	if err != nil {
		return fmt.Errorf("opening user store: %w", err)
	}
	defer store.Close()

	issuer, err := token.NewIssuer(token.Config{
		Secret: []byte(c.Auth.Token.Secret),
		Issuer: c.Auth.Token.Issuer,
		TTL:    c.Auth.Token.TTL,
	})
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	bearer, err := token.NewAuthenticator(token.Config{
		Secret: []byte(c.Auth.Token.Secret),
		Issuer: c.Auth.Token.Issuer,
	})
	if err != nil {
		return fmt.Errorf("token authenticator: %w", err)
	}

	chain := func() *auth.Chain {
		cur := provider.Get()
		authns := []auth.Authenticator{bearer}
		if cur.Auth.Proxy.Enabled {
			authns = append(authns, proxy.New(proxy.Config{
				UserHeader:     cur.Auth.Proxy.UserHeader,
				GroupsHeader:   cur.Auth.Proxy.GroupsHeader,
				GroupSeparator: cur.Auth.Proxy.GroupSeparator,
			}))
		}
		return &auth.Chain{
			Authenticators:   authns,
			AnonymousEnabled: cur.Auth.Anonymous.Enabled,
		}
	}

	var limiter auth.LoginLimiter
	if c.Auth.RateLimit.MaxAttempts > 0 {
		limiter = auth.NewInProcessLimiter(c.Auth.RateLimit.MaxAttempts, c.Auth.RateLimit.Window)
	}

	adapter := transporthttp.NewAdapter(transporthttp.Options{
		Config:  provider,
		Store:   store,
		Issuer:  issuer,
		Chain:   chain,
		Local:   local.New(store),
		LDAP:    ldapRegistry(c),
		OIDC:    oidcRegistry(c),
		NTLM:    ntlmFlow(c),
		Limiter: limiter,
	})

	// SIGHUP reloads the configuration file; a broken file keeps the
	// previous configuration.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := provider.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
			}
		}
	}()

	srv := transporthttp.NewServer(adapter.Handler(), transporthttp.ServerConfigFrom(c))
	return srv.ListenAndServe()
}

// openStore creates the configured user store backend.
func openStore(ctx context.Context, c *config.Config) (userstore.Store, error) {
	switch c.Storage.Type {
	case "memory":
		slog.Info("user store", "type", "memory")
		return memory.New(), nil

	case "file", "":
		slog.Info("user store", "type", "file", "path", c.Storage.File.Path)
		return file.Open(c.Storage.File.Path)

	case "postgres":
		slog.Info("user store", "type", "postgres")
		openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return postgres.New(openCtx, postgres.Config{
			DSN:            c.Storage.Postgres.DSN,
			MaxConns:       c.Storage.Postgres.MaxConns,
			MigrateOnStart: c.Storage.Postgres.MigrateOnStart,
		})

	default:
		return nil, fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
}

// oidcRegistry builds the OIDC provider registry from configuration.
func oidcRegistry(c *config.Config) *oidc.Registry {
	reg := oidc.NewRegistry()
	for _, p := range c.Auth.OIDC.Providers {
		reg.Register(&oidc.Provider{
			Name:         p.Name,
			Label:        p.Label,
			AuthorizeURL: p.AuthorizeURL,
			ClientID:     p.ClientID,
			Scopes:       p.Scopes,
			Verifier: &oidc.HTTPVerifier{
				TokenURL:     p.TokenURL,
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
			},
		})
	}
	return reg
}

// ldapRegistry builds the LDAP registry. Bind verifiers are an
// integration point: deployments plug a directory client in here.
func ldapRegistry(c *config.Config) *ldap.Registry {
	reg := ldap.NewRegistry()
	if c.Auth.LDAP.Enabled && len(c.Auth.LDAP.Providers) > 0 {
		slog.Warn("ldap is enabled but no bind verifier is compiled in; ldap logins will fail")
	}
	return reg
}

// ntlmFlow builds the NTLM login flow. The negotiator is an integration
// point: deployments plug a domain-controller client in here.
func ntlmFlow(c *config.Config) *ntlm.Flow {
	if c.Auth.NTLM.Enabled {
		slog.Warn("ntlm is enabled but no negotiator is compiled in; ntlm handshakes will fail")
	}
	return ntlm.NewFlow(nil)
}
