package secrets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pforte-dev/pforte/pkg/observability"
)

// ErrMissingKey is returned when the key variable is absent in a
// production environment. Generating a key silently would make every
// previously encrypted value permanently unreadable, so the process must
// not start.
var ErrMissingKey = errors.New("encryption key variable is not set")

// Env abstracts the process environment so the bootstrap pass can be
// tested without mutating real process state.
type Env interface {
	Environ() []string
	LookupEnv(key string) (string, bool)
	Setenv(key, value string) error
}

// Options controls the bootstrap pass.
type Options struct {
	// Production selects the fail-fast key policy: a missing key aborts
	// startup instead of falling back to an ephemeral key.
	Production bool

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Result summarizes one bootstrap pass.
type Result struct {
	// Decrypted counts values replaced in-process with plaintext.
	Decrypted int

	// Failed counts values left as ciphertext because they could not be
	// parsed or decrypted.
	Failed int

	// EphemeralKey is true when no key was configured and a random one
	// was generated for this process lifetime.
	EphemeralKey bool
}

// Bootstrap scans every environment variable and replaces each
// decryptable ENC[AES256_GCM,...] literal with its plaintext, in-process
// only. It runs exactly once, synchronously, before any other component
// reads the environment.
//
// A malformed or undecryptable entry is left as ciphertext with a
// detailed diagnostic; failure is deferred to whatever later tries to
// use that value.
func Bootstrap(env Env, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var res Result

	key, err := loadKey(env, opts.Production, logger, &res)
	if err != nil {
		return res, err
	}

	for _, kv := range env.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !IsLiteral(value) {
			continue
		}

		plain, err := DecryptString(value, key)
		if err != nil {
			res.Failed++
			observability.SecretDecryptionsTotal.WithLabelValues("failure").Inc()
			logger.Error("leaving encrypted value as ciphertext",
				"variable", name,
				"error", err,
			)
			continue
		}

		if err := env.Setenv(name, plain); err != nil {
			res.Failed++
			logger.Error("replacing decrypted value", "variable", name, "error", err)
			continue
		}

		res.Decrypted++
		observability.SecretDecryptionsTotal.WithLabelValues("success").Inc()
		logger.Debug("decrypted environment value", "variable", name)
	}

	return res, nil
}

// loadKey resolves the key material per the sourcing policy: fail fast
// in production when absent, otherwise generate an ephemeral key with a
// loud warning. A present-but-malformed key is always fatal since no
// value could ever decrypt under it.
func loadKey(env Env, production bool, logger *slog.Logger, res *Result) ([]byte, error) {
	raw, present := env.LookupEnv(KeyEnvVar)
	if present && strings.TrimSpace(raw) != "" {
		key, err := ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyEnvVar, err)
		}
		return key, nil
	}

	if production {
		return nil, fmt.Errorf("%w: set %s (64 hex characters) before starting in production", ErrMissingKey, KeyEnvVar)
	}

	hexKey, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	res.EphemeralKey = true
	logger.Warn("no encryption key configured; generated an ephemeral key",
		"variable", KeyEnvVar,
		"consequence", "values encrypted under this key are unreadable after restart",
	)
	return ParseKey(hexKey)
}

// OSEnv adapts the real process environment to the Env interface.
type OSEnv struct{}

func (OSEnv) Environ() []string                   { return os.Environ() }
func (OSEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }
func (OSEnv) Setenv(key, value string) error      { return os.Setenv(key, value) }
