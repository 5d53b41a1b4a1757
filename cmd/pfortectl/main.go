// Command pfortectl administers a pforte gateway installation from the
// command line: user management against the configured store and
// encryption of configuration secrets.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pforte-dev/pforte/pkg/config"
	"github.com/pforte-dev/pforte/pkg/userstore"
	"github.com/pforte-dev/pforte/pkg/userstore/file"
	"github.com/pforte-dev/pforte/pkg/userstore/memory"
	"github.com/pforte-dev/pforte/pkg/userstore/postgres"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pfortectl",
	Short: "pforte gateway administration",
	Long: `pfortectl manages a pforte authentication gateway installation:
users in the configured store, and encrypted configuration secrets.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration file")
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(secretCmd)
}

// loadConfig loads the gateway configuration the same way the server
// does, minus secret bootstrap: pfortectl reads plaintext values or an
// explicit key from the environment.
func loadConfig() (*config.Config, error) {
	provider, err := config.NewProvider(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return provider.Get(), nil
}

// openStore creates the configured user store backend.
func openStore(ctx context.Context, c *config.Config) (userstore.Store, error) {
	switch c.Storage.Type {
	case "memory":
		return memory.New(), nil

	case "file", "":
		return file.Open(c.Storage.File.Path)

	case "postgres":
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
