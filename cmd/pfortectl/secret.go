package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pforte-dev/pforte/pkg/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage encrypted configuration values",
}

var keyFlag string

func init() {
	secretCmd.AddCommand(secretKeygenCmd)
	secretCmd.AddCommand(secretEncryptCmd)

	secretEncryptCmd.Flags().StringVar(&keyFlag, "key", "", "hex encryption key (default: PFORTE_ENCRYPTION_KEY)")
}

var secretKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new encryption key",
	Long: `Generates a random 256-bit key, hex encoded, for use as
PFORTE_ENCRYPTION_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := secrets.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}

var secretEncryptCmd = &cobra.Command{
	Use:   "encrypt <plaintext>",
	Short: "Encrypt a value for use in the environment",
	Long: `Encrypts a value with the gateway encryption key and prints the
ENC[AES256_GCM,...] literal. Set the literal as an environment variable;
the server decrypts it in-process at startup.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := keyFlag
		if raw == "" {
			raw = os.Getenv("PFORTE_ENCRYPTION_KEY")
		}
		if raw == "" {
			return fmt.Errorf("no key: pass --key or set PFORTE_ENCRYPTION_KEY")
		}

		key, err := secrets.ParseKey(raw)
		if err != nil {
			return err
		}

		literal, err := secrets.Encrypt(args[0], key)
		if err != nil {
			return err
		}
		fmt.Println(literal)
		return nil
	},
}
