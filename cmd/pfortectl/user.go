package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pforte-dev/pforte/pkg/auth/local"
	"github.com/pforte-dev/pforte/pkg/userstore"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users in the configured store",
}

var (
	createUsername string
	createPassword string
	createGroups   []string
	createMethods  []string
	forceMutation  bool
)

func init() {
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userActivateCmd)
	userCmd.AddCommand(userDeactivateCmd)
	userCmd.AddCommand(userAssignAdminCmd)

	userCreateCmd.Flags().StringVar(&createUsername, "username", "", "username (required)")
	userCreateCmd.Flags().StringVar(&createPassword, "password", "", "password (required)")
	userCreateCmd.Flags().StringArrayVar(&createGroups, "group", nil, "internal group (repeatable)")
	userCreateCmd.Flags().StringArrayVar(&createMethods, "method", nil, "allowed auth method (repeatable, default: local)")
	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("password")

	userDeactivateCmd.Flags().BoolVar(&forceMutation, "force", false, "deactivate even the last administrator")
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer store.Close()

		users, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tACTIVE\tGROUPS\tMETHODS")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
				u.ID, u.Username, u.Active,
				strings.Join(u.InternalGroups, ","),
				strings.Join(u.Methods(), ","))
		}
		return w.Flush()
	},
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer store.Close()

		hash, err := local.HashPassword(createPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		now := time.Now().UTC()
		u := &userstore.User{
			ID:             uuid.NewString(),
			Username:       createUsername,
			PasswordHash:   hash,
			Active:         true,
			InternalGroups: createGroups,
			AuthMethods:    createMethods,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := store.Create(cmd.Context(), u); err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		fmt.Println(u.ID)
		return nil
	},
}

var userActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Reactivate a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, args[0], true)
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, args[0], false)
	},
}

func setActive(cmd *cobra.Command, id string, active bool) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), c)
	if err != nil {
		return err
	}
	defer store.Close()

	if !active && !forceMutation {
		last, err := userstore.IsLastAdmin(cmd.Context(), store, &c.Authorization, id)
		if err != nil {
			return err
		}
		if last {
			return fmt.Errorf("user %s is the last administrator; use --force to deactivate anyway", id)
		}
	}

	u, err := store.Get(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	u = u.Clone()
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
	if err := store.Update(cmd.Context(), u); err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	fmt.Printf("%s active=%t\n", u.ID, u.Active)
	return nil
}

var userAssignAdminCmd = &cobra.Command{
	Use:   "assign-admin <id>",
	Short: "Add the admin group to a user",
	Long: `Adds the first configured admin group to the user's internal groups.
This is the manual rescue hatch for an installation with no reachable
administrator.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		if len(c.Authorization.AdminGroups) == 0 {
			return fmt.Errorf("no admin groups configured")
		}
		store, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer store.Close()

		group := c.Authorization.AdminGroups[0]
		changed, err := userstore.AssignAdminGroup(cmd.Context(), store, args[0], group)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Printf("user %s already carries %s (or does not exist)\n", args[0], group)
			return nil
		}
		fmt.Printf("added %s to user %s\n", group, args[0])
		return nil
	},
}
