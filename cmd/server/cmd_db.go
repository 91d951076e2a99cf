package main

import (
	"fmt"

	"shoestore/internal/service"
	"shoestore/internal/store"

	"github.com/spf13/cobra"
)

// shoestore migrate up|down
var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or revert the database schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot("migrate")
		if err != nil {
			return err
		}
		defer a.close()

		n, err := store.Migrate(cmd.Context(), a.store.GetDB(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Migrations %s: %d applied\n", args[0], n)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	userLogin    string
	userPassword string
	userFullName string
	userRole     string
)

// shoestore user create
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user with a bcrypt-hashed password",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot("cli")
		if err != nil {
			return err
		}
		defer a.close()

		u, err := service.NewAuthService(a.store, nil).RegisterUser(cmd.Context(), userLogin, userPassword, userFullName, userRole)
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (id %d)\n", u.Login, u.ID)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userLogin, "login", "", "login name")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "plain-text password, hashed before storing")
	userCreateCmd.Flags().StringVar(&userFullName, "name", "", "full name")
	userCreateCmd.Flags().StringVar(&userRole, "role", "", "Administrator, Manager or Client; empty leaves the role unset")
	_ = userCreateCmd.MarkFlagRequired("login")
	_ = userCreateCmd.MarkFlagRequired("password")
	_ = userCreateCmd.MarkFlagRequired("name")

	userCmd.AddCommand(userCreateCmd)
}
