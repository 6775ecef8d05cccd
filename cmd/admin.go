/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/musicclub/apiserver/config"
	"github.com/musicclub/apiserver/internal/db"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/internal/session"
	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
	"github.com/spf13/cobra"
)

var adminOpts struct {
	email     string
	password  string
	firstName string
	lastName  string
	prefix    string
	faculty   string
}

// adminCmd groups account bootstrap commands.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account, or promote an existing one",
	Long: `Creates an admin account. When the email is already registered the
account is promoted to admin and its sessions re-read the new role.

	clubd admin create --email boss@example.com --password secret123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.LoadConfig()

		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		var sessions session.Store
		if cfg.Session.Backend == config.SessionBackendRedis {
			client, err := session.NewRedisClient(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()
			sessions = session.NewRedisStore(client)
		} else {
			sessions = session.NewPostgresStore(conn)
		}

		userRepo := store.NewUserRepository(conn)
		userService := services.NewUserService(userRepo)
		roleService := services.NewRoleService(userRepo, services.WithIdentityInvalidator(sessions))

		user, err := userService.GetByEmail(ctx, adminOpts.email)
		switch {
		case errors.Is(err, store.ErrNotFound):
			user, err = userService.Register(ctx, services.Registration{
				FirstName: adminOpts.firstName,
				LastName:  adminOpts.lastName,
				Email:     adminOpts.email,
				Password:  adminOpts.password,
				Prefix:    adminOpts.prefix,
				Faculty:   adminOpts.faculty,
			})
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
		case err != nil:
			return err
		}

		if user.Role == types.RoleAdmin {
			fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) is already admin\n", user.ID, user.Email)
			return nil
		}
		if _, err := roleService.ChangeRole(ctx, 0, user.ID, string(types.RoleAdmin)); err != nil {
			return fmt.Errorf("promote: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) is now admin\n", user.ID, user.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	flags := adminCreateCmd.Flags()
	flags.StringVar(&adminOpts.email, "email", "", "account email")
	flags.StringVar(&adminOpts.password, "password", "", "password for a new account")
	flags.StringVar(&adminOpts.firstName, "first-name", "Club", "first name for a new account")
	flags.StringVar(&adminOpts.lastName, "last-name", "Admin", "last name for a new account")
	flags.StringVar(&adminOpts.prefix, "prefix", "", "name prefix for a new account")
	flags.StringVar(&adminOpts.faculty, "faculty", "", "faculty for a new account")
	_ = adminCreateCmd.MarkFlagRequired("email")
}
