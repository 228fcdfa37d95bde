package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"site-deploy-service/internal/adapters/secondary/postgres"
	"site-deploy-service/internal/core/services"
)

var (
	username string
	password string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage operator accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an operator account",
	Long: `Create an operator account that can log in and manage deployments.

Examples:
  site-deploy user create --username admin --password 'correct horse'`,
	RunE: runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVarP(&username, "username", "u", "", "login name")
	userCreateCmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	pool, err := openPool(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	auth := services.NewAuthService(postgres.NewUserRepository(pool))
	user, err := auth.CreateUser(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	log.WithField("username", user.Username).Info("user created")
	return nil
}
