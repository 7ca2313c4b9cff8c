// Package commands defines rentalctl, the operator CLI for the rental platform.
//
// Commands
//
//   - migrate         Create or update the database schema
//   - create-admin    Create an administrator account
//   - cleanup-tokens  Delete expired and revoked refresh tokens
//   - stats           Print user, rental and review statistics
//   - recount-votes   Rebuild review helpfulness counters from the vote rows
//
// Every command loads .env and the environment the same way the server does,
// then connects to the configured database.
package commands

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"rental-platform-server/config"
	"rental-platform-server/database"
)

var (
	envFile string
	db      *gorm.DB
)

func Execute() error {
	root := &cobra.Command{
		Use:           "rentalctl",
		Short:         "Operator tools for the rental platform",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil {
				log.Println("No .env file found, using system environment variables")
			}
			config.Load()
			if err := database.Initialize(); err != nil {
				return err
			}
			db = database.GetDB()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before connecting")

	root.AddCommand(migrateCmd(), createAdminCmd(), cleanupTokensCmd(), statsCmd(), recountVotesCmd())
	return root.Execute()
}
