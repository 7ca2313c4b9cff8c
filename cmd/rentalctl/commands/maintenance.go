package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"rental-platform-server/config"
	"rental-platform-server/services"
)

func cleanupTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-tokens",
		Short: "Delete expired and revoked refresh tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := services.NewJWTService(db, config.AppConfig.JWT).CleanupExpiredTokens()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d refresh tokens.\n", removed)
			return nil
		},
	}
}

func recountVotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount-votes",
		Short: "Rebuild review helpfulness counters from the vote rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			checked, err := services.NewHelpfulnessService(db).RecomputeAll()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recounted votes on %d reviews.\n", checked)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print user, rental and review statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := services.NewAccountService(db).UserStatistics()
			if err != nil {
				return err
			}
			rentals, err := services.NewRentalService(db, nil, nil).Statistics()
			if err != nil {
				return err
			}
			reviews, err := services.NewModerationService(db, nil).Statistics()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"users":   users,
				"rentals": rentals,
				"reviews": reviews,
			})
		},
	}
}
