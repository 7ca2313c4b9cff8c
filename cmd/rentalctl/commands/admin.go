package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"rental-platform-server/models"
	"rental-platform-server/services"
)

func createAdminCmd() *cobra.Command {
	var input services.NewUser

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input.Email == "" || input.Password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			input.UserType = models.UserTypeAdmin

			user, err := services.NewAccountService(db).CreateUser(input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created with id %d.\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Email, "email", "", "admin email address")
	cmd.Flags().StringVar(&input.Password, "password", "", "admin password (8+ characters, a letter and a digit)")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "Site", "first name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "Admin", "last name")
	return cmd
}
