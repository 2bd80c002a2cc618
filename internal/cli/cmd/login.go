package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soclabs/copilot/internal/cli/output"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save API credentials",
	Long:  "Save the CoPilot API endpoint and access token into a named profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		apiURL, _ := cmd.Flags().GetString("api-url")
		token, _ := cmd.Flags().GetString("token")

		if apiURL == "" {
			return fmt.Errorf("api-url is required")
		}

		profile, _ := cmd.Flags().GetString("profile")
		if err := cfg.SaveProfile(profile, apiURL, token); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		output.Success("Profile '%s' saved to ~/.copilot/config.yaml", profile)
		if token == "" {
			output.Warn("No token provided; requests will be unauthenticated. Mint one with 'copilotctl token create'.")
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().String("api-url", "", "CoPilot API base URL (e.g. http://localhost:8088)")
	loginCmd.Flags().String("token", "", "bearer token for the API")

	rootCmd.AddCommand(loginCmd)
}
