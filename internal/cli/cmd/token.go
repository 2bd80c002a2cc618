package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/soclabs/copilot/internal/auth"
	"github.com/soclabs/copilot/internal/cli/output"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Access token management",
	Long:  "Mint bearer tokens for the CoPilot API",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Mint a new access token",
	Long:  "Mint an HS256 access token signed with the server's shared secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		subject, _ := cmd.Flags().GetString("subject")
		roles, _ := cmd.Flags().GetStringSlice("roles")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		save, _ := cmd.Flags().GetBool("save")

		if secret == "" {
			return fmt.Errorf("signing secret is required")
		}
		if subject == "" {
			return fmt.Errorf("token subject is required")
		}

		tm := auth.NewTokenManager(secret, ttl)
		token, err := tm.Generate(subject, roles)
		if err != nil {
			return fmt.Errorf("failed to mint token: %w", err)
		}

		if save {
			profile, _ := cmd.Flags().GetString("profile")
			p, err := cfg.GetProfile(profile)
			if err != nil {
				return fmt.Errorf("cannot save token: %w (run 'copilotctl login' first)", err)
			}
			if err := cfg.SaveProfile(profile, p.APIURL, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			output.Info("Token saved to profile '%s'", profile)
		}

		output.Success("Token minted for %s", subject)
		output.Info("Expires: %s", time.Now().Add(ttl).Format(time.RFC3339))
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCreateCmd.Flags().String("secret", "", "HS256 signing secret shared with the server")
	tokenCreateCmd.Flags().String("subject", "", "token subject, e.g. an operator name")
	tokenCreateCmd.Flags().StringSlice("roles", []string{"analyst"}, "roles to embed in the token")
	tokenCreateCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	tokenCreateCmd.Flags().Bool("save", false, "store the token in the active profile")

	tokenCmd.AddCommand(tokenCreateCmd)
	rootCmd.AddCommand(tokenCmd)
}
