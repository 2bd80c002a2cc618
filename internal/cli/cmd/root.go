package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soclabs/copilot/internal/cli/client"
	"github.com/soclabs/copilot/internal/cli/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "copilotctl",
	Short: "CoPilot CLI",
	Long: `copilotctl is the command-line interface for the CoPilot analysis service.

Manage exclusion rules, trigger analysis passes, mint access tokens and
seed test data into OpenSearch from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.copilot/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "default", "profile to use")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// apiClient resolves the active profile into an authenticated API client.
func apiClient(cmd *cobra.Command) (*client.Client, error) {
	profile, _ := cmd.Flags().GetString("profile")
	p, err := cfg.GetProfile(profile)
	if err != nil {
		return nil, fmt.Errorf("not logged in: %w (run 'copilotctl login' first)", err)
	}
	return client.New(p.APIURL, p.Token), nil
}
