package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/soclabs/copilot/internal/cli/output"
	"github.com/soclabs/copilot/internal/cli/seeder"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed synthetic events into OpenSearch",
	Long: `Generate synthetic security events and bulk-index them into OpenSearch.
Each burst satisfies a firing condition for the chosen source, so a seeded
index will produce cases on the next analysis pass.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		osURL, _ := cmd.Flags().GetString("opensearch-url")
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		insecure, _ := cmd.Flags().GetBool("insecure")
		customer, _ := cmd.Flags().GetString("customer")
		source, _ := cmd.Flags().GetString("source")
		noise, _ := cmd.Flags().GetInt("noise")
		bursts, _ := cmd.Flags().GetInt("bursts")
		spread, _ := cmd.Flags().GetDuration("spread")
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		runner, err := seeder.NewRunner(seeder.Config{
			OpenSearchURL: osURL,
			Username:      username,
			Password:      password,
			Insecure:      insecure,
			Customer:      customer,
			Source:        source,
			Noise:         noise,
			Bursts:        bursts,
			TimeSpread:    spread,
			BatchSize:     batchSize,
		})
		if err != nil {
			return err
		}

		indexed, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}

		output.Success("Indexed %d events", indexed)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("opensearch-url", "https://localhost:9200", "OpenSearch URL")
	seedCmd.Flags().String("username", "admin", "OpenSearch username")
	seedCmd.Flags().String("password", "", "OpenSearch password")
	seedCmd.Flags().Bool("insecure", false, "skip TLS certificate verification")
	seedCmd.Flags().String("customer", "acme", "customer code to seed events for")
	seedCmd.Flags().String("source", "wazuh", "event source: wazuh, office365, suricata, sapsiem")
	seedCmd.Flags().Int("noise", 200, "background events to generate")
	seedCmd.Flags().Int("bursts", 2, "attack bursts to generate")
	seedCmd.Flags().Duration("spread", time.Hour, "time window to spread events over")
	seedCmd.Flags().Int("batch-size", 500, "bulk indexing batch size")

	rootCmd.AddCommand(seedCmd)
}
