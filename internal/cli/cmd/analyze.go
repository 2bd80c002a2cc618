package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soclabs/copilot/internal/cli/output"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [source]",
	Short: "Trigger an analysis pass",
	Long: `Trigger an analysis pass for one source (wazuh, suricata, office365, sapsiem).
Without --customer the pass fans out over every known customer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient(cmd)
		if err != nil {
			return err
		}

		customer, _ := cmd.Flags().GetString("customer")

		resp, err := api.RunAnalysis(args[0], customer)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(resp)
		}

		table := output.NewTable([]string{"Customer", "Result", "Created", "Updated", "Excluded", "Failed", "Remaining"})
		for _, report := range resp.Reports {
			result := "ok"
			if !report.Success {
				result = report.Message
			}
			table.AddRow([]string{
				report.Customer,
				result,
				fmt.Sprintf("%d", report.AlertsCreated),
				fmt.Sprintf("%d", report.AlertsUpdated),
				fmt.Sprintf("%d", report.EventsExcluded),
				fmt.Sprintf("%d", report.AlertsFailed),
				fmt.Sprintf("%d", report.AlertsRemaining),
			})
		}
		table.Render()

		for _, report := range resp.Reports {
			if len(report.Errors) > 0 {
				output.Warn("%s: %s", report.Customer, strings.Join(report.Errors, "; "))
			}
		}
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available analysis sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient(cmd)
		if err != nil {
			return err
		}

		sources, err := api.ListSources()
		if err != nil {
			return err
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(sources)
		}

		for _, s := range sources {
			output.Info("%s", s)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("customer", "", "run for a single customer code")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sourcesCmd)
}
