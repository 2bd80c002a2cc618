package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soclabs/copilot/internal/cli/output"
	"github.com/soclabs/copilot/internal/models"
)

var exclusionsCmd = &cobra.Command{
	Use:     "exclusions",
	Aliases: []string{"exclusion", "excl"},
	Short:   "Exclusion rule management",
	Long:    "Create, list, and manage exclusion rules that suppress events before correlation",
}

var exclusionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List exclusion rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient(cmd)
		if err != nil {
			return err
		}

		skip, _ := cmd.Flags().GetInt("skip")
		limit, _ := cmd.Flags().GetInt("limit")
		enabledOnly, _ := cmd.Flags().GetBool("enabled-only")

		resp, err := api.ListExclusions(skip, limit, enabledOnly)
		if err != nil {
			return err
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(resp)
		}

		if len(resp.Rules) == 0 {
			output.Info("No exclusion rules found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Name", "Conditions", "Customer", "Status", "Matches", "Created"})
		for _, rule := range resp.Rules {
			customer := "all"
			if rule.CustomerCode != nil {
				customer = *rule.CustomerCode
			}
			status := "enabled"
			if !rule.Enabled {
				status = "disabled"
			}
			table.AddRow([]string{
				rule.ID,
				rule.Name,
				describeConditions(&rule),
				customer,
				status,
				fmt.Sprintf("%d", rule.MatchCount),
				rule.CreatedAt.Format("2006-01-02"),
			})
		}
		table.Render()

		output.Info("\nShowing %d of %d total rules", len(resp.Rules), resp.Total)
		return nil
	},
}

var exclusionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an exclusion rule",
	Long: `Create an exclusion rule. At least one condition is required:
a channel, a title, or a field match of the form field=value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient(cmd)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		channel, _ := cmd.Flags().GetString("channel")
		title, _ := cmd.Flags().GetString("title")
		matches, _ := cmd.Flags().GetStringSlice("match")
		customer, _ := cmd.Flags().GetString("customer")
		disabled, _ := cmd.Flags().GetBool("disabled")

		if name == "" {
			return fmt.Errorf("rule name is required")
		}

		fieldMatches, err := parseMatches(matches)
		if err != nil {
			return err
		}

		req := &models.CreateExclusionRuleRequest{
			Name:         name,
			Channel:      channel,
			Title:        title,
			FieldMatches: fieldMatches,
		}
		if customer != "" {
			req.CustomerCode = &customer
		}
		if disabled {
			enabled := false
			req.Enabled = &enabled
		}

		rule, err := api.CreateExclusion(req)
		if err != nil {
			return err
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(rule)
		}

		output.Success("Exclusion rule created: %s", rule.ID)
		return nil
	},
}

var exclusionsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get an exclusion rule by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient(cmd)
		if err != nil {
			return err
		}

		rule, err := api.GetExclusion(args[0])
		if err != nil {
			return err
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(rule)
		}

		output.Info("Rule: %s", rule.Name)
		output.Info("ID: %s", rule.ID)
		if rule.Channel != "" {
			output.Info("Channel: %s", rule.Channel)
		}
		if rule.Title != "" {
			output.Info("Title: %s", rule.Title)
		}
		for field, value := range rule.FieldMatches {
			output.Info("Match: %s = %s", field, value)
		}
		if rule.CustomerCode != nil {
			output.Info("Customer: %s", *rule.CustomerCode)
		} else {
			output.Info("Customer: all")
		}
		if rule.Enabled {
			output.Info("Status: Enabled")
		} else {
			output.Info("Status: Disabled")
		}
		output.Info("Created: %s by %s", rule.CreatedAt.Format("2006-01-02 15:04:05"), rule.CreatedBy)
		output.Info("Match count: %d", rule.MatchCount)
		if rule.LastMatchedAt != nil {
			output.Info("Last matched: %s", rule.LastMatchedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var exclusionsDeleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Aliases: []string{"rm"},
	Short:   "Delete an exclusion rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient(cmd)
		if err != nil {
			return err
		}

		if err := api.DeleteExclusion(args[0]); err != nil {
			return err
		}

		output.Success("Exclusion rule deleted: %s", args[0])
		return nil
	},
}

var exclusionsToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Enable or disable an exclusion rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient(cmd)
		if err != nil {
			return err
		}

		rule, err := api.ToggleExclusion(args[0])
		if err != nil {
			return err
		}

		if rule.Enabled {
			output.Success("Exclusion rule enabled: %s", rule.ID)
		} else {
			output.Success("Exclusion rule disabled: %s", rule.ID)
		}
		return nil
	},
}

func describeConditions(rule *models.ExclusionRule) string {
	var parts []string
	if rule.Channel != "" {
		parts = append(parts, "channel="+rule.Channel)
	}
	if rule.Title != "" {
		parts = append(parts, "title="+rule.Title)
	}
	for field, value := range rule.FieldMatches {
		parts = append(parts, field+"="+value)
	}
	return strings.Join(parts, ", ")
}

func parseMatches(matches []string) (map[string]string, error) {
	if len(matches) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(matches))
	for _, m := range matches {
		field, value, ok := strings.Cut(m, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid match %q: expected field=value", m)
		}
		out[field] = value
	}
	return out, nil
}

func init() {
	exclusionsListCmd.Flags().Int("skip", 0, "number of rules to skip")
	exclusionsListCmd.Flags().Int("limit", 50, "maximum rules to return")
	exclusionsListCmd.Flags().Bool("enabled-only", false, "only show enabled rules")

	exclusionsCreateCmd.Flags().String("name", "", "rule name (required)")
	exclusionsCreateCmd.Flags().String("channel", "", "match events from this channel")
	exclusionsCreateCmd.Flags().String("title", "", "match events with this title")
	exclusionsCreateCmd.Flags().StringSlice("match", nil, "field match as field=value (repeatable)")
	exclusionsCreateCmd.Flags().String("customer", "", "restrict rule to one customer code")
	exclusionsCreateCmd.Flags().Bool("disabled", false, "create the rule disabled")

	exclusionsCmd.AddCommand(exclusionsListCmd)
	exclusionsCmd.AddCommand(exclusionsCreateCmd)
	exclusionsCmd.AddCommand(exclusionsGetCmd)
	exclusionsCmd.AddCommand(exclusionsDeleteCmd)
	exclusionsCmd.AddCommand(exclusionsToggleCmd)
	rootCmd.AddCommand(exclusionsCmd)
}
