package cmd

import (
	"strings"
	"testing"

	"github.com/soclabs/copilot/internal/cli/config"
)

func TestCommandsRegistered(t *testing.T) {
	cfg = config.Default()

	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}

	commands := rootCmd.Commands()
	expectedCommands := map[string]bool{
		"login":      false,
		"exclusions": false,
		"analyze":    false,
		"sources":    false,
		"token":      false,
		"seed":       false,
	}

	for _, cmd := range commands {
		name, _, _ := strings.Cut(cmd.Use, " ")
		if _, ok := expectedCommands[name]; ok {
			expectedCommands[name] = true
		}
	}

	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("expected command '%s' to be registered with root command", cmdName)
		}
	}
}

func TestExclusionsCommandHasSubcommands(t *testing.T) {
	if exclusionsCmd == nil {
		t.Fatal("exclusionsCmd should not be nil")
	}

	expectedCommands := map[string]bool{
		"list":   false,
		"create": false,
		"get":    false,
		"delete": false,
		"toggle": false,
	}

	for _, cmd := range exclusionsCmd.Commands() {
		name, _, _ := strings.Cut(cmd.Use, " ")
		if _, ok := expectedCommands[name]; ok {
			expectedCommands[name] = true
		}
	}

	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("expected exclusions subcommand '%s'", cmdName)
		}
	}
}

func TestParseMatches(t *testing.T) {
	matches, err := parseMatches([]string{"ip=10.0.0.1", "agent_name=web-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches["ip"] != "10.0.0.1" || matches["agent_name"] != "web-01" {
		t.Errorf("unexpected matches: %v", matches)
	}

	if _, err := parseMatches([]string{"no-separator"}); err == nil {
		t.Error("expected error for match without separator")
	}

	if _, err := parseMatches([]string{"=value"}); err == nil {
		t.Error("expected error for match without field name")
	}
}
