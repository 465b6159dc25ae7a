package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"requirements/internal/atomicstore"
	"requirements/internal/bootstrap"
)

var enableCmd = &cobra.Command{
	Use:   "enable <requirement>",
	Short: "Enable a requirement in the project policy file",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], true) },
}

var disableCmd = &cobra.Command{
	Use:   "disable <requirement>",
	Short: "Disable a requirement in the project policy file",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], false) },
}

// setEnabled flips requirements.<name>.enabled in the raw policy JSON. It
// edits the generic document rather than round-tripping policy.Document,
// since Document carries no json tags for re-serialization (it's a read-only
// decoded view, spec §1 — the policy cascade's write side is this CLI's
// concern, not internal/policy's).
func setEnabled(cmd *cobra.Command, name string, enabled bool) error {
	project := projectDir()
	if project == "" {
		return fmt.Errorf("no project directory (pass --project or run inside one)")
	}
	path := bootstrap.PolicyPath(project)

	raw := map[string]any{}
	data, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, &raw); jsonErr != nil {
			return fmt.Errorf("policy file is malformed JSON, refusing to edit: %w", jsonErr)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading policy file: %w", err)
	}

	reqs, _ := raw["requirements"].(map[string]any)
	if reqs == nil {
		reqs = map[string]any{}
	}
	entry, _ := reqs[name].(map[string]any)
	if entry == nil {
		return fmt.Errorf("no requirement named %q in %s", name, path)
	}
	entry["enabled"] = enabled
	reqs[name] = entry
	raw["requirements"] = reqs

	atomicstore.Write(path, raw)
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name, state)
	return nil
}
