package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "(not implemented) scaffold a new project policy file",
	RunE:  runInitStub,
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "(not implemented) migrate an existing policy file to a newer schema",
	RunE:  runUpgradeStub,
}

// The onboarding wizard and project-registry bookkeeping these subcommands
// would drive are explicitly out of scope; they exist so the documented
// subcommand set is complete and discoverable, not silently missing.
func runInitStub(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), "req init is not implemented: hand-write a .claude/requirements.json"+
		" (see internal/policy for the document shape) rather than running a wizard.")
	return fmt.Errorf("not implemented")
}

func runUpgradeStub(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), "req upgrade is not implemented: there is currently one policy schema version.")
	return fmt.Errorf("not implemented")
}
