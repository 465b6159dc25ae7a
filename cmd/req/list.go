package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"requirements/internal/branchstate"
	"requirements/internal/gitutil"
	"requirements/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configured requirement",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, err := loadEngineContext()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "Name\tType\tScope\tEnabled\tTriggers")
	for _, req := range ctx.Policy.AllRequirements() {
		triggers := 0
		for range req.Triggers {
			triggers++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\n", req.Name, req.Type, req.Scope, req.Enabled, triggers)
	}
	return tw.Flush()
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove branch state for branches that no longer exist locally",
	RunE:  runPrune,
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx, err := loadEngineContext()
	if err != nil {
		return err
	}
	names, err := gitutil.LocalBranches(ctx.ProjectDir)
	if err != nil {
		return fmt.Errorf("listing local branches: %w", err)
	}
	live := map[string]bool{}
	for _, n := range names {
		live[branchstate.SanitizeBranch(n)] = true
	}
	pruned := branchstate.PruneStaleBranches(ctx.CommonDir, live)
	if len(pruned) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to prune")
		return nil
	}
	for _, b := range pruned {
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %s\n", b)
	}
	return nil
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live sessions for the current project",
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx, err := loadEngineContext()
	if err != nil {
		return err
	}
	entries := registry.List(ctx.ProjectDir, "")
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no live sessions for this project")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "Session\tBranch\tPID\tPPID")
	for sid, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", sid, e.Branch, e.PID, e.PPID)
	}
	return tw.Flush()
}
