package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"requirements/internal/briefing"
)

var statusCmd = &cobra.Command{
	Use:   "status [requirement...]",
	Short: "Show satisfaction status for requirements on the current branch",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, err := loadEngineContext()
	if err != nil {
		return err
	}
	branch := ctx.branchDoc()

	filter := map[string]bool{}
	for _, a := range args {
		filter[a] = true
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "Requirement\tType\tEnabled\tSatisfied\tScope")
	for _, req := range ctx.Policy.AllRequirements() {
		if len(filter) > 0 && !filter[req.Name] {
			continue
		}
		satisfied := branch.IsSatisfied(req.Name, req.Scope, ctx.SessionID)
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n", req.Name, req.Type, req.Enabled, satisfied, req.Scope)
	}
	tw.Flush()

	if len(filter) == 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(briefingPreview(ctx), "\n"))
	}
	return nil
}

// briefingPreview renders the compact-density briefing as a cross-check
// against what a SessionStart would have injected (spec §4.C12).
func briefingPreview(ctx *engineContext) string {
	branch := ctx.branchDoc()
	var statuses []briefing.RequirementStatus
	for _, req := range ctx.Policy.AllRequirements() {
		if !req.Enabled {
			continue
		}
		resolveHint := "req satisfy " + req.Name
		isSkill := false
		if req.AutoResolveSkill != "" {
			resolveHint = req.AutoResolveSkill
			isSkill = true
		}
		statuses = append(statuses, briefing.RequirementStatus{
			Name:        req.Name,
			Type:        req.Type,
			Satisfied:   branch.IsSatisfied(req.Name, req.Scope, ctx.SessionID),
			ResolveHint: resolveHint,
			IsSkillHint: isSkill,
		})
	}
	return briefing.Build(briefing.Input{Branch: ctx.Branch, SessionID: ctx.SessionID, Statuses: statuses}, briefing.Compact)
}
