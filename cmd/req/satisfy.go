package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"requirements/internal/policy"
)

var (
	satisfyScope  string
	satisfyTTL    time.Duration
	satisfyMethod string
)

var satisfyCmd = &cobra.Command{
	Use:   "satisfy <requirement...>",
	Short: "Mark one or more requirements satisfied",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSatisfy,
}

func init() {
	satisfyCmd.Flags().StringVar(&satisfyScope, "scope", "", "override the requirement's configured scope")
	satisfyCmd.Flags().DurationVar(&satisfyTTL, "ttl", 0, "expiry (ignored for permanent scope, and for dynamic requirements unless --scope is given; 0 = no expiry)")
	satisfyCmd.Flags().StringVar(&satisfyMethod, "method", "manual", "satisfied_by label recorded in state")
}

func runSatisfy(cmd *cobra.Command, args []string) error {
	ctx, err := loadEngineContext()
	if err != nil {
		return err
	}
	branch := ctx.branchDoc()

	for _, name := range args {
		req := ctx.Policy.Get(name)
		if req == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "req satisfy: unknown requirement %q, recording anyway\n", name)
		}
		if req != nil && req.Type == policy.Dynamic && satisfyScope == "" {
			ttl := time.Duration(req.ApprovalTTLSeconds) * time.Second
			branch.ApproveForSession(name, ctx.SessionID, ttl, nil)
			fmt.Fprintf(cmd.OutOrStdout(), "approved %s for %s (ttl=%s)\n", name, ctx.SessionID, ttl)
			continue
		}
		scope := policy.Scope(satisfyScope)
		if scope == "" && req != nil {
			scope = req.Scope
		}
		if scope == "" {
			scope = policy.ScopeSession
		}

		switch scope {
		case policy.ScopeBranch, policy.ScopePermanent:
			branch.Satisfy(name, scope, satisfyMethod, nil, satisfyTTL)
		default:
			branch.SatisfyForSession(name, scope, ctx.SessionID, satisfyMethod, nil, satisfyTTL)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "satisfied %s (scope=%s)\n", name, scope)
	}
	return nil
}

var clearCmd = &cobra.Command{
	Use:   "clear <requirement...>",
	Short: "Remove a requirement's recorded state entirely",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClear,
}

var clearSingleUse bool

func init() {
	clearCmd.Flags().BoolVar(&clearSingleUse, "single-use", false, "clear only the current session's single_use entry")
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx, err := loadEngineContext()
	if err != nil {
		return err
	}
	branch := ctx.branchDoc()
	for _, name := range args {
		if clearSingleUse {
			branch.ClearSingleUse(name, ctx.SessionID)
		} else {
			branch.Clear(name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", name)
	}
	return nil
}

var approveTTL time.Duration

var approveCmd = &cobra.Command{
	Use:   "approve <requirement>",
	Short: "Record a TTL-bounded emergency approval for the current session",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

func init() {
	approveCmd.Flags().DurationVar(&approveTTL, "ttl", 5*time.Minute, "approval lifetime")
}

func runApprove(cmd *cobra.Command, args []string) error {
	ctx, err := loadEngineContext()
	if err != nil {
		return err
	}
	branch := ctx.branchDoc()
	branch.ApproveForSession(args[0], ctx.SessionID, approveTTL, nil)
	fmt.Fprintf(cmd.OutOrStdout(), "approved %s for %s (ttl=%s)\n", args[0], ctx.SessionID, approveTTL)
	return nil
}
