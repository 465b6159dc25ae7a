package strategy

import (
	"fmt"
	"time"

	"requirements/internal/calccache"
	"requirements/internal/calculator"
	"requirements/internal/dedup"
	"requirements/internal/gitutil"
	"requirements/internal/messages"
)

// DynamicStrategy runs a calculator, consults the calculation cache, and
// compares the result to thresholds, honoring TTL approvals (spec §4.C10).
// Grounded on original_source/hooks/lib/dynamic_strategy.py.
type DynamicStrategy struct{}

// Check implements Strategy.
func (DynamicStrategy) Check(ctx *Context) Decision {
	req := ctx.Requirement

	// Step 1: branch-level satisfaction.
	if ctx.Branch.IsSatisfied(req.Name, req.Scope, ctx.SessionID) {
		return Decision{Outcome: Pass}
	}
	// Step 2: unexpired approval.
	if ctx.Branch.IsApproved(req.Name, ctx.SessionID) {
		return Decision{Outcome: Pass}
	}
	// Step 3: malformed config already rejected at policy load (the
	// requirement would be disabled and never dispatched here), but a
	// missing calculator name is still possible if the registry changed
	// since the policy was parsed — fail open.
	if req.Calculator == "" {
		return Decision{Outcome: Pass}
	}
	// Step 4: detached HEAD / protected branch heuristics.
	if gitutil.IsDetachedHashLike(ctx.BranchName) {
		return Decision{Outcome: Pass}
	}
	for _, b := range defaultProtectedBranches() {
		if b == ctx.BranchName {
			return Decision{Outcome: Pass}
		}
	}

	// Step 5: cache or compute.
	key := calccache.Key(ctx.ProjectDir, ctx.BranchName, req.Name)
	ttl := time.Duration(req.CacheTTLSeconds) * time.Second
	result, hit := calccache.Get(key, ttl)
	if !hit {
		out := calculator.Run(req.Calculator, ctx.ProjectDir, ctx.BranchName)
		if out == nil {
			return Decision{Outcome: Pass}
		}
		result = calccache.Result{Value: out.Value, Summary: out.Summary, Extra: out.Extra}
		calccache.Set(key, result)
	}

	// Step 6: threshold comparison.
	if result.Value >= req.ThresholdBlock {
		bundle := resolveDynamicDenialBundle(ctx, result)
		k := dedup.Key(ctx.ProjectDir, ctx.BranchName, ctx.SessionID, req.Name, false)
		full := bundle.BlockingMessage
		if full == "" {
			full = bundle.FallbackText
		}
		if dedup.ShouldShow(k, full, ctx.DedupTTL) {
			return Decision{Outcome: Block, Message: full}
		}
		short := bundle.ShortMessage
		if short == "" {
			short = full
		}
		return Decision{Outcome: Block, Message: short}
	}

	if req.ThresholdWarn != nil && result.Value >= *req.ThresholdWarn {
		return Decision{Outcome: Warn, Message: fmt.Sprintf(
			"%s: value %.0f is above warn threshold %.0f (block at %.0f) — %s",
			req.Name, result.Value, *req.ThresholdWarn, req.ThresholdBlock, result.Summary,
		)}
	}

	return Decision{Outcome: Pass}
}

func defaultProtectedBranches() []string { return []string{"main", "master"} }

func resolveDynamicDenialBundle(ctx *Context, result calccache.Result) messages.Bundle {
	req := ctx.Requirement
	baseBranch := ""
	if result.Extra != nil {
		if b, ok := result.Extra["base_branch"].(string); ok {
			baseBranch = b
		}
	}

	warnStr := ""
	if req.ThresholdWarn != nil {
		warnStr = fmt.Sprintf("%.0f", *req.ThresholdWarn)
	}

	subs := substitutionsFor(ctx, map[string]string{
		"value":           fmt.Sprintf("%.0f", result.Value),
		"block_threshold": fmt.Sprintf("%.0f", req.ThresholdBlock),
		"warn_threshold":  warnStr,
		"summary":         result.Summary,
		"base_branch":     baseBranch,
	})

	if ctx.Provider != nil {
		bundle := ctx.Provider.Resolve(req.Name, string(req.Type), subs)
		if messages.Validate(bundle) == nil {
			return appendApprovalInstructions(bundle, req.Name, req.ApprovalTTLSeconds)
		}
	}

	tmpl := req.BlockingMessage
	if tmpl == "" {
		tmpl = req.Message
	}
	bundle := messages.FallbackBundle(req.Name, tmpl, subs)
	if tmpl == "" {
		bundle.BlockingMessage = fmt.Sprintf(
			"Blocked: %s — %s (threshold %.0f)", req.Name, result.Summary, req.ThresholdBlock,
		)
		bundle.FallbackText = bundle.BlockingMessage
		bundle.ShortMessage = fmt.Sprintf("Blocked: %s (value %.0f >= %.0f)", req.Name, result.Value, req.ThresholdBlock)
	}
	return appendApprovalInstructions(bundle, req.Name, req.ApprovalTTLSeconds)
}

func appendApprovalInstructions(b messages.Bundle, reqName string, approvalTTLSeconds int) messages.Bundle {
	instr := fmt.Sprintf("\n\nOverride for %ds: `req satisfy %s --session <sid>`.", approvalTTLSeconds, reqName)
	b.BlockingMessage += instr
	b.FallbackText += instr
	return b
}
