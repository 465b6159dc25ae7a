package strategy

import (
	"requirements/internal/dedup"
	"requirements/internal/messages"
)

// BlockingStrategy checks manual satisfaction against branch state (spec
// §4.C8). Grounded on original_source/hooks/lib/blocking_strategy.py.
type BlockingStrategy struct{}

// Check implements Strategy.
func (BlockingStrategy) Check(ctx *Context) Decision {
	req := ctx.Requirement
	if ctx.Branch.IsSatisfied(req.Name, req.Scope, ctx.SessionID) {
		return Decision{Outcome: Pass}
	}

	bundle := resolveDenialBundle(ctx)
	key := dedup.Key(ctx.ProjectDir, ctx.BranchName, ctx.SessionID, req.Name, false)

	full := bundle.BlockingMessage
	if full == "" {
		full = bundle.FallbackText
	}
	if dedup.ShouldShow(key, full, ctx.DedupTTL) {
		return Decision{Outcome: Block, Message: full}
	}
	short := bundle.ShortMessage
	if short == "" {
		short = full
	}
	return Decision{Outcome: Block, Message: short}
}

// resolveDenialBundle fetches the message bundle from the provider, falling
// back to requirement.message, then to a built-in directive-first fallback
// (spec §4.C8).
func resolveDenialBundle(ctx *Context) messages.Bundle {
	subs := substitutionsFor(ctx, nil)

	if ctx.Provider != nil {
		bundle := ctx.Provider.Resolve(ctx.Requirement.Name, string(ctx.Requirement.Type), subs)
		if messages.Validate(bundle) == nil {
			return bundle
		}
	}
	return messages.FallbackBundle(ctx.Requirement.Name, ctx.Requirement.Message, subs)
}
