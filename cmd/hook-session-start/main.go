// Command hook-session-start is the SessionStart entry point (spec §4.C11,
// §4.C12): prunes stale branch state, refreshes the session registry, and
// optionally injects the adaptive status briefing.
package main

import (
	"os"

	"requirements/internal/bootstrap"
	"requirements/internal/hookio"
	"requirements/internal/router"
)

func main() {
	ev, err := hookio.DecodeStdin()
	if err != nil {
		os.Exit(0)
	}
	deps := bootstrap.BuildDeps(ev)

	explicit := os.Getenv("CLAUDE_BRIEFING_DENSITY")
	source := ev.Source
	deps.BuildBriefing = func() string {
		return bootstrap.BriefingText(deps, source, explicit)
	}

	out := router.Dispatch(deps, ev)
	os.Exit(bootstrap.Emit(os.Stdout, out))
}
