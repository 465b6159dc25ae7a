// Command hook-teammate-idle is the TeammateIdle entry point (spec §4.C11):
// optionally nudges an idle teammate back to work via exit code 2.
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
	deps.TeamHooksEnabled = os.Getenv("CLAUDE_TEAM_HOOKS") != ""
	deps.TeamKeepWorkingOnIdle = os.Getenv("CLAUDE_TEAM_KEEP_WORKING") != ""
	out := router.Dispatch(deps, ev)
	os.Exit(bootstrap.Emit(os.Stdout, out))
}
