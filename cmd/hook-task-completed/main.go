// Command hook-task-completed is the TaskCompleted entry point (spec
// §4.C11): optionally requires a non-empty task subject before accepting
// completion.
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
	deps.TeamValidateTaskOutput = os.Getenv("CLAUDE_TEAM_VALIDATE_OUTPUT") != ""
	out := router.Dispatch(deps, ev)
	os.Exit(bootstrap.Emit(os.Stdout, out))
}
