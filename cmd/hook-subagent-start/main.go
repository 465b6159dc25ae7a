// Command hook-subagent-start is the SubagentStart entry point (spec
// §4.C11): injects a requirements-context preamble for review-agent types.
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
	out := router.Dispatch(deps, ev)
	os.Exit(bootstrap.Emit(os.Stdout, out))
}
