// Command hook-stop is the Stop entry point (spec §4.C11): re-verifies every
// triggered, in-scope requirement and blocks completion with a table of every
// unmet one, unless stop_hook_active is already set.
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
