// Command hook-permission-request is the PermissionRequest entry point (spec
// §4.C11, §4.C15): auto-denies a fixed table of dangerous Bash commands.
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
