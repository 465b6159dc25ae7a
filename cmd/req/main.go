// Command req is the operator/agent-facing CLI of spec §4.C14: inspect and
// manipulate requirement state directly, outside the hook dispatch path.
//
// Grounded on the telnet2-opencode cmd/opencode CLI's cobra root/subcommand
// layout (a thin main() delegating to Execute, persistent flags bound via
// viper) adapted to this engine's state packages.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "req:", err)
		os.Exit(1)
	}
}
