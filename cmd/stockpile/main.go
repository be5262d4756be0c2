// Command stockpile compiles storage layouts, runs transfer scenarios
// against them and manages persisted storage snapshots.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stockpile/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stockpile:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
