// Command mockset validates relational mock datasets and materializes them
// through overlay stacks.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/mockset/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
