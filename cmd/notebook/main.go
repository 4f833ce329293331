// Command notebook runs the notes API and its maintenance tasks.
//
// Everything lives in internal/cli; main only executes the command tree and
// turns the returned error into an exit status.
package main

import (
	"fmt"
	"os"

	"github.com/sakif/notebook/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
