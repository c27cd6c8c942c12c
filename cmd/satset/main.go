// Command satset evaluates ordered rule tables of typed conditions against
// observed values.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/satset/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "satset: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
