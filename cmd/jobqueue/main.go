// Command jobqueue runs a demo queue and inspects the history of past runs.
package main

import (
	"fmt"
	"os"

	"github.com/olivere/jobqueue/v2/cmd/jobqueue/commands"
)

func main() {
	if err := commands.NewCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
