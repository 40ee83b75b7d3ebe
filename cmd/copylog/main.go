// Command copylog copies Jira worklogs from a source server to a target
// server and writes per-author CSV reports.
package main

import (
	"fmt"
	"io"
	"os"

	// Register the jira tracker.
	_ "github.com/copylog/copylog/internal/jira"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// run executes the CLI with args, writing results to stdout and
// progress, logs and prompts to stderr.
func run(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}
