package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "collect":
		return runCollect(args[1:])
	case "translate":
		return runTranslate(args[1:])
	case "sweep":
		return runSweep(args[1:])
	case "purge":
		return runPurge(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newsdesk CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newsdesk <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify store connectivity")
	fmt.Fprintln(os.Stderr, "  collect    Run one feed collection pass")
	fmt.Fprintln(os.Stderr, "  translate  Translate one piece of text")
	fmt.Fprintln(os.Stderr, "  sweep      Translate part of the pending backlog")
	fmt.Fprintln(os.Stderr, "  purge      Delete records older than the retention window")
	fmt.Fprintln(os.Stderr, "  serve      Start the collector daemon and Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newsdesk <command> -h\" for command-specific flags.")
}
