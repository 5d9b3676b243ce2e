// Command zonectl is a thin CLI adapter over the zone mesh's component
// libraries. It never implements decision logic itself; every subcommand
// delegates straight to pkg/policy, pkg/budget, or pkg/release.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run dispatches args[1] to a subcommand, writing to stdout/stderr so tests
// can capture output without touching the real streams. Exit codes:
// 0 = success, 1 = operation failed / check failed, 2 = usage error.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "doctor":
		return runDoctorCmd(stdout, stderr)
	case "policy":
		return runPolicyCmd(args[2:], stdout, stderr)
	case "release":
		return runReleaseCmd(args[2:], stdout, stderr)
	case "budget":
		return runBudgetCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "zonectl: unknown command %q\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "zonectl - zone mesh operator CLI")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  zonectl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  doctor                          Check local configuration and dependencies")
	fmt.Fprintln(w, "  policy diff --a <file> --b <file>      Show an evidence-level diff between two zone policies")
	fmt.Fprintln(w, "  policy simulate --input <file>         Run the policy simulator against a PolicySimulationInput")
	fmt.Fprintln(w, "  policy rollback --plan <file>          Force a pending rollout back to RolledBack")
	fmt.Fprintln(w, "  release publish --manifest <file>      Validate and print a signed release manifest")
	fmt.Fprintln(w, "  release rollout --policy <file>        Validate a rollout policy")
	fmt.Fprintln(w, "  budget show --input <file>             Evaluate usage deltas against configured budgets")
	fmt.Fprintln(w, "  help                            Show this help")
}
