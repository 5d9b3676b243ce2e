package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/flywheel-mesh/zonemesh/pkg/budget"
)

// budgetShowInput is the operator-facing JSON shape for `budget show`: a
// zone, its configured budgets, and the usage deltas to apply before
// reporting the resulting snapshot and action.
type budgetShowInput struct {
	Zone       string                `json:"zone"`
	Configs    []budget.BudgetConfig `json:"configs"`
	Deltas     []budget.UsageDelta   `json:"deltas"`
	NowSeconds uint64                `json:"now_seconds"`
}

// runBudgetCmd dispatches `zonectl budget <subcommand>`.
func runBudgetCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: zonectl budget show --input <file>")
		return 2
	}
	switch args[0] {
	case "show":
		return runBudgetShow(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "zonectl budget: unknown subcommand %q\n", args[0])
		return 2
	}
}

// runBudgetShow applies one RecordUsage call for a zone and prints the
// resulting snapshot and enforcement action. It is a one-shot replay tool
// for an operator inspecting a single decision, not a live budget server;
// a real deployment's counters live in pkg/budget.Engine (or
// pkg/budget.RedisWindowStore across nodes), wired by the host process.
func runBudgetShow(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("budget show", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	inputPath := cmd.String("input", "", "Path to a budget-show input JSON file (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" {
		fmt.Fprintln(stderr, "Error: --input is required")
		return 2
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", *inputPath, err)
		return 1
	}
	var in budgetShowInput
	if err := json.Unmarshal(raw, &in); err != nil {
		fmt.Fprintf(stderr, "Error parsing input: %v\n", err)
		return 2
	}

	engine := budget.NewEngine()
	snapshot := engine.RecordUsage(in.Zone, in.Configs, in.Deltas, in.NowSeconds)
	action := budget.Act(snapshot, in.Configs)

	result := struct {
		Snapshot budget.Snapshot `json:"snapshot"`
		Action   budget.Action   `json:"action"`
	}{Snapshot: snapshot, Action: action}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(stdout, string(out))

	if action == budget.ActionDeny {
		return 1
	}
	return 0
}
