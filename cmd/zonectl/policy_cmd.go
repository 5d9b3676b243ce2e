package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/flywheel-mesh/zonemesh/pkg/policy"
	"github.com/flywheel-mesh/zonemesh/pkg/release"
)

// runPolicyCmd dispatches `zonectl policy <subcommand>`.
func runPolicyCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: zonectl policy <simulate|diff|rollback> [flags]")
		return 2
	}
	switch args[0] {
	case "simulate":
		return runPolicySimulate(args[1:], stdout, stderr)
	case "diff":
		return runPolicyDiff(args[1:], stdout, stderr)
	case "rollback":
		return runPolicyRollback(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "zonectl policy: unknown subcommand %q\n", args[0])
		return 2
	}
}

// runPolicySimulate reads a policy.SimulationInput from a JSON file and runs
// it through the deterministic simulator (pkg/policy.Simulate), printing the
// resulting receipt. zonectl never re-implements the decision algebra.
func runPolicySimulate(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("policy simulate", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	inputPath := cmd.String("input", "", "Path to a PolicySimulationInput JSON file (REQUIRED)")
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

	var in policy.SimulationInput
	if err := json.Unmarshal(raw, &in); err != nil {
		fmt.Fprintf(stderr, "Error parsing simulation input: %v\n", err)
		return 2
	}

	receipt, err := policy.Simulate(in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	out, _ := json.MarshalIndent(receipt, "", "  ")
	fmt.Fprintln(stdout, string(out))
	if receipt.Decision == policy.DecisionDeny {
		return 1
	}
	return 0
}

// runPolicyDiff loads two ZonePolicy JSON files and reports which top-level
// fields differ — an evidence aid for an operator reviewing a pending
// policy change, not a replacement for re-running the simulator against
// both.
func runPolicyDiff(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("policy diff", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	aPath := cmd.String("a", "", "Path to the current ZonePolicy JSON file (REQUIRED)")
	bPath := cmd.String("b", "", "Path to the proposed ZonePolicy JSON file (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if *aPath == "" || *bPath == "" {
		fmt.Fprintln(stderr, "Error: --a and --b are required")
		return 2
	}

	a, err := loadZonePolicy(*aPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", *aPath, err)
		return 1
	}
	b, err := loadZonePolicy(*bPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", *bPath, err)
		return 1
	}

	diffs := diffZonePolicy(a, b)
	if len(diffs) == 0 {
		fmt.Fprintln(stdout, "no differences")
		return 0
	}
	for _, d := range diffs {
		fmt.Fprintln(stdout, d)
	}
	return 0
}

func loadZonePolicy(path string) (policy.ZonePolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return policy.ZonePolicy{}, err
	}
	var p policy.ZonePolicy
	if err := json.Unmarshal(raw, &p); err != nil {
		return policy.ZonePolicy{}, err
	}
	return p, nil
}

// rollbackPlan is the operator-facing JSON shape for `policy rollback`: a
// snapshot of a release.Rollout plus the forced-rollback time and reason.
type rollbackPlan struct {
	Rollout release.Rollout `json:"rollout"`
	AtSecs  uint64          `json:"at_secs"`
	Reason  string          `json:"reason"`
}

// runPolicyRollback loads a rollback plan — a pending rollout's current
// state plus the time and reason to force it back — and drives it to
// RolledBack via pkg/release.Rollout.ForceRollback, printing the resulting
// rollout. It never re-implements the rollout state machine.
func runPolicyRollback(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("policy rollback", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	planPath := cmd.String("plan", "", "Path to a rollback plan JSON file (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if *planPath == "" {
		fmt.Fprintln(stderr, "Error: --plan is required")
		return 2
	}

	raw, err := os.ReadFile(*planPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", *planPath, err)
		return 1
	}
	var plan rollbackPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		fmt.Fprintf(stderr, "Error parsing rollback plan: %v\n", err)
		return 2
	}

	if err := plan.Rollout.ForceRollback(plan.AtSecs, plan.Reason); err != nil {
		fmt.Fprintf(stdout, "invalid: %v\n", err)
		return 1
	}

	out, _ := json.MarshalIndent(plan.Rollout, "", "  ")
	fmt.Fprintln(stdout, string(out))
	return 0
}

func diffZonePolicy(a, b policy.ZonePolicy) []string {
	var diffs []string
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	t := av.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		af := av.Field(i).Interface()
		bf := bv.Field(i).Interface()
		if !reflect.DeepEqual(af, bf) {
			diffs = append(diffs, fmt.Sprintf("%s: %v -> %v", name, af, bf))
		}
	}
	return diffs
}
