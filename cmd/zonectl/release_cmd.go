package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/flywheel-mesh/zonemesh/pkg/release"
)

// runReleaseCmd dispatches `zonectl release <subcommand>`.
func runReleaseCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: zonectl release <publish|rollout> [flags]")
		return 2
	}
	switch args[0] {
	case "publish":
		return runReleasePublish(args[1:], stdout, stderr)
	case "rollout":
		return runReleaseRollout(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "zonectl release: unknown subcommand %q\n", args[0])
		return 2
	}
}

// runReleasePublish validates a signed release manifest and, when
// --host-version is given, reports eligibility against it.
func runReleasePublish(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("release publish", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	manifestPath := cmd.String("manifest", "", "Path to a ReleaseManifest JSON file (REQUIRED)")
	hostVersion := cmd.String("host-version", "", "Optional host version to check eligibility against")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if *manifestPath == "" {
		fmt.Fprintln(stderr, "Error: --manifest is required")
		return 2
	}

	raw, err := os.ReadFile(*manifestPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", *manifestPath, err)
		return 1
	}
	if err := release.ValidateManifestJSON(raw); err != nil {
		fmt.Fprintf(stdout, "invalid: %v\n", err)
		return 1
	}
	var m release.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		fmt.Fprintf(stderr, "Error parsing manifest: %v\n", err)
		return 2
	}

	if err := m.Validate(); err != nil {
		fmt.Fprintf(stdout, "invalid: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "valid: %s %s (%s)\n", m.ConnectorID, m.Version, m.Channel)

	if *hostVersion != "" {
		eligible, err := m.EligibleForHost(*hostVersion)
		if err != nil {
			fmt.Fprintf(stderr, "Error checking eligibility: %v\n", err)
			return 1
		}
		if !eligible {
			fmt.Fprintf(stdout, "not eligible for host version %s (requires >= %s)\n", *hostVersion, m.MinHostVersion)
			return 1
		}
		fmt.Fprintf(stdout, "eligible for host version %s\n", *hostVersion)
	}
	return 0
}

// runReleaseRollout validates a rollout policy, including the cross-check
// between success thresholds and rollback rules.
func runReleaseRollout(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("release rollout", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	policyPath := cmd.String("policy", "", "Path to a RolloutPolicy JSON file (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if *policyPath == "" {
		fmt.Fprintln(stderr, "Error: --policy is required")
		return 2
	}

	raw, err := os.ReadFile(*policyPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", *policyPath, err)
		return 1
	}
	if err := release.ValidateRolloutPolicyJSON(raw); err != nil {
		fmt.Fprintf(stdout, "invalid: %v\n", err)
		return 1
	}
	var p release.RolloutPolicy
	if err := json.Unmarshal(raw, &p); err != nil {
		fmt.Fprintf(stderr, "Error parsing rollout policy: %v\n", err)
		return 2
	}

	if err := p.Validate(); err != nil {
		fmt.Fprintf(stdout, "invalid: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "valid")
	return 0
}
