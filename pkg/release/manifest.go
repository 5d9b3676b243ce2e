// Package release implements signed release manifest validation and the
// canary rollout state machine that gates which connector version is
// eligible to hold capabilities.
package release

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

const (
	manifestFormat        = "fcp-release-manifest"
	manifestSchemaVersion  = "1.0"
	rolloutPolicyFormat    = "fcp-rollout-policy"
	rolloutSchemaVersion   = "1.0"
	maxBPS                 = 10000
)

var digestPattern = regexp.MustCompile(`^blake3-256:[0-9a-f]{64}$`)

// InvalidManifestError reports why a manifest or policy failed validation.
type InvalidManifestError struct {
	Reason string
}

func (e *InvalidManifestError) Error() string { return fmt.Sprintf("release: invalid manifest: %s", e.Reason) }

func invalid(reason string) error { return &InvalidManifestError{Reason: reason} }

// Signature is a manifest's or policy's ed25519 signature block.
type Signature struct {
	Algorithm    string
	KeyID        string
	Signature    string
	SignedFields []string
}

func (s Signature) validate() error {
	if s.Algorithm != "ed25519" {
		return invalid(fmt.Sprintf("signature.algorithm must be 'ed25519', got %q", s.Algorithm))
	}
	if s.KeyID == "" {
		return invalid("signature.key_id must not be empty")
	}
	if s.Signature == "" {
		return invalid("signature.signature must not be empty")
	}
	if len(s.SignedFields) == 0 {
		return invalid("signature.signed_fields must not be empty")
	}
	return nil
}

// Manifest is a signed connector release manifest.
type Manifest struct {
	Format         string
	SchemaVersion  string
	ConnectorID    string
	Version        string
	Digest         string
	Channel        string
	RequiredCaps   []string
	MinHostVersion string
	SignedBy       string
	Signature      Signature
}

// Validate checks every rule a manifest must satisfy; it is valid iff all
// hold.
func (m Manifest) Validate() error {
	if m.Format != manifestFormat {
		return invalid(fmt.Sprintf("format must be %q, got %q", manifestFormat, m.Format))
	}
	if m.SchemaVersion != manifestSchemaVersion {
		return invalid(fmt.Sprintf("schema_version must be %q, got %q", manifestSchemaVersion, m.SchemaVersion))
	}
	if m.Version == "" {
		return invalid("version must not be empty")
	}
	if m.Channel == "" {
		return invalid("channel must not be empty")
	}
	if m.MinHostVersion == "" {
		return invalid("min_host_version must not be empty")
	}
	if m.SignedBy == "" {
		return invalid("signed_by must not be empty")
	}
	if !digestPattern.MatchString(m.Digest) {
		return invalid(fmt.Sprintf("digest %q does not match ^blake3-256:[0-9a-f]{64}$", m.Digest))
	}
	if _, err := semver.NewVersion(m.MinHostVersion); err != nil {
		return invalid(fmt.Sprintf("min_host_version %q is not a valid semantic version: %v", m.MinHostVersion, err))
	}
	if err := m.Signature.validate(); err != nil {
		return err
	}
	return nil
}

// EligibleForHost reports whether the manifest's min_host_version is
// satisfied by hostVersion.
func (m Manifest) EligibleForHost(hostVersion string) (bool, error) {
	minVersion, err := semver.NewVersion(m.MinHostVersion)
	if err != nil {
		return false, fmt.Errorf("release: parse min_host_version: %w", err)
	}
	host, err := semver.NewVersion(hostVersion)
	if err != nil {
		return false, fmt.Errorf("release: parse host version: %w", err)
	}
	return !host.LessThan(minVersion), nil
}

// SuccessThresholds are the promotion criteria for a canary.
type SuccessThresholds struct {
	MinSuccessRateBPS uint16
	MaxErrorRateBPS   uint16
	MinSamples        uint32
	WindowSecs        uint32
}

func (t SuccessThresholds) validate() error {
	if t.MinSuccessRateBPS > maxBPS {
		return invalid(fmt.Sprintf("success_thresholds.min_success_rate_bps must be 0-%d, got %d", maxBPS, t.MinSuccessRateBPS))
	}
	if t.MaxErrorRateBPS > maxBPS {
		return invalid(fmt.Sprintf("success_thresholds.max_error_rate_bps must be 0-%d, got %d", maxBPS, t.MaxErrorRateBPS))
	}
	return nil
}

// RollbackRules are the failure criteria that trigger a canary rollback.
type RollbackRules struct {
	MaxErrorRateBPS         uint16
	MaxConsecutiveFailures  uint32
	MinSamples              uint32
	WindowSecs              uint32
	AutoRollback            bool
}

func (r RollbackRules) validate() error {
	if r.MaxErrorRateBPS > maxBPS {
		return invalid(fmt.Sprintf("rollback_rules.max_error_rate_bps must be 0-%d, got %d", maxBPS, r.MaxErrorRateBPS))
	}
	if r.MaxConsecutiveFailures < 1 {
		return invalid("rollback_rules.max_consecutive_failures must be at least 1")
	}
	return nil
}

// RolloutPolicy describes canary thresholds and rollback rules.
type RolloutPolicy struct {
	Format                string
	SchemaVersion         string
	CanaryPercent         uint8
	MinCanaryDurationSecs uint32
	SuccessThresholds     SuccessThresholds
	RollbackRules         RollbackRules
}

// Validate checks every rollout policy rule, including the cross-check that
// promotion error tolerance must not exceed the rollback threshold.
func (p RolloutPolicy) Validate() error {
	if p.Format != rolloutPolicyFormat {
		return invalid(fmt.Sprintf("format must be %q, got %q", rolloutPolicyFormat, p.Format))
	}
	if p.SchemaVersion != rolloutSchemaVersion {
		return invalid(fmt.Sprintf("schema_version must be %q, got %q", rolloutSchemaVersion, p.SchemaVersion))
	}
	if p.CanaryPercent > 100 {
		return invalid("canary_percent must be 0-100")
	}
	if err := p.SuccessThresholds.validate(); err != nil {
		return err
	}
	if err := p.RollbackRules.validate(); err != nil {
		return err
	}
	if p.SuccessThresholds.MaxErrorRateBPS > p.RollbackRules.MaxErrorRateBPS {
		return invalid("promotion error tolerance cannot exceed rollback threshold")
	}
	return nil
}
