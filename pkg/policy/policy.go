// Package policy implements the policy simulator: the
// deterministic predicate that maps a zone policy, an invoke request, and
// freshness/transport/approval/safety evidence to an Allow or Deny
// decision with structured evidence. It is the mesh's decision algebra —
// a pure function, safe to call from any goroutine, with no wall-clock
// reads, no map-iteration-order dependence, and no randomness.
package policy

import (
	"errors"
	"sort"

	"github.com/flywheel-mesh/zonemesh/pkg/capability"
	"github.com/flywheel-mesh/zonemesh/pkg/zoneid"
)

// Transport is the connection mode an invocation travels over.
type Transport string

const (
	TransportLAN    Transport = "lan"
	TransportDERP   Transport = "derp"
	TransportFunnel Transport = "funnel"
)

// SafetyTier classifies how risky an operation is, gating sanitizer receipt
// requirements.
type SafetyTier string

const (
	SafetyTierRoutine     SafetyTier = "Routine"
	SafetyTierRisky       SafetyTier = "Risky"
	SafetyTierDestructive SafetyTier = "Destructive"
)

// TransportPolicy declares which transports a zone permits.
type TransportPolicy struct {
	AllowLAN    bool
	AllowDERP   bool
	AllowFunnel bool
}

// ZonePolicy is the per-zone rule object.
type ZonePolicy struct {
	ZoneID            zoneid.ZoneID
	PolicyObjectID    zoneid.ObjectID
	PrincipalAllow    []string
	PrincipalDeny     []string
	ConnectorAllow    []string
	ConnectorDeny     []string
	CapabilityAllow   []string
	CapabilityDeny    []string
	CapabilityCeiling []zoneid.CapabilityID
	Transport         TransportPolicy
	RequiresPosture   bool
}

// InvokeRequest is the caller-formed request to perform an outbound
// operation.
type InvokeRequest struct {
	ID               zoneid.RequestID
	ConnectorID      string
	Operation        zoneid.OperationID
	ZoneID           zoneid.ZoneID
	CapabilityToken  capability.Token
	HolderProof      *capability.HolderProof
	DeadlineMS       uint64
	CorrelationID    zoneid.CorrelationID
	ApprovalTokens   []ApprovalEvidence
	RequestObjectID  zoneid.ObjectID
	RequestInputHash string
}

// ApprovalEvidence is the minimal view of a presented approval token the
// simulator needs: its kind, the scope it was issued against, and its
// object id for evidence. Consumption itself happens in pkg/approval; this
// package only checks presence and scope match.
type ApprovalEvidence struct {
	ObjectID    zoneid.ObjectID
	Kind        string // "Execution" | "PlanBound"
	ConnectorID string
	Operation   zoneid.OperationID
	RequestObjectID  zoneid.ObjectID // zero means unbound
	RequestInputHash string          // empty means unbound
}

// SanitizerReceipt references evidence that a risky or destructive
// operation was screened.
type SanitizerReceipt struct {
	ObjectID  zoneid.ObjectID
	Operation zoneid.OperationID
}

// PostureAttestation is an optional device-posture proof.
type PostureAttestation struct {
	ObjectID zoneid.ObjectID
	Stale    bool
}

// ProvenanceRecord is the optional upstream provenance evidence attached to
// a request.
type ProvenanceRecord struct {
	ObjectID zoneid.ObjectID
}

// SimulationInput bundles every input the deterministic evaluation order
// reads.
type SimulationInput struct {
	ZonePolicy                ZonePolicy
	InvokeRequest             InvokeRequest
	Transport                 Transport
	CheckpointFresh           bool
	RevocationFresh           bool
	ExecutionApprovalRequired bool
	SanitizerReceipts         []SanitizerReceipt
	RelatedObjectIDs          []zoneid.ObjectID
	SafetyTier                SafetyTier
	Principal                 string
	CapabilityID              zoneid.CapabilityID
	ProvenanceRecord          *ProvenanceRecord
	NowMS                     uint64
	PostureAttestation        *PostureAttestation
	CheckpointHeadID          zoneid.ObjectID
	RevocationHeadID          zoneid.ObjectID
}

// Decision is the simulator's output polarity.
type Decision string

const (
	DecisionAllow Decision = "Allow"
	DecisionDeny  Decision = "Deny"
)

// Reason codes, stable across implementations.
const (
	ReasonAllow                      = "Allow"
	ReasonCheckpointStaleFrontier    = "CheckpointStaleFrontier"
	ReasonRevocationStaleFrontier    = "RevocationStaleFrontier"
	ReasonZonePolicyPrincipalDenied  = "ZonePolicyPrincipalDenied"
	ReasonZonePolicyConnectorDenied  = "ZonePolicyConnectorDenied"
	ReasonZonePolicyCapabilityDenied = "ZonePolicyCapabilityDenied"
	ReasonCapabilityInsufficient     = "CapabilityInsufficient"
	ReasonTransportLanForbidden      = "TransportLanForbidden"
	ReasonTransportDerpForbidden     = "TransportDerpForbidden"
	ReasonTransportFunnelForbidden   = "TransportFunnelForbidden"
	ReasonApprovalMissingExecution   = "ApprovalMissingExecution"
	ReasonSanitizerRequired          = "SanitizerRequired"
	ReasonPostureRequired            = "PostureRequired"
	ReasonBudgetExceeded             = "BudgetExceeded"
)

// Receipt is the simulator's output for one evaluation.
type Receipt struct {
	Decision        Decision
	ReasonCode      string
	Evidence        []zoneid.ObjectID
	MatchedPattern  string // set for ZonePolicy* and Transport* denials
	NowMS           uint64
	PolicyHead      zoneid.ObjectID
	RevocationHead  zoneid.ObjectID
	CheckpointHead  zoneid.ObjectID
}

// ErrZoneMismatch is the one fatal (non-receipt) evaluation error: policy
// and request disagree on which zone they belong to.
var ErrZoneMismatch = errors.New("policy: zone_policy.zone_id != invoke_request.zone_id")

func deny(reason, pattern string, evidence []zoneid.ObjectID, now uint64, in SimulationInput) Receipt {
	return Receipt{
		Decision:       DecisionDeny,
		ReasonCode:     reason,
		MatchedPattern: pattern,
		Evidence:       evidence,
		NowMS:          now,
		PolicyHead:     in.ZonePolicy.PolicyObjectID,
		RevocationHead: in.RevocationHeadID,
		CheckpointHead: in.CheckpointHeadID,
	}
}

// Simulate evaluates the zone's deterministic decision algebra. It is a
// pure function: identical input produces a bit-identical receipt. now_ms
// must be supplied by the caller; this function never reads the wall
// clock.
func Simulate(in SimulationInput) (Receipt, error) {
	if in.ZonePolicy.ZoneID != in.InvokeRequest.ZoneID {
		return Receipt{}, ErrZoneMismatch
	}

	now := in.NowMS

	// Step 2: checkpoint freshness.
	if !in.CheckpointFresh {
		return deny(ReasonCheckpointStaleFrontier, "", nil, now, in), nil
	}

	// Step 3: revocation freshness.
	if !in.RevocationFresh {
		return deny(ReasonRevocationStaleFrontier, "", nil, now, in), nil
	}

	// Step 4: explicit principal deny.
	if matched, pattern := capability.MatchAny(in.ZonePolicy.PrincipalDeny, in.Principal); matched {
		return deny(ReasonZonePolicyPrincipalDenied, pattern, nil, now, in), nil
	}

	// Step 5: principal allow-list, when non-empty, must match.
	if len(in.ZonePolicy.PrincipalAllow) > 0 {
		if matched, _ := capability.MatchAny(in.ZonePolicy.PrincipalAllow, in.Principal); !matched {
			return deny(ReasonZonePolicyPrincipalDenied, "", nil, now, in), nil
		}
	}

	// Step 6: connector allow/deny, same shape as principal.
	connectorID := in.InvokeRequest.ConnectorID
	if matched, pattern := capability.MatchAny(in.ZonePolicy.ConnectorDeny, connectorID); matched {
		return deny(ReasonZonePolicyConnectorDenied, pattern, nil, now, in), nil
	}
	if len(in.ZonePolicy.ConnectorAllow) > 0 {
		if matched, _ := capability.MatchAny(in.ZonePolicy.ConnectorAllow, connectorID); !matched {
			return deny(ReasonZonePolicyConnectorDenied, "", nil, now, in), nil
		}
	}

	// Step 7: capability allow/deny.
	capStr := string(in.CapabilityID)
	if matched, pattern := capability.MatchAny(in.ZonePolicy.CapabilityDeny, capStr); matched {
		return deny(ReasonZonePolicyCapabilityDenied, pattern, nil, now, in), nil
	}
	if len(in.ZonePolicy.CapabilityAllow) > 0 {
		if matched, _ := capability.MatchAny(in.ZonePolicy.CapabilityAllow, capStr); !matched {
			return deny(ReasonZonePolicyCapabilityDenied, "", nil, now, in), nil
		}
	}

	// Step 8: capability ceiling, dotted-prefix containment.
	if len(in.ZonePolicy.CapabilityCeiling) > 0 {
		underAny := false
		for _, c := range in.ZonePolicy.CapabilityCeiling {
			if in.CapabilityID.UnderCeiling(c) {
				underAny = true
				break
			}
		}
		if !underAny {
			return deny(ReasonCapabilityInsufficient, "", nil, now, in), nil
		}
	}

	// Step 9: transport gating.
	switch in.Transport {
	case TransportLAN:
		if !in.ZonePolicy.Transport.AllowLAN {
			return deny(ReasonTransportLanForbidden, "", nil, now, in), nil
		}
	case TransportDERP:
		if !in.ZonePolicy.Transport.AllowDERP {
			return deny(ReasonTransportDerpForbidden, "", nil, now, in), nil
		}
	case TransportFunnel:
		if !in.ZonePolicy.Transport.AllowFunnel {
			return deny(ReasonTransportFunnelForbidden, "", nil, now, in), nil
		}
	}

	// Step 10: posture attestation.
	if in.ZonePolicy.RequiresPosture {
		if in.PostureAttestation == nil || in.PostureAttestation.Stale {
			return deny(ReasonPostureRequired, "", nil, now, in), nil
		}
	}

	var evidence []zoneid.ObjectID
	if !in.ZonePolicy.PolicyObjectID.IsZero() {
		evidence = append(evidence, in.ZonePolicy.PolicyObjectID)
	}
	if !in.InvokeRequest.CapabilityToken.ObjectID.IsZero() {
		evidence = append(evidence, in.InvokeRequest.CapabilityToken.ObjectID)
	}

	// Step 11: execution approval.
	if in.ExecutionApprovalRequired {
		matchedAny := false
		for _, tok := range in.InvokeRequest.ApprovalTokens {
			if tok.Kind != "Execution" {
				continue
			}
			if tok.ConnectorID != connectorID || tok.Operation != in.InvokeRequest.Operation {
				continue
			}
			if !tok.RequestObjectID.IsZero() && tok.RequestObjectID != in.InvokeRequest.RequestObjectID {
				continue
			}
			if tok.RequestInputHash != "" && tok.RequestInputHash != in.InvokeRequest.RequestInputHash {
				continue
			}
			matchedAny = true
			evidence = append(evidence, tok.ObjectID)
		}
		if !matchedAny {
			return deny(ReasonApprovalMissingExecution, "", evidence, now, in), nil
		}
	}

	// Step 12: sanitizer receipts for risky/destructive operations.
	if in.SafetyTier == SafetyTierRisky || in.SafetyTier == SafetyTierDestructive {
		matchedAny := false
		for _, r := range in.SanitizerReceipts {
			if r.Operation == in.InvokeRequest.Operation {
				matchedAny = true
				evidence = append(evidence, r.ObjectID)
			}
		}
		if !matchedAny {
			return deny(ReasonSanitizerRequired, "", evidence, now, in), nil
		}
	}

	// Step 13: allow. Evidence additionally includes related objects and
	// provenance, in a stable deterministic order (sorted by hex string
	// rather than insertion order, so evaluation never depends on map
	// iteration or caller-supplied ordering).
	evidence = append(evidence, in.RelatedObjectIDs...)
	if in.ProvenanceRecord != nil {
		evidence = append(evidence, in.ProvenanceRecord.ObjectID)
	}
	sort.Slice(evidence, func(i, j int) bool {
		return evidence[i].String() < evidence[j].String()
	})

	return Receipt{
		Decision:       DecisionAllow,
		ReasonCode:     ReasonAllow,
		Evidence:       evidence,
		NowMS:          now,
		PolicyHead:     in.ZonePolicy.PolicyObjectID,
		RevocationHead: in.RevocationHeadID,
		CheckpointHead: in.CheckpointHeadID,
	}, nil
}
