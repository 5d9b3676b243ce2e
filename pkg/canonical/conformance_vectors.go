package canonical

import "encoding/hex"

// conformanceFixtures pairs each pinned schema with a sample record and that
// sample's pinned canonical CBOR encoding plus the schema's own pinned hash.
// TestConformanceVectorsVerify recomputes both from the live Schema/
// CanonicalCBOR code paths and compares byte-for-byte against the pinned
// values below, so a change to field order, tag numbers, or the canonical
// CBOR encoder itself fails the test instead of silently drifting the wire
// format a deployed zone may already depend on.
var fixtureBytes32 = []byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f,
}

type DecisionReceiptV1Sample struct {
	Decision   string `cbor:"1,keyasint"`
	ReasonCode string `cbor:"2,keyasint"`
}

type CapabilityTokenV1Sample struct {
	Subject   string `cbor:"1,keyasint"`
	Scope     string `cbor:"2,keyasint"`
	ExpiresAt uint64 `cbor:"3,keyasint"`
}

type CredentialGrantV1Sample struct {
	CredentialID []byte `cbor:"1,keyasint"`
	Zone         string `cbor:"2,keyasint"`
	IssuedAt     uint64 `cbor:"3,keyasint"`
}

type AuditRecordV1Sample struct {
	PrevHash []byte `cbor:"1,keyasint"`
	Actor    string `cbor:"2,keyasint"`
	Action   string `cbor:"3,keyasint"`
	At       uint64 `cbor:"4,keyasint"`
}

type BudgetUsageV1Sample struct {
	Metric     string `cbor:"1,keyasint"`
	Amount     uint64 `cbor:"2,keyasint"`
	WindowSecs uint64 `cbor:"3,keyasint"`
}

type ZonePolicyV1Sample struct {
	Zone        string `cbor:"1,keyasint"`
	Version     uint64 `cbor:"2,keyasint"`
	Enforcement string `cbor:"3,keyasint"`
}

type PolicySimulationInputV1Sample struct {
	Zone           string `cbor:"1,keyasint"`
	Capability     string `cbor:"2,keyasint"`
	RequestedScope string `cbor:"3,keyasint"`
}

type RolloutManifestV1Sample struct {
	ConnectorID string `cbor:"1,keyasint"`
	Version     string `cbor:"2,keyasint"`
	Channel     string `cbor:"3,keyasint"`
}

type ReleaseManifestV1Sample struct {
	ConnectorID string `cbor:"1,keyasint"`
	Digest      []byte `cbor:"2,keyasint"`
	SignedBy    string `cbor:"3,keyasint"`
}

type RollbackPlanV1Sample struct {
	AtSecs uint64 `cbor:"1,keyasint"`
	Reason string `cbor:"2,keyasint"`
}

type ApprovalRequestV1Sample struct {
	Fingerprint []byte `cbor:"1,keyasint"`
	RequestedBy string `cbor:"2,keyasint"`
	Status      string `cbor:"3,keyasint"`
}

type ReplicationEnvelopeV1Sample struct {
	Stream      string `cbor:"1,keyasint"`
	Seq         uint64 `cbor:"2,keyasint"`
	PayloadHash []byte `cbor:"3,keyasint"`
}

type PlacementEvaluationV1Sample struct {
	Zone     string `cbor:"1,keyasint"`
	Node     string `cbor:"2,keyasint"`
	Eligible bool `cbor:"3,keyasint"`
}

type FreshnessHeartbeatV1Sample struct {
	Node     string `cbor:"1,keyasint"`
	LastSeen uint64 `cbor:"2,keyasint"`
	Degraded bool `cbor:"3,keyasint"`
}

type UsageDeltaV1Sample struct {
	Metric string `cbor:"1,keyasint"`
	Amount uint64 `cbor:"2,keyasint"`
}

type CorrelationTraceV1Sample struct {
	CorrelationID []byte `cbor:"1,keyasint"`
	Spans         []string `cbor:"2,keyasint"`
}

type CRDTMergeRecordV1Sample struct {
	ObjectID []byte `cbor:"1,keyasint"`
	Op       string `cbor:"2,keyasint"`
	Lamport  uint64 `cbor:"3,keyasint"`
}

type conformanceFixture struct {
	Schema Schema
	Vector Vector
}

func conformanceFixtures() []conformanceFixture {
	return []conformanceFixture{
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "decision_receipt",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "decision", Type: "string"},
					{Name: "reason_code", Type: "string"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.decision_receipt.v1",
				SchemaHash: "5cd90d066d5c290ccd2415e6bcaef33f5cc74c82d7329956f9a62dfb66ffdc1b",
				Sample: DecisionReceiptV1Sample{
					Decision: "Allow",
					ReasonCode: "within_budget",
				},
				CanonicalCBORBytes: mustHex("a20165416c6c6f77026d77697468696e5f627564676574"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "capability_token",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "subject", Type: "string"},
					{Name: "scope", Type: "string"},
					{Name: "expires_at", Type: "u64"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.capability_token.v1",
				SchemaHash: "30489e70df276efa36f039bac633f21dd0ce9ca4905dc10e74cb0af84e066c79",
				Sample: CapabilityTokenV1Sample{
					Subject: "svc:ingest",
					Scope: "zone:read",
					ExpiresAt: 1800000000,
				},
				CanonicalCBORBytes: mustHex("a3016a7376633a696e6765737402697a6f6e653a72656164031a6b49d200"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "credential_grant",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "credential_id", Type: "bytes32"},
					{Name: "zone", Type: "string"},
					{Name: "issued_at", Type: "u64"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.credential_grant.v1",
				SchemaHash: "8a7a01d02ec883d1d726e35c565d761a55c567c0e6d7749c79f30513e12576e8",
				Sample: CredentialGrantV1Sample{
					CredentialID: fixtureBytes32,
					Zone: "z:work",
					IssuedAt: 1700000000,
				},
				CanonicalCBORBytes: mustHex("a3015820000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f02667a3a776f726b031a6553f100"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "audit_record",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "prev_hash", Type: "bytes32"},
					{Name: "actor", Type: "string"},
					{Name: "action", Type: "string"},
					{Name: "at", Type: "u64"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.audit_record.v1",
				SchemaHash: "228275eeffa1285534ae68654820e0d328eda58c1271399502cdf17c242671cb",
				Sample: AuditRecordV1Sample{
					PrevHash: fixtureBytes32,
					Actor: "zone-owner",
					Action: "policy.publish",
					At: 1700000001,
				},
				CanonicalCBORBytes: mustHex("a4015820000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f026a7a6f6e652d6f776e6572036e706f6c6963792e7075626c697368041a6553f101"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "budget_usage",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "metric", Type: "string"},
					{Name: "amount", Type: "u64"},
					{Name: "window_secs", Type: "u64"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.budget_usage.v1",
				SchemaHash: "174f039335008917ecf4bfabeb05a869ad21ec15f139f516bcb071fcc50fd600",
				Sample: BudgetUsageV1Sample{
					Metric: "tokens",
					Amount: 150,
					WindowSecs: 60,
				},
				CanonicalCBORBytes: mustHex("a30166746f6b656e7302189603183c"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "zone_policy",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "zone", Type: "string"},
					{Name: "version", Type: "u64"},
					{Name: "enforcement", Type: "string"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.zone_policy.v1",
				SchemaHash: "107a68acce1b814d66abfe8a9ceea65d191cfdaf8c401e3a208154f0c1ad4dbd",
				Sample: ZonePolicyV1Sample{
					Zone: "z:work",
					Version: 3,
					Enforcement: "deny",
				},
				CanonicalCBORBytes: mustHex("a301667a3a776f726b0203036464656e79"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "policy_simulation_input",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "zone", Type: "string"},
					{Name: "capability", Type: "string"},
					{Name: "requested_scope", Type: "string"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.policy_simulation_input.v1",
				SchemaHash: "691e7613cf966e3076c1c28f09932cd969fa7278f9172b80f9d923376fc26bb0",
				Sample: PolicySimulationInputV1Sample{
					Zone: "z:work",
					Capability: "fcp.telegram:messaging:v1",
					RequestedScope: "zone:read",
				},
				CanonicalCBORBytes: mustHex("a301667a3a776f726b0278196663702e74656c656772616d3a6d6573736167696e673a763103697a6f6e653a72656164"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "rollout_manifest",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "connector_id", Type: "string"},
					{Name: "version", Type: "string"},
					{Name: "channel", Type: "string"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.rollout_manifest.v1",
				SchemaHash: "a479b7660188fd5a7eb41f8b24d295400d11db69e6062467679c520e394c040f",
				Sample: RolloutManifestV1Sample{
					ConnectorID: "fcp.telegram:messaging:v1",
					Version: "1.2.3",
					Channel: "stable",
				},
				CanonicalCBORBytes: mustHex("a30178196663702e74656c656772616d3a6d6573736167696e673a76310265312e322e330366737461626c65"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "release_manifest",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "connector_id", Type: "string"},
					{Name: "digest", Type: "bytes32"},
					{Name: "signed_by", Type: "string"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.release_manifest.v1",
				SchemaHash: "41a0e14ec076a9506090d8f2d342870ac9818c3038a3ff2eead99a15fd17cf87",
				Sample: ReleaseManifestV1Sample{
					ConnectorID: "fcp.telegram:messaging:v1",
					Digest: fixtureBytes32,
					SignedBy: "zone-owner",
				},
				CanonicalCBORBytes: mustHex("a30178196663702e74656c656772616d3a6d6573736167696e673a7631025820000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f036a7a6f6e652d6f776e6572"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "rollback_plan",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "at_secs", Type: "u64"},
					{Name: "reason", Type: "string"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.rollback_plan.v1",
				SchemaHash: "1ea4a196c1720151fb98c3f640d99d768065f040f9a53b0ef0dbd6e37b638ae7",
				Sample: RollbackPlanV1Sample{
					AtSecs: 1200,
					Reason: "operator aborted canary",
				},
				CanonicalCBORBytes: mustHex("a2011904b002776f70657261746f722061626f727465642063616e617279"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "approval_request",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "fingerprint", Type: "bytes32"},
					{Name: "requested_by", Type: "string"},
					{Name: "status", Type: "string"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.approval_request.v1",
				SchemaHash: "0e95d4d37579aab6eadd99d413b251087f93ea4365fad0c9d2e73b9c12dd5045",
				Sample: ApprovalRequestV1Sample{
					Fingerprint: fixtureBytes32,
					RequestedBy: "agent:scheduler",
					Status: "pending",
				},
				CanonicalCBORBytes: mustHex("a3015820000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f026f6167656e743a7363686564756c6572036770656e64696e67"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "replication_envelope",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "stream", Type: "string"},
					{Name: "seq", Type: "u64"},
					{Name: "payload_hash", Type: "bytes32"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.replication_envelope.v1",
				SchemaHash: "b0f1f2f4862b45203da7412818c16ab503301ceb3f022ecdff737554ded32bfb",
				Sample: ReplicationEnvelopeV1Sample{
					Stream: "zonemesh.audit",
					Seq: 42,
					PayloadHash: fixtureBytes32,
				},
				CanonicalCBORBytes: mustHex("a3016e7a6f6e656d6573682e617564697402182a035820000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "placement_evaluation",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "zone", Type: "string"},
					{Name: "node", Type: "string"},
					{Name: "eligible", Type: "bool"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.placement_evaluation.v1",
				SchemaHash: "b709082d12eee363d9f1a7c901ec626a6f22451e3b4f20f213159ad055f94f7f",
				Sample: PlacementEvaluationV1Sample{
					Zone: "z:work",
					Node: "node-7",
					Eligible: true,
				},
				CanonicalCBORBytes: mustHex("a301667a3a776f726b02666e6f64652d3703f5"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "freshness_heartbeat",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "node", Type: "string"},
					{Name: "last_seen", Type: "u64"},
					{Name: "degraded", Type: "bool"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.freshness_heartbeat.v1",
				SchemaHash: "8684639ef3845086bb9e37905ed41a6b24cfe18a3c55fb4948853647fb81e55b",
				Sample: FreshnessHeartbeatV1Sample{
					Node: "node-7",
					LastSeen: 1700000100,
					Degraded: false,
				},
				CanonicalCBORBytes: mustHex("a301666e6f64652d37021a6553f16403f4"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "usage_delta",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "metric", Type: "string"},
					{Name: "amount", Type: "u64"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.usage_delta.v1",
				SchemaHash: "905aaa2b72fa9932db501a14b813a4e55de2520174e815ee2eb22f5fc55007d4",
				Sample: UsageDeltaV1Sample{
					Metric: "tokens",
					Amount: 150,
				},
				CanonicalCBORBytes: mustHex("a20166746f6b656e73021896"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "correlation_trace",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "correlation_id", Type: "bytes32"},
					{Name: "spans", Type: "[]string"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.correlation_trace.v1",
				SchemaHash: "9bfd49f831a054e6da7db76f050c59217382eeae5cf43835b97bdf457be8d3ba",
				Sample: CorrelationTraceV1Sample{
					CorrelationID: fixtureBytes32,
					Spans: []string{"ingest", "policy", "deliver"},
				},
				CanonicalCBORBytes: mustHex("a2015820000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f028366696e6765737466706f6c6963796764656c69766572"),
			},
		},
		{
			Schema: Schema{
				Namespace: "zonemesh",
				Name:      "crdt_merge_record",
				Version:   1,
				Fields: []FieldSpec{
					{Name: "object_id", Type: "bytes32"},
					{Name: "op", Type: "string"},
					{Name: "lamport", Type: "u64"},
				},
			},
			Vector: Vector{
				SchemaID:   "zonemesh.crdt_merge_record.v1",
				SchemaHash: "4c378d0696942e51c2b09eb8a6fefc5bad503f5f853098b909e1f1efedc9f7eb",
				Sample: CRDTMergeRecordV1Sample{
					ObjectID: fixtureBytes32,
					Op: "add",
					Lamport: 7,
				},
				CanonicalCBORBytes: mustHex("a3015820000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f02636164640307"),
			},
		},
	}
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
