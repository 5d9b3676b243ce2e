package zoneid

import "testing"

func TestParseConnectorID(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"fcp.telegram:messaging:v1", false},
		{"vectordb:upsert:v12", false},
		{"https://example.com:443:v1", true},
		{"bad-shape", true},
		{"ns:name:1", true},
	}
	for _, tc := range cases {
		id, err := ParseConnectorID(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseConnectorID(%q): expected error, got %+v", tc.in, id)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseConnectorID(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if id.String() != tc.in {
			t.Errorf("round-trip mismatch: got %q want %q", id.String(), tc.in)
		}
	}
}

func TestCapabilityUnderCeiling(t *testing.T) {
	ceiling := CapabilityID("cap.allowed")
	if !CapabilityID("cap.allowed").UnderCeiling(ceiling) {
		t.Error("exact match should be under ceiling")
	}
	if !CapabilityID("cap.allowed.sub").UnderCeiling(ceiling) {
		t.Error("dotted extension should be under ceiling")
	}
	if CapabilityID("cap.read").UnderCeiling(ceiling) {
		t.Error("sibling capability must not be under ceiling")
	}
	if CapabilityID("cap.allowedx").UnderCeiling(ceiling) {
		t.Error("prefix-string (non-dotted) match must not be under ceiling")
	}
}

func TestZoneIDValid(t *testing.T) {
	if !ZoneID("z:work").Valid() {
		t.Error("z:work should be valid")
	}
	if ZoneID("work").Valid() {
		t.Error("work should be invalid")
	}
}

func TestNewCredentialIDDistinctAndNonZero(t *testing.T) {
	a, err := NewCredentialID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewCredentialID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == (CredentialID{}) || b == (CredentialID{}) {
		t.Error("generated credential id must not be the zero value")
	}
	if a == b {
		t.Error("two generated credential ids must not collide")
	}
}

func TestNewRequestIDDistinctAndNonZero(t *testing.T) {
	a, err := NewRequestID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewRequestID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == (RequestID{}) || b == (RequestID{}) {
		t.Error("generated request id must not be the zero value")
	}
	if a == b {
		t.Error("two generated request ids must not collide")
	}
}

func TestNewCorrelationIDDistinctAndNonZero(t *testing.T) {
	a, err := NewCorrelationID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewCorrelationID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == (CorrelationID{}) || b == (CorrelationID{}) {
		t.Error("generated correlation id must not be the zero value")
	}
	if a == b {
		t.Error("two generated correlation ids must not collide")
	}
}
