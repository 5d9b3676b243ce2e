package capability

import (
	"strings"
	"time"

	"github.com/flywheel-mesh/zonemesh/pkg/zoneid"
)

// Graph is the read-side view of the capability CRDT shadow: the set of
// capability objects currently known for a zone, keyed by ObjectID.
type Graph interface {
	Resolve(zone zoneid.ZoneID, id zoneid.ObjectID) (Object, bool)
}

// MapGraph is an in-memory Graph, typically fed by the LWW-map capability
// shadow (pkg/crdt) at the host boundary.
type MapGraph struct {
	objects map[zoneid.ObjectID]Object
}

// NewMapGraph creates an empty MapGraph.
func NewMapGraph() *MapGraph {
	return &MapGraph{objects: make(map[zoneid.ObjectID]Object)}
}

// Put inserts or replaces a capability object.
func (g *MapGraph) Put(o Object) { g.objects[o.ID] = o }

// Resolve implements Graph.
func (g *MapGraph) Resolve(zone zoneid.ZoneID, id zoneid.ObjectID) (Object, bool) {
	o, ok := g.objects[id]
	if !ok || o.Zone != zone {
		return Object{}, false
	}
	return o, true
}

// MatchPattern implements the mesh's glob-ish pattern language: "*" matches
// any single ":"-delimited segment, segments are otherwise compared
// literally. E.g. "connector:*" matches "connector:test" but not
// "connector:test:v1".
func MatchPattern(pattern, value string) bool {
	ps := strings.Split(pattern, ":")
	vs := strings.Split(value, ":")
	if len(ps) != len(vs) {
		// A trailing "*" segment by itself may still match a shorter
		// remainder if the pattern ends in a bare wildcard segment.
		if len(ps) > 0 && ps[len(ps)-1] == "*" && len(vs) == len(ps)-1 {
			for i := 0; i < len(ps)-1; i++ {
				if ps[i] != "*" && ps[i] != vs[i] {
					return false
				}
			}
			return true
		}
		return false
	}
	for i := range ps {
		if ps[i] == "*" {
			continue
		}
		if ps[i] != vs[i] {
			return false
		}
	}
	return true
}

// MatchAny reports whether value matches any pattern in patterns.
func MatchAny(patterns []string, value string) (matched bool, pattern string) {
	for _, p := range patterns {
		if MatchPattern(p, value) {
			return true, p
		}
	}
	return false, ""
}

// VerifyResult is the outcome of verifying a presented token.
type VerifyResult struct {
	OK         bool
	Object     Object
	DenyReason string // set when !OK; a stable reason code, see pkg/policy
	Evidence   string // matching pattern or object id, for receipt evidence
}

// Verify resolves tok against graph and checks expiry, grant presence, and
// (when ceiling is non-empty) the dotted-prefix ceiling containment rule.
func Verify(graph Graph, tok Token, operation zoneid.OperationID, ceiling []zoneid.CapabilityID, now time.Time) VerifyResult {
	if tok.Expired(now) {
		return VerifyResult{OK: false, DenyReason: "TokenExpired"}
	}
	obj, ok := graph.Resolve(tok.Zone, tok.ObjectID)
	if !ok {
		return VerifyResult{OK: false, DenyReason: "CapabilityObjectUnresolved"}
	}
	if !obj.Valid(now) {
		return VerifyResult{OK: false, DenyReason: "CapabilityObjectExpired"}
	}
	if !obj.HasGrant(tok.Scope, operation) {
		return VerifyResult{OK: false, DenyReason: "CapabilityInsufficient"}
	}
	if len(ceiling) > 0 {
		underAny := false
		for _, c := range ceiling {
			if tok.Scope.UnderCeiling(c) {
				underAny = true
				break
			}
		}
		if !underAny {
			return VerifyResult{OK: false, DenyReason: "CapabilityInsufficient"}
		}
	}
	return VerifyResult{OK: true, Object: obj, Evidence: obj.ID.String()}
}
