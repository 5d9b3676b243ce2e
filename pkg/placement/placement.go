// Package placement implements the replicated placement / coverage
// evaluator: symbol distribution bookkeeping and the basis
// points coverage, diversity, and health math run against it. Every ratio
// is integer basis points ([0,10000]); there are no floats on this path.
package placement

import "github.com/flywheel-mesh/zonemesh/pkg/zoneid"

const bpsScale = 10000

// nodeTally is one node's recorded symbol count and byte total.
type nodeTally struct {
	count uint32
	bytes uint64
}

// SymbolDistribution tracks, per node, how many erasure-coded symbols of
// one object are stored, against the object's K source symbols.
type SymbolDistribution struct {
	nodes         map[zoneid.NodeID]nodeTally
	sourceSymbols uint32
	totalSymbols  uint32
}

// NewSymbolDistribution creates an empty distribution for an object
// requiring sourceSymbols (K) symbols to be reconstructable.
func NewSymbolDistribution(sourceSymbols uint32) *SymbolDistribution {
	return &SymbolDistribution{nodes: make(map[zoneid.NodeID]nodeTally), sourceSymbols: sourceSymbols}
}

func saturatingAddU32(a, b uint32) uint32 {
	sum := a + b
	if sum < a {
		return ^uint32(0)
	}
	return sum
}

func saturatingSubU32(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}

func saturatingAddU64(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

func saturatingSubU64(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// AddSymbol records one symbol of symbolBytes stored on node.
func (d *SymbolDistribution) AddSymbol(node zoneid.NodeID, symbolBytes uint64) {
	t := d.nodes[node]
	t.count = saturatingAddU32(t.count, 1)
	t.bytes = saturatingAddU64(t.bytes, symbolBytes)
	d.nodes[node] = t
	d.totalSymbols = saturatingAddU32(d.totalSymbols, 1)
}

// RemoveSymbol un-records one symbol of symbolBytes from node, dropping the
// node entirely once its count reaches zero.
func (d *SymbolDistribution) RemoveSymbol(node zoneid.NodeID, symbolBytes uint64) {
	t, ok := d.nodes[node]
	if !ok {
		return
	}
	t.count = saturatingSubU32(t.count, 1)
	t.bytes = saturatingSubU64(t.bytes, symbolBytes)
	d.totalSymbols = saturatingSubU32(d.totalSymbols, 1)
	if t.count == 0 {
		delete(d.nodes, node)
	} else {
		d.nodes[node] = t
	}
}

// DistinctNodes reports the number of nodes currently holding at least one
// symbol.
func (d *SymbolDistribution) DistinctNodes() int { return len(d.nodes) }

// MaxNodeSymbols reports the highest symbol count held by any single node.
func (d *SymbolDistribution) MaxNodeSymbols() uint32 {
	var max uint32
	for _, t := range d.nodes {
		if t.count > max {
			max = t.count
		}
	}
	return max
}

// ObjectPlacementPolicy is a zone's placement requirement for a class of
// content-addressed objects.
type ObjectPlacementPolicy struct {
	MinNodes            uint32
	MaxNodeFractionBPS  uint16
	TargetCoverageBPS    uint32
	MinSourceDiversity   uint8
	PreferredDevices     []string
	ExcludedDevices      []string
}

// Health classifies a coverage evaluation against a policy.
type Health string

const (
	HealthHealthy     Health = "Healthy"
	HealthDegraded    Health = "Degraded"
	HealthUnavailable Health = "Unavailable"
)

// CoverageEvaluation is the NORMATIVE basis-points result of evaluating a
// SymbolDistribution.
type CoverageEvaluation struct {
	ObjectID           zoneid.ObjectID
	DistinctNodes      int
	MaxNodeFractionBPS uint16
	CoverageBPS        uint32
	IsAvailable        bool
	TotalSymbols       uint32
	SourceSymbols      uint32
}

// Evaluate computes a CoverageEvaluation from a distribution, rounding
// every basis-points ratio down (integer division truncates toward zero).
func Evaluate(objectID zoneid.ObjectID, d *SymbolDistribution) CoverageEvaluation {
	distinctNodes := d.DistinctNodes()
	maxNodeSymbols := d.MaxNodeSymbols()

	var maxNodeFractionBPS uint16
	if d.totalSymbols > 0 {
		bps := uint64(maxNodeSymbols) * bpsScale / uint64(d.totalSymbols)
		if bps > bpsScale {
			bps = bpsScale
		}
		maxNodeFractionBPS = uint16(bps)
	}

	var coverageBPS uint32
	if d.sourceSymbols > 0 {
		coverageBPS = uint32(uint64(d.totalSymbols) * bpsScale / uint64(d.sourceSymbols))
	}

	isAvailable := d.totalSymbols >= d.sourceSymbols

	return CoverageEvaluation{
		ObjectID:           objectID,
		DistinctNodes:      distinctNodes,
		MaxNodeFractionBPS: maxNodeFractionBPS,
		CoverageBPS:        coverageBPS,
		IsAvailable:        isAvailable,
		TotalSymbols:       d.totalSymbols,
		SourceSymbols:      d.sourceSymbols,
	}
}

// MeetsPolicy reports whether the evaluation satisfies policy's node,
// concentration, coverage, and diversity requirements.
func (c CoverageEvaluation) MeetsPolicy(policy ObjectPlacementPolicy) bool {
	if uint32(c.DistinctNodes) < policy.MinNodes {
		return false
	}
	if c.MaxNodeFractionBPS > policy.MaxNodeFractionBPS {
		return false
	}
	if c.CoverageBPS < policy.TargetCoverageBPS {
		return false
	}
	if policy.MinSourceDiversity > 0 && uint32(c.DistinctNodes) < uint32(policy.MinSourceDiversity) {
		return false
	}
	return true
}

// CoverageDeficitBPS reports how far below targetBPS the evaluation's
// coverage sits, saturating at zero when coverage already meets it.
func (c CoverageEvaluation) CoverageDeficitBPS(targetBPS uint32) uint32 {
	if targetBPS <= c.CoverageBPS {
		return 0
	}
	return targetBPS - c.CoverageBPS
}

// SymbolsNeeded reports how many additional symbols must be stored to
// reach targetBPS coverage.
func (c CoverageEvaluation) SymbolsNeeded(targetBPS uint32) uint32 {
	if c.CoverageBPS >= targetBPS {
		return 0
	}
	targetSymbols := uint64(c.SourceSymbols) * uint64(targetBPS) / bpsScale
	if targetSymbols <= uint64(c.TotalSymbols) {
		return 0
	}
	return uint32(targetSymbols - uint64(c.TotalSymbols))
}

// DiversityBPS reports the evaluation's distinct-node diversity relative
// to minDiversity, capped at 10000; a zero minDiversity means "no
// requirement" and always reports full marks.
func (c CoverageEvaluation) DiversityBPS(minDiversity uint8) uint32 {
	if minDiversity == 0 {
		return bpsScale
	}
	required := uint64(minDiversity)
	actual := uint64(c.DistinctNodes)
	if actual >= required {
		return bpsScale
	}
	return uint32(actual * bpsScale / required)
}

// DiversityDeficit reports how many additional distinct nodes are needed
// to satisfy minDiversity.
func (c CoverageEvaluation) DiversityDeficit(minDiversity uint8) uint8 {
	if minDiversity == 0 || uint32(c.DistinctNodes) >= uint32(minDiversity) {
		return 0
	}
	return minDiversity - uint8(c.DistinctNodes)
}

// HealthFor derives the coverage Health tier for the evaluation under policy.
func (c CoverageEvaluation) HealthFor(policy ObjectPlacementPolicy) Health {
	if !c.IsAvailable {
		return HealthUnavailable
	}
	if c.MeetsPolicy(policy) {
		return HealthHealthy
	}
	return HealthDegraded
}
