// Package budget implements the per-zone, per-metric rolling-window usage
// budget engine: saturating aggregation, window rollover,
// warn/deny enforcement, and a preflight hook that serves as the mesh's
// backpressure mechanism.
package budget

import "fmt"

// Metric is one of the mesh's closed set of usage metric kinds.
type Metric string

const (
	MetricTokens        Metric = "tokens"
	MetricRequests       Metric = "requests"
	MetricBytes         Metric = "bytes"
	MetricComputeSeconds Metric = "compute_seconds"
)

// Enforcement selects how an Exceeded classification affects the call.
type Enforcement string

const (
	EnforcementWarn Enforcement = "Warn"
	EnforcementDeny Enforcement = "Deny"
)

// BudgetConfig is one configured budget entry for a zone.
type BudgetConfig struct {
	Metric        Metric
	Limit         uint64
	WindowSeconds uint64
	Enforcement   Enforcement
}

// Classification is a budget entry's state relative to its limit.
type Classification string

const (
	ClassificationOk       Classification = "Ok"
	ClassificationExceeded Classification = "Exceeded"
)

// MetricWindow is the engine's rolling-window state for one (zone, metric).
type MetricWindow struct {
	WindowSeconds  uint64
	WindowStarted  uint64 // epoch seconds the current window began
	Used           uint64
	Limit          uint64
	Enforcement    Enforcement
}

// saturatingAdd adds b to a without wrapping past the uint64 maximum.
func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

// roll resets the window if its configured duration elapsed, or if the
// configured window_seconds itself changed since the last roll.
func (w *MetricWindow) roll(nowSeconds uint64, cfg BudgetConfig) {
	if w.WindowSeconds != cfg.WindowSeconds {
		w.WindowSeconds = cfg.WindowSeconds
		w.WindowStarted = nowSeconds
		w.Used = 0
	} else if nowSeconds-w.WindowStarted >= cfg.WindowSeconds {
		w.WindowStarted = nowSeconds
		w.Used = 0
	}
	w.Limit = cfg.Limit
	w.Enforcement = cfg.Enforcement
}

// Classify reports whether the window's usage has exceeded its limit.
func (w MetricWindow) Classify() Classification {
	if w.Used > w.Limit {
		return ClassificationExceeded
	}
	return ClassificationOk
}

// Entry is one budget's snapshot state, surfaced in UsageBudgetSnapshot.
type Entry struct {
	Metric         Metric
	Used           uint64
	Limit          uint64
	WindowSeconds  uint64
	Classification Classification
}

// Snapshot is the engine's state for a zone after a record_usage call.
type Snapshot struct {
	Entries []Entry
}

// Action is the enforcement outcome derived from a Snapshot.
type Action string

const (
	ActionAllow Action = "Allow"
	ActionWarn  Action = "Warn"
	ActionDeny  Action = "Deny"
)

// Engine holds per-zone metric windows and implements record_usage and the
// preflight hook.
type Engine struct {
	// zone -> metric -> window
	windows map[string]map[Metric]*MetricWindow
}

// NewEngine creates an empty Engine.
func NewEngine() *Engine {
	return &Engine{windows: make(map[string]map[Metric]*MetricWindow)}
}

func (e *Engine) zoneWindows(zone string) map[Metric]*MetricWindow {
	zw, ok := e.windows[zone]
	if !ok {
		zw = make(map[Metric]*MetricWindow)
		e.windows[zone] = zw
	}
	return zw
}

// UsageDelta is one presented UsageMetric to aggregate.
type UsageDelta struct {
	Metric Metric
	Amount uint64
}

// RecordUsage aggregates presented metrics by kind (saturating add), rolls
// each configured budget's window as needed, and returns the zone's
// resulting Snapshot; Act derives the enforcement Action from it.
// configs must be supplied in a stable, caller-determined order; the
// engine does not read them from a map, so the output entry order matches
// configs' order exactly.
func (e *Engine) RecordUsage(zone string, configs []BudgetConfig, deltas []UsageDelta, nowSeconds uint64) Snapshot {
	aggregated := make(map[Metric]uint64, len(deltas))
	order := make([]Metric, 0, len(deltas))
	for _, d := range deltas {
		if _, seen := aggregated[d.Metric]; !seen {
			order = append(order, d.Metric)
		}
		aggregated[d.Metric] = saturatingAdd(aggregated[d.Metric], d.Amount)
	}
	_ = order // aggregation order does not affect the result; kept for clarity only

	zw := e.zoneWindows(zone)
	var snapshot Snapshot
	for _, cfg := range configs {
		w, ok := zw[cfg.Metric]
		if !ok {
			w = &MetricWindow{WindowSeconds: cfg.WindowSeconds, WindowStarted: nowSeconds}
			zw[cfg.Metric] = w
		}
		w.roll(nowSeconds, cfg)
		if delta, ok := aggregated[cfg.Metric]; ok {
			w.Used = saturatingAdd(w.Used, delta)
		}
		snapshot.Entries = append(snapshot.Entries, Entry{
			Metric:         cfg.Metric,
			Used:           w.Used,
			Limit:          w.Limit,
			WindowSeconds:  w.WindowSeconds,
			Classification: w.Classify(),
		})
	}
	return snapshot
}

// Act derives the BudgetAction for a snapshot: Deny if any Deny-enforced
// entry is Exceeded, else Warn if any Warn-enforced entry is Exceeded,
// else Allow.
func Act(snapshot Snapshot, configs []BudgetConfig) Action {
	enforcementByMetric := make(map[Metric]Enforcement, len(configs))
	for _, c := range configs {
		enforcementByMetric[c.Metric] = c.Enforcement
	}
	sawWarn := false
	for _, entry := range snapshot.Entries {
		if entry.Classification != ClassificationExceeded {
			continue
		}
		if enforcementByMetric[entry.Metric] == EnforcementDeny {
			return ActionDeny
		}
		sawWarn = true
	}
	if sawWarn {
		return ActionWarn
	}
	return ActionAllow
}

// ExceededError carries the structured BudgetExceeded evidence.
type ExceededError struct {
	Metric        Metric
	Used          uint64
	Limit         uint64
	WindowSeconds uint64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget: %s exceeded: used=%d limit=%d window_seconds=%d", e.Metric, e.Used, e.Limit, e.WindowSeconds)
}

// PreflightResult is the outcome of Preflight.
type PreflightResult struct {
	Allowed  bool
	Snapshot Snapshot
	Err      *ExceededError
}

// Preflight returns allowed=false with the first Deny-enforced exceeded
// entry when record usage would breach a Deny budget; Warn-enforced
// entries still allow the call.
func Preflight(snapshot Snapshot, configs []BudgetConfig) PreflightResult {
	enforcementByMetric := make(map[Metric]Enforcement, len(configs))
	for _, c := range configs {
		enforcementByMetric[c.Metric] = c.Enforcement
	}
	for _, entry := range snapshot.Entries {
		if entry.Classification == ClassificationExceeded && enforcementByMetric[entry.Metric] == EnforcementDeny {
			return PreflightResult{
				Allowed:  false,
				Snapshot: snapshot,
				Err: &ExceededError{
					Metric:        entry.Metric,
					Used:          entry.Used,
					Limit:         entry.Limit,
					WindowSeconds: entry.WindowSeconds,
				},
			}
		}
	}
	return PreflightResult{Allowed: true, Snapshot: snapshot}
}

// EstimatePreflight checks a hypothetical additional spend against the
// current snapshot without mutating engine state, letting a caller ask
// "would this usage be admitted" before doing the work that produces it
// (supplemental operation; original_source's host budget layer offers the
// same dry-run shape ahead of side-effecting execution).
func EstimatePreflight(snapshot Snapshot, configs []BudgetConfig, estimate []UsageDelta) PreflightResult {
	estimatedByMetric := make(map[Metric]uint64, len(estimate))
	for _, d := range estimate {
		estimatedByMetric[d.Metric] = saturatingAdd(estimatedByMetric[d.Metric], d.Amount)
	}
	enforcementByMetric := make(map[Metric]Enforcement, len(configs))
	for _, c := range configs {
		enforcementByMetric[c.Metric] = c.Enforcement
	}

	hypothetical := Snapshot{Entries: make([]Entry, len(snapshot.Entries))}
	for i, entry := range snapshot.Entries {
		used := saturatingAdd(entry.Used, estimatedByMetric[entry.Metric])
		classification := ClassificationOk
		if used > entry.Limit {
			classification = ClassificationExceeded
		}
		hypothetical.Entries[i] = Entry{
			Metric:         entry.Metric,
			Used:           used,
			Limit:          entry.Limit,
			WindowSeconds:  entry.WindowSeconds,
			Classification: classification,
		}
	}
	return Preflight(hypothetical, configs)
}
