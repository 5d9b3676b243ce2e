package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Extension is an optional custom predicate evaluated after the fixed
// thirteen-step order produces Allow, letting a zone layer in additional
// deny rules (e.g. time-of-day restrictions, connector-specific quotas)
// without touching the core evaluation order. A zone with no extension
// expression behaves exactly as Simulate alone.
type Extension struct {
	env  *cel.Env
	expr string
	ast  *cel.Ast
}

// NewExtension compiles expr once against a fixed "input" map(string,dyn)
// variable. The expression must evaluate to a bool; true means "no
// additional objection", matching the convention that extensions can only
// narrow an Allow, never grant one.
func NewExtension(expr string) (*Extension, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: build cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy: compile extension expression: %w", issues.Err())
	}
	return &Extension{env: env, expr: expr, ast: ast}, nil
}

// Evaluate runs the compiled extension against a flattened view of the
// receipt's evaluation context. It returns false (additional denial) only
// when the expression evaluates cleanly to false; any evaluation error is
// treated as a denial, since an extension that cannot be evaluated must
// not silently grant access.
func (x *Extension) Evaluate(vars map[string]interface{}) (bool, error) {
	prg, err := x.env.Program(x.ast)
	if err != nil {
		return false, fmt.Errorf("policy: program extension: %w", err)
	}
	val, _, err := prg.Eval(map[string]interface{}{"input": vars})
	if err != nil {
		return false, fmt.Errorf("policy: evaluate extension: %w", err)
	}
	b, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy: extension expression %q did not evaluate to bool", x.expr)
	}
	return b, nil
}

// SimulateWithExtension runs Simulate and, only on Allow, consults ext
// (when non-nil) for an additional zone-specific denial. A failing or
// false-evaluating extension downgrades the decision to
// ZonePolicyCapabilityDenied, since the extension mechanism is scoped to
// capability-shaped zone refinements.
func SimulateWithExtension(in SimulationInput, ext *Extension, vars map[string]interface{}) (Receipt, error) {
	receipt, err := Simulate(in)
	if err != nil || receipt.Decision != DecisionAllow || ext == nil {
		return receipt, err
	}
	ok, evalErr := ext.Evaluate(vars)
	if evalErr != nil || !ok {
		return deny(ReasonZonePolicyCapabilityDenied, "", receipt.Evidence, receipt.NowMS, in), nil
	}
	return receipt, nil
}
