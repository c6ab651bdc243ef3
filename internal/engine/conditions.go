package engine

import (
	"fmt"
	"strings"
)

// ConditionEvaluator decides whether a condition step's predicate holds
// against the instance variables. Condition steps are a branching
// extension point; the shipped evaluator only supports variable
// comparisons and everything else advances linearly.
type ConditionEvaluator interface {
	Evaluate(expr string, vars map[string]string) (bool, error)
}

// VariableConditionEvaluator supports "key=value" and "key!=value"
// expressions. An empty expression is always satisfied.
type VariableConditionEvaluator struct{}

func (VariableConditionEvaluator) Evaluate(expr string, vars map[string]string) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	if key, want, ok := strings.Cut(expr, "!="); ok {
		return vars[strings.TrimSpace(key)] != strings.TrimSpace(want), nil
	}
	if key, want, ok := strings.Cut(expr, "="); ok {
		return vars[strings.TrimSpace(key)] == strings.TrimSpace(want), nil
	}
	return false, fmt.Errorf("unsupported condition expression: %q", expr)
}
