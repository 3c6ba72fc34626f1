package sim

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// comparators is the closed set a criterion may use.
var comparators = map[string]bool{">=": true, "<=": true, "==": true, ">": true, "<": true}

// ValidateCriteria grades computed metrics against a scenario's declared
// criteria. Every failing comparison becomes one violation string; an
// unknown metric or comparator is itself a violation, never a panic.
func ValidateCriteria(metrics map[string]float64, criteria []Criterion) []string {
	var violations []string
	for _, c := range criteria {
		value, ok := metrics[c.Metric]
		if !ok {
			violations = append(violations, fmt.Sprintf("Metric '%s' not found", c.Metric))
			continue
		}

		passed, err := evalComparison(value, c.Comparator, c.Threshold)
		if err != nil {
			violations = append(violations, fmt.Sprintf("%s: %v", c.Metric, err))
			continue
		}
		if !passed {
			violations = append(violations, fmt.Sprintf("%s: %v %s %v FAILED", c.Metric, value, c.Comparator, c.Threshold))
		}
	}
	return violations
}

// evalComparison evaluates "value <comparator> threshold" as an expression.
// The comparator is allow-listed before anything reaches the evaluator, so
// criteria loaded from scenario files cannot smuggle in arbitrary code.
func evalComparison(value float64, comparator string, threshold float64) (bool, error) {
	if !comparators[comparator] {
		return false, fmt.Errorf("unsupported comparator %q", comparator)
	}

	out, err := expr.Eval("value "+comparator+" threshold", map[string]any{
		"value":     value,
		"threshold": threshold,
	})
	if err != nil {
		return false, err
	}

	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("comparison must evaluate to bool (got %T)", out)
	}
	return b, nil
}
