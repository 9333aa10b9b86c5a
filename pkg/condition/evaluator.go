// Package condition evaluates edge guard expressions against workstream
// fields and upstream step outputs. Evaluation is pure and deterministic so
// frontier computation can be replayed safely.
package condition

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/dealgrid/playrun/pkg/models"
)

// ErrInvalidCondition indicates a guard that cannot be evaluated: unknown
// metric, unknown operator or operands of the wrong shape. The scheduler
// treats the edge as non-traversable, never as true.
var ErrInvalidCondition = errors.New("invalid condition")

// Evaluate returns whether the edge guard admits traversal. A nil condition
// is unconditional and evaluates true. The metric is resolved against the
// workstream's business fields first, then the completed source node's
// output.
func Evaluate(cond *models.EdgeCondition, workstream *models.Workstream, upstreamOutput map[string]any) (bool, error) {
	if cond == nil {
		return true, nil
	}

	if err := Validate(cond); err != nil {
		return false, err
	}

	value, ok := lookupMetric(cond.Metric, workstream, upstreamOutput)
	if !ok {
		return false, fmt.Errorf("%w: unknown metric %q", ErrInvalidCondition, cond.Metric)
	}

	switch cond.Operator {
	case models.OperatorEquals:
		return equals(value, cond.Value), nil
	case models.OperatorLessThan:
		return compareNumeric(cond, value, func(v, bound float64) bool { return v < bound })
	case models.OperatorGreaterThan:
		return compareNumeric(cond, value, func(v, bound float64) bool { return v > bound })
	case models.OperatorBetween:
		return evaluateBetween(cond, value)
	default:
		return false, fmt.Errorf("%w: unsupported operator %q", ErrInvalidCondition, cond.Operator)
	}
}

// Validate checks the structural shape of a guard without evaluating it.
// Called at play load time so malformed guards surface as configuration
// errors before any execution attempt.
func Validate(cond *models.EdgeCondition) error {
	if cond == nil {
		return nil
	}

	if cond.Metric == "" {
		return fmt.Errorf("%w: empty metric name", ErrInvalidCondition)
	}

	switch cond.Operator {
	case models.OperatorEquals:
		if cond.Value == nil {
			return fmt.Errorf("%w: equals requires an operand", ErrInvalidCondition)
		}
	case models.OperatorLessThan, models.OperatorGreaterThan:
		if _, ok := toFloat(cond.Value); !ok {
			return fmt.Errorf("%w: %s requires a numeric operand", ErrInvalidCondition, cond.Operator)
		}
	case models.OperatorBetween:
		lower, okLower := toFloat(cond.Value)
		upper, okUpper := toFloat(cond.Value2)

		if !okLower || !okUpper {
			return fmt.Errorf("%w: between requires two numeric operands", ErrInvalidCondition)
		}

		if lower > upper {
			return fmt.Errorf("%w: between bounds are inverted", ErrInvalidCondition)
		}
	default:
		return fmt.Errorf("%w: unsupported operator %q", ErrInvalidCondition, cond.Operator)
	}

	return nil
}

func lookupMetric(metric string, workstream *models.Workstream, upstreamOutput map[string]any) (any, bool) {
	if workstream != nil {
		if value, ok := workstream.Field(metric); ok {
			return value, true
		}
	}

	if upstreamOutput != nil {
		if value, ok := upstreamOutput[metric]; ok {
			return value, true
		}
	}

	return nil, false
}

func compareNumeric(cond *models.EdgeCondition, value any, cmp func(v, bound float64) bool) (bool, error) {
	v, ok := toFloat(value)
	if !ok {
		return false, fmt.Errorf("%w: metric %q is not numeric", ErrInvalidCondition, cond.Metric)
	}

	bound, _ := toFloat(cond.Value)

	return cmp(v, bound), nil
}

func evaluateBetween(cond *models.EdgeCondition, value any) (bool, error) {
	v, ok := toFloat(value)
	if !ok {
		return false, fmt.Errorf("%w: metric %q is not numeric", ErrInvalidCondition, cond.Metric)
	}

	lower, _ := toFloat(cond.Value)
	upper, _ := toFloat(cond.Value2)

	return v >= lower && v <= upper, nil
}

func equals(value, operand any) bool {
	// Numbers of different Go types still compare equal numerically.
	if v, ok := toFloat(value); ok {
		if o, okOperand := toFloat(operand); okOperand {
			return v == o
		}

		return false
	}

	// JSON objects and arrays are not ==-comparable; comparing them would
	// panic the invocation.
	if !isComparable(value) || !isComparable(operand) {
		return reflect.DeepEqual(value, operand)
	}

	return value == operand
}

func isComparable(value any) bool {
	return value == nil || reflect.TypeOf(value).Comparable()
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
