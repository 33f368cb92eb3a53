package harness

import (
	"fmt"
	"reflect"
	"time"

	"github.com/roach88/storypage/internal/docstore"
	"github.com/roach88/storypage/internal/order"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func evaluate(a Assertion, result *Result) error {
	if !result.Created && a.Type != AssertHistoryCount {
		return &AssertionError{Type: a.Type, Expected: "a created order", Actual: "no order"}
	}

	switch a.Type {
	case AssertField:
		return assertField(a, result.Fields)
	case AssertHistoryCount:
		if len(result.History) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d events", a.Count),
				Actual:   fmt.Sprintf("%d events", len(result.History)),
			}
		}
		return nil
	case AssertHistory:
		return assertHistory(a, result)
	case AssertEntitlement:
		return assertEntitlement(a, result)
	case AssertExpired:
		if result.Expired != *a.Expired {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("expired=%t", *a.Expired),
				Actual:   fmt.Sprintf("expired=%t", result.Expired),
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertField(a Assertion, fields docstore.Fields) error {
	got, ok := fields[a.Field]
	if a.Absent {
		if ok {
			return &AssertionError{Type: a.Type, Expected: a.Field + " absent", Actual: fmt.Sprintf("%v", got)}
		}
		return nil
	}
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s=%v", a.Field, a.Equals), Actual: "absent"}
	}
	want := normalize(a.Equals)
	if !reflect.DeepEqual(normalize(got), want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s=%v", a.Field, want),
			Actual:   fmt.Sprintf("%s=%v", a.Field, got),
		}
	}
	return nil
}

// normalize brings YAML-decoded and store-decoded values to one shape:
// integers as int64, instants as stored strings.
func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case uint64:
		return int64(val)
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case time.Time:
		return val.UTC().Format(docstore.TimeFormat)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalize(elem)
		}
		return out
	default:
		return val
	}
}

func assertHistory(a Assertion, result *Result) error {
	if a.Index < 0 || a.Index >= len(result.History) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("event at index %d", a.Index),
			Actual:   fmt.Sprintf("%d events", len(result.History)),
		}
	}
	e := result.History[a.Index]
	if a.Kind != "" && string(e.Kind) != a.Kind {
		return &AssertionError{Type: a.Type, Expected: "kind " + a.Kind, Actual: "kind " + string(e.Kind)}
	}
	if a.Label != "" && e.Label != a.Label {
		return &AssertionError{Type: a.Type, Expected: "label " + a.Label, Actual: "label " + e.Label}
	}
	return nil
}

func assertEntitlement(a Assertion, result *Result) error {
	kind, err := order.ParseEditKind(a.Kind)
	if err != nil {
		return err
	}
	k := result.Entitlements.For(kind)

	if a.FreeRemaining != nil && k.FreeRemaining != *a.FreeRemaining {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s free_remaining=%d", kind, *a.FreeRemaining),
			Actual:   fmt.Sprintf("%s free_remaining=%d", kind, k.FreeRemaining),
		}
	}
	if a.CanFreeEdit != nil && k.CanFreeEdit != *a.CanFreeEdit {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s can_free_edit=%t", kind, *a.CanFreeEdit),
			Actual:   fmt.Sprintf("%s can_free_edit=%t", kind, k.CanFreeEdit),
		}
	}
	if a.PaymentStatus != "" && k.PaymentStatus != a.PaymentStatus {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s payment_status=%s", kind, a.PaymentStatus),
			Actual:   fmt.Sprintf("%s payment_status=%s", kind, k.PaymentStatus),
		}
	}
	return nil
}
