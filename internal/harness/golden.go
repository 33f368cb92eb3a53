package harness

import (
	"regexp"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/storypage/internal/docstore"
	"github.com/roach88/storypage/internal/entitlement"
	"github.com/roach88/storypage/internal/history"
)

// uuidPattern matches the random object names the blob store generates.
var uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// Snapshot renders a result as canonical JSON. Object names are replaced
// with "<uuid>" so the output is stable across runs.
func Snapshot(name string, result *Result) ([]byte, error) {
	steps := make([]any, len(result.Steps))
	for i, s := range result.Steps {
		steps[i] = map[string]any{"op": s.Op, "at": s.At, "result": s.Result}
	}

	snap := map[string]any{
		"scenario_name": name,
		"created":       result.Created,
		"steps":         steps,
		"now":           result.Now,
		"uploads":       result.Uploads,
	}
	if result.Created {
		snap["order_id"] = OrderID
		snap["record"] = redact(map[string]any(result.Fields))
		snap["history"] = historyMaps(result.History)
		snap["entitlements"] = map[string]any{
			"text":  kindMap(result.Entitlements.Text),
			"image": kindMap(result.Entitlements.Image),
		}
		snap["expired"] = result.Expired
	}
	return docstore.MarshalCanonical(snap)
}

func redact(v any) any {
	switch val := v.(type) {
	case string:
		return uuidPattern.ReplaceAllString(val, "<uuid>")
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = redact(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = redact(elem)
		}
		return out
	default:
		return val
	}
}

func historyMaps(events []history.Event) []any {
	out := make([]any, len(events))
	for i, e := range events {
		m := map[string]any{
			"kind":         string(e.Kind),
			"label":        e.Label,
			"detail":       e.Detail,
			"requested_at": e.RequestedAt,
		}
		if e.Resolved() {
			m["resolved_at"] = e.ResolvedAt
		}
		out[i] = m
	}
	return out
}

func kindMap(k entitlement.Kind) map[string]any {
	return map[string]any{
		"used":            k.Used,
		"free_quota":      k.FreeQuota,
		"free_remaining":  k.FreeRemaining,
		"can_free_edit":   k.CanFreeEdit,
		"payment_status":  k.PaymentStatus,
		"payment_pending": k.PaymentPending,
		"paid_unlocked":   k.PaidUnlocked,
		"paid_edit_price": k.PaidEditPrice,
	}
}

// RunWithGolden executes a scenario, fails t on any scenario error, and
// compares the snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
