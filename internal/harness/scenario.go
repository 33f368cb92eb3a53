package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storypage/internal/order"
)

// Scenario defines one lifecycle test.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// TierFile optionally replaces the embedded tier table. Relative paths
	// are resolved against the scenario file.
	TierFile string `yaml:"tier_file,omitempty"`

	// Start is the clock reading when the order is created (RFC 3339).
	Start string `yaml:"start"`

	// Order is the checkout submission.
	Order Checkout `yaml:"order"`

	// Steps run in order after the order is created.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Checkout describes the order submission. Files are synthesized: one payment
// slip unless NoSlip, and Images content images.
type Checkout struct {
	Tier         string        `yaml:"tier"`
	Template     string        `yaml:"template"`
	Content      order.Content `yaml:"content"`
	CustomDomain string        `yaml:"custom_domain,omitempty"`
	Images       int           `yaml:"images,omitempty"`
	NoSlip       bool          `yaml:"no_slip,omitempty"`
	ExpectError  string        `yaml:"expect_error,omitempty"`
}

// Step is one engine operation.
type Step struct {
	// Op names the operation; see the Op constants.
	Op string `yaml:"op"`

	// At sets the clock before the step (RFC 3339). Advance moves it by a
	// Go duration instead. At most one may be set.
	At      string `yaml:"at,omitempty"`
	Advance string `yaml:"advance,omitempty"`

	Days        int                   `yaml:"days,omitempty"`
	SpecialLink bool                  `yaml:"special_link,omitempty"`
	Kind        string                `yaml:"kind,omitempty"`
	Domain      string                `yaml:"domain,omitempty"`
	Message     string                `yaml:"message,omitempty"`
	SignOff     string                `yaml:"sign_off,omitempty"`
	TargetName  string                `yaml:"target_name,omitempty"`
	PIN         string                `yaml:"pin,omitempty"`
	Timeline    []order.TimelineEntry `yaml:"timeline,omitempty"`
	Images      int                   `yaml:"images,omitempty"`
	NoSlip      bool                  `yaml:"no_slip,omitempty"`

	// ExpectError is the validation code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpApprove          = "approve"
	OpReject           = "reject"
	OpRequestExtension = "request_extension"
	OpApproveExtension = "approve_extension"
	OpRejectExtension  = "reject_extension"
	OpEditText         = "edit_text"
	OpEditTimeline     = "edit_timeline"
	OpEditImages       = "edit_images"
	OpRequestPaidEdit  = "request_paid_edit"
	OpApprovePaidEdit  = "approve_paid_edit"
	OpRejectPaidEdit   = "reject_paid_edit"
	OpAssignDomain     = "assign_domain"
)

var knownOps = map[string]bool{
	OpApprove: true, OpReject: true,
	OpRequestExtension: true, OpApproveExtension: true, OpRejectExtension: true,
	OpEditText: true, OpEditTimeline: true, OpEditImages: true,
	OpRequestPaidEdit: true, OpApprovePaidEdit: true, OpRejectPaidEdit: true,
	OpAssignDomain: true,
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Field and Equals check one stored field (field). Absent asserts the
	// field is not stored.
	Field  string `yaml:"field,omitempty"`
	Equals any    `yaml:"equals,omitempty"`
	Absent bool   `yaml:"absent,omitempty"`

	// Count is the expected number of history events (history_count).
	Count int `yaml:"count,omitempty"`

	// Index, Kind, and Label check one history event (history). Kind also
	// selects the edit kind for entitlement.
	Index int    `yaml:"index,omitempty"`
	Kind  string `yaml:"kind,omitempty"`
	Label string `yaml:"label,omitempty"`

	// Entitlement checks; nil means unchecked.
	FreeRemaining *int   `yaml:"free_remaining,omitempty"`
	CanFreeEdit   *bool  `yaml:"can_free_edit,omitempty"`
	PaymentStatus string `yaml:"payment_status,omitempty"`

	// Expired checks the expiry at the final clock reading (expired).
	Expired *bool `yaml:"expired,omitempty"`
}

// Assertion type constants.
const (
	AssertField        = "field"
	AssertHistoryCount = "history_count"
	AssertHistory      = "history"
	AssertEntitlement  = "entitlement"
	AssertExpired      = "expired"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.TierFile != "" && !filepath.IsAbs(s.TierFile) {
		s.TierFile = filepath.Join(filepath.Dir(path), s.TierFile)
	}
	return s, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Start == "" {
		return fmt.Errorf("start is required")
	}
	if _, err := time.Parse(time.RFC3339, s.Start); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if s.Order.Tier == "" {
		return fmt.Errorf("order.tier is required")
	}

	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.At != "" && step.Advance != "" {
			return fmt.Errorf("steps[%d]: at and advance are exclusive", i)
		}
		if step.At != "" {
			if _, err := time.Parse(time.RFC3339, step.At); err != nil {
				return fmt.Errorf("steps[%d].at: %w", i, err)
			}
		}
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("steps[%d].advance: %w", i, err)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertField:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for field", index)
		}
		if a.Equals == nil && !a.Absent {
			return fmt.Errorf("assertions[%d]: equals or absent is required for field", index)
		}
	case AssertHistoryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertHistory:
		if a.Kind == "" && a.Label == "" {
			return fmt.Errorf("assertions[%d]: kind or label is required for history", index)
		}
	case AssertEntitlement:
		if _, err := order.ParseEditKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertExpired:
		if a.Expired == nil {
			return fmt.Errorf("assertions[%d]: expired is required", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
