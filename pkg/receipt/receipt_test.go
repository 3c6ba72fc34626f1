package receipt_test

import (
	"reflect"
	"testing"

	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

func TestParse(t *testing.T) {
	r, err := receipt.Parse([]byte(`{"decision_id":"d-1","confidence":0.9}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r["decision_id"] != "d-1" {
		t.Errorf("decision_id = %v", r["decision_id"])
	}

	if _, err := receipt.Parse([]byte(`{not json`)); err == nil {
		t.Error("Parse accepted malformed JSON")
	}
	if _, err := receipt.Parse([]byte(`[1,2,3]`)); err == nil {
		t.Error("Parse accepted a non-object document")
	}
}

func TestPayload(t *testing.T) {
	r := receipt.Receipt{"payload": map[string]any{"a": 1}}
	if p := r.Payload(); p == nil || p["a"] != 1 {
		t.Errorf("Payload = %v", p)
	}

	if (receipt.Receipt{}).Payload() != nil {
		t.Error("missing payload should be nil")
	}
	if (receipt.Receipt{"payload": "string"}).Payload() != nil {
		t.Error("non-object payload should be nil")
	}
}

func TestSourceCount(t *testing.T) {
	cases := []struct {
		name string
		r    receipt.Receipt
		want int
	}{
		{"explicit count", receipt.Receipt{"source_count": float64(4)}, 4},
		{"sources list", receipt.Receipt{"sources": []any{"a", "b"}}, 2},
		{"count beats list", receipt.Receipt{"source_count": float64(7), "sources": []any{"a"}}, 7},
		{"payload count", receipt.Receipt{"payload": map[string]any{"source_count": float64(3)}}, 3},
		{"payload sources", receipt.Receipt{"payload": map[string]any{"sources": []any{"a", "b", "c"}}}, 3},
		{"top level beats payload", receipt.Receipt{
			"sources": []any{"a"},
			"payload": map[string]any{"source_count": float64(9)},
		}, 1},
		{"fractional count skipped", receipt.Receipt{
			"source_count": 2.7,
			"sources":      []any{"a", "b"},
		}, 2},
		{"non-list sources skipped", receipt.Receipt{
			"sources": "many",
			"payload": map[string]any{"sources": []any{"a"}},
		}, 1},
		{"empty sources list counts", receipt.Receipt{
			"sources": []any{},
			"payload": map[string]any{"source_count": float64(5)},
		}, 0},
		{"absent", receipt.Receipt{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.r.SourceCount(); got != tc.want {
				t.Errorf("SourceCount = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestApproverName(t *testing.T) {
	cases := []struct {
		name    string
		r       receipt.Receipt
		want    string
		wantHit bool
	}{
		{"approver field", receipt.Receipt{"approver": "CPT Reyes"}, "CPT Reyes", true},
		{"raci accountable", receipt.Receipt{"raci": map[string]any{"accountable": "MAJ Cole"}}, "MAJ Cole", true},
		{"approver beats raci", receipt.Receipt{
			"approver": "CPT Reyes",
			"raci":     map[string]any{"accountable": "MAJ Cole"},
		}, "CPT Reyes", true},
		{"payload approver", receipt.Receipt{"payload": map[string]any{"approver": "LT Park"}}, "LT Park", true},
		{"payload raci", receipt.Receipt{"payload": map[string]any{"raci": map[string]any{"accountable": "LT Park"}}}, "LT Park", true},
		{"empty string skipped", receipt.Receipt{
			"approver": "",
			"raci":     map[string]any{"accountable": "MAJ Cole"},
		}, "MAJ Cole", true},
		{"non-string skipped", receipt.Receipt{"approver": float64(7)}, "", false},
		{"raci without accountable", receipt.Receipt{"raci": map[string]any{"responsible": "SGT Kim"}}, "", false},
		{"absent", receipt.Receipt{}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, hit := tc.r.ApproverName()
			if got != tc.want || hit != tc.wantHit {
				t.Errorf("ApproverName = (%q, %v), want (%q, %v)", got, hit, tc.want, tc.wantHit)
			}
		})
	}
}

func TestRACIComplete(t *testing.T) {
	if !(receipt.Receipt{"raci": map[string]any{"accountable": "CPT Reyes"}}).RACIComplete() {
		t.Error("accountable role present, want complete")
	}
	if !(receipt.Receipt{"payload": map[string]any{"raci": map[string]any{"accountable": "CPT Reyes"}}}).RACIComplete() {
		t.Error("payload accountable role present, want complete")
	}
	if (receipt.Receipt{"raci": map[string]any{"responsible": "SGT Kim"}}).RACIComplete() {
		t.Error("missing accountable role, want incomplete")
	}
	if (receipt.Receipt{"approver": "CPT Reyes"}).RACIComplete() {
		t.Error("approver without raci chain, want incomplete")
	}
}

func TestConfidenceValue(t *testing.T) {
	cases := []struct {
		name    string
		r       receipt.Receipt
		want    float64
		wantHit bool
	}{
		{"fraction", receipt.Receipt{"confidence": 0.85}, 0.85, true},
		{"zero", receipt.Receipt{"confidence": float64(0)}, 0, true},
		{"one", receipt.Receipt{"confidence": float64(1)}, 1, true},
		{"percentage", receipt.Receipt{"confidence": float64(85)}, 0.85, true},
		{"hundred percent", receipt.Receipt{"confidence": float64(100)}, 1.0, true},
		{"over range", receipt.Receipt{"confidence": float64(150)}, 0, false},
		{"negative", receipt.Receipt{"confidence": -0.2}, 0, false},
		{"non-numeric", receipt.Receipt{"confidence": "high"}, 0, false},
		{"payload fallback", receipt.Receipt{"payload": map[string]any{"confidence": 0.6}}, 0.6, true},
		{"absent", receipt.Receipt{}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, hit := tc.r.ConfidenceValue()
			if got != tc.want || hit != tc.wantHit {
				t.Errorf("ConfidenceValue = (%v, %v), want (%v, %v)", got, hit, tc.want, tc.wantHit)
			}
		})
	}
}

func TestValidationFlags(t *testing.T) {
	cases := []struct {
		name  string
		r     receipt.Receipt
		mc    bool
		human bool
	}{
		{"canonical names", receipt.Receipt{
			"monte_carlo_validated": true,
			"human_verified":        true,
		}, true, true},
		{"aliases", receipt.Receipt{
			"monte_carlo_passed": true,
			"human_approved":     true,
		}, true, true},
		{"simulation alias", receipt.Receipt{"simulation_validated": "yes"}, true, false},
		{"numeric flag", receipt.Receipt{"monte_carlo_passed": float64(1)}, true, false},
		{"intervention receipt object", receipt.Receipt{
			"intervention_receipt": map[string]any{"operator": "LT Park"},
		}, false, true},
		{"empty intervention object unset", receipt.Receipt{
			"intervention_receipt": map[string]any{},
		}, false, false},
		{"false does not mask later alias", receipt.Receipt{
			"monte_carlo_validated": false,
			"monte_carlo_passed":    true,
		}, true, false},
		{"payload flags", receipt.Receipt{"payload": map[string]any{
			"monte_carlo_validated": true,
			"human_verified":        true,
		}}, true, true},
		{"explicit false", receipt.Receipt{
			"monte_carlo_validated": false,
			"human_verified":        false,
		}, false, false},
		{"absent", receipt.Receipt{}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.r.MonteCarloValidated(); got != tc.mc {
				t.Errorf("MonteCarloValidated = %v, want %v", got, tc.mc)
			}
			if got := tc.r.HumanVerified(); got != tc.human {
				t.Errorf("HumanVerified = %v, want %v", got, tc.human)
			}
		})
	}
}

func TestExtractSignals(t *testing.T) {
	r := receipt.Receipt{
		"decision_id":           "d-42",
		"sources":               []any{"intel_a", "intel_b", "intel_c", "intel_d", "intel_e"},
		"raci":                  map[string]any{"accountable": "CPT Reyes"},
		"confidence":            0.92,
		"monte_carlo_validated": true,
		"human_verified":        true,
	}

	got := receipt.ExtractSignals(r)
	want := receipt.Signals{
		SourceCount:   5,
		Approver:      "CPT Reyes",
		HasApprover:   true,
		RACIComplete:  true,
		Confidence:    0.92,
		HasConfidence: true,
		MonteCarlo:    true,
		HumanVerified: true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractSignals = %+v, want %+v", got, want)
	}
}

func TestExtractSignals_empty(t *testing.T) {
	if got := receipt.ExtractSignals(receipt.Receipt{}); !reflect.DeepEqual(got, receipt.Signals{}) {
		t.Errorf("empty receipt signals = %+v, want zero value", got)
	}
}
