package score

import (
	"encoding/json"
	"io"
	"testing"

	"go.uber.org/zap"

	"github.com/trustchain-labs/trustchain/internal/ledger"
	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

// A rule set that drives the total below zero proves the range check halts:
// the default rules cannot reach it, so the breach is injected.
func TestScore_outOfRangeHalts(t *testing.T) {
	sink := &ledger.MemorySink{}
	led := ledger.New(ledger.Config{Sink: sink, Stream: io.Discard}, nil)

	eng := &Engine{
		ledger: led,
		logger: zap.NewNop(),
		rules: []signalRule{
			func(receipt.Signals) int { return -200 },
		},
	}

	got, err := eng.Score(receipt.Receipt{})
	if err == nil {
		t.Fatal("out-of-range score did not halt")
	}
	if !ledger.IsHalt(err) {
		t.Errorf("error does not carry the halt signal: %v", err)
	}
	if got != 0 {
		t.Errorf("halted score = %d, want 0", got)
	}

	if sink.Len() != 1 {
		t.Fatalf("sink captured %d lines, want 1 anomaly", sink.Len())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(sink.Last()), &rec); err != nil {
		t.Fatalf("anomaly line not valid JSON: %v", err)
	}
	if rec["receipt_type"] != "anomaly" || rec["metric"] != "trust_score_range" {
		t.Errorf("anomaly record wrong: %v", rec)
	}
	if rec["classification"] != ledger.ClassViolation || rec["action"] != ledger.ActionHalt {
		t.Errorf("anomaly severity wrong: %v", rec)
	}
	if rec["actual"].(float64) != -150 {
		t.Errorf("actual = %v, want the breached total", rec["actual"])
	}
}
