package sim

import (
	"fmt"
	"math/rand"

	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

var approverNames = []string{"Smith", "Jones", "Anderson", "Wilson"}

// synthReceipt generates one candidate receipt from its own seed, so any
// receipt in any run can be regenerated in isolation. It returns the receipt,
// the ground-truth signals that went into it, and false when the candidate is
// a malformed placeholder instead.
//
// The population is shaped like production traffic: most receipts name an
// accountable approver and a confidence, a minority carry validation flags.
func synthReceipt(seed int64, malformedRate float64) (receipt.Receipt, receipt.Signals, bool) {
	rng := rand.New(rand.NewSource(seed))

	if rng.Float64() < malformedRate {
		return nil, receipt.Signals{}, false
	}

	sourceCount := rng.Intn(9)
	sources := make([]any, sourceCount)
	for i := range sources {
		sources[i] = fmt.Sprintf("source_%d", i)
	}

	hasApprover := rng.Float64() > 0.3
	var approver string
	if hasApprover {
		approver = "CPT " + approverNames[rng.Intn(len(approverNames))]
	}

	hasConfidence := rng.Float64() > 0.1
	var confidence float64
	if hasConfidence {
		confidence = 0.3 + rng.Float64()*0.7
	}

	monteCarlo := rng.Float64() > 0.6
	humanVerified := rng.Float64() > 0.7

	rcpt := receipt.Receipt{
		"receipt_type":          "decision",
		"ts":                    fmt.Sprintf("2025-01-04T%02d:%02d:00Z", rng.Intn(24), rng.Intn(60)),
		"tenant_id":             "default",
		"decision_id":           fmt.Sprintf("decision_%d", seed),
		"sources":               sources,
		"monte_carlo_validated": monteCarlo,
		"human_verified":        humanVerified,
	}
	if hasApprover {
		rcpt["raci"] = map[string]any{"accountable": approver}
	}
	if hasConfidence {
		rcpt["confidence"] = confidence
	}

	truth := receipt.Signals{
		SourceCount:   sourceCount,
		Approver:      approver,
		HasApprover:   hasApprover,
		RACIComplete:  hasApprover,
		Confidence:    confidence,
		HasConfidence: hasConfidence,
		MonteCarlo:    monteCarlo,
		HumanVerified: humanVerified,
	}
	return rcpt, truth, true
}
