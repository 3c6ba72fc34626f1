// Package render formats trust results into the operator-facing traffic
// light panel.
//
// Panels are plain language by contract: the two-line summary must stay at
// or under fifty words and must never leak integrity vocabulary (digest
// names, fingerprint keys) to operators. Both constraints are enforced after
// every render; a violation emits an anomaly record and returns the halt
// signal, because a panel that leaks is a defect, not a display choice.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trustchain-labs/trustchain/internal/ledger"
	"github.com/trustchain-labs/trustchain/internal/score"
	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

// ForbiddenTerms must not appear anywhere in a rendered summary. The list is
// exported so the watchdog can scan sample output with the same vocabulary.
var ForbiddenTerms = []string{"sha256", "blake2", "merkle", "hash", "dual_hash", "payload_hash"}

// wordLimit caps the two-line summary.
const wordLimit = 50

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// Renderer builds traffic light panels and records its own constraint
// violations on the ledger.
type Renderer struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// New creates a Renderer. A nil logger is replaced with a no-op logger.
func New(led *ledger.Ledger, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{ledger: led, logger: logger}
}

// Emblem returns the emoji pair for a score.
func Emblem(total int) string {
	switch {
	case total >= 85:
		return "✅ 🟢"
	case total >= 60:
		return "⚠️ 🟡"
	default:
		return "❌ 🔴"
	}
}

// ColorCode returns the ANSI color for a score's level.
func ColorCode(total int) string {
	switch {
	case total >= 85:
		return "\033[92m"
	case total >= 60:
		return "\033[93m"
	default:
		return "\033[91m"
	}
}

// Compact renders the one-line form: emblem, level, score.
func Compact(total int) string {
	return fmt.Sprintf("%s %s (%d/100)", Emblem(total), score.LevelFor(total), total)
}

// Summary builds the two summary lines from a receipt's extracted signals.
func Summary(r receipt.Receipt) (string, string) {
	sig := receipt.ExtractSignals(r)

	sourceText := fmt.Sprintf("%d sources", sig.SourceCount)
	if sig.SourceCount == 1 {
		sourceText = "1 source"
	}

	approverText := "no approver assigned"
	if sig.HasApprover {
		approverText = sig.Approver + " approved"
	}

	confidenceText := "confidence unknown"
	if sig.HasConfidence {
		confidenceText = fmt.Sprintf("%d%% confidence", int(sig.Confidence*100))
	}

	line1 := fmt.Sprintf("AI checked %s, %s, %s.", sourceText, approverText, confidenceText)

	var line2 string
	switch {
	case sig.MonteCarlo && sig.HumanVerified:
		line2 = "Validated across scenarios and human-verified."
	case sig.MonteCarlo:
		line2 = "Validated across simulation scenarios."
	case sig.HumanVerified:
		line2 = "Human-verified decision."
	default:
		line2 = "Automated decision (unvalidated)."
	}
	return line1, line2
}

// Panel renders the full traffic light display for a scored receipt.
func (rd *Renderer) Panel(total int, r receipt.Receipt) (string, error) {
	line1, line2 := Summary(r)

	out := fmt.Sprintf(`%s
%s TRUST STATUS: %s

%s
%s

Trust Score: %d/100
[View Full Receipt] ← Auditor drill-down
%s`, rule, Emblem(total), score.LevelFor(total), line1, line2, total, rule)

	if err := rd.validateSummary(line1, line2); err != nil {
		return "", err
	}
	return out, nil
}

// PanelWithReceipt renders the panel and, when asked, the receipt itself with
// internal underscore-prefixed fields stripped.
func (rd *Renderer) PanelWithReceipt(total int, r receipt.Receipt, showReceipt bool) (string, error) {
	out, err := rd.Panel(total, r)
	if err != nil {
		return "", err
	}
	if !showReceipt {
		return out, nil
	}

	display := make(map[string]any, len(r))
	for k, v := range r {
		if strings.HasPrefix(k, "_") {
			continue
		}
		display[k] = v
	}
	pretty, err := json.MarshalIndent(display, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return out + "\n\n📋 Full Receipt:\n" + string(pretty), nil
}

// validateSummary enforces the word cap and the vocabulary constraint.
// Violations emit their anomaly record before the halt signal returns, so
// the audit trail holds the evidence.
func (rd *Renderer) validateSummary(line1, line2 string) error {
	summary := line1 + " " + line2

	if n := len(strings.Fields(summary)); n > wordLimit {
		if _, err := rd.ledger.EmitAnomaly("summary_word_count", wordLimit, float64(n), ledger.ClassViolation, ledger.ActionHalt); err != nil {
			rd.logger.Error("failed to emit word count anomaly", zap.Error(err))
		}
		return ledger.Haltf("summary word count %d exceeds %d", n, wordLimit)
	}

	lower := strings.ToLower(summary)
	for _, term := range ForbiddenTerms {
		if strings.Contains(lower, term) {
			if _, err := rd.ledger.EmitAnomaly("crypto_in_summary", 0, 1, ledger.ClassViolation, ledger.ActionHalt); err != nil {
				rd.logger.Error("failed to emit vocabulary anomaly", zap.Error(err))
			}
			return ledger.Haltf("term %q is forbidden in operator display", term)
		}
	}
	return nil
}
