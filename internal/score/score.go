// Package score computes the deterministic 0-100 trust score of a decision
// receipt and classifies it into the three-way trust level.
//
// Scoring is weighted-additive over the signals extracted from the receipt:
// every receipt starts at the base value and earns points for corroborating
// sources, an accountable approver, stated confidence, and validation flags.
// The same receipt always yields the same score.
package score

import (
	"go.uber.org/zap"

	"github.com/trustchain-labs/trustchain/internal/ledger"
	"github.com/trustchain-labs/trustchain/internal/metrics"
	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

// Score bounds. BaseScore is what a receipt with no recognized fields earns.
const (
	BaseScore = 50
	MaxScore  = 100
)

// Level is the three-way classification of a trust score.
type Level string

const (
	LevelGreen  Level = "GREEN"
	LevelYellow Level = "YELLOW"
	LevelRed    Level = "RED"
)

// LevelFor maps a score to its level: GREEN at 85 and above, YELLOW from 60
// through 84, RED below 60.
func LevelFor(score int) Level {
	switch {
	case score >= 85:
		return LevelGreen
	case score >= 60:
		return LevelYellow
	default:
		return LevelRed
	}
}

// Engine scores receipts and records the evidence trail. Violation and
// anomaly records go through the ledger; the engine never scores silently.
type Engine struct {
	ledger *ledger.Ledger
	logger *zap.Logger
	rules  []signalRule
}

// New creates an Engine bound to a ledger. A nil logger is replaced with a
// no-op logger.
func New(led *ledger.Ledger, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger: led,
		logger: logger,
		rules:  defaultRules,
	}
}

// Score computes the trust score of one receipt.
//
// The range check after the cap is defensive: today's rules cannot leave
// [0,100], but future signal additions might. An out-of-range score is a
// programming invariant violation, not a valid output. It emits an anomaly
// record and returns the halt signal, which callers must propagate.
func (e *Engine) Score(r receipt.Receipt) (int, error) {
	sig := receipt.ExtractSignals(r)
	total := scoreWith(e.rules, sig)

	if total < 0 || total > MaxScore {
		if _, err := e.ledger.EmitAnomaly(
			"trust_score_range",
			float64(BaseScore),
			float64(total),
			ledger.ClassViolation,
			ledger.ActionHalt,
		); err != nil {
			e.logger.Error("failed to emit range anomaly", zap.Error(err))
		}
		return 0, ledger.Haltf("trust score %d outside [0,%d]", total, MaxScore)
	}

	e.logger.Debug("trust score computed",
		zap.Int("score", total),
		zap.String("level", string(LevelFor(total))),
		zap.Int("source_count", sig.SourceCount),
		zap.Bool("human_verified", sig.HumanVerified),
	)
	metrics.RecordScore(total, string(LevelFor(total)))
	return total, nil
}

// EmitTrustReceipt records a computed score on the ledger, carrying the
// source receipt's fingerprint, the extracted signals, and the two renderer
// summary lines, so downstream consumers never re-derive extraction.
func (e *Engine) EmitTrustReceipt(r receipt.Receipt, total int, summaryLine1, summaryLine2 string) (ledger.Record, error) {
	fp, err := receiptFingerprint(r)
	if err != nil {
		return nil, err
	}

	sig := receipt.ExtractSignals(r)
	var approver any
	if sig.HasApprover {
		approver = sig.Approver
	}
	var confidence any
	if sig.HasConfidence {
		confidence = sig.Confidence
	}

	return e.ledger.Emit("trustchain_trust_score", map[string]any{
		"source_receipt_hash": fp,
		"trust_score":         total,
		"trust_level":         string(LevelFor(total)),
		"source_count":        sig.SourceCount,
		"approver":            approver,
		"confidence":          confidence,
		"monte_carlo_passed":  sig.MonteCarlo,
		"human_verified":      sig.HumanVerified,
		"summary_line_1":      summaryLine1,
		"summary_line_2":      summaryLine2,
	})
}
