package sim

import (
	"github.com/trustchain-labs/trustchain/internal/score"
	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

// expectedLevel is the accuracy oracle: the level a synthetic receipt should
// earn, computed from the generator's ground-truth signals.
//
// It deliberately runs the production weighting (score.ScoreSignals) rather
// than a re-stated copy of the thresholds. What the oracle then grades is the
// extraction path: a receipt scores "correctly" when reading its fields back
// recovers the signals the generator put in.
func expectedLevel(truth receipt.Signals) score.Level {
	return score.LevelFor(score.ScoreSignals(truth))
}
