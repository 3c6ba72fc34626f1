package score

import (
	"github.com/trustchain-labs/trustchain/internal/fingerprint"
	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

// signalRule awards points for one extracted signal.
type signalRule func(receipt.Signals) int

// defaultRules is the production weighting. ScoreSignals and Engine.Score
// both run exactly this set, so anything grading the engine against expected
// scores (the simulation oracle) computes them through the same weights.
var defaultRules = []signalRule{
	ruleSources,
	ruleApprover,
	ruleRACIChain,
	ruleConfidence,
	ruleMonteCarlo,
	ruleHumanVerified,
}

// ScoreSignals runs the default weighting over already-extracted signals and
// applies the cap. It is the pure core of Engine.Score, exported for callers
// that know a receipt's signals without holding the receipt.
func ScoreSignals(sig receipt.Signals) int {
	return scoreWith(defaultRules, sig)
}

func scoreWith(rules []signalRule, sig receipt.Signals) int {
	total := BaseScore
	for _, rule := range rules {
		total += rule(sig)
	}
	if total > MaxScore {
		total = MaxScore
	}
	return total
}

// ruleSources rewards corroboration. Five or more independent sources is
// strong evidence; a single source barely moves the needle.
func ruleSources(sig receipt.Signals) int {
	switch {
	case sig.SourceCount >= 5:
		return 20
	case sig.SourceCount >= 3:
		return 10
	case sig.SourceCount >= 1:
		return 5
	}
	return 0
}

func ruleApprover(sig receipt.Signals) int {
	if sig.HasApprover {
		return 15
	}
	return 0
}

// ruleRACIChain awards the completeness bonus only on top of an approver.
func ruleRACIChain(sig receipt.Signals) int {
	if sig.HasApprover && sig.RACIComplete {
		return 10
	}
	return 0
}

func ruleConfidence(sig receipt.Signals) int {
	if !sig.HasConfidence {
		return 0
	}
	switch {
	case sig.Confidence >= 0.90:
		return 20
	case sig.Confidence >= 0.75:
		return 10
	case sig.Confidence >= 0.50:
		return 5
	}
	return 0
}

func ruleMonteCarlo(sig receipt.Signals) int {
	if sig.MonteCarlo {
		return 15
	}
	return 0
}

func ruleHumanVerified(sig receipt.Signals) int {
	if sig.HumanVerified {
		return 20
	}
	return 0
}

// receiptFingerprint dual-hashes the canonical bytes of the source receipt.
func receiptFingerprint(r receipt.Receipt) (string, error) {
	b, err := fingerprint.Canonical(map[string]any(r))
	if err != nil {
		return "", err
	}
	return fingerprint.Sum(b), nil
}
