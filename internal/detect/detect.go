// Package detect runs the statistical checks layered over trust scoring:
// per-score anomaly detection against a score history, and disparity checks
// across score groups. Both are report-only; they emit records and never
// halt anything.
package detect

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/trustchain-labs/trustchain/internal/ledger"
)

const (
	// minHistory is the fewest historical scores the anomaly check needs.
	// Below it the check abstains rather than guessing variance.
	minHistory = 10

	// anomalySigma is the z-score bound; deviations beyond it flag.
	anomalySigma = 2.0

	// BiasThreshold is the disparity at and above which a bias record is
	// emitted. Disparity is normalized to the score's 0-100 range, so 0.005
	// is half a point of mean difference between groups.
	BiasThreshold = 0.005
)

// Detector evaluates scores against history and groups, recording findings
// on the ledger.
type Detector struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// New creates a Detector. A nil logger is replaced with a no-op logger.
func New(led *ledger.Ledger, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{ledger: led, logger: logger}
}

// Anomaly reports whether score deviates more than two sample standard
// deviations from the mean of history. Histories shorter than ten scores and
// zero-variance histories never flag. On a flag it emits an anomaly record
// (deviation/alert) and still returns normally.
func (d *Detector) Anomaly(score int, history []int) (bool, error) {
	if len(history) < minHistory {
		return false, nil
	}

	data := make([]float64, len(history))
	for i, s := range history {
		data[i] = float64(s)
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return false, err
	}
	stdev, err := stats.StandardDeviationSample(data)
	if err != nil {
		return false, err
	}
	if stdev == 0 {
		return false, nil
	}

	z := math.Abs(float64(score)-mean) / stdev
	if z <= anomalySigma {
		return false, nil
	}

	// Two-sided p-value is diagnostic context only; the record schema is fixed.
	p := 2 * (1 - distuv.UnitNormal.CDF(z))
	d.logger.Debug("trust score deviates from history",
		zap.Int("score", score),
		zap.Float64("mean", mean),
		zap.Float64("z", z),
		zap.Float64("p_value", p),
	)

	if _, err := d.ledger.EmitAnomaly("trust_score", mean, float64(score), ledger.ClassDeviation, ledger.ActionAlert); err != nil {
		return true, err
	}
	return true, nil
}

// Bias computes the disparity between group mean scores, normalized to the
// 0-100 score range. Fewer than two non-empty groups yields zero. At or
// above BiasThreshold it emits a bias record (alert); the disparity is
// returned either way.
func (d *Detector) Bias(scoresByGroup map[string][]int) (float64, error) {
	if len(scoresByGroup) < 2 {
		return 0, nil
	}

	names := make([]string, 0, len(scoresByGroup))
	means := make([]float64, 0, len(scoresByGroup))
	for _, name := range sortedKeys(scoresByGroup) {
		group := scoresByGroup[name]
		if len(group) == 0 {
			continue
		}
		data := make([]float64, len(group))
		for i, s := range group {
			data[i] = float64(s)
		}
		mean, err := stats.Mean(data)
		if err != nil {
			return 0, err
		}
		names = append(names, name)
		means = append(means, mean)
	}
	if len(means) < 2 {
		return 0, nil
	}

	maxMean, err := stats.Max(means)
	if err != nil {
		return 0, err
	}
	minMean, err := stats.Min(means)
	if err != nil {
		return 0, err
	}

	disparity := (maxMean - minMean) / 100.0
	if disparity >= BiasThreshold {
		if _, err := d.ledger.EmitBias(names, disparity, BiasThreshold, ledger.MitigationAlert); err != nil {
			return disparity, err
		}
	}
	return disparity, nil
}

// sortedKeys keeps emitted group lists deterministic across runs.
func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
