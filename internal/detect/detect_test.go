package detect_test

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustchain-labs/trustchain/internal/detect"
	"github.com/trustchain-labs/trustchain/internal/ledger"
)

func newTestDetector(t *testing.T) (*detect.Detector, *ledger.MemorySink) {
	t.Helper()
	sink := &ledger.MemorySink{}
	led := ledger.New(ledger.Config{Sink: sink, Stream: io.Discard}, nil)
	return detect.New(led, nil), sink
}

func lastRecord(t *testing.T, sink *ledger.MemorySink) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(sink.Last()), &rec))
	return rec
}

func TestAnomaly_shortHistoryAbstains(t *testing.T) {
	det, sink := newTestDetector(t)

	flagged, err := det.Anomaly(99, []int{70, 71, 72, 70, 69, 71, 70, 72, 70})
	require.NoError(t, err)
	require.False(t, flagged, "nine scores of history should abstain")
	require.Zero(t, sink.Len())
}

func TestAnomaly_zeroVarianceAbstains(t *testing.T) {
	det, sink := newTestDetector(t)

	history := make([]int, 12)
	for i := range history {
		history[i] = 80
	}

	flagged, err := det.Anomaly(99, history)
	require.NoError(t, err)
	require.False(t, flagged, "flat history has no scale for deviation")
	require.Zero(t, sink.Len())
}

func TestAnomaly_flagsOutlier(t *testing.T) {
	det, sink := newTestDetector(t)

	history := []int{70, 72, 68, 74, 76, 71, 73, 69, 75, 77}

	flagged, err := det.Anomaly(95, history)
	require.NoError(t, err)
	require.True(t, flagged)

	require.Equal(t, 1, sink.Len())
	rec := lastRecord(t, sink)
	require.Equal(t, "anomaly", rec["receipt_type"])
	require.Equal(t, "trust_score", rec["metric"])
	require.Equal(t, ledger.ClassDeviation, rec["classification"])
	require.Equal(t, ledger.ActionAlert, rec["action"])
	require.InDelta(t, 72.5, rec["baseline"].(float64), 1e-9)
	require.Equal(t, 95.0, rec["actual"])
}

func TestAnomaly_withinBandPasses(t *testing.T) {
	det, sink := newTestDetector(t)

	history := []int{70, 72, 68, 74, 76, 71, 73, 69, 75, 77}

	flagged, err := det.Anomaly(74, history)
	require.NoError(t, err)
	require.False(t, flagged)
	require.Zero(t, sink.Len())
}

func TestBias_disparateGroups(t *testing.T) {
	det, sink := newTestDetector(t)

	disparity, err := det.Bias(map[string][]int{
		"region_b": {60, 65, 58},
		"region_a": {90, 85, 92},
	})
	require.NoError(t, err)
	require.InDelta(t, 0.28, disparity, 1e-9)

	require.Equal(t, 1, sink.Len())
	rec := lastRecord(t, sink)
	require.Equal(t, "bias", rec["receipt_type"])
	require.Equal(t, []any{"region_a", "region_b"}, rec["groups"], "group names are sorted")
	require.InDelta(t, 0.28, rec["disparity"].(float64), 1e-9)
	require.Equal(t, detect.BiasThreshold, rec["threshold"])
	require.Equal(t, ledger.MitigationAlert, rec["mitigation_action"])
}

func TestBias_uniformGroupsBelowThreshold(t *testing.T) {
	det, sink := newTestDetector(t)

	disparity, err := det.Bias(map[string][]int{
		"region_a": {80, 82, 78},
		"region_b": {79, 81, 80},
	})
	require.NoError(t, err)
	require.InDelta(t, 0, disparity, 1e-9)
	require.Zero(t, sink.Len(), "disparity below threshold must not emit")
}

func TestBias_fewerThanTwoGroups(t *testing.T) {
	det, sink := newTestDetector(t)

	disparity, err := det.Bias(map[string][]int{"solo": {90, 80}})
	require.NoError(t, err)
	require.Zero(t, disparity)

	disparity, err = det.Bias(nil)
	require.NoError(t, err)
	require.Zero(t, disparity)
	require.Zero(t, sink.Len())
}

func TestBias_emptyGroupsSkipped(t *testing.T) {
	det, sink := newTestDetector(t)

	disparity, err := det.Bias(map[string][]int{
		"active": {85, 87},
		"empty":  {},
	})
	require.NoError(t, err)
	require.Zero(t, disparity, "one non-empty group is not comparable")
	require.Zero(t, sink.Len())
}
