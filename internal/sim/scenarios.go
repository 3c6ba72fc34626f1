package sim

import "strings"

// defaultSeed keeps scenario runs reproducible across machines.
const defaultSeed = 42

// Baseline proves core scoring accuracy and rendering latency on clean
// input.
func Baseline() Scenario {
	return Scenario{
		Name:   "BASELINE",
		Cycles: 1000,
		Seed:   defaultSeed,
		SuccessCriteria: []Criterion{
			{Metric: "trust_score_accuracy", Threshold: 0.95, Comparator: ">="},
			{Metric: "rendering_latency_ms", Threshold: 10, Comparator: "<="},
			{Metric: "receipt_emission", Threshold: 1.0, Comparator: "=="},
		},
	}
}

// StressVolume proves throughput and memory behavior under five times the
// baseline receipt volume.
func StressVolume() Scenario {
	return Scenario{
		Name:          "STRESS_VOLUME",
		Cycles:        500,
		Seed:          defaultSeed,
		StressVectors: []StressVector{MultiplyVolume(5.0)},
		SuccessCriteria: []Criterion{
			{Metric: "ingestion_latency_s", Threshold: 5.0, Comparator: "<="},
			{Metric: "trust_score_accuracy", Threshold: 0.90, Comparator: ">="},
			{Metric: "memory_gb", Threshold: 5.5, Comparator: "<="},
		},
	}
}

// MalformedReceipts proves graceful degradation when a fifth of the input is
// unparseable.
func MalformedReceipts() Scenario {
	return Scenario{
		Name:          "MALFORMED_RECEIPTS",
		Cycles:        200,
		Seed:          defaultSeed,
		StressVectors: []StressVector{InjectMalformed(0.20)},
		SuccessCriteria: []Criterion{
			{Metric: "error_receipt_emission", Threshold: 1.0, Comparator: "=="},
			{Metric: "system_crash_count", Threshold: 0, Comparator: "=="},
			{Metric: "valid_receipt_processing", Threshold: 0.80, Comparator: ">="},
		},
	}
}

// All returns every built-in scenario in run order.
func All() []Scenario {
	return []Scenario{Baseline(), StressVolume(), MalformedReceipts()}
}

// ByName finds a built-in scenario, case-insensitively.
func ByName(name string) (Scenario, bool) {
	for _, sc := range All() {
		if strings.EqualFold(sc.Name, name) {
			return sc, true
		}
	}
	return Scenario{}, false
}
