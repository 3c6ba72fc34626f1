// Package sim is the Monte Carlo harness. It synthesizes receipt populations
// under configurable stress, drives the scoring engine and the ledger with
// them, and grades the aggregate outcome against each scenario's declared
// success criteria.
//
// The harness observes failures instead of propagating them: a receipt that
// crashes scoring or rendering is counted and the run continues. The one
// exception is the halt signal, which is re-returned like everywhere else.
package sim

// Params are the simulation knobs a scenario's stress vectors transform
// before the run starts.
type Params struct {
	VolumeMultiplier float64
	MalformedRate    float64
	Effectiveness    float64
}

// defaultParams is the base parameter set stress vectors fold over.
func defaultParams() Params {
	return Params{VolumeMultiplier: 1.0, MalformedRate: 0.0, Effectiveness: 1.0}
}

// StressVector is a pure transformation of simulation parameters. Vectors
// apply left to right; later ones may overwrite earlier ones.
type StressVector func(Params) Params

// MultiplyVolume scales the per-cycle receipt volume.
func MultiplyVolume(factor float64) StressVector {
	return func(p Params) Params {
		p.VolumeMultiplier = factor
		return p
	}
}

// InjectMalformed sets the probability of a candidate receipt being a
// malformed placeholder.
func InjectMalformed(rate float64) StressVector {
	return func(p Params) Params {
		p.MalformedRate = rate
		return p
	}
}

// SetEffectiveness pins the effectiveness knob.
func SetEffectiveness(value float64) StressVector {
	return func(p Params) Params {
		p.Effectiveness = value
		return p
	}
}

// Criterion is one success criterion: a computed metric compared against a
// threshold. Comparator is one of >=, <=, ==, >, <.
type Criterion struct {
	Metric     string  `mapstructure:"metric"`
	Threshold  float64 `mapstructure:"threshold"`
	Comparator string  `mapstructure:"comparator"`
}

// Scenario declares one Monte Carlo run. Immutable once constructed;
// consumed once per harness run.
type Scenario struct {
	Name             string
	Cycles           int
	StressVectors    []StressVector
	SuccessCriteria  []Criterion
	Seed             int64
	EarlyTermination func(*State) bool
}

// State is the mutable accumulator for one run. The harness loop is its only
// writer; early-termination predicates read it at the end of each cycle.
type State struct {
	Cycle             int
	ReceiptsProcessed int
	ReceiptsEmitted   int
	ErrorsEmitted     int
	Crashes           int
	Violations        []string
	Metrics           map[string]float64
	Converged         bool
}

// Result summarizes a completed run.
type Result struct {
	RunID           string
	Scenario        string
	Success         bool
	CyclesCompleted int
	Violations      []string
	Metrics         map[string]float64
}
