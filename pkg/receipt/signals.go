package receipt

// Signals is the extracted evidence the trust engine weighs. It is exported
// so renderers and emitted trust records reuse the engine's extraction
// instead of re-deriving it from the raw receipt.
type Signals struct {
	SourceCount   int     `json:"source_count"`
	Approver      string  `json:"approver,omitempty"`
	HasApprover   bool    `json:"has_approver"`
	RACIComplete  bool    `json:"raci_complete"`
	Confidence    float64 `json:"confidence"`
	HasConfidence bool    `json:"has_confidence"`
	MonteCarlo    bool    `json:"monte_carlo_validated"`
	HumanVerified bool    `json:"human_verified"`
}

// Accepted aliases for the two validation flags. Producers disagree on field
// names; any alias, top-level or under payload, counts.
var (
	monteCarloAliases = []string{"monte_carlo_validated", "monte_carlo_passed", "simulation_validated"}
	humanAliases      = []string{"human_verified", "intervention_receipt", "human_approved"}
)

// Accessors read one candidate location for a signal and report whether a
// usable value was present. Extraction walks an ordered list and the first
// hit wins, so the precedence between top-level fields and payload fallbacks
// is explicit in the list, not buried in control flow.
type (
	intAccessor    func(Receipt) (int, bool)
	stringAccessor func(Receipt) (string, bool)
	floatAccessor  func(Receipt) (float64, bool)
	boolAccessor   func(Receipt) (bool, bool)
)

func firstInt(r Receipt, accs ...intAccessor) (int, bool) {
	for _, acc := range accs {
		if v, ok := acc(r); ok {
			return v, true
		}
	}
	return 0, false
}

func firstString(r Receipt, accs ...stringAccessor) (string, bool) {
	for _, acc := range accs {
		if v, ok := acc(r); ok {
			return v, true
		}
	}
	return "", false
}

func firstFloat(r Receipt, accs ...floatAccessor) (float64, bool) {
	for _, acc := range accs {
		if v, ok := acc(r); ok {
			return v, true
		}
	}
	return 0, false
}

func firstBool(r Receipt, accs ...boolAccessor) (bool, bool) {
	for _, acc := range accs {
		if v, ok := acc(r); ok {
			return v, true
		}
	}
	return false, false
}

func countField(name string) intAccessor {
	return func(r Receipt) (int, bool) {
		v, present := r[name]
		if !present {
			return 0, false
		}
		return intValue(v)
	}
}

func listLenField(name string) intAccessor {
	return func(r Receipt) (int, bool) {
		list, ok := r[name].([]any)
		if !ok {
			return 0, false
		}
		return len(list), true
	}
}

func stringField(name string) stringAccessor {
	return func(r Receipt) (string, bool) {
		return stringValue(r[name])
	}
}

// raciAccountable reads raci.accountable, the RACI chain's required role.
func raciAccountable(r Receipt) (string, bool) {
	raci, ok := r["raci"].(map[string]any)
	if !ok {
		return "", false
	}
	return stringValue(raci["accountable"])
}

// confidenceField normalizes a numeric confidence: values in [0,1] pass
// through, values in (1,100] are read as percentages. Anything else is
// treated as absent.
func confidenceField(name string) floatAccessor {
	return func(r Receipt) (float64, bool) {
		v, ok := floatValue(r[name])
		if !ok {
			return 0, false
		}
		switch {
		case v >= 0 && v <= 1:
			return v, true
		case v > 1 && v <= 100:
			return v / 100, true
		}
		return 0, false
	}
}

// flagField reports a set flag. Absent or unset fields are not hits, so later
// aliases in the chain still run.
func flagField(name string) boolAccessor {
	return func(r Receipt) (bool, bool) {
		v, present := r[name]
		if !present || !truthy(v) {
			return false, false
		}
		return true, true
	}
}

// onPayload lifts an accessor to run against the payload sub-object.
func onPayload[T any](acc func(Receipt) (T, bool)) func(Receipt) (T, bool) {
	return func(r Receipt) (T, bool) {
		var zero T
		p := r.Payload()
		if p == nil {
			return zero, false
		}
		return acc(p)
	}
}

// SourceCount returns the number of evidence sources behind the receipt:
// an explicit source_count field, else the length of a sources list, each
// checked top-level then under payload.
func (r Receipt) SourceCount() int {
	n, _ := firstInt(r,
		countField("source_count"),
		listLenField("sources"),
		onPayload(countField("source_count")),
		onPayload(listLenField("sources")),
	)
	return n
}

// ApproverName returns the recorded approver: an approver field, else the
// RACI accountable role, each checked top-level then under payload.
func (r Receipt) ApproverName() (string, bool) {
	return firstString(r,
		stringField("approver"),
		raciAccountable,
		onPayload(stringField("approver")),
		onPayload(raciAccountable),
	)
}

// RACIComplete reports whether the receipt carries a RACI chain with a
// non-empty accountable role.
func (r Receipt) RACIComplete() bool {
	_, ok := firstString(r,
		raciAccountable,
		onPayload(raciAccountable),
	)
	return ok
}

// ConfidenceValue returns the normalized confidence in [0,1] and whether one
// was present.
func (r Receipt) ConfidenceValue() (float64, bool) {
	return firstFloat(r,
		confidenceField("confidence"),
		onPayload(confidenceField("confidence")),
	)
}

// MonteCarloValidated reports whether any Monte Carlo validation alias is set.
func (r Receipt) MonteCarloValidated() bool {
	return anyFlag(r, monteCarloAliases)
}

// HumanVerified reports whether any human-verification alias is set.
func (r Receipt) HumanVerified() bool {
	return anyFlag(r, humanAliases)
}

func anyFlag(r Receipt, aliases []string) bool {
	accs := make([]boolAccessor, 0, 2*len(aliases))
	for _, name := range aliases {
		accs = append(accs, flagField(name))
	}
	for _, name := range aliases {
		accs = append(accs, onPayload(flagField(name)))
	}
	v, _ := firstBool(r, accs...)
	return v
}

// ExtractSignals runs every accessor chain once and bundles the results.
func ExtractSignals(r Receipt) Signals {
	sig := Signals{SourceCount: r.SourceCount()}
	sig.Approver, sig.HasApprover = r.ApproverName()
	sig.RACIComplete = r.RACIComplete()
	sig.Confidence, sig.HasConfidence = r.ConfidenceValue()
	sig.MonteCarlo = r.MonteCarloValidated()
	sig.HumanVerified = r.HumanVerified()
	return sig
}
