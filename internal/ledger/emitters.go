package ledger

// Anomaly classifications.
const (
	ClassDrift       = "drift"
	ClassDegradation = "degradation"
	ClassViolation   = "violation"
	ClassDeviation   = "deviation"
)

// Anomaly actions.
const (
	ActionAlert    = "alert"
	ActionEscalate = "escalate"
	ActionHalt     = "halt"
)

// Bias mitigation actions.
const (
	MitigationNone  = "none"
	MitigationAlert = "alert"
	MitigationHalt  = "halt"
)

// EmitAnomaly emits an "anomaly" record. delta is derived, never passed in.
func (l *Ledger) EmitAnomaly(metric string, baseline, actual float64, classification, action string) (Record, error) {
	return l.Emit("anomaly", map[string]any{
		"metric":         metric,
		"baseline":       baseline,
		"actual":         actual,
		"delta":          actual - baseline,
		"classification": classification,
		"action":         action,
	})
}

// EmitError emits an "error" record. A nil context becomes an empty object
// so the line shape stays stable.
func (l *Ledger) EmitError(errorType, errorMessage string, context map[string]any) (Record, error) {
	if context == nil {
		context = map[string]any{}
	}
	return l.Emit("error", map[string]any{
		"error_type":    errorType,
		"error_message": errorMessage,
		"context":       context,
	})
}

// EmitBias emits a "bias" record for the compared groups.
func (l *Ledger) EmitBias(groups []string, disparity, threshold float64, mitigationAction string) (Record, error) {
	return l.Emit("bias", map[string]any{
		"groups":            groups,
		"disparity":         disparity,
		"threshold":         threshold,
		"mitigation_action": mitigationAction,
	})
}
