// Package receipt defines the decision-receipt shape consumed by the trust
// engine and the defensive accessors used to read it.
//
// Receipts have no enforced schema. Producers emit arbitrary JSON objects;
// readers look for recognized fields at the top level and then under an
// optional "payload" sub-object, treating type mismatches as absence rather
// than errors. A receipt with no recognized fields is still valid and scores
// at the engine's base value.
package receipt

import (
	"encoding/json"
	"fmt"
)

// Receipt is one decision event's metadata, as decoded from a single JSON
// object. Values are the usual encoding/json shapes: float64 for numbers,
// map[string]any for nested objects, []any for arrays.
type Receipt map[string]any

// Parse decodes a Receipt from one JSON object.
func Parse(data []byte) (Receipt, error) {
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}
	return r, nil
}

// Payload returns the nested "payload" sub-object, or nil when absent or not
// an object.
func (r Receipt) Payload() Receipt {
	if p, ok := r["payload"].(map[string]any); ok {
		return Receipt(p)
	}
	return nil
}

// intValue coerces a decoded JSON value to an integer count. JSON numbers
// arrive as float64; only integer-valued numbers qualify.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// floatValue coerces a decoded JSON value to a float64.
func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// stringValue coerces a decoded JSON value to a non-empty string.
func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// truthy reports whether a decoded JSON value counts as a set flag.
// Presence-style flags accept any non-empty value: producers variously emit
// booleans, marker strings, or whole nested receipts (intervention_receipt).
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return false
}
