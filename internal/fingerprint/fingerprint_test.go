package fingerprint_test

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"testing"

	"github.com/trustchain-labs/trustchain/internal/fingerprint"
)

func TestSum_wellFormed(t *testing.T) {
	fp := fingerprint.Sum([]byte("test"))
	if !fingerprint.WellFormed(fp) {
		t.Fatalf("fingerprint not well-formed: %q", fp)
	}

	parts := strings.Split(fp, fingerprint.Separator)
	if len(parts) != 2 {
		t.Fatalf("expected two digests, got %d", len(parts))
	}

	primary := sha256.Sum256([]byte("test"))
	if parts[0] != hex.EncodeToString(primary[:]) {
		t.Errorf("primary digest is not SHA-256: %q", parts[0])
	}
	if parts[0] == parts[1] {
		t.Error("secondary digest equals primary; expected independent algorithms")
	}
}

func TestSum_deterministic(t *testing.T) {
	a := fingerprint.Sum([]byte("same input"))
	b := fingerprint.Sum([]byte("same input"))
	if a != b {
		t.Errorf("same input fingerprinted differently: %q vs %q", a, b)
	}

	c := fingerprint.Sum([]byte("other input"))
	if a == c {
		t.Error("different inputs collided")
	}
}

func TestSumString(t *testing.T) {
	if fingerprint.SumString("abc") != fingerprint.Sum([]byte("abc")) {
		t.Error("SumString disagrees with Sum over the same bytes")
	}
}

func TestWellFormed(t *testing.T) {
	valid := fingerprint.Sum([]byte("x"))
	half := strings.Split(valid, ":")[0]

	cases := []struct {
		name string
		fp   string
		want bool
	}{
		{"valid", valid, true},
		{"empty", "", false},
		{"no separator", half + half, false},
		{"short half", half[:63] + ":" + half, false},
		{"uppercase hex", strings.ToUpper(valid), false},
		{"trailing junk", valid + "x", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := fingerprint.WellFormed(tc.fp); got != tc.want {
				t.Errorf("WellFormed(%q) = %v, want %v", tc.fp, got, tc.want)
			}
		})
	}
}

func TestCanonical_sortedKeys(t *testing.T) {
	got, err := fingerprint.Canonical(map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"y": true, "x": nil},
		"mid":   []any{"a", 2},
	})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}

	want := `{"alpha":{"x":null,"y":true},"mid":["a",2],"zeta":1}`
	if string(got) != want {
		t.Errorf("canonical form = %s, want %s", got, want)
	}
}

func TestCanonical_stableAcrossCalls(t *testing.T) {
	v := map[string]any{"b": 2.5, "a": "s", "c": []any{1, 2, 3}}
	first, err := fingerprint.Canonical(v)
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	second, err := fingerprint.Canonical(v)
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("canonical form unstable: %s vs %s", first, second)
	}
}

func TestCanonical_numberForms(t *testing.T) {
	got, err := fingerprint.Canonical(map[string]any{
		"int":      1.0,
		"frac":     1.5,
		"negative": -3.0,
	})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	want := `{"frac":1.5,"int":1,"negative":-3}`
	if string(got) != want {
		t.Errorf("canonical form = %s, want %s", got, want)
	}
}

func TestCanonical_noHTMLEscaping(t *testing.T) {
	got, err := fingerprint.Canonical(map[string]any{"cmp": "a<b&c>d"})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	if string(got) != `{"cmp":"a<b&c>d"}` {
		t.Errorf("canonical form escaped HTML: %s", got)
	}
}

func TestCanonical_controlCharsEscaped(t *testing.T) {
	got, err := fingerprint.Canonical(map[string]any{"s": "a\u0001b\nc"})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	if string(got) != `{"s":"a\u0001b\nc"}` {
		t.Errorf("canonical form = %s", got)
	}
}

func TestCanonical_rejectsNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := fingerprint.Canonical(map[string]any{"v": bad}); err == nil {
			t.Errorf("Canonical accepted non-finite %v", bad)
		}
	}
}

func TestMerkle_emptySequence(t *testing.T) {
	empty, err := fingerprint.Merkle(nil)
	if err != nil {
		t.Fatalf("Merkle(nil): %v", err)
	}
	if empty != fingerprint.SumString("empty") {
		t.Error("empty sequence root is not the sentinel fingerprint")
	}

	one, err := fingerprint.Merkle([]any{map[string]any{}})
	if err != nil {
		t.Fatalf("Merkle([{}]): %v", err)
	}
	if empty == one {
		t.Error("empty sequence and single empty object share a root")
	}
}

func TestMerkle_singleItem(t *testing.T) {
	item := map[string]any{"a": 1}
	root, err := fingerprint.Merkle([]any{item})
	if err != nil {
		t.Fatalf("Merkle: %v", err)
	}

	b, err := fingerprint.Canonical(item)
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	if root != fingerprint.Sum(b) {
		t.Error("single-item root is not the item's own fingerprint")
	}
}

func TestMerkle_orderSensitive(t *testing.T) {
	a := map[string]any{"id": "a"}
	b := map[string]any{"id": "b"}

	ab, err := fingerprint.Merkle([]any{a, b})
	if err != nil {
		t.Fatalf("Merkle: %v", err)
	}
	ba, err := fingerprint.Merkle([]any{b, a})
	if err != nil {
		t.Fatalf("Merkle: %v", err)
	}
	if ab == ba {
		t.Error("reordered sequence produced the same root")
	}

	again, err := fingerprint.Merkle([]any{a, b})
	if err != nil {
		t.Fatalf("Merkle: %v", err)
	}
	if ab != again {
		t.Error("same sequence produced different roots")
	}
}

func TestMerkle_oddLevelDuplicatesLast(t *testing.T) {
	a := map[string]any{"id": "a"}
	b := map[string]any{"id": "b"}
	c := map[string]any{"id": "c"}

	odd, err := fingerprint.Merkle([]any{a, b, c})
	if err != nil {
		t.Fatalf("Merkle: %v", err)
	}
	padded, err := fingerprint.Merkle([]any{a, b, c, c})
	if err != nil {
		t.Fatalf("Merkle: %v", err)
	}
	if odd != padded {
		t.Error("odd sequence root differs from explicitly duplicated last item")
	}
	if !fingerprint.WellFormed(odd) {
		t.Errorf("root not well-formed: %q", odd)
	}
}

func TestMerkle_rejectsUnserializableItem(t *testing.T) {
	if _, err := fingerprint.Merkle([]any{map[string]any{"v": math.NaN()}}); err == nil {
		t.Error("Merkle accepted a non-finite item")
	}
}
