package fingerprint

import "fmt"

// emptySentinel is hashed in place of an empty sequence, so "no items" stays
// distinguishable from the hash of zero bytes.
const emptySentinel = "empty"

// Merkle reduces an ordered sequence of serializable items to one root
// fingerprint. Each item is canonicalized and fingerprinted, then the level
// is folded pairwise: an odd level duplicates its last node, adjacent pairs
// are combined by fingerprinting the concatenation of their fingerprint
// strings, and the fold repeats until one remains.
//
// The root is deterministic for a given item order. Callers that want
// content addressing independent of order must sort items first.
func Merkle(items []any) (string, error) {
	if len(items) == 0 {
		return SumString(emptySentinel), nil
	}

	level := make([]string, 0, len(items))
	for i, item := range items {
		b, err := Canonical(item)
		if err != nil {
			return "", fmt.Errorf("merkle: item %d: %w", i, err)
		}
		level = append(level, Sum(b))
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, SumString(level[i]+level[i+1]))
		}
		level = next
	}
	return level[0], nil
}
