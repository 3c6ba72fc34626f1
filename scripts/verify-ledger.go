//go:build ignore

// verify-ledger.go recomputes the payload_hash of every record in a receipts
// ledger and reports tampering. A record's payload is the line minus the four
// stamped keys; its canonical serialization must dual-hash back to the stored
// payload_hash. The report ends with the Merkle root over all parsed records,
// the single value an auditor archives to pin the whole trail.
//
// Run with: go run scripts/verify-ledger.go [ledger-file]
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/trustchain-labs/trustchain/internal/fingerprint"
	"github.com/trustchain-labs/trustchain/internal/ledger"
)

type mismatch struct {
	line       int
	recordType string
	stored     string
	recomputed string
}

func main() {
	path := ledger.DefaultPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify-ledger: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		scanned    int
		verified   int
		malformed  int
		mismatches []mismatch
		records    []any
	)

	for scanner.Scan() {
		scanned++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record map[string]any
		if err := json.Unmarshal(line, &record); err != nil {
			malformed++
			continue
		}
		records = append(records, record)

		stored, _ := record[ledger.KeyPayloadHash].(string)
		recordType, _ := record[ledger.KeyReceiptType].(string)

		payload := make(map[string]any, len(record))
		for k, v := range record {
			switch k {
			case ledger.KeyReceiptType, ledger.KeyTimestamp, ledger.KeyTenantID, ledger.KeyPayloadHash:
				continue
			}
			payload[k] = v
		}

		b, err := fingerprint.Canonical(payload)
		if err != nil {
			malformed++
			continue
		}
		if recomputed := fingerprint.Sum(b); recomputed != stored {
			mismatches = append(mismatches, mismatch{
				line:       scanned,
				recordType: recordType,
				stored:     stored,
				recomputed: recomputed,
			})
			continue
		}
		verified++
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "verify-ledger: read %s: %v\n", path, err)
		os.Exit(1)
	}

	// ── Report ────────────────────────────────────────────────────────────────
	fmt.Println("══════════════════════════════════════════════════════")
	fmt.Println("  TrustChain Ledger Integrity Verification")
	fmt.Printf("  File: %s\n", path)
	fmt.Println("══════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  lines scanned:    %d\n", scanned)
	fmt.Printf("  records verified: %d\n", verified)
	fmt.Printf("  hash mismatches:  %d\n", len(mismatches))
	fmt.Printf("  malformed lines:  %d\n", malformed)
	fmt.Println()

	if len(mismatches) > 0 {
		fmt.Println("── Mismatched records ──")
		for _, m := range mismatches {
			fmt.Printf("  • line %d (%s)\n", m.line, m.recordType)
			fmt.Printf("      stored:     %s\n", m.stored)
			fmt.Printf("      recomputed: %s\n", m.recomputed)
		}
		fmt.Println()
	}

	if len(records) > 0 {
		if root, err := fingerprint.Merkle(records); err == nil {
			fmt.Println("  Merkle root over all parsed records:")
			fmt.Printf("    %s\n", root)
			fmt.Println()
		}
	}

	fmt.Println("══════════════════════════════════════════════════════")

	if len(mismatches) > 0 {
		os.Exit(1)
	}
}
