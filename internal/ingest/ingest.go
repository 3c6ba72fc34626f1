// Package ingest reads receipts back out of a ledger file. Reads degrade
// gracefully: a malformed line is reported through the ledger's error
// emitter and skipped, never aborting the read, so one corrupt record cannot
// hide the rest of the trail.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"go.uber.org/zap"

	"github.com/trustchain-labs/trustchain/internal/ledger"
	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

// maxLineBytes bounds a single ledger line. Records are small; a line past
// this is corrupt.
const maxLineBytes = 1 << 20

// Reader loads receipts from line-delimited JSON files.
type Reader struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// New creates a Reader. A nil logger is replaced with a no-op logger.
func New(led *ledger.Ledger, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{ledger: led, logger: logger}
}

// ReadFile reads every parseable receipt from path. A missing or unreadable
// file yields an error record and an empty slice; malformed lines yield an
// error record each and are skipped.
func (rd *Reader) ReadFile(path string) ([]receipt.Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		errType := "file_read_error"
		if errors.Is(err, os.ErrNotExist) {
			errType = "file_not_found"
		}
		if _, emitErr := rd.ledger.EmitError(errType, fmt.Sprintf("failed to open receipts file: %v", err), map[string]any{
			"filepath": path,
		}); emitErr != nil {
			return nil, emitErr
		}
		return nil, nil
	}
	defer f.Close()

	receipts, err := rd.readAll(f)
	if err != nil {
		if _, emitErr := rd.ledger.EmitError("file_read_error", fmt.Sprintf("failed to read receipts file: %v", err), map[string]any{
			"filepath": path,
		}); emitErr != nil {
			return nil, emitErr
		}
		return nil, nil
	}
	return receipts, nil
}

func (rd *Reader) readAll(r io.Reader) ([]receipt.Receipt, error) {
	var receipts []receipt.Receipt

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rcpt, err := receipt.Parse(line)
		if err != nil {
			rd.logger.Debug("skipping malformed ledger line",
				zap.Int("line", lineNum),
				zap.Error(err),
			)
			if _, emitErr := rd.ledger.EmitError("malformed_receipt",
				fmt.Sprintf("malformed JSON at line %d: %v", lineNum, err),
				map[string]any{
					"line_number": lineNum,
					"parse_error": err.Error(),
				},
			); emitErr != nil {
				return nil, emitErr
			}
			continue
		}
		receipts = append(receipts, rcpt)
	}
	return receipts, scanner.Err()
}

// ParseLine parses a single receipt line. Parse failures yield an error
// record and a nil receipt rather than an error, matching the reader's
// skip-on-error contract.
func (rd *Reader) ParseLine(line string) (receipt.Receipt, error) {
	rcpt, err := receipt.Parse([]byte(line))
	if err != nil {
		preview := line
		if len(preview) > 100 {
			preview = preview[:100]
		}
		if _, emitErr := rd.ledger.EmitError("malformed_receipt",
			fmt.Sprintf("failed to parse receipt JSON: %v", err),
			map[string]any{"json_preview": preview},
		); emitErr != nil {
			return nil, emitErr
		}
		return nil, nil
	}
	return rcpt, nil
}

// FilterByType returns the receipts whose receipt_type matches any of types.
func FilterByType(receipts []receipt.Receipt, types ...string) []receipt.Receipt {
	var out []receipt.Receipt
	for _, r := range receipts {
		t, _ := r["receipt_type"].(string)
		if slices.Contains(types, t) {
			out = append(out, r)
		}
	}
	return out
}

// Latest returns up to limit receipts, newest (last appended) first.
func Latest(receipts []receipt.Receipt, limit int) []receipt.Receipt {
	if limit <= 0 || len(receipts) == 0 {
		return nil
	}
	if limit > len(receipts) {
		limit = len(receipts)
	}
	out := make([]receipt.Receipt, 0, limit)
	for i := len(receipts) - 1; i >= len(receipts)-limit; i-- {
		out = append(out, receipts[i])
	}
	return out
}
