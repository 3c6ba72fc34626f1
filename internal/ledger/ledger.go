// Package ledger implements the append-only receipt ledger: every computed
// result in the system flows through Emit, which stamps, fingerprints,
// mirrors, and durably appends one record.
//
// The ledger is an explicit handle, not process-global state. Its durable
// side is a Sink; FileSink is the production flat-file target and MemorySink
// captures lines for tests. One writer per ledger is assumed: there is no
// locking here, and hosts embedding the engine in concurrent code must
// serialize calls to Emit themselves.
package ledger

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/trustchain-labs/trustchain/internal/fingerprint"
	"github.com/trustchain-labs/trustchain/internal/metrics"
)

// Mandatory record keys. Payload keys are merged at the top level and win on
// collision, matching the ledger's established line format.
const (
	KeyReceiptType = "receipt_type"
	KeyTimestamp   = "ts"
	KeyTenantID    = "tenant_id"
	KeyPayloadHash = "payload_hash"
)

// DefaultTenant is stamped on records whose payload carries no tenant_id.
const DefaultTenant = "default"

// DefaultPath is the flat-file sink location when none is configured.
const DefaultPath = "receipts.jsonl"

// tsLayout is the fixed ISO-8601 UTC form used for the ts key. Microsecond
// precision, always a trailing Z.
const tsLayout = "2006-01-02T15:04:05.000000Z"

// Record is one emitted ledger entry: payload fields plus the mandatory keys.
// Records are created once per Emit call and never mutated afterwards.
type Record map[string]any

// Type returns the record's receipt_type, or "" when malformed.
func (r Record) Type() string {
	t, _ := r[KeyReceiptType].(string)
	return t
}

// Config holds ledger construction parameters. Zero values get defaults.
type Config struct {
	// Sink is the durable append target. Defaults to FileSink{Path:
	// DefaultPath} in the working directory.
	Sink Sink

	// Stream is the live mirror every record line is written to.
	// Defaults to os.Stdout.
	Stream io.Writer

	// Tenant is stamped as tenant_id when the payload omits one.
	// Defaults to DefaultTenant.
	Tenant string

	// Now supplies record timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Ledger stamps, fingerprints, emits, and durably appends receipt records.
type Ledger struct {
	sink   Sink
	stream io.Writer
	tenant string
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Ledger. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) *Ledger {
	if cfg.Sink == nil {
		cfg.Sink = FileSink{Path: DefaultPath}
	}
	if cfg.Stream == nil {
		cfg.Stream = os.Stdout
	}
	if cfg.Tenant == "" {
		cfg.Tenant = DefaultTenant
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ledger{
		sink:   cfg.Sink,
		stream: cfg.Stream,
		tenant: cfg.Tenant,
		now:    cfg.Now,
		logger: logger,
	}
}

// Emit constructs a record from payload, writes its canonical line to the
// live stream, and appends the same line to the durable sink.
//
// A durable-append failure is non-fatal: it is logged, counted, and the
// constructed record is still returned. A serialization failure (non-finite
// numbers, unsupported values) is fatal and propagates.
func (l *Ledger) Emit(recordType string, payload map[string]any) (Record, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	payloadBytes, err := fingerprint.Canonical(payload)
	if err != nil {
		return nil, fmt.Errorf("emit %s: payload: %w", recordType, err)
	}

	record := Record{
		KeyReceiptType: recordType,
		KeyTimestamp:   l.now().UTC().Format(tsLayout),
		KeyTenantID:    l.tenant,
		KeyPayloadHash: fingerprint.Sum(payloadBytes),
	}
	for k, v := range payload {
		record[k] = v
	}

	line, err := fingerprint.Canonical(map[string]any(record))
	if err != nil {
		return nil, fmt.Errorf("emit %s: record: %w", recordType, err)
	}

	if _, err := fmt.Fprintf(l.stream, "%s\n", line); err != nil {
		l.logger.Warn("ledger stream write failed",
			zap.String("receipt_type", recordType),
			zap.Error(err),
		)
	}

	if err := l.sink.Append(line); err != nil {
		l.logger.Warn("ledger append failed, record not persisted",
			zap.String("receipt_type", recordType),
			zap.Error(err),
		)
		metrics.RecordAppendFailure()
	}

	metrics.RecordEmit(recordType)
	return record, nil
}
