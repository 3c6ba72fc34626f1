// Package health implements the watchdog: a fixed battery of engine
// self-checks (ledger writable, digest formats, sample scoring, panel
// rendering) that emits a watchdog_health record per pass and keeps the
// latest Report for the daemon's health endpoint.
package health

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trustchain-labs/trustchain/internal/fingerprint"
	"github.com/trustchain-labs/trustchain/internal/ledger"
	"github.com/trustchain-labs/trustchain/internal/render"
	"github.com/trustchain-labs/trustchain/internal/score"
	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

// Config holds watchdog configuration.
type Config struct {
	// LedgerPath is the flat file probed for writability.
	LedgerPath string

	// CheckInterval is the period of the Start loop.
	CheckInterval time.Duration
}

// Report status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Scorer computes a trust score for a receipt.
type Scorer interface {
	Score(r receipt.Receipt) (int, error)
}

// PanelRenderer builds the operator-facing trust panel.
type PanelRenderer interface {
	Panel(total int, r receipt.Receipt) (string, error)
}

// MetricsRecordFunc is an optional callback for recording per-check results.
type MetricsRecordFunc func(check string, passed bool)

// ReportFunc is an optional callback invoked with each completed report.
type ReportFunc func(Report)

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Report aggregates one watchdog pass.
type Report struct {
	Status string        `json:"status"`
	Passed int           `json:"checks_passed"`
	Failed int           `json:"checks_failed"`
	Checks []CheckResult `json:"check_details"`
	At     time.Time     `json:"at"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool { return r.Failed == 0 }

// Watchdog runs periodic engine self-checks.
type Watchdog struct {
	ledger    *ledger.Ledger
	scorer    Scorer
	renderer  PanelRenderer
	cfg       Config
	onMetrics MetricsRecordFunc
	onReport  ReportFunc
	mu        sync.Mutex
	last      *Report
	logger    *zap.Logger
}

// New creates a Watchdog. A nil logger is replaced with a no-op logger.
func New(led *ledger.Ledger, scorer Scorer, renderer PanelRenderer, cfg Config, logger *zap.Logger) *Watchdog {
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = ledger.DefaultPath
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watchdog{
		ledger:   led,
		scorer:   scorer,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetMetricsRecord configures the per-check metrics callback.
func (w *Watchdog) SetMetricsRecord(fn MetricsRecordFunc) {
	w.onMetrics = fn
}

// SetOnReport configures the per-report callback.
func (w *Watchdog) SetOnReport(fn ReportFunc) {
	w.onReport = fn
}

// Start runs one pass immediately, then loops until quit is signalled.
func (w *Watchdog) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(w.cfg.CheckInterval)
	defer ticker.Stop()

	w.CheckAll()
	for {
		select {
		case <-ticker.C:
			w.CheckAll()
		case <-quit:
			return
		}
	}
}

// Last returns the most recent report, if a pass has completed.
func (w *Watchdog) Last() (Report, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return Report{}, false
	}
	return *w.last, true
}

// CheckAll runs every probe once, emits the watchdog_health record, and
// returns the report. A probe failure never aborts the pass.
func (w *Watchdog) CheckAll() Report {
	checks := []struct {
		name string
		fn   func() (bool, string)
	}{
		{"receipts_ledger", w.checkLedgerWritable},
		{"dual_hash", w.checkDualHash},
		{"merkle_root", w.checkMerkleRoot},
		{"trust_score", w.checkTrustScore},
		{"traffic_light", w.checkTrafficLight},
	}

	report := Report{At: time.Now().UTC()}
	details := make([]map[string]any, 0, len(checks))
	for _, c := range checks {
		ok, msg := c.fn()
		report.Checks = append(report.Checks, CheckResult{Name: c.name, Success: ok, Message: msg})
		details = append(details, map[string]any{
			"name":    c.name,
			"success": ok,
			"message": msg,
		})
		if ok {
			report.Passed++
		} else {
			report.Failed++
			w.logger.Warn("watchdog check failed",
				zap.String("check", c.name),
				zap.String("message", msg),
			)
		}
		if w.onMetrics != nil {
			w.onMetrics(c.name, ok)
		}
	}

	report.Status = StatusHealthy
	if report.Failed > 0 {
		report.Status = StatusUnhealthy
	}

	// The record is best effort: a pass that cannot reach the ledger
	// still produces a usable report.
	if _, err := w.ledger.Emit("watchdog_health", map[string]any{
		"status":        report.Status,
		"checks_passed": report.Passed,
		"checks_failed": report.Failed,
		"check_details": details,
	}); err != nil {
		w.logger.Error("watchdog health record", zap.Error(err))
	}

	w.mu.Lock()
	w.last = &report
	w.mu.Unlock()

	if w.onReport != nil {
		w.onReport(report)
	}
	return report
}

func (w *Watchdog) checkLedgerWritable() (bool, string) {
	path := w.cfg.LedgerPath
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		f, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if createErr != nil {
			return false, fmt.Sprintf("cannot create %s: %v", path, createErr)
		}
		f.Close()
		return true, fmt.Sprintf("created %s", path)
	case err != nil:
		return false, fmt.Sprintf("cannot stat %s: %v", path, err)
	case info.IsDir():
		return false, fmt.Sprintf("%s is not a file", path)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Sprintf("%s is not writable: %v", path, err)
	}
	f.Close()
	return true, fmt.Sprintf("%s exists and is writable", path)
}

func (w *Watchdog) checkDualHash() (bool, string) {
	fp := fingerprint.Sum([]byte("test"))
	if !fingerprint.WellFormed(fp) {
		return false, fmt.Sprintf("malformed digest pair: %q", fp)
	}
	return true, "dual digest well-formed"
}

func (w *Watchdog) checkMerkleRoot() (bool, string) {
	root, err := fingerprint.Merkle([]any{
		map[string]any{"a": 1},
		map[string]any{"b": 2},
	})
	if err != nil {
		return false, fmt.Sprintf("merkle root: %v", err)
	}
	if !fingerprint.WellFormed(root) {
		return false, fmt.Sprintf("malformed merkle root: %q", root)
	}
	return true, "merkle root well-formed"
}

func (w *Watchdog) checkTrustScore() (bool, string) {
	sample := receipt.Receipt{
		"confidence": 0.95,
		"sources":    []any{"a", "b", "c", "d", "e"},
		"raci":       map[string]any{"accountable": "CPT Test"},
	}
	total, err := w.scorer.Score(sample)
	if err != nil {
		return false, fmt.Sprintf("score sample receipt: %v", err)
	}
	if total < 0 || total > score.MaxScore {
		return false, fmt.Sprintf("sample score %d out of range [0, %d]", total, score.MaxScore)
	}
	return true, fmt.Sprintf("sample receipt scored %d", total)
}

func (w *Watchdog) checkTrafficLight() (bool, string) {
	emblem := render.Emblem(90)
	if !strings.Contains(emblem, "🟢") {
		return false, fmt.Sprintf("wrong emblem for score 90: %q", emblem)
	}

	panel, err := w.renderer.Panel(90, receipt.Receipt{"confidence": 0.9})
	if err != nil {
		return false, fmt.Sprintf("render panel: %v", err)
	}
	if !strings.Contains(panel, "TRUST STATUS") {
		return false, "panel missing TRUST STATUS header"
	}
	lower := strings.ToLower(panel)
	for _, term := range render.ForbiddenTerms {
		if strings.Contains(lower, term) {
			return false, fmt.Sprintf("integrity term %q leaked into panel", term)
		}
	}
	return true, "panel rendering clean"
}
