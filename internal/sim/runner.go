package sim

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/trustchain-labs/trustchain/internal/ledger"
	"github.com/trustchain-labs/trustchain/internal/metrics"
	"github.com/trustchain-labs/trustchain/internal/render"
	"github.com/trustchain-labs/trustchain/internal/score"
)

// receiptsPerCycle is the base per-cycle volume before the multiplier.
const receiptsPerCycle = 10

// Runner drives scenarios through the real engine, renderer, and ledger.
type Runner struct {
	engine   *score.Engine
	renderer *render.Renderer
	ledger   *ledger.Ledger
	logger   *zap.Logger
}

// NewRunner creates a Runner. A nil logger is replaced with a no-op logger.
func NewRunner(engine *score.Engine, renderer *render.Renderer, led *ledger.Ledger, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{engine: engine, renderer: renderer, ledger: led, logger: logger}
}

// Run executes one scenario to completion (or early termination) and always
// emits one simulation_run record, pass or fail.
//
// Per-receipt failures are the scenario's subject matter: they increment the
// crash counter and the loop moves on. Only the halt signal aborts a run,
// and it is re-returned, not raised here.
func (rn *Runner) Run(sc Scenario) (*Result, error) {
	state := &State{Metrics: map[string]float64{}}

	params := defaultParams()
	for _, stress := range sc.StressVectors {
		params = stress(params)
	}

	runID := uuid.NewString()
	rn.logger.Info("scenario starting",
		zap.String("scenario", sc.Name),
		zap.String("run_id", runID),
		zap.Int("cycles", sc.Cycles),
		zap.Int64("seed", sc.Seed),
		zap.Float64("volume_multiplier", params.VolumeMultiplier),
		zap.Float64("malformed_rate", params.MalformedRate),
	)

	start := time.Now()
	var (
		peakHeap        uint64
		correct, graded int
		renderMillis    []float64
		cyclesCompleted int
	)

	for cycle := 0; cycle < sc.Cycles; cycle++ {
		state.Cycle = cycle
		perCycle := int(receiptsPerCycle * params.VolumeMultiplier)

		for i := 0; i < perCycle; i++ {
			seed := int64(cycle*1000 + i)
			rcpt, truth, ok := synthReceipt(seed, params.MalformedRate)
			if !ok {
				// Malformed placeholder: an ingestion error, never scored.
				state.ErrorsEmitted++
				continue
			}

			total, err := rn.engine.Score(rcpt)
			if err != nil {
				if ledger.IsHalt(err) {
					return nil, err
				}
				state.Crashes++
				state.Violations = append(state.Violations, fmt.Sprintf("Crash at cycle %d: %v", cycle, err))
				continue
			}
			state.ReceiptsProcessed++

			if expectedLevel(truth) == score.LevelFor(total) {
				correct++
			}
			graded++

			renderStart := time.Now()
			if _, err := rn.renderer.Panel(total, rcpt); err != nil {
				if ledger.IsHalt(err) {
					return nil, err
				}
				state.Crashes++
				state.Violations = append(state.Violations, fmt.Sprintf("Crash at cycle %d: %v", cycle, err))
				continue
			}
			renderMillis = append(renderMillis, float64(time.Since(renderStart).Nanoseconds())/1e6)
			state.ReceiptsEmitted++
		}

		cyclesCompleted++
		metrics.RecordSimCycle(sc.Name)

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if ms.HeapAlloc > peakHeap {
			peakHeap = ms.HeapAlloc
		}

		if sc.EarlyTermination != nil && sc.EarlyTermination(state) {
			state.Converged = true
			break
		}
	}

	elapsed := time.Since(start).Seconds()
	state.Metrics = finalMetrics(state, params, cyclesCompleted, correct, graded, renderMillis, peakHeap, elapsed)

	violations := ValidateCriteria(state.Metrics, sc.SuccessCriteria)
	violations = append(violations, state.Violations...)
	if violations == nil {
		// A clean run records "violations": [] rather than null.
		violations = []string{}
	}
	success := len(violations) == 0
	metrics.RecordSimViolations(sc.Name, len(violations))

	if _, err := rn.ledger.Emit("simulation_run", map[string]any{
		"run_id":           runID,
		"scenario_name":    sc.Name,
		"seed":             sc.Seed,
		"cycles_completed": cyclesCompleted,
		"success":          success,
		"violations":       violations,
		"metrics":          state.Metrics,
	}); err != nil {
		return nil, err
	}

	rn.logger.Info("scenario finished",
		zap.String("scenario", sc.Name),
		zap.Bool("success", success),
		zap.Int("violations", len(violations)),
		zap.Float64("elapsed_s", elapsed),
	)

	return &Result{
		RunID:           runID,
		Scenario:        sc.Name,
		Success:         success,
		CyclesCompleted: cyclesCompleted,
		Violations:      violations,
		Metrics:         state.Metrics,
	}, nil
}

func finalMetrics(state *State, params Params, cyclesCompleted, correct, graded int, renderMillis []float64, peakHeap uint64, elapsed float64) map[string]float64 {
	accuracy := 0.0
	if graded > 0 {
		accuracy = float64(correct) / float64(graded)
	}

	emission := 0.0
	if state.ReceiptsProcessed > 0 {
		emission = float64(state.ReceiptsEmitted) / float64(state.ReceiptsProcessed)
	}

	// Binary indicator: errors were surfaced whenever malformed input existed.
	errorEmission := 0.0
	if state.ErrorsEmitted > 0 || params.MalformedRate == 0 {
		errorEmission = 1.0
	}

	validProcessing := 1.0
	if state.ReceiptsProcessed+state.ErrorsEmitted > 0 {
		validProcessing = float64(state.ReceiptsProcessed) / float64(state.ReceiptsProcessed+state.ErrorsEmitted)
	}

	ingestionLatency := 0.0
	if state.ReceiptsProcessed > 0 {
		ingestionLatency = elapsed / float64(state.ReceiptsProcessed)
	}

	renderMean := 0.0
	renderP95 := 0.0
	if len(renderMillis) > 0 {
		if m, err := stats.Mean(renderMillis); err == nil {
			renderMean = m
		}
		if p, err := stats.Percentile(renderMillis, 95); err == nil {
			renderP95 = p
		}
	}

	return map[string]float64{
		"cycles_completed":         float64(cyclesCompleted),
		"receipts_processed":       float64(state.ReceiptsProcessed),
		"receipts_emitted":         float64(state.ReceiptsEmitted),
		"trust_score_accuracy":     accuracy,
		"receipt_emission":         emission,
		"error_receipt_emission":   errorEmission,
		"system_crash_count":       float64(state.Crashes),
		"valid_receipt_processing": validProcessing,
		"ingestion_latency_s":      ingestionLatency,
		"rendering_latency_ms":     renderMean,
		"rendering_latency_p95_ms": renderP95,
		"memory_gb":                float64(peakHeap) / (1 << 30),
		"elapsed_seconds":          elapsed,
	}
}
