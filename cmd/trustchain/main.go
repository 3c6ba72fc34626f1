package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/trustchain-labs/trustchain/internal/health"
	"github.com/trustchain-labs/trustchain/internal/ingest"
	"github.com/trustchain-labs/trustchain/internal/ledger"
	"github.com/trustchain-labs/trustchain/internal/render"
	"github.com/trustchain-labs/trustchain/internal/score"
	"github.com/trustchain-labs/trustchain/internal/sim"
	"github.com/trustchain-labs/trustchain/pkg/receipt"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile    string
	ledgerPath string
	tenant     string
	quiet      bool

	logger *zap.Logger
)

func main() {
	logger, _ = zap.NewProduction()

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trustchain",
	Short: "TrustChain receipts-to-traffic-light CLI",
	Long: `trustchain turns decision receipts into auditable trust signals.

Every command appends its records to the flat ledger file (--ledger) and
mirrors them on stdout. Scores map to a traffic light: GREEN (85+),
YELLOW (60-84), RED (below 60).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.SetConfigName("trustchain")
			viper.SetConfigType("yaml")
			viper.AddConfigPath(".")
		}
		viper.SetEnvPrefix("TRUSTCHAIN")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		viper.SetDefault("ledger.path", ledger.DefaultPath)
		viper.SetDefault("ledger.tenant", ledger.DefaultTenant)

		_ = viper.ReadInConfig()

		if ledgerPath == "" {
			ledgerPath = viper.GetString("ledger.path")
		}
		if tenant == "" {
			tenant = viper.GetString("ledger.tenant")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./trustchain.yaml)")
	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", "", "Ledger file path (default receipts.jsonl)")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", "", "Tenant stamped on emitted records")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress the stdout record mirror")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(selftestCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLedger builds the ledger every command writes through, honoring the
// persistent flags.
func newLedger() *ledger.Ledger {
	cfg := ledger.Config{
		Sink:   ledger.FileSink{Path: ledgerPath},
		Tenant: tenant,
	}
	if quiet {
		cfg.Stream = io.Discard
	}
	return ledger.New(cfg, logger)
}

// ── score ────────────────────────────────────────────────────────────────────

var scoreReceiptArg string

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one receipt and render its trust panel",
	Long: `score computes the trust score of a single receipt, emits the trust
record, and renders the operator-facing traffic light panel with the
auditor drill-down.

The --receipt value is inline JSON, or @path to read a JSON file:

  trustchain score --receipt '{"confidence":0.92,"sources":["a","b","c"]}'
  trustchain score --receipt @decision.json`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreReceiptArg, "receipt", "", "Receipt as inline JSON or @path to a JSON file")
	_ = scoreCmd.MarkFlagRequired("receipt")
}

func runScore(cmd *cobra.Command, args []string) error {
	data, err := receiptBytes(scoreReceiptArg)
	if err != nil {
		return err
	}
	r, err := receipt.Parse(data)
	if err != nil {
		return fmt.Errorf("parse receipt: %w", err)
	}

	led := newLedger()
	engine := score.New(led, logger)
	renderer := render.New(led, logger)

	total, err := engine.Score(r)
	if err != nil {
		return err
	}

	line1, line2 := render.Summary(r)
	if _, err := engine.EmitTrustReceipt(r, total, line1, line2); err != nil {
		return err
	}

	panel, err := renderer.PanelWithReceipt(total, r, true)
	if err != nil {
		return err
	}
	fmt.Println(panel)
	return nil
}

// receiptBytes interprets arg as @path or inline JSON.
func receiptBytes(arg string) ([]byte, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read receipt file: %w", err)
		}
		return data, nil
	}
	return []byte(arg), nil
}

// ── batch ────────────────────────────────────────────────────────────────────

var batchReceiptsPath string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score every receipt in a JSONL file",
	Long: `batch ingests a line-delimited JSON receipts file, scores each receipt,
and prints a traffic light per line plus a green/yellow/red summary.
Malformed lines are skipped and reported through the ledger.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchReceiptsPath, "receipts", "", "Path to a JSONL receipts file")
	_ = batchCmd.MarkFlagRequired("receipts")
}

func runBatch(cmd *cobra.Command, args []string) error {
	led := newLedger()
	engine := score.New(led, logger)
	reader := ingest.New(led, logger)

	receipts, err := reader.ReadFile(batchReceiptsPath)
	if err != nil {
		return err
	}
	if len(receipts) == 0 {
		return fmt.Errorf("no receipts found in %s", batchReceiptsPath)
	}

	var green, yellow, red int
	for i, r := range receipts {
		total, err := engine.Score(r)
		if err != nil {
			return err
		}
		fmt.Printf("[%d] %s\n", i+1, render.Compact(total))

		switch score.LevelFor(total) {
		case score.LevelGreen:
			green++
		case score.LevelYellow:
			yellow++
		default:
			red++
		}
	}

	total := len(receipts)
	fmt.Println()
	fmt.Println(strings.Repeat("━", 36))
	fmt.Printf("Summary: %d receipts processed\n", total)
	fmt.Printf("  ✅ Green:  %d (%d%%)\n", green, green*100/total)
	fmt.Printf("  ⚠️ Yellow: %d (%d%%)\n", yellow, yellow*100/total)
	fmt.Printf("  ❌ Red:    %d (%d%%)\n", red, red*100/total)
	return nil
}

// ── simulate ─────────────────────────────────────────────────────────────────

var (
	simAll          bool
	simScenarioFile string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [scenario]",
	Short: "Run Monte Carlo stress scenarios",
	Long: `simulate runs the self-validation harness against a named scenario, all
built-in scenarios, or a custom scenario file.

Built-in scenarios: BASELINE, STRESS_VOLUME, MALFORMED_RECEIPTS.

A scenario file is YAML:

  name: SOAK
  cycles: 300
  seed: 7
  volume_multiplier: 2.0
  malformed_rate: 0.05
  success_criteria:
    - metric: trust_score_accuracy
      threshold: 0.90
      comparator: ">="`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().BoolVar(&simAll, "all", false, "Run every built-in scenario")
	simulateCmd.Flags().StringVar(&simScenarioFile, "scenario-file", "", "YAML file defining a custom scenario")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simScenarioFile == "" {
		simScenarioFile = viper.GetString("sim.scenario_file")
	}

	var scenarios []sim.Scenario
	switch {
	case simScenarioFile != "":
		sc, err := loadScenarioFile(simScenarioFile)
		if err != nil {
			return err
		}
		scenarios = []sim.Scenario{sc}
	case simAll:
		scenarios = sim.All()
	case len(args) == 1:
		sc, ok := sim.ByName(args[0])
		if !ok {
			return fmt.Errorf("unknown scenario %q (available: %s)", args[0], strings.Join(scenarioNames(), ", "))
		}
		scenarios = []sim.Scenario{sc}
	default:
		return fmt.Errorf("specify a scenario name, --all, or --scenario-file")
	}

	led := newLedger()
	engine := score.New(led, logger)
	renderer := render.New(led, logger)
	runner := sim.NewRunner(engine, renderer, led, logger)

	failed := 0
	for _, sc := range scenarios {
		fmt.Printf("\n%s\n", strings.Repeat("=", 40))
		fmt.Printf("Running scenario: %s\n", sc.Name)
		fmt.Println(strings.Repeat("=", 40))

		result, err := runner.Run(sc)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}

		if result.Success {
			fmt.Printf("✅ %s: PASSED\n", sc.Name)
		} else {
			fmt.Printf("❌ %s: FAILED\n", sc.Name)
			for _, v := range result.Violations {
				fmt.Printf("   - %s\n", v)
			}
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	return nil
}

func scenarioNames() []string {
	all := sim.All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// scenarioFile is the declarative YAML form of a scenario. Stress vectors
// are expressed as plain knobs since functions cannot be unmarshalled.
type scenarioFile struct {
	Name             string          `mapstructure:"name"`
	Cycles           int             `mapstructure:"cycles"`
	Seed             int64           `mapstructure:"seed"`
	VolumeMultiplier float64         `mapstructure:"volume_multiplier"`
	MalformedRate    float64         `mapstructure:"malformed_rate"`
	SuccessCriteria  []sim.Criterion `mapstructure:"success_criteria"`
}

func loadScenarioFile(path string) (sim.Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return sim.Scenario{}, fmt.Errorf("read scenario file: %w", err)
	}

	var sf scenarioFile
	if err := v.Unmarshal(&sf); err != nil {
		return sim.Scenario{}, fmt.Errorf("parse scenario file: %w", err)
	}
	if sf.Cycles <= 0 {
		return sim.Scenario{}, fmt.Errorf("scenario file %s: cycles must be positive", path)
	}
	if sf.Name == "" {
		sf.Name = "CUSTOM"
	}

	sc := sim.Scenario{
		Name:            sf.Name,
		Cycles:          sf.Cycles,
		Seed:            sf.Seed,
		SuccessCriteria: sf.SuccessCriteria,
	}
	if sf.VolumeMultiplier > 0 {
		sc.StressVectors = append(sc.StressVectors, sim.MultiplyVolume(sf.VolumeMultiplier))
	}
	if sf.MalformedRate > 0 {
		sc.StressVectors = append(sc.StressVectors, sim.InjectMalformed(sf.MalformedRate))
	}
	return sc, nil
}

// ── health ───────────────────────────────────────────────────────────────────

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run the watchdog self-checks once",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	led := newLedger()
	engine := score.New(led, logger)
	renderer := render.New(led, logger)

	wd := health.New(led, engine, renderer, health.Config{LedgerPath: ledgerPath}, logger)
	report := wd.CheckAll()

	fmt.Println()
	fmt.Println(strings.Repeat("=", 40))
	fmt.Println("TRUSTCHAIN WATCHDOG HEALTH CHECK")
	fmt.Println(strings.Repeat("=", 40))
	fmt.Println()
	for _, c := range report.Checks {
		symbol := "✓"
		if !c.Success {
			symbol = "✗"
		}
		fmt.Printf("%s %s: %s\n", symbol, c.Name, c.Message)
	}
	fmt.Println()
	fmt.Printf("Status: %s\n", strings.ToUpper(report.Status))
	fmt.Printf("Passed: %d/%d\n", report.Passed, report.Passed+report.Failed)

	if !report.Healthy() {
		return fmt.Errorf("%d check(s) failed", report.Failed)
	}
	return nil
}

// ── selftest ─────────────────────────────────────────────────────────────────

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Emit a test record and run demo receipts through the pipeline",
	Long: `selftest emits a test record, then pushes three fixed demo receipts
through the full pipeline (fingerprint, score, trust record, panel) so a
fresh checkout can prove the engine end to end without external input.`,
	RunE: runSelftest,
}

func runSelftest(cmd *cobra.Command, args []string) error {
	led := newLedger()
	engine := score.New(led, logger)
	renderer := render.New(led, logger)

	if _, err := led.Emit("test", map[string]any{
		"status":  "pass",
		"message": "TrustChain CLI test receipt",
	}); err != nil {
		return err
	}

	// One demo per traffic light color.
	demos := []receipt.Receipt{
		{
			"decision_id":           "demo_green",
			"confidence":            0.93,
			"sources":               []any{"intel_a", "intel_b", "intel_c", "intel_d", "intel_e"},
			"raci":                  map[string]any{"accountable": "CPT Reyes"},
			"monte_carlo_validated": true,
			"human_verified":        true,
		},
		{
			"decision_id": "demo_yellow",
			"confidence":  0.78,
			"sources":     []any{"intel_a", "intel_b", "intel_c"},
		},
		{
			"decision_id": "demo_red",
			"confidence":  0.45,
			"sources":     []any{},
		},
	}

	for _, r := range demos {
		total, err := engine.Score(r)
		if err != nil {
			return err
		}
		line1, line2 := render.Summary(r)
		if _, err := engine.EmitTrustReceipt(r, total, line1, line2); err != nil {
			return err
		}
		panel, err := renderer.Panel(total, r)
		if err != nil {
			return err
		}
		fmt.Println(panel)
	}
	return nil
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the trustchain CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("trustchain %s\n", version)
	},
}
