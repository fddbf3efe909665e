// Package main provides CMA-ES optimization of cooling-laser lane rates so
// that the steady-state excited fraction of the configured species hits a
// target.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/lasercool/config"
)

// EvalRecord is one row of evals.csv.
type EvalRecord struct {
	Eval      int     `csv:"eval"`
	Fitness   float64 `csv:"fitness"`
	Excited   float64 `csv:"excited"`
	TotalRate float64 `csv:"total_rate"`
	Rates     string  `csv:"rates"` // Semicolon-separated per-lane rates
}

// evalLog appends EvalRecords to a CSV file, writing the header once.
type evalLog struct {
	f      *os.File
	header bool
}

func newEvalLog(path string) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &evalLog{f: f}, nil
}

func (l *evalLog) write(rec EvalRecord) error {
	rows := []EvalRecord{rec}
	if l.header {
		return gocsv.MarshalWithoutHeaders(&rows, l.f)
	}
	l.header = true
	return gocsv.Marshal(&rows, l.f)
}

func (l *evalLog) close() error {
	return l.f.Close()
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func formatRates(rates []float64) string {
	parts := make([]string, len(rates))
	for i, r := range rates {
		parts[i] = strconv.FormatFloat(r, 'g', 6, 64)
	}
	return strings.Join(parts, ";")
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	target := flag.Float64("target", 0.25, "Target mean excited fraction, in (0, 0.5)")
	atoms := flag.Int("atoms", 256, "Probe atoms per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Load base config
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector(baseCfg)
	if params.Dim() == 0 {
		log.Fatal("config has no active laser lanes to optimize")
	}

	evaluator, err := NewFitnessEvaluator(params, *target, *atoms, baseCfg)
	if err != nil {
		log.Fatal(err)
	}

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation; each probe already fans out over workers
	}

	popSize := *population
	if popSize == 0 {
		// Auto-size: 4 + floor(3*ln(n))
		popSize = 4 + int(3.0*math.Log(float64(dim)))
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	evals, err := newEvalLog(filepath.Join(*outputDir, "evals.csv"))
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer evals.close()

	evalCount := 0
	bestFitness := math.Inf(1)
	var bestParams []float64
	startTime := time.Now()

	baseFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		fitness := baseFunc(x)
		evalCount++

		clamped := params.Clamp(params.Denormalize(x))
		if fitness < bestFitness {
			bestFitness = fitness
			bestParams = clamped
		}

		rates := params.Rates(clamped)
		excited := evaluator.LastExcited()
		if err := evals.write(EvalRecord{
			Eval:      evalCount,
			Fitness:   fitness,
			Excited:   excited,
			TotalRate: totalRate(rates),
			Rates:     formatRates(rates),
		}); err != nil {
			log.Printf("failed to log eval %d: %v", evalCount, err)
		}

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
		fmt.Printf("Eval %d/%d: excited=%.4f total_rate=%.3g (best=%.3g) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, excited, totalRate(rates), bestFitness,
			formatDuration(elapsed), formatDuration(remaining))

		return fitness
	}

	fmt.Printf("Starting CMA-ES optimization of %d lanes for %s, target=%.3f, population=%d, max_evals=%d\n",
		dim, baseCfg.Atoms.Species, *target, popSize, *maxEvals)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.3g\n", bestFitness)

	fmt.Println("\nBest lane rates:")
	for i, rate := range params.Rates(bestParams) {
		fmt.Printf("  %s: %.4g 1/s\n", params.Specs[i].Path, rate)
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	if err := params.ApplyToConfig(bestCfg, bestParams); err != nil {
		log.Fatalf("failed to apply best parameters: %v", err)
	}

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
