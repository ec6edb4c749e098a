// Command nr-bench drives a replicated counter through a configurable
// number of threads and replicas and reports throughput, optionally
// comparing a single-replica baseline against a scaled-out
// multi-replica run.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/noderep/examples/counterdata"
	"github.com/calvinalkan/noderep/pkg/fs"
	"github.com/calvinalkan/noderep/pkg/noderep"
)

type runConfig struct {
	tmax     uint32
	logSize  uint32
	batch    uint32
	shards   uint32
	replicas int
	threads  int
	ops      int

	mode       string
	configPath string
	outDir     string
	format     string
	pin        bool
}

func defaultRunConfig() runConfig {
	return runConfig{
		tmax:     32,
		logSize:  1 << 16,
		batch:    32,
		shards:   1,
		replicas: 2,
		threads:  4,
		ops:      10000,
		mode:     "scale-out",
		format:   "md",
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "nr-bench: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := defaultRunConfig()

	fs_ := flag.NewFlagSet("nr-bench", flag.ContinueOnError)
	fs_.Uint32Var(&cfg.tmax, "tmax", cfg.tmax, "max threads per replica")
	fs_.Uint32Var(&cfg.logSize, "log-size", cfg.logSize, "shared log capacity (power of two)")
	fs_.Uint32Var(&cfg.batch, "batch", cfg.batch, "per-thread context batch size (power of two)")
	fs_.Uint32Var(&cfg.shards, "shards", cfg.shards, "number of log shards")
	fs_.IntVar(&cfg.replicas, "replicas", cfg.replicas, "number of replicas")
	fs_.IntVar(&cfg.threads, "threads", cfg.threads, "threads per replica submitting increments")
	fs_.IntVar(&cfg.ops, "ops", cfg.ops, "increments per thread")
	fs_.StringVar(&cfg.mode, "mode", cfg.mode, "scale-out, single, or baseline (compare single-replica vs scale-out)")
	fs_.StringVar(&cfg.configPath, "config", "", "optional JSONC file overlaying these flags")
	fs_.StringVar(&cfg.outDir, "out", "", "directory to write a report file into; empty prints to stdout only")
	fs_.StringVar(&cfg.format, "format", cfg.format, "report format: md or yaml")
	fs_.BoolVar(&cfg.pin, "pin", false, "best-effort pin each worker goroutine's OS thread to the CPU numbered by its replica index")

	if err := fs_.Parse(args); err != nil {
		return err
	}

	if cfg.configPath != "" {
		fc, err := loadFileConfig(fs.NewReal(), cfg.configPath)
		if err != nil {
			return err
		}
		cfg = fc.applyTo(cfg)
	}

	var results []runResult

	switch cfg.mode {
	case "single":
		results = append(results, benchOnce("single-replica", withReplicas(cfg, 1)))
	case "scale-out":
		results = append(results, benchOnce("scale-out", cfg))
	case "baseline":
		results = append(results, benchOnce("baseline (1 replica)", withReplicas(cfg, 1)))
		results = append(results, benchOnce(fmt.Sprintf("scale-out (%d replicas)", cfg.replicas), cfg))
	default:
		return fmt.Errorf("unknown -mode %q", cfg.mode)
	}

	report := renderReport(cfg, results)

	fmt.Print(report.plainText)

	if cfg.outDir == "" {
		return nil
	}

	return writeReport(cfg, report)
}

func withReplicas(cfg runConfig, n int) runConfig {
	cfg.replicas = n
	return cfg
}

type runResult struct {
	label       string
	replicas    int
	threads     int
	totalOps    int
	elapsed     time.Duration
	opsPerSec   float64
}

func benchOnce(label string, cfg runConfig) runResult {
	ncfg := noderep.Config{TMax: cfg.tmax, N: cfg.logSize, B: cfg.batch, L: cfg.shards}

	initial := make([]*counterdata.Counter, cfg.replicas)
	for i := range initial {
		initial[i] = new(counterdata.Counter)
	}

	nr := noderep.New[counterdata.Read, counterdata.Increment, uint64, *counterdata.Counter](ncfg, initial)

	var wg sync.WaitGroup
	var completed atomic.Int64

	start := time.Now()

	for replicaIdx := 0; replicaIdx < cfg.replicas; replicaIdx++ {
		for t := 0; t < cfg.threads; t++ {
			wg.Add(1)
			go func(replicaIdx int) {
				defer wg.Done()

				if cfg.pin {
					pinCurrentThread(replicaIdx)
				}

				tok, ok := nr.RegisterAt(replicaIdx)
				if !ok {
					return
				}
				for i := 0; i < cfg.ops; i++ {
					nr.ExecuteMutAt(replicaIdx, tok, counterdata.Increment{By: 1})
					completed.Add(1)
				}
			}(replicaIdx)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)

	total := int(completed.Load())

	return runResult{
		label:     label,
		replicas:  cfg.replicas,
		threads:   cfg.threads,
		totalOps:  total,
		elapsed:   elapsed,
		opsPerSec: float64(total) / elapsed.Seconds(),
	}
}

type report struct {
	plainText string
	markdown  string
	yamlText  string
}

func renderReport(cfg runConfig, results []runResult) report {
	var md, plain string

	header := fmt.Sprintf("GOMAXPROCS=%d GOOS/GOARCH=%s/%s tmax=%d log-size=%d batch=%d shards=%d\n",
		runtime.GOMAXPROCS(0), runtime.GOOS, runtime.GOARCH, cfg.tmax, cfg.logSize, cfg.batch, cfg.shards)

	md += "# nr-bench report\n\n" + "```\n" + header + "```\n\n"
	md += "| scenario | replicas | threads | ops | elapsed | ops/sec |\n"
	md += "|:---|---:|---:|---:|---:|---:|\n"

	plain += header

	for _, r := range results {
		line := fmt.Sprintf("| %s | %d | %d | %d | %s | %.0f |\n",
			r.label, r.replicas, r.threads, r.totalOps, r.elapsed, r.opsPerSec)
		md += line
		plain += fmt.Sprintf("%-28s replicas=%d threads=%d ops=%d elapsed=%s ops/sec=%.0f\n",
			r.label, r.replicas, r.threads, r.totalOps, r.elapsed, r.opsPerSec)
	}

	yamlDoc := struct {
		Config  yamlRunConfig   `yaml:"config"`
		Results []yamlRunResult `yaml:"results"`
	}{
		Config:  toYAMLConfig(cfg),
		Results: toYAMLResults(results),
	}

	yamlBytes, err := yaml.Marshal(yamlDoc)
	yamlText := ""
	if err == nil {
		yamlText = string(yamlBytes)
	}

	return report{plainText: plain, markdown: md, yamlText: yamlText}
}

// yamlRunConfig mirrors runConfig's tunables and mode as exported
// fields; runConfig itself keeps its fields unexported since it is only ever built and consumed
// within this package, and yaml.v3 skips unexported fields silently.
type yamlRunConfig struct {
	TMax     uint32 `yaml:"tmax"`
	LogSize  uint32 `yaml:"log_size"`
	Batch    uint32 `yaml:"batch"`
	Shards   uint32 `yaml:"shards"`
	Replicas int    `yaml:"replicas"`
	Threads  int    `yaml:"threads"`
	Ops      int    `yaml:"ops"`
	Mode     string `yaml:"mode"`
}

func toYAMLConfig(cfg runConfig) yamlRunConfig {
	return yamlRunConfig{
		TMax:     cfg.tmax,
		LogSize:  cfg.logSize,
		Batch:    cfg.batch,
		Shards:   cfg.shards,
		Replicas: cfg.replicas,
		Threads:  cfg.threads,
		Ops:      cfg.ops,
		Mode:     cfg.mode,
	}
}

type yamlRunResult struct {
	Label     string  `yaml:"label"`
	Replicas  int     `yaml:"replicas"`
	Threads   int     `yaml:"threads"`
	TotalOps  int     `yaml:"total_ops"`
	ElapsedMs int64   `yaml:"elapsed_ms"`
	OpsPerSec float64 `yaml:"ops_per_sec"`
}

func toYAMLResults(results []runResult) []yamlRunResult {
	out := make([]yamlRunResult, len(results))
	for i, r := range results {
		out[i] = yamlRunResult{
			Label:     r.label,
			Replicas:  r.replicas,
			Threads:   r.threads,
			TotalOps:  r.totalOps,
			ElapsedMs: r.elapsed.Milliseconds(),
			OpsPerSec: r.opsPerSec,
		}
	}
	return out
}

func writeReport(cfg runConfig, rep report) error {
	timestamp := time.Now().UTC().Format("20060102-150405")

	ext := "md"
	body := rep.markdown
	if cfg.format == "yaml" {
		ext = "yaml"
		body = rep.yamlText
	}

	if err := fs.NewReal().MkdirAll(cfg.outDir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	outPath := filepath.Join(cfg.outDir, fmt.Sprintf("nr-bench_%s.%s", timestamp, ext))

	if err := durableWrite(outPath, []byte(body)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)

	return nil
}
