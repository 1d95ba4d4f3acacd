// Command edcohort builds the ED admissions cohort and its aligned
// vital-sign block table from MIMIC-IV-ED extracts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edcohort/internal/artifact"
	"edcohort/internal/journal"
	"edcohort/internal/obs"
	"edcohort/internal/pipeline"
)

var exitFunc = os.Exit

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

const usageText = `Usage: edcohort <command> [flags]

Commands:
  admissions  run the admissions funnel and persist the cohort
  vitals      align vital signs against the persisted cohort
  all         run both pipelines in sequence

Flags:
  -sources DIR    directory holding the raw extracts (default ".")
  -key-prefix P   prefix for every artifact key
  -age-min N      minimum age at ED arrival (default 18)
  -min-obs N      minimum observations per stay (default 3)
  -min-frac F     minimum non-missing fraction per feature (default 0.6)
  -every D        resampling block width (default 1h)
  -cutoff D       keep blocks within this distance of the stay end (default 1h30m)
  -verbose        log at debug level
  -metrics-addr A serve Prometheus metrics on A while the run is active

The artifact store and run journal are selected through the
EDCOHORT_ARTIFACT_* and EDCOHORT_JOURNAL_* environment variables.
`

// debugGate drops Debug output unless enabled. The underlying logger has no
// level filtering of its own.
type debugGate struct {
	obs.Logger
	enabled bool
}

func (g debugGate) Debug(msg string, kv ...any) {
	if g.enabled {
		g.Logger.Debug(msg, kv...)
	}
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "admissions", "vitals", "all":
	default:
		fmt.Fprintf(stderr, "edcohort: unknown command %q\n\n", cmd)
		fmt.Fprint(stderr, usageText)
		return 2
	}

	fs := flag.NewFlagSet("edcohort "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		sourcesDir  = fs.String("sources", ".", "directory holding the raw extracts")
		keyPrefix   = fs.String("key-prefix", "", "prefix for every artifact key")
		ageMin      = fs.Int("age-min", 18, "minimum age at ED arrival")
		minObs      = fs.Int("min-obs", 3, "minimum observations per stay")
		minFrac     = fs.Float64("min-frac", 0.6, "minimum non-missing fraction per feature")
		every       = fs.Duration("every", time.Hour, "resampling block width")
		cutoff      = fs.Duration("cutoff", 90*time.Minute, "maximum distance from the stay end")
		verbose     = fs.Bool("verbose", false, "log at debug level")
		metricsAddr = fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	)
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	ctx := context.Background()
	log := debugGate{Logger: obs.NewTextLogger(stderr), enabled: *verbose}

	store, err := artifact.Open(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "edcohort: artifact store: %v\n", err)
		return 1
	}
	jnl, err := journal.Open(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "edcohort: journal: %v\n", err)
		return 1
	}
	defer jnl.Close()

	opts := []pipeline.Option{pipeline.WithLogger(log)}
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, pipeline.WithMetrics(obs.NewPromMetricsRecorder(reg)))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				log.Error("metrics server failed", "addr", *metricsAddr, "error", serveErr)
			}
		}()
		defer srv.Close()
	}

	runner := pipeline.NewRunner(store, jnl, opts...)
	src := pipeline.NewSources(*sourcesDir)

	if cmd == "admissions" || cmd == "all" {
		cfg := pipeline.DefaultAdmissionsConfig()
		cfg.AgeMin = *ageMin
		cfg.KeyPrefix = *keyPrefix
		res, err := runner.RunAdmissions(ctx, cfg, src)
		if err != nil {
			fmt.Fprintf(stderr, "edcohort: admissions: %v\n", err)
			return 1
		}
		printSummary(stdout, "admissions", res.Stages)
		printDiagnostics(stdout, res.Diagnostics)
		fmt.Fprintf(stdout, "cohort: %d stays\n", res.Cohort.NumRows())
	}
	if cmd == "vitals" || cmd == "all" {
		cfg := pipeline.DefaultVitalsConfig()
		cfg.AgeMin = *ageMin
		cfg.MinObsCount = *minObs
		cfg.MinNonMissingFrac = *minFrac
		cfg.Every = *every
		cfg.TimeToEndCutoff = *cutoff
		cfg.KeyPrefix = *keyPrefix
		res, err := runner.RunVitals(ctx, cfg, src)
		if err != nil {
			fmt.Fprintf(stderr, "edcohort: vitals: %v\n", err)
			return 1
		}
		printSummary(stdout, "vitals", res.Stages)
		printDiagnostics(stdout, res.Diagnostics)
		fmt.Fprintf(stdout, "blocks: %d rows\n", res.Blocks.NumRows())
	}
	return 0
}

func printSummary(w io.Writer, name string, stages []journal.StageReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tROWS IN\tROWS OUT\tDROPPED\tARTIFACT\n", strings.ToUpper(name))
	for _, s := range stages {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", s.Stage, s.RowsIn, s.RowsOut, s.Dropped, s.ArtifactKey)
	}
	tw.Flush()
}

func printDiagnostics(w io.Writer, d pipeline.Diagnostics) {
	if d.AmbiguousNextTransfers == 0 && d.DuplicateTriageRows == 0 {
		return
	}
	fmt.Fprintf(w, "diagnostics: ambiguous next transfers %d, duplicate triage rows %d\n",
		d.AmbiguousNextTransfers, d.DuplicateTriageRows)
}
