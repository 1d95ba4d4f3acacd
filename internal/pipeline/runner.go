package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"edcohort/internal/artifact"
	"edcohort/internal/journal"
	"edcohort/internal/obs"
	"edcohort/pkg/table"
)

// Runner executes the cohort pipelines against an artifact store and writes
// one journal record per run.
type Runner struct {
	artifacts artifact.Store
	journal   journal.Store
	log       obs.Logger
	clock     obs.Clock
	metrics   obs.MetricsRecorder
	tracer    obs.Tracer
	newID     func() string
}

// Option adjusts a Runner.
type Option func(*Runner)

// WithLogger installs a logger. A nil logger leaves the no-op default.
func WithLogger(l obs.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(c obs.Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m obs.MetricsRecorder) Option {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(t obs.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithIDSource overrides run id generation, for deterministic tests.
// Re-running under a previously journaled id supersedes that record.
func WithIDSource(fn func() string) Option {
	return func(r *Runner) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRunner wires a runner. The artifact store and journal are required;
// everything else defaults to inert implementations.
func NewRunner(artifacts artifact.Store, jnl journal.Store, opts ...Option) *Runner {
	r := &Runner{
		artifacts: artifacts,
		journal:   jnl,
		log:       obs.NopLogger(),
		clock:     obs.SystemClock(),
		metrics:   obs.NopMetrics(),
		tracer:    obs.NopTracer(),
		newID:     randomID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func randomID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// AdmissionsResult carries the funnel's survivors and accounting.
type AdmissionsResult struct {
	RunID       string
	Cohort      *table.Frame
	Stages      []journal.StageReport
	Diagnostics Diagnostics
}

// VitalsResult carries the aligned block table and accounting.
type VitalsResult struct {
	RunID       string
	Blocks      *table.Frame
	Stages      []journal.StageReport
	Diagnostics Diagnostics
}

type runState struct {
	id       string
	pipeline string
	started  time.Time
	stages   []journal.StageReport
	diags    Diagnostics
}

func (r *Runner) beginRun(pipeline string) *runState {
	run := &runState{
		id:       pipeline + "-" + r.newID(),
		pipeline: pipeline,
		started:  r.clock.Now(),
	}
	r.log.Info("run started", "run_id", run.id, "pipeline", pipeline)
	return run
}

// finishRun journals the run's terminal record. A journal failure surfaces
// to the caller when the pipeline itself succeeded; when both fail the
// pipeline error wins and the journal failure is only logged.
func (r *Runner) finishRun(ctx context.Context, run *runState, runErr error) error {
	rec := journal.Record{
		RunID:       run.id,
		Pipeline:    run.pipeline,
		StartedAt:   run.started,
		FinishedAt:  r.clock.Now(),
		Status:      journal.StatusSucceeded,
		Stages:      run.stages,
		Diagnostics: run.diags.counts(),
	}
	if runErr != nil {
		rec.Status = journal.StatusFailed
		rec.Error = runErr.Error()
	}
	if err := r.journal.Append(ctx, rec); err != nil {
		if runErr != nil {
			r.log.Error("journal append failed", "run_id", run.id, "error", err)
			return runErr
		}
		return fmt.Errorf("journal append: %w", err)
	}
	r.log.Info("run finished", "run_id", run.id, "pipeline", run.pipeline, "status", string(rec.Status))
	return runErr
}

// runStage times fn, persists its output under key and accounts the stage in
// the trace, the metrics, the log and the run's journal record.
func (r *Runner) runStage(ctx context.Context, run *runState, stage, key string, rowsIn int, fn func() (*table.Frame, error)) (*table.Frame, error) {
	op := run.pipeline + "." + stage
	ctx, span := r.tracer.Start(ctx, op)
	start := r.clock.Now()
	out, err := fn()
	elapsed := r.clock.Now().Sub(start)
	span.End(err)
	r.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		r.log.Error("stage failed", "run_id", run.id, "stage", op, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rowsOut := out.NumRows()
	r.metrics.ObserveAttrition(ctx, op, rowsIn, rowsOut)
	if _, err := artifact.PutFrame(ctx, r.artifacts, key, out); err != nil {
		r.log.Error("stage artifact write failed", "run_id", run.id, "stage", op, "key", key, "error", err)
		return nil, fmt.Errorf("%s: persist %s: %w", op, key, err)
	}
	dropped := rowsIn - rowsOut
	if dropped < 0 {
		// Resampling emits block rows, which can outnumber observations.
		dropped = 0
	}
	run.stages = append(run.stages, journal.StageReport{
		Stage:       stage,
		ArtifactKey: key,
		RowsIn:      rowsIn,
		RowsOut:     rowsOut,
		Dropped:     dropped,
		Elapsed:     elapsed,
	})
	r.log.Info("stage complete", "run_id", run.id, "stage", op, "rows_in", rowsIn, "rows_out", rowsOut, "artifact", key)
	return out, nil
}

// RunAdmissions executes the admissions funnel S1 through S5, persisting
// every stage and finally the cohort artifact.
func (r *Runner) RunAdmissions(ctx context.Context, cfg AdmissionsConfig, src *Sources) (*AdmissionsResult, error) {
	run := r.beginRun("admissions")
	res, err := r.runAdmissions(ctx, run, cfg, src)
	if ferr := r.finishRun(ctx, run, err); ferr != nil {
		return nil, ferr
	}
	return res, nil
}

func (r *Runner) runAdmissions(ctx context.Context, run *runState, cfg AdmissionsConfig, src *Sources) (*AdmissionsResult, error) {
	patients, err := src.Patients()
	if err != nil {
		return nil, err
	}
	transfers, err := src.Transfers()
	if err != nil {
		return nil, err
	}
	edstays, err := src.EDStays()
	if err != nil {
		return nil, err
	}
	triage, err := src.Triage()
	if err != nil {
		return nil, err
	}
	r.log.Debug("sources loaded",
		"patients", patients.NumRows(), "transfers", transfers.NumRows(),
		"edstays", edstays.NumRows(), "triage", triage.NumRows())

	s1, err := r.runStage(ctx, run, "S1", artifactKey(cfg.KeyPrefix, keyAdmissionsS1), edstays.NumRows(), func() (*table.Frame, error) {
		return lastStayPerSubject(edstays)
	})
	if err != nil {
		return nil, err
	}
	s2, err := r.runStage(ctx, run, "S2", artifactKey(cfg.KeyPrefix, keyAdmissionsS2), s1.NumRows(), func() (*table.Frame, error) {
		return admittedViaED(s1, transfers)
	})
	if err != nil {
		return nil, err
	}
	s3, err := r.runStage(ctx, run, "S3", artifactKey(cfg.KeyPrefix, keyAdmissionsS3), s2.NumRows(), func() (*table.Frame, error) {
		return relevantNextWard(s2, transfers, patients, cfg.ExcludedWards, &run.diags)
	})
	if err != nil {
		return nil, err
	}
	s4, err := r.runStage(ctx, run, "S4", artifactKey(cfg.KeyPrefix, keyAdmissionsS4), s3.NumRows(), func() (*table.Frame, error) {
		return adults(s3, cfg.AgeMin)
	})
	if err != nil {
		return nil, err
	}
	s5, err := r.runStage(ctx, run, "S5", artifactKey(cfg.KeyPrefix, keyAdmissionsS5), s4.NumRows(), func() (*table.Frame, error) {
		return triageKnown(s4, triage, &run.diags)
	})
	if err != nil {
		return nil, err
	}
	cohortKey := artifactKey(cfg.KeyPrefix, keyAdmissionsIntermediate)
	if _, err := artifact.PutFrame(ctx, r.artifacts, cohortKey, s5); err != nil {
		return nil, fmt.Errorf("persist cohort %s: %w", cohortKey, err)
	}
	r.log.Info("cohort persisted", "run_id", run.id, "key", cohortKey, "rows", s5.NumRows())
	return &AdmissionsResult{RunID: run.id, Cohort: s5, Stages: run.stages, Diagnostics: run.diags}, nil
}

// cohortTimeColumns are parsed as timestamps when the cohort artifact is
// reloaded. dod joins them here: it left patients as raw text and became a
// declared time column the moment the cohort was persisted.
var cohortTimeColumns = []string{colInTime, colOutTime, colNextInTime, colNextOutTime, colDOD}

// RunVitals executes vitals alignment S1 through S5 against the cohort
// artifact written by the admissions pipeline.
func (r *Runner) RunVitals(ctx context.Context, cfg VitalsConfig, src *Sources) (*VitalsResult, error) {
	run := r.beginRun("vitals")
	res, err := r.runVitals(ctx, run, cfg, src)
	if ferr := r.finishRun(ctx, run, err); ferr != nil {
		return nil, ferr
	}
	return res, nil
}

func (r *Runner) runVitals(ctx context.Context, run *runState, cfg VitalsConfig, src *Sources) (*VitalsResult, error) {
	cohort, err := r.loadCohort(ctx, cfg)
	if err != nil {
		return nil, err
	}
	vitals, err := src.VitalSigns()
	if err != nil {
		return nil, err
	}
	r.log.Debug("sources loaded", "cohort", cohort.NumRows(), "vitalsign", vitals.NumRows())

	s1, err := r.runStage(ctx, run, "S1", artifactKey(cfg.KeyPrefix, keyVitalsS1), vitals.NumRows(), func() (*table.Frame, error) {
		return restrictToCohort(vitals, cohort)
	})
	if err != nil {
		return nil, err
	}
	s2, err := r.runStage(ctx, run, "S2", artifactKey(cfg.KeyPrefix, keyVitalsS2), s1.NumRows(), func() (*table.Frame, error) {
		return clipToStayWindow(s1, cfg.Vocabulary)
	})
	if err != nil {
		return nil, err
	}
	s3, err := r.runStage(ctx, run, "S3", artifactKey(cfg.KeyPrefix, keyVitalsS3), s2.NumRows(), func() (*table.Frame, error) {
		out, dropped, err := table.FilterSparseGroups(s2, colStayID, cfg.Features, cfg.MinObsCount, cfg.MinNonMissingFrac)
		if err != nil {
			return nil, err
		}
		r.log.Debug("sparse stays dropped", "run_id", run.id, "stage", "vitals.S3", "stays", dropped)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	s4, err := r.runStage(ctx, run, "S4", artifactKey(cfg.KeyPrefix, keyVitalsS4), s3.NumRows(), func() (*table.Frame, error) {
		return alignToBlocks(s3, cfg)
	})
	if err != nil {
		return nil, err
	}
	s5, err := r.runStage(ctx, run, "S5", artifactKey(cfg.KeyPrefix, keyVitalsS5), s4.NumRows(), func() (*table.Frame, error) {
		filtered, dropped, err := table.FilterSparseGroups(s4, colStayID, cfg.Features, cfg.MinObsCount, cfg.MinNonMissingFrac)
		if err != nil {
			return nil, err
		}
		r.log.Debug("sparse stays dropped", "run_id", run.id, "stage", "vitals.S5", "stays", dropped)
		return nearEndOnly(filtered, cfg.TimeToEndCutoff), nil
	})
	if err != nil {
		return nil, err
	}
	blocksKey := artifactKey(cfg.KeyPrefix, keyVitalsIntermediate)
	if _, err := artifact.PutFrame(ctx, r.artifacts, blocksKey, s5); err != nil {
		return nil, fmt.Errorf("persist blocks %s: %w", blocksKey, err)
	}
	r.log.Info("blocks persisted", "run_id", run.id, "key", blocksKey, "rows", s5.NumRows())
	return &VitalsResult{RunID: run.id, Blocks: s5, Stages: run.stages, Diagnostics: run.diags}, nil
}

// loadCohort reloads the admissions cohort and validates it before any
// vitals source is opened. A missing artifact is a prerequisite failure
// naming the key and store driver, not a storage error.
func (r *Runner) loadCohort(ctx context.Context, cfg VitalsConfig) (*table.Frame, error) {
	key := artifactKey(cfg.KeyPrefix, keyAdmissionsIntermediate)
	if _, err := r.artifacts.Head(ctx, key); err != nil {
		if errors.Is(err, artifact.ErrNotExist) {
			return nil, PrerequisiteError{Key: key, Driver: r.artifacts.Driver()}
		}
		return nil, fmt.Errorf("head cohort %s: %w", key, err)
	}
	cohort, err := artifact.GetFrame(ctx, r.artifacts, key, "cohort", cohortTimeColumns)
	if err != nil {
		return nil, fmt.Errorf("load cohort %s: %w", key, err)
	}
	res, err := CohortRules(cfg.AgeMin).Evaluate(ctx, cohort)
	if err != nil {
		return nil, fmt.Errorf("validate cohort: %w", err)
	}
	for _, v := range res.Violations {
		r.log.Warn("cohort violation", "rule", v.Rule, "severity", string(v.Severity), "stay_id", v.StayID, "message", v.Message)
	}
	if res.HasBlocking() {
		return nil, CohortViolationError{Result: res}
	}
	return cohort, nil
}
