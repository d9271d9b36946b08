package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/robert-at-pretension-io/calyx-opt/internal/config"
	"github.com/robert-at-pretension-io/calyx-opt/internal/facts"
	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
	"github.com/robert-at-pretension-io/calyx-opt/internal/passes"
	"github.com/robert-at-pretension-io/calyx-opt/internal/policy"
	"github.com/robert-at-pretension-io/calyx-opt/internal/traversal"
	"github.com/robert-at-pretension-io/calyx-opt/internal/validator"
)

// Runner runs an ordered list of passes over a program.
type Runner struct {
	Config  *config.Config
	Logger  *zap.Logger
	Out     io.Writer // debug dumps
	Metrics *Metrics

	newID func() string
}

// Report summarizes one run. It is the document written to
// Output.ReportFile and checked against #RunReport.
type Report struct {
	RunID      string             `json:"run_id"`
	Entrypoint string             `json:"entrypoint"`
	Passes     []PassReport       `json:"passes"`
	Violations []policy.Violation `json:"violations"`
}

// PassReport is the outcome of a single pass.
type PassReport struct {
	Name       string         `json:"name"`
	DurationMS float64        `json:"duration_ms"`
	Outcome    string         `json:"outcome"`
	Added      map[string]int `json:"added,omitempty"`
	Removed    map[string]int `json:"removed,omitempty"`

	// Delta is the full row delta when Output.Deltas is set.
	Delta *facts.Delta `json:"-"`
}

const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

// New creates a Runner. A nil cfg means DefaultConfig.
func New(cfg *config.Config) *Runner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Runner{
		Config:  cfg,
		Logger:  zap.NewNop(),
		Out:     os.Stdout,
		Metrics: newMetrics(),
		newID:   uuid.NewString,
	}
}

// LoadProgram reads a JSON program file. With a non-nil v the raw bytes
// are checked against #Program first, so contract errors name the
// offending field instead of surfacing as a decode failure.
func LoadProgram(path string, v *validator.Validator) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}
	if v != nil {
		if errs := v.ValidationErrors(data); len(errs) > 0 {
			return nil, fmt.Errorf("program %s violates the contract:\n%s", path, formatMessages(errs))
		}
	}
	prog, err := ir.DecodeProgram(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return prog, nil
}

// run is the state of one Run call.
type run struct {
	*Runner
	log    *zap.Logger
	timing *timingRecorder
	report *Report
	tables facts.Tables
	errs   []error
}

func (r *run) recordPipelineErr(err error) {
	r.errs = append(r.errs, err)
}

// Run validates prog, evaluates the well-formedness rules, then runs the
// named passes in order. Passes mutate prog in place.
//
// A failing pass aborts the run; the returned report lists the passes that
// ran, the failing one last with outcome "failed". Artifact write failures
// (timing, metrics, report file) do not stop the passes and are returned
// together at the end.
func (rn *Runner) Run(ctx context.Context, prog *ir.Program, names []string) (*Report, error) {
	runStart := time.Now()
	visitors, err := passes.Resolve(names)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:      rn.newID(),
		Entrypoint: prog.Entrypoint,
		Passes:     []PassReport{},
		Violations: []policy.Violation{},
	}
	r := &run{
		Runner: rn,
		log:    rn.Logger.With(zap.String("run_id", report.RunID)),
		report: report,
	}
	r.timing = newTimingRecorder(report.RunID, runStart, rn.Config.Output.TimingJSONL)
	if err := r.timing.Err(); err != nil {
		r.recordPipelineErr(fmt.Errorf("timing output disabled: %w", err))
	}

	err = r.execute(ctx, prog, visitors)
	r.timing.RecordStage("total", runStart, time.Since(runStart), statusOf(err))
	r.finish()
	r.log.Info("pipeline finished",
		zap.Int("passes", len(report.Passes)),
		zap.Int("violations", len(report.Violations)),
		zap.Duration("elapsed", time.Since(runStart)),
		zap.Error(err),
	)

	if err != nil {
		return report, err
	}
	if len(r.errs) > 0 {
		return report, fmt.Errorf("pipeline errors:\n%s", formatPipelineErrors(r.errs))
	}
	return report, nil
}

func (r *run) execute(ctx context.Context, prog *ir.Program, visitors []traversal.Visitor) error {
	r.tables = facts.BuildTables(prog)

	if r.Config.ValidationEnabled() {
		if err := r.validate("validate", prog); err != nil {
			return fmt.Errorf("input program: %w", err)
		}
	}

	if r.Config.PolicyEnabled() {
		if err := r.evaluatePolicy(); err != nil {
			return err
		}
	}

	for _, v := range visitors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runPass(v, prog); err != nil {
			return err
		}
	}

	if r.Config.ValidationEnabled() {
		if err := r.validate("validate_output", prog); err != nil {
			return fmt.Errorf("transformed program: %w", err)
		}
	}
	return nil
}

// validate checks the program against #Program and its fact tables
// against #FactTables.
func (r *run) validate(phase string, prog *ir.Program) error {
	stepStart := time.Now()
	err := r.checkContracts(prog)
	r.timing.RecordStage(phase, stepStart, time.Since(stepStart), statusOf(err))
	if err != nil {
		r.Metrics.ValidationFailures.Inc()
	}
	return err
}

func (r *run) checkContracts(prog *ir.Program) error {
	pv, err := validator.New()
	if err != nil {
		return fmt.Errorf("loading program schema: %w", err)
	}
	file, err := ir.ToFile(prog)
	if err != nil {
		return err
	}
	if err := pv.Validate(file); err != nil {
		return err
	}
	fv, err := validator.NewFactsValidator()
	if err != nil {
		return fmt.Errorf("loading facts schema: %w", err)
	}
	return fv.Validate(r.tables)
}

func (r *run) evaluatePolicy() error {
	stepStart := time.Now()
	engine, err := policy.New(r.Config.Policy.Dir)
	if err != nil {
		r.timing.RecordStage("policy", stepStart, time.Since(stepStart), outcomeFailed)
		return fmt.Errorf("loading policies: %w", err)
	}
	result, err := engine.Evaluate(r.tables)
	if err != nil {
		r.timing.RecordStage("policy", stepStart, time.Since(stepStart), outcomeFailed)
		return fmt.Errorf("policy evaluation: %w", err)
	}
	result.ApplySeverities(r.Config.Policy.Rules)
	r.timing.RecordStage("policy", stepStart, time.Since(stepStart), outcomeOK)

	if len(result.Violations) > 0 {
		r.report.Violations = result.Violations
	}
	for _, v := range result.Violations {
		r.Metrics.PolicyViolations.WithLabelValues(v.Severity).Inc()
	}
	r.log.Info("policy evaluated",
		zap.Int("violations", result.Summary.TotalViolations),
		zap.Int("errors", result.Summary.Errors),
		zap.Int("warnings", result.Summary.Warnings),
	)

	if r.Config.Policy.FailOnError && result.HasErrors() {
		return fmt.Errorf("input program has %d policy error(s):\n%s",
			result.Summary.Errors, formatViolations(result.Violations, "error"))
	}
	return nil
}

func (r *run) runPass(v traversal.Visitor, prog *ir.Program) error {
	name := v.Name()
	visited := 0
	opts := []traversal.Option{
		traversal.WithWriter(r.Out),
		traversal.WithLogger(r.log),
		traversal.WithComponentHook(func(*ir.Component) { visited++ }),
	}
	if r.Config.Debug {
		opts = append(opts, traversal.WithDebug(true))
	}

	start := time.Now()
	err := traversal.DoPass(v, prog, opts...)
	elapsed := time.Since(start)

	pr := PassReport{Name: name, DurationMS: durationToMS(elapsed), Outcome: statusOf(err)}
	r.timing.RecordPass(name, pr.Outcome, start, elapsed)
	r.Metrics.PassesRun.WithLabelValues(name, pr.Outcome).Inc()
	r.Metrics.PassDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	r.Metrics.ComponentsVisited.Add(float64(visited))

	if err != nil {
		r.report.Passes = append(r.report.Passes, pr)
		r.log.Error("pass failed", zap.String("pass", name), zap.Error(err))
		return err
	}

	next := facts.BuildTables(prog)
	delta := facts.ComputeDelta(r.tables, next)
	r.tables = next
	r.Metrics.AssignmentsAdded.WithLabelValues(name).Add(float64(len(delta.Added.Assignments)))
	if r.Config.Output.Deltas {
		pr.Added = nonZero(delta.Added.Counts())
		pr.Removed = nonZero(delta.Removed.Counts())
		pr.Delta = &delta
	}
	r.report.Passes = append(r.report.Passes, pr)

	r.log.Info("pass finished",
		zap.String("pass", name),
		zap.Duration("elapsed", elapsed),
		zap.Int("rows_added", delta.Added.RowCount()),
		zap.Int("rows_removed", delta.Removed.RowCount()),
	)
	return nil
}

// finish writes the run artifacts. Failures are collected, never fatal.
func (r *run) finish() {
	out := r.Config.Output

	if r.Config.ValidationEnabled() {
		ov, err := validator.NewOutputValidator()
		if err != nil {
			r.recordPipelineErr(fmt.Errorf("loading report schema: %w", err))
		} else if err := ov.Validate(r.report); err != nil {
			r.recordPipelineErr(fmt.Errorf("report: %w", err))
		}
	}

	if out.ReportFile != "" {
		if err := writeJSON(out.ReportFile, r.report); err != nil {
			r.recordPipelineErr(fmt.Errorf("writing report: %w", err))
		}
	}
	if out.MetricsFile != "" {
		if err := r.Metrics.WriteTextfile(out.MetricsFile); err != nil {
			r.recordPipelineErr(fmt.Errorf("writing metrics: %w", err))
		}
	}
	if err := r.timing.Close(); err != nil {
		r.recordPipelineErr(fmt.Errorf("closing timing output: %w", err))
	}
	if err := r.timing.Err(); err != nil && r.timing.Enabled() {
		r.recordPipelineErr(fmt.Errorf("timing output: %w", err))
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func statusOf(err error) string {
	if err != nil {
		return outcomeFailed
	}
	return outcomeOK
}

func nonZero(counts map[string]int) map[string]int {
	out := make(map[string]int)
	for k, n := range counts {
		if n > 0 {
			out[k] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func formatViolations(vs []policy.Violation, severity string) string {
	var lines []string
	for _, v := range vs {
		if severity != "" && v.Severity != severity {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", v.Rule, v.Component, v.Message))
	}
	return formatMessages(lines)
}

func formatMessages(msgs []string) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(m)
	}
	return b.String()
}

func formatPipelineErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return formatMessages(msgs)
}
