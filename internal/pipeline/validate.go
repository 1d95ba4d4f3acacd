package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"edcohort/pkg/table"
)

// Severity captures rule outcomes.
type Severity string

const (
	// SeverityBlock aborts the consuming pipeline.
	SeverityBlock Severity = "block"
	// SeverityWarn surfaces in logs but allows the run to continue.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation for one stay.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	StayID   string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// CohortRule checks one property of a reloaded cohort frame.
type CohortRule interface {
	Name() string
	Evaluate(ctx context.Context, cohort *table.Frame) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []CohortRule
}

// NewRulesEngine constructs an engine with no rules registered.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule CohortRule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, cohort *table.Frame) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, cohort)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// CohortRules returns the engine guarding the vitals pipeline's input: one
// row per stay, ages at or above the bound, a known triage score and an
// ordered stay window. Every rule blocks; a cohort artifact that fails any
// of them did not come from a completed admissions run.
func CohortRules(ageMin int) *RulesEngine {
	e := NewRulesEngine()
	e.Register(uniqueStayRule{})
	e.Register(adultRule{min: ageMin})
	e.Register(esiPresentRule{})
	e.Register(windowOrderRule{})
	return e
}

type uniqueStayRule struct{}

func (uniqueStayRule) Name() string { return "cohort.unique_stay" }

func (u uniqueStayRule) Evaluate(_ context.Context, cohort *table.Frame) (Result, error) {
	var res Result
	seen := make(map[string]bool, cohort.NumRows())
	for i := 0; i < cohort.NumRows(); i++ {
		stay := cohort.View(i).String(colStayID)
		if seen[stay] {
			res.Violations = append(res.Violations, Violation{
				Rule:     u.Name(),
				Severity: SeverityBlock,
				Message:  "stay appears more than once",
				StayID:   stay,
			})
		}
		seen[stay] = true
	}
	return res, nil
}

type adultRule struct {
	min int
}

func (adultRule) Name() string { return "cohort.adult" }

func (a adultRule) Evaluate(_ context.Context, cohort *table.Frame) (Result, error) {
	var res Result
	for i := 0; i < cohort.NumRows(); i++ {
		r := cohort.View(i)
		age, err := strconv.Atoi(r.String(colAge))
		if err != nil || age < a.min {
			res.Violations = append(res.Violations, Violation{
				Rule:     a.Name(),
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("age %q below bound %d", r.String(colAge), a.min),
				StayID:   r.String(colStayID),
			})
		}
	}
	return res, nil
}

type esiPresentRule struct{}

func (esiPresentRule) Name() string { return "cohort.esi_present" }

func (e esiPresentRule) Evaluate(_ context.Context, cohort *table.Frame) (Result, error) {
	var res Result
	for i := 0; i < cohort.NumRows(); i++ {
		r := cohort.View(i)
		if r.Missing(colESI) {
			res.Violations = append(res.Violations, Violation{
				Rule:     e.Name(),
				Severity: SeverityBlock,
				Message:  "triage acuity is missing",
				StayID:   r.String(colStayID),
			})
		}
	}
	return res, nil
}

type windowOrderRule struct{}

func (windowOrderRule) Name() string { return "cohort.window_order" }

func (w windowOrderRule) Evaluate(_ context.Context, cohort *table.Frame) (Result, error) {
	var res Result
	for i := 0; i < cohort.NumRows(); i++ {
		r := cohort.View(i)
		in, iok := r.Time(colInTime)
		out, ook := r.Time(colOutTime)
		if !iok || !ook || in.After(out) {
			res.Violations = append(res.Violations, Violation{
				Rule:     w.Name(),
				Severity: SeverityBlock,
				Message:  "stay window is missing or inverted",
				StayID:   r.String(colStayID),
			})
		}
	}
	return res, nil
}
