package pipeline

import (
	"fmt"

	"edcohort/internal/artifact"
)

// PrerequisiteError reports that a pipeline's upstream artifact is absent
// from the configured store. The vitals pipeline returns it when the cohort
// written by the admissions pipeline cannot be found.
type PrerequisiteError struct {
	Key    string
	Driver artifact.Driver
}

func (e PrerequisiteError) Error() string {
	return fmt.Sprintf("prerequisite artifact %s not found in %s store: run the admissions pipeline first", e.Key, e.Driver)
}

// CohortViolationError is returned when the reloaded cohort fails blocking
// validation rules. The vitals pipeline refuses to run on such input.
type CohortViolationError struct {
	Result Result
}

func (e CohortViolationError) Error() string {
	return fmt.Sprintf("cohort failed validation with %d violation(s)", len(e.Result.Violations))
}
