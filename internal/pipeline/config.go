package pipeline

import "time"

// AdmissionsConfig parameterizes the admissions funnel.
type AdmissionsConfig struct {
	// AgeMin is the inclusive minimum age at ED arrival. Stays of younger
	// patients are dropped in S4.
	AgeMin int
	// ExcludedWards lists care units that disqualify a stay when they are
	// the destination of the second distinct transfer. Matching is exact.
	ExcludedWards []string
	// KeyPrefix is prepended to every artifact key the run writes.
	KeyPrefix string
}

// DefaultAdmissionsConfig returns the standard funnel parameters.
func DefaultAdmissionsConfig() AdmissionsConfig {
	return AdmissionsConfig{
		AgeMin: 18,
		ExcludedWards: []string{
			"Unknown",
			"Emergency Department",
			"Obstetrics Postpartum",
			"Obstetrics Antepartum",
			"Obstetrics (Postpartum & Antepartum)",
			"Psychiatry",
			"Labor & Delivery",
			"Observation",
			"Emergency Department Observation",
		},
	}
}

// VitalsConfig parameterizes vital-sign alignment and resampling.
type VitalsConfig struct {
	// AgeMin is the bound the reloaded cohort is validated against. It must
	// match the admissions run whose cohort this run consumes.
	AgeMin int
	// MinObsCount is the minimum number of rows a stay must contribute.
	MinObsCount int
	// MinNonMissingFrac is the minimum fraction of non-missing values a
	// feature column must reach within a stay. Stays below either bound
	// are removed whole.
	MinNonMissingFrac float64
	// Every is the resampling block width.
	Every time.Duration
	// TimeToEndCutoff keeps only block rows whose distance to the stay end
	// is at most this duration.
	TimeToEndCutoff time.Duration
	// Vocabulary maps raw vital-sign columns to canonical feature names.
	Vocabulary map[string]string
	// Features lists the canonical feature columns in output order.
	Features []string
	// KeyPrefix is prepended to every artifact key the run writes. It must
	// match the admissions run whose cohort this run consumes.
	KeyPrefix string
}

// DefaultVitalsConfig returns the standard alignment parameters.
func DefaultVitalsConfig() VitalsConfig {
	return VitalsConfig{
		AgeMin:            18,
		MinObsCount:       3,
		MinNonMissingFrac: 0.6,
		Every:             time.Hour,
		TimeToEndCutoff:   90 * time.Minute,
		Vocabulary: map[string]string{
			"temperature": "TEMP",
			"heartrate":   "HR",
			"resprate":    "RR",
			"o2sat":       "SPO2",
			"sbp":         "SBP",
			"dbp":         "DBP",
		},
		Features: []string{"TEMP", "HR", "RR", "SPO2", "SBP", "DBP"},
	}
}

// Artifact keys written by the two pipelines, relative to the key prefix.
const (
	keyAdmissionsS1           = "admissions_S1.csv"
	keyAdmissionsS2           = "admissions_S2.csv"
	keyAdmissionsS3           = "admissions_S3.csv"
	keyAdmissionsS4           = "admissions_S4.csv"
	keyAdmissionsS5           = "admissions_S5.csv"
	keyAdmissionsIntermediate = "admissions_intermediate.csv"

	keyVitalsS1           = "vitals_S1.csv"
	keyVitalsS2           = "vitals_S2.csv"
	keyVitalsS3           = "vitals_S3.csv"
	keyVitalsS4           = "vitals_S4.csv"
	keyVitalsS5           = "vitals_S5.csv"
	keyVitalsIntermediate = "vitals_intermediate.csv"
)

func artifactKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
