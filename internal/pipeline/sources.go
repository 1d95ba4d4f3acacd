package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"edcohort/pkg/table"
)

// Sources reads the raw MIMIC-IV-ED extracts from a directory. The five
// tables are plain CSV drops handed over from outside the pipeline, so they
// carry no artifact metadata and are not read through the artifact store.
type Sources struct {
	dir string
}

// NewSources returns a loader rooted at dir.
func NewSources(dir string) *Sources {
	return &Sources{dir: dir}
}

// Source file names expected under the sources directory.
const (
	filePatients  = "patients.csv"
	fileTransfers = "transfers.csv"
	fileEDStays   = "edstays.csv"
	fileTriage    = "triage.csv"
	fileVitalSign = "vitalsign.csv"
)

func (s *Sources) load(file, name string, timeColumns []string) (*table.Frame, error) {
	f, err := os.Open(filepath.Join(s.dir, file))
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", file, err)
	}
	defer f.Close()
	fr, err := table.Read(f, table.ReadOptions{Name: name, TimeColumns: timeColumns})
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", file, err)
	}
	return fr, nil
}

// Patients loads the patients extract. dod stays textual here; it is parsed
// as a timestamp only when the cohort artifact is reloaded.
func (s *Sources) Patients() (*table.Frame, error) {
	return s.load(filePatients, "patients", nil)
}

// Transfers loads the hospital transfer history.
func (s *Sources) Transfers() (*table.Frame, error) {
	return s.load(fileTransfers, "transfers", []string{colInTime, colOutTime})
}

// EDStays loads the emergency-department stay registry.
func (s *Sources) EDStays() (*table.Frame, error) {
	return s.load(fileEDStays, "edstays", []string{colInTime, colOutTime})
}

// Triage loads the triage assessments.
func (s *Sources) Triage() (*table.Frame, error) {
	return s.load(fileTriage, "triage", nil)
}

// VitalSigns loads the routine vital-sign measurements.
func (s *Sources) VitalSigns() (*table.Frame, error) {
	return s.load(fileVitalSign, "vitalsign", []string{colChartTime})
}
