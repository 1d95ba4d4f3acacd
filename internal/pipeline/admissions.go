package pipeline

import (
	"fmt"
	"strconv"

	"edcohort/pkg/table"
)

// Diagnostics counts data oddities a run resolved by explicit policy. The
// counts are not errors; they travel with the run record into the journal so
// a cohort change can be traced back to its cause in the extracts.
type Diagnostics struct {
	// AmbiguousNextTransfers counts candidate follow-on transfer rows that
	// were discarded because an earlier intime won for the same subject.
	AmbiguousNextTransfers int
	// DuplicateTriageRows counts triage rows discarded as duplicates of an
	// earlier row for the same stay.
	DuplicateTriageRows int
}

func (d Diagnostics) counts() map[string]int {
	m := make(map[string]int)
	if d.AmbiguousNextTransfers > 0 {
		m["ambiguous_next_transfers"] = d.AmbiguousNextTransfers
	}
	if d.DuplicateTriageRows > 0 {
		m["duplicate_triage_rows"] = d.DuplicateTriageRows
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func (d *Diagnostics) add(other Diagnostics) {
	d.AmbiguousNextTransfers += other.AmbiguousNextTransfers
	d.DuplicateTriageRows += other.DuplicateTriageRows
}

// lastStayPerSubject keeps one canonical ED stay per patient: the stay with
// the latest arrival, then the latest departure among ties. Duplicate-logged
// stays carry identical endpoints, so they collapse to a single row here.
func lastStayPerSubject(edstays *table.Frame) (*table.Frame, error) {
	byArrival, err := table.SelectEndpoint(edstays, colSubjectID, colInTime, table.EndpointMax)
	if err != nil {
		return nil, err
	}
	return table.SelectEndpoint(byArrival, colSubjectID, colOutTime, table.EndpointMax)
}

// edFirstWard keeps, per subject, the earliest transfer, then filters to
// those that are the emergency department itself.
func edFirstWard(transfers *table.Frame) (*table.Frame, error) {
	first, err := table.SelectEndpoint(transfers, colSubjectID, colInTime, table.EndpointMin)
	if err != nil {
		return nil, err
	}
	return first.Filter(func(r table.RowView) bool {
		return r.String(colEventType) == edEventType && r.String(colCareUnit) == edCareUnit
	}), nil
}

// admittedViaED restricts the stay set to subjects whose hospital course
// began in the ED. The four-column key also requires the transfer to carry
// the stay's exact window, which ties the stay to its own admission rather
// than to an unrelated visit of the same subject.
func admittedViaED(s1, transfers *table.Frame) (*table.Frame, error) {
	edFirst, err := edFirstWard(transfers)
	if err != nil {
		return nil, err
	}
	return table.Restrict(s1, edFirst, []string{colSubjectID, colHadmID, colInTime, colOutTime})
}

// relevantSecondTransfer finds the ward reached after the ED per subject and
// drops subjects routed to an excluded unit.
func relevantSecondTransfer(transfersS2 *table.Frame, excluded []string) (*table.Frame, error) {
	second, err := table.SecondDistinctEvent(transfersS2, colSubjectID, colInTime)
	if err != nil {
		return nil, err
	}
	drop := make(map[string]struct{}, len(excluded))
	for _, ward := range excluded {
		drop[ward] = struct{}{}
	}
	return second.Filter(func(r table.RowView) bool {
		_, skip := drop[r.String(colCareUnit)]
		return !skip
	}), nil
}

// relevantNextWard builds the S3 survivor set: stays whose second transfer
// reaches a relevant ward, enriched with the patient master data and with
// that second transfer's columns under next_ names.
func relevantNextWard(s2, transfers, patients *table.Frame, excluded []string, diags *Diagnostics) (*table.Frame, error) {
	transfersS2, err := table.Restrict(transfers, s2, []string{colSubjectID, colHadmID})
	if err != nil {
		return nil, err
	}
	relevant, err := relevantSecondTransfer(transfersS2, excluded)
	if err != nil {
		return nil, err
	}
	s3, err := table.Restrict(s2, relevant, []string{colSubjectID, colHadmID})
	if err != nil {
		return nil, err
	}
	s3, err = enrichPatients(s3, patients)
	if err != nil {
		return nil, err
	}
	return enrichNextTransfer(s3, relevant, diags)
}

// enrichPatients joins gender, anchor_age, anchor_year and dod onto the
// stay set by subject_id. A surviving stay without a patient row means the
// extracts disagree with each other, which aborts the run.
func enrichPatients(f, patients *table.Frame) (*table.Frame, error) {
	byID := make(map[string]table.RowView, patients.NumRows())
	for i := 0; i < patients.NumRows(); i++ {
		r := patients.View(i)
		id := r.String(colSubjectID)
		if _, ok := byID[id]; !ok {
			byID[id] = r
		}
	}
	out := f
	for _, col := range []string{colGender, colAnchorAge, colAnchorYear, colDOD} {
		var err error
		out, err = out.WithColumn(col, func(r table.RowView) (any, error) {
			p, ok := byID[r.String(colSubjectID)]
			if !ok {
				return nil, fmt.Errorf("no patient row for subject %s", r.String(colSubjectID))
			}
			return p.Value(col), nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Second-transfer columns attached to the cohort, in output order. Each
// source column gains a next_ prefix.
var nextTransferColumns = [...][2]string{
	{colNextTransferID, colTransferID},
	{colNextEventType, colEventType},
	{colNextCareUnit, colCareUnit},
	{colNextInTime, colInTime},
	{colNextOutTime, colOutTime},
}

// enrichNextTransfer attaches the follow-on transfer's columns by
// subject_id. The relevant set normally holds one row per subject; should it
// hold more, the earliest intime wins and every losing row is counted in the
// diagnostics.
func enrichNextTransfer(f, relevant *table.Frame, diags *Diagnostics) (*table.Frame, error) {
	chosen := make(map[string]table.RowView, relevant.NumRows())
	for i := 0; i < relevant.NumRows(); i++ {
		r := relevant.View(i)
		id := r.String(colSubjectID)
		cur, ok := chosen[id]
		if !ok {
			chosen[id] = r
			continue
		}
		if diags != nil {
			diags.AmbiguousNextTransfers++
		}
		rt, rok := r.Time(colInTime)
		ct, cok := cur.Time(colInTime)
		if rok && (!cok || rt.Before(ct)) {
			chosen[id] = r
		}
	}
	out := f
	for _, pair := range nextTransferColumns {
		next, src := pair[0], pair[1]
		var err error
		out, err = out.WithColumn(next, func(r table.RowView) (any, error) {
			t, ok := chosen[r.String(colSubjectID)]
			if !ok {
				return nil, fmt.Errorf("no second transfer for subject %s", r.String(colSubjectID))
			}
			return t.Value(src), nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// adults computes age at ED arrival and keeps stays at or above the bound.
// The anchor fields arrive as text from the patients extract; a value that
// does not parse is a structural defect, not a missing measurement.
func adults(f *table.Frame, ageMin int) (*table.Frame, error) {
	withAge, err := f.WithColumn(colAge, func(r table.RowView) (any, error) {
		arrival, ok := r.Time(colInTime)
		if !ok {
			return nil, fmt.Errorf("missing %s", colInTime)
		}
		anchorYear, err := strconv.Atoi(r.String(colAnchorYear))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", colAnchorYear, err)
		}
		anchorAge, err := strconv.Atoi(r.String(colAnchorAge))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", colAnchorAge, err)
		}
		return int64(arrival.Year() - anchorYear + anchorAge), nil
	})
	if err != nil {
		return nil, err
	}
	return withAge.Filter(func(r table.RowView) bool {
		age, _ := r.Value(colAge).(int64)
		return age >= int64(ageMin)
	}), nil
}

// triageKnown attaches the triage acuity score under the ESI column and
// keeps stays with a known score. The first triage row per stay wins; later
// rows are counted as duplicates.
func triageKnown(f, triage *table.Frame, diags *Diagnostics) (*table.Frame, error) {
	byStay := make(map[string]string, triage.NumRows())
	for i := 0; i < triage.NumRows(); i++ {
		r := triage.View(i)
		stay := r.String(colStayID)
		if _, ok := byStay[stay]; ok {
			if diags != nil {
				diags.DuplicateTriageRows++
			}
			continue
		}
		byStay[stay] = r.String(colAcuity)
	}
	withESI, err := f.WithColumn(colESI, func(r table.RowView) (any, error) {
		return byStay[r.String(colStayID)], nil
	})
	if err != nil {
		return nil, err
	}
	return withESI.Filter(func(r table.RowView) bool {
		return !r.Missing(colESI)
	}), nil
}
