package pipeline

// Column names of the MIMIC-IV-ED extracts and of the derived cohort table.
// The raw CSV headers are lower case and the pipeline keeps them that way;
// only vital-sign measurements are renamed, through VitalsConfig.Vocabulary.
const (
	colSubjectID  = "subject_id"
	colHadmID     = "hadm_id"
	colStayID     = "stay_id"
	colTransferID = "transfer_id"
	colInTime     = "intime"
	colOutTime    = "outtime"
	colEventType  = "eventtype"
	colCareUnit   = "careunit"
	colChartTime  = "charttime"
	colGender     = "gender"
	colAnchorAge  = "anchor_age"
	colAnchorYear = "anchor_year"
	colDOD        = "dod"
	colAge        = "age"
	colAcuity     = "acuity"
	colESI        = "ESI"

	colNextTransferID = "next_transfer_id"
	colNextEventType  = "next_eventtype"
	colNextCareUnit   = "next_careunit"
	colNextInTime     = "next_intime"
	colNextOutTime    = "next_outtime"
)

// edEventType and edCareUnit identify the emergency-department leg of a
// hospital transfer history.
const (
	edEventType = "ED"
	edCareUnit  = "Emergency Department"
)
