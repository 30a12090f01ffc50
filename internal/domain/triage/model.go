package triage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a triage encounter.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Assessment enumerations. Values mirror the clinical pick-lists used at
// the triage desk; the classifier matches on them verbatim.
type (
	Consciousness string
	Airway        string
	Breathing     string
	Circulation   string
	Mobility      string
)

const (
	ConsciousnessAlert           Consciousness = "alert"
	ConsciousnessRespondsToVoice Consciousness = "responds_to_voice"
	ConsciousnessRespondsToPain  Consciousness = "responds_to_pain"
	ConsciousnessUnresponsive    Consciousness = "unresponsive"

	AirwayPatent      Airway = "patent"
	AirwayAtRisk      Airway = "at_risk"
	AirwayCompromised Airway = "compromised"
	AirwayObstructed  Airway = "obstructed"

	BreathingNormal     Breathing = "normal"
	BreathingLabored    Breathing = "labored"
	BreathingDistressed Breathing = "distressed"
	BreathingApneic     Breathing = "apneic"

	CirculationNormal        Circulation = "normal"
	CirculationCompensated   Circulation = "compensated"
	CirculationDecompensated Circulation = "decompensated"
	CirculationArrest        Circulation = "arrest"

	MobilityIndependent Mobility = "independent"
	MobilityAssisted    Mobility = "assisted"
	MobilityImmobile    Mobility = "immobile"
)

// Vitals is a structured vital-signs snapshot. Every field is optional;
// an absent measurement never counts as abnormal.
type Vitals struct {
	Temperature      *float64 `db:"temperature" json:"temperature,omitempty"`
	BPSystolic       *int     `db:"bp_systolic" json:"bpSystolic,omitempty"`
	BPDiastolic      *int     `db:"bp_diastolic" json:"bpDiastolic,omitempty"`
	HeartRate        *int     `db:"heart_rate" json:"heartRate,omitempty"`
	RespiratoryRate  *int     `db:"respiratory_rate" json:"respiratoryRate,omitempty"`
	OxygenSaturation *int     `db:"oxygen_saturation" json:"oxygenSaturation,omitempty"`
	Glucose          *float64 `db:"glucose" json:"glucose,omitempty"`
}

// Triage is one emergency-department triage encounter. The level,
// category and hasRedFlags fields are derived by the classifier and must
// never be hand-set inconsistently with the clinical inputs.
//
// Field names in the json tags are the wire contract with the UI layer.
type Triage struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TriageNumber string    `db:"triage_number" json:"triageNumber"`
	PatientID    uuid.UUID `db:"patient_id" json:"patientId"`

	ChiefComplaint string `db:"chief_complaint" json:"chiefComplaint"`

	Consciousness Consciousness `db:"consciousness" json:"consciousness"`
	Airway        Airway        `db:"airway" json:"airway"`
	Breathing     Breathing     `db:"breathing" json:"breathing"`
	Circulation   Circulation   `db:"circulation" json:"circulation"`
	Mobility      Mobility      `db:"mobility" json:"mobility"`
	PainLevel     *int          `db:"pain_level" json:"painLevel,omitempty"`

	Vitals      Vitals   `db:"-" json:"vitals"`
	RedFlags    []string `db:"red_flags" json:"redFlags"`
	HasRedFlags bool     `db:"has_red_flags" json:"hasRedFlags"`

	Level    int    `db:"level" json:"level"`
	Category string `db:"category" json:"category"`
	Status   Status `db:"status" json:"status"`

	TriageStartTime  time.Time  `db:"triage_start_time" json:"triageStartTime"`
	TriageEndTime    *time.Time `db:"triage_end_time" json:"triageEndTime,omitempty"`
	SeenByDoctorTime *time.Time `db:"seen_by_doctor_time" json:"seenByDoctorTime,omitempty"`

	TriagedBy *uuid.UUID `db:"triaged_by" json:"triagedBy,omitempty"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// categoryByLevel is the display category for each triage level. The map
// is complete over levels 1-5; classifier output never falls outside it.
var categoryByLevel = map[int]string{
	1: "resuscitation",
	2: "emergency",
	3: "urgent",
	4: "semi_urgent",
	5: "non_urgent",
}

// colorByLevel is the UI banner colour per level.
var colorByLevel = map[int]string{
	1: "red",
	2: "orange",
	3: "yellow",
	4: "green",
	5: "blue",
}

// statusLabels maps every status to its display string.
var statusLabels = map[Status]string{
	StatusWaiting:    "Waiting",
	StatusInProgress: "In Progress",
	StatusCompleted:  "Completed",
	StatusCancelled:  "Cancelled",
}

// CategoryForLevel returns the display category for a triage level.
func CategoryForLevel(level int) string { return categoryByLevel[level] }

// ColorForLevel returns the UI colour code for a triage level.
func ColorForLevel(level int) string { return colorByLevel[level] }

// Label returns the display string for a status, or the raw value for an
// unknown status.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether the triage encounter can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Validate fails fast on records that violate the stated invariants.
// Violations are programmer errors, not user input problems.
func (t *Triage) Validate() error {
	if t.HasRedFlags != (len(t.RedFlags) > 0) {
		return fmt.Errorf("triage %s: hasRedFlags=%v inconsistent with %d red flags",
			t.TriageNumber, t.HasRedFlags, len(t.RedFlags))
	}
	if t.Level < 1 || t.Level > 5 {
		return fmt.Errorf("triage %s: level %d out of range 1-5", t.TriageNumber, t.Level)
	}
	if want := CalculateLevel(t.Inputs()); t.Level != want {
		return fmt.Errorf("triage %s: level %d does not match classifier output %d",
			t.TriageNumber, t.Level, want)
	}
	return nil
}

// Inputs extracts the classifier inputs from the current snapshot.
func (t *Triage) Inputs() Inputs {
	return Inputs{
		Consciousness: t.Consciousness,
		Airway:        t.Airway,
		Breathing:     t.Breathing,
		Circulation:   t.Circulation,
		Mobility:      t.Mobility,
		PainLevel:     t.PainLevel,
		HasRedFlags:   len(t.RedFlags) > 0,
	}
}

// Reclassify recomputes the derived fields from the current clinical
// inputs. Call after any mutation of assessment data.
func (t *Triage) Reclassify() {
	t.HasRedFlags = len(t.RedFlags) > 0
	t.Level = CalculateLevel(t.Inputs())
	t.Category = categoryByLevel[t.Level]
}
