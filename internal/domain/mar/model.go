package mar

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the state of a single scheduled dose occurrence.
type Status string

const (
	StatusScheduled    Status = "scheduled"
	StatusDue          Status = "due"
	StatusOverdue      Status = "overdue"
	StatusGiven        Status = "given"
	StatusHeld         Status = "held"
	StatusRefused      Status = "refused"
	StatusOmitted      Status = "omitted"
	StatusNotAvailable Status = "not_available"
	StatusCancelled    Status = "cancelled"
	StatusDiscontinued Status = "discontinued"
)

// terminalStatuses close the dose occurrence; only scheduled/due/overdue
// doses can still move.
var terminalStatuses = map[Status]bool{
	StatusGiven:        true,
	StatusHeld:         true,
	StatusRefused:      true,
	StatusOmitted:      true,
	StatusNotAvailable: true,
	StatusCancelled:    true,
	StatusDiscontinued: true,
}

func (s Status) Terminal() bool { return terminalStatuses[s] }

var statusLabels = map[Status]string{
	StatusScheduled:    "Scheduled",
	StatusDue:          "Due",
	StatusOverdue:      "Overdue",
	StatusGiven:        "Given",
	StatusHeld:         "Held",
	StatusRefused:      "Refused",
	StatusOmitted:      "Omitted",
	StatusNotAvailable: "Not Available",
	StatusCancelled:    "Cancelled",
	StatusDiscontinued: "Discontinued",
}

var statusColors = map[Status]string{
	StatusScheduled:    "blue",
	StatusDue:          "amber",
	StatusOverdue:      "red",
	StatusGiven:        "green",
	StatusHeld:         "orange",
	StatusRefused:      "purple",
	StatusOmitted:      "gray",
	StatusNotAvailable: "gray",
	StatusCancelled:    "gray",
	StatusDiscontinued: "gray",
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s Status) Color() string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return "gray"
}

// Administration is one scheduled dose on the medication administration
// record. ScheduledDateTime is immutable once created; witness fields
// are independent of status.
type Administration struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	AdministrationNumber string     `db:"administration_number" json:"administrationNumber"`
	AdmissionID          uuid.UUID  `db:"admission_id" json:"admissionId"`
	PatientID            uuid.UUID  `db:"patient_id" json:"patientId"`
	PrescriptionItemID   *uuid.UUID `db:"prescription_item_id" json:"prescriptionItemId,omitempty"`

	MedicationName string `db:"medication_name" json:"medicationName"`
	Dose           string `db:"dose" json:"dose"`
	Route          string `db:"route" json:"route"`
	Frequency      string `db:"frequency" json:"frequency"`

	ScheduledDate     time.Time `db:"scheduled_date" json:"scheduledDate"`
	ScheduledTime     string    `db:"scheduled_time" json:"scheduledTime"`
	ScheduledDateTime time.Time `db:"scheduled_datetime" json:"scheduledDateTime"`

	Status Status `db:"status" json:"status"`

	AdministeredDateTime *time.Time `db:"administered_datetime" json:"administeredDateTime,omitempty"`
	AdministeredBy       *uuid.UUID `db:"administered_by" json:"administeredBy,omitempty"`
	AdministeredByName   *string    `db:"administered_by_name" json:"administeredByName,omitempty"`
	ActualDose           *string    `db:"actual_dose" json:"actualDose,omitempty"`
	Site                 *string    `db:"site" json:"site,omitempty"`
	Notes                *string    `db:"notes" json:"notes,omitempty"`

	RequiresWitness bool       `db:"requires_witness" json:"requiresWitness"`
	WitnessID       *uuid.UUID `db:"witness_id" json:"witnessId,omitempty"`
	WitnessName     *string    `db:"witness_name" json:"witnessName,omitempty"`
	WitnessedAt     *time.Time `db:"witnessed_at" json:"witnessedAt,omitempty"`

	StatusReason *string `db:"status_reason" json:"statusReason,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate fails fast on records that violate the dose invariants:
// administered fields are set exactly when the dose is given, and a
// status reason is set exactly when the dose is held or refused.
func (a *Administration) Validate() error {
	given := a.Status == StatusGiven
	if given && (a.AdministeredDateTime == nil || a.AdministeredBy == nil) {
		return fmt.Errorf("given dose must carry administeredDateTime and administeredBy")
	}
	if !given && (a.AdministeredDateTime != nil || a.AdministeredBy != nil) {
		return fmt.Errorf("administered fields set on a %s dose", a.Status)
	}
	needsReason := a.Status == StatusHeld || a.Status == StatusRefused
	if needsReason && a.StatusReason == nil {
		return fmt.Errorf("%s dose must carry a statusReason", a.Status)
	}
	if !needsReason && a.StatusReason != nil {
		return fmt.Errorf("statusReason set on a %s dose", a.Status)
	}
	return nil
}
