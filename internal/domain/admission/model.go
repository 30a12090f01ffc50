package admission

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an inpatient stay.
type Status string

const (
	StatusAdmitted         Status = "admitted"
	StatusTransferred      Status = "transferred"
	StatusDischargePending Status = "discharge_pending"
	StatusDischarged       Status = "discharged"
	StatusDeceased         Status = "deceased"
	StatusAbsconded        Status = "absconded"
	StatusCancelled        Status = "cancelled"
)

// terminalStatuses are stays that can never change again.
var terminalStatuses = map[Status]bool{
	StatusDischarged: true,
	StatusDeceased:   true,
	StatusCancelled:  true,
	StatusAbsconded:  true,
}

// Terminal reports whether the stay has reached a final state.
func (s Status) Terminal() bool { return terminalStatuses[s] }

// statusLabels maps every status to its display string; the table is
// complete over the enum so the UI never falls back to raw values.
var statusLabels = map[Status]string{
	StatusAdmitted:         "Admitted",
	StatusTransferred:      "Transferred",
	StatusDischargePending: "Discharge Pending",
	StatusDischarged:       "Discharged",
	StatusDeceased:         "Deceased",
	StatusAbsconded:        "Absconded",
	StatusCancelled:        "Cancelled",
}

var statusColors = map[Status]string{
	StatusAdmitted:         "green",
	StatusTransferred:      "teal",
	StatusDischargePending: "amber",
	StatusDischarged:       "gray",
	StatusDeceased:         "black",
	StatusAbsconded:        "red",
	StatusCancelled:        "gray",
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

// Admission is one inpatient stay. CurrentWardID/CurrentBedID always
// equal the destination of the last transfer, or the original placement
// when no transfers exist; TransferHistory is append-only.
type Admission struct {
	ID              uuid.UUID `db:"id" json:"id"`
	AdmissionNumber string    `db:"admission_number" json:"admissionNumber"`
	PatientID       uuid.UUID `db:"patient_id" json:"patientId"`

	Status    Status `db:"status" json:"status"`
	Type      string `db:"type" json:"type"`
	CareLevel string `db:"care_level" json:"careLevel"`

	CurrentWardID uuid.UUID `db:"current_ward_id" json:"currentWardId"`
	CurrentBedID  uuid.UUID `db:"current_bed_id" json:"currentBedId"`

	TransferHistory []BedTransfer `db:"-" json:"transferHistory"`

	AdmitDate          time.Time  `db:"admit_date" json:"admitDate"`
	DischargeDate      *time.Time `db:"discharge_date" json:"dischargeDate,omitempty"`
	EstimatedStayDays  *int       `db:"estimated_stay_days" json:"estimatedStayDays,omitempty"`
	ActualLengthOfStay *int       `db:"actual_length_of_stay" json:"actualLengthOfStay,omitempty"`

	DischargeReason      *string `db:"discharge_reason" json:"dischargeReason,omitempty"`
	DischargeDisposition *string `db:"discharge_disposition" json:"dischargeDisposition,omitempty"`

	AdmittingDoctorID *uuid.UUID `db:"admitting_doctor_id" json:"admittingDoctorId,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// BedTransfer is an immutable audit record of one bed or ward move.
// From fields are nil on the initial placement row.
type BedTransfer struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	AdmissionID uuid.UUID  `db:"admission_id" json:"admissionId"`
	FromWardID  *uuid.UUID `db:"from_ward_id" json:"fromWardId,omitempty"`
	FromBedID   *uuid.UUID `db:"from_bed_id" json:"fromBedId,omitempty"`
	ToWardID    uuid.UUID  `db:"to_ward_id" json:"toWardId"`
	ToBedID     uuid.UUID  `db:"to_bed_id" json:"toBedId"`

	TransferDate  time.Time  `db:"transfer_date" json:"transferDate"`
	Reason        string     `db:"reason" json:"reason"`
	OrderedBy     uuid.UUID  `db:"ordered_by" json:"orderedBy"`
	TransferredBy *uuid.UUID `db:"transferred_by" json:"transferredBy,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
