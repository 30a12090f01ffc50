package mar

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// frequencyTimes maps a prescription frequency code to its time-of-day
// slots. The table is the dosing contract with the prescribing layer.
var frequencyTimes = map[string][]string{
	"OD":   {"08:00"},
	"BD":   {"08:00", "20:00"},
	"TDS":  {"08:00", "14:00", "20:00"},
	"QDS":  {"08:00", "12:00", "18:00", "22:00"},
	"Q4H":  {"06:00", "10:00", "14:00", "18:00", "22:00", "02:00"},
	"Q6H":  {"06:00", "12:00", "18:00", "00:00"},
	"Q8H":  {"06:00", "14:00", "22:00"},
	"Q12H": {"08:00", "20:00"},
	"HS":   {"22:00"},
	"AC":   {"07:30", "11:30", "17:30"},
	"PC":   {"09:00", "13:00", "19:00"},
	"QAM":  {"08:00"},
	"QPM":  {"20:00"},
}

// defaultTimes is the permissive fallback for unknown frequency codes.
var defaultTimes = []string{"08:00"}

// TimesForFrequency returns the time slots for a frequency code. The
// second return reports whether the code is known; unknown codes fall
// back to a single morning dose.
func TimesForFrequency(code string) ([]string, bool) {
	if times, ok := frequencyTimes[code]; ok {
		return times, true
	}
	return defaultTimes, false
}

// PrescriptionItem is the slice of a prescription the scheduler needs.
type PrescriptionItem struct {
	ID                  uuid.UUID `json:"id"`
	MedicationName      string    `json:"medicationName"`
	Dose                string    `json:"dose"`
	Route               string    `json:"route"`
	Frequency           string    `json:"frequency"`
	ControlledSubstance bool      `json:"controlledSubstance"`
}

// ScheduleOptions tune schedule generation. Strict rejects unknown
// frequency codes instead of defaulting to a single 08:00 dose.
type ScheduleOptions struct {
	Strict bool
}

// GenerateSchedule produces one scheduled dose per (day offset, time
// slot) for the prescription item: days × slots records, all in the
// scheduled state. RequiresWitness follows the controlled-substance
// flag. Record numbers are assigned at persistence time, not here.
func GenerateSchedule(item PrescriptionItem, admissionID, patientID uuid.UUID, startDate time.Time, days int, opts ScheduleOptions) ([]*Administration, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	times, known := TimesForFrequency(item.Frequency)
	if !known && opts.Strict {
		return nil, fmt.Errorf("unknown frequency code %q", item.Frequency)
	}

	day := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, startDate.Location())
	itemID := item.ID
	doses := make([]*Administration, 0, days*len(times))
	for offset := 0; offset < days; offset++ {
		date := day.AddDate(0, 0, offset)
		for _, slot := range times {
			hhmm, err := time.Parse("15:04", slot)
			if err != nil {
				return nil, fmt.Errorf("frequency table slot %q: %w", slot, err)
			}
			doses = append(doses, &Administration{
				ID:                 uuid.New(),
				AdmissionID:        admissionID,
				PatientID:          patientID,
				PrescriptionItemID: &itemID,
				MedicationName:     item.MedicationName,
				Dose:               item.Dose,
				Route:              item.Route,
				Frequency:          item.Frequency,
				ScheduledDate:      date,
				ScheduledTime:      slot,
				ScheduledDateTime:  date.Add(time.Duration(hhmm.Hour())*time.Hour + time.Duration(hhmm.Minute())*time.Minute),
				Status:             StatusScheduled,
				RequiresWitness:    item.ControlledSubstance,
			})
		}
	}
	return doses, nil
}

const (
	// overdueGrace is how far past the scheduled time a dose may run
	// before it counts as overdue.
	overdueGrace = 30 * time.Minute
	// dueSoonWindow is how far ahead of the scheduled time a dose shows
	// on the due-soon worklist.
	dueSoonWindow = 30 * time.Minute
	// earlyLimit is how far ahead of the scheduled time a dose may be
	// recorded as given.
	earlyLimit = 60 * time.Minute
)

// IsOverdue reports whether an open dose has run past its grace period.
// Derived only; the stored status changes through explicit calls.
func IsOverdue(a *Administration, now time.Time) bool {
	if a.Status != StatusScheduled && a.Status != StatusDue {
		return false
	}
	return now.After(a.ScheduledDateTime.Add(overdueGrace))
}

// IsDueSoon reports whether a scheduled dose comes up within the next
// thirty minutes.
func IsDueSoon(a *Administration, now time.Time) bool {
	if a.Status != StatusScheduled {
		return false
	}
	until := a.ScheduledDateTime.Sub(now)
	return until > 0 && until <= dueSoonWindow
}

// Decision is the structured result of the give guard.
type Decision struct {
	CanRecord bool   `json:"canRecord"`
	Reason    string `json:"reason,omitempty"`
}

// CanRecordGiven reports whether the dose may be recorded as given now.
// Doses can always be recorded late; only the sixty-minute early window
// is enforced.
func CanRecordGiven(a *Administration, now time.Time) Decision {
	switch a.Status {
	case StatusGiven:
		return Decision{Reason: "dose already recorded as given"}
	case StatusCancelled:
		return Decision{Reason: "dose is cancelled"}
	case StatusDiscontinued:
		return Decision{Reason: "dose is discontinued"}
	}
	if a.ScheduledDateTime.Sub(now) > earlyLimit {
		return Decision{Reason: "too early: more than 60 minutes before scheduled time"}
	}
	return Decision{CanRecord: true}
}

// GivenData carries the caller-supplied administration details.
// ActualDose defaults to the planned dose when omitted.
type GivenData struct {
	By         uuid.UUID `json:"by"`
	ByName     string    `json:"byName"`
	ActualDose *string   `json:"actualDose,omitempty"`
	Site       *string   `json:"site,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
}

// RecordGiven marks the dose given, guarded by CanRecordGiven.
// Copy-on-write: the input snapshot is not mutated.
func RecordGiven(a *Administration, data GivenData, now time.Time) (*Administration, error) {
	if d := CanRecordGiven(a, now); !d.CanRecord {
		return nil, fmt.Errorf("%s", d.Reason)
	}
	next := *a
	next.Status = StatusGiven
	when := now
	next.AdministeredDateTime = &when
	by := data.By
	next.AdministeredBy = &by
	if data.ByName != "" {
		name := data.ByName
		next.AdministeredByName = &name
	}
	actual := a.Dose
	if data.ActualDose != nil {
		actual = *data.ActualDose
	}
	next.ActualDose = &actual
	next.Site = data.Site
	next.Notes = data.Notes
	next.StatusReason = nil
	return &next, nil
}

// RecordHeld marks the dose held with a reason. Nothing else changes.
func RecordHeld(a *Administration, reason string) (*Administration, error) {
	return closeWithReason(a, StatusHeld, reason)
}

// RecordRefused marks the dose refused by the patient with a reason.
func RecordRefused(a *Administration, reason string) (*Administration, error) {
	return closeWithReason(a, StatusRefused, reason)
}

func closeWithReason(a *Administration, to Status, reason string) (*Administration, error) {
	if a.Status.Terminal() {
		return nil, fmt.Errorf("dose is already %s", a.Status)
	}
	if reason == "" {
		return nil, fmt.Errorf("a reason is required to mark a dose %s", to)
	}
	next := *a
	next.Status = to
	next.StatusReason = &reason
	return &next, nil
}

// AddWitness records the second signature on a controlled dose. It is
// independent of status and may land before or after RecordGiven.
func AddWitness(a *Administration, witnessID uuid.UUID, witnessName string, now time.Time) *Administration {
	next := *a
	id := witnessID
	next.WitnessID = &id
	if witnessName != "" {
		name := witnessName
		next.WitnessName = &name
	}
	when := now
	next.WitnessedAt = &when
	return &next
}

// DelayMinutes returns how many minutes late the dose was given, nil
// until it is given. Negative means early.
func DelayMinutes(a *Administration) *int {
	if a.AdministeredDateTime == nil {
		return nil
	}
	minutes := int(a.AdministeredDateTime.Sub(a.ScheduledDateTime).Minutes())
	return &minutes
}
