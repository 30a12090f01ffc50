package admission

import (
	"fmt"
	"math"
	"time"
)

// Decision is the structured result of a state-transition guard. Callers
// must check Allowed before committing the transition.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// CanTransfer reports whether a bed transfer may be applied. Only stays
// in the admitted state move beds.
func CanTransfer(a *Admission) Decision {
	if a.Status != StatusAdmitted {
		return deny(fmt.Sprintf("cannot transfer a %s admission", a.Status))
	}
	return allow()
}

// CanDischarge reports whether a discharge may be applied.
func CanDischarge(a *Admission) Decision {
	switch a.Status {
	case StatusAdmitted, StatusTransferred, StatusDischargePending:
		return allow()
	default:
		return deny(fmt.Sprintf("cannot discharge a %s admission", a.Status))
	}
}

// ApplyTransfer appends the transfer to history and moves the current
// ward/bed pointer to the transfer's destination.
//
// The status deliberately stays "admitted" after a transfer; the
// transferred status exists in the enum but the workflow has never set
// it. Preserved as-is pending a product decision.
func ApplyTransfer(a *Admission, t BedTransfer) (*Admission, error) {
	if d := CanTransfer(a); !d.Allowed {
		return nil, fmt.Errorf("%s", d.Reason)
	}
	next := *a
	next.TransferHistory = make([]BedTransfer, len(a.TransferHistory), len(a.TransferHistory)+1)
	copy(next.TransferHistory, a.TransferHistory)
	next.TransferHistory = append(next.TransferHistory, t)
	next.CurrentWardID = t.ToWardID
	next.CurrentBedID = t.ToBedID
	return &next, nil
}

// DischargeData carries the caller-supplied discharge details.
type DischargeData struct {
	DischargeDate *time.Time `json:"dischargeDate,omitempty"`
	Reason        *string    `json:"reason,omitempty"`
	Disposition   *string    `json:"disposition,omitempty"`
}

// ApplyDischarge closes the stay: status becomes discharged, the
// discharge date defaults to now, and the actual length of stay is
// computed from the admit date.
func ApplyDischarge(a *Admission, data DischargeData, now time.Time) (*Admission, error) {
	if d := CanDischarge(a); !d.Allowed {
		return nil, fmt.Errorf("%s", d.Reason)
	}
	next := *a
	next.Status = StatusDischarged
	when := now
	if data.DischargeDate != nil {
		when = *data.DischargeDate
	}
	next.DischargeDate = &when
	los := CalculateLengthOfStay(a.AdmitDate, when)
	next.ActualLengthOfStay = &los
	next.DischargeReason = data.Reason
	next.DischargeDisposition = data.Disposition
	return &next, nil
}

// CalculateLengthOfStay returns the stay length in whole days, rounding
// any partial day up. Always non-negative.
func CalculateLengthOfStay(admit, end time.Time) int {
	hours := math.Abs(end.Sub(admit).Hours())
	return int(math.Ceil(hours / 24))
}

// FormatLengthOfStay renders a day count for display: plain days under a
// week, weeks+days under a month, months+days from thirty days up.
func FormatLengthOfStay(days int) string {
	switch {
	case days < 7:
		return plural(days, "day")
	case days < 30:
		weeks, rem := days/7, days%7
		if rem == 0 {
			return plural(weeks, "week")
		}
		return plural(weeks, "week") + ", " + plural(rem, "day")
	default:
		months, rem := days/30, days%30
		if rem == 0 {
			return plural(months, "month")
		}
		return plural(months, "month") + ", " + plural(rem, "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// IsOverdue reports whether an active stay has run past its estimated
// duration. Only meaningful for admitted stays with an estimate.
func IsOverdue(a *Admission, now time.Time) bool {
	if a.Status != StatusAdmitted || a.EstimatedStayDays == nil {
		return false
	}
	expected := a.AdmitDate.AddDate(0, 0, *a.EstimatedStayDays)
	return now.After(expected)
}

// CurrentLengthOfStay returns the running stay length for an open
// admission, or the recorded actual length once discharged.
func CurrentLengthOfStay(a *Admission, now time.Time) int {
	if a.ActualLengthOfStay != nil {
		return *a.ActualLengthOfStay
	}
	if a.DischargeDate != nil {
		return CalculateLengthOfStay(a.AdmitDate, *a.DischargeDate)
	}
	return CalculateLengthOfStay(a.AdmitDate, now)
}
