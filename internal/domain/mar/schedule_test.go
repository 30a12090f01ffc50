package mar

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func strp(s string) *string { return &s }

var schedStart = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

func testItem(frequency string) PrescriptionItem {
	return PrescriptionItem{
		ID:             uuid.New(),
		MedicationName: "amoxicillin",
		Dose:           "500mg",
		Route:          "PO",
		Frequency:      frequency,
	}
}

func TestTimesForFrequency_Table(t *testing.T) {
	tests := []struct {
		code string
		want []string
	}{
		{"OD", []string{"08:00"}},
		{"BD", []string{"08:00", "20:00"}},
		{"TDS", []string{"08:00", "14:00", "20:00"}},
		{"QDS", []string{"08:00", "12:00", "18:00", "22:00"}},
		{"Q4H", []string{"06:00", "10:00", "14:00", "18:00", "22:00", "02:00"}},
		{"Q6H", []string{"06:00", "12:00", "18:00", "00:00"}},
		{"Q8H", []string{"06:00", "14:00", "22:00"}},
		{"Q12H", []string{"08:00", "20:00"}},
		{"HS", []string{"22:00"}},
		{"AC", []string{"07:30", "11:30", "17:30"}},
		{"PC", []string{"09:00", "13:00", "19:00"}},
		{"QAM", []string{"08:00"}},
		{"QPM", []string{"20:00"}},
	}
	for _, tt := range tests {
		times, known := TimesForFrequency(tt.code)
		if !known {
			t.Errorf("%s should be a known code", tt.code)
		}
		if len(times) != len(tt.want) {
			t.Errorf("%s: %d slots, want %d", tt.code, len(times), len(tt.want))
			continue
		}
		for i := range times {
			if times[i] != tt.want[i] {
				t.Errorf("%s[%d] = %s, want %s", tt.code, i, times[i], tt.want[i])
			}
		}
	}
}

func TestTimesForFrequency_UnknownDefaults(t *testing.T) {
	times, known := TimesForFrequency("PRN")
	if known {
		t.Error("PRN should not be a known code")
	}
	if len(times) != 1 || times[0] != "08:00" {
		t.Errorf("unknown code should default to a single 08:00 slot, got %v", times)
	}
}

func TestGenerateSchedule_TDS(t *testing.T) {
	doses, err := GenerateSchedule(testItem("TDS"), uuid.New(), uuid.New(), schedStart, 2, ScheduleOptions{})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(doses) != 6 {
		t.Fatalf("dose count = %d, want 6", len(doses))
	}
	want := []time.Time{
		time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 14, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 20, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 2, 14, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 2, 20, 0, 0, 0, time.UTC),
	}
	for i, dose := range doses {
		if !dose.ScheduledDateTime.Equal(want[i]) {
			t.Errorf("dose %d at %v, want %v", i, dose.ScheduledDateTime, want[i])
		}
		if dose.Status != StatusScheduled {
			t.Errorf("dose %d status = %s, want scheduled", i, dose.Status)
		}
		if dose.RequiresWitness {
			t.Errorf("dose %d should not require a witness", i)
		}
	}
	if doses[0].ScheduledTime != "08:00" || doses[1].ScheduledTime != "14:00" {
		t.Error("scheduledTime should carry the slot string")
	}
}

func TestGenerateSchedule_ControlledSubstance(t *testing.T) {
	item := testItem("BD")
	item.ControlledSubstance = true
	doses, err := GenerateSchedule(item, uuid.New(), uuid.New(), schedStart, 1, ScheduleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, dose := range doses {
		if !dose.RequiresWitness {
			t.Error("controlled substance doses must require a witness")
		}
	}
}

func TestGenerateSchedule_UnknownFrequency(t *testing.T) {
	// Permissive mode: a single 08:00 dose per day.
	doses, err := GenerateSchedule(testItem("PRN"), uuid.New(), uuid.New(), schedStart, 3, ScheduleOptions{})
	if err != nil {
		t.Fatalf("permissive mode: %v", err)
	}
	if len(doses) != 3 {
		t.Errorf("dose count = %d, want 3", len(doses))
	}

	// Strict mode rejects.
	_, err = GenerateSchedule(testItem("PRN"), uuid.New(), uuid.New(), schedStart, 3, ScheduleOptions{Strict: true})
	if err == nil || !strings.Contains(err.Error(), "unknown frequency") {
		t.Errorf("strict mode: got %v, want unknown frequency error", err)
	}
}

func TestGenerateSchedule_InvalidDays(t *testing.T) {
	if _, err := GenerateSchedule(testItem("OD"), uuid.New(), uuid.New(), schedStart, 0, ScheduleOptions{}); err == nil {
		t.Error("expected error for zero days")
	}
}

func scheduledDose(at time.Time) *Administration {
	return &Administration{
		ID:                uuid.New(),
		Status:            StatusScheduled,
		Dose:              "500mg",
		ScheduledDateTime: at,
	}
}

func TestIsOverdue(t *testing.T) {
	at := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	dose := scheduledDose(at)

	if IsOverdue(dose, at.Add(29*time.Minute)) {
		t.Error("29 minutes past should not be overdue")
	}
	if IsOverdue(dose, at.Add(30*time.Minute)) {
		t.Error("exactly 30 minutes past should not be overdue")
	}
	if !IsOverdue(dose, at.Add(31*time.Minute)) {
		t.Error("31 minutes past should be overdue")
	}

	dose.Status = StatusDue
	if !IsOverdue(dose, at.Add(31*time.Minute)) {
		t.Error("due doses can go overdue")
	}
	dose.Status = StatusGiven
	if IsOverdue(dose, at.Add(2*time.Hour)) {
		t.Error("given doses are never overdue")
	}
}

func TestIsDueSoon(t *testing.T) {
	at := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	dose := scheduledDose(at)

	if IsDueSoon(dose, at.Add(-31*time.Minute)) {
		t.Error("31 minutes out is not yet due soon")
	}
	if !IsDueSoon(dose, at.Add(-30*time.Minute)) {
		t.Error("30 minutes out is due soon")
	}
	if !IsDueSoon(dose, at.Add(-time.Minute)) {
		t.Error("1 minute out is due soon")
	}
	if IsDueSoon(dose, at) {
		t.Error("at the scheduled instant the dose is due, not due soon")
	}

	dose.Status = StatusDue
	if IsDueSoon(dose, at.Add(-10*time.Minute)) {
		t.Error("only scheduled doses show as due soon")
	}
}

func TestCanRecordGiven(t *testing.T) {
	at := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status Status
		now    time.Time
		want   bool
		reason string
	}{
		{"on time", StatusScheduled, at, true, ""},
		{"one hour early", StatusScheduled, at.Add(-60 * time.Minute), true, ""},
		{"too early", StatusScheduled, at.Add(-61 * time.Minute), false, "too early"},
		{"very late is fine", StatusOverdue, at.Add(12 * time.Hour), true, ""},
		{"already given", StatusGiven, at, false, "already"},
		{"cancelled", StatusCancelled, at, false, "cancelled"},
		{"discontinued", StatusDiscontinued, at, false, "discontinued"},
		{"held can still be given", StatusHeld, at, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dose := scheduledDose(at)
			dose.Status = tt.status
			d := CanRecordGiven(dose, tt.now)
			if d.CanRecord != tt.want {
				t.Errorf("canRecord = %v, want %v (%s)", d.CanRecord, tt.want, d.Reason)
			}
			if !tt.want && !strings.Contains(d.Reason, tt.reason) {
				t.Errorf("reason = %q, want substring %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestRecordGiven(t *testing.T) {
	at := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	dose := scheduledDose(at)
	now := at.Add(10 * time.Minute)

	nurse := uuid.New()
	next, err := RecordGiven(dose, GivenData{By: nurse, ByName: "R. Adams"}, now)
	if err != nil {
		t.Fatalf("RecordGiven: %v", err)
	}
	if next.Status != StatusGiven {
		t.Errorf("status = %s, want given", next.Status)
	}
	if next.AdministeredDateTime == nil || !next.AdministeredDateTime.Equal(now) {
		t.Error("administeredDateTime should be the record time")
	}
	if next.AdministeredBy == nil || *next.AdministeredBy != nurse {
		t.Error("administeredBy should be set")
	}
	// Missing actualDose defaults to the planned dose.
	if next.ActualDose == nil || *next.ActualDose != "500mg" {
		t.Errorf("actualDose = %v, want planned dose", next.ActualDose)
	}
	if err := next.Validate(); err != nil {
		t.Errorf("given record should satisfy invariants: %v", err)
	}

	// Input snapshot untouched.
	if dose.Status != StatusScheduled || dose.AdministeredBy != nil {
		t.Error("RecordGiven must not mutate its input")
	}
}

func TestRecordGiven_ExplicitActualDose(t *testing.T) {
	at := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	next, err := RecordGiven(scheduledDose(at), GivenData{By: uuid.New(), ActualDose: strp("250mg")}, at)
	if err != nil {
		t.Fatal(err)
	}
	if *next.ActualDose != "250mg" {
		t.Errorf("actualDose = %s, want 250mg", *next.ActualDose)
	}
}

func TestRecordHeldAndRefused(t *testing.T) {
	at := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	held, err := RecordHeld(scheduledDose(at), "NPO before surgery")
	if err != nil {
		t.Fatalf("RecordHeld: %v", err)
	}
	if held.Status != StatusHeld || held.StatusReason == nil || *held.StatusReason != "NPO before surgery" {
		t.Error("held dose should carry status and reason")
	}
	if held.AdministeredDateTime != nil {
		t.Error("held dose must not set administered fields")
	}
	if err := held.Validate(); err != nil {
		t.Errorf("held record should satisfy invariants: %v", err)
	}

	refused, err := RecordRefused(scheduledDose(at), "patient declined")
	if err != nil {
		t.Fatalf("RecordRefused: %v", err)
	}
	if refused.Status != StatusRefused {
		t.Errorf("status = %s, want refused", refused.Status)
	}

	if _, err := RecordHeld(scheduledDose(at), ""); err == nil {
		t.Error("expected error holding without a reason")
	}
	if _, err := RecordHeld(refused, "x"); err == nil {
		t.Error("expected error holding a terminal dose")
	}
}

func TestWitnessOrderIndependence(t *testing.T) {
	at := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	nurse, witness := uuid.New(), uuid.New()

	check := func(t *testing.T, a *Administration) {
		t.Helper()
		if a.Status != StatusGiven || a.AdministeredBy == nil {
			t.Error("given fields missing")
		}
		if a.WitnessID == nil || *a.WitnessID != witness || a.WitnessedAt == nil {
			t.Error("witness fields missing")
		}
	}

	t.Run("witness then give", func(t *testing.T) {
		dose := scheduledDose(at)
		dose.RequiresWitness = true
		witnessed := AddWitness(dose, witness, "K. Osei", at)
		given, err := RecordGiven(witnessed, GivenData{By: nurse}, at)
		if err != nil {
			t.Fatal(err)
		}
		check(t, given)
	})

	t.Run("give then witness", func(t *testing.T) {
		dose := scheduledDose(at)
		dose.RequiresWitness = true
		given, err := RecordGiven(dose, GivenData{By: nurse}, at)
		if err != nil {
			t.Fatal(err)
		}
		check(t, AddWitness(given, witness, "K. Osei", at.Add(time.Minute)))
	})
}

func TestDelayMinutes(t *testing.T) {
	at := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	dose := scheduledDose(at)
	if DelayMinutes(dose) != nil {
		t.Error("delay should be nil before the dose is given")
	}

	late, err := RecordGiven(dose, GivenData{By: uuid.New()}, at.Add(45*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if d := DelayMinutes(late); d == nil || *d != 45 {
		t.Errorf("delay = %v, want 45", d)
	}

	early, err := RecordGiven(scheduledDose(at), GivenData{By: uuid.New()}, at.Add(-20*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if d := DelayMinutes(early); d == nil || *d != -20 {
		t.Errorf("delay = %v, want -20 (early is negative)", d)
	}
}
