package mar

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careward/careward/internal/platform/clock"
	"github.com/careward/careward/internal/platform/db"
	"github.com/careward/careward/pkg/recordno"
)

// -- Mock Repository --

type mockRepo struct {
	records map[uuid.UUID]*Administration
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*Administration)}
}

func (m *mockRepo) Create(_ context.Context, a *Administration) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Version = 1
	cp := *a
	m.records[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Administration, error) {
	a, ok := m.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) GetByNumber(_ context.Context, number string) (*Administration, error) {
	for _, a := range m.records {
		if a.AdministrationNumber == number {
			cp := *a
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, a *Administration) error {
	stored, ok := m.records[a.ID]
	if !ok {
		return db.ErrNotFound
	}
	if stored.Version != a.Version {
		return db.ErrVersionConflict
	}
	a.Version++
	cp := *a
	m.records[a.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.records, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Administration, int, error) {
	var result []*Administration
	for _, a := range m.records {
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByAdmission(_ context.Context, admissionID uuid.UUID, limit, offset int) ([]*Administration, int, error) {
	var result []*Administration
	for _, a := range m.records {
		if a.AdmissionID == admissionID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Administration, int, error) {
	var result []*Administration
	for _, a := range m.records {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByStatus(_ context.Context, status Status, limit, offset int) ([]*Administration, int, error) {
	var result []*Administration
	for _, a := range m.records {
		if a.Status == status {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListScheduledBetween(_ context.Context, from, to time.Time, limit, offset int) ([]*Administration, int, error) {
	var result []*Administration
	for _, a := range m.records {
		if a.Status.Terminal() {
			continue
		}
		if !a.ScheduledDateTime.Before(from) && a.ScheduledDateTime.Before(to) {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) Search(ctx context.Context, _ map[string]string, limit, offset int) ([]*Administration, int, error) {
	return m.List(ctx, limit, offset)
}

var testNow = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func newTestService(repo Repository, clk clock.Clock) *Service {
	return NewService(repo, clk, recordno.Counter(0), false)
}

func scheduleRequest(frequency string, days int) ScheduleRequest {
	return ScheduleRequest{
		Item:        testItem(frequency),
		AdmissionID: uuid.New(),
		PatientID:   uuid.New(),
		StartDate:   testNow,
		Days:        days,
	}
}

func TestGenerateSchedule_AssignsNumbers(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, clock.Fixed(testNow))

	doses, err := svc.GenerateSchedule(context.Background(), scheduleRequest("BD", 2))
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(doses) != 4 {
		t.Fatalf("dose count = %d, want 4", len(doses))
	}
	if doses[0].AdministrationNumber != "MAR2600001" {
		t.Errorf("first number = %q, want MAR2600001", doses[0].AdministrationNumber)
	}
	seen := map[string]bool{}
	for _, dose := range doses {
		if seen[dose.AdministrationNumber] {
			t.Errorf("duplicate number %s", dose.AdministrationNumber)
		}
		seen[dose.AdministrationNumber] = true
		if _, err := repo.GetByID(context.Background(), dose.ID); err != nil {
			t.Errorf("dose %s not persisted", dose.AdministrationNumber)
		}
	}
}

func TestGenerateSchedule_Validation(t *testing.T) {
	svc := newTestService(newMockRepo(), clock.Fixed(testNow))

	req := scheduleRequest("OD", 1)
	req.AdmissionID = uuid.Nil
	if _, err := svc.GenerateSchedule(context.Background(), req); err == nil {
		t.Error("expected error without admissionId")
	}

	req = scheduleRequest("OD", 1)
	req.Item.MedicationName = ""
	if _, err := svc.GenerateSchedule(context.Background(), req); err == nil {
		t.Error("expected error without medicationName")
	}
}

func TestGenerateSchedule_StrictMode(t *testing.T) {
	svc := NewService(newMockRepo(), clock.Fixed(testNow), recordno.Counter(0), true)
	_, err := svc.GenerateSchedule(context.Background(), scheduleRequest("PRN", 1))
	if err == nil || !strings.Contains(err.Error(), "unknown frequency") {
		t.Errorf("strict service: got %v, want unknown frequency error", err)
	}
}

func seedDose(t *testing.T, svc *Service) *Administration {
	t.Helper()
	doses, err := svc.GenerateSchedule(context.Background(), scheduleRequest("OD", 1))
	if err != nil {
		t.Fatal(err)
	}
	return doses[0]
}

func TestGiveFlow(t *testing.T) {
	repo := newMockRepo()
	clk := clock.NewStepped(testNow)
	svc := newTestService(repo, clk)

	dose := seedDose(t, svc)
	clk.Advance(15 * time.Minute)

	nurse := uuid.New()
	given, err := svc.Give(context.Background(), dose.ID, GivenData{By: nurse, ByName: "R. Adams"})
	if err != nil {
		t.Fatalf("Give: %v", err)
	}
	if given.Status != StatusGiven {
		t.Errorf("status = %s, want given", given.Status)
	}
	if given.ActualDose == nil || *given.ActualDose != "500mg" {
		t.Error("actualDose should default to the planned dose")
	}

	// Giving twice is a guard rejection.
	if _, err := svc.Give(context.Background(), dose.ID, GivenData{By: nurse}); err == nil {
		t.Error("expected error giving twice")
	}
}

func TestGive_TooEarly(t *testing.T) {
	repo := newMockRepo()
	// The schedule starts at 08:00; the clock still reads 06:00.
	clk := clock.NewStepped(testNow.Add(-2 * time.Hour))
	svc := NewService(repo, clk, recordno.Counter(0), false)

	doses, err := svc.GenerateSchedule(context.Background(), scheduleRequest("OD", 1))
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Give(context.Background(), doses[0].ID, GivenData{By: uuid.New()})
	if err == nil || !strings.Contains(err.Error(), "too early") {
		t.Errorf("got %v, want too-early rejection", err)
	}

	clk.Advance(time.Hour)
	if _, err := svc.Give(context.Background(), doses[0].ID, GivenData{By: uuid.New()}); err != nil {
		t.Errorf("exactly 60 minutes early should be allowed: %v", err)
	}
}

func TestHoldAndRefuse(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, clock.Fixed(testNow))

	held, err := svc.Hold(context.Background(), seedDose(t, svc).ID, "NPO before surgery")
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if held.Status != StatusHeld || held.StatusReason == nil {
		t.Error("held dose should carry status and reason")
	}

	refused, err := svc.Refuse(context.Background(), seedDose(t, svc).ID, "patient declined")
	if err != nil {
		t.Fatalf("Refuse: %v", err)
	}
	if refused.Status != StatusRefused {
		t.Errorf("status = %s, want refused", refused.Status)
	}

	if _, err := svc.Hold(context.Background(), refused.ID, "x"); err == nil {
		t.Error("expected error holding a refused dose")
	}
}

func TestWitness(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, clock.Fixed(testNow))

	dose := seedDose(t, svc)
	witness := uuid.New()

	// Witness before give.
	witnessed, err := svc.Witness(context.Background(), dose.ID, witness, "K. Osei")
	if err != nil {
		t.Fatalf("Witness: %v", err)
	}
	if witnessed.WitnessID == nil || *witnessed.WitnessID != witness || witnessed.WitnessedAt == nil {
		t.Error("witness fields missing")
	}
	if witnessed.Status != StatusScheduled {
		t.Error("witnessing must not change status")
	}

	given, err := svc.Give(context.Background(), dose.ID, GivenData{By: uuid.New()})
	if err != nil {
		t.Fatal(err)
	}
	if given.WitnessID == nil {
		t.Error("give must keep witness fields")
	}
}

func TestTerminalMoves(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, clock.Fixed(testNow))

	cases := []struct {
		name string
		op   func(context.Context, uuid.UUID) (*Administration, error)
		want Status
	}{
		{"omit", svc.MarkOmitted, StatusOmitted},
		{"not available", svc.MarkNotAvailable, StatusNotAvailable},
		{"cancel", svc.Cancel, StatusCancelled},
		{"discontinue", svc.Discontinue, StatusDiscontinued},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dose := seedDose(t, svc)
			got, err := tc.op(context.Background(), dose.ID)
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if got.Status != tc.want {
				t.Errorf("status = %s, want %s", got.Status, tc.want)
			}
			if _, err := tc.op(context.Background(), dose.ID); err == nil {
				t.Errorf("expected error applying %s twice", tc.name)
			}
		})
	}
}

func TestGive_VersionConflict(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, clock.Fixed(testNow))
	dose := seedDose(t, svc)

	// Two nurses load the same snapshot; the second write loses.
	a, _ := repo.GetByID(context.Background(), dose.ID)
	b, _ := repo.GetByID(context.Background(), dose.ID)

	givenA, err := RecordGiven(a, GivenData{By: uuid.New()}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Update(context.Background(), givenA); err != nil {
		t.Fatalf("first write: %v", err)
	}

	givenB, err := RecordGiven(b, GivenData{By: uuid.New()}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Update(context.Background(), givenB); err != db.ErrVersionConflict {
		t.Errorf("second write: got %v, want ErrVersionConflict", err)
	}
}

func TestWorklist(t *testing.T) {
	repo := newMockRepo()
	clk := clock.NewStepped(testNow)
	svc := newTestService(repo, clk)

	doses, err := svc.GenerateSchedule(context.Background(), scheduleRequest("TDS", 1))
	if err != nil {
		t.Fatal(err)
	}
	// 08:00 dose given, 14:00 and 20:00 still open.
	if _, err := svc.Give(context.Background(), doses[0].ID, GivenData{By: uuid.New()}); err != nil {
		t.Fatal(err)
	}

	// 13:45: the 14:00 dose is due soon; nothing is overdue.
	clk.Set(testNow.Add(5*time.Hour + 45*time.Minute))
	views, _, err := svc.Worklist(context.Background(), testNow, testNow.Add(24*time.Hour), 50, 0)
	if err != nil {
		t.Fatalf("Worklist: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("worklist size = %d, want 2 (given dose drops out)", len(views))
	}
	byTime := map[string]*DoseView{}
	for _, v := range views {
		byTime[v.ScheduledTime] = v
	}
	if !byTime["14:00"].DueSoon {
		t.Error("14:00 dose should be due soon at 13:45")
	}
	if byTime["14:00"].Overdue || byTime["20:00"].Overdue {
		t.Error("nothing should be overdue at 13:45")
	}

	// 14:45: the 14:00 dose is past its grace period.
	clk.Advance(time.Hour)
	views, _, err = svc.Worklist(context.Background(), testNow, testNow.Add(24*time.Hour), 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	byTime = map[string]*DoseView{}
	for _, v := range views {
		byTime[v.ScheduledTime] = v
	}
	if !byTime["14:00"].Overdue {
		t.Error("14:00 dose should be overdue at 14:45")
	}
	if byTime["20:00"].Overdue || byTime["20:00"].DueSoon {
		t.Error("20:00 dose should be neither overdue nor due soon at 14:45")
	}
}
