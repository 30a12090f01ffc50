package mar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careward/careward/internal/platform/clock"
	"github.com/careward/careward/internal/platform/db"
	"github.com/careward/careward/pkg/recordno"
)

const numberRetries = 3

// Metrics receives dose outcome events for the metrics pipeline.
// Implementations must be safe for concurrent use.
type Metrics interface {
	DoseRecorded(status string)
}

type Service struct {
	repo    Repository
	clock   clock.Clock
	numbers recordno.Generator
	metrics Metrics
	// strict rejects unknown frequency codes instead of defaulting to a
	// single morning dose.
	strict bool
}

func NewService(repo Repository, clk clock.Clock, numbers recordno.Generator, strict bool) *Service {
	return &Service{repo: repo, clock: clk, numbers: numbers, strict: strict}
}

// SetMetrics attaches an optional metrics sink.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

func (s *Service) recordOutcome(status Status) {
	if s.metrics != nil {
		s.metrics.DoseRecorded(string(status))
	}
}

// ScheduleRequest asks for a dosing schedule for one prescription item.
type ScheduleRequest struct {
	Item        PrescriptionItem `json:"item"`
	AdmissionID uuid.UUID        `json:"admissionId"`
	PatientID   uuid.UUID        `json:"patientId"`
	StartDate   time.Time        `json:"startDate"`
	Days        int              `json:"days"`
}

// GenerateSchedule creates and persists the dose records for a
// prescription item, one per (day, time slot), numbered MAR+YY+5.
func (s *Service) GenerateSchedule(ctx context.Context, req ScheduleRequest) ([]*Administration, error) {
	if req.AdmissionID == uuid.Nil {
		return nil, fmt.Errorf("admissionId is required")
	}
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patientId is required")
	}
	if req.Item.MedicationName == "" {
		return nil, fmt.Errorf("medicationName is required")
	}
	if req.StartDate.IsZero() {
		return nil, fmt.Errorf("startDate is required")
	}

	doses, err := GenerateSchedule(req.Item, req.AdmissionID, req.PatientID, req.StartDate, req.Days,
		ScheduleOptions{Strict: s.strict})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for _, dose := range doses {
		if err := s.create(ctx, dose, now); err != nil {
			return nil, err
		}
	}
	return doses, nil
}

func (s *Service) create(ctx context.Context, a *Administration, now time.Time) error {
	var err error
	for i := 0; i < numberRetries; i++ {
		a.AdministrationNumber = s.numbers.Next(recordno.Administration, now)
		if err = s.repo.Create(ctx, a); !db.IsUniqueViolation(err) {
			return err
		}
	}
	return fmt.Errorf("allocate administration number: %w", err)
}

// Give records the dose as given, guarded by CanRecordGiven.
func (s *Service) Give(ctx context.Context, id uuid.UUID, data GivenData) (*Administration, error) {
	if data.By == uuid.Nil {
		return nil, fmt.Errorf("administeredBy is required")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := RecordGiven(a, data, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	s.recordOutcome(StatusGiven)
	return next, nil
}

// Hold marks the dose held with a clinical reason.
func (s *Service) Hold(ctx context.Context, id uuid.UUID, reason string) (*Administration, error) {
	return s.closeWith(ctx, id, reason, RecordHeld)
}

// Refuse marks the dose refused by the patient.
func (s *Service) Refuse(ctx context.Context, id uuid.UUID, reason string) (*Administration, error) {
	return s.closeWith(ctx, id, reason, RecordRefused)
}

func (s *Service) closeWith(ctx context.Context, id uuid.UUID, reason string,
	op func(*Administration, string) (*Administration, error)) (*Administration, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := op(a, reason)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	s.recordOutcome(next.Status)
	return next, nil
}

// Witness records the second signature on a dose. Status-independent;
// valid before or after Give.
func (s *Service) Witness(ctx context.Context, id, witnessID uuid.UUID, witnessName string) (*Administration, error) {
	if witnessID == uuid.Nil {
		return nil, fmt.Errorf("witnessId is required")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := AddWitness(a, witnessID, witnessName, s.clock.Now())
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// The explicit status moves below are the only writers of the stored
// status; the derived predicates never write.

func (s *Service) MarkDue(ctx context.Context, id uuid.UUID) (*Administration, error) {
	return s.move(ctx, id, StatusDue)
}

func (s *Service) MarkOverdue(ctx context.Context, id uuid.UUID) (*Administration, error) {
	return s.move(ctx, id, StatusOverdue)
}

func (s *Service) MarkOmitted(ctx context.Context, id uuid.UUID) (*Administration, error) {
	return s.move(ctx, id, StatusOmitted)
}

func (s *Service) MarkNotAvailable(ctx context.Context, id uuid.UUID) (*Administration, error) {
	return s.move(ctx, id, StatusNotAvailable)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Administration, error) {
	return s.move(ctx, id, StatusCancelled)
}

func (s *Service) Discontinue(ctx context.Context, id uuid.UUID) (*Administration, error) {
	return s.move(ctx, id, StatusDiscontinued)
}

func (s *Service) move(ctx context.Context, id uuid.UUID, to Status) (*Administration, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, fmt.Errorf("dose %s is already %s", a.AdministrationNumber, a.Status)
	}
	next := *a
	next.Status = to
	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, err
	}
	if to.Terminal() {
		s.recordOutcome(to)
	}
	return &next, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Administration, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Administration, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Administration, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByAdmission(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*Administration, int, error) {
	return s.repo.ListByAdmission(ctx, admissionID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Administration, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Administration, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// DoseView is a worklist row: the dose plus its derived timing flags.
type DoseView struct {
	*Administration
	Overdue      bool `json:"overdue"`
	DueSoon      bool `json:"dueSoon"`
	DelayMinutes *int `json:"delayMinutes,omitempty"`
}

// Worklist returns the open doses scheduled in [from, to) with overdue
// and due-soon flags computed against the injected clock.
func (s *Service) Worklist(ctx context.Context, from, to time.Time, limit, offset int) ([]*DoseView, int, error) {
	items, total, err := s.repo.ListScheduledBetween(ctx, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	now := s.clock.Now()
	views := make([]*DoseView, len(items))
	for i, a := range items {
		views[i] = &DoseView{
			Administration: a,
			Overdue:        IsOverdue(a, now),
			DueSoon:        IsDueSoon(a, now),
			DelayMinutes:   DelayMinutes(a),
		}
	}
	return views, total, nil
}
