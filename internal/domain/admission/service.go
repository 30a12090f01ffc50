package admission

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/careward/careward/internal/platform/clock"
	"github.com/careward/careward/internal/platform/db"
	"github.com/careward/careward/pkg/recordno"
)

const numberRetries = 3

// Metrics receives status transition events for the metrics pipeline.
// Implementations must be safe for concurrent use.
type Metrics interface {
	AdmissionTransition(status string)
}

type Service struct {
	repo    Repository
	clock   clock.Clock
	numbers recordno.Generator
	metrics Metrics
}

func NewService(repo Repository, clk clock.Clock, numbers recordno.Generator) *Service {
	return &Service{repo: repo, clock: clk, numbers: numbers}
}

// SetMetrics attaches an optional metrics sink.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

func (s *Service) recordTransition(to Status) {
	if s.metrics != nil {
		s.metrics.AdmissionTransition(string(to))
	}
}

// Admit opens a new inpatient stay in the admitted state.
func (s *Service) Admit(ctx context.Context, a *Admission) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patientId is required")
	}
	if a.CurrentWardID == uuid.Nil || a.CurrentBedID == uuid.Nil {
		return fmt.Errorf("currentWardId and currentBedId are required")
	}
	if a.Type == "" {
		return fmt.Errorf("type is required")
	}

	now := s.clock.Now()
	if a.AdmitDate.IsZero() {
		a.AdmitDate = now
	}
	a.Status = StatusAdmitted
	a.DischargeDate = nil
	a.ActualLengthOfStay = nil
	a.TransferHistory = nil

	var err error
	for i := 0; i < numberRetries; i++ {
		a.AdmissionNumber = s.numbers.Next(recordno.Admission, now)
		if err = s.repo.Create(ctx, a); err == nil {
			s.recordTransition(StatusAdmitted)
			return s.recordPlacement(ctx, a)
		}
		if !db.IsUniqueViolation(err) {
			return err
		}
	}
	return fmt.Errorf("allocate admission number: %w", err)
}

// recordPlacement writes the initial bed assignment as the first history
// row. From fields stay nil to mark it as a placement, not a move.
func (s *Service) recordPlacement(ctx context.Context, a *Admission) error {
	t := BedTransfer{
		ID:           uuid.New(),
		AdmissionID:  a.ID,
		ToWardID:     a.CurrentWardID,
		ToBedID:      a.CurrentBedID,
		TransferDate: a.AdmitDate,
		Reason:       "initial placement",
	}
	if a.AdmittingDoctorID != nil {
		t.OrderedBy = *a.AdmittingDoctorID
	}
	if err := s.repo.AddTransfer(ctx, &t); err != nil {
		return err
	}
	a.TransferHistory = []BedTransfer{t}
	return nil
}

// TransferRequest carries the caller-supplied details of a bed move.
type TransferRequest struct {
	ToWardID      uuid.UUID  `json:"toWardId"`
	ToBedID       uuid.UUID  `json:"toBedId"`
	Reason        string     `json:"reason"`
	OrderedBy     uuid.UUID  `json:"orderedBy"`
	TransferredBy *uuid.UUID `json:"transferredBy,omitempty"`
}

// Transfer moves the patient to a new ward/bed, guarded by CanTransfer.
// The transfer row is immutable once appended.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID, req TransferRequest) (*Admission, error) {
	if req.ToWardID == uuid.Nil || req.ToBedID == uuid.Nil {
		return nil, fmt.Errorf("toWardId and toBedId are required")
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	if req.OrderedBy == uuid.Nil {
		return nil, fmt.Errorf("orderedBy is required")
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fromWard, fromBed := a.CurrentWardID, a.CurrentBedID
	t := BedTransfer{
		ID:            uuid.New(),
		AdmissionID:   a.ID,
		FromWardID:    &fromWard,
		FromBedID:     &fromBed,
		ToWardID:      req.ToWardID,
		ToBedID:       req.ToBedID,
		TransferDate:  s.clock.Now(),
		Reason:        req.Reason,
		OrderedBy:     req.OrderedBy,
		TransferredBy: req.TransferredBy,
	}

	next, err := ApplyTransfer(a, t)
	if err != nil {
		return nil, err
	}
	// Version check first so a concurrent transfer cannot double-append.
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	if err := s.repo.AddTransfer(ctx, &t); err != nil {
		return nil, err
	}
	return next, nil
}

// RequestDischarge marks the stay as awaiting discharge paperwork.
func (s *Service) RequestDischarge(ctx context.Context, id uuid.UUID) (*Admission, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := CanDischarge(a); !d.Allowed {
		return nil, fmt.Errorf("%s", d.Reason)
	}
	a.Status = StatusDischargePending
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.recordTransition(StatusDischargePending)
	return a, nil
}

// Discharge closes the stay, guarded by CanDischarge.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID, data DischargeData) (*Admission, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := ApplyDischarge(a, data, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	s.recordTransition(StatusDischarged)
	return next, nil
}

// Cancel voids an admission opened in error. Terminal.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return s.close(ctx, id, StatusCancelled)
}

// MarkDeceased records an in-hospital death. Terminal.
func (s *Service) MarkDeceased(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return s.close(ctx, id, StatusDeceased)
}

// MarkAbsconded records that the patient left against process. Terminal.
func (s *Service) MarkAbsconded(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return s.close(ctx, id, StatusAbsconded)
}

func (s *Service) close(ctx context.Context, id uuid.UUID, to Status) (*Admission, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, fmt.Errorf("admission %s is already %s", a.AdmissionNumber, a.Status)
	}
	a.Status = to
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.recordTransition(to)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Admission, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Admission, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByWard(ctx context.Context, wardID uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	return s.repo.ListByWard(ctx, wardID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Admission, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) Transfers(ctx context.Context, admissionID uuid.UUID) ([]BedTransfer, error) {
	return s.repo.GetTransfers(ctx, admissionID)
}

// StayView is a census row: the admission plus its live length-of-stay
// arithmetic.
type StayView struct {
	*Admission
	LengthOfStay      int    `json:"lengthOfStay"`
	LengthOfStayLabel string `json:"lengthOfStayLabel"`
	Overdue           bool   `json:"overdue"`
}

// Census returns the current admitted stays with length-of-stay and
// overdue flags computed against the injected clock.
func (s *Service) Census(ctx context.Context, limit, offset int) ([]*StayView, int, error) {
	items, total, err := s.repo.ListByStatus(ctx, StatusAdmitted, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	now := s.clock.Now()
	views := make([]*StayView, len(items))
	for i, a := range items {
		los := CurrentLengthOfStay(a, now)
		views[i] = &StayView{
			Admission:         a,
			LengthOfStay:      los,
			LengthOfStayLabel: FormatLengthOfStay(los),
			Overdue:           IsOverdue(a, now),
		}
	}
	return views, total, nil
}
