package triage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/careward/careward/internal/platform/clock"
	"github.com/careward/careward/internal/platform/db"
	"github.com/careward/careward/pkg/recordno"
)

// numberRetries bounds how many times a colliding triage number is
// regenerated before giving up.
const numberRetries = 3

// Metrics receives classification events for the metrics pipeline.
// Implementations must be safe for concurrent use.
type Metrics interface {
	TriageClassified(category string)
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

// CreateIntake registers a new triage encounter. The severity level,
// category and red-flag summary are always computed server-side from the
// clinical inputs; any values supplied by the caller are overwritten.
func (s *Service) CreateIntake(ctx context.Context, t *Triage) error {
	if t.PatientID == uuid.Nil {
		return fmt.Errorf("patientId is required")
	}
	if t.ChiefComplaint == "" {
		return fmt.Errorf("chiefComplaint is required")
	}

	now := s.clock.Now()
	if t.TriageStartTime.IsZero() {
		t.TriageStartTime = now
	}
	t.Status = StatusInProgress
	t.TriageEndTime = nil
	t.SeenByDoctorTime = nil
	t.Reclassify()

	var err error
	for i := 0; i < numberRetries; i++ {
		t.TriageNumber = s.numbers.Next(recordno.Triage, now)
		if err = s.repo.Create(ctx, t); !db.IsUniqueViolation(err) {
			if err == nil && s.metrics != nil {
				s.metrics.TriageClassified(t.Category)
			}
			return err
		}
	}
	return fmt.Errorf("allocate triage number: %w", err)
}

// Reassess applies updated clinical inputs to an open encounter and
// recomputes the derived severity fields.
func (s *Service) Reassess(ctx context.Context, t *Triage) error {
	if t.Status.Terminal() {
		return fmt.Errorf("cannot reassess a %s triage encounter", t.Status)
	}
	t.Reclassify()
	if err := t.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, t)
}

// Complete closes the triage assessment and moves the patient to the
// waiting queue. The wait-time SLA clock starts here.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Triage, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, fmt.Errorf("triage %s is already %s", t.TriageNumber, t.Status)
	}
	now := s.clock.Now()
	t.Status = StatusCompleted
	t.TriageEndTime = &now
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// MarkSeen records the moment a doctor first sees the patient, which
// freezes the wait-time calculation.
func (s *Service) MarkSeen(ctx context.Context, id uuid.UUID) (*Triage, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.SeenByDoctorTime != nil {
		return nil, fmt.Errorf("triage %s already has a seen-by-doctor time", t.TriageNumber)
	}
	now := s.clock.Now()
	t.SeenByDoctorTime = &now
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Cancel terminates an encounter that will not be completed (patient
// left, duplicate registration).
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Triage, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, fmt.Errorf("triage %s is already %s", t.TriageNumber, t.Status)
	}
	t.Status = StatusCancelled
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Triage, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Triage, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Triage, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Triage, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Triage, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// QueueEntry is a waiting-room view row: the encounter plus its live
// wait-time arithmetic.
type QueueEntry struct {
	*Triage
	WaitMinutes    int  `json:"waitMinutes"`
	MaxWaitMinutes int  `json:"maxWaitMinutes"`
	WaitExceeded   bool `json:"waitExceeded"`
	AbnormalVitals bool `json:"abnormalVitals"`
}

// Queue returns completed triage encounters not yet seen by a doctor,
// ordered by severity then arrival, with wait-time flags computed against
// the injected clock.
func (s *Service) Queue(ctx context.Context, limit, offset int) ([]*QueueEntry, int, error) {
	items, total, err := s.repo.ListByStatus(ctx, StatusCompleted, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	now := s.clock.Now()
	var entries []*QueueEntry
	for _, t := range items {
		if t.SeenByDoctorTime != nil {
			continue
		}
		entries = append(entries, &QueueEntry{
			Triage:         t,
			WaitMinutes:    WaitTime(t, now),
			MaxWaitMinutes: MaxWaitMinutes(t.Level),
			WaitExceeded:   IsWaitTimeExceeded(t, now),
			AbnormalVitals: HasAbnormalVitals(t.Vitals),
		})
	}
	return entries, total, nil
}
