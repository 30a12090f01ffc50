package triage

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Triage) error
	GetByID(ctx context.Context, id uuid.UUID) (*Triage, error)
	GetByNumber(ctx context.Context, number string) (*Triage, error)
	// Update persists the snapshot if t.Version still matches the stored
	// row, then increments the version. Returns db.ErrVersionConflict on a
	// lost update.
	Update(ctx context.Context, t *Triage) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Triage, int, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Triage, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Triage, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Triage, int, error)
}
