package mar

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Administration) error
	GetByID(ctx context.Context, id uuid.UUID) (*Administration, error)
	GetByNumber(ctx context.Context, number string) (*Administration, error)
	// Update persists the snapshot if a.Version still matches the stored
	// row, then increments the version. Returns db.ErrVersionConflict on
	// a lost update.
	Update(ctx context.Context, a *Administration) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Administration, int, error)
	ListByAdmission(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*Administration, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Administration, int, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Administration, int, error)
	// ListScheduledBetween returns open doses (scheduled/due/overdue)
	// whose scheduled time falls in [from, to), for shift worklists.
	ListScheduledBetween(ctx context.Context, from, to time.Time, limit, offset int) ([]*Administration, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Administration, int, error)
}
