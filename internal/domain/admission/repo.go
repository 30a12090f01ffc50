package admission

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	GetByNumber(ctx context.Context, number string) (*Admission, error)
	// Update persists the snapshot if a.Version still matches the stored
	// row, then increments the version. Returns db.ErrVersionConflict on
	// a lost update. Transfer history rows are not written here.
	Update(ctx context.Context, a *Admission) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Admission, int, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Admission, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error)
	ListByWard(ctx context.Context, wardID uuid.UUID, limit, offset int) ([]*Admission, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Admission, int, error)

	// Transfer history. AddTransfer must be atomic with the admission
	// version check performed by Update.
	AddTransfer(ctx context.Context, t *BedTransfer) error
	GetTransfers(ctx context.Context, admissionID uuid.UUID) ([]BedTransfer, error)
}
