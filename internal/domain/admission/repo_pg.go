package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careward/careward/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const admissionCols = `id, admission_number, patient_id, status, type, care_level,
	current_ward_id, current_bed_id, admit_date, discharge_date,
	estimated_stay_days, actual_length_of_stay, discharge_reason, discharge_disposition,
	admitting_doctor_id, notes, version, created_at, updated_at`

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.AdmissionNumber, &a.PatientID, &a.Status, &a.Type, &a.CareLevel,
		&a.CurrentWardID, &a.CurrentBedID, &a.AdmitDate, &a.DischargeDate,
		&a.EstimatedStayDays, &a.ActualLengthOfStay, &a.DischargeReason, &a.DischargeDisposition,
		&a.AdmittingDoctorID, &a.Notes, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Admission) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admission (id, admission_number, patient_id, status, type, care_level,
			current_ward_id, current_bed_id, admit_date, discharge_date,
			estimated_stay_days, actual_length_of_stay, discharge_reason, discharge_disposition,
			admitting_doctor_id, notes, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,1)`,
		a.ID, a.AdmissionNumber, a.PatientID, a.Status, a.Type, a.CareLevel,
		a.CurrentWardID, a.CurrentBedID, a.AdmitDate, a.DischargeDate,
		a.EstimatedStayDays, a.ActualLengthOfStay, a.DischargeReason, a.DischargeDisposition,
		a.AdmittingDoctorID, a.Notes)
	if err == nil {
		a.Version = 1
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	a, err := scanAdmission(r.pool.QueryRow(ctx, `SELECT `+admissionCols+` FROM admission WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	a.TransferHistory, err = r.GetTransfers(ctx, a.ID)
	return a, err
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Admission, error) {
	a, err := scanAdmission(r.pool.QueryRow(ctx, `SELECT `+admissionCols+` FROM admission WHERE admission_number = $1`, number))
	if err != nil {
		return nil, err
	}
	a.TransferHistory, err = r.GetTransfers(ctx, a.ID)
	return a, err
}

func (r *repoPG) Update(ctx context.Context, a *Admission) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE admission SET status=$2, type=$3, care_level=$4,
			current_ward_id=$5, current_bed_id=$6, discharge_date=$7,
			estimated_stay_days=$8, actual_length_of_stay=$9,
			discharge_reason=$10, discharge_disposition=$11, notes=$12,
			version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $13`,
		a.ID, a.Status, a.Type, a.CareLevel,
		a.CurrentWardID, a.CurrentBedID, a.DischargeDate,
		a.EstimatedStayDays, a.ActualLengthOfStay,
		a.DischargeReason, a.DischargeDisposition, a.Notes,
		a.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrVersionConflict
	}
	a.Version++
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM admission WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Admission, int, error) {
	return r.listWhere(ctx, ``, nil, limit, offset)
}

func (r *repoPG) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Admission, int, error) {
	return r.listWhere(ctx, `WHERE status = $1`, []interface{}{status}, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	return r.listWhere(ctx, `WHERE patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *repoPG) ListByWard(ctx context.Context, wardID uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	return r.listWhere(ctx, `WHERE current_ward_id = $1`, []interface{}{wardID}, limit, offset)
}

func (r *repoPG) listWhere(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Admission, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admission `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM admission %s ORDER BY admit_date DESC LIMIT $%d OFFSET $%d`,
		admissionCols, where, n+1, n+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Admission, int, error) {
	where := `WHERE 1=1`
	var args []interface{}
	idx := 1
	for _, key := range []string{"patient_id", "status", "type", "care_level", "current_ward_id"} {
		if p, ok := params[key]; ok {
			where += fmt.Sprintf(` AND %s = $%d`, key, idx)
			args = append(args, p)
			idx++
		}
	}
	return r.listWhere(ctx, where, args, limit, offset)
}

const transferCols = `id, admission_id, from_ward_id, from_bed_id, to_ward_id, to_bed_id,
	transfer_date, reason, ordered_by, transferred_by, created_at`

func (r *repoPG) AddTransfer(ctx context.Context, t *BedTransfer) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bed_transfer (id, admission_id, from_ward_id, from_bed_id, to_ward_id, to_bed_id,
			transfer_date, reason, ordered_by, transferred_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.AdmissionID, t.FromWardID, t.FromBedID, t.ToWardID, t.ToBedID,
		t.TransferDate, t.Reason, t.OrderedBy, t.TransferredBy)
	return err
}

func (r *repoPG) GetTransfers(ctx context.Context, admissionID uuid.UUID) ([]BedTransfer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transferCols+` FROM bed_transfer WHERE admission_id = $1 ORDER BY transfer_date ASC, created_at ASC`,
		admissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var transfers []BedTransfer
	for rows.Next() {
		var t BedTransfer
		if err := rows.Scan(&t.ID, &t.AdmissionID, &t.FromWardID, &t.FromBedID, &t.ToWardID, &t.ToBedID,
			&t.TransferDate, &t.Reason, &t.OrderedBy, &t.TransferredBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
