package mar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careward/careward/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const administrationCols = `id, administration_number, admission_id, patient_id, prescription_item_id,
	medication_name, dose, route, frequency,
	scheduled_date, scheduled_time, scheduled_datetime, status,
	administered_datetime, administered_by, administered_by_name, actual_dose, site, notes,
	requires_witness, witness_id, witness_name, witnessed_at, status_reason,
	version, created_at, updated_at`

func scanAdministration(row pgx.Row) (*Administration, error) {
	var a Administration
	err := row.Scan(&a.ID, &a.AdministrationNumber, &a.AdmissionID, &a.PatientID, &a.PrescriptionItemID,
		&a.MedicationName, &a.Dose, &a.Route, &a.Frequency,
		&a.ScheduledDate, &a.ScheduledTime, &a.ScheduledDateTime, &a.Status,
		&a.AdministeredDateTime, &a.AdministeredBy, &a.AdministeredByName, &a.ActualDose, &a.Site, &a.Notes,
		&a.RequiresWitness, &a.WitnessID, &a.WitnessName, &a.WitnessedAt, &a.StatusReason,
		&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Administration) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medication_administration (id, administration_number, admission_id, patient_id, prescription_item_id,
			medication_name, dose, route, frequency,
			scheduled_date, scheduled_time, scheduled_datetime, status,
			administered_datetime, administered_by, administered_by_name, actual_dose, site, notes,
			requires_witness, witness_id, witness_name, witnessed_at, status_reason, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,1)`,
		a.ID, a.AdministrationNumber, a.AdmissionID, a.PatientID, a.PrescriptionItemID,
		a.MedicationName, a.Dose, a.Route, a.Frequency,
		a.ScheduledDate, a.ScheduledTime, a.ScheduledDateTime, a.Status,
		a.AdministeredDateTime, a.AdministeredBy, a.AdministeredByName, a.ActualDose, a.Site, a.Notes,
		a.RequiresWitness, a.WitnessID, a.WitnessName, a.WitnessedAt, a.StatusReason)
	if err == nil {
		a.Version = 1
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Administration, error) {
	return scanAdministration(r.pool.QueryRow(ctx,
		`SELECT `+administrationCols+` FROM medication_administration WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Administration, error) {
	return scanAdministration(r.pool.QueryRow(ctx,
		`SELECT `+administrationCols+` FROM medication_administration WHERE administration_number = $1`, number))
}

func (r *repoPG) Update(ctx context.Context, a *Administration) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE medication_administration SET status=$2,
			administered_datetime=$3, administered_by=$4, administered_by_name=$5,
			actual_dose=$6, site=$7, notes=$8,
			witness_id=$9, witness_name=$10, witnessed_at=$11, status_reason=$12,
			version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $13`,
		a.ID, a.Status,
		a.AdministeredDateTime, a.AdministeredBy, a.AdministeredByName,
		a.ActualDose, a.Site, a.Notes,
		a.WitnessID, a.WitnessName, a.WitnessedAt, a.StatusReason,
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
	_, err := r.pool.Exec(ctx, `DELETE FROM medication_administration WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Administration, int, error) {
	return r.listWhere(ctx, ``, nil, limit, offset)
}

func (r *repoPG) ListByAdmission(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*Administration, int, error) {
	return r.listWhere(ctx, `WHERE admission_id = $1`, []interface{}{admissionID}, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Administration, int, error) {
	return r.listWhere(ctx, `WHERE patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *repoPG) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Administration, int, error) {
	return r.listWhere(ctx, `WHERE status = $1`, []interface{}{status}, limit, offset)
}

func (r *repoPG) ListScheduledBetween(ctx context.Context, from, to time.Time, limit, offset int) ([]*Administration, int, error) {
	return r.listWhere(ctx,
		`WHERE status IN ('scheduled','due','overdue') AND scheduled_datetime >= $1 AND scheduled_datetime < $2`,
		[]interface{}{from, to}, limit, offset)
}

func (r *repoPG) listWhere(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Administration, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medication_administration `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM medication_administration %s ORDER BY scheduled_datetime ASC LIMIT $%d OFFSET $%d`,
		administrationCols, where, n+1, n+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Administration
	for rows.Next() {
		a, err := scanAdministration(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Administration, int, error) {
	where := `WHERE 1=1`
	var args []interface{}
	idx := 1
	for _, key := range []string{"admission_id", "patient_id", "status", "frequency", "requires_witness"} {
		if p, ok := params[key]; ok {
			where += fmt.Sprintf(` AND %s = $%d`, key, idx)
			args = append(args, p)
			idx++
		}
	}
	return r.listWhere(ctx, where, args, limit, offset)
}
