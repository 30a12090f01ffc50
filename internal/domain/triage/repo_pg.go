package triage

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

const triageCols = `id, triage_number, patient_id, chief_complaint,
	consciousness, airway, breathing, circulation, mobility, pain_level,
	temperature, bp_systolic, bp_diastolic, heart_rate, respiratory_rate, oxygen_saturation, glucose,
	red_flags, has_red_flags, level, category, status,
	triage_start_time, triage_end_time, seen_by_doctor_time,
	triaged_by, notes, version, created_at, updated_at`

func scanTriage(row pgx.Row) (*Triage, error) {
	var t Triage
	err := row.Scan(&t.ID, &t.TriageNumber, &t.PatientID, &t.ChiefComplaint,
		&t.Consciousness, &t.Airway, &t.Breathing, &t.Circulation, &t.Mobility, &t.PainLevel,
		&t.Vitals.Temperature, &t.Vitals.BPSystolic, &t.Vitals.BPDiastolic, &t.Vitals.HeartRate,
		&t.Vitals.RespiratoryRate, &t.Vitals.OxygenSaturation, &t.Vitals.Glucose,
		&t.RedFlags, &t.HasRedFlags, &t.Level, &t.Category, &t.Status,
		&t.TriageStartTime, &t.TriageEndTime, &t.SeenByDoctorTime,
		&t.TriagedBy, &t.Notes, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Triage) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO triage (id, triage_number, patient_id, chief_complaint,
			consciousness, airway, breathing, circulation, mobility, pain_level,
			temperature, bp_systolic, bp_diastolic, heart_rate, respiratory_rate, oxygen_saturation, glucose,
			red_flags, has_red_flags, level, category, status,
			triage_start_time, triage_end_time, seen_by_doctor_time, triaged_by, notes, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,1)`,
		t.ID, t.TriageNumber, t.PatientID, t.ChiefComplaint,
		t.Consciousness, t.Airway, t.Breathing, t.Circulation, t.Mobility, t.PainLevel,
		t.Vitals.Temperature, t.Vitals.BPSystolic, t.Vitals.BPDiastolic, t.Vitals.HeartRate,
		t.Vitals.RespiratoryRate, t.Vitals.OxygenSaturation, t.Vitals.Glucose,
		t.RedFlags, t.HasRedFlags, t.Level, t.Category, t.Status,
		t.TriageStartTime, t.TriageEndTime, t.SeenByDoctorTime, t.TriagedBy, t.Notes)
	if err == nil {
		t.Version = 1
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Triage, error) {
	return scanTriage(r.pool.QueryRow(ctx, `SELECT `+triageCols+` FROM triage WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Triage, error) {
	return scanTriage(r.pool.QueryRow(ctx, `SELECT `+triageCols+` FROM triage WHERE triage_number = $1`, number))
}

func (r *repoPG) Update(ctx context.Context, t *Triage) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE triage SET chief_complaint=$2, consciousness=$3, airway=$4, breathing=$5,
			circulation=$6, mobility=$7, pain_level=$8,
			temperature=$9, bp_systolic=$10, bp_diastolic=$11, heart_rate=$12,
			respiratory_rate=$13, oxygen_saturation=$14, glucose=$15,
			red_flags=$16, has_red_flags=$17, level=$18, category=$19, status=$20,
			triage_end_time=$21, seen_by_doctor_time=$22, triaged_by=$23, notes=$24,
			version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $25`,
		t.ID, t.ChiefComplaint, t.Consciousness, t.Airway, t.Breathing,
		t.Circulation, t.Mobility, t.PainLevel,
		t.Vitals.Temperature, t.Vitals.BPSystolic, t.Vitals.BPDiastolic, t.Vitals.HeartRate,
		t.Vitals.RespiratoryRate, t.Vitals.OxygenSaturation, t.Vitals.Glucose,
		t.RedFlags, t.HasRedFlags, t.Level, t.Category, t.Status,
		t.TriageEndTime, t.SeenByDoctorTime, t.TriagedBy, t.Notes,
		t.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrVersionConflict
	}
	t.Version++
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM triage WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Triage, int, error) {
	return r.listWhere(ctx, ``, nil, limit, offset)
}

func (r *repoPG) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Triage, int, error) {
	return r.listWhere(ctx, `WHERE status = $1`, []interface{}{status}, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Triage, int, error) {
	return r.listWhere(ctx, `WHERE patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *repoPG) listWhere(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Triage, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM triage `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM triage %s ORDER BY level ASC, triage_start_time ASC LIMIT $%d OFFSET $%d`,
		triageCols, where, n+1, n+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Triage
	for rows.Next() {
		t, err := scanTriage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Triage, int, error) {
	where := `WHERE 1=1`
	var args []interface{}
	idx := 1
	for _, key := range []string{"patient_id", "status", "level", "category"} {
		if p, ok := params[key]; ok {
			where += fmt.Sprintf(` AND %s = $%d`, key, idx)
			args = append(args, p)
			idx++
		}
	}
	return r.listWhere(ctx, where, args, limit, offset)
}
