package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const apptCols = `a.id, a.patient_id, a.owner_id, a.category, a.title, a.description, a.notes,
	to_char(a.date, 'YYYY-MM-DD'), to_char(a.start_time, 'HH24:MI'), to_char(a.end_time, 'HH24:MI'),
	a.status, a.reminder_sent, COALESCE(p.name || ' ' || p.surname, ''), a.created_at, a.updated_at`

const apptFrom = ` FROM appointments a LEFT JOIN patients p ON p.id = a.patient_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.OwnerID, &a.Category, &a.Title, &a.Description, &a.Notes,
		&a.Date, &a.StartTime, &a.EndTime, &a.Status, &a.ReminderSent, &a.PatientName, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, owner_id, category, title, description, notes,
			date, start_time, end_time, status, reminder_sent)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8::date,$9::time,$10::time,$11,$12)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.OwnerID, a.Category, a.Title, a.Description, a.Notes,
		a.Date, a.StartTime, a.EndTime, a.Status, a.ReminderSent,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+apptCols+apptFrom+` WHERE a.id = $1 AND a.owner_id = $2`, id, ownerID))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE appointments SET patient_id=$3, category=$4, title=$5, description=$6, notes=$7,
			date=$8::date, start_time=$9::time, end_time=$10::time, status=$11, updated_at=NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING updated_at`,
		a.ID, a.OwnerID, a.PatientID, a.Category, a.Title, a.Description, a.Notes,
		a.Date, a.StartTime, a.EndTime, a.Status,
	).Scan(&a.UpdatedAt)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, ownerID, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointments SET status=$3, updated_at=NOW() WHERE id = $1 AND owner_id = $2`, id, ownerID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM appointments WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, ownerID uuid.UUID, f Filter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE a.owner_id = $1`
	args := []interface{}{ownerID}
	idx := 2

	if f.Date != "" {
		where += fmt.Sprintf(" AND a.date = $%d::date", idx)
		args = append(args, f.Date)
		idx++
	} else {
		if f.From != "" {
			where += fmt.Sprintf(" AND a.date >= $%d::date", idx)
			args = append(args, f.From)
			idx++
		}
		if f.To != "" {
			where += fmt.Sprintf(" AND a.date <= $%d::date", idx)
			args = append(args, f.To)
			idx++
		}
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND a.status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Category != "" {
		where += fmt.Sprintf(" AND a.category = $%d", idx)
		args = append(args, f.Category)
		idx++
	}
	if f.PatientID != nil {
		where += fmt.Sprintf(" AND a.patient_id = $%d", idx)
		args = append(args, *f.PatientID)
		idx++
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + apptFrom + where +
		fmt.Sprintf(" ORDER BY a.date, a.start_time LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListRange(ctx context.Context, ownerID uuid.UUID, from, to string) ([]*Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE a.owner_id = $1 AND a.date BETWEEN $2::date AND $3::date
		ORDER BY a.date, a.start_time`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) ListForConflict(ctx context.Context, ownerID uuid.UUID, date string, excludeID uuid.UUID) ([]*Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE a.owner_id = $1 AND a.date = $2::date AND a.status <> 'cancelled' AND a.id <> $3
		ORDER BY a.start_time`, ownerID, date, excludeID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) ListPendingReminders(ctx context.Context, ownerID uuid.UUID, date string) ([]*Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE a.owner_id = $1 AND a.date = $2::date AND a.status = 'scheduled' AND a.reminder_sent = FALSE
		ORDER BY a.start_time`, ownerID, date)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
