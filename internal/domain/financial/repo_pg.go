package financial

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const movementCols = `id, owner_id, direction, category, description, amount::text, to_char(date, 'YYYY-MM-DD'),
	patient_id, appointment_id, payment_method, receipt_ref, created_at, updated_at`

func scanMovement(row pgx.Row) (*Movement, error) {
	var m Movement
	var amount string
	err := row.Scan(&m.ID, &m.OwnerID, &m.Direction, &m.Category, &m.Description, &amount, &m.Date,
		&m.PatientID, &m.AppointmentID, &m.PaymentMethod, &m.ReceiptRef, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("movement %s has malformed amount %q: %w", m.ID, amount, err)
	}
	return &m, nil
}

func collect(rows pgx.Rows) ([]*Movement, error) {
	defer rows.Close()
	var items []*Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, m *Movement) error {
	m.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO financial_movements (id, owner_id, direction, category, description, amount, date,
			patient_id, appointment_id, payment_method, receipt_ref)
		VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::date,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		m.ID, m.OwnerID, m.Direction, m.Category, m.Description, m.Amount.String(), m.Date,
		m.PatientID, m.AppointmentID, m.PaymentMethod, m.ReceiptRef,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Movement, error) {
	return scanMovement(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+movementCols+` FROM financial_movements WHERE id = $1 AND owner_id = $2`, id, ownerID))
}

func (r *repoPG) Update(ctx context.Context, m *Movement) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE financial_movements SET direction=$3, category=$4, description=$5, amount=$6::numeric,
			date=$7::date, patient_id=$8, appointment_id=$9, payment_method=$10, receipt_ref=$11, updated_at=NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING updated_at`,
		m.ID, m.OwnerID, m.Direction, m.Category, m.Description, m.Amount.String(), m.Date,
		m.PatientID, m.AppointmentID, m.PaymentMethod, m.ReceiptRef,
	).Scan(&m.UpdatedAt)
}

func (r *repoPG) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM financial_movements WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, ownerID uuid.UUID, f Filter, limit, offset int) ([]*Movement, int, error) {
	where := ` WHERE owner_id = $1`
	args := []interface{}{ownerID}
	idx := 2

	if f.Date != "" {
		where += fmt.Sprintf(" AND date = $%d::date", idx)
		args = append(args, f.Date)
		idx++
	} else {
		if f.From != "" {
			where += fmt.Sprintf(" AND date >= $%d::date", idx)
			args = append(args, f.From)
			idx++
		}
		if f.To != "" {
			where += fmt.Sprintf(" AND date <= $%d::date", idx)
			args = append(args, f.To)
			idx++
		}
	}
	if f.Direction != "" {
		where += fmt.Sprintf(" AND direction = $%d", idx)
		args = append(args, f.Direction)
		idx++
	}
	if f.Category != "" {
		where += fmt.Sprintf(" AND category = $%d", idx)
		args = append(args, f.Category)
		idx++
	}
	if f.PaymentMethod != "" {
		where += fmt.Sprintf(" AND payment_method = $%d", idx)
		args = append(args, f.PaymentMethod)
		idx++
	}
	if f.PatientID != nil {
		where += fmt.Sprintf(" AND patient_id = $%d", idx)
		args = append(args, *f.PatientID)
		idx++
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM financial_movements`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + movementCols + ` FROM financial_movements` + where +
		fmt.Sprintf(" ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListRange(ctx context.Context, ownerID uuid.UUID, from, to string) ([]*Movement, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+movementCols+` FROM financial_movements
		WHERE owner_id = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date, created_at`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) ListRecent(ctx context.Context, ownerID uuid.UUID, n int) ([]*Movement, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+movementCols+` FROM financial_movements
		WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`, ownerID, n)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
