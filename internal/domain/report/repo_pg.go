package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const reportCols = `id, to_char(date, 'YYYY-MM-DD'), owner_id, total_patients, total_appointments,
	completed_count, cancelled_count, no_show_count, total_income::text, total_expenses::text, balance::text,
	file_path, sent_to_owner, sent_at, created_at, updated_at`

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	var income, expenses, balance string
	err := row.Scan(&r.ID, &r.Date, &r.OwnerID, &r.TotalPatients, &r.TotalAppointments,
		&r.CompletedCount, &r.CancelledCount, &r.NoShowCount, &income, &expenses, &balance,
		&r.FilePath, &r.SentToOwner, &r.SentAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&r.TotalIncome, income}, {&r.TotalExpenses, expenses}, {&r.Balance, balance}} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("report %s has malformed amount %q: %w", r.ID, f.src, err)
		}
	}
	return &r, nil
}

// Upsert writes stats and file location in one statement. Delivery state is
// left untouched on conflict.
func (r *repoPG) Upsert(ctx context.Context, rep *Report) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO reports (id, date, owner_id, total_patients, total_appointments, completed_count,
			cancelled_count, no_show_count, total_income, total_expenses, balance, file_path)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric, $12)
		ON CONFLICT (date, owner_id) DO UPDATE SET
			total_patients = EXCLUDED.total_patients,
			total_appointments = EXCLUDED.total_appointments,
			completed_count = EXCLUDED.completed_count,
			cancelled_count = EXCLUDED.cancelled_count,
			no_show_count = EXCLUDED.no_show_count,
			total_income = EXCLUDED.total_income,
			total_expenses = EXCLUDED.total_expenses,
			balance = EXCLUDED.balance,
			file_path = EXCLUDED.file_path,
			updated_at = NOW()
		RETURNING id, sent_to_owner, sent_at, created_at, updated_at`,
		uuid.New(), rep.Date, rep.OwnerID, rep.TotalPatients, rep.TotalAppointments, rep.CompletedCount,
		rep.CancelledCount, rep.NoShowCount, rep.TotalIncome.String(), rep.TotalExpenses.String(),
		rep.Balance.String(), rep.FilePath,
	).Scan(&rep.ID, &rep.SentToOwner, &rep.SentAt, &rep.CreatedAt, &rep.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Report, error) {
	return scanReport(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE id = $1 AND owner_id = $2`, id, ownerID))
}

func (r *repoPG) GetByDate(ctx context.Context, ownerID uuid.UUID, date string) (*Report, error) {
	return scanReport(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE owner_id = $1 AND date = $2::date`, ownerID, date))
}

func (r *repoPG) List(ctx context.Context, ownerID uuid.UUID, f ListFilter, limit, offset int) ([]*Report, int, error) {
	where := ` WHERE owner_id = $1`
	args := []interface{}{ownerID}
	idx := 2
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

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + reportCols + ` FROM reports` + where +
		fmt.Sprintf(" ORDER BY date DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rep)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkSent(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE reports SET sent_to_owner = TRUE, sent_at = $3, updated_at = NOW() WHERE id = $1 AND owner_id = $2`,
		id, ownerID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
