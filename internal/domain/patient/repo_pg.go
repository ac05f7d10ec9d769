package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const patientCols = `id, code, name, surname, to_char(birth_date, 'YYYY-MM-DD'), age, phone, email, address,
	emergency_contact_name, emergency_contact_phone, medical_history, active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Surname, &p.BirthDate, &p.Age, &p.Phone, &p.Email, &p.Address,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.MedicalHistory, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.Active = true
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		WITH seq AS (SELECT nextval('patient_code_seq') AS n)
		INSERT INTO patients (id, code, name, surname, birth_date, age, phone, email, address,
			emergency_contact_name, emergency_contact_phone, medical_history, active)
		SELECT $1, 'PAC' || LPAD(seq.n::text, GREATEST(5, length(seq.n::text)), '0'),
			$2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, TRUE
		FROM seq
		RETURNING code, created_at, updated_at`,
		p.ID, p.Name, p.Surname, p.BirthDate, p.Age, p.Phone, p.Email, p.Address,
		p.EmergencyContactName, p.EmergencyContactPhone, p.MedicalHistory,
	).Scan(&p.Code, &p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE patients SET name=$2, surname=$3, birth_date=$4::date, age=$5, phone=$6, email=$7, address=$8,
			emergency_contact_name=$9, emergency_contact_phone=$10, medical_history=$11, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Surname, p.BirthDate, p.Age, p.Phone, p.Email, p.Address,
		p.EmergencyContactName, p.EmergencyContactPhone, p.MedicalHistory,
	).Scan(&p.UpdatedAt)
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE patients SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Patient, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := len(args) + 1
	query := `SELECT ` + patientCols + ` FROM patients` + where +
		fmt.Sprintf(" ORDER BY surname, name LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE active = TRUE`
	if f.IncludeInactive {
		where = ``
	}
	return r.list(ctx, where, nil, limit, offset)
}

func (r *repoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	where := ` WHERE active = TRUE AND (name ILIKE $1 OR surname ILIKE $1 OR code ILIKE $1
		OR (name || ' ' || surname) ILIKE $1)`
	return r.list(ctx, where, []interface{}{pattern}, limit, offset)
}

func (r *repoPG) CountActive(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE active = TRUE`).Scan(&n)
	return n, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
