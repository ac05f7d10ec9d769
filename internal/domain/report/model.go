package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/appointment"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/financial"
)

// Report maps to the reports table. There is at most one row per
// (date, owner); regenerating overwrites it in place.
type Report struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Date              string          `db:"date" json:"date"`
	OwnerID           uuid.UUID       `db:"owner_id" json:"owner_id"`
	TotalPatients     int             `db:"total_patients" json:"total_patients"`
	TotalAppointments int             `db:"total_appointments" json:"total_appointments"`
	CompletedCount    int             `db:"completed_count" json:"completed_count"`
	CancelledCount    int             `db:"cancelled_count" json:"cancelled_count"`
	NoShowCount       int             `db:"no_show_count" json:"no_show_count"`
	TotalIncome       decimal.Decimal `db:"total_income" json:"total_income"`
	TotalExpenses     decimal.Decimal `db:"total_expenses" json:"total_expenses"`
	Balance           decimal.Decimal `db:"balance" json:"balance"`
	FilePath          *string         `db:"file_path" json:"file_path,omitempty"`
	SentToOwner       bool            `db:"sent_to_owner" json:"sent_to_owner"`
	SentAt            *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// MarshalJSON writes amounts with two decimals, matching financial totals.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		TotalIncome   string `json:"total_income"`
		TotalExpenses string `json:"total_expenses"`
		Balance       string `json:"balance"`
	}{plain(r), r.TotalIncome.StringFixed(2), r.TotalExpenses.StringFixed(2), r.Balance.StringFixed(2)})
}

// Stats are the derived figures for one owner's day.
type Stats struct {
	TotalPatients     int              `json:"total_patients"`
	TotalAppointments int              `json:"total_appointments"`
	Completed         int              `json:"completed"`
	Cancelled         int              `json:"cancelled"`
	NoShow            int              `json:"no_show"`
	Finance           financial.Totals `json:"finance"`
}

func (r *Report) apply(s Stats) {
	r.TotalPatients = s.TotalPatients
	r.TotalAppointments = s.TotalAppointments
	r.CompletedCount = s.Completed
	r.CancelledCount = s.Cancelled
	r.NoShowCount = s.NoShow
	r.TotalIncome = s.Finance.Income
	r.TotalExpenses = s.Finance.Expenses
	r.Balance = s.Finance.Balance
}

// Owner identifies whose day is being reported.
type Owner struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// DayData is everything a report was built from. Callers use it to fill
// the delivery message.
type DayData struct {
	Date         string
	Owner        Owner
	Appointments []*appointment.Appointment
	Movements    []*financial.Movement
	Stats        Stats
	PDF          []byte
	FileName     string
}

type ListFilter struct {
	From string
	To   string
}
