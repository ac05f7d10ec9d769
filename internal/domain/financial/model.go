package financial

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DirectionIncome  = "income"
	DirectionExpense = "expense"
)

func ValidDirection(d string) bool {
	return d == DirectionIncome || d == DirectionExpense
}

var validPaymentMethods = map[string]bool{
	"cash":     true,
	"card":     true,
	"transfer": true,
	"check":    true,
	"deposit":  true,
}

func ValidPaymentMethod(m string) bool { return validPaymentMethods[m] }

// Movement maps to the financial_movements table. Amount is always
// positive; Direction carries the sign.
type Movement struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	OwnerID       uuid.UUID       `db:"owner_id" json:"owner_id"`
	Direction     string          `db:"direction" json:"direction"`
	Category      string          `db:"category" json:"category"`
	Description   string          `db:"description" json:"description"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Date          string          `db:"date" json:"date"`
	PatientID     *uuid.UUID      `db:"patient_id" json:"patient_id,omitempty"`
	AppointmentID *uuid.UUID      `db:"appointment_id" json:"appointment_id,omitempty"`
	PaymentMethod *string         `db:"payment_method" json:"payment_method,omitempty"`
	ReceiptRef    *string         `db:"receipt_ref" json:"receipt_ref,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Signed returns the amount with the direction applied.
func (m *Movement) Signed() decimal.Decimal {
	if m.Direction == DirectionExpense {
		return m.Amount.Neg()
	}
	return m.Amount
}

type Patch struct {
	Direction     *string          `json:"direction"`
	Category      *string          `json:"category"`
	Description   *string          `json:"description"`
	Amount        *decimal.Decimal `json:"amount"`
	Date          *string          `json:"date"`
	PatientID     *uuid.UUID       `json:"patient_id"`
	AppointmentID *uuid.UUID       `json:"appointment_id"`
	PaymentMethod *string          `json:"payment_method"`
	ReceiptRef    *string          `json:"receipt_ref"`
}

func (p Patch) apply(m *Movement) {
	if p.Direction != nil {
		m.Direction = *p.Direction
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Amount != nil {
		m.Amount = *p.Amount
	}
	if p.Date != nil {
		m.Date = *p.Date
	}
	if p.PatientID != nil {
		m.PatientID = p.PatientID
	}
	if p.AppointmentID != nil {
		m.AppointmentID = p.AppointmentID
	}
	if p.PaymentMethod != nil {
		m.PaymentMethod = p.PaymentMethod
	}
	if p.ReceiptRef != nil {
		m.ReceiptRef = p.ReceiptRef
	}
}

// Filter narrows List. Date wins over From/To.
type Filter struct {
	Date          string
	From          string
	To            string
	Direction     string
	Category      string
	PaymentMethod string
	PatientID     *uuid.UUID
}
