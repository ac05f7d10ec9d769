package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CodePrefix precedes the zero-padded sequence number in patient codes.
const CodePrefix = "PAC"

// Patient maps to the patients table.
type Patient struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	Code                  string    `db:"code" json:"code"`
	Name                  string    `db:"name" json:"name"`
	Surname               string    `db:"surname" json:"surname"`
	BirthDate             *string   `db:"birth_date" json:"birth_date,omitempty"`
	Age                   *int      `db:"age" json:"age,omitempty"`
	Phone                 *string   `db:"phone" json:"phone,omitempty"`
	Email                 *string   `db:"email" json:"email,omitempty"`
	Address               *string   `db:"address" json:"address,omitempty"`
	EmergencyContactName  *string   `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string   `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	MedicalHistory        *string   `db:"medical_history" json:"medical_history,omitempty"`
	Active                bool      `db:"active" json:"active"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	return p.Name + " " + p.Surname
}

// FormatCode renders a sequence number as a patient code, e.g. PAC00001.
func FormatCode(n int64) string {
	return fmt.Sprintf("%s%05d", CodePrefix, n)
}

// Patch carries a partial update. Nil fields are left unchanged.
type Patch struct {
	Name                  *string `json:"name"`
	Surname               *string `json:"surname"`
	BirthDate             *string `json:"birth_date"`
	Age                   *int    `json:"age"`
	Phone                 *string `json:"phone"`
	Email                 *string `json:"email"`
	Address               *string `json:"address"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
	MedicalHistory        *string `json:"medical_history"`
}

func (p Patch) apply(dst *Patient) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Surname != nil {
		dst.Surname = *p.Surname
	}
	if p.BirthDate != nil {
		dst.BirthDate = p.BirthDate
	}
	if p.Age != nil {
		dst.Age = p.Age
	}
	if p.Phone != nil {
		dst.Phone = p.Phone
	}
	if p.Email != nil {
		dst.Email = p.Email
	}
	if p.Address != nil {
		dst.Address = p.Address
	}
	if p.EmergencyContactName != nil {
		dst.EmergencyContactName = p.EmergencyContactName
	}
	if p.EmergencyContactPhone != nil {
		dst.EmergencyContactPhone = p.EmergencyContactPhone
	}
	if p.MedicalHistory != nil {
		dst.MedicalHistory = p.MedicalHistory
	}
}

// ListFilter narrows List. Inactive patients are hidden unless
// IncludeInactive is set.
type ListFilter struct {
	IncludeInactive bool
}
