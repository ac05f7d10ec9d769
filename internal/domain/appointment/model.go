package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

var validStatuses = map[string]bool{
	StatusScheduled:  true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
	StatusNoShow:     true,
}

// Statuses lists every status in lifecycle order.
var Statuses = []string{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow}

const (
	CategoryIndividualTherapy = "individual_therapy"
	CategoryGroupTherapy      = "group_therapy"
	CategorySpecialEvent      = "special_event"
	CategoryConsultation      = "consultation"
	CategoryFamilyVisit       = "family_visit"
)

var validCategories = map[string]bool{
	CategoryIndividualTherapy: true,
	CategoryGroupTherapy:      true,
	CategorySpecialEvent:      true,
	CategoryConsultation:      true,
	CategoryFamilyVisit:       true,
}

var Categories = []string{CategoryIndividualTherapy, CategoryGroupTherapy, CategorySpecialEvent, CategoryConsultation, CategoryFamilyVisit}

func ValidStatus(s string) bool   { return validStatuses[s] }
func ValidCategory(c string) bool { return validCategories[c] }

// Appointment maps to the appointments table. Date is a calendar date
// (YYYY-MM-DD) and StartTime/EndTime are wall-clock times (HH:MM) in the
// center's time zone.
type Appointment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	OwnerID      uuid.UUID `db:"owner_id" json:"owner_id"`
	Category     string    `db:"category" json:"category"`
	Title        string    `db:"title" json:"title"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	Date         string    `db:"date" json:"date"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	Status       string    `db:"status" json:"status"`
	ReminderSent bool      `db:"reminder_sent" json:"reminder_sent"`
	PatientName  string    `db:"-" json:"patient_name,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Patch carries a partial update. Nil fields are left unchanged.
type Patch struct {
	PatientID   *uuid.UUID `json:"patient_id"`
	Category    *string    `json:"category"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Notes       *string    `json:"notes"`
	Date        *string    `json:"date"`
	StartTime   *string    `json:"start_time"`
	EndTime     *string    `json:"end_time"`
	Status      *string    `json:"status"`
}

func (p Patch) touchesTime() bool {
	return p.Date != nil || p.StartTime != nil || p.EndTime != nil
}

// Filter narrows List. Zero values are ignored; Date wins over From/To.
type Filter struct {
	Date      string
	From      string
	To        string
	Status    string
	Category  string
	PatientID *uuid.UUID
}
