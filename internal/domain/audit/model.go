package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry maps to the audit_entries table. Entries are append-only.
type Entry struct {
	ID          uuid.UUID              `db:"id" json:"id"`
	OwnerID     uuid.UUID              `db:"owner_id" json:"owner_id"`
	Action      string                 `db:"action" json:"action"`
	Description string                 `db:"description" json:"description"`
	EntityType  *string                `db:"entity_type" json:"entity_type,omitempty"`
	EntityID    *uuid.UUID             `db:"entity_id" json:"entity_id,omitempty"`
	Metadata    map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
}

// Filter narrows List results. Zero values are ignored.
type Filter struct {
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// NewEntry builds an entry about a single entity.
func NewEntry(owner uuid.UUID, action, description, entityType string, entityID uuid.UUID) Entry {
	e := Entry{
		OwnerID:     owner,
		Action:      action,
		Description: description,
	}
	if entityType != "" {
		e.EntityType = &entityType
	}
	if entityID != uuid.Nil {
		id := entityID
		e.EntityID = &id
	}
	return e
}
