package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Lead is a contact captured by an exhibitor scanning an attendee badge.
// It is seeded from the lead facet of the QR payload plus the scan time.
type Lead struct {
	bun.BaseModel `bun:"table:leads"`

	ID          string   `bun:"id,pk" json:"id"`
	ExhibitorID string   `bun:"exhibitor_id,notnull" json:"exhibitorId"`
	AttendeeID  string   `bun:"attendee_id,notnull" json:"attendeeId"`
	EventID     string   `bun:"event_id,notnull" json:"eventId"`
	Name        string   `bun:"name" json:"name"`
	Email       string   `bun:"email" json:"email"`
	Phone       string   `bun:"phone" json:"phone"`
	Company     string   `bun:"company" json:"company"`
	Position    string   `bun:"position" json:"position"`
	Interests   []string `bun:"interests,type:jsonb" json:"interests,omitempty"`
	Score       int      `bun:"score,notnull,default:0" json:"score"`
	Source      string   `bun:"source,notnull" json:"source"`
	Status      string   `bun:"status,notnull" json:"status"`

	CapturedAt time.Time `bun:"captured_at,notnull" json:"capturedAt"`
}
