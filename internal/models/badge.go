package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Badge categories. The category drives visual styling and check-in
// semantics; unknown values fall back to the visitor treatment.
const (
	CategoryOrganizer   = "Organizer"
	CategoryVIP         = "VIP"
	CategorySpeaker     = "Speaker"
	CategoryExhibitor   = "Exhibitor"
	CategoryMedia       = "Media"
	CategoryHostedBuyer = "Hosted Buyer"
	CategoryAgent       = "Agent"
	CategoryVisitor     = "Visitor"
)

// Badge statuses. This is a flat set, not a state machine: any status may
// be set from any other status.
const (
	StatusPending = "pending"
	StatusPrinted = "printed"
	StatusReprint = "reprint"
	StatusDamaged = "damaged"
	StatusLost    = "lost"
	StatusActive  = "active"
)

// ValidStatuses lists every accepted badge status.
var ValidStatuses = []string{
	StatusPending, StatusPrinted, StatusReprint,
	StatusDamaged, StatusLost, StatusActive,
}

// IsValidStatus reports whether s is one of the accepted badge statuses.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Badge is one issued credential. Profile fields are a denormalized
// snapshot taken at issuance/update time, not a live join against users.
type Badge struct {
	bun.BaseModel `bun:"table:badges"`

	ID       string `bun:"id,pk" json:"id"`
	UserID   string `bun:"user_id,notnull" json:"userId"`
	EventID  string `bun:"event_id,notnull" json:"eventId"`
	Name     string `bun:"name" json:"name"`
	Role     string `bun:"role" json:"role"`
	Company  string `bun:"company" json:"company"`
	Email    string `bun:"email" json:"email"`
	Phone    string `bun:"phone" json:"phone"`
	PhotoURL string `bun:"photo_url" json:"photoUrl"`
	Category string `bun:"category,notnull" json:"category"`

	// QRCode holds the fully encoded payload string embedded in the
	// printed glyph. Immutable once issued unless explicitly regenerated.
	QRCode string `bun:"qr_code,notnull" json:"qrCode"`

	Status   string `bun:"status,notnull" json:"status"`
	Template string `bun:"template" json:"template"`

	CreatedAt time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
	PrintedAt *time.Time `bun:"printed_at,nullzero" json:"printedAt,omitempty"`

	CreatedBy string `bun:"created_by" json:"createdBy"`
	UpdatedBy string `bun:"updated_by" json:"updatedBy,omitempty"`

	// Metadata is an open extension map: version tag, source tag and
	// special flags such as visitor e-badge or reused QR.
	Metadata map[string]interface{} `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
}

// BadgeStats is the in-memory reduction over one event's badges.
type BadgeStats struct {
	Total      int            `json:"total"`
	Pending    int            `json:"pending"`
	Printed    int            `json:"printed"`
	Reprint    int            `json:"reprint"`
	ByCategory map[string]int `json:"byCategory"`
}

// BadgeFilters narrows a badge search. EventID and Status are applied
// server-side; Query and Category are post-filtered in memory.
type BadgeFilters struct {
	EventID  string
	Status   string
	Category string
	Query    string
}

// BulkResult reports per-chunk partial success of a bulk status update.
type BulkResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
