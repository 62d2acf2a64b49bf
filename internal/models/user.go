package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the attendee profile. The badging service references users but
// does not own them: profile upkeep belongs to the registration service.
// The badge-reference mirror fields (BadgeID, BadgeCreated, BadgeDeleted,
// BadgeStatus) are kept in sync by the badge store on every mutation.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID          string   `bun:"id,pk" json:"id"`
	Email       string   `bun:"email,unique,notnull" json:"email"`
	FullName    string   `bun:"full_name,notnull" json:"fullName"`
	Phone       string   `bun:"phone" json:"phone"`
	Company     string   `bun:"company" json:"company"`
	Position    string   `bun:"position" json:"position"`
	Category    string   `bun:"category" json:"category"`
	Bio         string   `bun:"bio" json:"bio"`
	Website     string   `bun:"website" json:"website"`
	LinkedIn    string   `bun:"linkedin" json:"linkedin"`
	BoothNumber string   `bun:"booth_number" json:"boothNumber"`
	PhotoURL    string   `bun:"photo_url" json:"photoUrl"`
	Interests   []string `bun:"interests,type:jsonb" json:"interests,omitempty"`
	Products    []string `bun:"products,type:jsonb" json:"products,omitempty"`
	Services    []string `bun:"services,type:jsonb" json:"services,omitempty"`

	BadgeID      string `bun:"badge_id" json:"badgeId,omitempty"`
	BadgeCreated bool   `bun:"badge_created" json:"badgeCreated"`
	BadgeDeleted bool   `bun:"badge_deleted" json:"badgeDeleted"`
	BadgeStatus  string `bun:"badge_status" json:"badgeStatus,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}
