package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultEventID is the reserved single-event partition used when
// multi-event support is not in play.
const DefaultEventID = "default_event"

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description"`
	StartDate   time.Time `bun:"start_date,notnull" json:"startDate"`
	EndDate     time.Time `bun:"end_date,notnull" json:"endDate"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
}
