package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Badge analytics actions.
const (
	ActionCreated       = "created"
	ActionPrinted       = "printed"
	ActionDeleted       = "deleted"
	ActionStatusUpdated = "status_updated"
)

// BadgeAnalytics holds per-user monotonic counters, created lazily on the
// first mutating badge action and never deleted.
type BadgeAnalytics struct {
	bun.BaseModel `bun:"table:badge_analytics"`

	UserID             string    `bun:"user_id,pk" json:"userId"`
	TotalCreated       int64     `bun:"total_created,notnull,default:0" json:"totalCreated"`
	TotalPrinted       int64     `bun:"total_printed,notnull,default:0" json:"totalPrinted"`
	TotalDeleted       int64     `bun:"total_deleted,notnull,default:0" json:"totalDeleted"`
	TotalStatusUpdates int64     `bun:"total_status_updates,notnull,default:0" json:"totalStatusUpdates"`
	LastAction         string    `bun:"last_action" json:"lastAction"`
	LastUpdated        time.Time `bun:"last_updated" json:"lastUpdated"`
	LastUpdatedBy      string    `bun:"last_updated_by" json:"lastUpdatedBy"`
}
