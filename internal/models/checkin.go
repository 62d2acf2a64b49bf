package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CheckInRecord carries the live check-in counters for one attendee at one
// event. The QR payload only ships the zeroed shape of this record; the
// scanning flows read and write the live state here, keyed by uid+eventId.
type CheckInRecord struct {
	bun.BaseModel `bun:"table:check_in_records"`

	UserID        string     `bun:"user_id,pk" json:"userId"`
	EventID       string     `bun:"event_id,pk" json:"eventId"`
	CheckedIn     bool       `bun:"checked_in,notnull,default:false" json:"checkedIn"`
	CheckInCount  int64      `bun:"check_in_count,notnull,default:0" json:"checkInCount"`
	CheckOutCount int64      `bun:"check_out_count,notnull,default:0" json:"checkOutCount"`
	LastCheckIn   *time.Time `bun:"last_check_in,nullzero" json:"lastCheckIn,omitempty"`
	LastCheckOut  *time.Time `bun:"last_check_out,nullzero" json:"lastCheckOut,omitempty"`
}
