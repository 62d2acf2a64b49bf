// Package checkin consumes decoded badge payloads at the door. The QR
// string is immutable once printed: its check-in facet is only a seed
// shape, and the live counters live here, keyed by uid+eventId.
package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-badging/internal/badge/qr"
	"ms-badging/internal/logger"
	"ms-badging/internal/models"
)

// Publisher streams check-in events; optional.
type Publisher interface {
	PublishBadgeCheckedIn(userID, eventID string, checkedIn bool) error
}

type Service struct {
	DB       *bun.DB
	Producer Publisher
	Logger   *logger.Logger
}

func NewService(db *bun.DB) *Service {
	return &Service{DB: db}
}

// CheckIn records an entry scan for the attendee the payload identifies.
// Payloads of any version are accepted; only the identity header matters.
func (s *Service) CheckIn(ctx context.Context, payload *qr.Payload) (*models.CheckInRecord, error) {
	return s.record(ctx, payload, true)
}

// CheckOut records an exit scan.
func (s *Service) CheckOut(ctx context.Context, payload *qr.Payload) (*models.CheckInRecord, error) {
	return s.record(ctx, payload, false)
}

func (s *Service) record(ctx context.Context, payload *qr.Payload, in bool) (*models.CheckInRecord, error) {
	if payload == nil || payload.UID == "" {
		return nil, errors.New("payload missing uid")
	}
	eventID := payload.EventID
	if eventID == "" {
		eventID = models.DefaultEventID
	}

	rec, err := s.getRecord(ctx, payload.UID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-in record: %w", err)
	}

	now := time.Now()
	if rec == nil {
		rec = &models.CheckInRecord{UserID: payload.UID, EventID: eventID}
		if _, err := s.DB.NewInsert().Model(rec).Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to create check-in record: %w", err)
		}
	}

	rec.CheckedIn = in
	if in {
		rec.CheckInCount++
		rec.LastCheckIn = &now
	} else {
		rec.CheckOutCount++
		rec.LastCheckOut = &now
	}

	_, err = s.DB.NewUpdate().
		Model(rec).
		Column("checked_in", "check_in_count", "check_out_count", "last_check_in", "last_check_out").
		Where("user_id = ?", rec.UserID).
		Where("event_id = ?", rec.EventID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update check-in record: %w", err)
	}

	if s.Producer != nil {
		if err := s.Producer.PublishBadgeCheckedIn(rec.UserID, rec.EventID, in); err != nil {
			s.logError(fmt.Sprintf("failed to publish check-in event for %s: %v", rec.UserID, err))
		}
	}
	return rec, nil
}

// GetRecord returns the live counters for one attendee at one event, or
// nil when they have never scanned.
func (s *Service) GetRecord(ctx context.Context, userID, eventID string) (*models.CheckInRecord, error) {
	return s.getRecord(ctx, userID, eventID)
}

func (s *Service) getRecord(ctx context.Context, userID, eventID string) (*models.CheckInRecord, error) {
	var rec models.CheckInRecord
	err := s.DB.NewSelect().
		Model(&rec).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) logError(message string) {
	if s.Logger != nil {
		s.Logger.Error("CHECKIN", message)
	}
}
