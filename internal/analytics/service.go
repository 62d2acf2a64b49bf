// Package analytics maintains the per-user badge counters. Counters are
// observability, not correctness-critical state: recording never fails the
// calling operation.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-badging/internal/logger"
	"ms-badging/internal/models"
)

// Service upserts per-user badge analytics documents. The analytics row
// is created lazily on the first mutating action and never deleted.
type Service struct {
	DB     *bun.DB
	Logger *logger.Logger
}

func NewService(db *bun.DB) *Service {
	return &Service{DB: db}
}

var actionColumns = map[string]string{
	models.ActionCreated:       "total_created",
	models.ActionPrinted:       "total_printed",
	models.ActionDeleted:       "total_deleted",
	models.ActionStatusUpdated: "total_status_updates",
}

// RecordAction increments the counter matching the action and overwrites
// the last-action stamp. Unknown actions and store errors are logged and
// swallowed.
func (s *Service) RecordAction(ctx context.Context, userID, action, performedBy string) {
	column, ok := actionColumns[action]
	if !ok {
		s.logError(fmt.Sprintf("unknown analytics action %q for user %s", action, userID))
		return
	}

	now := time.Now()
	row := &models.BadgeAnalytics{
		UserID:        userID,
		LastAction:    action,
		LastUpdated:   now,
		LastUpdatedBy: performedBy,
	}
	switch action {
	case models.ActionCreated:
		row.TotalCreated = 1
	case models.ActionPrinted:
		row.TotalPrinted = 1
	case models.ActionDeleted:
		row.TotalDeleted = 1
	case models.ActionStatusUpdated:
		row.TotalStatusUpdates = 1
	}

	_, err := s.DB.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set(fmt.Sprintf("%s = badge_analytics.%s + 1", column, column)).
		Set("last_action = EXCLUDED.last_action").
		Set("last_updated = EXCLUDED.last_updated").
		Set("last_updated_by = EXCLUDED.last_updated_by").
		Exec(ctx)
	if err != nil {
		s.logError(fmt.Sprintf("failed to record %s for user %s: %v", action, userID, err))
	}
}

// GetUserAnalytics returns the counters for one user, or nil when no
// mutating action has been recorded yet.
func (s *Service) GetUserAnalytics(ctx context.Context, userID string) (*models.BadgeAnalytics, error) {
	var row models.BadgeAnalytics
	err := s.DB.NewSelect().
		Model(&row).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Service) logError(message string) {
	if s.Logger != nil {
		s.Logger.Error("ANALYTICS", message)
	}
}
