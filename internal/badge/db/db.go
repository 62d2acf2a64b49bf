// Package db is the bun-backed storage layer for badges. Wherever a badge
// write and its user-mirror write target documents known up front, both go
// through a single transaction so either both land or neither does.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-badging/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetUserByID returns the attendee profile, or nil without error when no
// profile exists.
func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateBadge inserts the badge and updates the owning user's
// badge-reference fields in one transaction.
func (d *DB) CreateBadge(ctx context.Context, badge *models.Badge) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(badge).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("badge_id = ?", badge.ID).
			Set("badge_created = ?", true).
			Set("badge_deleted = ?", false).
			Set("badge_status = ?", badge.Status).
			Where("id = ?", badge.UserID).
			Exec(ctx)
		return err
	})
}

func (d *DB) GetBadgeByID(ctx context.Context, id string) (*models.Badge, error) {
	var badge models.Badge
	err := d.Bun.NewSelect().
		Model(&badge).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

func (d *DB) GetBadgesByUser(ctx context.Context, userID string) ([]models.Badge, error) {
	var badges []models.Badge
	err := d.Bun.NewSelect().
		Model(&badges).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return badges, nil
}

func (d *DB) GetBadgesByIDs(ctx context.Context, ids []string) ([]models.Badge, error) {
	if len(ids) == 0 {
		return []models.Badge{}, nil
	}
	var badges []models.Badge
	err := d.Bun.NewSelect().
		Model(&badges).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return badges, nil
}

func (d *DB) GetBadgesByEvent(ctx context.Context, eventID string) ([]models.Badge, error) {
	var badges []models.Badge
	err := d.Bun.NewSelect().
		Model(&badges).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return badges, nil
}

// UpdateBadge persists the badge's mutable columns. When mirrorStatus is
// set, the owning user's badge_status mirror is written in the same
// transaction.
func (d *DB) UpdateBadge(ctx context.Context, badge *models.Badge, mirrorStatus bool) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model(badge).
			Column("name", "role", "company", "email", "phone", "photo_url",
				"category", "status", "template", "updated_at", "updated_by",
				"printed_at", "metadata").
			Where("id = ?", badge.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if !mirrorStatus {
			return nil
		}
		_, err = tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("badge_status = ?", badge.Status).
			Where("id = ?", badge.UserID).
			Exec(ctx)
		return err
	})
}

// DeleteBadges removes the given badge rows and clears the user's
// badge-reference fields atomically. userID may be empty when the owning
// user could not be resolved.
func (d *DB) DeleteBadges(ctx context.Context, ids []string, userID string) error {
	if len(ids) == 0 && userID == "" {
		return nil
	}
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if len(ids) > 0 {
			_, err := tx.NewDelete().
				Model((*models.Badge)(nil)).
				Where("id IN (?)", bun.In(ids)).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		if userID == "" {
			return nil
		}
		return clearUserBadgeFields(ctx, tx, userID)
	})
}

// ClearUserBadgeFields resets the user's badge mirror fields without
// touching any badge row, for the stale-reference delete path.
func (d *DB) ClearUserBadgeFields(ctx context.Context, userID string) error {
	return clearUserBadgeFields(ctx, d.Bun, userID)
}

func clearUserBadgeFields(ctx context.Context, idb bun.IDB, userID string) error {
	_, err := idb.NewUpdate().
		Model((*models.User)(nil)).
		Set("badge_id = ?", "").
		Set("badge_created = ?", false).
		Set("badge_deleted = ?", true).
		Set("badge_status = ?", "").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

// AllBadges loads the full badge collection for the last-resort delete
// resolution scan. Badge volumes are event-scale, so this stays cheap.
func (d *DB) AllBadges(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	err := d.Bun.NewSelect().
		Model(&badges).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return badges, nil
}

// BulkUpdateStatusChunk applies one status to a chunk of badges plus the
// user badge_status mirrors, all in a single transaction. printed_at is
// stamped only when the new status is printed.
func (d *DB) BulkUpdateStatusChunk(ctx context.Context, ids []string, status, updatedBy string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().
			Model((*models.Badge)(nil)).
			Set("status = ?", status).
			Set("updated_at = ?", now).
			Set("updated_by = ?", updatedBy).
			Where("id IN (?)", bun.In(ids))
		if status == models.StatusPrinted {
			q = q.Set("printed_at = ?", now)
		}
		if _, err := q.Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("badge_status = ?", status).
			Where("badge_id IN (?)", bun.In(ids)).
			Exec(ctx)
		return err
	})
}

// SearchBadges applies the indexable equality filters server-side; the
// caller post-filters free text and category in memory.
func (d *DB) SearchBadges(ctx context.Context, eventID, status string) ([]models.Badge, error) {
	var badges []models.Badge
	q := d.Bun.NewSelect().Model(&badges)
	if eventID != "" {
		q = q.Where("event_id = ?", eventID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return badges, nil
}
