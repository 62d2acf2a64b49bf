// Package badge owns the badge record store: create/read/update/delete of
// badge entities plus the cross-entity consistency with the user's
// badge-reference fields. Store failures other than a missing profile are
// logged and surfaced as false/empty results so the calling surface always
// has a non-throwing signal.
package badge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-badging/internal/badge/qr"
	"ms-badging/internal/logger"
	"ms-badging/internal/models"
	"ms-badging/internal/utils"
)

// ErrProfileNotFound is the one hard precondition failure: no badge is
// ever issued without a backing attendee profile.
var ErrProfileNotFound = errors.New("user profile not found")

// DefaultBulkBatchSize bounds the size of a single bulk-status
// transaction.
const DefaultBulkBatchSize = 10

// DefaultRole fills the badge role when the profile has no position.
const DefaultRole = "Attendee"

type BadgeDBLayer interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateBadge(ctx context.Context, badge *models.Badge) error
	GetBadgeByID(ctx context.Context, id string) (*models.Badge, error)
	GetBadgesByUser(ctx context.Context, userID string) ([]models.Badge, error)
	GetBadgesByEvent(ctx context.Context, eventID string) ([]models.Badge, error)
	GetBadgesByIDs(ctx context.Context, ids []string) ([]models.Badge, error)
	UpdateBadge(ctx context.Context, badge *models.Badge, mirrorStatus bool) error
	DeleteBadges(ctx context.Context, ids []string, userID string) error
	ClearUserBadgeFields(ctx context.Context, userID string) error
	AllBadges(ctx context.Context) ([]models.Badge, error)
	BulkUpdateStatusChunk(ctx context.Context, ids []string, status, updatedBy string) error
	SearchBadges(ctx context.Context, eventID, status string) ([]models.Badge, error)
}

// AnalyticsRecorder increments per-user badge counters. Implementations
// must never fail the calling operation.
type AnalyticsRecorder interface {
	RecordAction(ctx context.Context, userID, action, performedBy string)
}

// EventPublisher streams badge lifecycle events to the message bus.
type EventPublisher interface {
	PublishBadgeCreated(badge models.Badge) error
	PublishBadgeUpdated(badge models.Badge) error
	PublishBadgeDeleted(badgeID, userID string) error
}

// ListCache is a best-effort read cache over event badge lists and stats.
type ListCache interface {
	GetEventBadges(ctx context.Context, eventID string) ([]models.Badge, bool)
	SetEventBadges(ctx context.Context, eventID string, badges []models.Badge)
	GetStats(ctx context.Context, eventID string) (*models.BadgeStats, bool)
	SetStats(ctx context.Context, eventID string, stats *models.BadgeStats)
	Invalidate(ctx context.Context, eventID string)
}

// Subscriber delivers full badge lists to live listeners.
type Subscriber interface {
	Subscribe(eventID string) (<-chan []models.Badge, func())
	Emit(eventID string, badges []models.Badge)
}

// BadgeService is the badge record store. Construct once at startup and
// pass to callers; Analytics, Producer, Cache and Emitter are optional.
type BadgeService struct {
	DB        BadgeDBLayer
	Analytics AnalyticsRecorder
	Producer  EventPublisher
	Cache     ListCache
	Emitter   Subscriber
	Logger    *logger.Logger

	DefaultEventID string
	BatchSize      int
}

func NewBadgeService(db BadgeDBLayer) *BadgeService {
	return &BadgeService{
		DB:             db,
		DefaultEventID: models.DefaultEventID,
		BatchSize:      DefaultBulkBatchSize,
	}
}

type createOptions struct {
	visitorEBadge bool
	existingQR    string
}

// CreateBadge issues a regular badge from the current profile snapshot.
// New badges start pending.
func (s *BadgeService) CreateBadge(ctx context.Context, userID, eventID, templateID, createdBy string) (*models.Badge, error) {
	return s.create(ctx, userID, eventID, templateID, createdBy, createOptions{})
}

// CreateVisitorEBadge issues the restricted-purpose e-badge variant:
// category forced to Visitor and status active regardless of the profile,
// with a generated unique code threaded into the payload metadata.
func (s *BadgeService) CreateVisitorEBadge(ctx context.Context, userID, eventID, templateID, createdBy string) (*models.Badge, error) {
	return s.create(ctx, userID, eventID, templateID, createdBy, createOptions{visitorEBadge: true})
}

// CreateBadgeWithExistingQR issues a badge reusing a previously issued QR
// payload verbatim. The QR is the durable identity; the visual template is
// cosmetic, so reuse keeps every distributed copy valid.
func (s *BadgeService) CreateBadgeWithExistingQR(ctx context.Context, userID, eventID, templateID, existingQR, createdBy string) (*models.Badge, error) {
	if existingQR == "" {
		return nil, errors.New("existing QR payload is required")
	}
	return s.create(ctx, userID, eventID, templateID, createdBy, createOptions{existingQR: existingQR})
}

func (s *BadgeService) create(ctx context.Context, userID, eventID, templateID, createdBy string, opts createOptions) (*models.Badge, error) {
	if eventID == "" {
		eventID = s.defaultEvent()
	}

	user, err := s.DB.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}
	if user == nil {
		return nil, ErrProfileNotFound
	}

	category := user.Category
	if category == "" {
		category = models.CategoryVisitor
	}
	status := models.StatusPending
	metadata := map[string]interface{}{
		"version": qr.BadgeVersion,
		"source":  "badge_service",
	}

	var uniqueCode string
	if opts.visitorEBadge {
		category = models.CategoryVisitor
		status = models.StatusActive
		uniqueCode = utils.GenerateVisitorCode(userID, eventID)
		metadata["isVisitorEBadge"] = true
		metadata["uniqueCode"] = uniqueCode
	}

	qrCode := opts.existingQR
	if qrCode == "" {
		encoded, err := qr.Encode(qr.Build(user, category, eventID, uniqueCode))
		if err != nil {
			return nil, fmt.Errorf("failed to encode QR payload: %w", err)
		}
		qrCode = encoded
	} else {
		metadata["qrReused"] = true
	}

	role := user.Position
	if role == "" {
		role = DefaultRole
	}

	now := time.Now()
	badge := &models.Badge{
		ID:        utils.GenerateBadgeID(userID, eventID),
		UserID:    userID,
		EventID:   eventID,
		Name:      user.FullName,
		Role:      role,
		Company:   user.Company,
		Email:     user.Email,
		Phone:     user.Phone,
		PhotoURL:  user.PhotoURL,
		Category:  category,
		QRCode:    qrCode,
		Status:    status,
		Template:  templateID,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: createdBy,
		Metadata:  metadata,
	}

	if err := s.DB.CreateBadge(ctx, badge); err != nil {
		s.logError("BADGE", fmt.Sprintf("failed to create badge for user %s: %v", userID, err))
		return nil, fmt.Errorf("failed to create badge: %w", err)
	}

	s.recordAction(ctx, userID, models.ActionCreated, createdBy)
	s.afterMutation(ctx, eventID)
	if s.Producer != nil {
		if err := s.Producer.PublishBadgeCreated(*badge); err != nil {
			s.logError("KAFKA", fmt.Sprintf("failed to publish badge_created for %s: %v", badge.ID, err))
		}
	}

	s.logInfo("BADGE", fmt.Sprintf("created badge %s for user %s (category=%s status=%s)", badge.ID, userID, category, status))
	return badge, nil
}

// GetBadge returns the badge or nil when it does not exist. Store errors
// are logged and reported as absence.
func (s *BadgeService) GetBadge(ctx context.Context, id string) *models.Badge {
	badge, err := s.DB.GetBadgeByID(ctx, id)
	if err != nil {
		s.logError("BADGE", fmt.Sprintf("failed to load badge %s: %v", id, err))
		return nil
	}
	return badge
}

func (s *BadgeService) GetUserBadges(ctx context.Context, userID string) []models.Badge {
	badges, err := s.DB.GetBadgesByUser(ctx, userID)
	if err != nil {
		s.logError("BADGE", fmt.Sprintf("failed to load badges for user %s: %v", userID, err))
		return []models.Badge{}
	}
	return badges
}

func (s *BadgeService) GetEventBadges(ctx context.Context, eventID string) []models.Badge {
	if eventID == "" {
		eventID = s.defaultEvent()
	}
	if s.Cache != nil {
		if badges, ok := s.Cache.GetEventBadges(ctx, eventID); ok {
			return badges
		}
	}
	badges, err := s.DB.GetBadgesByEvent(ctx, eventID)
	if err != nil {
		s.logError("BADGE", fmt.Sprintf("failed to load badges for event %s: %v", eventID, err))
		return []models.Badge{}
	}
	if s.Cache != nil {
		s.Cache.SetEventBadges(ctx, eventID, badges)
	}
	return badges
}

// UpdateBadge merges the supplied fields into the badge. A status change
// mirrors onto the user's badge_status in the same transaction; no
// transition validation happens beyond membership in the status set.
func (s *BadgeService) UpdateBadge(ctx context.Context, id string, fields map[string]interface{}, updatedBy string) bool {
	badge, err := s.DB.GetBadgeByID(ctx, id)
	if err != nil || badge == nil {
		s.logError("BADGE", fmt.Sprintf("update target %s not found: %v", id, err))
		return false
	}

	statusChanged := false
	for key, raw := range fields {
		value, _ := raw.(string)
		switch key {
		case "name":
			badge.Name = value
		case "role":
			badge.Role = value
		case "company":
			badge.Company = value
		case "email":
			badge.Email = value
		case "phone":
			badge.Phone = value
		case "photoUrl":
			badge.PhotoURL = value
		case "category":
			badge.Category = value
		case "template":
			badge.Template = value
		case "status":
			if !models.IsValidStatus(value) {
				s.logError("BADGE", fmt.Sprintf("rejected unknown status %q for badge %s", value, id))
				return false
			}
			badge.Status = value
			statusChanged = true
		case "metadata":
			if m, ok := raw.(map[string]interface{}); ok {
				if badge.Metadata == nil {
					badge.Metadata = map[string]interface{}{}
				}
				for k, v := range m {
					badge.Metadata[k] = v
				}
			}
		}
	}

	now := time.Now()
	badge.UpdatedAt = now
	badge.UpdatedBy = updatedBy
	if statusChanged && badge.Status == models.StatusPrinted {
		badge.PrintedAt = &now
	}

	if err := s.DB.UpdateBadge(ctx, badge, statusChanged); err != nil {
		s.logError("BADGE", fmt.Sprintf("failed to update badge %s: %v", id, err))
		return false
	}

	if statusChanged {
		s.recordAction(ctx, badge.UserID, models.ActionStatusUpdated, updatedBy)
		if badge.Status == models.StatusPrinted {
			s.recordAction(ctx, badge.UserID, models.ActionPrinted, updatedBy)
		}
	}
	s.afterMutation(ctx, badge.EventID)
	if s.Producer != nil {
		if err := s.Producer.PublishBadgeUpdated(*badge); err != nil {
			s.logError("KAFKA", fmt.Sprintf("failed to publish badge_updated for %s: %v", badge.ID, err))
		}
	}
	return true
}

// DeleteBadge removes the badge(s) the id resolves to and clears the
// owning user's badge fields. The id may be a badge id or, due to
// historical inconsistency in calling code, a user id; ResolveBadgeTarget
// works out which. Returns false only when nothing matched.
func (s *BadgeService) DeleteBadge(ctx context.Context, id, deletedBy string) bool {
	target, err := s.ResolveBadgeTarget(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrTargetNotFound) {
			s.logError("BADGE", fmt.Sprintf("delete resolution for %s failed: %v", id, err))
		}
		return false
	}

	if target.ClearOnly {
		if err := s.DB.ClearUserBadgeFields(ctx, target.UserID); err != nil {
			s.logError("BADGE", fmt.Sprintf("failed to clear badge fields for user %s: %v", target.UserID, err))
			return false
		}
	} else {
		if err := s.DB.DeleteBadges(ctx, target.BadgeIDs, target.UserID); err != nil {
			s.logError("BADGE", fmt.Sprintf("failed to delete badges %v: %v", target.BadgeIDs, err))
			return false
		}
	}

	actor := target.UserID
	if actor == "" {
		actor = id
	}
	s.recordAction(ctx, actor, models.ActionDeleted, deletedBy)
	for _, eventID := range target.EventIDs {
		s.afterMutation(ctx, eventID)
	}
	if s.Producer != nil {
		for _, badgeID := range target.BadgeIDs {
			if err := s.Producer.PublishBadgeDeleted(badgeID, target.UserID); err != nil {
				s.logError("KAFKA", fmt.Sprintf("failed to publish badge_deleted for %s: %v", badgeID, err))
			}
		}
	}
	s.logInfo("BADGE", fmt.Sprintf("deleted %d badge(s) for target %s via %s", len(target.BadgeIDs), id, target.Strategy))
	return true
}

// BulkUpdateStatus applies one status to many badges in fixed-size chunks,
// one transaction per chunk. The first failed chunk stops the run: chunks
// already committed stay committed, the failed chunk and everything after
// it count as failed.
func (s *BadgeService) BulkUpdateStatus(ctx context.Context, ids []string, status, updatedBy string) models.BulkResult {
	result := models.BulkResult{}
	if !models.IsValidStatus(status) {
		s.logError("BADGE", fmt.Sprintf("rejected bulk update to unknown status %q", status))
		result.Failed = len(ids)
		return result
	}

	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultBulkBatchSize
	}

	for start := 0; start < len(ids); start += batch {
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		if err := s.DB.BulkUpdateStatusChunk(ctx, chunk, status, updatedBy); err != nil {
			s.logError("BADGE", fmt.Sprintf("bulk status chunk [%d:%d] failed: %v", start, end, err))
			result.Failed = len(ids) - start
			break
		}
		result.Success += len(chunk)

		if badges, err := s.DB.GetBadgesByIDs(ctx, chunk); err == nil {
			events := map[string]struct{}{}
			for _, b := range badges {
				s.recordAction(ctx, b.UserID, models.ActionStatusUpdated, updatedBy)
				if status == models.StatusPrinted {
					s.recordAction(ctx, b.UserID, models.ActionPrinted, updatedBy)
				}
				events[b.EventID] = struct{}{}
			}
			for eventID := range events {
				s.afterMutation(ctx, eventID)
			}
		}
	}
	return result
}

// SearchBadges combines server-side equality filters with in-memory
// post-filtering for free text and category. Newest first.
func (s *BadgeService) SearchBadges(ctx context.Context, filters models.BadgeFilters) []models.Badge {
	rows, err := s.DB.SearchBadges(ctx, filters.EventID, filters.Status)
	if err != nil {
		s.logError("BADGE", fmt.Sprintf("badge search failed: %v", err))
		return []models.Badge{}
	}

	matched := make([]models.Badge, 0, len(rows))
	query := strings.ToLower(strings.TrimSpace(filters.Query))
	for _, b := range rows {
		if filters.Category != "" && b.Category != filters.Category {
			continue
		}
		if query != "" && !matchesQuery(b, query) {
			continue
		}
		matched = append(matched, b)
	}
	return matched
}

func matchesQuery(b models.Badge, query string) bool {
	for _, field := range []string{b.Name, b.Email, b.Company, b.Role, b.ID} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// GetBadgeStats reduces one event's badges in memory. Event-scoped badge
// collections are human-scale, so no aggregate queries are needed.
func (s *BadgeService) GetBadgeStats(ctx context.Context, eventID string) *models.BadgeStats {
	if eventID == "" {
		eventID = s.defaultEvent()
	}
	if s.Cache != nil {
		if stats, ok := s.Cache.GetStats(ctx, eventID); ok {
			return stats
		}
	}

	badges, err := s.DB.GetBadgesByEvent(ctx, eventID)
	if err != nil {
		s.logError("BADGE", fmt.Sprintf("failed to load badges for stats on %s: %v", eventID, err))
		return &models.BadgeStats{ByCategory: map[string]int{}}
	}

	stats := &models.BadgeStats{ByCategory: map[string]int{}}
	for _, b := range badges {
		stats.Total++
		switch b.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusPrinted:
			stats.Printed++
		case models.StatusReprint:
			stats.Reprint++
		}
		stats.ByCategory[b.Category]++
	}

	if s.Cache != nil {
		s.Cache.SetStats(ctx, eventID, stats)
	}
	return stats
}

// Subscribe registers a live listener for an event's badge list. The
// returned unsubscribe func must be called on teardown or the listener
// leaks.
func (s *BadgeService) Subscribe(eventID string) (<-chan []models.Badge, func()) {
	if s.Emitter == nil {
		ch := make(chan []models.Badge)
		close(ch)
		return ch, func() {}
	}
	return s.Emitter.Subscribe(eventID)
}

func (s *BadgeService) defaultEvent() string {
	if s.DefaultEventID != "" {
		return s.DefaultEventID
	}
	return models.DefaultEventID
}

// afterMutation invalidates caches and pushes the fresh badge list to live
// subscribers. Both are observability conveniences: failures are logged,
// never propagated.
func (s *BadgeService) afterMutation(ctx context.Context, eventID string) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, eventID)
	}
	if s.Emitter == nil {
		return
	}
	badges, err := s.DB.GetBadgesByEvent(ctx, eventID)
	if err != nil {
		s.logError("BADGE", fmt.Sprintf("failed to refresh subscriber list for event %s: %v", eventID, err))
		return
	}
	s.Emitter.Emit(eventID, badges)
}

func (s *BadgeService) recordAction(ctx context.Context, userID, action, performedBy string) {
	if s.Analytics == nil {
		return
	}
	s.Analytics.RecordAction(ctx, userID, action, performedBy)
}

func (s *BadgeService) logInfo(category, message string) {
	if s.Logger != nil {
		s.Logger.Info(category, message)
	}
}

func (s *BadgeService) logError(category, message string) {
	if s.Logger != nil {
		s.Logger.Error(category, message)
	}
}
