package badge

import (
	"context"
	"errors"
	"fmt"
)

// ErrTargetNotFound means no resolution strategy matched the supplied id.
var ErrTargetNotFound = errors.New("no badge or user matches the supplied id")

// BadgeTarget is the resolved outcome of a delete request: which badge
// rows to remove and which user's badge-reference fields to clear.
type BadgeTarget struct {
	BadgeIDs  []string
	UserID    string
	EventIDs  []string
	ClearOnly bool
	Strategy  string
}

// ResolveBadgeTarget works out what a delete id actually refers to.
// Calling code has historically passed user ids where badge ids were
// expected, so resolution runs ordered fallback strategies, first match
// wins:
//
//  1. id is a badge document id
//  2. id is a user id owning badge rows
//  3. full-collection scan for any badge whose id or user_id matches
//     (last resort, O(n); badge volumes are event-scale)
//  4. id is a user id whose badge_id points at another badge document:
//     delete that badge if it still exists, otherwise clear-only
func (s *BadgeService) ResolveBadgeTarget(ctx context.Context, id string) (*BadgeTarget, error) {
	// Strategy 1: direct badge id.
	badge, err := s.DB.GetBadgeByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("badge lookup for %s failed: %w", id, err)
	}
	if badge != nil {
		return &BadgeTarget{
			BadgeIDs: []string{badge.ID},
			UserID:   badge.UserID,
			EventIDs: []string{badge.EventID},
			Strategy: "badge_id",
		}, nil
	}

	// Strategy 2: id is a user id with badge rows.
	owned, err := s.DB.GetBadgesByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user badge lookup for %s failed: %w", id, err)
	}
	if len(owned) > 0 {
		target := &BadgeTarget{UserID: id, Strategy: "user_id"}
		events := map[string]struct{}{}
		for _, b := range owned {
			target.BadgeIDs = append(target.BadgeIDs, b.ID)
			events[b.EventID] = struct{}{}
		}
		for e := range events {
			target.EventIDs = append(target.EventIDs, e)
		}
		return target, nil
	}

	// Strategy 3: collection scan matching either column.
	all, err := s.DB.AllBadges(ctx)
	if err != nil {
		return nil, fmt.Errorf("badge scan failed: %w", err)
	}
	var scanTarget *BadgeTarget
	for _, b := range all {
		if b.ID != id && b.UserID != id {
			continue
		}
		if scanTarget == nil {
			scanTarget = &BadgeTarget{Strategy: "collection_scan"}
		}
		scanTarget.BadgeIDs = append(scanTarget.BadgeIDs, b.ID)
		scanTarget.EventIDs = appendUnique(scanTarget.EventIDs, b.EventID)
		if b.UserID != "" {
			scanTarget.UserID = b.UserID
		}
	}
	if scanTarget != nil {
		return scanTarget, nil
	}

	// Strategy 4: id is a user id carrying a badge_id pointer. The pointer
	// may reference a badge whose user_id column no longer matches, or a
	// badge that is already gone; both still count as a successful delete.
	user, err := s.DB.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user lookup for %s failed: %w", id, err)
	}
	if user != nil && user.BadgeID != "" {
		referenced, err := s.DB.GetBadgeByID(ctx, user.BadgeID)
		if err != nil {
			return nil, fmt.Errorf("referenced badge lookup for %s failed: %w", user.BadgeID, err)
		}
		if referenced != nil {
			return &BadgeTarget{
				BadgeIDs: []string{referenced.ID},
				UserID:   id,
				EventIDs: []string{referenced.EventID},
				Strategy: "user_badge_ref",
			}, nil
		}
		return &BadgeTarget{
			UserID:    id,
			ClearOnly: true,
			Strategy:  "stale_reference",
		}, nil
	}

	return nil, ErrTargetNotFound
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
