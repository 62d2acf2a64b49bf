package badge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-badging/internal/badge"
	"ms-badging/internal/models"
)

func TestResolveDirectBadgeID(t *testing.T) {
	// Set up mock: the id is a badge document id.
	mockDB := new(MockBadgeDBLayer)
	svc := badge.NewBadgeService(mockDB)

	found := &models.Badge{ID: "badge1", UserID: "user001", EventID: "expo2026"}
	mockDB.On("GetBadgeByID", mock.Anything, "badge1").Return(found, nil)

	target, err := svc.ResolveBadgeTarget(context.Background(), "badge1")

	assert.NoError(t, err)
	assert.Equal(t, "badge_id", target.Strategy)
	assert.Equal(t, []string{"badge1"}, target.BadgeIDs)
	assert.Equal(t, "user001", target.UserID)
	assert.False(t, target.ClearOnly)

	// Later strategies never run.
	mockDB.AssertNotCalled(t, "GetBadgesByUser", mock.Anything, mock.Anything)
}

func TestResolveUserIDWithBadges(t *testing.T) {
	// Set up mock: no badge has this id, but a user owns rows under it.
	mockDB := new(MockBadgeDBLayer)
	svc := badge.NewBadgeService(mockDB)

	mockDB.On("GetBadgeByID", mock.Anything, "user001").Return(nil, nil)
	mockDB.On("GetBadgesByUser", mock.Anything, "user001").Return([]models.Badge{
		{ID: "badge1", UserID: "user001", EventID: "expo2026"},
		{ID: "badge2", UserID: "user001", EventID: "expo2026"},
	}, nil)

	target, err := svc.ResolveBadgeTarget(context.Background(), "user001")

	assert.NoError(t, err)
	assert.Equal(t, "user_id", target.Strategy)
	assert.ElementsMatch(t, []string{"badge1", "badge2"}, target.BadgeIDs)
	assert.Equal(t, []string{"expo2026"}, target.EventIDs)
}

func TestResolveCollectionScan(t *testing.T) {
	// Set up mock: direct lookups miss, the full scan catches a row whose
	// user_id matches.
	mockDB := new(MockBadgeDBLayer)
	svc := badge.NewBadgeService(mockDB)

	mockDB.On("GetBadgeByID", mock.Anything, "user009").Return(nil, nil)
	mockDB.On("GetBadgesByUser", mock.Anything, "user009").Return([]models.Badge{}, nil)
	mockDB.On("AllBadges", mock.Anything).Return([]models.Badge{
		{ID: "badge1", UserID: "user001", EventID: "expo2026"},
		{ID: "badge9", UserID: "user009", EventID: "expo2026"},
	}, nil)

	target, err := svc.ResolveBadgeTarget(context.Background(), "user009")

	assert.NoError(t, err)
	assert.Equal(t, "collection_scan", target.Strategy)
	assert.Equal(t, []string{"badge9"}, target.BadgeIDs)
	assert.Equal(t, "user009", target.UserID)
}

func TestResolveUserBadgeReference(t *testing.T) {
	// Set up mock: every direct strategy misses, but the user row points
	// at a badge document whose user_id column no longer matches. The
	// referenced badge is still the delete target.
	mockDB := new(MockBadgeDBLayer)
	svc := badge.NewBadgeService(mockDB)

	mockDB.On("GetBadgeByID", mock.Anything, "user001").Return(nil, nil)
	mockDB.On("GetBadgesByUser", mock.Anything, "user001").Return([]models.Badge{}, nil)
	mockDB.On("AllBadges", mock.Anything).Return([]models.Badge{
		{ID: "badge_456", UserID: "someone_else", EventID: "expo2026"},
	}, nil)
	mockDB.On("GetUserByID", mock.Anything, "user001").Return(&models.User{
		ID:      "user001",
		BadgeID: "badge_456",
	}, nil)
	mockDB.On("GetBadgeByID", mock.Anything, "badge_456").Return(&models.Badge{
		ID: "badge_456", UserID: "someone_else", EventID: "expo2026",
	}, nil)

	target, err := svc.ResolveBadgeTarget(context.Background(), "user001")

	assert.NoError(t, err)
	assert.Equal(t, "user_badge_ref", target.Strategy)
	assert.Equal(t, []string{"badge_456"}, target.BadgeIDs)
	assert.Equal(t, "user001", target.UserID)
	assert.False(t, target.ClearOnly)
}

func TestResolveStaleReferenceClearsOnly(t *testing.T) {
	// Set up mock: the user's badge_id points at a badge that is already
	// gone. Resolution still succeeds, as a clear-only target.
	mockDB := new(MockBadgeDBLayer)
	svc := badge.NewBadgeService(mockDB)

	mockDB.On("GetBadgeByID", mock.Anything, "user001").Return(nil, nil)
	mockDB.On("GetBadgesByUser", mock.Anything, "user001").Return([]models.Badge{}, nil)
	mockDB.On("AllBadges", mock.Anything).Return([]models.Badge{}, nil)
	mockDB.On("GetUserByID", mock.Anything, "user001").Return(&models.User{
		ID:      "user001",
		BadgeID: "badge_gone",
	}, nil)
	mockDB.On("GetBadgeByID", mock.Anything, "badge_gone").Return(nil, nil)

	target, err := svc.ResolveBadgeTarget(context.Background(), "user001")

	assert.NoError(t, err)
	assert.Equal(t, "stale_reference", target.Strategy)
	assert.True(t, target.ClearOnly)
	assert.Empty(t, target.BadgeIDs)
}

func TestResolveNothingMatches(t *testing.T) {
	mockDB := new(MockBadgeDBLayer)
	svc := badge.NewBadgeService(mockDB)

	mockDB.On("GetBadgeByID", mock.Anything, "ghost").Return(nil, nil)
	mockDB.On("GetBadgesByUser", mock.Anything, "ghost").Return([]models.Badge{}, nil)
	mockDB.On("AllBadges", mock.Anything).Return([]models.Badge{}, nil)
	mockDB.On("GetUserByID", mock.Anything, "ghost").Return(nil, nil)

	target, err := svc.ResolveBadgeTarget(context.Background(), "ghost")

	assert.Nil(t, target)
	assert.ErrorIs(t, err, badge.ErrTargetNotFound)
}

func TestDeleteBadgeViaStaleReference(t *testing.T) {
	// Deleting with a user id whose badge pointer is stale clears the
	// user's badge fields and still reports success.
	mockDB := new(MockBadgeDBLayer)
	svc := badge.NewBadgeService(mockDB)

	mockDB.On("GetBadgeByID", mock.Anything, "user001").Return(nil, nil)
	mockDB.On("GetBadgesByUser", mock.Anything, "user001").Return([]models.Badge{}, nil)
	mockDB.On("AllBadges", mock.Anything).Return([]models.Badge{}, nil)
	mockDB.On("GetUserByID", mock.Anything, "user001").Return(&models.User{
		ID:      "user001",
		BadgeID: "badge_gone",
	}, nil)
	mockDB.On("GetBadgeByID", mock.Anything, "badge_gone").Return(nil, nil)
	mockDB.On("ClearUserBadgeFields", mock.Anything, "user001").Return(nil)

	ok := svc.DeleteBadge(context.Background(), "user001", "admin")

	assert.True(t, ok)
	mockDB.AssertCalled(t, "ClearUserBadgeFields", mock.Anything, "user001")
	mockDB.AssertNotCalled(t, "DeleteBadges", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteBadgeDirect(t *testing.T) {
	mockDB := new(MockBadgeDBLayer)
	svc := badge.NewBadgeService(mockDB)

	found := &models.Badge{ID: "badge1", UserID: "user001", EventID: "expo2026"}
	mockDB.On("GetBadgeByID", mock.Anything, "badge1").Return(found, nil)
	mockDB.On("DeleteBadges", mock.Anything, []string{"badge1"}, "user001").Return(nil)

	ok := svc.DeleteBadge(context.Background(), "badge1", "admin")

	assert.True(t, ok)
	mockDB.AssertExpectations(t)
}
