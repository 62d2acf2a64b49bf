package badge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-badging/internal/badge"
	"ms-badging/internal/models"
)

// MockListCache records cache traffic for assertion.
type MockListCache struct {
	mock.Mock
}

func (m *MockListCache) GetEventBadges(ctx context.Context, eventID string) ([]models.Badge, bool) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]models.Badge), args.Bool(1)
}

func (m *MockListCache) SetEventBadges(ctx context.Context, eventID string, badges []models.Badge) {
	m.Called(ctx, eventID, badges)
}

func (m *MockListCache) GetStats(ctx context.Context, eventID string) (*models.BadgeStats, bool) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.BadgeStats), args.Bool(1)
}

func (m *MockListCache) SetStats(ctx context.Context, eventID string, stats *models.BadgeStats) {
	m.Called(ctx, eventID, stats)
}

func (m *MockListCache) Invalidate(ctx context.Context, eventID string) {
	m.Called(ctx, eventID)
}

// MockSubscriber captures emitted badge lists; Subscribe hands back a
// closed channel because these tests never consume the stream.
type MockSubscriber struct {
	mock.Mock
}

func (m *MockSubscriber) Subscribe(eventID string) (<-chan []models.Badge, func()) {
	ch := make(chan []models.Badge)
	close(ch)
	return ch, func() {}
}

func (m *MockSubscriber) Emit(eventID string, badges []models.Badge) {
	m.Called(eventID, badges)
}

func serviceWithEffects(mockDB *MockBadgeDBLayer) (*badge.BadgeService, *MockListCache, *MockSubscriber) {
	svc := badge.NewBadgeService(mockDB)
	mockCache := new(MockListCache)
	mockEmitter := new(MockSubscriber)
	svc.Cache = mockCache
	svc.Emitter = mockEmitter
	return svc, mockCache, mockEmitter
}

func TestCreateBadgeInvalidatesCacheAndEmits(t *testing.T) {
	// Set up mock: every successful mutation invalidates the event's
	// cache entry and pushes the fresh list to subscribers.
	mockDB := new(MockBadgeDBLayer)
	svc, mockCache, mockEmitter := serviceWithEffects(mockDB)

	fresh := []models.Badge{{ID: "badge1", EventID: "expo2026"}}
	mockDB.On("GetUserByID", mock.Anything, "user001").Return(exhibitorUser(), nil)
	mockDB.On("CreateBadge", mock.Anything, mock.Anything).Return(nil)
	mockDB.On("GetBadgesByEvent", mock.Anything, "expo2026").Return(fresh, nil)

	mockCache.On("Invalidate", mock.Anything, "expo2026").Return()
	mockEmitter.On("Emit", "expo2026", fresh).Return()

	_, err := svc.CreateBadge(context.Background(), "user001", "expo2026", "", "admin")

	assert.NoError(t, err)
	mockCache.AssertExpectations(t)
	mockEmitter.AssertExpectations(t)
}

func TestUpdateBadgeInvalidatesCacheAndEmits(t *testing.T) {
	mockDB := new(MockBadgeDBLayer)
	svc, mockCache, mockEmitter := serviceWithEffects(mockDB)

	existing := &models.Badge{ID: "badge1", UserID: "user001", EventID: "expo2026", Status: models.StatusPending}
	fresh := []models.Badge{{ID: "badge1", EventID: "expo2026", Status: models.StatusPrinted}}
	mockDB.On("GetBadgeByID", mock.Anything, "badge1").Return(existing, nil)
	mockDB.On("UpdateBadge", mock.Anything, mock.Anything, true).Return(nil)
	mockDB.On("GetBadgesByEvent", mock.Anything, "expo2026").Return(fresh, nil)

	mockCache.On("Invalidate", mock.Anything, "expo2026").Return()
	mockEmitter.On("Emit", "expo2026", fresh).Return()

	ok := svc.UpdateBadge(context.Background(), "badge1", map[string]interface{}{"status": "printed"}, "operator")

	assert.True(t, ok)
	mockCache.AssertExpectations(t)
	mockEmitter.AssertExpectations(t)
}

func TestDeleteBadgeInvalidatesCacheAndEmits(t *testing.T) {
	mockDB := new(MockBadgeDBLayer)
	svc, mockCache, mockEmitter := serviceWithEffects(mockDB)

	found := &models.Badge{ID: "badge1", UserID: "user001", EventID: "expo2026"}
	mockDB.On("GetBadgeByID", mock.Anything, "badge1").Return(found, nil)
	mockDB.On("DeleteBadges", mock.Anything, []string{"badge1"}, "user001").Return(nil)
	mockDB.On("GetBadgesByEvent", mock.Anything, "expo2026").Return([]models.Badge{}, nil)

	mockCache.On("Invalidate", mock.Anything, "expo2026").Return()
	mockEmitter.On("Emit", "expo2026", []models.Badge{}).Return()

	ok := svc.DeleteBadge(context.Background(), "badge1", "admin")

	assert.True(t, ok)
	mockCache.AssertExpectations(t)
	mockEmitter.AssertExpectations(t)
}

func TestGetEventBadgesServesCacheHit(t *testing.T) {
	// Set up mock: a cache hit answers the read without touching the DB.
	mockDB := new(MockBadgeDBLayer)
	svc, mockCache, _ := serviceWithEffects(mockDB)

	cached := []models.Badge{{ID: "badge1", EventID: "expo2026"}}
	mockCache.On("GetEventBadges", mock.Anything, "expo2026").Return(cached, true)

	badges := svc.GetEventBadges(context.Background(), "expo2026")

	assert.Equal(t, cached, badges)
	mockDB.AssertNotCalled(t, "GetBadgesByEvent", mock.Anything, mock.Anything)
}

func TestGetEventBadgesCacheMissFillsCache(t *testing.T) {
	mockDB := new(MockBadgeDBLayer)
	svc, mockCache, _ := serviceWithEffects(mockDB)

	fromDB := []models.Badge{{ID: "badge2", EventID: "expo2026"}}
	mockCache.On("GetEventBadges", mock.Anything, "expo2026").Return(nil, false)
	mockDB.On("GetBadgesByEvent", mock.Anything, "expo2026").Return(fromDB, nil)
	mockCache.On("SetEventBadges", mock.Anything, "expo2026", fromDB).Return()

	badges := svc.GetEventBadges(context.Background(), "expo2026")

	assert.Equal(t, fromDB, badges)
	mockCache.AssertExpectations(t)
}

func TestGetBadgeStatsServesCacheHit(t *testing.T) {
	mockDB := new(MockBadgeDBLayer)
	svc, mockCache, _ := serviceWithEffects(mockDB)

	cached := &models.BadgeStats{Total: 3, Pending: 3, ByCategory: map[string]int{models.CategoryVisitor: 3}}
	mockCache.On("GetStats", mock.Anything, "expo2026").Return(cached, true)

	stats := svc.GetBadgeStats(context.Background(), "expo2026")

	assert.Equal(t, cached, stats)
	mockDB.AssertNotCalled(t, "GetBadgesByEvent", mock.Anything, mock.Anything)
}
