package api_test

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-badging/internal/badge"
	"ms-badging/internal/badge/api"
	badge_db "ms-badging/internal/badge/db"
	"ms-badging/internal/badge/render"
	"ms-badging/internal/checkin"
	"ms-badging/internal/config"
	"ms-badging/internal/leads"
	"ms-badging/internal/models"
	"ms-badging/internal/sse"
)

func setupRouter(t *testing.T) (chi.Router, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	tables := []interface{}{
		(*models.User)(nil),
		(*models.Badge)(nil),
		(*models.CheckInRecord)(nil),
		(*models.Lead)(nil),
	}
	for _, m := range tables {
		if _, err := bunDB.NewCreateTable().Model(m).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table for %T: %v", m, err)
		}
	}

	svc := badge.NewBadgeService(&badge_db.DB{Bun: bunDB})
	svc.Emitter = sse.NewBadgeEventEmitter()

	handler := api.NewHandler(
		svc,
		render.NewEngine("/nonexistent/font.ttf"),
		checkin.NewService(bunDB),
		leads.NewService(bunDB),
		config.Load(),
		nil,
	)

	r := chi.NewRouter()
	r.Route("/api/badges", func(r chi.Router) {
		r.Post("/", handler.CreateBadge)
		r.Post("/bulk-status", handler.BulkUpdateStatus)
		r.Get("/{badgeID}", handler.ViewBadge)
		r.Patch("/{badgeID}", handler.UpdateBadge)
		r.Delete("/{badgeID}", handler.DeleteBadge)
		r.Get("/{badgeID}/pdf", handler.DownloadBadgePDF)
	})
	r.Get("/api/users/{userID}/badges", handler.ListUserBadges)
	r.Route("/api/events/{eventID}", func(r chi.Router) {
		r.Get("/badges", handler.ListEventBadges)
		r.Get("/badges/search", handler.SearchBadges)
		r.Get("/badges/stats", handler.BadgeStats)
		r.Get("/badges/export", handler.ExportBadges)
		r.Get("/badges/stream", handler.StreamEventBadges)
	})
	r.Post("/api/checkin", handler.CheckInScan)
	r.Post("/api/leads", handler.CaptureLead)
	r.Get("/api/exhibitors/{exhibitorID}/leads/export", handler.ExportLeads)

	return r, bunDB
}

func seedUser(t *testing.T, bunDB *bun.DB, id string) {
	user := models.User{
		ID:        id,
		Email:     id + "@example.com",
		FullName:  "Test User " + id,
		Company:   "Acme Corp",
		Position:  "Engineer",
		Category:  models.CategoryVisitor,
		CreatedAt: time.Now(),
	}
	if _, err := bunDB.NewInsert().Model(&user).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
}

func doJSON(t *testing.T, r chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createBadge(t *testing.T, r chi.Router, userID string) string {
	w := doJSON(t, r, http.MethodPost, "/api/badges", map[string]interface{}{
		"userId":    userID,
		"eventId":   "expo2026",
		"createdBy": "admin",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		BadgeID string `json:"badgeId"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	return resp.BadgeID
}

func TestCreateBadgeEndpoint(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")

	w := doJSON(t, r, http.MethodPost, "/api/badges", map[string]interface{}{
		"userId":    "user001",
		"eventId":   "expo2026",
		"createdBy": "admin",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success    bool          `json:"success"`
		BadgeID    string        `json:"badgeId"`
		BadgeURL   string        `json:"badgeUrl"`
		QRCodeData string        `json:"qrCodeData"`
		BadgeData  *models.Badge `json:"badgeData"`
		BadgeType  string        `json:"badgeType"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.BadgeID)
	assert.Contains(t, resp.BadgeURL, "/api/badges/"+resp.BadgeID+"/pdf")
	assert.NotEmpty(t, resp.QRCodeData)
	assert.Equal(t, "standard", resp.BadgeType)
	assert.Equal(t, models.StatusPending, resp.BadgeData.Status)
}

func TestCreateBadgeRequiresUserID(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()

	w := doJSON(t, r, http.MethodPost, "/api/badges", map[string]interface{}{"eventId": "expo2026"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBadgeUnknownUser(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()

	w := doJSON(t, r, http.MethodPost, "/api/badges", map[string]interface{}{"userId": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateVisitorEBadgeEndpoint(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")

	w := doJSON(t, r, http.MethodPost, "/api/badges", map[string]interface{}{
		"userId":    "user001",
		"eventId":   "expo2026",
		"badgeType": "visitor_ebadge",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		BadgeType string        `json:"badgeType"`
		BadgeData *models.Badge `json:"badgeData"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "visitor_ebadge", resp.BadgeType)
	assert.Equal(t, models.StatusActive, resp.BadgeData.Status)
	assert.Equal(t, models.CategoryVisitor, resp.BadgeData.Category)
}

func TestViewBadgeEndpoint(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")
	badgeID := createBadge(t, r, "user001")

	w := doJSON(t, r, http.MethodGet, "/api/badges/"+badgeID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var b models.Badge
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, badgeID, b.ID)

	// Missing badge
	w = doJSON(t, r, http.MethodGet, "/api/badges/non-existent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateBadgeEndpoint(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")
	badgeID := createBadge(t, r, "user001")

	w := doJSON(t, r, http.MethodPatch, "/api/badges/"+badgeID, map[string]interface{}{
		"status": "printed",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	// The change is visible on a fresh read
	w = doJSON(t, r, http.MethodGet, "/api/badges/"+badgeID, nil)
	var b models.Badge
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, models.StatusPrinted, b.Status)
	assert.NotNil(t, b.PrintedAt)

	// An invalid status comes back success=false, not a server error
	w = doJSON(t, r, http.MethodPatch, "/api/badges/"+badgeID, map[string]interface{}{
		"status": "teleported",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestDeleteBadgeEndpoint(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")
	badgeID := createBadge(t, r, "user001")

	w := doJSON(t, r, http.MethodDelete, "/api/badges/"+badgeID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Deleting again finds nothing
	w = doJSON(t, r, http.MethodDelete, "/api/badges/"+badgeID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkStatusEndpoint(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")
	seedUser(t, bunDB, "user002")
	id1 := createBadge(t, r, "user001")
	id2 := createBadge(t, r, "user002")

	w := doJSON(t, r, http.MethodPost, "/api/badges/bulk-status", map[string]interface{}{
		"ids":    []string{id1, id2},
		"status": "printed",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.BulkResult `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Success)
	assert.Equal(t, 0, resp.Data.Failed)

	// Empty id list is rejected
	w = doJSON(t, r, http.MethodPost, "/api/badges/bulk-status", map[string]interface{}{
		"ids": []string{}, "status": "printed",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventBadgeListSearchStats(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")
	seedUser(t, bunDB, "user002")
	createBadge(t, r, "user001")
	createBadge(t, r, "user002")

	// List
	w := doJSON(t, r, http.MethodGet, "/api/events/expo2026/badges", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var list []models.Badge
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, len(list))

	// User scoped list
	w = doJSON(t, r, http.MethodGet, "/api/users/user001/badges", nil)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, len(list))

	// Search with free text
	w = doJSON(t, r, http.MethodGet, "/api/events/expo2026/badges/search?q=user001", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, len(list))

	// Stats
	w = doJSON(t, r, http.MethodGet, "/api/events/expo2026/badges/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var stats models.BadgeStats
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Pending)
}

func TestExportEndpoint(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")
	createBadge(t, r, "user001")

	// CSV is the default format
	w := doJSON(t, r, http.MethodGet, "/api/events/expo2026/badges/export", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "expo2026_badges.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "ID,Name,Role"))

	// JSON export envelope
	w = doJSON(t, r, http.MethodGet, "/api/events/expo2026/badges/export?format=json", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var export struct {
		TotalBadges int `json:"totalBadges"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
	assert.Equal(t, 1, export.TotalBadges)
}

func TestPDFEndpointMissingBadge(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()

	w := doJSON(t, r, http.MethodGet, "/api/badges/non-existent/pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckInEndpoint(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")
	badgeID := createBadge(t, r, "user001")

	// Scan the issued badge's own QR payload
	w := doJSON(t, r, http.MethodGet, "/api/badges/"+badgeID, nil)
	var b models.Badge
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))

	w = doJSON(t, r, http.MethodPost, "/api/checkin", map[string]interface{}{
		"qr_payload": b.QRCode,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.CheckInRecord `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.CheckedIn)
	assert.Equal(t, int64(1), resp.Data.CheckInCount)

	// Check out through the same endpoint
	w = doJSON(t, r, http.MethodPost, "/api/checkin", map[string]interface{}{
		"qr_payload": b.QRCode,
		"direction":  "out",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.CheckedIn)

	// Garbage payloads are a client error
	w = doJSON(t, r, http.MethodPost, "/api/checkin", map[string]interface{}{
		"qr_payload": "not json",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadCaptureAndExportEndpoints(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")
	badgeID := createBadge(t, r, "user001")

	w := doJSON(t, r, http.MethodGet, "/api/badges/"+badgeID, nil)
	var b models.Badge
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))

	w = doJSON(t, r, http.MethodPost, "/api/leads", map[string]interface{}{
		"exhibitorId": "exhibitor001",
		"qr_payload":  b.QRCode,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data models.Lead `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user001", resp.Data.AttendeeID)

	// Missing fields are rejected
	w = doJSON(t, r, http.MethodPost, "/api/leads", map[string]interface{}{
		"qr_payload": b.QRCode,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Export the captured leads
	w = doJSON(t, r, http.MethodGet, "/api/exhibitors/exhibitor001/leads/export", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "exhibitor001_leads.csv")
}

func TestStreamEndpointSendsInitialList(t *testing.T) {
	r, bunDB := setupRouter(t)
	defer bunDB.Close()
	seedUser(t, bunDB, "user001")
	createBadge(t, r, "user001")

	server := httptest.NewServer(r)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events/expo2026/badges/stream", nil)
	assert.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The first frame carries the current badge list without waiting for
	// a mutation.
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "))

	var list []models.Badge
	assert.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &list))
	assert.Equal(t, 1, len(list))
}
