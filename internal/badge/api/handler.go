package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-badging/internal/auth"
	"ms-badging/internal/badge"
	"ms-badging/internal/badge/qr"
	"ms-badging/internal/badge/render"
	"ms-badging/internal/checkin"
	"ms-badging/internal/config"
	"ms-badging/internal/leads"
	"ms-badging/internal/logger"
	"ms-badging/internal/models"
	"ms-badging/internal/utils"
)

// BadgeTypeVisitorEBadge routes creation to the e-badge issuance path.
const BadgeTypeVisitorEBadge = "visitor_ebadge"

type Handler struct {
	BadgeService *badge.BadgeService
	Render       *render.Engine
	Checkin      *checkin.Service
	Leads        *leads.Service
	Config       *config.Config
	Logger       *logger.Logger
}

func NewHandler(svc *badge.BadgeService, engine *render.Engine, ci *checkin.Service, ld *leads.Service, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		BadgeService: svc,
		Render:       engine,
		Checkin:      ci,
		Leads:        ld,
		Config:       cfg,
		Logger:       log,
	}
}

type createBadgeRequest struct {
	UserID    string `json:"userId"`
	EventID   string `json:"eventId"`
	BadgeData struct {
		Template       string `json:"template"`
		ExistingQRCode string `json:"existingQrCode"`
	} `json:"badgeData"`
	CreatedBy string `json:"createdBy"`
	BadgeType string `json:"badgeType"`
}

type createBadgeResponse struct {
	Success    bool          `json:"success"`
	BadgeID    string        `json:"badgeId"`
	BadgeURL   string        `json:"badgeUrl"`
	QRCodeData string        `json:"qrCodeData"`
	BadgeData  *models.Badge `json:"badgeData"`
	BadgeType  string        `json:"badgeType"`
}

// CreateBadge issues a badge. badgeType "visitor_ebadge" takes the
// e-badge path; a supplied existingQrCode takes the QR-reuse path.
func (h *Handler) CreateBadge(w http.ResponseWriter, r *http.Request) {
	var req createBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("userId is required", "missing userId"))
		return
	}

	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = auth.ActorFromRequest(r)
	}

	var (
		b   *models.Badge
		err error
	)
	badgeType := "standard"
	switch {
	case req.BadgeType == BadgeTypeVisitorEBadge:
		badgeType = BadgeTypeVisitorEBadge
		b, err = h.BadgeService.CreateVisitorEBadge(r.Context(), req.UserID, req.EventID, req.BadgeData.Template, createdBy)
	case req.BadgeData.ExistingQRCode != "":
		b, err = h.BadgeService.CreateBadgeWithExistingQR(r.Context(), req.UserID, req.EventID, req.BadgeData.Template, req.BadgeData.ExistingQRCode, createdBy)
	default:
		b, err = h.BadgeService.CreateBadge(r.Context(), req.UserID, req.EventID, req.BadgeData.Template, createdBy)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if err == badge.ErrProfileNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, utils.ErrorResponse("Failed to create badge", err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, createBadgeResponse{
		Success:    true,
		BadgeID:    b.ID,
		BadgeURL:   fmt.Sprintf("%s/api/badges/%s/pdf", h.Config.Badge.PublicBaseURL, b.ID),
		QRCodeData: b.QRCode,
		BadgeData:  b,
		BadgeType:  badgeType,
	})
}

func (h *Handler) ViewBadge(w http.ResponseWriter, r *http.Request) {
	badgeID := chi.URLParam(r, "badgeID")
	b := h.BadgeService.GetBadge(r.Context(), badgeID)
	if b == nil {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Badge not found", badgeID))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) ListUserBadges(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, h.BadgeService.GetUserBadges(r.Context(), userID))
}

func (h *Handler) ListEventBadges(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	writeJSON(w, http.StatusOK, h.BadgeService.GetEventBadges(r.Context(), eventID))
}

// UpdateBadge merges the posted fields. The UI needs a definite yes/no,
// so failures come back as success=false, never as a thrown error page.
func (h *Handler) UpdateBadge(w http.ResponseWriter, r *http.Request) {
	badgeID := chi.URLParam(r, "badgeID")
	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	ok := h.BadgeService.UpdateBadge(r.Context(), badgeID, fields, auth.ActorFromRequest(r))
	if !ok {
		writeJSON(w, http.StatusOK, utils.ErrorResponse("Failed to update badge", badgeID))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Badge updated", nil))
}

func (h *Handler) DeleteBadge(w http.ResponseWriter, r *http.Request) {
	badgeID := chi.URLParam(r, "badgeID")
	ok := h.BadgeService.DeleteBadge(r.Context(), badgeID, auth.ActorFromRequest(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Badge not found; it may already be deleted", badgeID))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Badge deleted", nil))
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

func (h *Handler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("ids are required", "empty id list"))
		return
	}

	result := h.BadgeService.BulkUpdateStatus(r.Context(), req.IDs, req.Status, auth.ActorFromRequest(r))
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Bulk status update processed", result))
}

func (h *Handler) SearchBadges(w http.ResponseWriter, r *http.Request) {
	filters := models.BadgeFilters{
		EventID:  chi.URLParam(r, "eventID"),
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	}
	writeJSON(w, http.StatusOK, h.BadgeService.SearchBadges(r.Context(), filters))
}

func (h *Handler) BadgeStats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	writeJSON(w, http.StatusOK, h.BadgeService.GetBadgeStats(r.Context(), eventID))
}

// ExportBadges serves the event badge list as CSV or structured JSON.
func (h *Handler) ExportBadges(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	badges := h.BadgeService.GetEventBadges(r.Context(), eventID)

	switch r.URL.Query().Get("format") {
	case "json":
		data, err := utils.BadgesToJSON(badges)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Export failed", err.Error()))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_badges.json", eventID))
		w.Write(data)
	default:
		data, err := utils.BadgesToCSV(badges)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Export failed", err.Error()))
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_badges.csv", eventID))
		w.Write(data)
	}
}

// DownloadBadgePDF renders the print artifact. Optional x/y query params
// position the badge block in page pixels; dataUri=true returns the
// data-URI form instead of raw bytes.
func (h *Handler) DownloadBadgePDF(w http.ResponseWriter, r *http.Request) {
	badgeID := chi.URLParam(r, "badgeID")
	b := h.BadgeService.GetBadge(r.Context(), badgeID)
	if b == nil {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Badge not found", badgeID))
		return
	}

	opts := &render.Options{}
	if xs, ys := r.URL.Query().Get("x"), r.URL.Query().Get("y"); xs != "" || ys != "" {
		x, _ := strconv.ParseFloat(xs, 64)
		y, _ := strconv.ParseFloat(ys, 64)
		opts.Position = &render.Position{X: x, Y: y}
	}

	tpl := render.DefaultTemplate()
	if b.Template != "" {
		tpl.ID = b.Template
	}

	if r.URL.Query().Get("dataUri") == "true" {
		uri, err := h.Render.RenderDataURI(*b, tpl, opts)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to render badge", err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, utils.SuccessResponse("Badge rendered", map[string]string{
			"dataUri":  uri,
			"filename": render.Filename(*b),
		}))
		return
	}

	data, err := h.Render.Render(*b, tpl, opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to render badge", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", render.Filename(*b)))
	w.Write(data)
}

// StreamEventBadges is the live-updating read: an SSE stream that pushes
// the full badge list on every change until the client disconnects.
func (h *Handler) StreamEventBadges(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := h.BadgeService.Subscribe(eventID)
	defer unsubscribe()

	// Send the current list immediately so the client does not wait for
	// the first mutation.
	initial := h.BadgeService.GetEventBadges(r.Context(), eventID)
	writeSSE(w, initial)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case badges, open := <-ch:
			if !open {
				return
			}
			writeSSE(w, badges)
			flusher.Flush()
		}
	}
}

type scanRequest struct {
	QRPayload   string `json:"qr_payload"`
	Direction   string `json:"direction"`
	ExhibitorID string `json:"exhibitorId"`
}

// CheckInScan consumes a decoded QR payload at the door. The payload's
// check-in facet is seed data only; the live counters live in the store.
func (h *Handler) CheckInScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.QRPayload == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("qr_payload is required", "missing qr_payload"))
		return
	}

	payload, err := qr.Decode(req.QRPayload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid QR payload", err.Error()))
		return
	}

	var rec *models.CheckInRecord
	if req.Direction == "out" {
		rec, err = h.Checkin.CheckOut(r.Context(), payload)
	} else {
		rec, err = h.Checkin.CheckIn(r.Context(), payload)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Check-in failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Scan recorded", rec))
}

// CaptureLead seeds a lead record from a scanned badge payload.
func (h *Handler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.ExhibitorID == "" || req.QRPayload == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("exhibitorId and qr_payload are required", "missing fields"))
		return
	}

	payload, err := qr.Decode(req.QRPayload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid QR payload", err.Error()))
		return
	}

	lead, err := h.Leads.CaptureLead(r.Context(), req.ExhibitorID, payload)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Lead capture failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Lead captured", lead))
}

// ExportLeads serves an exhibitor's captured leads as CSV or JSON.
func (h *Handler) ExportLeads(w http.ResponseWriter, r *http.Request) {
	exhibitorID := chi.URLParam(r, "exhibitorID")

	var (
		data []byte
		err  error
	)
	switch r.URL.Query().Get("format") {
	case "json":
		data, err = h.Leads.ExportJSON(r.Context(), exhibitorID)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_leads.json", exhibitorID))
	default:
		data, err = h.Leads.ExportCSV(r.Context(), exhibitorID)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_leads.csv", exhibitorID))
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Export failed", err.Error()))
		return
	}
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeSSE(w http.ResponseWriter, badges []models.Badge) {
	data, err := json.Marshal(badges)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
