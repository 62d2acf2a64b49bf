// Package leads seeds lead records from scanned badge payloads. The lead
// facet of the QR gives the exhibitor a usable contact without a network
// round-trip; capturing it here is the durable copy.
package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-badging/internal/badge/qr"
	"ms-badging/internal/logger"
	"ms-badging/internal/models"
	"ms-badging/internal/utils"
)

type Service struct {
	DB     *bun.DB
	Logger *logger.Logger
}

func NewService(db *bun.DB) *Service {
	return &Service{DB: db}
}

// CaptureLead seeds a new lead from the payload's lead and profile facets
// plus the scan timestamp. Score, source and status come from the facet's
// seed defaults.
func (s *Service) CaptureLead(ctx context.Context, exhibitorID string, payload *qr.Payload) (*models.Lead, error) {
	if exhibitorID == "" {
		return nil, errors.New("exhibitor id is required")
	}
	if payload == nil || payload.UID == "" {
		return nil, errors.New("payload missing uid")
	}

	lead := &models.Lead{
		ID:          utils.GenerateUUID(),
		ExhibitorID: exhibitorID,
		AttendeeID:  payload.UID,
		EventID:     payload.EventID,
		Name:        payload.Profile.FullName,
		Email:       payload.Profile.Email,
		Phone:       payload.Profile.Phone,
		Company:     payload.Lead.Company,
		Position:    payload.Lead.Position,
		Interests:   payload.Lead.Interests,
		Score:       payload.Lead.Score,
		Source:      payload.Lead.Source,
		Status:      payload.Lead.Status,
		CapturedAt:  time.Now(),
	}

	if _, err := s.DB.NewInsert().Model(lead).Exec(ctx); err != nil {
		s.logError(fmt.Sprintf("failed to capture lead for exhibitor %s: %v", exhibitorID, err))
		return nil, fmt.Errorf("failed to capture lead: %w", err)
	}
	return lead, nil
}

// ListLeads returns an exhibitor's captured leads, newest first.
func (s *Service) ListLeads(ctx context.Context, exhibitorID string) ([]models.Lead, error) {
	var leads []models.Lead
	err := s.DB.NewSelect().
		Model(&leads).
		Where("exhibitor_id = ?", exhibitorID).
		Order("captured_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return leads, nil
}

// ExportCSV serializes an exhibitor's leads for download.
func (s *Service) ExportCSV(ctx context.Context, exhibitorID string) ([]byte, error) {
	leads, err := s.ListLeads(ctx, exhibitorID)
	if err != nil {
		return nil, err
	}
	return utils.LeadsToCSV(leads)
}

// ExportJSON serializes an exhibitor's leads as the structured export
// envelope.
func (s *Service) ExportJSON(ctx context.Context, exhibitorID string) ([]byte, error) {
	leads, err := s.ListLeads(ctx, exhibitorID)
	if err != nil {
		return nil, err
	}
	return utils.LeadsToJSON(leads)
}

func (s *Service) logError(message string) {
	if s.Logger != nil {
		s.Logger.Error("LEADS", message)
	}
}
