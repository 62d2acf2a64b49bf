package utils

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"

	"ms-badging/internal/models"
)

var badgeCSVHeader = []string{
	"ID", "Name", "Role", "Company", "Category", "Email", "Status", "Created At", "Template",
}

// BadgesToCSV serializes badges as quoted-field CSV with a fixed header row.
func BadgesToCSV(badges []models.Badge) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(badgeCSVHeader); err != nil {
		return nil, err
	}
	for _, b := range badges {
		row := []string{
			b.ID, b.Name, b.Role, b.Company, b.Category,
			b.Email, b.Status, b.CreatedAt.Format(time.RFC3339), b.Template,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// BadgeExport is the structured JSON export envelope.
type BadgeExport struct {
	ExportDate  time.Time      `json:"exportDate"`
	TotalBadges int            `json:"totalBadges"`
	Badges      []models.Badge `json:"badges"`
}

func BadgesToJSON(badges []models.Badge) ([]byte, error) {
	return json.MarshalIndent(BadgeExport{
		ExportDate:  time.Now(),
		TotalBadges: len(badges),
		Badges:      badges,
	}, "", "  ")
}

var leadCSVHeader = []string{
	"ID", "Name", "Email", "Phone", "Company", "Position", "Score", "Status", "Captured At",
}

func LeadsToCSV(leads []models.Lead) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(leadCSVHeader); err != nil {
		return nil, err
	}
	for _, l := range leads {
		row := []string{
			l.ID, l.Name, l.Email, l.Phone, l.Company,
			l.Position, strconv.Itoa(l.Score), l.Status, l.CapturedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// LeadExport is the structured JSON export envelope for captured leads.
type LeadExport struct {
	ExportDate time.Time     `json:"exportDate"`
	TotalLeads int           `json:"totalLeads"`
	Leads      []models.Lead `json:"leads"`
}

func LeadsToJSON(leads []models.Lead) ([]byte, error) {
	return json.MarshalIndent(LeadExport{
		ExportDate: time.Now(),
		TotalLeads: len(leads),
		Leads:      leads,
	}, "", "  ")
}
