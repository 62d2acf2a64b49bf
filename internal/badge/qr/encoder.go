// Package qr builds and parses the structured payload embedded in a badge's
// QR glyph. The payload is a single versioned JSON object with five
// independently consumable facets, so every scanning surface (check-in,
// lead capture, profile view) can work offline against the QR content
// alone and fall back to the store only for live state.
package qr

import (
	"encoding/json"
	"errors"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"ms-badging/internal/models"
)

// PayloadVersion is the current payload format version. Consumers must
// treat a missing or older version as "use defaults for absent facets",
// never as a parse error.
const (
	PayloadVersion = "2.0"
	BadgeVersion   = "1.0"
	PayloadType    = "networking_badge"
)

// Payload is the full QR content. Live check-in and analytics counters are
// never stored here; the facets carry the shape consumers seed from.
type Payload struct {
	UID      string `json:"uid"`
	Category string `json:"category"`
	Type     string `json:"type"`
	EventID  string `json:"eventId"`
	Version  string `json:"version"`

	CheckIn   CheckInFacet   `json:"checkIn"`
	Lead      LeadFacet      `json:"lead"`
	Profile   ProfileFacet   `json:"profile"`
	Sessions  SessionsFacet  `json:"sessions"`
	Analytics AnalyticsFacet `json:"analytics"`
	Metadata  MetadataFacet  `json:"metadata"`
}

type CheckInFacet struct {
	CheckedIn     bool     `json:"checkedIn"`
	CheckInCount  int      `json:"checkInCount"`
	CheckOutCount int      `json:"checkOutCount"`
	LastCheckIn   *string  `json:"lastCheckIn"`
	LastCheckOut  *string  `json:"lastCheckOut"`
	History       []string `json:"history"`
}

type LeadFacet struct {
	Company   string   `json:"company"`
	Position  string   `json:"position"`
	Interests []string `json:"interests"`
	Score     int      `json:"score"`
	Source    string   `json:"source"`
	Status    string   `json:"status"`
}

type ProfileFacet struct {
	FullName    string   `json:"fullName"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Company     string   `json:"company"`
	Position    string   `json:"position"`
	Bio         string   `json:"bio"`
	Website     string   `json:"website"`
	LinkedIn    string   `json:"linkedin"`
	BoothNumber string   `json:"boothNumber"`
	Products    []string `json:"products"`
	Services    []string `json:"services"`
	PhotoURL    string   `json:"photoUrl"`
}

type SessionsFacet struct {
	Meetings  []string `json:"meetings"`
	Bookmarks []string `json:"bookmarks"`
}

type AnalyticsFacet struct {
	Scans          int `json:"scans"`
	ProfileViews   int `json:"profileViews"`
	LeadsGenerated int `json:"leadsGenerated"`
}

type MetadataFacet struct {
	GeneratedAt     time.Time `json:"generatedAt"`
	PayloadVersion  string    `json:"payloadVersion"`
	BadgeVersion    string    `json:"badgeVersion"`
	Source          string    `json:"source"`
	UniqueCode      string    `json:"uniqueCode,omitempty"`
	IsVisitorEBadge bool      `json:"isVisitorEBadge,omitempty"`
}

// Build assembles a payload from the attendee profile snapshot. uniqueCode
// is optional: the visitor e-badge path threads its generated code into the
// metadata, every other path passes "" and gets an identical payload.
func Build(user *models.User, category, eventID, uniqueCode string) Payload {
	p := Payload{
		UID:      user.ID,
		Category: category,
		Type:     PayloadType,
		EventID:  eventID,
		Version:  PayloadVersion,
		CheckIn: CheckInFacet{
			History: []string{},
		},
		Lead: LeadFacet{
			Company:   user.Company,
			Position:  user.Position,
			Interests: emptyIfNil(user.Interests),
			Score:     0,
			Source:    "qr_scan",
			Status:    "new",
		},
		Profile: ProfileFacet{
			FullName:    user.FullName,
			Email:       user.Email,
			Phone:       user.Phone,
			Company:     user.Company,
			Position:    user.Position,
			Bio:         user.Bio,
			Website:     user.Website,
			LinkedIn:    user.LinkedIn,
			BoothNumber: user.BoothNumber,
			Products:    emptyIfNil(user.Products),
			Services:    emptyIfNil(user.Services),
			PhotoURL:    user.PhotoURL,
		},
		Sessions: SessionsFacet{
			Meetings:  []string{},
			Bookmarks: []string{},
		},
		Metadata: MetadataFacet{
			GeneratedAt:    time.Now().UTC(),
			PayloadVersion: PayloadVersion,
			BadgeVersion:   BadgeVersion,
			Source:         "badge_generator",
			UniqueCode:     uniqueCode,
		},
	}
	if uniqueCode != "" {
		p.Metadata.IsVisitorEBadge = true
	}
	return p
}

// Encode serializes the payload to the string embedded verbatim in the
// QR glyph.
func Encode(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses a payload string. Unknown top-level keys are ignored and a
// missing or unrecognized version fills facet defaults instead of failing:
// printed badges outlive payload format revisions.
func Decode(data string) (*Payload, error) {
	if data == "" {
		return nil, errors.New("empty payload")
	}
	var p Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	if p.UID == "" {
		return nil, errors.New("payload missing uid")
	}
	applyDefaults(&p)
	return &p, nil
}

func applyDefaults(p *Payload) {
	if p.Version == "" {
		p.Version = "1.0"
	}
	if p.Type == "" {
		p.Type = PayloadType
	}
	if p.EventID == "" {
		p.EventID = models.DefaultEventID
	}
	if p.Lead.Source == "" {
		p.Lead.Source = "qr_scan"
	}
	if p.Lead.Status == "" {
		p.Lead.Status = "new"
	}
	if p.Lead.Interests == nil {
		p.Lead.Interests = []string{}
	}
	if p.CheckIn.History == nil {
		p.CheckIn.History = []string{}
	}
	if p.Sessions.Meetings == nil {
		p.Sessions.Meetings = []string{}
	}
	if p.Sessions.Bookmarks == nil {
		p.Sessions.Bookmarks = []string{}
	}
}

// Glyph renders a payload string as a scannable PNG QR symbol at medium
// error correction.
func Glyph(data string, size int) ([]byte, error) {
	return qrcode.Encode(data, qrcode.Medium, size)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
