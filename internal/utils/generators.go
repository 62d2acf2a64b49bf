package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-badging/internal/models"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateVisitorCode builds a human-distinguishable unique code for a
// visitor e-badge: role tag, 3-char event fragment, 8-char user fragment,
// base-36 timestamp and a short random suffix, dash-joined and uppercased.
// Uniqueness is probabilistic; codes are scoped per user and issued by
// human-paced actions, so no central registry is consulted.
func GenerateVisitorCode(userID, eventID string) string {
	return generateCode("VIS", userID, eventID)
}

// GenerateBadgeID builds a badge document id with the same construction as
// visitor codes but a badge role tag.
func GenerateBadgeID(userID, eventID string) string {
	return generateCode("BDG", userID, eventID)
}

func generateCode(tag, userID, eventID string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	parts := []string{
		tag,
		eventFragment(eventID),
		userFragment(userID),
		ts,
		randomBase36(4),
	}
	return strings.ToUpper(strings.Join(parts, "-"))
}

// eventFragment derives the 3-character event part. The reserved default
// event maps to a fixed fragment so default-event codes stay visually
// consistent instead of slicing the literal id.
func eventFragment(eventID string) string {
	if eventID == "" || eventID == models.DefaultEventID {
		return "EVT"
	}
	if len(eventID) < 3 {
		return eventID
	}
	return eventID[:3]
}

func userFragment(userID string) string {
	if len(userID) <= 8 {
		return userID
	}
	return userID[:8]
}

func randomBase36(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing is effectively fatal elsewhere; fall
			// back to a timestamp digit so the code still has n chars.
			b[i] = base36Alphabet[time.Now().UnixNano()%36]
			continue
		}
		b[i] = base36Alphabet[idx.Int64()]
	}
	return string(b)
}

// GenerateUUID creates a random UUID v4 string, used for entities that do
// not need the human-readable badge code construction.
func GenerateUUID() string {
	return uuid.New().String()
}
