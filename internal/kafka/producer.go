package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-badging/internal/models"
)

// Topics names the per-kind destinations for badge lifecycle events.
type Topics struct {
	BadgeCreated   string
	BadgeUpdated   string
	BadgeDeleted   string
	BadgeCheckedIn string
}

// Producer streams badge lifecycle events. One writer is shared with the
// topic set per message, keyed by badge id so all events for one badge
// land on the same partition.
type Producer struct {
	Writer *kafka.Writer
	Topics Topics
}

func NewProducer(brokers []string, topics Topics) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

type badgeEvent struct {
	Kind      string        `json:"kind"`
	BadgeID   string        `json:"badgeId"`
	UserID    string        `json:"userId"`
	EventID   string        `json:"eventId,omitempty"`
	Status    string        `json:"status,omitempty"`
	Badge     *models.Badge `json:"badge,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func (p *Producer) PublishBadgeCreated(badge models.Badge) error {
	return p.publish(p.Topics.BadgeCreated, badgeEvent{
		Kind:      "badge_created",
		BadgeID:   badge.ID,
		UserID:    badge.UserID,
		EventID:   badge.EventID,
		Status:    badge.Status,
		Badge:     &badge,
		Timestamp: time.Now(),
	})
}

func (p *Producer) PublishBadgeUpdated(badge models.Badge) error {
	return p.publish(p.Topics.BadgeUpdated, badgeEvent{
		Kind:      "badge_updated",
		BadgeID:   badge.ID,
		UserID:    badge.UserID,
		EventID:   badge.EventID,
		Status:    badge.Status,
		Badge:     &badge,
		Timestamp: time.Now(),
	})
}

func (p *Producer) PublishBadgeDeleted(badgeID, userID string) error {
	return p.publish(p.Topics.BadgeDeleted, badgeEvent{
		Kind:      "badge_deleted",
		BadgeID:   badgeID,
		UserID:    userID,
		Timestamp: time.Now(),
	})
}

// PublishBadgeCheckedIn records a scan-driven check-in or check-out.
func (p *Producer) PublishBadgeCheckedIn(userID, eventID string, checkedIn bool) error {
	kind := "badge_checked_out"
	if checkedIn {
		kind = "badge_checked_in"
	}
	return p.publish(p.Topics.BadgeCheckedIn, badgeEvent{
		Kind:      kind,
		BadgeID:   userID,
		UserID:    userID,
		EventID:   eventID,
		Timestamp: time.Now(),
	})
}

func (p *Producer) publish(topic string, event badgeEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(event.BadgeID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
