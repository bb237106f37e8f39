package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const SubjectAvatarUploadRequested = "avatar.upload_requested"

type EventPublisher interface {
	PublishAvatarUploadRequested(userID uuid.UUID, objectKey string) error
}

type AvatarUploadRequestedEvent struct {
	EventType   string    `json:"event_type"`
	UserID      uuid.UUID `json:"user_id"`
	ObjectKey   string    `json:"object_key"`
	RequestedAt time.Time `json:"requested_at"`
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}

	return &NatsPublisher{conn: nc}, nil
}

func NewAvatarUploadRequestedEvent(userID uuid.UUID, objectKey string) AvatarUploadRequestedEvent {
	return AvatarUploadRequestedEvent{
		EventType:   SubjectAvatarUploadRequested,
		UserID:      userID,
		ObjectKey:   objectKey,
		RequestedAt: time.Now().UTC(),
	}
}

func (p *NatsPublisher) PublishAvatarUploadRequested(userID uuid.UUID, objectKey string) error {
	eventJSON, err := json.Marshal(NewAvatarUploadRequestedEvent(userID, objectKey))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(SubjectAvatarUploadRequested, eventJSON); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectAvatarUploadRequested, err)
	}

	slog.Debug("Published event to NATS", "subject", SubjectAvatarUploadRequested, "user_id", userID)

	return nil
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}

// NopPublisher drops events. Used when NATS is unreachable at startup.
type NopPublisher struct{}

func (NopPublisher) PublishAvatarUploadRequested(uuid.UUID, string) error { return nil }
