package eventbus

import (
	"time"

	"github.com/google/uuid"

	"github.com/grachmannico95/bankline/internal/domain"
)

type EventType string

const (
	// EventTypeDataChanged is published by the client watcher after a version
	// check reported changes.
	EventTypeDataChanged EventType = "data.changed"
	// EventTypeVersionBumped is published by the stub backend store after a
	// mutation moved one or more category versions.
	EventTypeVersionBumped EventType = "version.bumped"
)

type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewEvent(eventType EventType, payload interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

type DataChangedEvent struct {
	Categories []domain.Category `json:"categories"`
	// All is set when the check could not tell what changed.
	All bool `json:"all"`
}

type VersionBumpedEvent struct {
	Signal domain.ChangeSignal `json:"signal"`
}
