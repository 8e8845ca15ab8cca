package domain

import (
	"encoding/json"
	"time"
)

// ChangeType — тип события изменения записи.
type ChangeType string

const (
	ChangeCreated ChangeType = "record.created"
	ChangeUpdated ChangeType = "record.updated"
	ChangeDeleted ChangeType = "record.deleted"
)

// ChangeEvent описывает изменение одной записи. Record пуст для удаления.
type ChangeEvent struct {
	ID         string          `json:"id"`
	Type       ChangeType      `json:"type"`
	Kind       RecordKind      `json:"kind"`
	Key        string          `json:"key"`
	Record     json.RawMessage `json:"record,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}
