package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"finboard/internal/core"
)

// ChangeMessage is the wire form of a core.ChangeSet. Unlike the API envelope
// it carries the owning user, so consumers can attribute the change.
type ChangeMessage struct {
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	UserID    string    `json:"user_id"`
	IDs       []string  `json:"ids"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(cs core.ChangeSet) *ChangeMessage {
	return &ChangeMessage{
		Resource:  cs.Resource,
		Action:    cs.Action,
		UserID:    cs.UserID,
		IDs:       cs.IDs,
		Timestamp: time.Now(),
	}
}

func (m *ChangeMessage) ChangeSet() core.ChangeSet {
	return core.NewChangeSet(m.Resource, m.Action, m.UserID, m.IDs...)
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message. Messages without a
// resource, action or user cannot be processed and should not be requeued.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Resource == "":
		return nil, errors.New("change message without resource")
	case msg.Action == "":
		return nil, errors.New("change message without action")
	case msg.UserID == "":
		return nil, errors.New("change message without user")
	}
	return &msg, nil
}
