package events

import (
	"encoding/json"
	"time"
)

const (
	ActionExpenseCreated = "expense.created"
	ActionExpenseDeleted = "expense.deleted"
	ActionMemberJoined   = "member.joined"
)

// TripActivityMessage is the lightweight event published after a write.
// It carries IDs, not payloads; the worker re-reads current state from
// the database when it builds the feed row.
type TripActivityMessage struct {
	TripID    string    `json:"trip_id"`
	Action    string    `json:"action"`
	SubjectID string    `json:"subject_id"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTripActivityMessage(tripID, action, subjectID, actor string) *TripActivityMessage {
	return &TripActivityMessage{
		TripID:    tripID,
		Action:    action,
		SubjectID: subjectID,
		Actor:     actor,
		Timestamp: time.Now(),
	}
}

func (m *TripActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TripActivityMessageFromJSON(data []byte) (*TripActivityMessage, error) {
	var msg TripActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
