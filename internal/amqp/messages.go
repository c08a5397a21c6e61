package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseCreatedMessage is the lightweight event published whenever an
// expense is recorded. It carries only identifiers; the worker fetches
// the full expense from the store before mirroring it to the sheet.
type ExpenseCreatedMessage struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"householdId"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(householdID, id string) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:          id,
		HouseholdID: householdID,
		Timestamp:   time.Now(),
	}
}

func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
