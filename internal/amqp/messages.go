package amqp

import (
	"encoding/json"
	"time"
)

// TransactionIngestedMessage announces a newly stored raw transaction.
// It carries only the document id; the worker fetches the full record from
// the store before auditing it.
type TransactionIngestedMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionIngestedMessage(id string) *TransactionIngestedMessage {
	return &TransactionIngestedMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *TransactionIngestedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionIngestedMessageFromJSON(data []byte) (*TransactionIngestedMessage, error) {
	var msg TransactionIngestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
