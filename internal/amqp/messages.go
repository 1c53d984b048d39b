package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by PurchaseChangedMessage.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// PurchaseChangedMessage announces that the installment rows of a purchase
// changed. Months lists every due month ("YYYY-MM") whose liquidation may
// differ as a result, before and after the change.
type PurchaseChangedMessage struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Months    []string  `json:"months"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPurchaseChangedMessage(id int64, action string, months []string) *PurchaseChangedMessage {
	return &PurchaseChangedMessage{
		ID:        id,
		Action:    action,
		Months:    months,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PurchaseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PurchaseChangedMessageFromJSON(data []byte) (*PurchaseChangedMessage, error) {
	var msg PurchaseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
