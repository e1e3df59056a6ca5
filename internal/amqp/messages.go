package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeTransactionRecorded = "transaction.recorded"
	TypeChequeDue           = "cheque.due"
	TypeChequeCleared       = "cheque.cleared"
	TypeChequeBounced       = "cheque.bounced"
)

// Envelope wraps every ledger event with its type so one queue can carry
// all of them.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// TransactionRecordedMessage announces an appended ledger transaction.
// Consumers fetch the full row from the database; the message carries only
// identifiers.
type TransactionRecordedMessage struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	ObligationID  uuid.UUID `json:"obligation_id"`
	AccountID     uuid.UUID `json:"account_id"`
	Kind          string    `json:"kind"`
}

// ChequeEventMessage announces a cheque lifecycle change (due, cleared,
// bounced).
type ChequeEventMessage struct {
	ChequeID  uuid.UUID `json:"cheque_id"`
	AccountID uuid.UUID `json:"account_id"`
	DueDate   time.Time `json:"due_date"`
}

func newEnvelope(msgType string, payload any) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   body,
	}, nil
}

// ToJSON converts the envelope to JSON bytes.
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON creates an envelope from JSON bytes.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
