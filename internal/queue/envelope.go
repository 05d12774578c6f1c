package queue

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Envelope is the payload shape used when queueing API operations for
// later replay: a stable id for deduplication, the operation kind (e.g.
// "create/orders"), and the raw parameter document.
type Envelope struct {
	ID   string          `json:"id"`
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// NewEnvelope wraps an operation body with a fresh id.
func NewEnvelope(kind string, body []byte) Envelope {
	return Envelope{
		ID:   uuid.NewString(),
		Kind: kind,
		Body: json.RawMessage(body),
	}
}

// ByID matches an envelope by its id, for use with Find and FindAll.
func ByID(id string) func(Envelope) bool {
	return func(e Envelope) bool {
		return e.ID == id
	}
}

// ByKind matches envelopes by operation kind.
func ByKind(kind string) func(Envelope) bool {
	return func(e Envelope) bool {
		return e.Kind == kind
	}
}
