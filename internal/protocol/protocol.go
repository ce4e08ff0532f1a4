package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies the intent of a cross-context message. The set is closed:
// receivers reject anything they don't recognize.
type Kind string

const (
	KindPing      Kind = "ping"
	KindScrape    Kind = "scrape"
	KindDeliver   Kind = "deliver"
	KindConfigGet Kind = "config-get"
	KindConfigSet Kind = "config-set"
)

// ErrNoReceiver means the target context has no script registered to handle
// requests. For page-scoped scripts this is the normal "inject first" signal,
// not a failure.
var ErrNoReceiver = errors.New("no receiver in target context")

// Message is the unit of cross-context communication. Every request carries a
// correlation id so concurrent exchanges against different contexts can be
// told apart.
type Message struct {
	Kind          Kind            `json:"kind"`
	CorrelationID string          `json:"correlationId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Response is the single logical reply to a Message. The protocol guarantees
// at most one response per request; delivery and timeouts are the caller's
// problem.
type Response struct {
	OK            bool            `json:"ok"`
	CorrelationID string          `json:"correlationId"`
	Error         string          `json:"error,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds a request with a fresh correlation id. A nil body yields
// an empty payload.
func NewMessage(kind Kind, body any) (Message, error) {
	msg := Message{
		Kind:          kind,
		CorrelationID: uuid.NewString(),
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Message{}, fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		msg.Payload = payload
	}
	return msg, nil
}

// Err converts an error response into a Go error, nil for success.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return errors.New("receiver reported an unspecified error")
	}
	return errors.New(r.Error)
}

// Decode unmarshals the response payload into out.
func (r Response) Decode(out any) error {
	if len(r.Payload) == 0 {
		return errors.New("response has no payload")
	}
	return json.Unmarshal(r.Payload, out)
}

// Transport sends one request into a single execution context and returns its
// response. Implementations enforce no timeout of their own; callers bound
// every request through ctx.
type Transport interface {
	Request(ctx context.Context, msg Message) (Response, error)
}
