// Package message defines the envelope exchanged between pipeline stages.
// A Message can only be built through New, Reply or Parse, all of which
// validate the payload against its type, so a malformed message never exists.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docqa/internal/domain"
)

// Message is an immutable envelope around a typed payload.
type Message struct {
	sender   string
	receiver string
	traceID  string
	payload  Payload
}

// Option customises message construction.
type Option func(*Message)

// WithTraceID sets the trace identifier. An empty id is ignored and a fresh one is generated.
func WithTraceID(id string) Option {
	return func(m *Message) { m.traceID = id }
}

// NewTraceID returns a fresh, unique trace identifier.
func NewTraceID() string { return uuid.NewString() }

// New builds a validated message. It fails with a *domain.SchemaError when the
// payload is nil or does not satisfy the schema of its type.
func New(sender, receiver string, payload Payload, opts ...Option) (Message, error) {
	if payload == nil {
		return Message{}, &domain.SchemaError{Reason: "payload is required"}
	}
	if err := payload.validate(); err != nil {
		return Message{}, err
	}
	m := Message{sender: sender, receiver: receiver, payload: payload}
	for _, opt := range opts {
		opt(&m)
	}
	if m.traceID == "" {
		m.traceID = NewTraceID()
	}
	return m, nil
}

// Reply builds a message that continues the trace of parent.
func Reply(parent Message, sender, receiver string, payload Payload) (Message, error) {
	return New(sender, receiver, payload, WithTraceID(parent.traceID))
}

func (m Message) Sender() string   { return m.sender }
func (m Message) Receiver() string { return m.receiver }
func (m Message) TraceID() string  { return m.traceID }
func (m Message) Payload() Payload { return m.payload }

// Type reports the message type, derived from its payload.
func (m Message) Type() Type {
	if m.payload == nil {
		return ""
	}
	return m.payload.Type()
}

// wire is the JSON form shared by every stage.
type wire struct {
	Sender   string          `json:"sender"`
	Receiver string          `json:"receiver"`
	Type     Type            `json:"type"`
	TraceID  string          `json:"trace_id,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the message in its wire form.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.payload == nil {
		return nil, &domain.SchemaError{Reason: "payload is required"}
	}
	body, err := json.Marshal(m.payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", m.Type(), err)
	}
	return json.Marshal(wire{
		Sender:   m.sender,
		Receiver: m.receiver,
		Type:     m.Type(),
		TraceID:  m.traceID,
		Payload:  body,
	})
}

// UnmarshalJSON decodes and validates a wire message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return &domain.SchemaError{Reason: "malformed envelope: " + err.Error()}
	}
	t := Type(strings.ToLower(string(w.Type)))
	target, ok := newPayload(t)
	if !ok {
		return &domain.SchemaError{Reason: fmt.Sprintf("unknown message type %q", w.Type)}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(w.Payload, &fields); err != nil || fields == nil {
		return &domain.SchemaError{Type: string(t), Reason: "payload must be an object"}
	}
	for _, name := range requiredFields[t] {
		if _, ok := fields[name]; !ok {
			return missing(t, name)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(w.Payload))
	if err := dec.Decode(target); err != nil {
		return &domain.SchemaError{Type: string(t), Reason: err.Error()}
	}
	built, err := New(w.Sender, w.Receiver, deref(target), WithTraceID(w.TraceID))
	if err != nil {
		return err
	}
	*m = built
	return nil
}

// Parse decodes a wire message.
func Parse(data []byte) (Message, error) {
	var m Message
	if err := m.UnmarshalJSON(data); err != nil {
		return Message{}, err
	}
	return m, nil
}

// LogValue renders the envelope without its payload body.
func (m Message) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", string(m.Type())),
		slog.String("sender", m.sender),
		slog.String("receiver", m.receiver),
		slog.String("trace_id", m.traceID),
	)
}
