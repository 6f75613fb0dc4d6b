package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrProtocol is returned for frames that are not a JSON object with a non-empty type.
var ErrProtocol = errors.New("protocol error")

// Envelope is a typed protocol message. Frames are flat JSON objects,
// { "type": string, ...fields }, so the raw frame is kept as is and
// decoded into a payload struct on demand.
type Envelope struct {
	Type Type
	Raw  json.RawMessage
}

// MarshalJSON returns the frame exactly as it goes on the wire.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return json.Marshal(struct {
			Type Type `json:"type"`
		}{e.Type})
	}
	return e.Raw, nil
}

// Decode parses an inbound text frame.
func Decode(frame []byte) (Envelope, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return Envelope{}, fmt.Errorf("%w: decode envelope: %v", ErrProtocol, err)
	}
	if head.Type == "" {
		return Envelope{}, fmt.Errorf("%w: envelope has no type", ErrProtocol)
	}
	raw := make(json.RawMessage, len(frame))
	copy(raw, frame)
	return Envelope{Type: head.Type, Raw: raw}, nil
}

// Message is an outbound message with a fixed type.
type Message interface {
	MessageType() Type
}

// Encode builds an outbound envelope, splicing the type discriminator into
// the message's own JSON fields.
func Encode(msg Message) (Envelope, error) {
	fields, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", msg.MessageType(), err)
	}

	typeField, err := json.Marshal(msg.MessageType())
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal type: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(typeField)

	fields = bytes.TrimSpace(fields)
	if len(fields) < 2 || fields[0] != '{' {
		return Envelope{}, fmt.Errorf("%w: %s does not encode to an object", ErrProtocol, msg.MessageType())
	}
	if body := bytes.TrimSpace(fields[1 : len(fields)-1]); len(body) > 0 {
		buf.WriteByte(',')
		buf.Write(body)
	}
	buf.WriteByte('}')

	return Envelope{Type: msg.MessageType(), Raw: buf.Bytes()}, nil
}
