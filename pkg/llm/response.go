package llm

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Reply is the result of a single prompt or chat call. It carries both the
// extracted text and the verbatim server payload so callers pick the shape
// they need through an accessor instead of a flag.
type Reply struct {
	text string
	raw  json.RawMessage
}

// NewReply wraps the extracted text and the raw payload it came from.
func NewReply(text string, raw []byte) *Reply {
	return &Reply{text: text, raw: json.RawMessage(raw)}
}

// Text returns the extracted reply content.
func (r *Reply) Text() string {
	return r.text
}

// Raw returns the full server payload exactly as received.
func (r *Reply) Raw() json.RawMessage {
	return r.raw
}

// Payload decodes the full server payload into a generic map. Numbers are kept
// as json.Number so token-context vectors and nanosecond timings survive intact.
func (r *Reply) Payload() (map[string]any, error) {
	if len(r.raw) == 0 {
		return nil, errors.New("reply has no payload")
	}

	var payload map[string]any
	if err := r.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Decode unmarshals the full server payload into v.
func (r *Reply) Decode(v any) error {
	dec := json.NewDecoder(bytes.NewReader(r.raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// String returns the reply text.
func (r *Reply) String() string {
	return r.text
}
