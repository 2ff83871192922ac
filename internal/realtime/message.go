// Package realtime tracks live websocket connections in a registry and
// serves the stats channel over them. Each connection carries the
// identity snapshot fixed at accept time; the guarded registry re-checks
// only that snapshot's expiry before every outbound delivery.
package realtime

import "encoding/json"

// MessageKind selects the wire encoding of an outbound message.
type MessageKind uint8

const (
	KindText MessageKind = iota + 1
	KindJSON
	KindBinary
)

// Message is one outbound unit queued for a connection. JSON messages
// are pre-encoded at construction so a broadcast marshals once, not per
// receiver.
type Message struct {
	Kind MessageKind
	Data []byte
}

// TextMessage wraps a UTF-8 string.
func TextMessage(s string) Message {
	return Message{Kind: KindText, Data: []byte(s)}
}

// JSONMessage encodes v once for fanout.
func JSONMessage(v any) (Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindJSON, Data: b}, nil
}

// BinaryMessage wraps raw bytes.
func BinaryMessage(b []byte) Message {
	return Message{Kind: KindBinary, Data: b}
}
