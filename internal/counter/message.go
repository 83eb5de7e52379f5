package counter

import (
	"encoding/json"
	"fmt"
)

// Wire message types. The protocol is a closed tagged set: the server sends
// "count", clients send "increment", anything else is dropped.
const (
	MessageTypeCount     = "count"
	MessageTypeIncrement = "increment"
)

// CountMessage is pushed to every subscriber on registration and on every
// successful increment.
type CountMessage struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

// InboundMessage is the envelope clients send over the WebSocket.
type InboundMessage struct {
	Type string `json:"type"`
}

func encodeCount(value int64) ([]byte, error) {
	data, err := json.Marshal(CountMessage{Type: MessageTypeCount, Value: value})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal count message: %w", err)
	}
	return data, nil
}

func decodeInbound(payload []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("failed to parse inbound message: %w", err)
	}
	return msg, nil
}
