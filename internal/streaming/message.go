package streaming

import (
	"encoding/json"
	"errors"
)

type MessageType string

const (
	// MessageTypeReplay announces a stored replay.
	MessageTypeReplay MessageType = "replay"
	// MessageTypeBundle carries an artifact bundle to ingest.
	MessageTypeBundle MessageType = "bundle"
)

type Message struct {
	Type         MessageType     `json:"type"`
	Digest       string          `json:"digest,omitempty"`
	TraceID      string          `json:"trace_id,omitempty"`
	Sender       string          `json:"sender,omitempty"`
	Success      bool            `json:"success,omitempty"`
	Epoch        *uint64         `json:"epoch,omitempty"`
	Checkpoint   *uint64         `json:"checkpoint,omitempty"`
	CommandCount int             `json:"command_count,omitempty"`
	ObjectCount  int             `json:"object_count,omitempty"`
	NetGasCost   string          `json:"net_gas_cost,omitempty"`
	Bundle       json.RawMessage `json:"bundle,omitempty"`
}

func validate(msg Message) error {
	switch msg.Type {
	case "":
		return errors.New("message type is required")
	case MessageTypeReplay:
		if msg.Digest == "" {
			return errors.New("digest is required for replay messages")
		}
	case MessageTypeBundle:
		if len(msg.Bundle) == 0 {
			return errors.New("bundle is required for bundle messages")
		}
	default:
		return errors.New("unknown message type: " + string(msg.Type))
	}
	return nil
}

func Encode(msg Message) ([]byte, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if err := validate(msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
