package service

import (
	"encoding/json"

	"freya/domain/orderbook"
)

// EventType tags journaled and broadcast order events.
type EventType string

const (
	EventAdd    EventType = "add"
	EventRemove EventType = "remove"
)

// Event is the wire form of one accepted mutation. The same encoding is
// written to the WAL, staged in the outbox and published to Kafka.
type Event struct {
	V     int                `json:"v"`
	Type  EventType          `json:"type"`
	Seq   uint64             `json:"seq"`
	Key   orderbook.OrderKey `json:"orderKey"`
	Order orderbook.Order    `json:"order"`
}

func encodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeEvent(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}
