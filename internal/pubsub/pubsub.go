// Package pubsub is the per-room event channel between sessions. Delivery is
// at-least-once with no ordering guarantee: every event is a full snapshot
// (or a bare leave marker), never a diff, so receivers can drop or reorder
// freely and still converge.
package pubsub

import (
	"context"
	"sync"

	"wordchain/internal/engine"
)

type EventType string

const (
	EventGameStart  EventType = "game_start"
	EventGameUpdate EventType = "game_update"
	EventGameLeft   EventType = "game_left"
)

type Event struct {
	Type        EventType                `json:"type"`
	Room        string                   `json:"room"`
	State       *engine.State            `json:"state,omitempty"`
	PlayerNames map[engine.Player]string `json:"playerNames,omitempty"`
}

// Broker fans events out to every subscriber of a room topic, the publisher
// included. The cancel func returned by Subscribe must be called exactly once.
type Broker interface {
	Publish(ctx context.Context, topic string, evt Event) error
	Subscribe(topic string) (<-chan Event, func())
}

const subscriberBuffer = 16

// Memory is an in-process broker. A subscriber that falls behind loses
// events rather than blocking the publisher; the grace-window timeout and
// the snapshot version guard make that loss recoverable.
type Memory struct {
	mu     sync.Mutex
	topics map[string]map[int]chan Event
	nextID int
}

func NewMemory() *Memory {
	return &Memory{topics: make(map[string]map[int]chan Event)}
}

func (m *Memory) Publish(_ context.Context, topic string, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.topics[topic] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(topic string) (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.topics[topic] == nil {
		m.topics[topic] = make(map[int]chan Event)
	}
	id := m.nextID
	m.nextID++
	ch := make(chan Event, subscriberBuffer)
	m.topics[topic][id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.topics[topic], id)
		if len(m.topics[topic]) == 0 {
			delete(m.topics, topic)
		}
	}
	return ch, cancel
}
