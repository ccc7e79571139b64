package sse

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mcoot/diamondsgame/internal/model"
)

// Subscriber is the part of the store that delivers change notifications
type Subscriber interface {
	Subscribe(ctx context.Context, id model.SessionID) (<-chan model.Event, error)
}

type managedHub struct {
	hub    *Hub
	cancel context.CancelFunc
}

// HubManager owns one hub per watched session and bridges the store's
// notifications into it. Events are forwarded as JSON; clients treat them
// as a prompt to re-fetch their view.
type HubManager struct {
	subscriber Subscriber
	hubs       map[model.SessionID]*managedHub
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(subscriber Subscriber, logger *slog.Logger) *HubManager {
	return &HubManager{
		subscriber: subscriber,
		hubs:       make(map[model.SessionID]*managedHub),
		logger:     logger.With(slog.String("component", "sse")),
	}
}

// GetOrCreateHub returns the session's hub, subscribing to the store the
// first time the session is watched
func (m *HubManager) GetOrCreateHub(id model.SessionID) (*Hub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mh, ok := m.hubs[id]; ok {
		return mh.hub, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := m.subscriber.Subscribe(ctx, id)
	if err != nil {
		cancel()
		return nil, err
	}

	hub := NewHub(id, m.logger)
	m.hubs[id] = &managedHub{hub: hub, cancel: cancel}
	go hub.Run()
	go m.forward(hub, events)
	return hub, nil
}

// GetHub returns the hub for a session, or nil if nobody is watching it
func (m *HubManager) GetHub(id model.SessionID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mh, ok := m.hubs[id]; ok {
		return mh.hub
	}
	return nil
}

// RemoveHub stops a session's subscription and closes its hub
func (m *HubManager) RemoveHub(id model.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, mh := range m.hubs {
		if mh.hub.ClientCount() == 0 {
			m.removeLocked(id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("sse empty hubs cleaned up", slog.Int("removed", removed))
	}
}

// Close stops every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.hubs {
		m.removeLocked(id)
	}
}

func (m *HubManager) removeLocked(id model.SessionID) {
	mh, ok := m.hubs[id]
	if !ok {
		return
	}
	mh.cancel()
	mh.hub.Close()
	delete(m.hubs, id)
}

// forward relays store events into the hub until the subscription ends
func (m *HubManager) forward(hub *Hub, events <-chan model.Event) {
	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			m.logger.Error("sse failed to encode event", slog.Any("error", err))
			continue
		}
		hub.BroadcastEvent(string(event.Type), string(data))
	}
}
