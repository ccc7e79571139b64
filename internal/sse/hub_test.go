package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/storage/memory"
	"github.com/mcoot/diamondsgame/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "phase_changed",
			data:      `{"phase":"shuffle"}`,
			expected:  "event: phase_changed\ndata: {\"phase\":\"shuffle\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "note",
			data:      "line1\nline2",
			expected:  "event: note\ndata: line1\ndata: line2\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "carriage returns",
			eventName: "note",
			data:      "line1\r\nline2\r\n",
			expected:  "event: note\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.send:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestHubBroadcastsToEveryClient(t *testing.T) {
	hub := NewHub("s1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	clients := []*Client{NewClient("a"), NewClient("b")}
	for _, c := range clients {
		require.True(t, hub.Register(c))
	}
	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, time.Millisecond)

	hub.BroadcastEvent("paused", "{}")
	for _, c := range clients {
		assert.Equal(t, "event: paused\ndata: {}\n\n", receive(t, c))
	}

	hub.Unregister(clients[0])
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, time.Millisecond)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub("s1", testutil.NopLogger())
	go hub.Run()

	c := NewClient("a")
	require.True(t, hub.Register(c))
	hub.Close()
	hub.Close()

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client channel not closed")
	}
	assert.False(t, hub.Register(NewClient("b")))
}

func TestHubManagerBridgesStoreEvents(t *testing.T) {
	store := memory.New()
	manager := NewHubManager(store, testutil.NopLogger())
	defer manager.Close()

	hub, err := manager.GetOrCreateHub("s1")
	require.NoError(t, err)
	again, err := manager.GetOrCreateHub("s1")
	require.NoError(t, err)
	assert.Same(t, hub, again)

	c := NewClient("a")
	require.True(t, hub.Register(c))

	require.NoError(t, store.Publish(context.Background(), model.Event{
		Type:      model.EventPhaseChanged,
		SessionID: "s1",
		Phase:     model.PhaseShuffle,
		Round:     1,
	}))

	msg := receive(t, c)
	assert.True(t, strings.HasPrefix(msg, "event: phase_changed\n"))
	assert.Contains(t, msg, `"phase":"shuffle"`)
}

func TestHubManagerCleanup(t *testing.T) {
	manager := NewHubManager(memory.New(), testutil.NopLogger())

	_, err := manager.GetOrCreateHub("s1")
	require.NoError(t, err)
	require.NotNil(t, manager.GetHub("s1"))

	manager.CleanupEmptyHubs()
	assert.Nil(t, manager.GetHub("s1"))
}

func TestServeSSEStreamsEvents(t *testing.T) {
	hub := NewHub("s1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		ServeSSE(rec, req, hub, "a")
		close(done)
	}()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, time.Millisecond)
	hub.BroadcastEvent("resumed", "{}")

	// Give the stream a moment to write, then disconnect
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "retry: 3000\n"))
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, "event: resumed\ndata: {}\n\n")
}
