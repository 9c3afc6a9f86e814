package optimizer

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func (h *Hub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func TestHubStreamsEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return hub.subscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(ProgressEvent{SessionID: "s1", Strategy: StrategyDescent, Status: "running"})

	var event ProgressEvent
	require.NoError(t, wsjson.Read(ctx, conn, &event))
	assert.Equal(t, "s1", event.SessionID)
	assert.Equal(t, StrategyDescent, event.Strategy)
}

func TestHubUnsubscribesOnClientDisconnect(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.subscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	// The handler goroutine must notice the close and drop its channel
	// even though no event is ever published.
	require.Eventually(t, func() bool {
		return hub.subscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
