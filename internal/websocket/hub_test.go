package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-cms/internal/event"
)

func startHub(t *testing.T) (*Hub, *event.InMemoryBus, *httptest.Server) {
	t.Helper()

	bus := event.NewBus()
	hub := NewHub(bus)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(NewHandler(hub, []string{"http://dashboard.test"}, func(*http.Request) string {
		return "user-1"
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return hub, bus, server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestHubBroadcastsBusEvents(t *testing.T) {
	t.Parallel()

	hub, bus, server := startHub(t)

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus.Publish(event.Event{
		Type:    event.TypeEntityTrashed,
		Message: "Skill moved to trash",
		Payload: map[string]string{"entityType": "skills"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got event.Event
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, event.TypeEntityTrashed, got.Type)
	assert.Equal(t, "Skill moved to trash", got.Message)
}

func TestHubDetachesClosedClients(t *testing.T) {
	t.Parallel()

	hub, _, server := startHub(t)

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connected() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsForeignOrigins(t *testing.T) {
	t.Parallel()

	_, _, server := startHub(t)

	header := http.Header{}
	header.Set("Origin", "http://evil.test")
	_, resp, err := gorilla.DefaultDialer.Dial(wsURL(server), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
