package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	handler := NewHandler(hub, []string{"*"})
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count never reached %d, have %d", want, hub.SubscriberCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServe_DeliversChangeSignal(t *testing.T) {
	// Arrange
	hub := NewHub(4)
	srv := newTestServer(t, hub)

	conn := dial(t, srv)
	waitForSubscribers(t, hub, 1)

	// Act
	hub.DirectoryChanged()

	// Assert
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, TypeDataUpdated, event.Type)
}

func TestServe_BroadcastReachesAllConnections(t *testing.T) {
	// Arrange
	hub := NewHub(4)
	srv := newTestServer(t, hub)

	first := dial(t, srv)
	second := dial(t, srv)
	waitForSubscribers(t, hub, 2)

	// Act
	hub.DirectoryChanged()

	// Assert
	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var event Event
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, TypeDataUpdated, event.Type)
	}
}

func TestServe_DisconnectUnsubscribes(t *testing.T) {
	// Arrange
	hub := NewHub(4)
	srv := newTestServer(t, hub)

	conn := dial(t, srv)
	waitForSubscribers(t, hub, 1)

	// Act
	require.NoError(t, conn.Close())

	// Assert — the hub notices and drops the subscriber
	waitForSubscribers(t, hub, 0)
}

func TestServe_RejectsDisallowedOrigin(t *testing.T) {
	// Arrange
	hub := NewHub(4)
	handler := NewHandler(hub, []string{"https://roster.example.com"})
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example.com"}}

	// Act
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)

	// Assert
	assert.Error(t, err)
	if conn != nil {
		_ = conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestServe_HubCloseEndsConnection(t *testing.T) {
	// Arrange
	hub := NewHub(4)
	srv := newTestServer(t, hub)

	conn := dial(t, srv)
	waitForSubscribers(t, hub, 1)

	// Act — server shutdown path
	hub.Close()

	// Assert — the client sees the connection end
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	err := conn.ReadJSON(&event)
	assert.Error(t, err)
}
