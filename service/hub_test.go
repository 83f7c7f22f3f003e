package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func wsPair(t *testing.T, h *Hub, id string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		h.Subscribe(id, conn)
	}))
	t.Cleanup(srv.Close)

	client, resp, err := websocket.DefaultDialer.Dial(strings.Replace(srv.URL, "http", "ws", 1), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })

	return client
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	h := NewHub()

	// Nothing to deliver to, nothing to fail
	h.Broadcast("uploadComplete", map[string]string{"url": "u"})
	require.Zero(t, h.Subscribers())
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	h := NewHub()
	client := wsPair(t, h, "sub1")

	require.Eventually(t, func() bool {
		return h.Subscribers() == 1
	}, time.Second, 5*time.Millisecond)

	h.Broadcast("uploadComplete", map[string]string{"url": "https://x/bucket/d.jpg"})

	var ev Event
	require.NoError(t, client.ReadJSON(&ev))
	require.Equal(t, "uploadComplete", ev.Event)

	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "https://x/bucket/d.jpg", data["url"])
}

func TestBroadcastDropsDeadSubscribers(t *testing.T) {
	h := NewHub()
	client := wsPair(t, h, "sub1")

	require.Eventually(t, func() bool {
		return h.Subscribers() == 1
	}, time.Second, 5*time.Millisecond)

	client.Close()

	// The first write after the close may still land in the OS
	// buffer, so give it a couple of attempts
	require.Eventually(t, func() bool {
		h.Broadcast("uploadComplete", map[string]string{"url": "u"})
		return h.Subscribers() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	_ = wsPair(t, h, "sub1")

	require.Eventually(t, func() bool {
		return h.Subscribers() == 1
	}, time.Second, 5*time.Millisecond)

	h.Unsubscribe("sub1")
	h.Unsubscribe("sub1")
	require.Zero(t, h.Subscribers())
}
