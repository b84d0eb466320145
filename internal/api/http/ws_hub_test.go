package apihttp

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastWithoutClientsDropsQuietly(t *testing.T) {
	s := newTestServer(&fakeStream{})
	defer s.Close()

	// More sends than the broadcast channel buffers: with no clients every
	// one must return immediately instead of filling the channel or racing
	// the hub goroutine.
	for i := 0; i < 200; i++ {
		s.BroadcastStats(map[string]int{"entries": i})
	}
}

func TestBroadcastReachesConnectedClient(t *testing.T) {
	s := newTestServer(&fakeStream{})
	defer s.Close()
	srv := httptest.NewServer(s)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	received := make(chan wsMessage, 1)
	go func() {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err == nil {
			received <- msg
		}
	}()

	// Registration runs through the hub goroutine, so keep broadcasting
	// until the client sees a frame.
	deadline := time.After(5 * time.Second)
	for {
		s.BroadcastStats(map[string]int{"entries": 3})
		select {
		case msg := <-received:
			if msg.Type != "stats" {
				t.Fatalf("message type = %q", msg.Type)
			}
			data, ok := msg.Data.(map[string]interface{})
			if !ok || data["entries"] != float64(3) {
				t.Fatalf("payload = %#v", msg.Data)
			}
			return
		case <-deadline:
			t.Fatal("no broadcast delivered to connected client")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
