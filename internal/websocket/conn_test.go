package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The stream handler writes status pushes from the pubsub loop and pong
// replies from the read goroutine at the same time. gorilla/websocket panics
// on concurrent writes, so both must go through Conn's write lock.
func TestConnSerializesConcurrentWriters(t *testing.T) {
	const perWriter = 100

	upgrader := websocket.Upgrader{}
	serverDone := make(chan error, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			serverDone <- err
			return
		}
		conn := NewConn(raw)
		defer conn.Close()

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := conn.WriteTyped(StatusPush{Event: EventStatus, Payload: "{}"}); err != nil {
					errs <- err
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := conn.WriteTyped(PongResponse{Event: EventPong}); err != nil {
					errs <- err
					return
				}
			}
		}()
		wg.Wait()
		close(errs)
		serverDone <- <-errs
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	var statuses, pongs int
	for i := 0; i < 2*perWriter; i++ {
		var msg struct {
			Event Event `json:"event"`
		}
		require.NoError(t, client.ReadJSON(&msg))
		switch msg.Event {
		case EventStatus:
			statuses++
		case EventPong:
			pongs++
		default:
			t.Fatalf("unexpected event %q", msg.Event)
		}
	}
	assert.Equal(t, perWriter, statuses)
	assert.Equal(t, perWriter, pongs)

	require.NoError(t, <-serverDone)
}
