package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/config"
	"salespulse/internal/shared/testutil"
	"salespulse/pkg/contracts/events"
)

func newIdleClient(t *testing.T) (*Client, *MockConnection) {
	t.Helper()

	logger, _ := testutil.NewTestLogger(nil)
	hub := NewHub(logger, nil)
	conn := NewMockConnection()
	client := NewClientWithConnection(hub, conn, logger)
	client.pingPeriod = time.Hour
	return client, conn
}

func TestWritePumpDeliversMessages(t *testing.T) {
	client, conn := newIdleClient(t)

	client.send <- []byte(`{"type":"dataset:refreshed"}`)
	client.send <- []byte(`{"type":"system:status"}`)
	close(client.send)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not exit")
	}

	written := conn.GetWrittenMessages()
	require.Len(t, written, 3)
	assert.Equal(t, websocket.TextMessage, written[0].Type)
	assert.Equal(t, `{"type":"dataset:refreshed"}`, string(written[0].Data))
	assert.Equal(t, websocket.TextMessage, written[1].Type)
	assert.Equal(t, websocket.CloseMessage, written[2].Type)
	assert.True(t, conn.Closed)
}

func TestWritePumpStopsOnWriteError(t *testing.T) {
	client, conn := newIdleClient(t)
	conn.WriteMessageFunc = func(int, []byte) error {
		return errors.New("broken pipe")
	}

	client.send <- []byte(`{}`)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not exit after write error")
	}
	assert.True(t, conn.Closed)
}

func TestWritePumpSendsPings(t *testing.T) {
	client, conn := newIdleClient(t)
	client.pingPeriod = 10 * time.Millisecond

	go client.WritePump()

	require.Eventually(t, func() bool {
		for _, msg := range conn.GetWrittenMessages() {
			if msg.Type == websocket.PingMessage {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	close(client.send)
}

func TestReadPumpUnregistersOnReadError(t *testing.T) {
	hub := newTestHub(t)
	client, conn := registerTestClient(t, hub)
	receiveMessage(t, client)

	conn.AddReadMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`), nil)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read pump did not exit")
	}

	assert.True(t, conn.Closed)
	assert.EqualValues(t, 1, client.messagesReceived)
	assert.EqualValues(t, int64(maxMessageSize), conn.ReadLimit)
	require.NotNil(t, conn.PongHandler)
	assert.NoError(t, conn.PongHandler(""))

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 5*time.Millisecond)
}

func TestServeWS(t *testing.T) {
	hub := newTestHub(t)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ServeWS(hub, conn, "trace-123", config.WebSocketConfig{})
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ack events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, events.MessageTypeConnect, ack.Type)
	assert.Equal(t, "trace-123", ack.TraceID)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	hub.BroadcastDatasetRefreshed(events.DatasetSnapshot{Rows: 42, Changed: true})

	var msg events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeDatasetRefreshed, msg.Type)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}
