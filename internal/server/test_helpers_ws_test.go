package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lox/homegame/internal/roomcode"
)

// startTestServer serves the server's routes from an httptest server and
// returns its base URL.
func startTestServer(t *testing.T, configure func(*Config)) (*Server, string) {
	t.Helper()
	cfg := DefaultConfig()
	if configure != nil {
		configure(cfg)
	}
	require.NoError(t, cfg.Validate())

	s := NewServer(cfg, testLogger(),
		WithClock(quartz.NewMock(t)),
		WithCodeGenerator(roomcode.New(cfg.Rooms.CodeLength, 7)),
	)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.rooms.CloseAll(context.Background(), "test finished")
	})
	return s, ts.URL
}

func wsURL(baseURL string) string {
	return "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, baseURL string) *wsClient {
	t.Helper()
	url := wsURL(baseURL)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "failed to dial %s", url)
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msgType MessageType, data any, requestID string) {
	c.t.Helper()
	msg, err := NewMessage(msgType, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(msg.WithRequestID(requestID)))
}

// expect reads until a message of msgType arrives, skipping anything else.
func (c *wsClient) expect(msgType MessageType) *Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg Message
		require.NoError(c.t, c.conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return &msg
		}
	}
}

func (c *wsClient) expectError(code string) ErrorData {
	c.t.Helper()
	msg := c.expect(MessageTypeError)
	var data ErrorData
	require.NoError(c.t, json.Unmarshal(msg.Data, &data))
	require.Equal(c.t, code, data.Code, "unexpected error: %s", data.Message)
	return data
}
