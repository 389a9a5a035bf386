package server

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/homegame/internal/roomcode"
)

// testLogger creates a logger that discards output for tests
func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// newTestRegistry builds a registry on a mock clock with seeded room codes.
func newTestRegistry(t *testing.T, configure func(*RoomSettings)) (*RoomRegistry, *quartz.Mock) {
	t.Helper()
	cfg := DefaultConfig()
	if configure != nil {
		configure(cfg.Rooms)
	}
	require.NoError(t, cfg.Validate())

	clock := quartz.NewMock(t)
	reg := NewRoomRegistry(cfg.Rooms, roomcode.New(cfg.Rooms.CodeLength, 1), clock, testLogger())
	t.Cleanup(func() {
		reg.CloseAll(context.Background(), "test finished")
	})
	return reg, clock
}

// fakeMember records everything a room sends it.
type fakeMember struct {
	id string

	mu   sync.Mutex
	room string
	msgs []*Message
}

func newFakeMember(id string) *fakeMember {
	return &fakeMember{id: id}
}

func (m *fakeMember) ID() string {
	return m.id
}

func (m *fakeMember) SendMessage(msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *fakeMember) Bind(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.room != "" {
		return false
	}
	m.room = code
	return true
}

func (m *fakeMember) Unbind(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.room == code {
		m.room = ""
	}
}

func (m *fakeMember) RoomCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room
}

func (m *fakeMember) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

func (m *fakeMember) types() []MessageType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]MessageType, len(m.msgs))
	for i, msg := range m.msgs {
		types[i] = msg.Type
	}
	return types
}

// last returns the most recent message of the given type.
func (m *fakeMember) last(t *testing.T, msgType MessageType) *Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].Type == msgType {
			return m.msgs[i]
		}
	}
	t.Fatalf("%s never received %s (got %v)", m.id, msgType, m.msgs)
	return nil
}

func decodeData[T any](t *testing.T, msg *Message) T {
	t.Helper()
	var data T
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	return data
}
