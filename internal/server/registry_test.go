package server

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/homegame/internal/game"
	"github.com/lox/homegame/internal/roomcode"
)

func TestCreateAndJoinRoom(t *testing.T) {
	ctx := testContext(t)
	reg, _ := newTestRegistry(t, nil)

	dealer := newFakeMember("dealer")
	code, err := reg.CreateRoom(ctx, dealer, "  Dana ", "req-1")
	require.NoError(t, err)
	require.NoError(t, roomcode.Validate(code, 4))
	assert.Equal(t, code, dealer.RoomCode())
	assert.Equal(t, 1, reg.Len())

	created := dealer.last(t, MessageTypeRoomCreated)
	assert.Equal(t, "req-1", created.RequestID)
	ack := decodeData[RoomJoinedData](t, created)
	assert.Equal(t, code, ack.RoomCode)
	assert.Equal(t, "dealer", ack.PlayerID)
	assert.Equal(t, "dealer", ack.Role)
	require.Len(t, ack.Players, 1)
	assert.Equal(t, "Dana", ack.Players[0].Name, "names are trimmed")

	p1 := newFakeMember("p1")
	require.NoError(t, reg.JoinRoom(ctx, code, p1, "Pat", "req-2"))
	joined := decodeData[RoomJoinedData](t, p1.last(t, MessageTypeRoomJoined))
	assert.Equal(t, "player", joined.Role)
	assert.Equal(t, "p1", joined.PlayerID)

	list := decodeData[PlayerListData](t, dealer.last(t, MessageTypePlayerList))
	require.Len(t, list.Players, 2)
	assert.Equal(t, "Pat", list.Players[1].Name)
	assert.Equal(t, "active", list.Players[1].Status)
}

func TestJoinRoomRejections(t *testing.T) {
	ctx := testContext(t)
	reg, _ := newTestRegistry(t, func(r *RoomSettings) {
		r.MaxSeats = 2
		r.MaxNameLength = 8
	})

	dealer := newFakeMember("dealer")
	code, err := reg.CreateRoom(ctx, dealer, "Dana", "")
	require.NoError(t, err)

	tests := []struct {
		name string
		code string
		who  string
		want error
	}{
		{"unknown code", "ZZZZ", "Pat", game.ErrRoomNotFound},
		{"lowercase code", "abcd", "Pat", game.ErrRoomNotFound},
		{"short code", "AB", "Pat", game.ErrRoomNotFound},
		{"letter outside alphabet", "ABCI", "Pat", game.ErrRoomNotFound},
		{"blank name", code, "   ", game.ErrInvalidAction},
		{"long name", code, "Bartholomew", game.ErrInvalidAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMember("p")
			err := reg.JoinRoom(ctx, tt.code, m, tt.who, "")
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, m.RoomCode())
			assert.Zero(t, m.count())
		})
	}

	require.NoError(t, reg.JoinRoom(ctx, code, newFakeMember("p1"), "Pat", ""))

	full := newFakeMember("p2")
	err = reg.JoinRoom(ctx, code, full, "Sam", "")
	require.ErrorIs(t, err, game.ErrRoomFull)
	assert.Empty(t, full.RoomCode(), "rejected joiner stays unbound")
}

func TestJoinDuringHand(t *testing.T) {
	ctx := testContext(t)
	reg, _ := newTestRegistry(t, nil)

	dealer := newFakeMember("dealer")
	code, err := reg.CreateRoom(ctx, dealer, "Dana", "")
	require.NoError(t, err)
	require.NoError(t, reg.JoinRoom(ctx, code, newFakeMember("p1"), "Pat", ""))

	room, err := reg.Lookup(code)
	require.NoError(t, err)
	require.NoError(t, room.StartHand(ctx, "dealer"))

	err = reg.JoinRoom(ctx, code, newFakeMember("late"), "Lee", "")
	assert.ErrorIs(t, err, game.ErrInvalidPhase)
}

func TestCapacityExceeded(t *testing.T) {
	ctx := testContext(t)
	reg, _ := newTestRegistry(t, func(r *RoomSettings) { r.MaxRooms = 1 })

	_, err := reg.CreateRoom(ctx, newFakeMember("a"), "Ann", "")
	require.NoError(t, err)

	b := newFakeMember("b")
	_, err = reg.CreateRoom(ctx, b, "Ben", "")
	require.ErrorIs(t, err, game.ErrCapacityExceeded)
	assert.Empty(t, b.RoomCode())
	assert.Equal(t, 1, reg.Len())
}

func TestAlreadyInRoom(t *testing.T) {
	ctx := testContext(t)
	reg, _ := newTestRegistry(t, nil)

	first, err := reg.CreateRoom(ctx, newFakeMember("d1"), "Dana", "")
	require.NoError(t, err)
	second, err := reg.CreateRoom(ctx, newFakeMember("d2"), "Drew", "")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	p := newFakeMember("p")
	require.NoError(t, reg.JoinRoom(ctx, first, p, "Pat", ""))
	err = reg.JoinRoom(ctx, second, p, "Pat", "")
	require.ErrorIs(t, err, game.ErrAlreadyInRoom)
	assert.Equal(t, first, p.RoomCode())

	room, err := reg.Lookup(second)
	require.NoError(t, err)
	state, err := room.State(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Players, 1, "second room never seated the member")
}

func TestCodesAreUnique(t *testing.T) {
	ctx := testContext(t)
	reg, _ := newTestRegistry(t, func(r *RoomSettings) { r.CodeLength = 3 })

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := reg.CreateRoom(ctx, newFakeMember("d"+strings.Repeat("x", i)), "Dana", "")
		require.NoError(t, err)
		require.False(t, seen[code], "code %s handed out twice", code)
		seen[code] = true
	}
	assert.Len(t, reg.ListRooms(), 50)
}

func TestListRooms(t *testing.T) {
	ctx := testContext(t)
	reg, _ := newTestRegistry(t, nil)

	for _, id := range []string{"d1", "d2", "d3"} {
		_, err := reg.CreateRoom(ctx, newFakeMember(id), "Dana", "")
		require.NoError(t, err)
	}

	rooms := reg.ListRooms()
	require.Len(t, rooms, 3)
	for i, r := range rooms {
		assert.Equal(t, "lobby", r.Phase)
		assert.Equal(t, 1, r.Seats)
		if i > 0 {
			assert.Less(t, rooms[i-1].Code, r.Code, "rooms are sorted by code")
		}
	}
}

func TestIdleReaper(t *testing.T) {
	ctx := testContext(t)
	reg, clock := newTestRegistry(t, func(r *RoomSettings) {
		r.IdleTimeout = "10m"
		r.ReapInterval = "1m"
	})

	idleDealer := newFakeMember("idle")
	idle, err := reg.CreateRoom(ctx, idleDealer, "Ida", "")
	require.NoError(t, err)
	busy, err := reg.CreateRoom(ctx, newFakeMember("busy"), "Bo", "")
	require.NoError(t, err)

	reg.StartReaper(ctx)

	for i := 0; i < 5; i++ {
		clock.Advance(time.Minute).MustWait(ctx)
	}
	busyRoom, err := reg.Lookup(busy)
	require.NoError(t, err)
	require.NoError(t, busyRoom.Reset(ctx, "busy"))

	for i := 0; i < 4; i++ {
		clock.Advance(time.Minute).MustWait(ctx)
	}
	assert.Equal(t, 2, reg.Len(), "nothing has been idle for 10m yet")

	clock.Advance(time.Minute).MustWait(ctx)
	_, err = reg.Lookup(idle)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
	assert.Empty(t, idleDealer.RoomCode())
	closed := decodeData[RoomClosedData](t, idleDealer.last(t, MessageTypeRoomClosed))
	assert.Equal(t, idle, closed.RoomCode)

	_, err = reg.Lookup(busy)
	assert.NoError(t, err, "activity at 5m keeps the room until 15m")

	for i := 0; i < 5; i++ {
		clock.Advance(time.Minute).MustWait(ctx)
	}
	assert.Zero(t, reg.Len())
}

func TestReapDisabled(t *testing.T) {
	ctx := testContext(t)
	reg, clock := newTestRegistry(t, func(r *RoomSettings) { r.IdleTimeout = "0s" })

	_, err := reg.CreateRoom(ctx, newFakeMember("d"), "Dana", "")
	require.NoError(t, err)
	clock.Set(clock.Now().Add(24 * time.Hour))
	assert.Zero(t, reg.Reap(ctx))
	assert.Equal(t, 1, reg.Len())
}
