package server

import (
	"context"
	"fmt"
	"maps"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/homegame/internal/game"
)

// Member is a connection seated in a room. The member's ID is its player ID.
type Member interface {
	ID() string
	SendMessage(msg *Message) error
	// Bind associates the member with a room and reports false if it already
	// belongs to one.
	Bind(code string) bool
	// Unbind dissociates the member from code if it is still bound to it.
	Unbind(code string)
}

type command struct {
	name  string
	run   func() error
	reply chan error
}

// Coordinator serializes every command for one room. A single goroutine owns
// the room and its members; everything else talks to it through the queue.
type Coordinator struct {
	code    string
	room    *game.Room
	members map[string]Member
	queue   chan command
	done    chan struct{}
	closing bool
	onClose func(code string)
	clock   quartz.Clock
	logger  *log.Logger

	createdAt  time.Time
	lastActive atomic.Int64
	summary    atomic.Pointer[RoomSummary]
}

func newCoordinator(code string, opts game.Options, queueSize int, clock quartz.Clock, logger *log.Logger, onClose func(string)) *Coordinator {
	if queueSize < 1 {
		queueSize = 1
	}
	c := &Coordinator{
		code:      code,
		room:      game.NewRoom(code, opts),
		members:   make(map[string]Member),
		queue:     make(chan command, queueSize),
		done:      make(chan struct{}),
		onClose:   onClose,
		clock:     clock,
		logger:    logger.WithPrefix("room").With("room", code),
		createdAt: clock.Now(),
	}
	c.lastActive.Store(c.createdAt.UnixNano())
	c.publishSummary()
	return c
}

func (c *Coordinator) start() {
	go c.run()
}

func (c *Coordinator) run() {
	for {
		cmd := <-c.queue
		err := c.execute(cmd)
		if c.closing {
			c.shutdown(cmd, err)
			return
		}
		cmd.reply <- err
	}
}

func (c *Coordinator) execute(cmd command) (err error) {
	before, members, closing := c.room.Clone(), maps.Clone(c.members), c.closing
	defer func() {
		if r := recover(); r != nil {
			c.room, c.members, c.closing = before, members, closing
			c.logger.Error("Command panicked", "command", cmd.name, "panic", r, "stack", string(debug.Stack()))
			err = game.Rejectf(game.ErrInternal, "%s failed unexpectedly", cmd.name)
		}
		c.publishSummary()
	}()

	c.lastActive.Store(c.clock.Now().UnixNano())
	if err = cmd.run(); err != nil {
		c.logger.Debug("Command rejected", "command", cmd.name, "error", err)
		return err
	}
	if verr := c.room.CheckInvariants(); verr != nil {
		c.logger.Error("Room invariant violated", "command", cmd.name, "error", verr)
	}
	return nil
}

// shutdown unregisters the room before answering the command that closed it,
// so a caller that saw the close succeed never finds the room again.
func (c *Coordinator) shutdown(last command, err error) {
	if c.onClose != nil {
		c.onClose(c.code)
	}
	last.reply <- err
	close(c.done)
	for {
		select {
		case cmd := <-c.queue:
			cmd.reply <- c.closedError()
		default:
			return
		}
	}
}

func (c *Coordinator) closedError() error {
	return game.Rejectf(game.ErrRoomNotFound, "room %s is closed", c.code)
}

// do queues fn behind every earlier command for the room and waits for its
// result. If ctx ends after the command was queued, it still runs.
func (c *Coordinator) do(ctx context.Context, name string, fn func() error) error {
	cmd := command{name: name, run: fn, reply: make(chan error, 1)}

	select {
	case c.queue <- cmd:
	case <-c.done:
		return c.closedError()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return c.closedError()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Code returns the room code.
func (c *Coordinator) Code() string {
	return c.code
}

// Done is closed once the room has shut down.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// LastActive returns when the room last processed a command.
func (c *Coordinator) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// Summary returns the room's state as of its last processed command.
func (c *Coordinator) Summary() RoomSummary {
	return *c.summary.Load()
}

func (c *Coordinator) publishSummary() {
	c.summary.Store(&RoomSummary{
		Code:       c.code,
		Phase:      c.room.Phase().String(),
		Seats:      c.room.Len(),
		HandNumber: c.room.HandNumber(),
		CreatedAt:  c.createdAt,
		LastActive: c.LastActive(),
	})
}

// Seat binds m to the room and seats it. The seated member gets room_created
// (dealer) or room_joined, then everyone gets the new player list.
func (c *Coordinator) Seat(ctx context.Context, m Member, name string, role game.Role, requestID string) error {
	return c.do(ctx, "seat", func() error {
		if !m.Bind(c.code) {
			return game.Rejectf(game.ErrAlreadyInRoom, "leave your current room before joining %s", c.code)
		}
		p, err := c.room.Seat(m.ID(), name, role)
		if err != nil {
			m.Unbind(c.code)
			return err
		}
		c.members[p.ID] = m

		ack := MessageTypeRoomJoined
		if role == game.RoleDealer {
			ack = MessageTypeRoomCreated
		}
		players := PlayersFromGame(c.room.Players())
		c.sendTo(m, ack, RoomJoinedData{
			RoomCode: c.code,
			PlayerID: p.ID,
			Role:     role.String(),
			Players:  players,
		}, requestID)
		c.broadcast(MessageTypePlayerList, PlayerListData{RoomCode: c.code, Players: players})

		c.logger.Info("Player seated", "player", p.ID, "name", p.Name, "role", role, "seats", c.room.Len())
		return nil
	})
}

// StartHand deals a new hand and posts the big blind.
func (c *Coordinator) StartHand(ctx context.Context, actorID string) error {
	return c.do(ctx, "start_game", func() error {
		if err := c.room.StartHand(actorID); err != nil {
			return err
		}
		state := c.room.Snapshot()
		c.broadcast(MessageTypeHandStarted, HandStartedData{
			BigBlindID: state.BigBlindID,
			TurnID:     state.TurnID,
			BigBlind:   c.room.Options().BigBlind,
			State:      TableStateFromGame(state),
		})
		c.logger.Info("Hand started", "hand", state.HandNumber, "bigBlind", state.BigBlindID, "seats", len(state.Players))
		return nil
	})
}

// PlaceBet applies a betting action for the seat bound to actorID.
func (c *Coordinator) PlaceBet(ctx context.Context, actorID, action string, amount int) error {
	return c.do(ctx, "place_bet", func() error {
		a, err := game.ParseAction(action)
		if err != nil {
			return err
		}
		out, err := c.room.PlaceBet(actorID, a, amount)
		if err != nil {
			return err
		}
		c.broadcastState(out.Description)
		if out.Settled != game.NotSettled {
			c.logger.Info("Betting round settled", "how", out.Settled, "pot", c.room.Pot())
		}
		return nil
	})
}

// NextRound opens another betting round after a settled one.
func (c *Coordinator) NextRound(ctx context.Context, actorID string) error {
	return c.do(ctx, "next_round", func() error {
		if err := c.room.NextRound(actorID); err != nil {
			return err
		}
		c.broadcast(MessageTypeRoundOpened, RoundOpenedData{State: TableStateFromGame(c.room.Snapshot())})
		return nil
	})
}

// UpdateCard sets one community card slot, or clears it when card is nil.
func (c *Coordinator) UpdateCard(ctx context.Context, actorID string, slot int, card *game.Card) error {
	return c.do(ctx, "update_card", func() error {
		if err := c.room.UpdateCard(actorID, slot, card); err != nil {
			return err
		}
		c.broadcast(MessageTypeBoardUpdated, BoardUpdatedData{
			RoomCode:  c.code,
			SlotIndex: slot,
			Board:     BoardFromGame(c.room.Board()),
		})
		c.logger.Debug("Board updated", "slot", slot, "revealed", c.room.Board().Revealed())
		return nil
	})
}

// EndHand records the dealer's declared winner.
func (c *Coordinator) EndHand(ctx context.Context, actorID, winnerID string) error {
	return c.do(ctx, "end_game", func() error {
		res, err := c.room.EndHand(actorID, winnerID)
		if err != nil {
			return err
		}
		c.broadcast(MessageTypeHandOver, HandOverFromGame(c.code, res))
		c.logger.Info("Hand over", "hand", c.room.HandNumber(), "winner", res.WinnerName, "pot", res.Pot)
		return nil
	})
}

// Reset returns the room to the lobby. Resetting a lobby broadcasts nothing.
func (c *Coordinator) Reset(ctx context.Context, actorID string) error {
	return c.do(ctx, "reset_game", func() error {
		changed, err := c.room.Reset(actorID)
		if err != nil || !changed {
			return err
		}
		c.broadcast(MessageTypeReturnedToLobby, ReturnedToLobbyData{
			RoomCode: c.code,
			Players:  PlayersFromGame(c.room.Players()),
		})
		return nil
	})
}

// Kick removes targetID on the dealer's behalf and unbinds its connection.
func (c *Coordinator) Kick(ctx context.Context, actorID, targetID string) error {
	return c.do(ctx, "kick_player", func() error {
		target, _ := c.room.Player(targetID)
		if _, err := c.room.Kick(actorID, targetID); err != nil {
			return err
		}
		if m, ok := c.members[targetID]; ok {
			delete(c.members, targetID)
			c.sendTo(m, MessageTypeKicked, KickedData{RoomCode: c.code, Reason: "removed by the dealer"}, "")
			m.Unbind(c.code)
		}

		c.broadcast(MessageTypePlayerList, PlayerListData{RoomCode: c.code, Players: PlayersFromGame(c.room.Players())})
		if c.room.Phase() != game.PhaseLobby {
			c.broadcastState(fmt.Sprintf("%s was removed by the dealer", target.Name))
		}
		c.logger.Info("Player kicked", "player", targetID, "name", target.Name)
		return nil
	})
}

// Leave handles a member going away, either by request or because its
// connection dropped. The room closes when the dealer leaves.
func (c *Coordinator) Leave(ctx context.Context, playerID string) error {
	return c.do(ctx, "leave", func() error {
		p, ok := c.room.Player(playerID)
		if !ok {
			return game.Rejectf(game.ErrPlayerNotFound, "%s is not seated", playerID)
		}
		if p.IsDealer() {
			c.closeRoom("the dealer left")
			return nil
		}
		if _, err := c.room.Disconnect(playerID); err != nil {
			return err
		}
		if m, ok := c.members[playerID]; ok {
			delete(c.members, playerID)
			m.Unbind(c.code)
		}
		c.logger.Info("Player left", "player", playerID, "name", p.Name, "phase", c.room.Phase())

		c.broadcast(MessageTypePlayerList, PlayerListData{RoomCode: c.code, Players: PlayersFromGame(c.room.Players())})
		if c.room.Phase() != game.PhaseLobby {
			c.broadcastState(fmt.Sprintf("%s left the table", p.Name))
		}
		return nil
	})
}

// Close tells every member the room is gone and stops the room.
func (c *Coordinator) Close(ctx context.Context, reason string) error {
	return c.do(ctx, "close", func() error {
		c.closeRoom(reason)
		return nil
	})
}

// State returns a snapshot of the room.
func (c *Coordinator) State(ctx context.Context) (game.TableState, error) {
	var ts game.TableState
	err := c.do(ctx, "state", func() error {
		ts = c.room.Snapshot()
		return nil
	})
	return ts, err
}

func (c *Coordinator) closeRoom(reason string) {
	c.broadcast(MessageTypeRoomClosed, RoomClosedData{RoomCode: c.code, Reason: reason})
	for id, m := range c.members {
		m.Unbind(c.code)
		delete(c.members, id)
	}
	c.closing = true
	c.logger.Info("Closing room", "reason", reason)
}

func (c *Coordinator) broadcastState(lastAction string) {
	settled := c.room.Settled()
	data := GameStateData{
		State:        TableStateFromGame(c.room.Snapshot()),
		LastAction:   lastAction,
		RoundSettled: settled != game.NotSettled,
	}
	if data.RoundSettled {
		data.Settlement = settled.String()
	}
	c.broadcast(MessageTypeGameState, data)
}

func (c *Coordinator) broadcast(msgType MessageType, data any) {
	msg, err := NewMessage(msgType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", msgType, "error", err)
		return
	}
	for id, m := range c.members {
		if err := m.SendMessage(msg); err != nil {
			c.logger.Debug("Failed to deliver message", "type", msgType, "player", id, "error", err)
		}
	}
}

func (c *Coordinator) sendTo(m Member, msgType MessageType, data any, requestID string) {
	msg, err := NewMessage(msgType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", msgType, "error", err)
		return
	}
	if err := m.SendMessage(msg.WithRequestID(requestID)); err != nil {
		c.logger.Debug("Failed to deliver message", "type", msgType, "player", m.ID(), "error", err)
	}
}
