package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/homegame/internal/game"
)

// Connection represents a WebSocket connection to a client. Its ID doubles as
// the player ID in whichever room it joins.
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan *Message
	roomCode  string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	finished  chan struct{}
	mu        sync.RWMutex
	closeOnce sync.Once
	rooms     *RoomRegistry
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, rooms *RoomRegistry) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Connection{
		id:       id,
		conn:     conn,
		send:     make(chan *Message, 256),
		logger:   logger.WithPrefix("conn").With("conn", id[:8]),
		ctx:      ctx,
		cancel:   cancel,
		finished: make(chan struct{}),
		rooms:    rooms,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Done is closed once the connection has stopped reading, after which it will
// never issue another command.
func (c *Connection) Done() <-chan struct{} {
	return c.finished
}

// ID returns the connection's player ID.
func (c *Connection) ID() string {
	return c.id
}

// SendMessage queues a message for the client without blocking. A client that
// lets its buffer fill is disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// Bind associates this connection with a room. A connection belongs to at
// most one room.
func (c *Connection) Bind(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomCode != "" {
		return false
	}
	c.roomCode = code
	return true
}

// Unbind clears the room association if it still points at code.
func (c *Connection) Unbind(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomCode == code {
		c.roomCode = ""
	}
}

// RoomCode returns the associated room code
func (c *Connection) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Time a command may wait for its room
	commandTimeout = 10 * time.Second
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer close(c.finished)
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.sendError("", game.Rejectf(game.ErrInvalidAction, "malformed message"))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client. Rejections are
// answered on this connection only.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "room", c.RoomCode())

	ctx, cancel := context.WithTimeout(c.ctx, commandTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case MessageTypeCreateRoom:
		err = dispatch(ctx, msg, c.handleCreateRoom)
	case MessageTypeJoinRoom:
		err = dispatch(ctx, msg, c.handleJoinRoom)
	case MessageTypeStartGame:
		err = dispatch(ctx, msg, c.handleStartGame)
	case MessageTypePlaceBet:
		err = dispatch(ctx, msg, c.handlePlaceBet)
	case MessageTypeUpdateCard:
		err = dispatch(ctx, msg, c.handleUpdateCard)
	case MessageTypeEndGame:
		err = dispatch(ctx, msg, c.handleEndGame)
	case MessageTypeKickPlayer:
		err = dispatch(ctx, msg, c.handleKickPlayer)
	case MessageTypeResetGame:
		err = dispatch(ctx, msg, c.handleResetGame)
	case MessageTypeNextRound:
		err = dispatch(ctx, msg, c.handleNextRound)
	case MessageTypeLeaveRoom:
		err = dispatch(ctx, msg, c.handleLeaveRoom)
	default:
		err = game.Rejectf(game.ErrInvalidAction, "unknown message type: %s", msg.Type)
	}

	if err != nil {
		c.sendError(msg.RequestID, err)
	}
}

func dispatch[T any](ctx context.Context, msg *Message, handler func(context.Context, string, T) error) error {
	var data T
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return game.Rejectf(game.ErrInvalidAction, "failed to parse %s data", msg.Type)
		}
	}
	return handler(ctx, msg.RequestID, data)
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID string, err error) {
	code := game.CodeOf(err)
	message := err.Error()
	var rejection *game.Error
	switch {
	case errors.As(err, &rejection):
		message = rejection.Message
	case errors.Is(err, context.DeadlineExceeded):
		message = "room did not respond in time"
	default:
		c.logger.Error("Command failed", "error", err)
		message = "internal error"
	}

	errorMsg, mErr := NewMessage(MessageTypeError, ErrorData{
		Code:    string(code),
		Message: message,
	})
	if mErr != nil {
		c.logger.Error("Failed to create error message", "error", mErr)
		return
	}

	_ = c.SendMessage(errorMsg.WithRequestID(requestID)) // Ignore send errors during error handling
}

// session resolves the room this connection is bound to. A payload naming a
// different room is treated as an unknown room.
func (c *Connection) session(code string) (*Coordinator, error) {
	bound := c.RoomCode()
	if bound == "" {
		return nil, game.Rejectf(game.ErrRoomNotFound, "join a room first")
	}
	if code != "" && code != bound {
		return nil, game.Rejectf(game.ErrRoomNotFound, "not a member of room %s", code)
	}
	return c.rooms.Lookup(bound)
}

func (c *Connection) handleCreateRoom(ctx context.Context, requestID string, data CreateRoomData) error {
	if bound := c.RoomCode(); bound != "" {
		return game.Rejectf(game.ErrAlreadyInRoom, "already in room %s", bound)
	}
	code, err := c.rooms.CreateRoom(ctx, c, data.Name, requestID)
	if err != nil {
		return err
	}
	c.logger.Info("Created room", "room", code, "name", data.Name)
	return nil
}

func (c *Connection) handleJoinRoom(ctx context.Context, requestID string, data JoinRoomData) error {
	if bound := c.RoomCode(); bound != "" {
		return game.Rejectf(game.ErrAlreadyInRoom, "already in room %s", bound)
	}
	if err := c.rooms.JoinRoom(ctx, data.RoomCode, c, data.Name, requestID); err != nil {
		return err
	}
	c.logger.Info("Joined room", "room", data.RoomCode, "name", data.Name)
	return nil
}

func (c *Connection) handleStartGame(ctx context.Context, _ string, data RoomCommandData) error {
	room, err := c.session(data.RoomCode)
	if err != nil {
		return err
	}
	return room.StartHand(ctx, c.id)
}

func (c *Connection) handlePlaceBet(ctx context.Context, _ string, data PlaceBetData) error {
	room, err := c.session(data.RoomCode)
	if err != nil {
		return err
	}
	return room.PlaceBet(ctx, c.id, data.Action, data.Amount)
}

func (c *Connection) handleUpdateCard(ctx context.Context, _ string, data UpdateCardData) error {
	room, err := c.session(data.RoomCode)
	if err != nil {
		return err
	}
	var card *game.Card
	if data.Card != nil {
		card = &game.Card{Rank: data.Card.Rank, Suit: data.Card.Suit}
	}
	return room.UpdateCard(ctx, c.id, data.SlotIndex, card)
}

func (c *Connection) handleEndGame(ctx context.Context, _ string, data EndGameData) error {
	room, err := c.session(data.RoomCode)
	if err != nil {
		return err
	}
	return room.EndHand(ctx, c.id, data.WinnerID)
}

func (c *Connection) handleKickPlayer(ctx context.Context, _ string, data KickPlayerData) error {
	room, err := c.session(data.RoomCode)
	if err != nil {
		return err
	}
	return room.Kick(ctx, c.id, data.TargetID)
}

func (c *Connection) handleResetGame(ctx context.Context, _ string, data RoomCommandData) error {
	room, err := c.session(data.RoomCode)
	if err != nil {
		return err
	}
	return room.Reset(ctx, c.id)
}

func (c *Connection) handleNextRound(ctx context.Context, _ string, data RoomCommandData) error {
	room, err := c.session(data.RoomCode)
	if err != nil {
		return err
	}
	return room.NextRound(ctx, c.id)
}

func (c *Connection) handleLeaveRoom(ctx context.Context, _ string, data RoomCommandData) error {
	room, err := c.session(data.RoomCode)
	if err != nil {
		return err
	}
	return room.Leave(ctx, c.id)
}
