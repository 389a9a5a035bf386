package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/homegame/internal/server" // Reuse message types
)

// Client represents a WebSocket client for a home game room
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	roomCode  string
	playerID  string
	closeOnce sync.Once

	// Event handlers
	eventHandlers map[server.MessageType][]EventHandler
	waiters       []*Pending
}

// EventHandler is a function that handles incoming events
type EventHandler func(*server.Message)

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:     serverURL,
		send:          make(chan *server.Message, 256),
		receive:       make(chan *server.Message, 256),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[server.MessageType][]EventHandler),
	}
}

// WebSocketURL turns an http(s) or ws(s) base URL into the server's /ws
// endpoint.
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	return u.String(), nil
}

// HTTPURL turns a server URL in any of the forms WebSocketURL accepts into
// the http(s) URL of path on that server.
func HTTPURL(serverURL, path string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/ws"), "/") + path
	return u.String(), nil
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	wsURL, err := WebSocketURL(c.serverURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	go c.eventProcessor()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close() // Ignore close errors during shutdown
			c.connected = false
		}

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// Done is closed once the client has been disconnected
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		_ = c.Disconnect()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// eventProcessor processes incoming messages in arrival order
func (c *Client) eventProcessor() {
	for {
		select {
		case msg := <-c.receive:
			c.handleMessage(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage tracks the room session and dispatches to registered handlers
func (c *Client) handleMessage(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeRoomCreated, server.MessageTypeRoomJoined:
		var data server.RoomJoinedData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			c.mu.Lock()
			c.roomCode = data.RoomCode
			c.playerID = data.PlayerID
			c.mu.Unlock()
		}
	case server.MessageTypeKicked, server.MessageTypeRoomClosed:
		c.mu.Lock()
		c.roomCode = ""
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.notifyWaiters(msg)
	handlers := append([]EventHandler(nil), c.eventHandlers[msg.Type]...)
	handlers = append(handlers, c.eventHandlers[anyMessage]...)
	c.mu.Unlock()

	if len(handlers) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
	}
	for _, handler := range handlers {
		handler(msg)
	}
}

// anyMessage registers a handler for every message type
const anyMessage server.MessageType = "*"

// AddEventHandler adds an event handler for a specific message type
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handler)
}

// OnAnyMessage adds an event handler that sees every message
func (c *Client) OnAnyMessage(handler EventHandler) {
	c.AddEventHandler(anyMessage, handler)
}

func (c *Client) sendCommand(msgType server.MessageType, data any) error {
	msg, err := server.NewMessage(msgType, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// CreateRoom asks the server for a new room with this client as dealer
func (c *Client) CreateRoom(name string) error {
	return c.sendCommand(server.MessageTypeCreateRoom, server.CreateRoomData{Name: name})
}

// JoinRoom joins an existing room as a player
func (c *Client) JoinRoom(code, name string) error {
	return c.sendCommand(server.MessageTypeJoinRoom, server.JoinRoomData{Name: name, RoomCode: code})
}

// StartGame deals a new hand (dealer only)
func (c *Client) StartGame() error {
	return c.sendCommand(server.MessageTypeStartGame, server.RoomCommandData{RoomCode: c.RoomCode()})
}

// PlaceBet sends a betting action. Amount only matters for bets and raises.
func (c *Client) PlaceBet(action string, amount int) error {
	return c.sendCommand(server.MessageTypePlaceBet, server.PlaceBetData{
		RoomCode: c.RoomCode(),
		Action:   action,
		Amount:   amount,
	})
}

// UpdateCard sets a board slot; an empty rank clears it (dealer only)
func (c *Client) UpdateCard(slot int, rank, suit string) error {
	data := server.UpdateCardData{RoomCode: c.RoomCode(), SlotIndex: slot}
	if rank != "" {
		data.Card = &server.CardData{Rank: rank, Suit: suit}
	}
	return c.sendCommand(server.MessageTypeUpdateCard, data)
}

// EndGame declares the hand's winner (dealer only)
func (c *Client) EndGame(winnerID string) error {
	return c.sendCommand(server.MessageTypeEndGame, server.EndGameData{RoomCode: c.RoomCode(), WinnerID: winnerID})
}

// KickPlayer removes a player from the room (dealer only)
func (c *Client) KickPlayer(targetID string) error {
	return c.sendCommand(server.MessageTypeKickPlayer, server.KickPlayerData{RoomCode: c.RoomCode(), TargetID: targetID})
}

// ResetGame returns the room to the lobby (dealer only)
func (c *Client) ResetGame() error {
	return c.sendCommand(server.MessageTypeResetGame, server.RoomCommandData{RoomCode: c.RoomCode()})
}

// NextRound opens another betting round (dealer only)
func (c *Client) NextRound() error {
	return c.sendCommand(server.MessageTypeNextRound, server.RoomCommandData{RoomCode: c.RoomCode()})
}

// LeaveRoom leaves the current room
func (c *Client) LeaveRoom() error {
	return c.sendCommand(server.MessageTypeLeaveRoom, server.RoomCommandData{RoomCode: c.RoomCode()})
}

// RoomCode returns the room this client is seated in, if any
func (c *Client) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

// PlayerID returns the player ID the server assigned on join
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// Pending is a registered interest in the next message of some types.
// Register it before sending the request so a fast reply is not missed.
type Pending struct {
	c     *Client
	types []server.MessageType
	ch    chan *server.Message
}

func (p *Pending) matches(t server.MessageType) bool {
	for _, want := range p.types {
		if want == t {
			return true
		}
	}
	return false
}

// Await registers for the next message of any of the given types
func (c *Client) Await(types ...server.MessageType) *Pending {
	p := &Pending{c: c, types: types, ch: make(chan *server.Message, 1)}
	c.mu.Lock()
	c.waiters = append(c.waiters, p)
	c.mu.Unlock()
	return p
}

// Wait blocks until a matching message arrives, the timeout passes or the
// client disconnects.
func (p *Pending) Wait(timeout time.Duration) (*server.Message, error) {
	defer p.c.removeWaiter(p)

	select {
	case msg := <-p.ch:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for %v", p.types)
	case <-p.c.ctx.Done():
		return nil, p.c.ctx.Err()
	}
}

// WaitForMessage waits for a specific message type with timeout
func (c *Client) WaitForMessage(messageType server.MessageType, timeout time.Duration) (*server.Message, error) {
	return c.Await(messageType).Wait(timeout)
}

func (c *Client) removeWaiter(p *Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.waiters {
		if other == p {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

// notifyWaiters hands msg to every waiter registered for its type. Must be
// called with c.mu held.
func (c *Client) notifyWaiters(msg *server.Message) {
	kept := c.waiters[:0]
	for _, p := range c.waiters {
		if p.matches(msg.Type) {
			p.ch <- msg
			continue
		}
		kept = append(kept, p)
	}
	c.waiters = kept
}
