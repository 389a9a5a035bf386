package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lox/homegame/internal/server"
)

// Renderer prints server events as plain text lines and remembers the
// latest seat list so players can be addressed by name.
type Renderer struct {
	w       io.Writer
	mu      sync.Mutex
	self    string
	players []server.PlayerState
}

// NewRenderer creates a renderer writing to w
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Resolve maps a seated player's name (case-insensitive) to its ID. Anything
// else is returned unchanged so raw IDs still work.
func (r *Renderer) Resolve(nameOrID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if strings.EqualFold(p.Name, nameOrID) {
			return p.ID
		}
	}
	return nameOrID
}

func (r *Renderer) nameOf(id string) string {
	for _, p := range r.players {
		if p.ID == id {
			if p.ID == r.self {
				return p.Name + " (you)"
			}
			return p.Name
		}
	}
	return id
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format+"\n", args...)
}

// Handle renders one server message
func (r *Renderer) Handle(msg *server.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch msg.Type {
	case server.MessageTypeRoomCreated, server.MessageTypeRoomJoined:
		var data server.RoomJoinedData
		if !r.decode(msg, &data) {
			return
		}
		r.self = data.PlayerID
		r.players = data.Players
		if msg.Type == server.MessageTypeRoomCreated {
			r.printf("Room %s created. Share the code so others can join.", data.RoomCode)
		} else {
			r.printf("Joined room %s as %s.", data.RoomCode, data.Role)
		}

	case server.MessageTypePlayerList:
		var data server.PlayerListData
		if !r.decode(msg, &data) {
			return
		}
		r.players = data.Players
		r.printf("Players: %s", r.seats(data.Players))

	case server.MessageTypeHandStarted:
		var data server.HandStartedData
		if !r.decode(msg, &data) {
			return
		}
		r.players = data.State.Players
		r.printf("Hand #%d started. %s posts the big blind of %d.",
			data.State.HandNumber, r.nameOf(data.BigBlindID), data.BigBlind)
		r.printTurn(data.State)

	case server.MessageTypeGameState:
		var data server.GameStateData
		if !r.decode(msg, &data) {
			return
		}
		r.players = data.State.Players
		if data.LastAction != "" {
			r.printf("%s", data.LastAction)
		}
		if data.RoundSettled {
			r.printf("Betting round over (%s). Pot %d.", data.Settlement, data.State.Pot)
			return
		}
		r.printTurn(data.State)

	case server.MessageTypeRoundOpened:
		var data server.RoundOpenedData
		if !r.decode(msg, &data) {
			return
		}
		r.players = data.State.Players
		r.printf("Betting round %d opened.", data.State.Round)
		r.printTurn(data.State)

	case server.MessageTypeBoardUpdated:
		var data server.BoardUpdatedData
		if !r.decode(msg, &data) {
			return
		}
		r.printf("Board: %s", formatBoard(data.Board))

	case server.MessageTypeHandOver:
		var data server.HandOverData
		if !r.decode(msg, &data) {
			return
		}
		r.printf("%s wins the pot of %d.", data.WinnerName, data.Pot)

	case server.MessageTypeReturnedToLobby:
		var data server.ReturnedToLobbyData
		if !r.decode(msg, &data) {
			return
		}
		r.players = data.Players
		r.printf("Back in the lobby. Players: %s", r.seats(data.Players))

	case server.MessageTypeKicked:
		var data server.KickedData
		if !r.decode(msg, &data) {
			return
		}
		r.players = nil
		r.printf("You were removed from room %s: %s", data.RoomCode, data.Reason)

	case server.MessageTypeRoomClosed:
		var data server.RoomClosedData
		if !r.decode(msg, &data) {
			return
		}
		r.players = nil
		r.printf("Room %s closed: %s", data.RoomCode, data.Reason)

	case server.MessageTypeError:
		var data server.ErrorData
		if !r.decode(msg, &data) {
			return
		}
		r.printf("Error [%s]: %s", data.Code, data.Message)

	default:
		r.printf("(%s)", msg.Type)
	}
}

func (r *Renderer) decode(msg *server.Message, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		r.printf("Malformed %s message: %v", msg.Type, err)
		return false
	}
	return true
}

func (r *Renderer) printTurn(state server.TableStateData) {
	if state.TurnID == "" {
		return
	}
	toCall := 0
	for _, p := range state.Players {
		if p.ID == state.TurnID {
			toCall = state.HighestBet - p.RoundBet
		}
	}
	r.printf("Pot %d. Action on %s, %d to call.", state.Pot, r.nameOf(state.TurnID), toCall)
}

func (r *Renderer) seats(players []server.PlayerState) string {
	parts := make([]string, 0, len(players))
	for _, p := range players {
		label := p.Name
		if p.ID == r.self {
			label += " (you)"
		}
		var tags []string
		if p.Role == "dealer" {
			tags = append(tags, "dealer")
		}
		if p.Status != "" && p.Status != "active" {
			tags = append(tags, p.Status)
		}
		if len(tags) > 0 {
			label += " [" + strings.Join(tags, ", ") + "]"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}

func formatBoard(board []*server.CardData) string {
	parts := make([]string, 0, len(board))
	for _, c := range board {
		if c == nil {
			parts = append(parts, "??")
			continue
		}
		parts = append(parts, c.Rank+c.Suit)
	}
	return strings.Join(parts, " ")
}
