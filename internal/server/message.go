package server

import (
	"encoding/json"
	"time"

	"github.com/lox/homegame/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// WithRequestID returns a copy of m that answers the given request.
func (m *Message) WithRequestID(id string) *Message {
	if id == "" {
		return m
	}
	reply := *m
	reply.RequestID = id
	return &reply
}

// Client → Server Messages

type CreateRoomData struct {
	Name string `json:"name"`
}

type JoinRoomData struct {
	Name     string `json:"name"`
	RoomCode string `json:"roomCode"`
}

// RoomCommandData addresses a command that needs nothing but the room. A bare
// JSON string is accepted as the room code.
type RoomCommandData struct {
	RoomCode string `json:"roomCode"`
}

func (d *RoomCommandData) UnmarshalJSON(b []byte) error {
	var code string
	if err := json.Unmarshal(b, &code); err == nil {
		d.RoomCode = code
		return nil
	}
	type plain RoomCommandData
	return json.Unmarshal(b, (*plain)(d))
}

type PlaceBetData struct {
	RoomCode string `json:"roomCode"`
	Action   string `json:"action"`
	Amount   int    `json:"amount,omitempty"`
}

type UpdateCardData struct {
	RoomCode  string    `json:"roomCode"`
	SlotIndex int       `json:"slotIndex"`
	Card      *CardData `json:"card"`
}

type EndGameData struct {
	RoomCode string `json:"roomCode"`
	WinnerID string `json:"winnerId"`
}

type KickPlayerData struct {
	RoomCode string `json:"roomCode"`
	TargetID string `json:"targetId"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CardData struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

type PlayerState struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	RoundBet int    `json:"roundBet"`
	TotalBet int    `json:"totalBet"`
}

type TableStateData struct {
	RoomCode   string        `json:"roomCode"`
	Phase      string        `json:"phase"`
	Pot        int           `json:"pot"`
	HighestBet int           `json:"highestBet"`
	TurnIndex  int           `json:"turnIndex"`
	TurnID     string        `json:"turnId,omitempty"`
	BigBlindID string        `json:"bigBlindId,omitempty"`
	HandNumber int           `json:"handNumber"`
	Round      int           `json:"round"`
	Board      []*CardData   `json:"board"`
	Players    []PlayerState `json:"players"`
	LastAction string        `json:"lastAction,omitempty"`
}

type RoomJoinedData struct {
	RoomCode string        `json:"roomCode"`
	PlayerID string        `json:"playerId"`
	Role     string        `json:"role"`
	Players  []PlayerState `json:"players"`
}

type PlayerListData struct {
	RoomCode string        `json:"roomCode"`
	Players  []PlayerState `json:"players"`
}

type HandStartedData struct {
	BigBlindID string         `json:"bigBlindId"`
	TurnID     string         `json:"turnId"`
	BigBlind   int            `json:"bigBlind"`
	State      TableStateData `json:"state"`
}

type GameStateData struct {
	State        TableStateData `json:"state"`
	LastAction   string         `json:"lastAction,omitempty"`
	RoundSettled bool           `json:"roundSettled"`
	Settlement   string         `json:"settlement,omitempty"`
}

type BoardUpdatedData struct {
	RoomCode  string      `json:"roomCode"`
	SlotIndex int         `json:"slotIndex"`
	Board     []*CardData `json:"board"`
}

type ContributionData struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	TotalBet int    `json:"totalBet"`
}

type HandOverData struct {
	RoomCode      string             `json:"roomCode"`
	WinnerID      string             `json:"winnerId"`
	WinnerName    string             `json:"winnerName"`
	Pot           int                `json:"pot"`
	Contributions []ContributionData `json:"contributions"`
}

type KickedData struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

type ReturnedToLobbyData struct {
	RoomCode string        `json:"roomCode"`
	Players  []PlayerState `json:"players"`
}

type RoundOpenedData struct {
	State TableStateData `json:"state"`
}

type RoomClosedData struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

// RoomSummary is the operator view of a room served on /rooms.
type RoomSummary struct {
	Code       string    `json:"code"`
	Phase      string    `json:"phase"`
	Seats      int       `json:"seats"`
	HandNumber int       `json:"handNumber"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

// Helper functions to convert between internal types and message types

func PlayerStateFromGame(p game.Player) PlayerState {
	return PlayerState{
		ID:       p.ID,
		Name:     p.Name,
		Role:     p.Role.String(),
		Status:   p.Status.String(),
		RoundBet: p.RoundBet,
		TotalBet: p.TotalBet,
	}
}

func PlayersFromGame(players []game.Player) []PlayerState {
	out := make([]PlayerState, len(players))
	for i, p := range players {
		out[i] = PlayerStateFromGame(p)
	}
	return out
}

func BoardFromGame(b game.Board) []*CardData {
	out := make([]*CardData, len(b))
	for i, c := range b {
		if c != nil {
			out[i] = &CardData{Rank: c.Rank, Suit: c.Suit}
		}
	}
	return out
}

func TableStateFromGame(ts game.TableState) TableStateData {
	return TableStateData{
		RoomCode:   ts.Code,
		Phase:      ts.Phase.String(),
		Pot:        ts.Pot,
		HighestBet: ts.HighestBet,
		TurnIndex:  ts.TurnIndex,
		TurnID:     ts.TurnID,
		BigBlindID: ts.BigBlindID,
		HandNumber: ts.HandNumber,
		Round:      ts.Round,
		Board:      BoardFromGame(ts.Board),
		Players:    PlayersFromGame(ts.Players),
		LastAction: ts.LastAction,
	}
}

func HandOverFromGame(code string, res game.Result) HandOverData {
	contributions := make([]ContributionData, len(res.Contributions))
	for i, c := range res.Contributions {
		contributions[i] = ContributionData{PlayerID: c.PlayerID, Name: c.Name, TotalBet: c.TotalBet}
	}
	return HandOverData{
		RoomCode:      code,
		WinnerID:      res.WinnerID,
		WinnerName:    res.WinnerName,
		Pot:           res.Pot,
		Contributions: contributions,
	}
}
