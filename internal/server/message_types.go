package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeCreateRoom MessageType = "create_room"
	MessageTypeJoinRoom   MessageType = "join_room"
	MessageTypeStartGame  MessageType = "start_game"
	MessageTypePlaceBet   MessageType = "place_bet"
	MessageTypeUpdateCard MessageType = "update_card"
	MessageTypeEndGame    MessageType = "end_game"
	MessageTypeKickPlayer MessageType = "kick_player"
	MessageTypeResetGame  MessageType = "reset_game"
	MessageTypeNextRound  MessageType = "next_round"
	MessageTypeLeaveRoom  MessageType = "leave_room"

	// Server to client messages
	MessageTypeRoomCreated     MessageType = "room_created"
	MessageTypeRoomJoined      MessageType = "room_joined"
	MessageTypePlayerList      MessageType = "player_list"
	MessageTypeHandStarted     MessageType = "hand_started"
	MessageTypeGameState       MessageType = "game_state"
	MessageTypeBoardUpdated    MessageType = "board_updated"
	MessageTypeHandOver        MessageType = "hand_over"
	MessageTypeKicked          MessageType = "kicked"
	MessageTypeReturnedToLobby MessageType = "returned_to_lobby"
	MessageTypeRoundOpened     MessageType = "round_opened"
	MessageTypeRoomClosed      MessageType = "room_closed"
	MessageTypeError           MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
