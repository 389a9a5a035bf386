package game

// TableState is a point-in-time copy of everything members are shown.
type TableState struct {
	Code       string
	Phase      Phase
	Pot        int
	HighestBet int
	TurnIndex  int
	TurnID     string
	BigBlindID string
	HandNumber int
	Round      int
	Board      Board
	Players    []Player
	LastAction string
}

// Snapshot captures the room for broadcasting. The result shares no memory
// with the room.
func (r *Room) Snapshot() TableState {
	ts := TableState{
		Code:       r.Code,
		Phase:      r.phase,
		Pot:        r.Pot(),
		HighestBet: r.highestBet,
		TurnIndex:  r.turn,
		BigBlindID: r.bigBlindID,
		HandNumber: r.handNumber,
		Round:      r.roundNum,
		Board:      r.board.clone(),
		Players:    r.Players(),
		LastAction: r.lastAction,
	}
	if p, ok := r.TurnPlayer(); ok {
		ts.TurnID = p.ID
	}
	return ts
}
