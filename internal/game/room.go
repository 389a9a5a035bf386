package game

import (
	"fmt"
	"slices"
)

// Phase of a room
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseInHand
	PhaseShowdown
)

func (p Phase) String() string {
	return [...]string{"lobby", "in_hand", "showdown"}[p]
}

// Options configures the betting rules of a room.
type Options struct {
	BigBlind int
	MaxSeats int
	MaxBet   int // 0 means unlimited
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		BigBlind: 10,
		MaxSeats: 10,
		MaxBet:   0,
	}
}

// Contribution is one seat's share of the pot.
type Contribution struct {
	PlayerID string
	Name     string
	TotalBet int
}

// Result is the dealer's declaration for a hand.
type Result struct {
	WinnerID      string
	WinnerName    string
	Pot           int
	Contributions []Contribution
}

// Room is one shared game session. The pot is never stored; it is always the
// sum of the seated players' TotalBet.
type Room struct {
	Code string

	opts       Options
	players    []*Player
	phase      Phase
	board      Board
	highestBet int
	turn       int
	bigBlindID string
	round      *BettingRound
	settled    Settlement
	lastAction string
	handNumber int
	roundNum   int
	result     *Result
}

// NewRoom creates an empty room in the lobby.
func NewRoom(code string, opts Options) *Room {
	if opts.BigBlind <= 0 {
		opts.BigBlind = DefaultOptions().BigBlind
	}
	return &Room{
		Code:  code,
		opts:  opts,
		turn:  -1,
		round: newBettingRound(),
	}
}

// Seat adds a player to the room. Seats are only taken in the lobby, and a room
// has exactly one dealer, seated first.
func (r *Room) Seat(id, name string, role Role) (*Player, error) {
	if r.phase != PhaseLobby {
		return nil, Rejectf(ErrInvalidPhase, "room %s has a hand in progress", r.Code)
	}
	if r.opts.MaxSeats > 0 && len(r.players) >= r.opts.MaxSeats {
		return nil, Rejectf(ErrRoomFull, "room %s has %d seats", r.Code, r.opts.MaxSeats)
	}
	if _, p := r.find(id); p != nil {
		return nil, Rejectf(ErrInvalidAction, "%s is already seated", id)
	}
	hasDealer := r.Dealer() != nil
	if role == RoleDealer && hasDealer {
		return nil, Rejectf(ErrInvalidAction, "room %s already has a dealer", r.Code)
	}
	if role != RoleDealer && !hasDealer {
		return nil, Rejectf(ErrInvalidAction, "room %s has no dealer", r.Code)
	}

	p := &Player{ID: id, Name: name, Role: role, Status: StatusActive}
	r.players = append(r.players, p)
	return p, nil
}

// StartHand moves the room from the lobby into a hand. The big blind is the
// first non-dealer seat; the turn goes to the next active seat after it.
func (r *Room) StartHand(actorID string) error {
	if err := r.requireDealer(actorID); err != nil {
		return err
	}
	if r.phase != PhaseLobby {
		return Rejectf(ErrInvalidAction, "hand already in progress")
	}
	if len(r.players) < 2 {
		return Rejectf(ErrInvalidAction, "need at least 2 players, have %d", len(r.players))
	}

	bb := slices.IndexFunc(r.players, func(p *Player) bool { return !p.IsDealer() })
	for _, p := range r.players {
		p.resetForHand()
	}
	blind := r.players[bb]
	blind.contribute(r.opts.BigBlind)

	r.phase = PhaseInHand
	r.board = Board{}
	r.highestBet = r.opts.BigBlind
	r.bigBlindID = blind.ID
	r.round = newBettingRound()
	r.settled = NotSettled
	r.result = nil
	r.handNumber++
	r.roundNum = 1
	r.turn = r.nextActive(bb)
	r.lastAction = fmt.Sprintf("%s posts the big blind of %d", blind.Name, r.opts.BigBlind)
	return nil
}

// NextRound opens another betting round after the previous one settled with at
// least two seats still in. Round contributions reset; totals carry over.
func (r *Room) NextRound(actorID string) error {
	if err := r.requireDealer(actorID); err != nil {
		return err
	}
	if r.phase != PhaseShowdown {
		return Rejectf(ErrInvalidPhase, "no settled betting round to follow")
	}
	if r.result != nil {
		return Rejectf(ErrInvalidAction, "hand already declared for %s", r.result.WinnerName)
	}
	if n := r.ActiveCount(); n < 2 {
		return Rejectf(ErrInvalidAction, "need 2 active seats for another round, have %d", n)
	}

	for _, p := range r.players {
		p.RoundBet = 0
	}
	anchor, _ := r.find(r.bigBlindID)
	if anchor < 0 {
		anchor = 0
	}
	r.phase = PhaseInHand
	r.highestBet = 0
	r.round = newBettingRound()
	r.settled = NotSettled
	r.roundNum++
	r.turn = r.nextActive(anchor)
	r.lastAction = fmt.Sprintf("betting round %d opened", r.roundNum)
	return nil
}

// UpdateCard sets or clears (card == nil) one board slot. The board is advisory
// and never affects betting.
func (r *Room) UpdateCard(actorID string, slot int, card *Card) error {
	if err := r.requireDealer(actorID); err != nil {
		return err
	}
	if r.phase == PhaseLobby {
		return Rejectf(ErrInvalidPhase, "no hand in progress")
	}
	if slot < 0 || slot >= BoardSize {
		return Rejectf(ErrInvalidAction, "slot %d out of range 0-%d", slot, BoardSize-1)
	}
	if card == nil {
		r.board[slot] = nil
		return nil
	}
	c, err := ParseCard(card.Rank, card.Suit)
	if err != nil {
		return err
	}
	r.board[slot] = &c
	return nil
}

// EndHand records the dealer's chosen winner and concludes the hand. The whole
// pot is awarded conceptually; settlement of real money happens elsewhere.
func (r *Room) EndHand(actorID, winnerID string) (Result, error) {
	if err := r.requireDealer(actorID); err != nil {
		return Result{}, err
	}
	if r.phase == PhaseLobby {
		return Result{}, Rejectf(ErrInvalidPhase, "no hand in progress")
	}
	_, winner := r.find(winnerID)
	if winner == nil {
		return Result{}, Rejectf(ErrPlayerNotFound, "winner %s is not seated", winnerID)
	}

	res := Result{
		WinnerID:      winner.ID,
		WinnerName:    winner.Name,
		Pot:           r.Pot(),
		Contributions: make([]Contribution, 0, len(r.players)),
	}
	for _, p := range r.players {
		res.Contributions = append(res.Contributions, Contribution{PlayerID: p.ID, Name: p.Name, TotalBet: p.TotalBet})
	}
	r.phase = PhaseShowdown
	r.turn = -1
	r.result = &res
	r.lastAction = fmt.Sprintf("%s wins %d", winner.Name, res.Pot)
	return res, nil
}

// Reset returns the room to the lobby and prunes disconnected seats. It reports
// whether anything changed; resetting a lobby is a no-op.
func (r *Room) Reset(actorID string) (bool, error) {
	if err := r.requireDealer(actorID); err != nil {
		return false, err
	}
	switch r.phase {
	case PhaseLobby:
		return false, nil
	case PhaseInHand:
		return false, Rejectf(ErrInvalidPhase, "finish the hand before resetting")
	}

	r.players = slices.DeleteFunc(r.players, func(p *Player) bool {
		return p.Status == StatusDisconnected
	})
	for _, p := range r.players {
		p.resetForHand()
	}
	r.phase = PhaseLobby
	r.board = Board{}
	r.highestBet = 0
	r.turn = -1
	r.bigBlindID = ""
	r.round = newBettingRound()
	r.settled = NotSettled
	r.result = nil
	r.roundNum = 0
	r.lastAction = ""
	return true, nil
}

// Kick removes a seat on the dealer's behalf. If the seat held the turn, the
// turn moves on as if it had folded.
func (r *Room) Kick(actorID, targetID string) (Settlement, error) {
	if err := r.requireDealer(actorID); err != nil {
		return NotSettled, err
	}
	idx, target := r.find(targetID)
	if target == nil {
		return NotSettled, Rejectf(ErrPlayerNotFound, "%s is not seated", targetID)
	}
	if target.IsDealer() {
		return NotSettled, Rejectf(ErrInvalidAction, "the dealer cannot be kicked")
	}
	return r.remove(idx), nil
}

// Disconnect handles a seat whose connection went away. In the lobby the seat is
// removed; during a hand it stays seated as disconnected so its contributions
// are kept until the hand ends.
func (r *Room) Disconnect(playerID string) (Settlement, error) {
	idx, p := r.find(playerID)
	if p == nil {
		return NotSettled, Rejectf(ErrPlayerNotFound, "%s is not seated", playerID)
	}
	if r.phase == PhaseLobby {
		r.players = slices.Delete(r.players, idx, idx+1)
		return NotSettled, nil
	}
	if p.Status == StatusDisconnected {
		return NotSettled, nil
	}
	return r.deactivate(idx, StatusDisconnected), nil
}

func (r *Room) remove(idx int) Settlement {
	s := NotSettled
	if r.phase != PhaseLobby && r.players[idx].IsActive() {
		s = r.deactivate(idx, StatusFolded)
	}
	r.players = slices.Delete(r.players, idx, idx+1)
	if r.turn > idx {
		r.turn--
	}
	return s
}

func (r *Room) requireDealer(actorID string) error {
	_, p := r.find(actorID)
	if p == nil || !p.IsDealer() {
		return ErrUnauthorized
	}
	return nil
}

func (r *Room) find(id string) (int, *Player) {
	for i, p := range r.players {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

// Player returns a copy of the seat with the given id.
func (r *Room) Player(id string) (Player, bool) {
	_, p := r.find(id)
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

// Players returns copies of the seats in seating order.
func (r *Room) Players() []Player {
	out := make([]Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
	}
	return out
}

// Dealer returns the dealer's seat, or nil before one is seated.
func (r *Room) Dealer() *Player {
	for _, p := range r.players {
		if p.IsDealer() {
			return p
		}
	}
	return nil
}

// Pot is the sum of every seated player's contribution to the hand.
func (r *Room) Pot() int {
	total := 0
	for _, p := range r.players {
		total += p.TotalBet
	}
	return total
}

// ActiveCount returns the number of seats still contesting the hand.
func (r *Room) ActiveCount() int {
	n := 0
	for _, p := range r.players {
		if p.IsActive() {
			n++
		}
	}
	return n
}

// Phase returns the room's current phase.
func (r *Room) Phase() Phase {
	return r.phase
}

// HighestBet is the largest round contribution among active seats.
func (r *Room) HighestBet() int {
	return r.highestBet
}

// TurnIndex is the seat whose action is awaited, or -1.
func (r *Room) TurnIndex() int {
	return r.turn
}

func (r *Room) BigBlindID() string {
	return r.bigBlindID
}

func (r *Room) Board() Board {
	return r.board.clone()
}

func (r *Room) LastAction() string {
	return r.lastAction
}

func (r *Room) HandNumber() int {
	return r.handNumber
}

func (r *Room) RoundNumber() int {
	return r.roundNum
}

// Settled reports how the most recent betting round ended.
func (r *Room) Settled() Settlement {
	return r.settled
}

// Len returns the number of seats.
func (r *Room) Len() int {
	return len(r.players)
}

func (r *Room) Options() Options {
	return r.opts
}

// Result returns the declared outcome of the current hand, if any.
func (r *Room) Result() (Result, bool) {
	if r.result == nil {
		return Result{}, false
	}
	return *r.result, true
}

// TurnPlayer returns the seat whose action is awaited.
func (r *Room) TurnPlayer() (Player, bool) {
	if r.turn < 0 || r.turn >= len(r.players) {
		return Player{}, false
	}
	return *r.players[r.turn], true
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	out := *r
	out.players = make([]*Player, len(r.players))
	for i, p := range r.players {
		cp := *p
		out.players[i] = &cp
	}
	out.board = r.board.clone()
	out.round = r.round.clone()
	if r.result != nil {
		res := *r.result
		res.Contributions = slices.Clone(r.result.Contributions)
		out.result = &res
	}
	return &out
}
