package game

import (
	"fmt"
	"math"
	"strings"
)

// MaxPot is the most chips a single hand's pot may hold. A bet is refused when
// calling it from every active seat would pass this.
const MaxPot = math.MaxInt32

// Action represents a betting action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Bet
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "bet"}[a]
}

// ParseAction maps a wire action name to an Action. "raise" is an alias for bet.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet", "raise":
		return Bet, nil
	}
	return 0, Rejectf(ErrInvalidAction, "unknown action %q", s)
}

// Settlement says why a betting round stopped accepting actions.
type Settlement int

const (
	NotSettled Settlement = iota
	AllMatched
	LastSurvivor
)

func (s Settlement) String() string {
	return [...]string{"open", "all_matched", "last_survivor"}[s]
}

// Outcome describes an accepted betting-state change.
type Outcome struct {
	PlayerID    string
	Action      string
	Amount      int // Chips moved into the pot by this action
	Description string
	Settled     Settlement
}

// BettingRound tracks the seats that have acted since the last raise. A raise
// clears everyone but the raiser, reopening the action.
type BettingRound struct {
	acted map[string]bool
}

func newBettingRound() *BettingRound {
	return &BettingRound{acted: make(map[string]bool)}
}

// MarkActed marks a seat as having acted at the current price.
func (br *BettingRound) MarkActed(id string) {
	br.acted[id] = true
}

// Reopen leaves only the raiser marked.
func (br *BettingRound) Reopen(raiserID string) {
	clear(br.acted)
	br.acted[raiserID] = true
}

// HasActed reports whether id has acted since the last raise.
func (br *BettingRound) HasActed(id string) bool {
	return br.acted[id]
}

func (br *BettingRound) forget(id string) {
	delete(br.acted, id)
}

func (br *BettingRound) clone() *BettingRound {
	out := newBettingRound()
	for id := range br.acted {
		out.acted[id] = true
	}
	return out
}

// PlaceBet applies a betting action from the seat identified by playerID.
// Call amounts are computed here; any client-supplied amount for a call is
// ignored.
func (r *Room) PlaceBet(playerID string, action Action, amount int) (Outcome, error) {
	idx, p := r.find(playerID)
	if p == nil {
		return Outcome{}, Rejectf(ErrSeatInactive, "%s is not seated", playerID)
	}
	if r.phase != PhaseInHand {
		return Outcome{}, Rejectf(ErrInvalidPhase, "no betting in %s", r.phase)
	}
	if !p.IsActive() {
		return Outcome{}, Rejectf(ErrSeatInactive, "%s is %s", p.Name, p.Status)
	}
	if idx != r.turn {
		return Outcome{}, ErrNotYourTurn
	}

	moved, err := r.validateBet(p, action, amount)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{PlayerID: p.ID, Action: action.String(), Amount: moved}
	switch action {
	case Fold:
		p.Status = StatusFolded
		r.round.forget(p.ID)
		r.recomputeHighestBet()
		out.Description = fmt.Sprintf("%s folds", p.Name)
	case Check:
		r.round.MarkActed(p.ID)
		out.Description = fmt.Sprintf("%s checks", p.Name)
	case Call:
		p.contribute(moved)
		r.round.MarkActed(p.ID)
		out.Description = fmt.Sprintf("%s calls %d", p.Name, moved)
	case Bet:
		p.contribute(moved)
		r.highestBet = p.RoundBet
		r.round.Reopen(p.ID)
		out.Description = fmt.Sprintf("%s raises %d to %d", p.Name, moved, p.RoundBet)
	}
	r.lastAction = out.Description

	out.Settled = r.advanceFrom(idx)
	return out, nil
}

// validateBet returns the chips the action would move without changing state.
func (r *Room) validateBet(p *Player, action Action, amount int) (int, error) {
	switch action {
	case Fold:
		return 0, nil
	case Check:
		if p.RoundBet != r.highestBet {
			return 0, Rejectf(ErrInvalidAction, "cannot check facing %d, call %d or fold",
				r.highestBet, r.highestBet-p.RoundBet)
		}
		return 0, nil
	case Call:
		if r.highestBet <= p.RoundBet {
			return 0, Rejectf(ErrInvalidAction, "nothing to call")
		}
		return r.highestBet - p.RoundBet, nil
	case Bet:
		if amount <= 0 {
			return 0, Rejectf(ErrInvalidRaise, "amount must be positive, got %d", amount)
		}
		if r.opts.MaxBet > 0 && amount > r.opts.MaxBet {
			return 0, Rejectf(ErrInvalidRaise, "amount %d exceeds the %d limit", amount, r.opts.MaxBet)
		}
		if p.RoundBet+amount <= r.highestBet {
			return 0, Rejectf(ErrInvalidRaise, "%d+%d does not exceed the current bet of %d",
				p.RoundBet, amount, r.highestBet)
		}
		if amount > MaxPot-p.RoundBet || !r.potCanReach(p.RoundBet+amount) {
			return 0, Rejectf(ErrInvalidRaise, "amount %d would take the pot past %d", amount, MaxPot)
		}
		return amount, nil
	}
	return 0, Rejectf(ErrInvalidAction, "unknown action %d", action)
}

// potCanReach reports whether every active seat can match target without the
// pot passing MaxPot.
func (r *Room) potCanReach(target int) bool {
	room := MaxPot - r.Pot()
	for _, p := range r.players {
		if !p.IsActive() {
			continue
		}
		need := target - p.RoundBet
		if need <= 0 {
			continue
		}
		if need > room {
			return false
		}
		room -= need
	}
	return true
}

// advanceFrom settles the round if it is over, otherwise passes the turn to the
// next active seat after from.
func (r *Room) advanceFrom(from int) Settlement {
	if s := r.settlement(); s != NotSettled {
		r.settle(s)
		return s
	}
	r.turn = r.nextActive(from)
	return NotSettled
}

// settlement reports whether the open betting round is over.
func (r *Room) settlement() Settlement {
	active := 0
	matched := true
	for _, p := range r.players {
		if !p.IsActive() {
			continue
		}
		active++
		if p.RoundBet != r.highestBet || !r.round.HasActed(p.ID) {
			matched = false
		}
	}
	if active <= 1 {
		return LastSurvivor
	}
	if matched {
		return AllMatched
	}
	return NotSettled
}

func (r *Room) settle(s Settlement) {
	r.phase = PhaseShowdown
	r.turn = -1
	r.settled = s
}

// nextActive returns the first active seat after from in seating order,
// wrapping around, or -1 when no seat is active. from itself is considered last.
func (r *Room) nextActive(from int) int {
	n := len(r.players)
	if n == 0 {
		return -1
	}
	for i := 1; i <= n; i++ {
		j := ((from+i)%n + n) % n
		if r.players[j].IsActive() {
			return j
		}
	}
	return -1
}

func (r *Room) recomputeHighestBet() {
	highest := 0
	for _, p := range r.players {
		if p.IsActive() && p.RoundBet > highest {
			highest = p.RoundBet
		}
	}
	r.highestBet = highest
}

// deactivate takes the seat at idx out of the open betting round, moving the
// turn on as if the seat had folded.
func (r *Room) deactivate(idx int, status Status) Settlement {
	p := r.players[idx]
	p.Status = status
	r.round.forget(p.ID)
	r.recomputeHighestBet()
	if r.phase != PhaseInHand {
		return NotSettled
	}
	if r.turn == idx {
		return r.advanceFrom(idx)
	}
	if s := r.settlement(); s != NotSettled {
		r.settle(s)
		return s
	}
	return NotSettled
}
