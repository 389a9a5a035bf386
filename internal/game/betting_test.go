package game

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlind = 10

// newTestRoom seats a dealer with id "dealer" followed by the given players.
func newTestRoom(t *testing.T, playerIDs ...string) *Room {
	t.Helper()
	r := NewRoom("AB12", Options{BigBlind: testBlind, MaxSeats: 10})
	_, err := r.Seat("dealer", "Dana", RoleDealer)
	require.NoError(t, err)
	for _, id := range playerIDs {
		_, err := r.Seat(id, strings.ToUpper(id), RolePlayer)
		require.NoError(t, err)
	}
	return r
}

func startedRoom(t *testing.T, playerIDs ...string) *Room {
	t.Helper()
	r := newTestRoom(t, playerIDs...)
	require.NoError(t, r.StartHand("dealer"))
	requireInvariants(t, r)
	return r
}

func requireInvariants(t *testing.T, r *Room) {
	t.Helper()
	require.NoError(t, r.CheckInvariants())
	total := 0
	for _, p := range r.Players() {
		total += p.TotalBet
	}
	require.Equal(t, total, r.Pot())
}

func bet(t *testing.T, r *Room, id string, a Action, amount int) Outcome {
	t.Helper()
	out, err := r.PlaceBet(id, a, amount)
	require.NoError(t, err)
	requireInvariants(t, r)
	return out
}

// requireRejected asserts that fn fails with target and leaves the room untouched.
func requireRejected(t *testing.T, r *Room, target error, fn func() error) {
	t.Helper()
	before := r.Clone()
	err := fn()
	require.ErrorIs(t, err, target)
	require.Equal(t, before, r, "rejected command changed room state")
}

func turnID(t *testing.T, r *Room) string {
	t.Helper()
	p, ok := r.TurnPlayer()
	require.True(t, ok, "no seat holds the turn")
	return p.ID
}

func TestBasicRound(t *testing.T) {
	r := startedRoom(t, "p1", "p2")

	assert.Equal(t, "p1", r.BigBlindID())
	assert.Equal(t, testBlind, r.HighestBet())
	p1, _ := r.Player("p1")
	assert.Equal(t, testBlind, p1.RoundBet)
	assert.Equal(t, testBlind, p1.TotalBet)
	assert.Equal(t, 2, r.TurnIndex())

	out := bet(t, r, "p2", Call, 0)
	assert.Equal(t, testBlind, out.Amount)
	assert.Equal(t, NotSettled, out.Settled)
	assert.Equal(t, 2*testBlind, r.Pot())
	p2, _ := r.Player("p2")
	assert.Equal(t, r.HighestBet(), p2.RoundBet)
	assert.Equal(t, "dealer", turnID(t, r), "turn wraps to the dealer seat")

	bet(t, r, "dealer", Call, 0)
	assert.Equal(t, "p1", turnID(t, r), "big blind keeps the option")

	out = bet(t, r, "p1", Check, 0)
	assert.Equal(t, AllMatched, out.Settled)
	assert.Equal(t, PhaseShowdown, r.Phase())
	assert.Equal(t, -1, r.TurnIndex())
	assert.Equal(t, 3*testBlind, r.Pot())
}

func TestSingleSurvivor(t *testing.T) {
	r := startedRoom(t, "p1")
	assert.Equal(t, "dealer", turnID(t, r))

	out := bet(t, r, "dealer", Fold, 0)
	assert.Equal(t, LastSurvivor, out.Settled)
	assert.Equal(t, PhaseShowdown, r.Phase())
	assert.Equal(t, -1, r.TurnIndex())
	assert.Equal(t, testBlind, r.Pot())
	assert.Equal(t, 1, r.ActiveCount())

	err := r.NextRound("dealer")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestRaiseReopensAction(t *testing.T) {
	r := startedRoom(t, "p1", "p2")

	bet(t, r, "p2", Call, 0)
	bet(t, r, "dealer", Bet, 30)
	assert.Equal(t, 30, r.HighestBet())
	assert.Equal(t, "p1", turnID(t, r))

	out := bet(t, r, "p1", Call, 0)
	assert.Equal(t, 20, out.Amount)
	assert.Equal(t, NotSettled, out.Settled, "p2 matched the old price and must act again")
	assert.Equal(t, "p2", turnID(t, r))

	out = bet(t, r, "p2", Call, 0)
	assert.Equal(t, 20, out.Amount)
	assert.Equal(t, AllMatched, out.Settled)
	assert.Equal(t, 90, r.Pot())
}

func TestRaiseReopensActionAfterChecks(t *testing.T) {
	r := startedRoom(t, "p1", "p2")
	bet(t, r, "p2", Call, 0)
	bet(t, r, "dealer", Call, 0)
	bet(t, r, "p1", Check, 0)
	require.NoError(t, r.NextRound("dealer"))
	requireInvariants(t, r)

	assert.Equal(t, "p2", turnID(t, r))
	bet(t, r, "p2", Check, 0)
	bet(t, r, "dealer", Check, 0)
	bet(t, r, "p1", Bet, 20)
	out := bet(t, r, "p2", Call, 0)
	assert.Equal(t, NotSettled, out.Settled)
	assert.Equal(t, "dealer", turnID(t, r), "checked seat must respond to the raise")

	out = bet(t, r, "dealer", Call, 0)
	assert.Equal(t, AllMatched, out.Settled)
}

func TestInvalidRaise(t *testing.T) {
	r := startedRoom(t, "p1", "p2")
	bet(t, r, "p2", Call, 0)
	bet(t, r, "dealer", Call, 0)
	bet(t, r, "p1", Check, 0)
	require.NoError(t, r.NextRound("dealer"))

	bet(t, r, "p2", Bet, 50)
	require.Equal(t, 50, r.HighestBet())
	d, _ := r.Player("dealer")
	require.Equal(t, 0, d.RoundBet)

	requireRejected(t, r, ErrInvalidRaise, func() error {
		_, err := r.PlaceBet("dealer", Bet, 40)
		return err
	})
	requireRejected(t, r, ErrInvalidRaise, func() error {
		_, err := r.PlaceBet("dealer", Bet, 50)
		return err
	})
	requireRejected(t, r, ErrInvalidRaise, func() error {
		_, err := r.PlaceBet("dealer", Bet, 0)
		return err
	})
	requireRejected(t, r, ErrInvalidRaise, func() error {
		_, err := r.PlaceBet("dealer", Bet, -5)
		return err
	})
}

func TestMaxBet(t *testing.T) {
	r := NewRoom("CAP1", Options{BigBlind: 10, MaxSeats: 4, MaxBet: 100})
	_, _ = r.Seat("dealer", "Dana", RoleDealer)
	_, _ = r.Seat("p1", "P1", RolePlayer)
	require.NoError(t, r.StartHand("dealer"))

	requireRejected(t, r, ErrInvalidRaise, func() error {
		_, err := r.PlaceBet("dealer", Bet, 101)
		return err
	})
	bet(t, r, "dealer", Bet, 100)
}

func TestBetCannotOverflowPot(t *testing.T) {
	r := startedRoom(t, "p1", "p2")

	for _, amount := range []int{math.MaxInt - 100, math.MaxInt, MaxPot} {
		requireRejected(t, r, ErrInvalidRaise, func() error {
			_, err := r.PlaceBet("p2", Bet, amount)
			return err
		})
	}

	// Pot 10 before the bet; p2 and the dealer each put in x and p1 adds x-10.
	largest := MaxPot / 3
	requireRejected(t, r, ErrInvalidRaise, func() error {
		_, err := r.PlaceBet("p2", Bet, largest+1)
		return err
	})
	bet(t, r, "p2", Bet, largest)
	bet(t, r, "dealer", Call, 0)
	out := bet(t, r, "p1", Call, 0)
	assert.Equal(t, AllMatched, out.Settled)
	assert.Equal(t, 3*largest, r.Pot())
	assert.Positive(t, r.Pot())
}

func TestCallIgnoresClientAmount(t *testing.T) {
	r := startedRoom(t, "p1", "p2")
	bet(t, r, "p2", Call, 0)
	bet(t, r, "dealer", Call, 0)
	bet(t, r, "p1", Check, 0)
	require.NoError(t, r.NextRound("dealer"))

	bet(t, r, "p2", Bet, 30)
	potBefore := r.Pot()

	out := bet(t, r, "dealer", Call, 0)
	assert.Equal(t, 30, out.Amount)
	assert.Equal(t, potBefore+30, r.Pot())

	out = bet(t, r, "p1", Call, 9999)
	assert.Equal(t, 30, out.Amount)
	assert.Equal(t, potBefore+60, r.Pot())
}

func TestBetValidation(t *testing.T) {
	r := startedRoom(t, "p1", "p2")

	tests := []struct {
		name   string
		player string
		action Action
		amount int
		want   error
	}{
		{"out of turn", "p1", Call, 0, ErrNotYourTurn},
		{"dealer out of turn", "dealer", Check, 0, ErrNotYourTurn},
		{"check facing a bet", "p2", Check, 0, ErrInvalidAction},
		{"unknown seat", "ghost", Call, 0, ErrSeatInactive},
		{"raise to the current bet", "p2", Bet, testBlind, ErrInvalidRaise},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireRejected(t, r, tt.want, func() error {
				_, err := r.PlaceBet(tt.player, tt.action, tt.amount)
				return err
			})
		})
	}

	t.Run("call with nothing to call", func(t *testing.T) {
		r := startedRoom(t, "p1")
		bet(t, r, "dealer", Call, 0)
		requireRejected(t, r, ErrInvalidAction, func() error {
			_, err := r.PlaceBet("p1", Call, 0)
			return err
		})
	})

	t.Run("folded seat", func(t *testing.T) {
		r := startedRoom(t, "p1", "p2")
		bet(t, r, "p2", Fold, 0)
		requireRejected(t, r, ErrSeatInactive, func() error {
			_, err := r.PlaceBet("p2", Call, 0)
			return err
		})
	})

	t.Run("betting outside a hand", func(t *testing.T) {
		r := newTestRoom(t, "p1")
		requireRejected(t, r, ErrInvalidPhase, func() error {
			_, err := r.PlaceBet("p1", Check, 0)
			return err
		})
	})
}

func TestFoldedSeatNeverGetsTurn(t *testing.T) {
	r := startedRoom(t, "p1", "p2", "p3")
	// seats: dealer, p1 (bb), p2, p3
	assert.Equal(t, "p2", turnID(t, r))
	bet(t, r, "p2", Fold, 0)
	assert.Equal(t, "p3", turnID(t, r))
	bet(t, r, "p3", Bet, 40)
	bet(t, r, "dealer", Call, 0)
	assert.Equal(t, "p1", turnID(t, r))
	bet(t, r, "p1", Bet, 50)
	assert.Equal(t, "p3", turnID(t, r), "folded p2 is skipped")
	bet(t, r, "p3", Call, 0)
	assert.Equal(t, "dealer", turnID(t, r))
	out := bet(t, r, "dealer", Call, 0)
	assert.Equal(t, AllMatched, out.Settled)
}

func TestFoldRecomputesHighestBet(t *testing.T) {
	r := startedRoom(t, "p1", "p2")
	bet(t, r, "p2", Bet, 40) // p2 at 40
	bet(t, r, "dealer", Fold, 0)
	assert.Equal(t, 40, r.HighestBet())
	bet(t, r, "p1", Call, 0)
	assert.Equal(t, PhaseShowdown, r.Phase())
}

func TestParseAction(t *testing.T) {
	tests := map[string]Action{"fold": Fold, "CHECK": Check, " call ": Call, "bet": Bet, "raise": Bet}
	for in, want := range tests {
		got, err := ParseAction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAction("allin")
	assert.ErrorIs(t, err, ErrInvalidAction)
}
