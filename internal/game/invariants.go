package game

import (
	"errors"
	"fmt"
)

// CheckInvariants verifies the bookkeeping rules that must hold after every
// processed command. It returns all violations joined together.
func (r *Room) CheckInvariants() error {
	var errs []error

	dealers := 0
	highest := 0
	for _, p := range r.players {
		if p.IsDealer() {
			dealers++
		}
		if p.RoundBet < 0 || p.TotalBet < 0 {
			errs = append(errs, fmt.Errorf("%s has a negative contribution (%d/%d)", p.ID, p.RoundBet, p.TotalBet))
		}
		if p.TotalBet > MaxPot {
			errs = append(errs, fmt.Errorf("%s total bet %d exceeds %d", p.ID, p.TotalBet, MaxPot))
		}
		if p.RoundBet > p.TotalBet {
			errs = append(errs, fmt.Errorf("%s round bet %d exceeds total %d", p.ID, p.RoundBet, p.TotalBet))
		}
		if p.IsActive() && p.RoundBet > highest {
			highest = p.RoundBet
		}
	}
	if pot := r.Pot(); pot < 0 || pot > MaxPot {
		errs = append(errs, fmt.Errorf("pot %d outside 0..%d", pot, MaxPot))
	}
	if len(r.players) > 0 && dealers != 1 {
		errs = append(errs, fmt.Errorf("room has %d dealers", dealers))
	}
	if highest != r.highestBet {
		errs = append(errs, fmt.Errorf("highest bet %d, active maximum is %d", r.highestBet, highest))
	}
	if r.turn != -1 {
		if r.turn < 0 || r.turn >= len(r.players) {
			errs = append(errs, fmt.Errorf("turn index %d out of range", r.turn))
		} else if !r.players[r.turn].IsActive() {
			errs = append(errs, fmt.Errorf("turn index %d points at a %s seat", r.turn, r.players[r.turn].Status))
		}
	}
	if r.phase != PhaseInHand && r.turn != -1 {
		errs = append(errs, fmt.Errorf("turn index %d outside a hand", r.turn))
	}
	return errors.Join(errs...)
}
