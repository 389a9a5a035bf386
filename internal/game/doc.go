// Package game implements the room state machine and betting-round engine for a
// dealer-assisted home poker game.
//
// The main type is Room, which holds the seating order, the dealer, the five
// community card slots and the state of the current hand. Cards are entered by
// the dealer and hands are decided by the dealer; the package only enforces
// betting mechanics and chip bookkeeping.
//
// # Basic Usage
//
//	r := game.NewRoom("AB12", game.DefaultOptions())
//	_, _ = r.Seat("d1", "Dana", game.RoleDealer)
//	_, _ = r.Seat("p1", "Alex", game.RolePlayer)
//	_, _ = r.Seat("p2", "Sam", game.RolePlayer)
//	_ = r.StartHand("d1")
//	out, err := r.PlaceBet("p2", game.Call, 0)
//
// # Phases
//
// A room cycles Lobby → InHand → Showdown → Lobby. A betting round that settles
// moves the room to Showdown; the dealer may open another round with NextRound,
// declare a winner with EndHand, and return to the lobby with Reset.
//
// # Rejections
//
// Every method validates fully before mutating. A returned *Error means the room
// is exactly as it was before the call.
//
// Room is not safe for concurrent use. Callers serialize access per room.
package game
