package game

import (
	"fmt"
	"strings"
)

// BoardSize is the number of community card slots.
const BoardSize = 5

// Card is a dealer-entered community card. Only its shape is validated.
type Card struct {
	Rank string
	Suit string
}

// Board holds the five community card slots; nil means face down.
type Board [BoardSize]*Card

var validRanks = map[string]string{
	"2": "2", "3": "3", "4": "4", "5": "5", "6": "6", "7": "7", "8": "8", "9": "9",
	"10": "10", "T": "10", "J": "J", "Q": "Q", "K": "K", "A": "A",
}

var validSuits = map[string]string{
	"♠": "♠", "S": "♠", "SPADES": "♠",
	"♥": "♥", "H": "♥", "HEARTS": "♥",
	"♦": "♦", "D": "♦", "DIAMONDS": "♦",
	"♣": "♣", "C": "♣", "CLUBS": "♣",
}

// ParseCard normalizes a rank and suit into a Card. Letter suits (s, h, d, c)
// are converted to their symbols and "T" to "10".
func ParseCard(rank, suit string) (Card, error) {
	r, ok := validRanks[strings.ToUpper(strings.TrimSpace(rank))]
	if !ok {
		return Card{}, Rejectf(ErrInvalidAction, "unknown rank %q", rank)
	}
	s, ok := validSuits[strings.ToUpper(strings.TrimSpace(suit))]
	if !ok {
		return Card{}, Rejectf(ErrInvalidAction, "unknown suit %q", suit)
	}
	return Card{Rank: r, Suit: s}, nil
}

func (c Card) String() string {
	return c.Rank + c.Suit
}

// String renders the board with "??" for face-down slots.
func (b Board) String() string {
	parts := make([]string, 0, BoardSize)
	for _, c := range b {
		if c == nil {
			parts = append(parts, "??")
			continue
		}
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, " "))
}

// Revealed returns how many slots hold a card.
func (b Board) Revealed() int {
	n := 0
	for _, c := range b {
		if c != nil {
			n++
		}
	}
	return n
}

func (b Board) clone() Board {
	var out Board
	for i, c := range b {
		if c != nil {
			cc := *c
			out[i] = &cc
		}
	}
	return out
}
