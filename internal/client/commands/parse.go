package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sender is the set of room commands a REPL line can trigger.
type Sender interface {
	CreateRoom(name string) error
	JoinRoom(code, name string) error
	StartGame() error
	PlaceBet(action string, amount int) error
	UpdateCard(slot int, rank, suit string) error
	EndGame(winnerID string) error
	KickPlayer(targetID string) error
	ResetGame() error
	NextRound() error
	LeaveRoom() error
}

// Action sends one parsed command.
type Action func(Sender) error

var (
	// ErrQuit is returned for "quit" and "exit".
	ErrQuit = errors.New("quit")
	// ErrHelp is returned for "help" and "?".
	ErrHelp = errors.New("help")
	// ErrEmpty is returned for blank lines.
	ErrEmpty = errors.New("empty line")
)

// Usage lists the commands understood by ParseLine.
const Usage = `Commands:
  create [name]              create a room and deal as its dealer
  join <code> [name]         join a room by its code
  start                      deal a new hand (dealer)
  check | call | fold        act on your turn
  bet <amount>               bet or raise to a total of <amount> this round
  card <1-5> <card>          set a board card, e.g. "card 1 Qh" or "card 4 clear" (dealer)
  next                       open another betting round (dealer)
  end <player>               declare the winner and award the pot (dealer)
  kick <player>              remove a player from the room (dealer)
  reset                      abandon the hand and return to the lobby (dealer)
  leave                      leave the room
  help                       show this help
  quit                       disconnect`

// ParseLine turns one line of input into an Action. defaultName fills in the
// name for create and join; resolve maps a player name to its ID for end and
// kick and may be nil.
func ParseLine(line, defaultName string, resolve func(string) string) (Action, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrEmpty
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	if resolve == nil {
		resolve = func(s string) string { return s }
	}

	nameFrom := func(args []string) (string, error) {
		if len(args) > 0 {
			return strings.Join(args, " "), nil
		}
		if defaultName == "" {
			return "", fmt.Errorf("%s needs a name", cmd)
		}
		return defaultName, nil
	}

	switch cmd {
	case "quit", "exit":
		return nil, ErrQuit
	case "help", "?":
		return nil, ErrHelp

	case "create":
		name, err := nameFrom(args)
		if err != nil {
			return nil, err
		}
		return func(s Sender) error { return s.CreateRoom(name) }, nil

	case "join":
		if len(args) == 0 {
			return nil, fmt.Errorf("usage: join <code> [name]")
		}
		code := strings.ToUpper(args[0])
		name, err := nameFrom(args[1:])
		if err != nil {
			return nil, err
		}
		return func(s Sender) error { return s.JoinRoom(code, name) }, nil

	case "start", "deal":
		return func(s Sender) error { return s.StartGame() }, nil

	case "check", "call", "fold":
		if len(args) != 0 {
			return nil, fmt.Errorf("%s takes no arguments", cmd)
		}
		return func(s Sender) error { return s.PlaceBet(cmd, 0) }, nil

	case "bet", "raise":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: %s <amount>", cmd)
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("invalid amount %q", args[0])
		}
		return func(s Sender) error { return s.PlaceBet("bet", amount) }, nil

	case "card":
		return parseCard(args)

	case "next":
		return func(s Sender) error { return s.NextRound() }, nil

	case "end", "win":
		if len(args) == 0 {
			return nil, fmt.Errorf("usage: end <player>")
		}
		id := resolve(strings.Join(args, " "))
		return func(s Sender) error { return s.EndGame(id) }, nil

	case "kick":
		if len(args) == 0 {
			return nil, fmt.Errorf("usage: kick <player>")
		}
		id := resolve(strings.Join(args, " "))
		return func(s Sender) error { return s.KickPlayer(id) }, nil

	case "reset":
		return func(s Sender) error { return s.ResetGame() }, nil

	case "leave":
		return func(s Sender) error { return s.LeaveRoom() }, nil
	}

	return nil, fmt.Errorf("unknown command %q (try help)", cmd)
}

// parseCard accepts "<slot> <rank><suit>", "<slot> <rank> <suit>" and
// "<slot> clear". Slots are numbered from 1 for people and sent 0-based.
func parseCard(args []string) (Action, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, fmt.Errorf("usage: card <1-5> <card>")
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid slot %q", args[0])
	}
	slot--

	var rank, suit string
	switch {
	case len(args) == 3:
		rank, suit = args[1], args[2]
	case strings.EqualFold(args[1], "clear") || args[1] == "-":
	default:
		card := args[1]
		_, size := utf8.DecodeLastRuneInString(card)
		if size == len(card) {
			return nil, fmt.Errorf("invalid card %q", card)
		}
		rank, suit = card[:len(card)-size], card[len(card)-size:]
	}

	return func(s Sender) error { return s.UpdateCard(slot, rank, suit) }, nil
}
