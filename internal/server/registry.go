package server

import (
	"context"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/homegame/internal/game"
	"github.com/lox/homegame/internal/roomcode"
)

const maxCodeAttempts = 32

// RoomRegistry maps room codes to their coordinators. Its lock guards the map
// only; room state belongs to each coordinator's goroutine.
type RoomRegistry struct {
	mu     sync.RWMutex
	rooms  map[string]*Coordinator
	cfg    *RoomSettings
	codes  *roomcode.Generator
	clock  quartz.Clock
	logger *log.Logger
}

// NewRoomRegistry creates an empty registry.
func NewRoomRegistry(cfg *RoomSettings, codes *roomcode.Generator, clock quartz.Clock, logger *log.Logger) *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]*Coordinator),
		cfg:    cfg,
		codes:  codes,
		clock:  clock,
		logger: logger.WithPrefix("rooms"),
	}
}

// CreateRoom opens a new room with m seated as its dealer and returns the code.
func (r *RoomRegistry) CreateRoom(ctx context.Context, m Member, name, requestID string) (string, error) {
	name, err := r.validateName(name)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	if len(r.rooms) >= r.cfg.MaxRooms {
		r.mu.Unlock()
		return "", game.Rejectf(game.ErrCapacityExceeded, "server is hosting its limit of %d rooms", r.cfg.MaxRooms)
	}
	code, err := r.codes.Unique(func(c string) bool {
		_, taken := r.rooms[c]
		return taken
	}, maxCodeAttempts)
	if err != nil {
		r.mu.Unlock()
		return "", game.Rejectf(game.ErrCapacityExceeded, "%v", err)
	}
	coord := newCoordinator(code, r.cfg.RoomOptions(), r.cfg.QueueSize, r.clock, r.logger, r.remove)
	r.rooms[code] = coord
	count := len(r.rooms)
	r.mu.Unlock()

	coord.start()
	if err := coord.Seat(ctx, m, name, game.RoleDealer, requestID); err != nil {
		_ = coord.Close(context.WithoutCancel(ctx), "the dealer could not be seated")
		return "", err
	}

	r.logger.Info("Room created", "room", code, "dealer", name, "rooms", count)
	return code, nil
}

// JoinRoom seats m as a player in the room with the given code.
func (r *RoomRegistry) JoinRoom(ctx context.Context, code string, m Member, name, requestID string) error {
	name, err := r.validateName(name)
	if err != nil {
		return err
	}
	if err := roomcode.Validate(code, r.codes.Length()); err != nil {
		return game.Rejectf(game.ErrRoomNotFound, "no room with code %q: %v", code, err)
	}
	coord, err := r.Lookup(code)
	if err != nil {
		return err
	}
	return coord.Seat(ctx, m, name, game.RolePlayer, requestID)
}

// Lookup returns the coordinator for code. Codes are case-sensitive.
func (r *RoomRegistry) Lookup(code string) (*Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coord, ok := r.rooms[code]
	if !ok {
		return nil, game.Rejectf(game.ErrRoomNotFound, "no room with code %q", code)
	}
	return coord, nil
}

// ListRooms returns a summary of every open room ordered by code.
func (r *RoomRegistry) ListRooms() []RoomSummary {
	r.mu.RLock()
	rooms := make([]RoomSummary, 0, len(r.rooms))
	for _, coord := range r.rooms {
		rooms = append(rooms, coord.Summary())
	}
	r.mu.RUnlock()

	slices.SortFunc(rooms, func(a, b RoomSummary) int {
		return strings.Compare(a.Code, b.Code)
	})
	return rooms
}

// Len returns the number of open rooms.
func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *RoomRegistry) remove(code string) {
	r.mu.Lock()
	delete(r.rooms, code)
	count := len(r.rooms)
	r.mu.Unlock()

	r.logger.Info("Room removed", "room", code, "rooms", count)
}

func (r *RoomRegistry) snapshot() []*Coordinator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coords := make([]*Coordinator, 0, len(r.rooms))
	for _, coord := range r.rooms {
		coords = append(coords, coord)
	}
	return coords
}

// StartReaper begins closing idle rooms every reap interval until ctx ends.
func (r *RoomRegistry) StartReaper(ctx context.Context) quartz.Waiter {
	return r.clock.TickerFunc(ctx, r.cfg.ReapIntervalDuration(), func() error {
		r.Reap(ctx)
		return nil
	}, "reaper")
}

// RunReaper runs the idle reaper and blocks until ctx ends.
func (r *RoomRegistry) RunReaper(ctx context.Context) error {
	return r.StartReaper(ctx).Wait()
}

// Reap closes every room that has not processed a command within the idle
// timeout and returns how many it closed.
func (r *RoomRegistry) Reap(ctx context.Context) int {
	idle := r.cfg.IdleTimeoutDuration()
	if idle <= 0 {
		return 0
	}

	now := r.clock.Now()
	closed := 0
	for _, coord := range r.snapshot() {
		if now.Sub(coord.LastActive()) < idle {
			continue
		}
		if err := coord.Close(ctx, "idle for "+idle.String()); err != nil {
			r.logger.Debug("Failed to close idle room", "room", coord.Code(), "error", err)
			continue
		}
		closed++
	}
	if closed > 0 {
		r.logger.Info("Reaped idle rooms", "closed", closed, "rooms", r.Len())
	}
	return closed
}

// CloseAll closes every open room.
func (r *RoomRegistry) CloseAll(ctx context.Context, reason string) {
	for _, coord := range r.snapshot() {
		if err := coord.Close(ctx, reason); err != nil {
			r.logger.Debug("Failed to close room", "room", coord.Code(), "error", err)
		}
	}
}

func (r *RoomRegistry) validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return "", game.Rejectf(game.ErrInvalidAction, "a name is required")
	}
	if n > r.cfg.MaxNameLength {
		return "", game.Rejectf(game.ErrInvalidAction, "names are limited to %d characters", r.cfg.MaxNameLength)
	}
	return name, nil
}
