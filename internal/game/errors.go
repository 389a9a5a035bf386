package game

import (
	"errors"
	"fmt"
)

// Code identifies a rejection category. Codes are sent to clients verbatim.
type Code string

const (
	CodeRoomNotFound     Code = "room_not_found"
	CodeRoomFull         Code = "room_full"
	CodeInvalidPhase     Code = "invalid_phase"
	CodeUnauthorized     Code = "unauthorized"
	CodeNotYourTurn      Code = "not_your_turn"
	CodeInvalidRaise     Code = "invalid_raise"
	CodeSeatInactive     Code = "seat_inactive"
	CodeCapacityExceeded Code = "capacity_exceeded"
	CodeInvalidAction    Code = "invalid_action"
	CodePlayerNotFound   Code = "player_not_found"
	CodeAlreadyInRoom    Code = "already_in_room"
	CodeInternal         Code = "internal"
)

// Error is a recoverable rejection of a single command.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, ErrNotYourTurn) holds for any not-your-turn rejection.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrRoomNotFound     = &Error{Code: CodeRoomNotFound, Message: "room not found"}
	ErrRoomFull         = &Error{Code: CodeRoomFull, Message: "room is full"}
	ErrInvalidPhase     = &Error{Code: CodeInvalidPhase, Message: "action not allowed in this phase"}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized, Message: "only the dealer can do that"}
	ErrNotYourTurn      = &Error{Code: CodeNotYourTurn, Message: "not your turn"}
	ErrInvalidRaise     = &Error{Code: CodeInvalidRaise, Message: "invalid raise amount"}
	ErrSeatInactive     = &Error{Code: CodeSeatInactive, Message: "seat is not active"}
	ErrCapacityExceeded = &Error{Code: CodeCapacityExceeded, Message: "server room capacity reached"}
	ErrInvalidAction    = &Error{Code: CodeInvalidAction, Message: "invalid action"}
	ErrPlayerNotFound   = &Error{Code: CodePlayerNotFound, Message: "player not found"}
	ErrAlreadyInRoom    = &Error{Code: CodeAlreadyInRoom, Message: "connection already belongs to a room"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
)

// Rejectf returns a rejection carrying the code of base and a formatted message.
func Rejectf(base *Error, format string, args ...any) error {
	return &Error{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the rejection code carried by err, or CodeInternal when err is
// not a rejection.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
