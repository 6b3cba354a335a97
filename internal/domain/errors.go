package domain

import "errors"

// Validation.
var (
	ErrNameEmpty       = errors.New("name is required")
	ErrNameTooLong     = errors.New("name too long")
	ErrInvalidCapacity = errors.New("max players must be between 2 and 8")
	ErrInvalidSettings = errors.New("invalid room settings")
	ErrInvalidQuestion = errors.New("invalid question")
	ErrPasswordMissing = errors.New("private room requires a password")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageTooLong  = errors.New("message too long")
)

// Authorization.
var (
	ErrNotHost     = errors.New("not host")
	ErrNotInRoom   = errors.New("not in a room")
	ErrIDMismatch  = errors.New("player id does not match connection")
	ErrRateLimited = errors.New("slow down")
)

// Capacity and state conflicts.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrWrongPassword     = errors.New("wrong password")
	ErrRoomFull          = errors.New("room is full")
	ErrGameInProgress    = errors.New("game in progress")
	ErrNotEnoughPlayers  = errors.New("not enough players")
	ErrNotAllReady       = errors.New("not all players are ready")
	ErrGameStarting      = errors.New("game is already starting")
	ErrGameNotFinished   = errors.New("game has not finished")
	ErrAlreadyInRoom     = errors.New("already in a room")
	ErrCapacityBelowSize = errors.New("max players below current player count")
	ErrNoQuestions       = errors.New("no questions available")
)
