// Package domain contains game entities and their validation rules, without transport or timing logic.
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxPlayerNameLen = 32

type PlayerID string

// NewPlayerID issues a fresh participant identity.
func NewPlayerID() PlayerID { return PlayerID(uuid.NewString()) }

// Player is one participant's game-visible state.
type Player struct {
	ID      PlayerID
	Name    string
	IsHost  bool
	IsReady bool
	Score   int
}

// NewPlayer validates the display name and issues the player with the given id.
// An empty id gets a freshly generated one.
func NewPlayer(id PlayerID, name string) (*Player, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = NewPlayerID()
	}
	return &Player{ID: id, Name: name}, nil
}

// NormalizeName trims the name and enforces the length rules.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxPlayerNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}
