package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinCapacity = 2
	MaxCapacity = 8

	MaxRoomNameLen   = 48
	MaxQuestionCount = 50
)

// passwordCost is a variable so tests can lower it.
var passwordCost = bcrypt.DefaultCost

type (
	RoomID     string
	Visibility string
	Status     string
)

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

const (
	StatusWaiting  Status = "waiting"
	StatusStarting Status = "starting"
	StatusPlaying  Status = "playing"
	StatusFinal    Status = "final"
)

func NewRoomID() RoomID { return RoomID(uuid.NewString()) }

type Settings struct {
	Difficulty    string `json:"difficulty" yaml:"difficulty"`
	Category      string `json:"category" yaml:"category"`
	QuestionCount int    `json:"questionCount" yaml:"questionCount"`
}

func DefaultSettings() Settings {
	return Settings{Difficulty: "medium", Category: "all", QuestionCount: 10}
}

// SettingsPatch carries only the fields a host wants to change.
type SettingsPatch struct {
	Difficulty    *string `json:"difficulty,omitempty"`
	Category      *string `json:"category,omitempty"`
	QuestionCount *int    `json:"questionCount,omitempty"`
}

func (s Settings) Validate() error {
	switch s.Difficulty {
	case "easy", "medium", "hard", "mixed":
	default:
		return ErrInvalidSettings
	}
	if s.Category == "" {
		return ErrInvalidSettings
	}
	if s.QuestionCount < 1 || s.QuestionCount > MaxQuestionCount {
		return ErrInvalidSettings
	}
	return nil
}

// Apply returns a copy of s with the patch merged in.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.Difficulty != nil {
		s.Difficulty = *p.Difficulty
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.QuestionCount != nil {
		s.QuestionCount = *p.QuestionCount
	}
	return s
}

func ValidateCapacity(n int) error {
	if n < MinCapacity || n > MaxCapacity {
		return ErrInvalidCapacity
	}
	return nil
}

// RoomConfig is what a create request asks for.
type RoomConfig struct {
	Name       string
	HostName   string
	Private    bool
	Password   string
	MaxPlayers int
	Settings   Settings
}

// Room is room metadata only. Membership and game state live in core.
type Room struct {
	ID           RoomID
	Name         string
	HostName     string
	Visibility   Visibility
	passwordHash []byte
	Capacity     int
	Settings     Settings
	Status       Status
	CreatedAt    time.Time
}

// NewRoom validates cfg and builds the metadata, hashing the password of private rooms.
func NewRoom(cfg RoomConfig) (*Room, error) {
	name, err := normalizeRoomName(cfg.Name)
	if err != nil {
		return nil, err
	}
	if err := ValidateCapacity(cfg.MaxPlayers); err != nil {
		return nil, err
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	r := &Room{
		ID:         NewRoomID(),
		Name:       name,
		HostName:   cfg.HostName,
		Visibility: Public,
		Capacity:   cfg.MaxPlayers,
		Settings:   cfg.Settings,
		Status:     StatusWaiting,
		CreatedAt:  time.Now().UTC(),
	}
	if cfg.Private {
		if cfg.Password == "" {
			return nil, ErrPasswordMissing
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), passwordCost)
		if err != nil {
			return nil, err
		}
		r.Visibility = Private
		r.passwordHash = hash
	}
	return r, nil
}

func (r *Room) IsPrivate() bool { return r.Visibility == Private }

// CheckPassword is a no-op for public rooms.
func (r *Room) CheckPassword(password string) error {
	if !r.IsPrivate() {
		return nil
	}
	if bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)) != nil {
		return ErrWrongPassword
	}
	return nil
}

func normalizeRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}
