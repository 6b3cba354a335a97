// Package protocol defines the JSON messages exchanged over a participant's connection.
// Every message is an object tagged by its "type" field.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/QuizRush/internal/domain"
)

type Kind string

// Client -> server kinds.
const (
	KindJoinRoom       Kind = "join_room"
	KindLeaveRoom      Kind = "leave_room"
	KindPlayerReady    Kind = "player_ready"
	KindUpdateSettings Kind = "update_settings"
	KindStartGame      Kind = "start_game"
	KindAnswer         Kind = "answer"
	KindChatMessage    Kind = "chat_message"
	KindResetGame      Kind = "reset_game"
	KindPing           Kind = "ping"
)

var (
	ErrUnknownKind = errors.New("unknown message type")
	ErrMalformed   = errors.New("malformed message")
)

// ClientMessage is implemented by every inbound variant.
type ClientMessage interface {
	Kind() Kind
}

type JoinRoom struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	Password   string `json:"password,omitempty"`
}

type LeaveRoom struct{}

type PlayerReady struct {
	Ready bool `json:"ready"`
}

type UpdateSettings struct {
	Settings   *domain.SettingsPatch `json:"settings,omitempty"`
	MaxPlayers *int                  `json:"maxPlayers,omitempty"`
}

type StartGame struct {
	Questions []QuestionInput `json:"questions,omitempty"`
}

type Answer struct {
	Answer   string `json:"answer"`
	PlayerID string `json:"playerId"`
}

type ChatMessage struct {
	Message string `json:"message"`
}

type ResetGame struct{}

type Ping struct{}

func (JoinRoom) Kind() Kind       { return KindJoinRoom }
func (LeaveRoom) Kind() Kind      { return KindLeaveRoom }
func (PlayerReady) Kind() Kind    { return KindPlayerReady }
func (UpdateSettings) Kind() Kind { return KindUpdateSettings }
func (StartGame) Kind() Kind      { return KindStartGame }
func (Answer) Kind() Kind         { return KindAnswer }
func (ChatMessage) Kind() Kind    { return KindChatMessage }
func (ResetGame) Kind() Kind      { return KindResetGame }
func (Ping) Kind() Kind           { return KindPing }

// QuestionInput is an externally supplied question. The correct option is given either
// as its text (answer) or as its index (correctAnswer).
type QuestionInput struct {
	ID            string   `json:"id,omitempty"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Answer        string   `json:"answer,omitempty"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Category      string   `json:"category,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

// ToDomain normalises the input and validates it.
func (in QuestionInput) ToDomain() (domain.Question, error) {
	q := domain.Question{
		ID:          in.ID,
		Prompt:      in.Question,
		Options:     in.Options,
		Answer:      in.Answer,
		Explanation: in.Explanation,
		Category:    in.Category,
		Difficulty:  in.Difficulty,
	}
	if q.Answer == "" && in.CorrectAnswer != nil {
		i := *in.CorrectAnswer
		if i < 0 || i >= len(in.Options) {
			return domain.Question{}, domain.ErrInvalidQuestion
		}
		q.Answer = in.Options[i]
	}
	if err := q.Validate(); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// DomainQuestions converts the supplied list, failing on the first invalid entry.
func (m StartGame) DomainQuestions() ([]domain.Question, error) {
	if len(m.Questions) == 0 {
		return nil, nil
	}
	out := make([]domain.Question, 0, len(m.Questions))
	for i, in := range m.Questions {
		q, err := in.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// Decode parses one inbound frame into its variant. Unknown kinds and payloads
// missing required fields are rejected.
func Decode(data []byte) (ClientMessage, error) {
	var env struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var msg ClientMessage
	switch env.Type {
	case KindJoinRoom:
		var m JoinRoom
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		if strings.TrimSpace(m.RoomID) == "" {
			return nil, fmt.Errorf("%w: roomId is required", ErrMalformed)
		}
		msg = m
	case KindLeaveRoom:
		msg = LeaveRoom{}
	case KindPlayerReady:
		var m PlayerReady
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		msg = m
	case KindUpdateSettings:
		var m UpdateSettings
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.Settings == nil && m.MaxPlayers == nil {
			return nil, fmt.Errorf("%w: nothing to update", ErrMalformed)
		}
		msg = m
	case KindStartGame:
		var m StartGame
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		msg = m
	case KindAnswer:
		var m Answer
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.Answer == "" {
			return nil, fmt.Errorf("%w: answer is required", ErrMalformed)
		}
		msg = m
	case KindChatMessage:
		var m ChatMessage
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		msg = m
	case KindResetGame:
		msg = ResetGame{}
	case KindPing:
		msg = Ping{}
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	return msg, nil
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
