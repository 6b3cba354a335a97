package protocol

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/dkeye/QuizRush/internal/domain"
)

// Server -> client kinds.
const (
	KindRoomJoined         Kind = "room_joined"
	KindPlayerJoined       Kind = "player_joined"
	KindPlayerLeft         Kind = "player_left"
	KindPlayerReadyChanged Kind = "player_ready_changed"
	KindAllPlayersReady    Kind = "all_players_ready"
	KindSettingsUpdated    Kind = "settings_updated"
	KindGameStarting       Kind = "game_starting"
	KindCountdown          Kind = "countdown"
	KindGameStarted        Kind = "game_started"
	KindGameState          Kind = "game_state"
	KindGameEnd            Kind = "game_end"
	KindGameReset          Kind = "game_reset"
	KindError              Kind = "error"
	KindPong               Kind = "pong"
)

// ServerMessage is implemented by every outbound variant.
type ServerMessage interface {
	Kind() Kind
}

type PlayerView struct {
	ID      domain.PlayerID `json:"id"`
	Name    string          `json:"name"`
	IsHost  bool            `json:"isHost"`
	IsReady bool            `json:"isReady"`
	Score   int             `json:"score"`
}

func NewPlayerView(p *domain.Player) PlayerView {
	return PlayerView{ID: p.ID, Name: p.Name, IsHost: p.IsHost, IsReady: p.IsReady, Score: p.Score}
}

// RoomView is the public projection of a room, also used by the discovery API.
type RoomView struct {
	ID          domain.RoomID   `json:"id"`
	Name        string          `json:"name"`
	PlayerCount int             `json:"playerCount"`
	MaxPlayers  int             `json:"maxPlayers"`
	HostName    string          `json:"hostName"`
	IsPrivate   bool            `json:"isPrivate"`
	Status      domain.Status   `json:"status"`
	Settings    domain.Settings `json:"settings"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// QuestionView hides Answer and Explanation until the question is revealed.
type QuestionView struct {
	ID          string   `json:"id,omitempty"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Category    string   `json:"category,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

func NewQuestionView(q domain.Question, revealed bool) QuestionView {
	v := QuestionView{
		ID:         q.ID,
		Question:   q.Prompt,
		Options:    q.Options,
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
	if revealed {
		v.Answer = q.Answer
		v.Explanation = q.Explanation
	}
	return v
}

// GameState is the full round engine snapshot. Answers is only filled once the
// current question is closed; Answered carries presence while it is open.
type GameState struct {
	QuestionIndex         int                        `json:"questionIndex"`
	TotalQuestions        int                        `json:"totalQuestions"`
	Questions             []QuestionView             `json:"questions"`
	Phase                 string                     `json:"phase"`
	Answered              map[domain.PlayerID]bool   `json:"answered"`
	Answers               map[domain.PlayerID]string `json:"answers,omitempty"`
	Scores                map[domain.PlayerID]int    `json:"scores"`
	QuestionTimeRemaining int                        `json:"questionTimeRemaining"`
	RevealTimeRemaining   int                        `json:"revealTimeRemaining"`
}

type RoomJoined struct {
	Room     RoomView        `json:"room"`
	Players  []PlayerView    `json:"players"`
	PlayerID domain.PlayerID `json:"playerId"`
}

type PlayerJoined struct {
	Player PlayerView `json:"player"`
	Room   RoomView   `json:"room"`
}

type PlayerLeft struct {
	PlayerID  domain.PlayerID `json:"playerId"`
	NewHostID domain.PlayerID `json:"newHostId,omitempty"`
	Room      RoomView        `json:"room"`
}

type PlayerReadyChanged struct {
	PlayerID domain.PlayerID `json:"playerId"`
	IsReady  bool            `json:"isReady"`
}

type AllPlayersReady struct {
	CanStart bool `json:"canStart"`
}

type SettingsUpdated struct {
	Settings   domain.Settings `json:"settings"`
	MaxPlayers int             `json:"maxPlayers"`
	Players    []PlayerView    `json:"players"`
}

type GameStarting struct {
	Countdown int `json:"countdown"`
}

type Countdown struct {
	Countdown int `json:"countdown"`
}

type GameStarted struct {
	Players  []PlayerView    `json:"players"`
	Settings domain.Settings `json:"settings"`
}

type GameStateMessage struct {
	State GameState `json:"state"`
}

// GameEnd carries the final standings, highest score first.
type GameEnd struct {
	Standings []PlayerView `json:"standings,omitempty"`
}

type GameReset struct {
	Room    RoomView     `json:"room"`
	Players []PlayerView `json:"players"`
}

type Chat struct {
	PlayerID   domain.PlayerID `json:"playerId"`
	PlayerName string          `json:"playerName"`
	Message    string          `json:"message"`
	Timestamp  time.Time       `json:"timestamp"`
}

type Error struct {
	Message string `json:"message"`
}

type Pong struct{}

func (RoomJoined) Kind() Kind         { return KindRoomJoined }
func (PlayerJoined) Kind() Kind       { return KindPlayerJoined }
func (PlayerLeft) Kind() Kind         { return KindPlayerLeft }
func (PlayerReadyChanged) Kind() Kind { return KindPlayerReadyChanged }
func (AllPlayersReady) Kind() Kind    { return KindAllPlayersReady }
func (SettingsUpdated) Kind() Kind    { return KindSettingsUpdated }
func (GameStarting) Kind() Kind       { return KindGameStarting }
func (Countdown) Kind() Kind          { return KindCountdown }
func (GameStarted) Kind() Kind        { return KindGameStarted }
func (GameStateMessage) Kind() Kind   { return KindGameState }
func (GameEnd) Kind() Kind            { return KindGameEnd }
func (GameReset) Kind() Kind          { return KindGameReset }
func (Chat) Kind() Kind               { return KindChatMessage }
func (Error) Kind() Kind              { return KindError }
func (Pong) Kind() Kind               { return KindPong }

// Encode marshals msg with its "type" tag as the first field.
func Encode(msg ServerMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(msg.Kind())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + len(tag) + 9)
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if rest := bytes.TrimPrefix(body, []byte("{")); len(rest) > 1 {
		buf.WriteByte(',')
		buf.Write(rest)
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}
