package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/QuizRush/internal/domain"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ClientMessage
	}{
		{"join", `{"type":"join_room","roomId":"r1","playerName":"alice","password":"pw"}`,
			JoinRoom{RoomID: "r1", PlayerName: "alice", Password: "pw"}},
		{"leave", `{"type":"leave_room"}`, LeaveRoom{}},
		{"ready", `{"type":"player_ready","ready":true}`, PlayerReady{Ready: true}},
		{"answer", `{"type":"answer","answer":"4","playerId":"p1"}`, Answer{Answer: "4", PlayerID: "p1"}},
		{"chat", `{"type":"chat_message","message":"hi"}`, ChatMessage{Message: "hi"}},
		{"start", `{"type":"start_game"}`, StartGame{}},
		{"reset", `{"type":"reset_game"}`, ResetGame{}},
		{"ping", `{"type":"ping"}`, Ping{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeUpdateSettings(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"update_settings","settings":{"difficulty":"hard"},"maxPlayers":6}`))
	require.NoError(t, err)
	m := msg.(UpdateSettings)
	require.NotNil(t, m.Settings)
	require.NotNil(t, m.Settings.Difficulty)
	assert.Equal(t, "hard", *m.Settings.Difficulty)
	assert.Nil(t, m.Settings.QuestionCount)
	require.NotNil(t, m.MaxPlayers)
	assert.Equal(t, 6, *m.MaxPlayers)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
	}{
		{"not json", `{"type":`, ErrMalformed},
		{"no type", `{"roomId":"x"}`, ErrMalformed},
		{"unknown", `{"type":"fly"}`, ErrUnknownKind},
		{"join without room", `{"type":"join_room","playerName":"a"}`, ErrMalformed},
		{"empty answer", `{"type":"answer","playerId":"p"}`, ErrMalformed},
		{"empty settings", `{"type":"update_settings"}`, ErrMalformed},
		{"wrong field type", `{"type":"player_ready","ready":"yes"}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestStartGameQuestions(t *testing.T) {
	idx := 1
	m := StartGame{Questions: []QuestionInput{
		{Question: "2+2?", Options: []string{"3", "4"}, Answer: "4"},
		{Question: "Capital of France?", Options: []string{"Rome", "Paris"}, CorrectAnswer: &idx},
	}}
	qs, err := m.DomainQuestions()
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "4", qs[0].Answer)
	assert.Equal(t, "Paris", qs[1].Answer)

	out := 7
	m.Questions[1].CorrectAnswer = &out
	_, err = m.DomainQuestions()
	assert.ErrorIs(t, err, domain.ErrInvalidQuestion)

	qs, err = StartGame{}.DomainQuestions()
	assert.NoError(t, err)
	assert.Nil(t, qs)
}

func TestEncode(t *testing.T) {
	b, err := Encode(Pong{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(b))

	b, err = Encode(PlayerReadyChanged{PlayerID: "p1", IsReady: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"player_ready_changed","playerId":"p1","isReady":true}`, string(b))

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b, err = Encode(Chat{PlayerID: "p1", PlayerName: "alice", Message: "hi", Timestamp: ts})
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "chat_message", got["type"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["timestamp"])
}

func TestQuestionViewHidesAnswer(t *testing.T) {
	q := domain.Question{Prompt: "?", Options: []string{"a", "b"}, Answer: "a", Explanation: "because"}
	hidden := NewQuestionView(q, false)
	assert.Empty(t, hidden.Answer)
	assert.Empty(t, hidden.Explanation)
	shown := NewQuestionView(q, true)
	assert.Equal(t, "a", shown.Answer)
	assert.Equal(t, "because", shown.Explanation)
}
