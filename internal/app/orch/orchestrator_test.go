package orch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/core"
	"github.com/dkeye/QuizRush/internal/domain"
)

type nopConn struct{ closed bool }

func (c *nopConn) TrySend(core.Frame) error { return nil }
func (c *nopConn) Close()                   { c.closed = true }

func setup(t *testing.T) (*Orchestrator, *core.Room) {
	t.Helper()
	o := &Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomRegistry(core.RoomOptions{}, 0, nil),
	}
	room, _, err := o.Rooms.Create(domain.RoomConfig{
		Name: "quiz", HostName: "a", MaxPlayers: 4, Settings: domain.DefaultSettings(),
	})
	require.NoError(t, err)
	return o, room
}

func TestJoinAndLeave(t *testing.T) {
	o, room := setup(t)
	o.Registry.BindSignal("s1", &nopConn{}, nil)
	o.Registry.BindSignal("s2", &nopConn{}, nil)

	_, p1, err := o.Join("s1", room.ID(), "alice", "")
	require.NoError(t, err)
	_, _, err = o.Join("s2", room.ID(), "bob", "")
	require.NoError(t, err)
	assert.Equal(t, 2, room.MemberCount())

	got, pid, err := o.RoomFor("s1")
	require.NoError(t, err)
	assert.Same(t, room, got)
	assert.Equal(t, p1, pid)

	_, _, err = o.Join("s1", room.ID(), "again", "")
	assert.ErrorIs(t, err, domain.ErrAlreadyInRoom)

	o.Leave("s1")
	assert.Equal(t, 1, room.MemberCount())
	_, _, err = o.RoomFor("s1")
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
	o.Leave("s1")

	// the connection may join again after leaving
	_, _, err = o.Join("s1", room.ID(), "alice", "")
	assert.NoError(t, err)
}

func TestJoinErrors(t *testing.T) {
	o, room := setup(t)

	_, _, err := o.Join("ghost", room.ID(), "alice", "")
	assert.ErrorIs(t, err, domain.ErrNotInRoom)

	o.Registry.BindSignal("s1", &nopConn{}, nil)
	_, _, err = o.Join("s1", "missing", "alice", "")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, _, err = o.Join("s1", room.ID(), "  ", "")
	assert.ErrorIs(t, err, domain.ErrNameEmpty)
	_, _, ok := o.Registry.RoomOf("s1")
	assert.False(t, ok)
}

func TestDisconnectRemovesRoomWhenLast(t *testing.T) {
	o, room := setup(t)
	o.Registry.BindSignal("s1", &nopConn{}, nil)
	_, _, err := o.Join("s1", room.ID(), "alice", "")
	require.NoError(t, err)

	o.OnDisconnect("s1")

	assert.Zero(t, o.Registry.Len())
	_, ok := o.Rooms.Get(room.ID())
	assert.False(t, ok)
}
