package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/QuizRush/internal/core"
	"github.com/dkeye/QuizRush/internal/domain"
	"github.com/dkeye/QuizRush/internal/protocol"
)

// RoomRegistry maps room ids to live rooms. Lookups never block on a room.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room

	opts     core.RoomOptions
	emptyTTL time.Duration
	policy   Policy
}

// NewRoomRegistry creates rooms with opts. A room nobody joins within emptyTTL
// is dropped; zero disables that.
func NewRoomRegistry(opts core.RoomOptions, emptyTTL time.Duration, policy Policy) *RoomRegistry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &RoomRegistry{
		rooms:    make(map[domain.RoomID]*core.Room),
		opts:     opts,
		emptyTTL: emptyTTL,
		policy:   policy,
	}
}

// Create registers a new room and reserves the host seat for its first joiner.
func (m *RoomRegistry) Create(cfg domain.RoomConfig) (*core.Room, domain.PlayerID, error) {
	meta, err := domain.NewRoom(cfg)
	if err != nil {
		return nil, "", err
	}
	opts := m.opts
	opts.OnEmpty = func(r *core.Room) { m.remove(r.ID()) }
	opts.OnSlowConsumer = m.onSlowConsumer

	room := core.NewRoom(meta, opts)
	hostID := room.ReserveHost()

	m.mu.Lock()
	m.rooms[meta.ID] = room
	m.mu.Unlock()

	if m.emptyTTL > 0 {
		time.AfterFunc(m.emptyTTL, func() {
			if room.CloseIfUnjoined() {
				m.remove(room.ID())
				log.Info().Str("module", "app.rooms").Str("room", string(room.ID())).Msg("reaped unjoined room")
			}
		})
	}
	log.Info().Str("module", "app.rooms").Str("room", string(meta.ID)).Str("name", meta.Name).
		Bool("private", meta.IsPrivate()).Int("max_players", meta.Capacity).Msg("room created")
	return room, hostID, nil
}

func (m *RoomRegistry) Get(id domain.RoomID) (*core.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// FindJoinable returns the room if a join with password would currently succeed.
func (m *RoomRegistry) FindJoinable(id domain.RoomID, password string) (*core.Room, error) {
	room, ok := m.Get(id)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if err := room.CanJoin(password); err != nil {
		return nil, err
	}
	return room, nil
}

// ListPublicWaiting returns a snapshot of the public rooms still in the lobby,
// oldest first.
func (m *RoomRegistry) ListPublicWaiting() []protocol.RoomView {
	out := make([]protocol.RoomView, 0)
	for _, r := range m.snapshot() {
		v := r.View()
		if v.IsPrivate || v.Status != domain.StatusWaiting || v.PlayerCount == 0 {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *RoomRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func (m *RoomRegistry) remove(id domain.RoomID) {
	m.mu.Lock()
	delete(m.rooms, id)
	m.mu.Unlock()
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room removed")
}

func (m *RoomRegistry) snapshot() []*core.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

func (m *RoomRegistry) onSlowConsumer(room *core.Room, s *core.Session) {
	switch m.policy.OnBackPressure(room, s) {
	case KickMember:
		log.Warn().Str("module", "app.rooms").Str("room", string(room.ID())).Str("player", string(s.ID())).Msg("kicking slow consumer")
		s.Signal().Close()
	case NoAction:
	}
}

// Shutdown evicts every room in parallel and empties the registry.
func (m *RoomRegistry) Shutdown(ctx context.Context) error {
	rooms := m.snapshot()
	done := make(chan struct{})
	go func() {
		var wg conc.WaitGroup
		for _, r := range rooms {
			wg.Go(r.Evict)
		}
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	clear(m.rooms)
	m.mu.Unlock()
	log.Info().Str("module", "app.rooms").Int("rooms", len(rooms)).Msg("rooms shut down")
	return nil
}
