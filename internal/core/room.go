package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dkeye/QuizRush/internal/domain"
	"github.com/dkeye/QuizRush/internal/protocol"
)

// Room is one game instance. Every exported method takes mu, so all events of a
// room are serialised while different rooms run in parallel. Broadcasts only
// happen under mu, which keeps per-participant delivery order equal to event order.
type Room struct {
	mu   sync.Mutex
	meta *domain.Room
	opts RoomOptions
	log  zerolog.Logger

	sessions     []*Session // join order
	hostID       domain.PlayerID
	reservedHost domain.PlayerID
	everJoined   bool
	allReady     bool

	startSeq   uint64
	startLeft  int
	startTimer *Countdown
	pending    []domain.Question

	round *Round

	closed  bool
	emptied bool
	slow    []*Session
}

func NewRoom(meta *domain.Room, opts RoomOptions) *Room {
	if opts.Tickers == nil {
		opts.Tickers = RealTickers{}
	}
	if opts.Timing.Tick <= 0 {
		opts.Timing = DefaultTiming()
	}
	if opts.Chat.MaxLength <= 0 {
		opts.Chat = DefaultChatPolicy()
	}
	return &Room{
		meta: meta,
		opts: opts,
		log:  log.With().Str("module", "core.room").Str("room", string(meta.ID)).Logger(),
	}
}

func (r *Room) ID() domain.RoomID { return r.meta.ID }

// ReserveHost issues the id the first joiner will get.
func (r *Room) ReserveHost() domain.PlayerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reservedHost == "" && !r.everJoined {
		r.reservedHost = domain.NewPlayerID()
	}
	return r.reservedHost
}

// unlock releases mu and then runs the callbacks collected while it was held.
func (r *Room) unlock() {
	slow := r.slow
	r.slow = nil
	emptied := r.emptied
	r.emptied = false
	r.mu.Unlock()

	if r.opts.OnSlowConsumer != nil {
		seen := make(map[*Session]struct{}, len(slow))
		for _, s := range slow {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			r.opts.OnSlowConsumer(r, s)
		}
	}
	if emptied && r.opts.OnEmpty != nil {
		r.opts.OnEmpty(r)
	}
}

// Join admits a new participant bound to conn and returns its id.
func (r *Room) Join(name, password string, conn SignalConnection) (domain.PlayerID, error) {
	// The hash never changes after creation, so bcrypt runs outside the lock.
	if err := r.meta.CheckPassword(password); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.unlock()

	if err := r.joinableLocked(); err != nil {
		return "", err
	}

	var id domain.PlayerID
	if !r.everJoined {
		id = r.reservedHost
	}
	p, err := domain.NewPlayer(id, name)
	if err != nil {
		return "", err
	}
	if len(r.sessions) == 0 {
		p.IsHost = true
		r.hostID = p.ID
		r.meta.HostName = p.Name
	}
	r.everJoined = true

	s := newSession(p, conn, rate.NewLimiter(r.opts.Chat.Rate, r.opts.Chat.Burst))
	r.broadcast(protocol.PlayerJoined{Player: protocol.NewPlayerView(p), Room: r.viewLocked(len(r.sessions) + 1)})
	r.sessions = append(r.sessions, s)
	r.unicast(s, protocol.RoomJoined{Room: r.viewLocked(len(r.sessions)), Players: r.playersLocked(), PlayerID: p.ID})
	r.evalReadyLocked()

	r.log.Info().Str("player", string(p.ID)).Str("name", p.Name).Int("players", len(r.sessions)).Msg("player joined")
	return p.ID, nil
}

// CanJoin checks the join preconditions without admitting anyone.
func (r *Room) CanJoin(password string) error {
	if err := r.meta.CheckPassword(password); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joinableLocked()
}

func (r *Room) joinableLocked() error {
	if r.closed {
		return domain.ErrRoomNotFound
	}
	switch r.meta.Status {
	case domain.StatusWaiting, domain.StatusStarting:
	default:
		return domain.ErrGameInProgress
	}
	if len(r.sessions) >= r.meta.Capacity {
		return domain.ErrRoomFull
	}
	return nil
}

// Leave removes the participant. Leaving twice is a no-op.
func (r *Room) Leave(id domain.PlayerID) {
	r.mu.Lock()
	defer r.unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return
	}
	left := r.sessions[i]
	r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
	r.log.Info().Str("player", string(id)).Int("players", len(r.sessions)).Msg("player left")

	if len(r.sessions) == 0 {
		r.closeLocked()
		r.emptied = true
		return
	}

	var newHost domain.PlayerID
	if left.player.IsHost {
		h := r.sessions[0]
		h.player.IsHost = true
		r.hostID = h.player.ID
		r.meta.HostName = h.player.Name
		newHost = h.player.ID
		r.log.Info().Str("host", string(newHost)).Msg("host reassigned")
	}
	r.broadcast(protocol.PlayerLeft{PlayerID: id, NewHostID: newHost, Room: r.viewLocked(len(r.sessions))})

	switch r.meta.Status {
	case domain.StatusWaiting:
		r.evalReadyLocked()
	case domain.StatusPlaying:
		if r.round.Phase() == PhasePlaying && r.round.AllAnswered(r.idsLocked()) {
			r.revealLocked()
		}
	}
}

// SetReady is a no-op outside the waiting status.
func (r *Room) SetReady(id domain.PlayerID, ready bool) {
	r.mu.Lock()
	defer r.unlock()

	if r.closed || r.meta.Status != domain.StatusWaiting {
		return
	}
	s := r.sessionLocked(id)
	if s == nil {
		return
	}
	s.player.IsReady = ready
	r.broadcast(protocol.PlayerReadyChanged{PlayerID: id, IsReady: ready})
	r.evalReadyLocked()
}

// AllReady reports the all-ready predicate.
func (r *Room) AllReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allReadyLocked()
}

func (r *Room) allReadyLocked() bool {
	if len(r.sessions) < domain.MinCapacity {
		return false
	}
	for _, s := range r.sessions {
		if !s.player.IsReady {
			return false
		}
	}
	return true
}

// evalReadyLocked broadcasts all_players_ready whenever the predicate flips
// while the room is waiting.
func (r *Room) evalReadyLocked() {
	if r.meta.Status != domain.StatusWaiting {
		return
	}
	now := r.allReadyLocked()
	if now == r.allReady {
		return
	}
	r.allReady = now
	r.broadcast(protocol.AllPlayersReady{CanStart: now})
}

// UpdateSettings merges the patch and capacity change requested by the host.
func (r *Room) UpdateSettings(id domain.PlayerID, patch *domain.SettingsPatch, maxPlayers *int) error {
	r.mu.Lock()
	defer r.unlock()

	if r.closed || r.sessionLocked(id) == nil {
		return domain.ErrNotInRoom
	}
	if id != r.hostID {
		return domain.ErrNotHost
	}
	if r.meta.Status != domain.StatusWaiting {
		return domain.ErrGameInProgress
	}

	settings := r.meta.Settings
	if patch != nil {
		settings = settings.Apply(*patch)
		if err := settings.Validate(); err != nil {
			return err
		}
	}
	capacity := r.meta.Capacity
	if maxPlayers != nil {
		if err := domain.ValidateCapacity(*maxPlayers); err != nil {
			return err
		}
		if *maxPlayers < len(r.sessions) {
			return domain.ErrCapacityBelowSize
		}
		capacity = *maxPlayers
	}

	r.meta.Settings = settings
	r.meta.Capacity = capacity
	for _, s := range r.sessions {
		s.player.IsReady = false
	}
	r.broadcast(protocol.SettingsUpdated{Settings: settings, MaxPlayers: capacity, Players: r.playersLocked()})
	r.evalReadyLocked()
	r.log.Info().Interface("settings", settings).Int("max_players", capacity).Msg("settings updated")
	return nil
}

// Start begins a game on behalf of the host. When provided is empty the
// questions come from the source; the fetch runs without the room lock while the
// room sits in the starting status.
func (r *Room) Start(ctx context.Context, id domain.PlayerID, provided []domain.Question) error {
	for i, q := range provided {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	r.mu.Lock()
	if err := r.checkStartLocked(id); err != nil {
		r.unlock()
		return err
	}
	r.meta.Status = domain.StatusStarting
	r.startSeq++
	seq := r.startSeq
	req := domain.RequestFor(r.meta.Settings)
	r.unlock()

	questions := provided
	var err error
	if len(questions) == 0 {
		questions, err = r.fetch(ctx, req)
	}

	r.mu.Lock()
	defer r.unlock()

	if r.closed || r.startSeq != seq || r.meta.Status != domain.StatusStarting {
		return nil
	}
	if err != nil {
		r.meta.Status = domain.StatusWaiting
		r.evalReadyLocked()
		r.log.Warn().Err(err).Msg("start aborted")
		return err
	}

	r.pending = questions
	r.startLeft = r.opts.Timing.ticks(r.opts.Timing.StartCountdown)
	if r.startLeft == 0 {
		r.beginGameLocked()
		return nil
	}
	r.broadcast(protocol.GameStarting{Countdown: seconds(r.startLeft, r.opts.Timing.Tick)})
	r.startTimer = StartCountdown(r.opts.Tickers, r.opts.Timing.Tick, func() { r.onStartTick(seq) })
	r.log.Info().Int("questions", len(questions)).Msg("game starting")
	return nil
}

func (r *Room) checkStartLocked(id domain.PlayerID) error {
	if r.closed || r.sessionLocked(id) == nil {
		return domain.ErrNotInRoom
	}
	if id != r.hostID {
		return domain.ErrNotHost
	}
	switch r.meta.Status {
	case domain.StatusWaiting:
	case domain.StatusStarting:
		return domain.ErrGameStarting
	default:
		return domain.ErrGameInProgress
	}
	if len(r.sessions) < domain.MinCapacity {
		return domain.ErrNotEnoughPlayers
	}
	if !r.allReadyLocked() {
		return domain.ErrNotAllReady
	}
	return nil
}

func (r *Room) fetch(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	if r.opts.Source == nil {
		return nil, domain.ErrNoQuestions
	}
	if r.opts.Timing.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timing.FetchTimeout)
		defer cancel()
	}
	qs, err := r.opts.Source.Questions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching questions: %w", err)
	}
	if len(qs) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return qs, nil
}

func (r *Room) onStartTick(seq uint64) {
	r.mu.Lock()
	defer r.unlock()

	if r.closed || r.startSeq != seq || r.meta.Status != domain.StatusStarting || r.pending == nil {
		return
	}
	r.startLeft--
	if r.startLeft > 0 {
		r.broadcast(protocol.Countdown{Countdown: seconds(r.startLeft, r.opts.Timing.Tick)})
		return
	}
	r.startTimer.Stop()
	r.startTimer = nil
	r.beginGameLocked()
}

func (r *Room) beginGameLocked() {
	for _, s := range r.sessions {
		s.player.Score = 0
		s.player.IsReady = false
	}
	r.allReady = false

	t := r.opts.Timing
	round := NewRound(r.pending, r.idsLocked(), t.ticks(t.QuestionTime), t.ticks(t.RevealTime))
	r.pending = nil
	r.round = round
	r.meta.Status = domain.StatusPlaying

	r.broadcast(protocol.GameStarted{Players: r.playersLocked(), Settings: r.meta.Settings})
	r.broadcastStateLocked()
	r.startRoundTimerLocked()
	r.log.Info().Int("questions", round.Len()).Int("players", len(r.sessions)).Msg("game started")
}

func (r *Room) startRoundTimerLocked() {
	round := r.round
	round.timer.Stop()
	round.timerGen++
	gen := round.timerGen
	round.timer = StartCountdown(r.opts.Tickers, r.opts.Timing.Tick, func() { r.onRoundTick(round, gen) })
}

// onRoundTick drops ticks from a replaced timer: a stopped countdown may still
// deliver one tick it took before the stop.
func (r *Room) onRoundTick(round *Round, gen uint64) {
	r.mu.Lock()
	defer r.unlock()

	if r.closed || round == nil || r.round != round || round.timerGen != gen || r.meta.Status != domain.StatusPlaying {
		return
	}
	switch round.Tick() {
	case StepRevealed:
		r.syncScoresLocked()
		r.log.Debug().Int("question", round.Index()).Msg("question closed by timer")
	case StepFinished:
		r.finishLocked()
		return
	}
	r.broadcastStateLocked()
}

// Submit records the participant's first answer for the open question.
// Duplicates, late answers and unknown participants are ignored.
func (r *Room) Submit(id domain.PlayerID, option string) bool {
	r.mu.Lock()
	defer r.unlock()

	if r.closed || r.round == nil || r.meta.Status != domain.StatusPlaying {
		return false
	}
	if r.sessionLocked(id) == nil {
		return false
	}
	if !r.round.Submit(id, option) {
		return false
	}
	if r.round.AllAnswered(r.idsLocked()) {
		r.revealLocked()
		return true
	}
	r.broadcastStateLocked()
	return true
}

// revealLocked closes the question ahead of its timer.
func (r *Room) revealLocked() {
	if !r.round.Reveal() {
		return
	}
	r.syncScoresLocked()
	r.startRoundTimerLocked()
	r.broadcastStateLocked()
	r.log.Debug().Int("question", r.round.Index()).Msg("question closed, all answered")
}

func (r *Room) syncScoresLocked() {
	for _, s := range r.sessions {
		s.player.Score = r.round.Score(s.player.ID)
	}
}

func (r *Room) finishLocked() {
	r.round.Stop()
	r.meta.Status = domain.StatusFinal
	r.syncScoresLocked()
	r.broadcastStateLocked()
	r.broadcast(protocol.GameEnd{Standings: r.round.Standings(r.playersLocked())})
	r.log.Info().Msg("game finished")
}

// Reset returns a finished room to waiting and discards its round.
func (r *Room) Reset(id domain.PlayerID) error {
	r.mu.Lock()
	defer r.unlock()

	if r.closed || r.sessionLocked(id) == nil {
		return domain.ErrNotInRoom
	}
	if id != r.hostID {
		return domain.ErrNotHost
	}
	if r.meta.Status != domain.StatusFinal {
		return domain.ErrGameNotFinished
	}
	if r.round != nil {
		r.round.Stop()
		r.round = nil
	}
	for _, s := range r.sessions {
		s.player.Score = 0
		s.player.IsReady = false
	}
	r.allReady = false
	r.meta.Status = domain.StatusWaiting
	r.broadcast(protocol.GameReset{Room: r.viewLocked(len(r.sessions)), Players: r.playersLocked()})
	r.log.Info().Msg("game reset")
	return nil
}

// Chat relays a message from a participant to the whole room.
func (r *Room) Chat(id domain.PlayerID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyMessage
	}

	r.mu.Lock()
	defer r.unlock()

	if utf8.RuneCountInString(text) > r.opts.Chat.MaxLength {
		return domain.ErrMessageTooLong
	}
	s := r.sessionLocked(id)
	if r.closed || s == nil {
		return nil
	}
	if !s.chat.Allow() {
		return domain.ErrRateLimited
	}
	r.broadcast(protocol.Chat{PlayerID: id, PlayerName: s.player.Name, Message: text, Timestamp: time.Now().UTC()})
	return nil
}

// Close stops every timer. Later events on the room are ignored.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

// Evict closes the room and every participant's connection.
func (r *Room) Evict() {
	r.mu.Lock()
	r.closeLocked()
	conns := make([]SignalConnection, 0, len(r.sessions))
	for _, s := range r.sessions {
		conns = append(conns, s.signal)
	}
	r.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	r.startTimer.Stop()
	r.startTimer = nil
	if r.round != nil {
		r.round.Stop()
	}
	r.log.Info().Msg("room closed")
}

func (r *Room) broadcastStateLocked() {
	r.broadcast(protocol.GameStateMessage{State: r.round.Snapshot(r.opts.Timing.Tick)})
}

// Read-only projections.

func (r *Room) View() protocol.RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked(len(r.sessions))
}

func (r *Room) Players() []protocol.PlayerView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playersLocked()
}

func (r *Room) Status() domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meta.Status
}

func (r *Room) HostID() domain.PlayerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseIfUnjoined closes the room when nobody has joined it yet.
func (r *Room) CloseIfUnjoined() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.everJoined || r.closed {
		return false
	}
	r.closeLocked()
	return true
}

// GameState returns the current round snapshot, if a round exists.
func (r *Room) GameState() (protocol.GameState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.round == nil {
		return protocol.GameState{}, false
	}
	return r.round.Snapshot(r.opts.Timing.Tick), true
}

func (r *Room) viewLocked(count int) protocol.RoomView {
	return protocol.RoomView{
		ID:          r.meta.ID,
		Name:        r.meta.Name,
		PlayerCount: count,
		MaxPlayers:  r.meta.Capacity,
		HostName:    r.meta.HostName,
		IsPrivate:   r.meta.IsPrivate(),
		Status:      r.meta.Status,
		Settings:    r.meta.Settings,
		CreatedAt:   r.meta.CreatedAt,
	}
}

func (r *Room) playersLocked() []protocol.PlayerView {
	out := make([]protocol.PlayerView, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, protocol.NewPlayerView(s.player))
	}
	return out
}

func (r *Room) idsLocked() []domain.PlayerID {
	out := make([]domain.PlayerID, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.player.ID)
	}
	return out
}

func (r *Room) indexLocked(id domain.PlayerID) int {
	for i, s := range r.sessions {
		if s.player.ID == id {
			return i
		}
	}
	return -1
}

func (r *Room) sessionLocked(id domain.PlayerID) *Session {
	if i := r.indexLocked(id); i >= 0 {
		return r.sessions[i]
	}
	return nil
}
