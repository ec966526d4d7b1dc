// Package session runs the per-player side of the word-chain protocol: it
// owns the local mirror of the game, the per-turn countdown, and all traffic
// to the room store and the event channel. One Session exists per connected
// player; two Sessions for the same room converge purely through those two
// collaborators.
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wordchain/internal/engine"
	"wordchain/internal/pubsub"
	"wordchain/internal/store"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrRoomFull = errors.New("room is full")
var ErrEmptyName = errors.New("player name required")
var ErrPersistence = errors.New("room store write failed")
var ErrClosed = errors.New("session closed")

const (
	// Room codes skip ambiguous characters (0/O, 1/I/L).
	codeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	createAttempts = 10
	writeAttempts  = 3
	writeBackoff   = 100 * time.Millisecond

	DefaultTurnDuration  = 15 * time.Second
	DefaultGraceDuration = 5 * time.Second
	DefaultCodeLength    = 5
)

// Deps are the collaborators a session talks to. TurnDuration is the fixed
// per-turn allotment; GraceDuration is how long the passive player waits past
// the allotment before treating the silent opponent as timed out.
type Deps struct {
	Store         store.Store
	Broker        pubsub.Broker
	Logger        *zap.Logger
	TurnDuration  time.Duration
	GraceDuration time.Duration
	CodeLength    int
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.TurnDuration <= 0 {
		d.TurnDuration = DefaultTurnDuration
	}
	if d.GraceDuration <= 0 {
		d.GraceDuration = DefaultGraceDuration
	}
	if d.CodeLength < 4 || d.CodeLength > 6 {
		d.CodeLength = DefaultCodeLength
	}
	return d
}

type NoticeType string

const (
	// NoticeState carries a fresh snapshot of the local mirror.
	NoticeState NoticeType = "state"
	// NoticeLeft means the session is torn down and no more notices follow.
	NoticeLeft NoticeType = "game_left"
)

type Notice struct {
	Type  NoticeType
	State *engine.State
}

type msg interface{ isSessionMsg() }

type submitMsg struct {
	word  string
	reply chan error
}

type leaveMsg struct{ done chan struct{} }

type viewMsg struct{ reply chan engine.State }

func (submitMsg) isSessionMsg() {}
func (leaveMsg) isSessionMsg()  {}
func (viewMsg) isSessionMsg()   {}

// Session is a single-goroutine actor; all state below is owned by its loop.
type Session struct {
	deps   Deps
	log    *zap.Logger
	rec    *store.Record
	player engine.Player
	state  engine.State

	inbox       chan msg
	events      <-chan pubsub.Event
	unsubscribe func()
	notices     chan Notice
	timer       *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

// Create allocates a room with a unique code, seeds it with a random opening
// word, persists the waiting record, and returns the creator's session.
func Create(ctx context.Context, deps Deps, playerName string) (*Session, error) {
	deps = deps.withDefaults()
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, ErrEmptyName
	}

	st := engine.NewState(playerName, engine.RandomSeedWord(), int(deps.TurnDuration/time.Second))
	payload, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal game state: %w", err)
	}

	var rec *store.Record
	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := generateCode(deps.CodeLength)
		if err != nil {
			return nil, err
		}
		if _, err := deps.Store.GetByCode(ctx, code); err == nil {
			continue // collision, regenerate
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		candidate := &store.Record{
			ID:          uuid.NewString(),
			Code:        code,
			GameType:    store.GameTypeWordChain,
			Status:      string(st.Status),
			PlayerCount: 1,
			MaxPlayers:  store.MaxPlayers,
			State:       payload,
		}
		err = deps.Store.Create(ctx, candidate)
		if errors.Is(err, store.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		rec = candidate
		break
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: could not allocate a unique room code", ErrPersistence)
	}

	s := start(ctx, deps, rec, st, engine.Player1)
	s.log.Info("room created",
		zap.String("code", rec.Code),
		zap.String("seed", st.LastWord()),
	)
	return s, nil
}

// Join attaches a second player to an existing room, flips it to playing, and
// announces game_start to the room topic.
func Join(ctx context.Context, deps Deps, code, playerName string) (*Session, error) {
	deps = deps.withDefaults()
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, ErrEmptyName
	}

	rec, err := deps.Store.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if rec.PlayerCount >= rec.MaxPlayers {
		return nil, ErrRoomFull
	}

	var st engine.State
	if err := json.Unmarshal(rec.State, &st); err != nil {
		return nil, fmt.Errorf("decode room state: %w", err)
	}
	_, next, err := engine.Apply(st, engine.Command{Type: engine.CmdJoin, Player: engine.Player2, Name: playerName})
	if errors.Is(err, engine.ErrAlreadyStarted) {
		return nil, ErrRoomFull
	}
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("marshal game state: %w", err)
	}
	rec.State = payload
	rec.Status = string(next.Status)
	rec.PlayerCount = store.MaxPlayers
	if err := deps.Store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s := start(ctx, deps, rec, next, engine.Player2)
	snap := next.Clone()
	if err := deps.Broker.Publish(ctx, topic(rec.Code), pubsub.Event{
		Type:        pubsub.EventGameStart,
		Room:        rec.Code,
		State:       &snap,
		PlayerNames: snap.Names,
	}); err != nil {
		// The store already holds the playing state; the creator's grace
		// timeout bounds how long it can miss the start.
		s.log.Warn("game_start publish failed", zap.Error(err))
	}
	s.log.Info("joined room", zap.String("code", rec.Code))
	return s, nil
}

func start(parent context.Context, deps Deps, rec *store.Record, st engine.State, slot engine.Player) *Session {
	ctx, cancel := context.WithCancel(parent)
	events, unsubscribe := deps.Broker.Subscribe(topic(rec.Code))

	s := &Session{
		deps:        deps,
		log:         deps.Logger.With(zap.String("room", rec.Code), zap.Int("player", int(slot))),
		rec:         rec,
		player:      slot,
		state:       st,
		inbox:       make(chan msg, 16),
		events:      events,
		unsubscribe: unsubscribe,
		notices:     make(chan Notice, 8),
		timer:       time.NewTimer(time.Hour),
		ctx:         ctx,
		cancel:      cancel,
	}
	s.stopTimer()
	if st.Status == engine.StatusPlaying {
		s.armTimer()
	}
	s.notify()

	go s.loop()
	return s
}

func (s *Session) Code() string          { return s.rec.Code }
func (s *Session) Player() engine.Player { return s.player }

// Notices streams local mirror changes to the transport layer. The channel
// closes when the session is torn down.
func (s *Session) Notices() <-chan Notice { return s.notices }

// SubmitWord validates and commits one word for this player. Rejections come
// back as engine validation errors and never touch shared state.
func (s *Session) SubmitWord(word string) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- submitMsg{word: word, reply: reply}:
		select {
		case err := <-reply:
			return err
		case <-s.ctx.Done():
			return ErrClosed
		}
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// Leave tears the session down: game_left is broadcast, the room record is
// deleted, the subscription and timers are stopped. It returns only after the
// loop has finished tearing down, so no transition can fire afterwards.
func (s *Session) Leave() {
	done := make(chan struct{})
	select {
	case s.inbox <- leaveMsg{done: done}:
		// The buffered inbox can accept the message even after the loop has
		// exited (peer teardown), so the wait needs the same escape hatch.
		select {
		case <-done:
		case <-s.ctx.Done():
		}
	case <-s.ctx.Done():
	}
}

// View returns a copy of the local mirror. Test hook, same pattern as any
// other inbox message so there is no racy read.
func (s *Session) View() engine.State {
	reply := make(chan engine.State, 1)
	select {
	case s.inbox <- viewMsg{reply: reply}:
		select {
		case st := <-reply:
			return st
		case <-s.ctx.Done():
			return s.state.Clone()
		}
	case <-s.ctx.Done():
		return s.state.Clone()
	}
}

func (s *Session) loop() {
	defer close(s.notices)
	for {
		select {
		case <-s.ctx.Done():
			s.teardown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case submitMsg:
				msg.reply <- s.handleSubmit(msg.word)
			case viewMsg:
				msg.reply <- s.state.Clone()
			case leaveMsg:
				s.handleLeave()
				close(msg.done)
				return
			}

		case evt := <-s.events:
			if done := s.handleEvent(evt); done {
				return
			}

		case <-s.timer.C:
			s.handleTimerFired()
		}
	}
}

func (s *Session) handleSubmit(word string) error {
	_, next, err := engine.Apply(s.state, engine.Command{
		Type:   engine.CmdSubmitWord,
		Player: s.player,
		Word:   word,
	})
	if err != nil {
		return err
	}
	// Not applied locally until the canonical write lands.
	if err := s.persist(next); err != nil {
		return err
	}
	s.advance(next)
	s.broadcastUpdate()
	s.log.Info("word accepted",
		zap.String("word", next.LastWord()),
		zap.Int("version", next.Version),
	)
	return nil
}

// handleTimerFired commits a turn timeout. On our own turn this is the
// self-reported loss; on the opponent's turn the grace window has elapsed
// without a snapshot, so we commit their timeout on their behalf. Both paths
// run the same guarded transition, so a double commit from racing clocks
// converges on one ended state.
func (s *Session) handleTimerFired() {
	if s.state.Status != engine.StatusPlaying {
		return
	}
	timedOut := s.state.CurrentTurn
	_, next, err := engine.Apply(s.state, engine.Command{Type: engine.CmdTimeout, Player: timedOut})
	if err != nil {
		return
	}
	if err := s.persist(next); err != nil {
		// Canonical write is unreachable; end the session locally rather
		// than leave a torn countdown running.
		s.log.Error("timeout commit failed", zap.Error(err))
	}
	s.advance(next)
	s.broadcastUpdate()
	s.deleteRoom()
	s.log.Info("turn timed out",
		zap.Int("timedOutPlayer", int(timedOut)),
		zap.String("winner", next.WinnerName),
	)
}

func (s *Session) handleEvent(evt pubsub.Event) (done bool) {
	switch evt.Type {
	case pubsub.EventGameLeft:
		// Peer tore the room down; mirror that locally whatever the turn or
		// timer says.
		if s.state.Status != engine.StatusEnded {
			if _, next, err := engine.Apply(s.state, engine.Command{Type: engine.CmdLeave, Player: s.player.Other()}); err == nil {
				s.state = next
			}
		}
		s.emit(Notice{Type: NoticeLeft})
		s.teardown()
		s.log.Info("peer left, session closed")
		return true

	case pubsub.EventGameStart, pubsub.EventGameUpdate:
		if evt.State == nil {
			return false
		}
		if !engine.Supersedes(s.state, *evt.State) {
			s.log.Debug("stale snapshot dropped",
				zap.Int("local", s.state.Version),
				zap.Int("remote", evt.State.Version),
			)
			return false
		}
		s.advance(evt.State.Clone())
		return false

	default:
		return false
	}
}

func (s *Session) handleLeave() {
	if s.state.Status != engine.StatusEnded {
		if _, next, err := engine.Apply(s.state, engine.Command{Type: engine.CmdLeave, Player: s.player}); err == nil {
			s.state = next
		}
		if err := s.deps.Broker.Publish(s.ctx, topic(s.rec.Code), pubsub.Event{
			Type: pubsub.EventGameLeft,
			Room: s.rec.Code,
		}); err != nil {
			s.log.Warn("game_left publish failed", zap.Error(err))
		}
	}
	s.deleteRoom()
	s.teardown()
	s.log.Info("left room")
}

// advance installs a new mirror, re-arms the countdown for the new active
// turn, and pushes a state notice.
func (s *Session) advance(next engine.State) {
	s.state = next
	if next.Status == engine.StatusPlaying {
		s.armTimer()
	} else {
		s.stopTimer()
	}
	s.notify()
}

// persist writes the snapshot to the canonical room record, retrying with
// backoff before giving up with ErrPersistence.
func (s *Session) persist(next engine.State) error {
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal game state: %w", err)
	}
	s.rec.State = payload
	s.rec.Status = string(next.Status)

	var last error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if last = s.deps.Store.Update(s.ctx, s.rec); last == nil {
			return nil
		}
		s.log.Warn("room store write failed",
			zap.Int("attempt", attempt),
			zap.Error(last),
		)
		select {
		case <-time.After(time.Duration(attempt) * writeBackoff):
		case <-s.ctx.Done():
			return ErrClosed
		}
	}
	return fmt.Errorf("%w: %v", ErrPersistence, last)
}

// broadcastUpdate publishes the current mirror as a game_update. A publish
// failure is a delivery gap, not a rollback: the store copy already advanced
// and the peer's grace timeout bounds the gap.
func (s *Session) broadcastUpdate() {
	snap := s.state.Clone()
	if err := s.deps.Broker.Publish(s.ctx, topic(s.rec.Code), pubsub.Event{
		Type:  pubsub.EventGameUpdate,
		Room:  s.rec.Code,
		State: &snap,
	}); err != nil {
		s.log.Warn("game_update publish failed", zap.Error(err))
	}
}

func (s *Session) deleteRoom() {
	if err := s.deps.Store.Delete(s.ctx, s.rec.ID); err != nil {
		s.log.Warn("room delete failed", zap.Error(err))
	}
}

func (s *Session) teardown() {
	s.stopTimer()
	s.unsubscribe()
	s.cancel()
}

func (s *Session) armTimer() {
	d := s.deps.TurnDuration
	if s.state.CurrentTurn != s.player {
		// Passive side: the active player owns the turn clock; we only hold
		// a grace-period fallback in case they never report.
		d += s.deps.GraceDuration
	}
	s.stopTimer()
	s.timer.Reset(d)
}

func (s *Session) stopTimer() {
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
}

func (s *Session) notify() {
	snap := s.state.Clone()
	s.emit(Notice{Type: NoticeState, State: &snap})
}

func (s *Session) emit(n Notice) {
	select {
	case s.notices <- n:
	default:
		s.log.Warn("notice dropped, consumer too slow", zap.String("type", string(n.Type)))
	}
}

func topic(code string) string { return "room:" + code }

func generateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code), nil
}
