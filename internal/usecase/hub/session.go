package hub

import (
	"sync"
	"time"

	"github.com/kiryu-dev/tictactoe-web/internal/domain"
	"github.com/kiryu-dev/tictactoe-web/internal/usecase/game"
	"github.com/kiryu-dev/tictactoe-web/internal/usecase/scheduler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	errNoActiveGame = errors.New("no game selected")

	// errReplaced is returned to a connection whose session was taken over
	// by a newer connection with the same client key.
	errReplaced = errors.New("session resumed by another connection")
)

// session is one client's game. Every read and write of state, and every
// message sent to the client, happens under mu. Only the bound client may
// change the game.
type session struct {
	uuid      string
	mu        *sync.Mutex
	state     domain.GameState
	started   bool
	client    domain.Client
	lastSeen  time.Time
	scheduler Scheduler
	opponent  Opponent
	logger    *zap.Logger
}

// bind makes client the owner of the session and returns the connection it
// replaced, if any.
func (s *session) bind(client domain.Client, now time.Time) domain.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.client
	s.client = client
	s.lastSeen = now
	if prev == client {
		return nil
	}
	return prev
}

// evict tells a replaced connection that it no longer drives the game.
func (s *session) evict(prev domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("session taken over", zap.String("client", s.uuid))
	err := prev.WriteMessage(domain.Message{
		Type:    domain.Failure,
		Payload: domain.FailurePayload{Message: errReplaced.Error()},
	})
	if err != nil {
		s.logger.Debug("notify replaced connection", zap.String("client", s.uuid), zap.Error(err))
	}
}

// resume re-arms a pending computer move and sends the current game to a
// freshly bound client.
func (s *session) resume(client domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ownLocked(client); err != nil {
		return err
	}
	if !s.started {
		return nil
	}
	s.logger.Info("resuming game", zap.String("client", s.uuid), zap.Uint8("round", s.state.Round))
	if s.state.ComputerTurn() {
		s.scheduler.Schedule(s.computerMove)
	}
	return s.publishLocked()
}

func (s *session) detach(client domain.Client, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != client {
		return
	}
	s.client = nil
	s.lastSeen = now
	s.scheduler.Cancel()
}

func (s *session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.client == nil
}

func (s *session) fail(client domain.Client, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ownLocked(client); err != nil {
		return err
	}
	return s.sendLocked(domain.Failure, domain.FailurePayload{Message: reason})
}

func (s *session) selectMode(client domain.Client, mode domain.GameMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ownLocked(client); err != nil {
		return err
	}
	if !mode.Valid() {
		return s.sendLocked(domain.Failure, domain.FailurePayload{Message: "unknown game mode: " + string(mode)})
	}
	s.resetLocked(mode)
	return s.publishLocked()
}

func (s *session) restart(client domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ownLocked(client); err != nil {
		return err
	}
	if !s.started {
		return s.sendLocked(domain.Failure, domain.FailurePayload{Message: errNoActiveGame.Error()})
	}
	s.resetLocked(s.state.Mode)
	return s.publishLocked()
}

func (s *session) leave(client domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ownLocked(client); err != nil {
		return err
	}
	s.scheduler.Cancel()
	s.started = false
	s.state = domain.GameState{}
	return nil
}

func (s *session) move(client domain.Client, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ownLocked(client); err != nil {
		return err
	}
	if !s.started {
		return s.rejectLocked(pos, errNoActiveGame)
	}
	next, err := game.ApplyMove(s.state, pos, domain.HumanSeat(s.state))
	switch {
	case errors.Is(err, game.ErrInvalidMove):
		return s.rejectLocked(pos, err)
	case err != nil:
		return errors.WithMessage(err, "apply human move")
	}
	s.applyLocked(next)
	if s.state.ComputerTurn() {
		s.scheduler.Schedule(s.computerMove)
	}
	return s.publishLocked()
}

// computerMove runs on the scheduler's timer.
func (s *session) computerMove(task scheduler.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scheduler.IsCurrent(task) || !s.state.ComputerTurn() {
		return
	}
	pos, err := s.opponent.ChooseMove(s.state.Board, domain.ComputerMark, domain.HumanMark)
	if err != nil {
		s.logger.Error("choose computer move", zap.String("client", s.uuid), zap.Error(err))
		return
	}
	next, err := game.ApplyMove(s.state, pos, domain.ComputerMark)
	if err != nil {
		s.logger.Error("apply computer move", zap.String("client", s.uuid), zap.Int("position", pos), zap.Error(err))
		return
	}
	s.applyLocked(next)
	if err := s.publishLocked(); err != nil {
		s.logger.Warn("publish computer move", zap.String("client", s.uuid), zap.Error(err))
	}
}

func (s *session) ownLocked(client domain.Client) error {
	if s.client != client {
		return errReplaced
	}
	return nil
}

func (s *session) resetLocked(mode domain.GameMode) {
	s.scheduler.Cancel()
	s.state = game.Reset(mode)
	s.started = true
	s.logger.Info("new game", zap.String("client", s.uuid), zap.String("mode", string(mode)))
}

func (s *session) rejectLocked(pos int, reason error) error {
	s.logger.Debug("move rejected", zap.String("client", s.uuid), zap.Int("position", pos), zap.Error(reason))
	return s.sendLocked(domain.InvalidMove, domain.InvalidMovePayload{Position: pos, Reason: reason.Error()})
}

func (s *session) applyLocked(next domain.GameState) {
	s.state = next
	if next.Status == domain.InProgress {
		return
	}
	s.logger.Info("game finished",
		zap.String("client", s.uuid),
		zap.Stringer("status", next.Status),
		zap.Stringer("winner", next.Winner))
}

func (s *session) publishLocked() error {
	return s.sendLocked(domain.StateUpdate, domain.NewStatePayload(s.state, s.state.ComputerTurn()))
}

func (s *session) sendLocked(msgType domain.MessageType, payload any) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.WriteMessage(domain.Message{Type: msgType, Payload: payload}); err != nil {
		return errors.WithMessage(err, "send message to client")
	}
	return nil
}

func (s *session) snapshot() (domain.GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.started
}
