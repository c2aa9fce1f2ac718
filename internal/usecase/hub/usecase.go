package hub

import (
	"context"
	"sync"
	"time"

	"github.com/kiryu-dev/tictactoe-web/internal/domain"
	"github.com/kiryu-dev/tictactoe-web/internal/usecase/scheduler"
	"github.com/kiryu-dev/tictactoe-web/pkg/utils"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type Opponent interface {
	ChooseMove(board domain.Board, computer, human domain.Cell) (int, error)
}

type Scheduler interface {
	Schedule(fn func(task scheduler.Task)) scheduler.Task
	Cancel()
	IsCurrent(task scheduler.Task) bool
}

type useCase struct {
	opponent     Opponent
	newScheduler func() Scheduler
	sessions     map[string]*session
	sessionCount *atomic.Int64
	sessionTTL   time.Duration
	ticker       *time.Ticker
	done         chan struct{}
	closeOnce    *sync.Once
	now          func() time.Time
	mu           *sync.RWMutex
	logger       *zap.Logger
}

func New(opponent Opponent, newScheduler func() Scheduler, sessionTTL, janitorPeriod time.Duration,
	logger *zap.Logger) *useCase {
	u := &useCase{
		opponent:     opponent,
		newScheduler: newScheduler,
		sessions:     make(map[string]*session),
		sessionCount: atomic.NewInt64(0),
		sessionTTL:   sessionTTL,
		ticker:       time.NewTicker(janitorPeriod),
		done:         make(chan struct{}),
		closeOnce:    &sync.Once{},
		now:          time.Now,
		mu:           &sync.RWMutex{},
		logger:       logger,
	}
	go u.removeIdleSessionsPeriodically()
	return u
}

// movePayload mirrors domain.PlayerMovePayload with an optional position, so
// a move without one is told apart from a move at cell 0.
type movePayload struct {
	Position *int `json:"position"`
}

// Handle serves one client connection until it closes. A client that
// reconnects with the same key gets its unfinished game back; the older
// connection, if still open, is told so and dropped on its next message.
func (u *useCase) Handle(ctx context.Context, client domain.Client) error {
	s, prev := u.continueSession(client)
	defer func() {
		s.detach(client, u.now())
	}()
	if prev != nil {
		s.evict(prev)
	}
	if err := s.resume(client); err != nil {
		return u.handleErr(s, err, "resume session")
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		msg, err := client.ReadMessage()
		switch {
		case errors.Is(err, domain.ErrConnectionClosed):
			return nil
		case errors.Is(err, domain.ErrMalformedMessage):
			if err := u.malformed(s, client, err); err != nil {
				return u.handleErr(s, err, "report malformed message")
			}
			continue
		case err != nil:
			return errors.WithMessage(err, "read message from client")
		}
		if err := u.dispatch(s, client, msg); err != nil {
			return u.handleErr(s, err, "handle '"+string(msg.Type)+"' message")
		}
	}
}

func (u *useCase) handleErr(s *session, err error, msg string) error {
	if errors.Is(err, errReplaced) {
		u.logger.Info("closing replaced connection", zap.String("client", s.uuid))
		return nil
	}
	return errors.WithMessage(err, msg)
}

func (u *useCase) dispatch(s *session, client domain.Client, msg domain.Message) error {
	switch msg.Type {
	case domain.SelectMode:
		v, err := utils.DecodePayload[domain.SelectModePayload](msg.Payload)
		if err != nil {
			return u.malformed(s, client, err)
		}
		return s.selectMode(client, v.Mode)
	case domain.PlayerMove:
		v, err := utils.DecodePayload[movePayload](msg.Payload)
		if err != nil {
			return u.malformed(s, client, err)
		}
		if v.Position == nil {
			return u.malformed(s, client, errors.WithMessage(domain.ErrMalformedMessage, "move without position"))
		}
		return s.move(client, *v.Position)
	case domain.Restart:
		return s.restart(client)
	case domain.Leave:
		return s.leave(client)
	default:
		return u.malformed(s, client, errors.WithMessagef(domain.ErrUnknownMessage, "type '%s'", msg.Type))
	}
}

// malformed reports a bad message to the client without ending the connection.
func (u *useCase) malformed(s *session, client domain.Client, cause error) error {
	u.logger.Warn("malformed message", zap.String("client", s.uuid), zap.Error(cause))
	return s.fail(client, cause.Error())
}

// continueSession finds or creates the client's session and binds the client
// to it while the session map is locked, so the janitor never sees a
// session that is being resumed as idle.
func (u *useCase) continueSession(client domain.Client) (*session, domain.Client) {
	u.mu.Lock()
	defer u.mu.Unlock()
	clientUuid := client.Uuid()
	s, ok := u.sessions[clientUuid]
	if ok {
		u.logger.Info("found session for client", zap.String("client", clientUuid))
	} else {
		s = &session{
			uuid:      clientUuid,
			mu:        &sync.Mutex{},
			scheduler: u.newScheduler(),
			opponent:  u.opponent,
			logger:    u.logger,
		}
		u.sessions[clientUuid] = s
		u.sessionCount.Inc()
		u.logger.Info("new session", zap.String("client", clientUuid))
	}
	return s, s.bind(client, u.now())
}

func (u *useCase) SessionCount() int64 {
	return u.sessionCount.Load()
}

// Snapshot returns the current game of a client, if one is selected.
func (u *useCase) Snapshot(clientUuid string) (domain.GameState, bool) {
	u.mu.RLock()
	s, ok := u.sessions[clientUuid]
	u.mu.RUnlock()
	if !ok {
		return domain.GameState{}, false
	}
	return s.snapshot()
}

func (u *useCase) removeIdleSessionsPeriodically() {
	defer u.ticker.Stop()
	for {
		select {
		case <-u.ticker.C:
			if removed := u.removeIdleSessions(); removed > 0 {
				u.logger.Info("removed idle sessions", zap.Int("count", removed))
			}
		case <-u.done:
			return
		}
	}
}

func (u *useCase) removeIdleSessions() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	now := u.now()
	removed := 0
	for clientUuid, s := range u.sessions {
		lastSeen, detached := s.idleSince()
		if !detached || now.Sub(lastSeen) < u.sessionTTL {
			continue
		}
		delete(u.sessions, clientUuid)
		u.sessionCount.Dec()
		removed++
	}
	return removed
}

// Close stops the idle-session janitor.
func (u *useCase) Close() {
	u.closeOnce.Do(func() {
		close(u.done)
	})
}
