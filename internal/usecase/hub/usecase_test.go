package hub

import (
	"context"
	"testing"
	"time"

	"github.com/kiryu-dev/tictactoe-web/internal/domain"
	"github.com/kiryu-dev/tictactoe-web/internal/usecase/opponent"
	"github.com/kiryu-dev/tictactoe-web/internal/usecase/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const waitFor = time.Second

type fakeClient struct {
	uuid string
	in   chan domain.Message
	out  chan domain.Message
}

func newFakeClient(uuid string) *fakeClient {
	return &fakeClient{
		uuid: uuid,
		in:   make(chan domain.Message),
		out:  make(chan domain.Message, 16),
	}
}

func (c *fakeClient) WriteMessage(msg domain.Message) error {
	c.out <- msg
	return nil
}

func (c *fakeClient) ReadMessage() (domain.Message, error) {
	msg, ok := <-c.in
	if !ok {
		return domain.Message{}, domain.ErrConnectionClosed
	}
	return msg, nil
}

func (c *fakeClient) Uuid() string {
	return c.uuid
}

func (c *fakeClient) send(t *testing.T, msgType domain.MessageType, payload any) {
	t.Helper()
	select {
	case c.in <- domain.Message{Type: msgType, Payload: payload}:
	case <-time.After(waitFor):
		t.Fatalf("hub did not read '%s' message", msgType)
	}
}

func (c *fakeClient) expect(t *testing.T, msgType domain.MessageType) domain.Message {
	t.Helper()
	select {
	case msg := <-c.out:
		require.Equal(t, msgType, msg.Type, "payload: %+v", msg.Payload)
		return msg
	case <-time.After(waitFor):
		t.Fatalf("no '%s' message", msgType)
	}
	return domain.Message{}
}

func (c *fakeClient) expectState(t *testing.T) domain.StatePayload {
	t.Helper()
	msg := c.expect(t, domain.StateUpdate)
	state, ok := msg.Payload.(domain.StatePayload)
	require.True(t, ok)
	return state
}

func (c *fakeClient) expectSilence(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case msg := <-c.out:
		t.Fatalf("unexpected message %s: %+v", msg.Type, msg.Payload)
	case <-time.After(d):
	}
}

func newTestHub(t *testing.T, delay time.Duration) *useCase {
	t.Helper()
	logger := zaptest.NewLogger(t)
	u := New(opponent.New(), func() Scheduler {
		return scheduler.New(delay, logger)
	}, time.Minute, time.Hour, logger)
	t.Cleanup(u.Close)
	return u
}

// connect runs Handle in the background; closing the returned client's in
// channel ends the connection and done is closed once Handle returns.
func connect(t *testing.T, u *useCase, uuid string) (*fakeClient, <-chan struct{}) {
	t.Helper()
	client := newFakeClient(uuid)
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, u.Handle(context.Background(), client))
	}()
	t.Cleanup(func() {
		select {
		case <-done:
		default:
			close(client.in)
			<-done
		}
	})
	return client, done
}

func disconnect(t *testing.T, client *fakeClient, done <-chan struct{}) {
	t.Helper()
	close(client.in)
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("handle did not return")
	}
}

func TestHumanVsHumanFlow(t *testing.T) {
	u := newTestHub(t, time.Millisecond)
	client, _ := connect(t, u, "p1")

	client.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsHuman})
	state := client.expectState(t)
	assert.Equal(t, domain.Board{}, state.Board)
	assert.Equal(t, domain.X, state.CurrentPlayer)

	client.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 0})
	state = client.expectState(t)
	assert.Equal(t, domain.X, state.Board[0])
	assert.Equal(t, domain.O, state.CurrentPlayer)
	assert.False(t, state.ComputerThinking)

	client.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 0})
	msg := client.expect(t, domain.InvalidMove)
	assert.Equal(t, 0, msg.Payload.(domain.InvalidMovePayload).Position)

	client.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 4})
	state = client.expectState(t)
	assert.Equal(t, domain.O, state.Board[4])
	assert.Equal(t, uint8(2), state.Round)
}

func TestHumanVsComputerReply(t *testing.T) {
	u := newTestHub(t, 5*time.Millisecond)
	client, _ := connect(t, u, "p1")

	client.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsComputer})
	client.expectState(t)

	client.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 0})
	state := client.expectState(t)
	assert.Equal(t, domain.X, state.Board[0])
	assert.True(t, state.ComputerThinking)

	state = client.expectState(t)
	assert.Equal(t, domain.O, state.Board[4])
	assert.Equal(t, domain.X, state.CurrentPlayer)
	assert.False(t, state.ComputerThinking)
}

func TestHumanCannotPlayComputerSeat(t *testing.T) {
	u := newTestHub(t, time.Hour)
	client, _ := connect(t, u, "p1")

	client.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsComputer})
	client.expectState(t)
	client.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 0})
	client.expectState(t)

	client.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 1})
	msg := client.expect(t, domain.InvalidMove)
	assert.Contains(t, msg.Payload.(domain.InvalidMovePayload).Reason, "not this player's turn")

	state, ok := u.Snapshot("p1")
	require.True(t, ok)
	assert.Equal(t, domain.Empty, state.Board[1])
	assert.Equal(t, domain.O, state.CurrentPlayer)
}

func TestResetCancelsPendingComputerMove(t *testing.T) {
	u := newTestHub(t, 200*time.Millisecond)
	client, _ := connect(t, u, "p1")

	client.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsComputer})
	client.expectState(t)
	client.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 0})
	assert.True(t, client.expectState(t).ComputerThinking)

	client.send(t, domain.Restart, nil)
	state := client.expectState(t)
	assert.Equal(t, domain.Board{}, state.Board)
	assert.False(t, state.ComputerThinking)

	client.expectSilence(t, 400*time.Millisecond)
	snapshot, ok := u.Snapshot("p1")
	require.True(t, ok)
	assert.Equal(t, domain.Board{}, snapshot.Board)
	assert.Equal(t, domain.X, snapshot.CurrentPlayer)
}

func TestLeaveCancelsPendingComputerMove(t *testing.T) {
	u := newTestHub(t, 200*time.Millisecond)
	client, _ := connect(t, u, "p1")

	client.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsComputer})
	client.expectState(t)
	client.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 0})
	client.expectState(t)
	client.send(t, domain.Leave, nil)

	client.expectSilence(t, 400*time.Millisecond)
	_, started := u.Snapshot("p1")
	assert.False(t, started)

	client.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 1})
	client.expect(t, domain.InvalidMove)
}

func TestMalformedMessages(t *testing.T) {
	u := newTestHub(t, time.Millisecond)
	client, _ := connect(t, u, "p1")

	client.send(t, domain.MessageType("dance"), nil)
	client.expect(t, domain.Failure)

	client.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.GameMode("solo")})
	client.expect(t, domain.Failure)

	client.send(t, domain.Restart, nil)
	client.expect(t, domain.Failure)

	client.send(t, domain.SelectMode, map[string]any{"mode": string(domain.HumanVsHuman)})
	client.expectState(t)
}

func TestReconnectResumesGame(t *testing.T) {
	u := newTestHub(t, time.Millisecond)
	first, done := connect(t, u, "p1")
	first.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsHuman})
	first.expectState(t)
	first.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 8})
	first.expectState(t)
	disconnect(t, first, done)

	second, _ := connect(t, u, "p1")
	state := second.expectState(t)
	assert.Equal(t, domain.X, state.Board[8])
	assert.Equal(t, domain.O, state.CurrentPlayer)
	assert.Equal(t, int64(1), u.SessionCount())
}

func TestReconnectReschedulesComputerMove(t *testing.T) {
	u := newTestHub(t, 200*time.Millisecond)
	first, done := connect(t, u, "p1")
	first.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsComputer})
	first.expectState(t)
	first.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 0})
	first.expectState(t)
	disconnect(t, first, done)

	snapshot, _ := u.Snapshot("p1")
	assert.Equal(t, domain.Empty, snapshot.Board[4])

	second, _ := connect(t, u, "p1")
	assert.True(t, second.expectState(t).ComputerThinking)
	state := second.expectState(t)
	assert.Equal(t, domain.O, state.Board[4])
}

func TestRemoveIdleSessions(t *testing.T) {
	u := newTestHub(t, time.Millisecond)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	u.now = func() time.Time {
		return now
	}
	idle, idleDone := connect(t, u, "idle")
	idle.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsHuman})
	idle.expectState(t)
	disconnect(t, idle, idleDone)

	active, _ := connect(t, u, "active")
	active.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsHuman})
	active.expectState(t)
	require.Equal(t, int64(2), u.SessionCount())

	assert.Zero(t, u.removeIdleSessions())
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, u.removeIdleSessions())
	assert.Equal(t, int64(1), u.SessionCount())
	_, ok := u.Snapshot("idle")
	assert.False(t, ok)
	_, ok = u.Snapshot("active")
	assert.True(t, ok)
}

func TestMoveWithoutPositionIsRejected(t *testing.T) {
	u := newTestHub(t, time.Millisecond)
	client, _ := connect(t, u, "p1")
	client.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsHuman})
	client.expectState(t)

	client.send(t, domain.PlayerMove, nil)
	client.expect(t, domain.Failure)
	client.send(t, domain.PlayerMove, map[string]any{"cell": 3})
	client.expect(t, domain.Failure)

	state, ok := u.Snapshot("p1")
	require.True(t, ok)
	assert.Equal(t, domain.Board{}, state.Board)
	assert.Equal(t, domain.X, state.CurrentPlayer)

	client.send(t, domain.PlayerMove, map[string]any{"position": 0})
	assert.Equal(t, domain.X, client.expectState(t).Board[0])
}

func TestJanitorKeepsSessionBeingResumed(t *testing.T) {
	u := newTestHub(t, time.Millisecond)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	u.now = func() time.Time {
		return now
	}
	first, done := connect(t, u, "p1")
	first.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsHuman})
	first.expectState(t)
	disconnect(t, first, done)

	now = now.Add(2 * time.Minute)
	s, prev := u.continueSession(newFakeClient("p1"))
	assert.Nil(t, prev)
	assert.Zero(t, u.removeIdleSessions())

	_, started := u.Snapshot("p1")
	assert.True(t, started)
	assert.Equal(t, int64(1), u.SessionCount())
	_, detached := s.idleSince()
	assert.False(t, detached)
}

func TestSecondConnectionTakesOverSession(t *testing.T) {
	u := newTestHub(t, time.Millisecond)
	first, firstDone := connect(t, u, "p1")
	first.send(t, domain.SelectMode, domain.SelectModePayload{Mode: domain.HumanVsHuman})
	first.expectState(t)

	second, _ := connect(t, u, "p1")
	assert.Equal(t, domain.InProgress, second.expectState(t).Status)
	msg := first.expect(t, domain.Failure)
	assert.Equal(t, errReplaced.Error(), msg.Payload.(domain.FailurePayload).Message)

	first.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 4})
	select {
	case <-firstDone:
	case <-time.After(waitFor):
		t.Fatal("replaced connection was not dropped")
	}
	state, _ := u.Snapshot("p1")
	assert.Equal(t, domain.Board{}, state.Board)
	second.expectSilence(t, 50*time.Millisecond)

	second.send(t, domain.PlayerMove, domain.PlayerMovePayload{Position: 4})
	assert.Equal(t, domain.X, second.expectState(t).Board[4])
	assert.Equal(t, int64(1), u.SessionCount())
}
