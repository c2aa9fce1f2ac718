package opponent

import (
	"math/rand"

	"github.com/kiryu-dev/tictactoe-web/internal/domain"
	"github.com/kiryu-dev/tictactoe-web/internal/usecase/game"
	"github.com/pkg/errors"
)

// ErrPolicyPrecondition means the policy was asked to move on a board where
// no move is legal. Callers are expected to check the game state first.
var ErrPolicyPrecondition = errors.New("opponent policy precondition violated")

const center = 4

var (
	corners = [4]int{0, 2, 6, 8}
	sides   = [4]int{1, 3, 5, 7}

	// 6->2 and 8->0 repeat the first two pairs mirrored; the scan order makes
	// a human on corner 0 take precedence over one on corner 2.
	oppositeCorners = [4][2]int{{0, 8}, {2, 6}, {6, 2}, {8, 0}}
)

type Option func(u *useCase)

// WithRandom replaces the source used by the last-resort random pick.
func WithRandom(intn func(n int) int) Option {
	return func(u *useCase) {
		u.intn = intn
	}
}

// useCase is a fixed priority chain of heuristics. It keeps no state between
// calls.
type useCase struct {
	intn func(n int) int
}

func New(opts ...Option) *useCase {
	u := &useCase{intn: rand.Intn}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ChooseMove picks the computer's cell: win, block, center, opposite corner,
// any corner, any side, then random.
func (u *useCase) ChooseMove(board domain.Board, computer, human domain.Cell) (int, error) {
	if _, _, ok := game.EvaluateWin(board); ok {
		return 0, errors.WithMessage(ErrPolicyPrecondition, "board already has a completed line")
	}
	available := game.AvailableCells(board)
	if len(available) == 0 {
		return 0, errors.WithMessage(ErrPolicyPrecondition, "board has no empty cell")
	}
	if pos, ok := completingCell(board, computer); ok {
		return pos, nil
	}
	if pos, ok := completingCell(board, human); ok {
		return pos, nil
	}
	if board[center] == domain.Empty {
		return center, nil
	}
	for _, pair := range oppositeCorners {
		if board[pair[0]] == human && board[pair[1]] == domain.Empty {
			return pair[1], nil
		}
	}
	if pos, ok := firstEmpty(board, corners); ok {
		return pos, nil
	}
	if pos, ok := firstEmpty(board, sides); ok {
		return pos, nil
	}
	return available[u.intn(len(available))], nil
}

// completingCell finds the first line holding two of mark and one empty cell.
func completingCell(board domain.Board, mark domain.Cell) (int, bool) {
	for _, line := range domain.Lines {
		count, empty := 0, -1
		for _, pos := range line {
			switch board[pos] {
			case mark:
				count++
			case domain.Empty:
				empty = pos
			}
		}
		if count == 2 && empty >= 0 {
			return empty, true
		}
	}
	return 0, false
}

func firstEmpty(board domain.Board, candidates [4]int) (int, bool) {
	for _, pos := range candidates {
		if board[pos] == domain.Empty {
			return pos, true
		}
	}
	return 0, false
}
