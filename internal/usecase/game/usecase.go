package game

import (
	"github.com/kiryu-dev/tictactoe-web/internal/domain"
)

// Reset returns a fresh game in the given mode with X to move.
func Reset(mode domain.GameMode) domain.GameState {
	return domain.GameState{
		CurrentPlayer: domain.X,
		Status:        domain.InProgress,
		Winner:        domain.Empty,
		Mode:          mode,
	}
}

// ApplyMove places player's mark at pos and returns the next state. On any
// rejection the given state is returned untouched with an error wrapping
// ErrInvalidMove.
func ApplyMove(state domain.GameState, pos int, player domain.Cell) (domain.GameState, error) {
	if err := validateMove(state, pos, player); err != nil {
		return state, err
	}
	next := state
	next.Board[pos] = player
	next.Round++
	if line, winner, ok := EvaluateWin(next.Board); ok {
		next.Status = domain.Won
		next.Winner = winner
		next.WinningLine = &line
		return next, nil
	}
	if EvaluateDraw(next.Board) {
		next.Status = domain.Draw
		return next, nil
	}
	next.CurrentPlayer = player.Opponent()
	return next, nil
}

func validateMove(state domain.GameState, pos int, player domain.Cell) error {
	switch {
	case pos < 0 || pos >= domain.BoardSize:
		return invalidMove(ErrOutOfRange, pos)
	case state.Status != domain.InProgress:
		return invalidMove(ErrGameOver, pos)
	case player != state.CurrentPlayer:
		return invalidMove(ErrWrongPlayer, pos)
	case state.Board[pos] != domain.Empty:
		return invalidMove(ErrCellOccupied, pos)
	}
	return nil
}

// EvaluateWin returns the first completed line in domain.Lines order and the
// mark that completed it.
func EvaluateWin(board domain.Board) (domain.Line, domain.Cell, bool) {
	for _, line := range domain.Lines {
		first := board[line[0]]
		if first == domain.Empty {
			continue
		}
		if board[line[1]] == first && board[line[2]] == first {
			return line, first, true
		}
	}
	return domain.Line{}, domain.Empty, false
}

func EvaluateDraw(board domain.Board) bool {
	if _, _, ok := EvaluateWin(board); ok {
		return false
	}
	for _, cell := range board {
		if cell == domain.Empty {
			return false
		}
	}
	return true
}

// AvailableCells lists empty positions in ascending order.
func AvailableCells(board domain.Board) []int {
	cells := make([]int, 0, domain.BoardSize)
	for i, cell := range board {
		if cell == domain.Empty {
			cells = append(cells, i)
		}
	}
	return cells
}
