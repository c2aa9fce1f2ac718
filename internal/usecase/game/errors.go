package game

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidMove is wrapped by every rejection of ApplyMove, next to the
	// specific reason below.
	ErrInvalidMove = errors.New("invalid move")

	ErrOutOfRange   = errors.New("cell position out of range")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrWrongPlayer  = errors.New("not this player's turn")
	ErrGameOver     = errors.New("game is not in progress")
)

func invalidMove(reason error, pos int) error {
	return fmt.Errorf("%w at position %d: %w", ErrInvalidMove, pos, reason)
}
