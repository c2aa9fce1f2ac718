package domain

// In HumanVsComputer the human always holds X and the computer O.
const (
	HumanMark    = X
	ComputerMark = O
)

// HumanSeat returns the mark a human input is played with in the given state.
func HumanSeat(state GameState) Cell {
	if state.Mode == HumanVsComputer {
		return HumanMark
	}
	return state.CurrentPlayer
}
