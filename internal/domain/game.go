package domain

type Cell byte

// The zero Cell is Empty, so a zero Board is an empty board.
const (
	Empty = Cell(0)
	X     = Cell('X')
	O     = Cell('O')
)

func (c Cell) String() string {
	if c == Empty {
		return " "
	}
	return string(rune(c))
}

// Opponent returns the other mark. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

const BoardSize = 9

type Board [BoardSize]Cell

type Line [3]int

// Lines is scanned in this exact order by both the win check and the opponent.
var Lines = [8]Line{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type GameMode string

const (
	HumanVsHuman    = GameMode("human-human")
	HumanVsComputer = GameMode("human-computer")
)

func (m GameMode) Valid() bool {
	return m == HumanVsHuman || m == HumanVsComputer
}

type Status byte

const (
	InProgress = Status(iota)
	Won
	Draw
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Won:
		return "won"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

type GameState struct {
	Board         Board
	CurrentPlayer Cell
	Status        Status
	Winner        Cell
	WinningLine   *Line
	Mode          GameMode
	Round         uint8
}

// ComputerTurn reports whether seat O is due to be played by the computer.
func (s GameState) ComputerTurn() bool {
	return s.Mode == HumanVsComputer && s.Status == InProgress && s.CurrentPlayer == ComputerMark
}
