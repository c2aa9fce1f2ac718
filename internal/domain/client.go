package domain

import (
	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownCell      = errors.New("unknown cell value")
	ErrUnknownStatus    = errors.New("unknown game status")
)

const (
	ClientUuidHeader = "X-Client-Key"
	ClientUuidCookie = "client_id"
)

type MessageType string

const (
	SelectMode  = MessageType("select_mode")
	PlayerMove  = MessageType("move")
	Restart     = MessageType("restart")
	Leave       = MessageType("leave")
	StateUpdate = MessageType("state")
	InvalidMove = MessageType("invalid_move")
	Failure     = MessageType("error")
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

type SelectModePayload struct {
	Mode GameMode `json:"mode"`
}

type PlayerMovePayload struct {
	Position int `json:"position"`
}

type StatePayload struct {
	Board            Board    `json:"board"`
	CurrentPlayer    Cell     `json:"current_player"`
	Status           Status   `json:"status"`
	Winner           Cell     `json:"winner"`
	WinningLine      *Line    `json:"winning_line"`
	Mode             GameMode `json:"mode"`
	Round            uint8    `json:"round"`
	ComputerThinking bool     `json:"computer_thinking"`
}

type InvalidMovePayload struct {
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

type FailurePayload struct {
	Message string `json:"message"`
}

type HealthCheckResponse struct {
	Status   string `json:"status"`
	Sessions int64  `json:"sessions"`
}

// NewStatePayload flattens a game state for the rendering side.
func NewStatePayload(state GameState, thinking bool) StatePayload {
	return StatePayload{
		Board:            state.Board,
		CurrentPlayer:    state.CurrentPlayer,
		Status:           state.Status,
		Winner:           state.Winner,
		WinningLine:      state.WinningLine,
		Mode:             state.Mode,
		Round:            state.Round,
		ComputerThinking: thinking,
	}
}

func (c Cell) MarshalText() ([]byte, error) {
	switch c {
	case X, O:
		return []byte{byte(c)}, nil
	case Empty:
		return []byte{}, nil
	default:
		return nil, errors.WithMessagef(ErrUnknownCell, "cell %d", c)
	}
}

func (c *Cell) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", " ":
		*c = Empty
	case "X":
		*c = X
	case "O":
		*c = O
	default:
		return errors.WithMessagef(ErrUnknownCell, "cell %q", text)
	}
	return nil
}

func (s Status) MarshalText() ([]byte, error) {
	if s > Draw {
		return nil, errors.WithMessagef(ErrUnknownStatus, "status %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, v := range []Status{InProgress, Won, Draw} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return errors.WithMessagef(ErrUnknownStatus, "status %q", text)
}

type Client interface {
	WriteMessage(msg Message) error
	ReadMessage() (Message, error)
	Uuid() string
}
