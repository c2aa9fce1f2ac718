package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kiryu-dev/tictactoe-web/internal/domain"
	"github.com/kiryu-dev/tictactoe-web/pkg/utils"
	"github.com/pkg/errors"
)

var (
	cellStyle = lipgloss.NewStyle().Width(3).Align(lipgloss.Center)
	xStyle    = cellStyle.Foreground(lipgloss.Color("#58a6ff")).Bold(true)
	oStyle    = cellStyle.Foreground(lipgloss.Color("#f85149")).Bold(true)
	winStyle  = cellStyle.Background(lipgloss.Color("#e3b341")).Foreground(lipgloss.Color("#0A0A18"))
	hintStyle = cellStyle.Foreground(lipgloss.Color("#8b949e"))
	boxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#30363d"))
)

func main() {
	host := flag.String("host", "localhost:8080", "server address")
	mode := flag.String("mode", string(domain.HumanVsComputer), "game mode: human-human or human-computer")
	key := flag.String("key", "", "client key; reuse it to resume a game")
	flag.Parse()
	if *key == "" {
		*key = uuid.NewString()
	}
	u := url.URL{Scheme: "ws", Host: *host, Path: "/game"}
	header := http.Header{domain.ClientUuidHeader: []string{*key}}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial: " + err.Error())
	}
	defer func() {
		_ = conn.Close()
	}()
	client := newClient(conn)
	if err := client.play(domain.GameMode(*mode)); err != nil {
		log.Fatal(err)
	}
}

type client struct {
	conn    *websocket.Conn
	scanner *bufio.Scanner
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:    conn,
		scanner: bufio.NewScanner(os.Stdin),
	}
}

func (c *client) play(mode domain.GameMode) error {
	err := c.send(domain.Message{Type: domain.SelectMode, Payload: domain.SelectModePayload{Mode: mode}})
	if err != nil {
		return errors.WithMessage(err, "select mode")
	}
	for {
		msg := new(domain.Message)
		if err := c.conn.ReadJSON(msg); err != nil {
			return errors.WithMessage(err, "read json msg")
		}
		switch msg.Type {
		case domain.StateUpdate:
			finished, err := c.handleState(msg)
			if err != nil {
				return errors.WithMessage(err, "handle state")
			}
			if finished {
				return nil
			}
		case domain.InvalidMove:
			v, err := utils.DecodePayload[domain.InvalidMovePayload](msg.Payload)
			if err != nil {
				return errors.WithMessage(err, "unmarshal json to 'InvalidMovePayload' type")
			}
			fmt.Println("can't play there: " + v.Reason)
			if err := c.requestMove(); err != nil {
				return errors.WithMessage(err, "request move")
			}
		case domain.Failure:
			v, err := utils.DecodePayload[domain.FailurePayload](msg.Payload)
			if err != nil {
				return errors.WithMessage(err, "unmarshal json to 'FailurePayload' type")
			}
			return errors.New(v.Message)
		}
	}
}

func (c *client) handleState(msg *domain.Message) (isGameFinished bool, err error) {
	state, err := utils.DecodePayload[domain.StatePayload](msg.Payload)
	if err != nil {
		return false, errors.WithMessage(err, "unmarshal json to 'StatePayload' type")
	}
	fmt.Print("\033[H\033[J")
	fmt.Println(renderBoard(state))
	switch {
	case state.Status == domain.Won:
		fmt.Printf("%s wins\n", state.Winner)
		return true, nil
	case state.Status == domain.Draw:
		fmt.Println("draw")
		return true, nil
	case state.ComputerThinking:
		fmt.Println("computer is thinking...")
		return false, nil
	}
	fmt.Printf("%s to move\n", state.CurrentPlayer)
	return false, c.requestMove()
}

func (c *client) requestMove() error {
	var (
		pos int
		err error
	)
	for {
		fmt.Printf("your move (1-9): ")
		pos, err = c.selectCell()
		if err == nil {
			break
		}
		if errors.Is(err, errInputClosed) {
			return err
		}
		fmt.Print("\033[F\033[K")
	}
	return c.send(domain.Message{Type: domain.PlayerMove, Payload: domain.PlayerMovePayload{Position: pos}})
}

var errInputClosed = errors.New("input closed")

func (c *client) selectCell() (int, error) {
	if ok := c.scanner.Scan(); !ok {
		if err := c.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, errInputClosed
	}
	pos, err := strconv.Atoi(strings.TrimSpace(c.scanner.Text()))
	if err != nil {
		return 0, err
	}
	return pos - 1, nil
}

func (c *client) send(msg domain.Message) error {
	if err := c.conn.WriteJSON(msg); err != nil {
		return errors.WithMessage(err, "write json msg")
	}
	return nil
}

func renderBoard(state domain.StatePayload) string {
	winning := make(map[int]bool)
	if state.WinningLine != nil {
		for _, pos := range state.WinningLine {
			winning[pos] = true
		}
	}
	rows := make([]string, 0, 3)
	for r := 0; r < 3; r++ {
		cells := make([]string, 0, 3)
		for col := 0; col < 3; col++ {
			pos := r*3 + col
			cells = append(cells, renderCell(state.Board[pos], pos, winning[pos]))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderCell(cell domain.Cell, pos int, winning bool) string {
	switch {
	case winning:
		return winStyle.Render(cell.String())
	case cell == domain.X:
		return xStyle.Render(cell.String())
	case cell == domain.O:
		return oStyle.Render(cell.String())
	default:
		return hintStyle.Render(strconv.Itoa(pos + 1))
	}
}
