package ws

import (
	"github.com/gorilla/websocket"
	"github.com/kiryu-dev/tictactoe-web/internal/domain"
	"github.com/kiryu-dev/tictactoe-web/pkg/utils"
	"github.com/pkg/errors"
)

type client struct {
	conn *websocket.Conn
	uuid string
}

func newClient(conn *websocket.Conn, uuid string) client {
	return client{conn: conn, uuid: uuid}
}

func (c client) WriteMessage(msg domain.Message) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return errors.WithMessage(err, "websocket conn next writer")
	}
	if err := utils.WriteJson(w, msg); err != nil {
		_ = w.Close()
		return errors.WithMessage(err, "websocket conn write json")
	}
	return w.Close()
}

func (c client) ReadMessage() (domain.Message, error) {
	_, r, err := c.conn.NextReader()
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure):
		return domain.Message{}, domain.ErrConnectionClosed
	case err != nil:
		return domain.Message{}, errors.WithMessage(err, "websocket conn next reader")
	}
	msg, err := utils.ReadJson[domain.Message](r)
	if err != nil {
		return domain.Message{}, errors.WithMessage(domain.ErrMalformedMessage, err.Error())
	}
	return msg, nil
}

func (c client) Uuid() string {
	return c.uuid
}

func (c client) Close() {
	_ = c.conn.Close()
}
