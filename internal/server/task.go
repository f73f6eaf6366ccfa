package server

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// connTask は受け付けた1つの接続を処理するタスク
type connTask struct {
	id       uuid.UUID
	conn     net.Conn
	handler  *Handler
	accepted time.Time
}

func newConnTask(conn net.Conn, handler *Handler) *connTask {
	return &connTask{
		id:       uuid.New(),
		conn:     conn,
		handler:  handler,
		accepted: time.Now(),
	}
}

// Run は接続を処理する
func (t *connTask) Run() {
	t.handler.handle(t.id.String(), t.conn, t.accepted)
}
