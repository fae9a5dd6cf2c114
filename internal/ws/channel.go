// Package ws hosts the websocket endpoints and the per-connection
// channel abstraction both coordinators send through.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/quizspire/quizspire-server/internal/obslog"
	"github.com/quizspire/quizspire-server/pkg/rtproto"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

// Channel is one connected client. Sends are buffered and written by a
// single pump goroutine; a full buffer drops the event rather than
// blocking a coordinator holding its lock.
type Channel struct {
	id     string
	conn   *websocket.Conn
	out    chan rtproto.Event
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newChannel(parent context.Context, conn *websocket.Conn) *Channel {
	ctx, cancel := context.WithCancel(parent)
	c := &Channel{
		id:     uuid.NewString(),
		conn:   conn,
		out:    make(chan rtproto.Event, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.writePump()
	return c
}

func (c *Channel) ID() string { return c.id }

// Send queues an outbound event. Safe from any goroutine; drops when
// the channel is closed or the buffer is full.
func (c *Channel) Send(event string, payload any) {
	ev, err := rtproto.NewEvent(event, payload)
	if err != nil {
		obslog.L().Warn("ws_marshal_error", zap.String("channel", c.id), zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case <-c.ctx.Done():
	case c.out <- ev:
	default:
		obslog.L().Warn("ws_send_drop", zap.String("channel", c.id), zap.String("event", event))
	}
}

func (c *Channel) writePump() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.out:
			wctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, ev)
			cancel()
			if err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Channel) close() {
	c.once.Do(func() {
		c.cancel()
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	})
}
