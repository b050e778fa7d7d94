package ws

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrClientClosed = errors.New("client closed")
	// ErrSlowConsumer means the client stopped draining its queue and was
	// closed. It reconnects and re-announces its rooms on its own.
	ErrSlowConsumer = errors.New("client queue full")
)

// RuntimeClient is one accepted WebSocket connection. Writes go through a
// buffered queue drained by a single writer goroutine.
type RuntimeClient struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	id     string
	out    chan []byte
	once   sync.Once
}

func NewClient(parent context.Context, ws *WebSocket, id string) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		id:     id,
		out:    make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ID() string { return c.id }

func (c *RuntimeClient) Done() <-chan struct{} { return c.ctx.Done() }

// Send queues data for the writer without blocking. A full queue closes the
// client, so one stalled socket never holds up a broadcast.
func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	if c.ctx.Err() != nil {
		return ErrClientClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case c.out <- data:
		return nil
	default:
		c.Close()
		return ErrSlowConsumer
	}
}

func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			if err := c.ws.WriteMessage(data); err != nil {
				return
			}
		}
	}
}
