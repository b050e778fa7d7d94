package channel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
)

// WSTransport dials the real-time server over WebSocket. Frames are JSON
// envelopes of the form {"event": "...", "data": ...}.
type WSTransport struct {
	URL    string
	Token  string
	Header http.Header
	Dialer *websocket.Dialer
}

func NewWSTransport(url, token string) *WSTransport {
	return &WSTransport{URL: url, Token: token}
}

func (t *WSTransport) Dial(ctx context.Context) (Conn, error) {
	if t.URL == "" {
		return nil, errors.New("websocket url is empty")
	}
	d := t.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}
	h := t.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if t.Token != "" {
		h.Set("Authorization", "Bearer "+t.Token)
	}
	conn, resp, err := d.DialContext(ctx, t.URL, h)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
	wmu  sync.Mutex
	once sync.Once
}

func (c *wsConn) Send(ctx context.Context, frame []byte) error {
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Receive skips frames that are not JSON envelopes with a string event.
// The data bytes are handed on exactly as they arrived.
func (c *wsConn) Receive() (Message, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			return Message{}, err
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		if !gjson.ValidBytes(data) {
			continue
		}
		event := gjson.GetBytes(data, "event")
		if event.Type != gjson.String || event.Str == "" {
			continue
		}
		var payload []byte
		if d := gjson.GetBytes(data, "data"); d.Exists() {
			payload = []byte(d.Raw)
		}
		return Message{Event: event.Str, Data: payload}, nil
	}
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = c.conn.Close()
	})
	return err
}
