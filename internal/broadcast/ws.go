// internal/broadcast/ws.go
//
// Websocket recipient for the hub.
//
// Frames are JSON: {"text", "format": "markdown"|"plain"}.
// A connection opened with plain format rejects rich sends with
// ErrRichUnsupported so the hub falls back to plain text.

package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = time.Minute
	pingPeriod = pongWait * 9 / 10
)

type frame struct {
	Text   string `json:"text"`
	Format string `json:"format"`
}

// Conn adapts a websocket connection to the Recipient interface.
type Conn struct {
	id      string
	channel int64
	plain   bool
	ws      *websocket.Conn
	wmu     sync.Mutex // gorilla allows one concurrent writer
}

// NewConn wraps ws. If plain is true the connection only accepts plain text.
func NewConn(id string, ws *websocket.Conn, channel int64, plain bool) *Conn {
	return &Conn{id: id, channel: channel, plain: plain, ws: ws}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) Channel() int64 { return c.channel }

func (c *Conn) Send(ctx context.Context, text string, markdown bool) error {
	if markdown && c.plain {
		return ErrRichUnsupported
	}
	f := frame{Text: text, Format: "plain"}
	if markdown {
		f.Format = "markdown"
	}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Conn) write(kind int, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(kind, data)
}

// Serve registers c with the hub and blocks until the peer disconnects or
// ctx is done. Incoming frames are discarded; pings keep the connection alive.
func (h *Hub) Serve(ctx context.Context, c *Conn) {
	h.Add(c)
	defer func() {
		h.Remove(c.id)
		_ = c.ws.Close()
	}()

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			return
		case <-done:
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
