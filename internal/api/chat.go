package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soulsync/soulsync/internal/companion"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 64 << 10
)

// ChatFrame is the WebSocket wire format in both directions. Clients send
// {"type":"message","text":"..."}; the server answers with "message" frames
// carrying a ChatMessage, or "error" frames for rejected input.
type ChatFrame struct {
	Type    string                 `json:"type"`
	Text    string                 `json:"text,omitempty"`
	Message *companion.ChatMessage `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

const (
	FrameMessage = "message"
	FrameError   = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     localOrigin,
}

// localOrigin accepts non-browser clients (no Origin header) and pages
// served from the loopback interface.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// handleChatWS binds one chat session to one WebSocket connection.
func handleChatWS(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.App.NewChatSession()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to start chat: %v", err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			slog.Debug("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(wsMaxMessageSize)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := &chatConn{conn: conn}
		var wg sync.WaitGroup
		defer wg.Wait()

		for {
			var in ChatFrame
			if err := conn.ReadJSON(&in); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("chat connection closed", "error", err)
				}
				cancel()
				return
			}
			if in.Type != FrameMessage {
				c.write(ChatFrame{Type: FrameError, Error: "unsupported frame type " + in.Type})
				continue
			}

			wg.Add(1)
			go func(text string) {
				defer wg.Done()
				msg, err := sess.Send(ctx, text)
				if err != nil {
					c.write(ChatFrame{Type: FrameError, Error: err.Error()})
					return
				}
				if errors.Is(ctx.Err(), context.Canceled) {
					return
				}
				c.write(ChatFrame{Type: FrameMessage, Message: &msg})
			}(in.Text)
		}
	}
}

// chatConn serializes writes; gorilla connections allow one writer at a time.
type chatConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *chatConn) write(f ChatFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := c.conn.WriteJSON(f); err != nil {
		slog.Debug("chat write failed", "error", err)
	}
}
