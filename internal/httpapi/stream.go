package httpapi

import (
	"encoding/json"
	"net/http"

	"office-queue/internal/board"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

// NewStreamHandler serves the board push channel. Each session gets the
// recent calls replayed on connect, then live calls as they happen.
func NewStreamHandler(h *board.Hub) http.Handler {
	return sockjs.NewHandler("/board/stream", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &board.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		recent := h.Register(client)
		defer h.Unregister(client)

		for i := len(recent) - 1; i >= 0; i-- {
			payload, err := json.Marshal(recent[i])
			if err != nil {
				continue
			}
			_ = session.Send(string(payload))
		}

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		// The board is broadcast-only; drain until the peer goes away.
		for {
			if _, err := session.Recv(); err != nil {
				return
			}
		}
	})
}
