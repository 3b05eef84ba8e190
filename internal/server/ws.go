package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeWait = time.Second

// command is a message a websocket client may send.
type command struct {
	Action string `json:"action"`
}

// LevelsHandler streams level snapshots to websocket clients. Clients may
// send {"action":"reset"} to trigger a reset.
type LevelsHandler struct {
	controller Controller
	logger     *slog.Logger
}

// NewLevelsHandler creates a new LevelsHandler for the given controller.
func NewLevelsHandler(c Controller, logger *slog.Logger) *LevelsHandler {
	return &LevelsHandler{controller: c, logger: logger}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LevelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.controller.Subscribe()
	defer cancel()

	// Reader: handles client commands and notices disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd command
			if json.Unmarshal(data, &cmd) != nil {
				continue
			}
			switch cmd.Action {
			case "reset":
				h.controller.Reset()
			default:
				h.logger.Debug("ignoring websocket command", "action", cmd.Action)
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case lv, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "control loop stopped"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(lv); err != nil {
				return
			}
		}
	}
}
