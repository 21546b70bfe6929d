// wsbridge serves bridge commands over a websocket, one JSON response per
// JSON command, in the order they were received.
package wsbridge

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/silbinarywolf/simple-game/internal/bridge"
	"github.com/silbinarywolf/simple-game/internal/logging"
)

// Path is where the handler is mounted by the bridge server
const Path = "/ws"

var upgrader = websocket.Upgrader{
	// the bridge only listens on localhost, test runners don't send an Origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	dispatcher *bridge.Dispatcher
	log        *logging.Logger
}

var _ http.Handler = new(Handler)

func New(dispatcher *bridge.Dispatcher, logger *logging.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		log:        logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	h.log.Info("websocket connection established", "remote", r.RemoteAddr)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read failed", "err", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.log.Info("message received", "text", string(data))

		resp := h.dispatcher.HandleJSON(r.Context(), data)
		if err := conn.WriteJSON(&resp); err != nil {
			h.log.Warn("websocket write failed", "err", err)
			break
		}
	}
	h.log.Info("websocket connection closed", "remote", r.RemoteAddr)
}
