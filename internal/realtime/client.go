package realtime

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4 * 1024

	identityKey = "realtime_identity"
)

// Upgrade admits only websocket upgrade requests from an identified user.
// identify runs after authentication and extracts the caller.
func Upgrade(identify func(c *fiber.Ctx) (Identity, bool)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id, ok := identify(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
		}
		c.Locals(identityKey, id)
		return c.Next()
	}
}

// Handler serves one websocket connection until it closes.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		id, ok := conn.Locals(identityKey).(Identity)
		if !ok {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthenticated"))
			return
		}
		c := newClient(id)
		if err := h.register(c); err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
			return
		}
		log := h.log.WithFields(logrus.Fields{"client": c.id, "user_id": id.UserID, "role": id.Role})
		log.Info("websocket connected")

		h.sendTo(c, EventConnected, map[string]any{
			"message": "Connected to notification service",
			"userId":  id.UserID,
			"role":    id.Role,
			"rooms":   InitialRooms(id),
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			writePump(conn, c.send)
			// unblocks readPump when the writer gave up first
			_ = conn.Close()
		}()
		h.readPump(conn, c, log)

		h.unregister(c)
		<-done
		log.Info("websocket disconnected")
	})
}

func (h *Hub) readPump(conn *websocket.Conn, c *Client, log logrus.FieldLogger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		h.handleMessage(c, message)
	}
}

func (h *Hub) handleMessage(c *Client, message []byte) {
	var f Frame
	if err := json.Unmarshal(message, &f); err != nil {
		h.sendTo(c, EventError, map[string]string{"message": "Malformed message"})
		return
	}
	switch f.Event {
	case "join_room", "leave_room":
		var room string
		if err := json.Unmarshal(f.Data, &room); err != nil || room == "" {
			h.sendTo(c, EventError, map[string]string{"message": "Room name required"})
			return
		}
		if f.Event == "leave_room" {
			h.Leave(c, room)
			h.sendTo(c, EventLeft, map[string]string{"room": room})
			return
		}
		if !CanJoin(c.identity, room) {
			h.sendTo(c, EventError, map[string]string{"message": "Not allowed to join " + room})
			return
		}
		h.Join(c, room)
		h.sendTo(c, EventJoined, map[string]string{"room": room})
	case "ping":
		h.sendTo(c, EventPong, map[string]time.Time{"timestamp": time.Now().UTC()})
	default:
		h.sendTo(c, EventError, map[string]string{"message": "Unknown event " + f.Event})
	}
}

func writePump(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
