// Package realtime pushes notifications to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"beverage-backend/internal/metrics"
	"beverage-backend/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RoomAdmins     = "admins"
	RoomOfficeBoys = "office_boys"

	EventNotification = "notification"
	EventConnected    = "connected"
	EventError        = "error"
	EventJoined       = "joined_room"
	EventLeft         = "left_room"
	EventPong         = "pong"

	sendBuffer = 64
)

var ErrHubStopped = errors.New("hub stopped")

// UserRoom is the personal room of one user.
func UserRoom(userID uint) string {
	return "user_" + strconv.FormatUint(uint64(userID), 10)
}

func parseUserRoom(room string) (uint, bool) {
	rest, ok := strings.CutPrefix(room, "user_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Notification is the payload of every "notification" event.
type Notification struct {
	Type      string           `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Order     *OrderSummary    `json:"order,omitempty"`
	Beverage  *BeverageSummary `json:"beverage,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Frame is the wire shape of a server or client message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// Broadcaster delivers a notification to everyone in a room.
type Broadcaster interface {
	Broadcast(ctx context.Context, room string, n Notification) error
}

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID uint
	Role   models.UserRole
	Name   string
}

// InitialRooms lists the rooms a connection joins on connect.
func InitialRooms(id Identity) []string {
	switch id.Role {
	case models.RoleAdmin:
		return []string{RoomAdmins, RoomOfficeBoys}
	case models.RoleOfficeBoy:
		return []string{RoomOfficeBoys}
	case models.RoleEmployee:
		return []string{UserRoom(id.UserID)}
	}
	return nil
}

// CanJoin reports whether id may subscribe to room on request.
func CanJoin(id Identity, room string) bool {
	switch room {
	case RoomAdmins:
		return id.Role == models.RoleAdmin
	case RoomOfficeBoys:
		return id.Role.IsStaff()
	}
	if uid, ok := parseUserRoom(room); ok {
		return uid == id.UserID || id.Role == models.RoleAdmin
	}
	return false
}

type Client struct {
	id       string
	identity Identity
	send     chan []byte
}

func newClient(id Identity) *Client {
	return &Client{id: uuid.NewString(), identity: id, send: make(chan []byte, sendBuffer)}
}

// Hub tracks connections and their room memberships.
type Hub struct {
	log     logrus.FieldLogger
	metrics *metrics.Collector

	mu      sync.RWMutex
	running bool
	clients map[*Client]map[string]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub(log logrus.FieldLogger, m *metrics.Collector) *Hub {
	return &Hub{
		log:     log,
		metrics: m,
		clients: make(map[*Client]map[string]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Start opens the hub for connections.
func (h *Hub) Start(context.Context) error {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	h.log.Info("realtime hub started")
	return nil
}

// Stop disconnects every client and refuses new ones.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.log.Info("realtime hub stopped")
}

func (h *Hub) register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return ErrHubStopped
	}
	h.clients[c] = make(map[string]struct{})
	for _, room := range InitialRooms(c.identity) {
		h.joinLocked(c, room)
	}
	h.metrics.ConnectionOpened(string(c.identity.Role))
	return nil
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	rooms, ok := h.clients[c]
	if !ok {
		return
	}
	for room := range rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.ConnectionClosed(string(c.identity.Role))
}

// Join adds c to room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.joinLocked(c, room)
	}
}

// Leave removes c from room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.leaveLocked(c, room)
	}
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	h.clients[c][room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.clients[c], room)
}

// Broadcast sends n to every client in room. Clients whose buffer is full
// miss the message.
func (h *Hub) Broadcast(_ context.Context, room string, n Notification) error {
	msg, err := encodeFrame(EventNotification, n)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		h.trySend(c, msg)
	}
	h.metrics.NotificationSent(n.Type)
	return nil
}

// sendTo writes a direct frame to one client.
func (h *Hub) sendTo(c *Client, event string, data any) {
	msg, err := encodeFrame(event, data)
	if err != nil {
		h.log.WithError(err).Warn("realtime frame not encoded")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.trySend(c, msg)
	}
}

func (h *Hub) trySend(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.WithFields(logrus.Fields{
			"client":  c.id,
			"user_id": c.identity.UserID,
		}).Warn("websocket buffer full, dropping message")
	}
}

// ConnectedByRole counts open connections per role.
func (h *Hub) ConnectedByRole() map[models.UserRole]int {
	out := make(map[models.UserRole]int, len(models.AllRoles))
	for _, r := range models.AllRoles {
		out[r] = 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		out[c.identity.Role]++
	}
	return out
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
