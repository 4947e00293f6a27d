package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"beverage-backend/internal/models"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedHub(t *testing.T) *Hub {
	t.Helper()
	log, _ := test.NewNullLogger()
	h := NewHub(log, nil)
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(h.Stop)
	return h
}

func connect(t *testing.T, h *Hub, id Identity) *Client {
	t.Helper()
	c := newClient(id)
	require.NoError(t, h.register(c))
	return c
}

func drain(c *Client) []Frame {
	var out []Frame
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			var f Frame
			_ = json.Unmarshal(msg, &f)
			out = append(out, f)
		default:
			return out
		}
	}
}

func notifications(t *testing.T, c *Client) []Notification {
	t.Helper()
	var out []Notification
	for _, f := range drain(c) {
		if f.Event != EventNotification {
			continue
		}
		var n Notification
		require.NoError(t, json.Unmarshal(f.Data, &n))
		out = append(out, n)
	}
	return out
}

func TestInitialRoomsByRole(t *testing.T) {
	assert.Equal(t, []string{RoomAdmins, RoomOfficeBoys}, InitialRooms(Identity{UserID: 1, Role: models.RoleAdmin}))
	assert.Equal(t, []string{RoomOfficeBoys}, InitialRooms(Identity{UserID: 2, Role: models.RoleOfficeBoy}))
	assert.Equal(t, []string{"user_3"}, InitialRooms(Identity{UserID: 3, Role: models.RoleEmployee}))
}

func TestCanJoin(t *testing.T) {
	emp := Identity{UserID: 3, Role: models.RoleEmployee}
	boy := Identity{UserID: 2, Role: models.RoleOfficeBoy}
	admin := Identity{UserID: 1, Role: models.RoleAdmin}

	assert.True(t, CanJoin(emp, "user_3"))
	assert.False(t, CanJoin(emp, "user_4"))
	assert.False(t, CanJoin(emp, RoomOfficeBoys))
	assert.False(t, CanJoin(emp, RoomAdmins))

	assert.True(t, CanJoin(boy, RoomOfficeBoys))
	assert.False(t, CanJoin(boy, RoomAdmins))
	assert.True(t, CanJoin(boy, "user_2"))

	assert.True(t, CanJoin(admin, RoomAdmins))
	assert.True(t, CanJoin(admin, "user_99"))
	assert.False(t, CanJoin(admin, "lobby"))
	assert.False(t, CanJoin(admin, "user_x"))
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	h := startedHub(t)
	admin := connect(t, h, Identity{UserID: 1, Role: models.RoleAdmin})
	boy := connect(t, h, Identity{UserID: 2, Role: models.RoleOfficeBoy})
	emp := connect(t, h, Identity{UserID: 3, Role: models.RoleEmployee})
	other := connect(t, h, Identity{UserID: 4, Role: models.RoleEmployee})

	ctx := context.Background()
	require.NoError(t, h.Broadcast(ctx, RoomOfficeBoys, Notification{Type: TypeNewOrder}))
	require.NoError(t, h.Broadcast(ctx, RoomAdmins, Notification{Type: TypeLowStock}))
	require.NoError(t, h.Broadcast(ctx, UserRoom(3), Notification{Type: TypeOrderFulfilled}))

	types := func(c *Client) []string {
		var out []string
		for _, n := range notifications(t, c) {
			out = append(out, n.Type)
		}
		return out
	}
	assert.Equal(t, []string{TypeNewOrder, TypeLowStock}, types(admin))
	assert.Equal(t, []string{TypeNewOrder}, types(boy))
	assert.Equal(t, []string{TypeOrderFulfilled}, types(emp))
	assert.Empty(t, types(other))

	assert.Equal(t, map[models.UserRole]int{
		models.RoleAdmin: 1, models.RoleOfficeBoy: 1, models.RoleEmployee: 2,
	}, h.ConnectedByRole())
}

func TestJoinLeaveAndUnregister(t *testing.T) {
	h := startedHub(t)
	admin := connect(t, h, Identity{UserID: 1, Role: models.RoleAdmin})

	h.Join(admin, UserRoom(7))
	assert.Equal(t, 1, h.RoomSize(UserRoom(7)))
	h.Leave(admin, UserRoom(7))
	assert.Equal(t, 0, h.RoomSize(UserRoom(7)))

	h.unregister(admin)
	h.unregister(admin)
	assert.Equal(t, 0, h.RoomSize(RoomAdmins))
	_, open := <-admin.send
	assert.False(t, open)
}

func TestHandleMessageEnforcesRoomRules(t *testing.T) {
	h := startedHub(t)
	emp := connect(t, h, Identity{UserID: 3, Role: models.RoleEmployee})

	h.handleMessage(emp, []byte(`{"event":"join_room","data":"office_boys"}`))
	frames := drain(emp)
	require.Len(t, frames, 1)
	assert.Equal(t, EventError, frames[0].Event)
	assert.Equal(t, 0, h.RoomSize(RoomOfficeBoys))

	h.handleMessage(emp, []byte(`{"event":"ping"}`))
	frames = drain(emp)
	require.Len(t, frames, 1)
	assert.Equal(t, EventPong, frames[0].Event)

	h.handleMessage(emp, []byte(`not json`))
	assert.Equal(t, EventError, drain(emp)[0].Event)
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	h := startedHub(t)
	emp := connect(t, h, Identity{UserID: 3, Role: models.RoleEmployee})

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer+10; i++ {
			_ = h.Broadcast(context.Background(), UserRoom(3), Notification{Type: TypeOrderFulfilled})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
	assert.Len(t, drain(emp), sendBuffer)
}

func TestStopDisconnectsAndRejects(t *testing.T) {
	log, _ := test.NewNullLogger()
	h := NewHub(log, nil)
	assert.ErrorIs(t, h.register(newClient(Identity{UserID: 1, Role: models.RoleAdmin})), ErrHubStopped)

	require.NoError(t, h.Start(context.Background()))
	c := connect(t, h, Identity{UserID: 1, Role: models.RoleAdmin})
	h.Stop()

	_, open := <-c.send
	assert.False(t, open)
	assert.Equal(t, 0, h.ConnectedByRole()[models.RoleAdmin])
}

type recorded struct {
	room string
	n    Notification
}

type recorder struct {
	mu   sync.Mutex
	sent []recorded
}

func (r *recorder) Broadcast(_ context.Context, room string, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, recorded{room, n})
	return nil
}

func TestNotifierCancellationRooms(t *testing.T) {
	log, _ := test.NewNullLogger()
	rec := &recorder{}
	n := NewNotifier(rec, log, nil)
	o := &models.Order{ID: 10, EmployeeID: 3, Beverage: &models.Beverage{ID: 1, Name: "Latte"}}

	n.OrderCancelled(context.Background(), o, 3)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "user_3", rec.sent[0].room)

	rec.sent = nil
	n.OrderCancelled(context.Background(), o, 2)
	require.Len(t, rec.sent, 2)
	assert.Equal(t, "user_3", rec.sent[0].room)
	assert.Equal(t, RoomOfficeBoys, rec.sent[1].room)
	assert.Equal(t, TypeOrderCancelled, rec.sent[1].n.Type)
	assert.Equal(t, "Latte", rec.sent[1].n.Order.BeverageName)
	assert.False(t, rec.sent[1].n.Timestamp.IsZero())
}

func TestNotifierLowStock(t *testing.T) {
	log, _ := test.NewNullLogger()
	rec := &recorder{}
	n := NewNotifier(rec, log, nil)

	n.LowStock(context.Background(), &models.Beverage{ID: 4, Name: "Mocha", StockQuantity: 0, MinStockAlert: 10})
	require.Len(t, rec.sent, 1)
	assert.Equal(t, RoomAdmins, rec.sent[0].room)
	assert.Equal(t, "Out of stock: Mocha", rec.sent[0].n.Message)
	assert.Equal(t, 0, rec.sent[0].n.Beverage.StockQuantity)
}

func TestRedisRelayDeliversToHub(t *testing.T) {
	h := startedHub(t)
	emp := connect(t, h, Identity{UserID: 3, Role: models.RoleEmployee})
	log, _ := test.NewNullLogger()
	r := NewRedisBroadcaster(nil, "", h, log)
	assert.Equal(t, DefaultRedisChannel, r.channel)

	payload, err := json.Marshal(redisMessage{Room: "user_3", Notification: Notification{Type: TypeOrderFulfilled}})
	require.NoError(t, err)
	r.relay(context.Background(), string(payload))
	r.relay(context.Background(), "{broken")

	got := notifications(t, emp)
	require.Len(t, got, 1)
	assert.Equal(t, TypeOrderFulfilled, got[0].Type)
	r.Stop()
}
