package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wavechat/chat-service/internal/domain"
	"github.com/wavechat/chat-service/internal/service"
	"github.com/wavechat/chat-service/internal/transport/ws"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms []domain.Room
}

func (f *fakeRoomRepo) Create(_ context.Context, room *domain.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room.ID = uuid.NewString()
	room.CreatedAt = time.Now().UTC()
	f.rooms = append(f.rooms, *room)
	return nil
}

func (f *fakeRoomRepo) Get(_ context.Context, id string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rooms {
		if f.rooms[i].ID == id {
			rm := f.rooms[i]
			return &rm, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (f *fakeRoomRepo) List(_ context.Context, limit int, _ string) ([]domain.Room, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Room, len(f.rooms))
	copy(out, f.rooms)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, "", nil
}

func (f *fakeRoomRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.rooms[:0]
	for _, rm := range f.rooms {
		if rm.ID != id {
			out = append(out, rm)
		}
	}
	f.rooms = out
	return nil
}

type fakeMessageRepo struct {
	mu    sync.Mutex
	err   error
	saved []domain.Message
}

func (f *fakeMessageRepo) Create(_ context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	f.saved = append(f.saved, *m)
	return nil
}

func (f *fakeMessageRepo) ListByRoom(_ context.Context, roomID string, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, m := range f.saved {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type testEnv struct {
	ts       *httptest.Server
	hub      *ws.Hub
	roomRepo *fakeRoomRepo
	msgRepo  *fakeMessageRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	roomRepo := &fakeRoomRepo{}
	msgRepo := &fakeMessageRepo{}
	hub := ws.NewHub()
	wsSrv := ws.NewServer(hub, service.NewMessageService(msgRepo), ws.Config{
		PingInterval: time.Second,
		WriteTimeout: time.Second,
	})
	h := NewHandler(service.NewRoomService(roomRepo), service.NewMessageService(msgRepo), hub)
	ts := httptest.NewServer(NewRouter(h, wsSrv, nil))
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, hub: hub, roomRepo: roomRepo, msgRepo: msgRepo}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.ts.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) subscribe(t *testing.T, room string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws/rooms/" + room
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		_, conns := e.hub.Stats()
		return conns > 0
	}, 2*time.Second, 5*time.Millisecond)
	return conn
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/rooms", CreateRoomRequest{Name: "general"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	room := decodeBody[RoomItem](t, resp)
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "general", room.Name)
	assert.False(t, room.CreatedAt.IsZero())
}

func TestCreateRoom_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.ts.URL+"/api/rooms", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRoom_EmptyName(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/rooms", CreateRoomRequest{Name: ""})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteRoom(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/rooms", CreateRoomRequest{Name: "general"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	room := decodeBody[RoomItem](t, resp)

	req, err := http.NewRequest(http.MethodDelete, env.ts.URL+"/api/rooms/"+room.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	getResp, err := http.Get(env.ts.URL + "/api/rooms/" + room.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestGetRoom_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/api/rooms/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRooms(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"general", "random"} {
		resp := env.postJSON(t, "/api/rooms", CreateRoomRequest{Name: name})
		resp.Body.Close()
	}

	resp, err := http.Get(env.ts.URL + "/api/rooms")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decodeBody[RoomsListResponse](t, resp)
	assert.Len(t, list.Items, 2)
}

func TestPostMessage_BroadcastsToSubscriber(t *testing.T) {
	env := newTestEnv(t)

	sub := env.subscribe(t, "general")

	resp := env.postJSON(t, "/api/rooms/general/messages",
		CreateMessageRequest{Sender: "alice", Content: "hi"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	posted := decodeBody[MessageItem](t, resp)
	assert.NotEmpty(t, posted.ID)
	assert.Equal(t, "general", posted.RoomID)

	require.NoError(t, sub.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame ws.MessageFrame
	require.NoError(t, sub.ReadJSON(&frame))
	assert.Equal(t, posted.ID, frame.ID)
	assert.Equal(t, "alice", frame.Sender)
	assert.Equal(t, "hi", frame.Content)
}

func TestPostMessage_NoCrossRoomBroadcast(t *testing.T) {
	env := newTestEnv(t)

	other := env.subscribe(t, "random")

	resp := env.postJSON(t, "/api/rooms/general/messages",
		CreateMessageRequest{Sender: "alice", Content: "hi"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, other.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := other.ReadMessage()
	require.Error(t, err, "subscriber of another room must not receive the broadcast")
}

func TestPostMessage_PersistFailureSkipsBroadcast(t *testing.T) {
	env := newTestEnv(t)

	sub := env.subscribe(t, "general")

	env.msgRepo.mu.Lock()
	env.msgRepo.err = errors.New("store down")
	env.msgRepo.mu.Unlock()

	resp := env.postJSON(t, "/api/rooms/general/messages",
		CreateMessageRequest{Sender: "alice", Content: "hi"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, sub.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := sub.ReadMessage()
	require.Error(t, err, "failed persist must not reach subscribers")
}

func TestListMessages_AscendingWithDefaultLimit(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		resp := env.postJSON(t, "/api/rooms/general/messages",
			CreateMessageRequest{Sender: "alice", Content: fmt.Sprintf("msg-%d", i)})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(env.ts.URL + "/api/rooms/general/messages")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decodeBody[MessagesListResponse](t, resp)
	require.Len(t, list.Items, 3)
	for i, item := range list.Items {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), item.Content)
		assert.Equal(t, "general", item.RoomID)
	}
}

func TestProbes(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "chat api running", body["message"])

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(env.ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
