package http

import (
	"net"
	"testing"
	"time"

	"thing-counter/internal/counter/domain/model"
	apperrors "thing-counter/internal/shared/errors"
	"thing-counter/internal/shared/eventbus"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func startWSServer(t *testing.T, uc *mockCounterUsecase) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	NewWSHandler(uc, "/ws/v1/listen", eventbus.NoopLogger()).RegisterRoutes(app, fakeProtect)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/ws/v1/listen"
}

func dial(t *testing.T, url string) *fastws.Conn {
	t.Helper()
	conn, _, err := fastws.DefaultDialer.Dial(url+"?uid=u1", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *fastws.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWS_SubscribeStreamsSnapshots(t *testing.T) {
	snapshots := make(chan model.Snapshot, 2)
	uc := &mockCounterUsecase{}
	uc.On("Watch", mock.Anything, "u1").Return((<-chan model.Snapshot)(snapshots), nil)
	conn := dial(t, startWSServer(t, uc))

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionSubscribe, Path: "users/u1/counters"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscriptionConfirmed, msg.Type)
	assert.Equal(t, "users/u1/counters", msg.Path)

	snapshots <- model.Snapshot{Path: "users/u1/counters", Changes: []model.Change{
		{Type: model.ChangeAdded, Counter: model.Counter{ID: "c1", Name: "Laps"}},
	}}
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeSnapshot, msg.Type)
	require.NotNil(t, msg.Data)
	require.Len(t, msg.Data.Changes, 1)
	assert.Equal(t, "c1", msg.Data.Changes[0].Counter.ID)

	close(snapshots)
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscriptionEnded, msg.Type)
}

func TestWS_Unsubscribe(t *testing.T) {
	snapshots := make(chan model.Snapshot)
	uc := &mockCounterUsecase{}
	uc.On("Watch", mock.Anything, "u1").Return((<-chan model.Snapshot)(snapshots), nil)
	conn := dial(t, startWSServer(t, uc))

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionSubscribe, Path: "users/u1/counters"}))
	assert.Equal(t, MessageTypeSubscriptionConfirmed, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionUnsubscribe, Path: "users/u1/counters"}))
	assert.Equal(t, MessageTypeUnsubscriptionConfirmed, readMessage(t, conn).Type)
}

func TestWS_Errors(t *testing.T) {
	uc := &mockCounterUsecase{}
	uc.On("Watch", mock.Anything, "u2").Return(nil, apperrors.NewAuthorizationError("read access denied"))
	conn := dial(t, startWSServer(t, uc))

	require.NoError(t, conn.WriteMessage(fastws.TextMessage, []byte("{not json")))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "invalid_message", msg.Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "shout"}))
	assert.Equal(t, "unknown_action", readMessage(t, conn).Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionSubscribe, Path: "users/u1/other"}))
	assert.Equal(t, string(apperrors.ErrorTypeValidation), readMessage(t, conn).Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionSubscribe, Path: "users/u1/counters/c1"}))
	assert.Equal(t, string(apperrors.ErrorTypeValidation), readMessage(t, conn).Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionSubscribe, Path: "users/u2/counters"}))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, string(apperrors.ErrorTypeAuthorization), msg.Error)
}

func TestWS_RequiresAuth(t *testing.T) {
	url := startWSServer(t, &mockCounterUsecase{})
	_, resp, err := fastws.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
}
