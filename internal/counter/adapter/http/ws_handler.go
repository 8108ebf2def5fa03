package http

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/counter/usecase"
	"thing-counter/internal/shared/contextkeys"
	"thing-counter/internal/shared/docpath"
	apperrors "thing-counter/internal/shared/errors"
	"thing-counter/internal/shared/logger"
	"thing-counter/internal/shared/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Websocket message types
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"

	MessageTypeSubscriptionConfirmed   = "subscription_confirmed"
	MessageTypeUnsubscriptionConfirmed = "unsubscription_confirmed"
	MessageTypeSnapshot                = "snapshot"
	MessageTypeSubscriptionEnded       = "subscription_ended"
	MessageTypeError                   = "error"
)

const writeTimeout = 10 * time.Second

// ClientMessage is sent by listeners
type ClientMessage struct {
	Action string `json:"action"`
	Path   string `json:"path"`
}

// ServerMessage is sent to listeners
type ServerMessage struct {
	Type    string          `json:"type"`
	Path    string          `json:"path,omitempty"`
	Data    *model.Snapshot `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// WSHandler serves live counter listeners over a websocket
type WSHandler struct {
	uc   usecase.CounterUsecase
	path string
	log  logger.Logger
}

func NewWSHandler(uc usecase.CounterUsecase, path string, log logger.Logger) *WSHandler {
	return &WSHandler{uc: uc, path: path, log: log.WithComponent("counter_ws")}
}

// RegisterRoutes mounts the listener endpoint. protect must store the
// caller in Locals before the upgrade.
func (h *WSHandler) RegisterRoutes(app fiber.Router, protect fiber.Handler) {
	app.Use(h.path, protect, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get(h.path, websocket.New(h.handleConnection))
}

type subscription struct {
	id     string
	cancel context.CancelFunc
}

type wsSession struct {
	conn    *websocket.Conn
	ctx     context.Context
	connID  string
	mu      sync.Mutex
	subs    map[string]subscription
	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func (s *wsSession) send(msg ServerMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(msg)
}

func (h *WSHandler) handleConnection(conn *websocket.Conn) {
	uid, _ := conn.Locals(contextkeys.LocalsUserID).(string)
	email, _ := conn.Locals(contextkeys.LocalsUserEmail).(string)

	ctx := utils.WithUserID(context.Background(), uid)
	ctx = utils.WithUserEmail(ctx, email)
	ctx, cancel := context.WithCancel(ctx)

	s := &wsSession{
		conn:   conn,
		ctx:    ctx,
		connID: uuid.NewString(),
		subs:   make(map[string]subscription),
	}
	log := h.log.WithFields(map[string]interface{}{"conn_id": s.connID, "uid": uid})
	log.Info("Listener connected")

	defer func() {
		cancel()
		s.wg.Wait()
		log.Info("Listener disconnected")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("Websocket read error: %v", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = s.send(ServerMessage{Type: MessageTypeError, Error: "invalid_message", Message: "invalid JSON format"})
			continue
		}

		switch msg.Action {
		case ActionSubscribe:
			h.subscribe(s, msg.Path, log)
		case ActionUnsubscribe:
			h.unsubscribe(s, msg.Path)
		default:
			_ = s.send(ServerMessage{Type: MessageTypeError, Path: msg.Path, Error: "unknown_action", Message: "unknown action: " + msg.Action})
		}
	}
}

func (h *WSHandler) subscribe(s *wsSession, rawPath string, log logger.Logger) {
	cp, err := docpath.ParseCounterPath(rawPath)
	if err != nil {
		h.sendError(s, rawPath, err)
		return
	}
	if !cp.IsCollection() {
		h.sendError(s, rawPath, apperrors.NewValidationError("only counters collections can be listened to").WithCause(apperrors.ErrInvalidPath))
		return
	}
	path := cp.String()

	s.mu.Lock()
	_, exists := s.subs[path]
	s.mu.Unlock()
	if exists {
		_ = s.send(ServerMessage{Type: MessageTypeSubscriptionConfirmed, Path: path})
		return
	}

	subCtx, subCancel := context.WithCancel(s.ctx)
	snapshots, err := h.uc.Watch(subCtx, cp.UID)
	if err != nil {
		subCancel()
		h.sendError(s, path, err)
		return
	}

	sub := subscription{id: uuid.NewString(), cancel: subCancel}
	s.mu.Lock()
	s.subs[path] = sub
	s.mu.Unlock()

	if err := s.send(ServerMessage{Type: MessageTypeSubscriptionConfirmed, Path: path}); err != nil {
		subCancel()
		return
	}
	log.WithFields(map[string]interface{}{"path": path}).Debug("Listener subscribed")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer subCancel()

		for snap := range snapshots {
			snap := snap
			if err := s.send(ServerMessage{Type: MessageTypeSnapshot, Path: path, Data: &snap}); err != nil {
				log.Debugf("Stopping forward for %s: %v", path, err)
				return
			}
		}

		// The feed closed on its own, e.g. the subscriber fell behind.
		s.mu.Lock()
		current, ok := s.subs[path]
		if ok && current.id == sub.id {
			delete(s.subs, path)
		}
		s.mu.Unlock()
		if subCtx.Err() == nil && ok && current.id == sub.id {
			_ = s.send(ServerMessage{Type: MessageTypeSubscriptionEnded, Path: path, Message: "listener closed, subscribe again to resync"})
		}
	}()
}

func (h *WSHandler) unsubscribe(s *wsSession, rawPath string) {
	cp, err := docpath.ParseCounterPath(rawPath)
	if err != nil {
		h.sendError(s, rawPath, err)
		return
	}
	path := cp.String()

	s.mu.Lock()
	sub, ok := s.subs[path]
	delete(s.subs, path)
	s.mu.Unlock()
	if ok {
		sub.cancel()
	}
	_ = s.send(ServerMessage{Type: MessageTypeUnsubscriptionConfirmed, Path: path})
}

func (h *WSHandler) sendError(s *wsSession, path string, err error) {
	_, body := apperrors.ToResponse(err)
	_ = s.send(ServerMessage{
		Type:    MessageTypeError,
		Path:    path,
		Error:   body.Error,
		Message: body.Message,
	})
}
