package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	counterhttp "thing-counter/internal/counter/adapter/http"
	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/shared/docpath"

	"github.com/fasthttp/websocket"
)

// ErrListenerEnded is reported when the server ends the subscription
var ErrListenerEnded = errors.New("listener ended by server")

// Listener streams the snapshots of one user's counters collection
type Listener struct {
	conn      *websocket.Conn
	snapshots chan model.Snapshot
	done      chan struct{}

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

// Listen opens a websocket, subscribes to users/{uid}/counters and waits for
// the confirmation. The first snapshot holds every existing counter as added.
func (c *Client) Listen(ctx context.Context, uid string) (*Listener, error) {
	target, err := c.websocketURL()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: c.timeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, &APIError{Status: resp.StatusCode, Message: "authentication required"}
		}
		return nil, fmt.Errorf("connect listener: %w", err)
	}

	path := docpath.CollectionPath(uid)
	if err := conn.WriteJSON(counterhttp.ClientMessage{Action: counterhttp.ActionSubscribe, Path: path}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.timeout))
	var ack counterhttp.ServerMessage
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read subscription ack: %w", err)
	}
	if ack.Type != counterhttp.MessageTypeSubscriptionConfirmed {
		conn.Close()
		return nil, fmt.Errorf("subscription rejected: %s", describe(ack))
	}
	_ = conn.SetReadDeadline(time.Time{})

	l := &Listener{
		conn:      conn,
		snapshots: make(chan model.Snapshot, 16),
		done:      make(chan struct{}),
	}
	go l.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			l.fail(ctx.Err())
			l.Close()
		case <-l.done:
		}
	}()
	return l, nil
}

// Snapshots is closed when the listener stops; Err then tells why
func (l *Listener) Snapshots() <-chan model.Snapshot {
	return l.snapshots
}

func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close stops the listener and closes the connection
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = l.conn.Close()
	})
	return err
}

func (l *Listener) readLoop() {
	defer close(l.snapshots)
	for {
		var msg counterhttp.ServerMessage
		if err := l.conn.ReadJSON(&msg); err != nil {
			select {
			case <-l.done:
			default:
				l.fail(err)
			}
			return
		}

		switch msg.Type {
		case counterhttp.MessageTypeSnapshot:
			if msg.Data == nil {
				continue
			}
			select {
			case l.snapshots <- *msg.Data:
			case <-l.done:
				return
			}
		case counterhttp.MessageTypeSubscriptionEnded:
			l.fail(ErrListenerEnded)
			return
		case counterhttp.MessageTypeError:
			l.fail(fmt.Errorf("listener error: %s", describe(msg)))
			return
		}
	}
}

func (l *Listener) fail(err error) {
	l.mu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.mu.Unlock()
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL + c.wsPath)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if token := c.Token(); token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func describe(msg counterhttp.ServerMessage) string {
	parts := []string{msg.Type}
	if msg.Error != "" {
		parts = append(parts, msg.Error)
	}
	if msg.Message != "" {
		parts = append(parts, msg.Message)
	}
	return strings.Join(parts, ": ")
}
