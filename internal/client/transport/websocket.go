package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/identity"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/store"
	"github.com/sortedstorage/sortedstorage-cli/internal/common"
	"github.com/sortedstorage/sortedstorage-cli/internal/logging"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// WebSocket implements Transport over a gorilla/websocket connection with
// automatic reconnect and exponential backoff.
type WebSocket struct {
	url    string
	tokens identity.TokenSource
	log    logging.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	subs      map[int]func(models.Envelope)
	nextSub   int
	connected *store.Store[bool]

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWebSocket(url string, tokens identity.TokenSource, log logging.Logger) *WebSocket {
	if log == nil {
		log = logging.Nop()
	}
	return &WebSocket{
		url:       url,
		tokens:    tokens,
		log:       log,
		subs:      make(map[int]func(models.Envelope)),
		connected: store.New(false),
	}
}

var _ Transport = (*WebSocket)(nil)

// Start dials the backend and keeps the connection alive until Close is
// called, reconnecting with exponential backoff on failure. The initial dial
// error is returned so callers can report an unreachable backend; after a
// successful start, connection loss is surfaced only via Connected().
func (w *WebSocket) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	conn, err := w.dial(ctx)
	if err != nil {
		cancel()
		close(w.done)
		return err
	}
	w.setConn(conn)
	w.connected.Set(true)

	go w.run(ctx, conn)
	return nil
}

func (w *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if w.tokens != nil {
		if token, err := w.tokens.Token(ctx); err == nil && token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, w.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return conn, nil
}

// run owns the read pump and the reconnect loop.
func (w *WebSocket) run(ctx context.Context, conn *websocket.Conn) {
	defer close(w.done)

	for {
		w.readLoop(ctx, conn)
		w.connected.Set(false)

		if ctx.Err() != nil {
			return
		}

		backoff := initialBackoff
		for {
			w.log.Info(ctx, "reconnecting", "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			next, err := w.dial(ctx)
			if err == nil {
				conn = next
				break
			}
			w.log.Warn(ctx, "reconnect failed", "error", err.Error())
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		w.setConn(conn)
		w.connected.Set(true)
	}
}

func (w *WebSocket) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env models.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				w.log.Warn(ctx, "connection lost", "error", err.Error())
			}
			conn.Close()
			return
		}
		w.dispatch(env)
	}
}

func (w *WebSocket) dispatch(env models.Envelope) {
	w.mu.Lock()
	subs := make([]func(models.Envelope), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn(env)
	}
}

func (w *WebSocket) setConn(conn *websocket.Conn) {
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
}

func (w *WebSocket) Send(eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	env := models.Envelope{Type: eventType, Data: raw, Timestamp: time.Now().UTC()}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil || !w.connected.Get() {
		return common.ErrUnavailable
	}
	if err := w.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return nil
}

func (w *WebSocket) Connected() *store.Store[bool] {
	return w.connected
}

func (w *WebSocket) Subscribe(fn func(models.Envelope)) func() {
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

func (w *WebSocket) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	if w.done != nil {
		<-w.done
	}
	w.connected.Set(false)
	return nil
}
