package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/gorilla/websocket"
)

// ErrClosed se devuelve cuando el venue corta la conexión de forma anormal y
// la reconexión está desactivada o agotada.
var ErrClosed = errors.New("feed: connection closed")

const (
	defaultChannel           = "market_quotes"
	defaultHandshakeTimeout  = 10 * time.Second
	defaultReconnectDelay    = time.Second
	defaultReconnectMaxDelay = 30 * time.Second
	reconnectMultiplier      = 2
)

// Config describe la conexión al feed en vivo.
type Config struct {
	URL   string
	Token string // si no está vacío se envía un mensaje authenticate antes de suscribir

	// Suscripción: channels para la forma quote, market para la forma match.
	Channels []string
	Market   string

	HandshakeTimeout time.Duration

	// Reconnect reabre la conexión con backoff exponencial tras un corte.
	// Desactivado: el stream termina con el error, como un cliente sin supervisor.
	Reconnect         bool
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
	ReconnectMax      int // 0 = sin límite
}

// WebSocketFeed implementa ports.EventSource sobre el WebSocket del venue.
type WebSocketFeed struct {
	cfg    Config
	dialer *websocket.Dialer
	onDrop func()
	now    func() time.Time
}

// Option configura un WebSocketFeed.
type Option func(*WebSocketFeed)

// WithDropHook registra un callback por cada mensaje descartado.
func WithDropHook(fn func()) Option { return func(f *WebSocketFeed) { f.onDrop = fn } }

// NewWebSocketFeed crea el feed. No conecta hasta Stream.
func NewWebSocketFeed(cfg Config, opts ...Option) *WebSocketFeed {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = defaultReconnectMaxDelay
	}
	if len(cfg.Channels) == 0 && cfg.Market == "" {
		cfg.Channels = []string{defaultChannel}
	}
	f := &WebSocketFeed{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		onDrop: func() {},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Stream conecta, se suscribe y empuja snapshots a out hasta que el venue
// cierra la conexión o ctx se cancela.
func (f *WebSocketFeed) Stream(ctx context.Context, out chan<- domain.MatchSnapshot) error {
	delay := f.cfg.ReconnectDelay
	attempts := 0

	for {
		healthy, err := f.session(ctx, out)
		if ctx.Err() != nil || err == nil {
			return nil
		}
		if !f.cfg.Reconnect {
			return err
		}

		if healthy {
			delay = f.cfg.ReconnectDelay
			attempts = 0
		}
		attempts++
		if f.cfg.ReconnectMax > 0 && attempts > f.cfg.ReconnectMax {
			return fmt.Errorf("feed.Stream: giving up after %d reconnects: %w", f.cfg.ReconnectMax, err)
		}

		slog.Warn("feed: connection lost, reconnecting", "attempt", attempts, "delay", delay, "err", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
		delay *= reconnectMultiplier
		if delay > f.cfg.ReconnectMaxDelay {
			delay = f.cfg.ReconnectMaxDelay
		}
	}
}

// session corre una conexión completa. healthy indica que llegó al menos un
// mensaje, y entonces el backoff vuelve a empezar.
func (f *WebSocketFeed) session(ctx context.Context, out chan<- domain.MatchSnapshot) (healthy bool, err error) {
	conn, _, err := f.dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("feed.session: dial %s: %w", f.cfg.URL, err)
	}
	defer conn.Close()

	if err := f.subscribe(conn); err != nil {
		return false, err
	}
	slog.Info("feed: connected", "url", f.cfg.URL, "channels", f.cfg.Channels, "market", f.cfg.Market)

	// ReadMessage no acepta contexto: cerrar la conexión lo desbloquea.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return healthy, nil
			}
			// 1001 llega en redeploys del venue: con reconnect activo se reabre.
			if f.cfg.Reconnect && websocket.IsCloseError(err, websocket.CloseGoingAway) {
				slog.Warn("feed: venue going away")
				return healthy, fmt.Errorf("%w: %v", ErrClosed, err)
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Info("feed: connection closed by venue")
				return healthy, nil
			}
			slog.Error("feed: read failed", "err", err)
			return healthy, fmt.Errorf("%w: %v", ErrClosed, err)
		}

		healthy = true
		snaps, dropped, err := decodeMessage(raw, f.now().UTC())
		if err != nil {
			slog.Debug("feed: malformed message dropped", "err", err)
			f.onDrop()
			continue
		}
		for i := 0; i < dropped; i++ {
			f.onDrop()
		}

		for _, snap := range snaps {
			select {
			case out <- snap:
			case <-ctx.Done():
				return healthy, nil
			}
		}
	}
}

func (f *WebSocketFeed) subscribe(conn *websocket.Conn) error {
	if f.cfg.Token != "" {
		auth := map[string]string{"action": "authenticate", "token": f.cfg.Token}
		if err := conn.WriteJSON(auth); err != nil {
			return fmt.Errorf("feed.subscribe: authenticate: %w", err)
		}
	}

	msg := map[string]any{"action": "subscribe"}
	if len(f.cfg.Channels) > 0 {
		msg["channels"] = f.cfg.Channels
	}
	if f.cfg.Market != "" {
		msg["market"] = f.cfg.Market
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("feed.subscribe: %w", err)
	}
	return nil
}
