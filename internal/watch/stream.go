package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"beepstream/internal/hub"
	"beepstream/internal/models"
)

// Envelope is a decoded /ws frame. Data stays raw until the type is
// known; unrecognized types are peer control signals.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// KillSwitch is the control signal relayed peer-to-peer through the
// server. The server never interprets or stores it.
type KillSwitch struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	SentAt string `json:"sentAt"`
}

const killSwitchType = "KILL_SWITCH"

type WSClient struct {
	url  string
	conn *websocket.Conn
}

func NewWSClient(url string) *WSClient {
	return &WSClient{url: url}
}

func (c *WSClient) Connect(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("ws client is nil")
	}
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *WSClient) Close(status websocket.StatusCode, reason string) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close(status, reason)
}

func (c *WSClient) Read(ctx context.Context) (Envelope, []byte, error) {
	if c == nil || c.conn == nil {
		return Envelope{}, nil, fmt.Errorf("ws not connected")
	}
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return Envelope{}, nil, err
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Not a JSON envelope. Hand it up raw with a zero type; the
		// dispatcher decides whether it counts as a control signal.
		return Envelope{}, data, nil
	}
	return env, data, nil
}

func (c *WSClient) Send(ctx context.Context, payload []byte) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("ws not connected")
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

type StreamOptions struct {
	// URL is the http(s) base of the server; the /ws path and scheme
	// swap are derived here.
	URL        string
	BackoffMin time.Duration
	BackoffMax time.Duration
	Logger     *zap.Logger
}

// Stream keeps one live /ws connection, redialing with backoff when it
// drops. Connected/disconnected transitions are logged; the poller
// keeps the watcher eventually consistent while disconnected.
type Stream struct {
	opts StreamOptions

	mu     sync.Mutex
	client *WSClient
}

func NewStream(opts StreamOptions) *Stream {
	if opts.BackoffMin == 0 {
		opts.BackoffMin = 1 * time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &Stream{opts: opts}
}

// WSURL converts an http(s) base URL into the ws(s) endpoint.
func WSURL(base string) string {
	u := strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func (s *Stream) Run(ctx context.Context, onEvent func(Envelope, []byte)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	url := WSURL(s.opts.URL)
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		client := NewWSClient(url)
		if err := client.Connect(ctx); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("ws connect failed", zap.String("url", url), zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Info("ws connected", zap.String("url", url))
		}
		s.setClient(client)
		backoff = s.opts.BackoffMin

		err := s.consume(ctx, client, onEvent)
		s.setClient(nil)
		_ = client.Close(websocket.StatusNormalClosure, "reconnect")
		if errors.Is(err, context.Canceled) {
			return err
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Warn("ws disconnected", zap.Error(err))
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *Stream) consume(ctx context.Context, client *WSClient, onEvent func(Envelope, []byte)) error {
	for {
		env, raw, err := client.Read(ctx)
		if err != nil {
			return err
		}
		if onEvent != nil {
			onEvent(env, raw)
		}
	}
}

func (s *Stream) setClient(c *WSClient) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

// SendKillSwitch broadcasts STOP to all other connected clients via the
// server relay. Fails when the stream is currently disconnected.
func (s *Stream) SendKillSwitch(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return fmt.Errorf("ws not connected")
	}
	payload, err := json.Marshal(KillSwitch{
		Type:   killSwitchType,
		Action: "STOP",
		SentAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return client.Send(ctx, payload)
}

// Watcher glues the stream and poller into the reconciler.
type Watcher struct {
	Reconciler *Reconciler
	Logger     *zap.Logger
}

// HandleEvent is the push-side input of the reconciliation: a beep log
// starts the alarm, a clear or daily cutover stops it, and anything the
// server did not originate is a peer control signal handled locally.
func (w *Watcher) HandleEvent(env Envelope, raw []byte) {
	switch env.Type {
	case hub.EventNewLog:
		var item models.Log
		if err := json.Unmarshal(env.Data, &item); err != nil {
			if w.Logger != nil {
				w.Logger.Warn("bad NEW_LOG payload", zap.Error(err))
			}
			return
		}
		if w.Logger != nil {
			w.Logger.Info("new log",
				zap.String("id", item.ID),
				zap.String("beep_type", item.BeepType),
				zap.String("message", item.Message),
			)
		}
		if item.BeepType == models.BeepTypeBeep {
			w.Reconciler.Reconcile(true)
		}
	case hub.EventClearLogs:
		if w.Logger != nil {
			w.Logger.Info("logs cleared remotely")
		}
		w.Reconciler.StopAlarm()
	case hub.EventArchivedAndCleared:
		var notice hub.ArchivalNotice
		_ = json.Unmarshal(env.Data, &notice)
		if w.Logger != nil {
			w.Logger.Info("daily cutover", zap.Int64("count", notice.Count))
		}
		w.Reconciler.StopAlarm()
	default:
		// Peer control signals are JSON. Anything that does not even
		// decode is wire noise and must not touch the alarm.
		if !json.Valid(raw) {
			if w.Logger != nil {
				w.Logger.Warn("ignoring undecodable frame", zap.Int("bytes", len(raw)))
			}
			return
		}
		if w.Logger != nil {
			w.Logger.Info("control signal received", zap.String("payload", string(raw)))
		}
		w.Reconciler.StopAlarm()
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(base/2) + 1))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
