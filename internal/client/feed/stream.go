package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type streamSubscribeRequest struct {
	Type       string   `json:"type"`
	References []string `json:"references"`
}

type StreamOptions struct {
	URL               string
	References        []string
	ReferenceProvider func(context.Context) ([]string, error)
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	Logger            *zap.Logger
}

// QuoteStream keeps a websocket subscription to the oracle's live quote
// channel alive, reconnecting with jittered exponential backoff whenever the
// connection drops.
type QuoteStream struct {
	opts StreamOptions
}

func NewQuoteStream(opts StreamOptions) *QuoteStream {
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = 20 * time.Second
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.BackoffMin == 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &QuoteStream{opts: opts}
}

// Run blocks until the context is cancelled, delivering each received quote
// to onQuote. Dial and subscribe failures retry; only context cancellation
// ends the loop.
func (s *QuoteStream) Run(ctx context.Context, onQuote func(Quote)) error {
	if strings.TrimSpace(s.opts.URL) == "" {
		return fmt.Errorf("quote stream: empty url")
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, _, err := websocket.Dial(ctx, s.opts.URL, nil)
		if err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("quote stream connect failed", zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		conn.SetReadLimit(1 << 20)

		references := s.opts.References
		if s.opts.ReferenceProvider != nil {
			if refs, err := s.opts.ReferenceProvider(ctx); err == nil && len(refs) > 0 {
				references = refs
			}
		}
		if err := subscribe(ctx, conn, references); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("quote stream subscribe failed", zap.Error(err))
			}
			_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Info("quote stream subscribed", zap.Int("references", len(references)))
		}
		backoff = s.opts.BackoffMin

		err = s.consume(ctx, conn, onQuote)
		_ = conn.Close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Warn("quote stream disconnected", zap.Error(err))
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func subscribe(ctx context.Context, conn *websocket.Conn, references []string) error {
	payload, err := json.Marshal(streamSubscribeRequest{Type: "subscribe", References: references})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

func (s *QuoteStream) consume(ctx context.Context, conn *websocket.Conn, onQuote func(Quote)) error {
	heartbeatErr := make(chan error, 1)
	heartbeatCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(s.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				heartbeatErr <- heartbeatCtx.Err()
				return
			case <-ticker.C:
				pingCtx, cancelPing := context.WithTimeout(heartbeatCtx, s.opts.PingTimeout)
				err := conn.Ping(pingCtx)
				cancelPing()
				if err != nil {
					heartbeatErr <- err
					return
				}
			}
		}
	}()

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.Read(heartbeatCtx)
			if err != nil {
				readErr <- err
				return
			}
			var q Quote
			if err := json.Unmarshal(data, &q); err != nil {
				continue
			}
			if q.Reference == "" {
				continue
			}
			onQuote(q)
		}
	}()

	select {
	case err := <-heartbeatErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case err := <-readErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
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
