package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"graindesk/internal/client/feed"
	"graindesk/internal/metrics"
	"graindesk/internal/models"
	"graindesk/internal/notify"
	"graindesk/internal/repository"
)

// PriceStreamService feeds live quotes from the oracle's websocket channel
// into the same write path as the cron pull. The subscription list is the
// set of references the book currently knows about.
type PriceStreamService struct {
	Repo   repository.Repository
	Writer PriceWriter
	Hub    *notify.Hub
	Logger *zap.Logger
	Source string
}

// Run blocks until ctx is cancelled. Intended to be launched in its own
// goroutine next to the HTTP server.
func (s *PriceStreamService) Run(ctx context.Context, streamURL string) error {
	stream := feed.NewQuoteStream(feed.StreamOptions{
		URL:               streamURL,
		ReferenceProvider: s.knownReferences,
		Logger:            s.Logger,
	})
	return stream.Run(ctx, func(q feed.Quote) {
		s.handleQuote(ctx, q)
	})
}

func (s *PriceStreamService) knownReferences(ctx context.Context) ([]string, error) {
	prices, err := s.Repo.ListReferencePrices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(prices))
	for _, p := range prices {
		out = append(out, p.Reference)
	}
	return out, nil
}

func (s *PriceStreamService) handleQuote(ctx context.Context, q feed.Quote) {
	if !q.Price.IsPositive() {
		return
	}
	existing, err := s.Repo.GetReferencePrice(ctx, q.Reference)
	if err != nil {
		return
	}
	quotedAt := q.QuotedAt
	if quotedAt.IsZero() {
		quotedAt = time.Now().UTC()
	}
	if existing != nil && !quotedAt.After(existing.QuotedAt) {
		return
	}
	item := &models.ReferencePrice{
		Reference: q.Reference,
		Price:     q.Price,
		Source:    s.Source,
		QuotedAt:  quotedAt,
	}
	if err := s.Writer.Put(ctx, item); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("stream quote upsert failed",
				zap.String("reference", q.Reference), zap.Error(err))
		}
		return
	}
	metrics.PriceUpdatesTotal.WithLabelValues("stream").Inc()
	if s.Hub != nil {
		s.Hub.Publish(ctx, notify.Event{
			Topic: notify.TopicPrice,
			Kind:  "quote_updated",
			Details: map[string]any{
				"reference": q.Reference,
				"price":     q.Price.String(),
			},
		})
	}
}
