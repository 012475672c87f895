package quotes

import (
	"context"
	"time"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"go.uber.org/zap"
)

type retrying struct {
	source   Source
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

// WithRetry retries failed lookups up to attempts times in total, waiting
// delay between tries. Context errors are never retried.
func WithRetry(source Source, attempts int, delay time.Duration, logger *zap.Logger) Source {
	if attempts <= 1 {
		return source
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retrying{source: source, attempts: attempts, delay: delay, logger: logger}
}

func (r *retrying) GetQuotes(ctx context.Context, medicationName, genericName string, quantity int) ([]model.DepotQuote, error) {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		var quotes []model.DepotQuote
		quotes, err = r.source.GetQuotes(ctx, medicationName, genericName, quantity)
		if err == nil {
			return quotes, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == r.attempts {
			break
		}

		r.logger.Warn("quote lookup failed, retrying",
			zap.String("op", "quotes.WithRetry"),
			zap.String("medication", medicationName),
			zap.Int("attempt", attempt),
			zap.Int("attempts", r.attempts),
			zap.Error(err),
		)

		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, err
}
