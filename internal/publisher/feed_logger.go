package publisher

import (
	"context"
	"encoding/xml"
	"log/slog"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// FeedLogger archives published message variants without blocking the
// publish path. Entries are serialized inline, queued on a bounded channel,
// and written by a single worker. Every failure along the way is logged and
// swallowed; archival never fails a publication.
type FeedLogger struct {
	store   domain.FeedLogStore
	enabled bool
	queue   chan domain.FeedLogEntry
	logger  *slog.Logger
}

// NewFeedLogger creates a FeedLogger. When enabled is false, Archive is a
// no-op that touches neither the serializer nor the store.
func NewFeedLogger(store domain.FeedLogStore, enabled bool, queueSize int, logger *slog.Logger) *FeedLogger {
	if queueSize < 1 {
		queueSize = 1
	}
	return &FeedLogger{
		store:   store,
		enabled: enabled,
		queue:   make(chan domain.FeedLogEntry, queueSize),
		logger:  logger.With(slog.String("component", "feed_logger")),
	}
}

// Enabled reports whether archival is active.
func (l *FeedLogger) Enabled() bool {
	return l.enabled
}

// Archive serializes the message and queues it for the worker. profileID is
// nil for the unboosted broadcast variant. When the queue is full the entry
// is dropped with a warning rather than stalling the caller.
func (l *FeedLogger) Archive(profileID *int64, msg *domain.OddsChange) {
	if !l.enabled || msg == nil {
		return
	}

	payload, err := xml.Marshal(msg)
	if err != nil {
		l.logger.Error("feed log serialization failed",
			slog.String("event_id", msg.EventID),
			slog.String("error", err.Error()),
		)
		return
	}

	entry := domain.FeedLogEntry{
		EventID:   msg.EventID,
		Timestamp: msg.Timestamp,
		Payload:   string(payload),
	}
	if profileID != nil {
		id := *profileID
		entry.ProfileID = &id
	}

	select {
	case l.queue <- entry:
	default:
		l.logger.Warn("feed log queue full, dropping entry",
			slog.String("event_id", msg.EventID),
		)
	}
}

// Run drains the queue until ctx is cancelled. Store failures are logged and
// the worker moves on to the next entry.
func (l *FeedLogger) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("feed log worker stopped")
			return ctx.Err()
		case entry := <-l.queue:
			if err := l.store.Save(ctx, entry); err != nil {
				l.logger.Error("feed log write failed",
					slog.String("event_id", entry.EventID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
