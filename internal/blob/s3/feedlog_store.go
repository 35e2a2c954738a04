package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// FeedLogStore implements domain.FeedLogStore by writing one JSON document
// per archived message variant.
//
// Object layout:
//
//	feedlog/{yyyy-mm-dd}/{eventID}/{uuid}.json
type FeedLogStore struct {
	writer *Writer
	now    func() time.Time
}

// NewFeedLogStore creates a FeedLogStore writing to the client's bucket.
func NewFeedLogStore(c *Client) *FeedLogStore {
	return &FeedLogStore{
		writer: NewWriter(c),
		now:    time.Now,
	}
}

// Save uploads the entry as a standalone JSON object. Keys embed a fresh
// UUID, so concurrent variants of the same event never collide.
func (s *FeedLogStore) Save(ctx context.Context, entry domain.FeedLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("s3blob: marshal feed log entry %s: %w", entry.EventID, err)
	}

	key := feedLogKey(s.now().UTC(), entry.EventID)
	if err := s.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: save feed log entry %s: %w", entry.EventID, err)
	}
	return nil
}

// feedLogKey builds the object key for an entry.
func feedLogKey(ts time.Time, eventID string) string {
	return fmt.Sprintf("feedlog/%s/%s/%s.json", ts.Format("2006-01-02"), eventID, uuid.NewString())
}

// Compile-time interface check.
var _ domain.FeedLogStore = (*FeedLogStore)(nil)
