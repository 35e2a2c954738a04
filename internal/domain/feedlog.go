package domain

// FeedLogEntry is an archived copy of one published message variant.
// ProfileID is nil for the raw broadcast variant.
type FeedLogEntry struct {
	EventID   string `json:"event_id"`
	Timestamp int64  `json:"timestamp"`
	Payload   string `json:"payload"`
	ProfileID *int64 `json:"profile_id,omitempty"`
}
