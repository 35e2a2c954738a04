package domain

import "context"

// MessageBroker delivers odds-change messages to per-tenant downstream
// channels. Implementations must be safe for concurrent use; delivery is
// at-most-once from the router's point of view.
type MessageBroker interface {
	Publish(ctx context.Context, msg *OddsChange, sportID int64, nodeID, tenantID string, headers map[string]any) error
}
