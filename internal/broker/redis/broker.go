// Package redisbroker delivers odds-change messages to per-tenant Redis
// streams.
package redisbroker

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// streamPrefix namespaces the per-tenant feed streams.
const streamPrefix = "feed:"

// Broker implements domain.MessageBroker using Redis Streams: one stream per
// tenant, trimmed to an approximate maximum length via XADD MAXLEN ~.
type Broker struct {
	rdb    *redis.Client
	maxLen int64
}

// New creates a Broker. maxLen bounds each tenant stream.
func New(rdb *redis.Client, maxLen int64) *Broker {
	return &Broker{rdb: rdb, maxLen: maxLen}
}

// StreamName returns the stream a tenant's messages are appended to.
func StreamName(tenantID string) string { return streamPrefix + tenantID }

// Publish appends the message to the tenant's stream. The payload travels as
// the provider XML document; routing metadata rides alongside as flat fields.
func (b *Broker) Publish(ctx context.Context, msg *domain.OddsChange, sportID int64, nodeID, tenantID string, headers map[string]any) error {
	payload, err := xml.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redisbroker: marshal message %s: %w", msg.EventID, err)
	}

	values := map[string]any{
		"payload":  payload,
		"event_id": msg.EventID,
		"product":  string(msg.Product),
		"sport_id": sportID,
		"node_id":  nodeID,
	}
	if len(headers) > 0 {
		hdr, err := json.Marshal(headers)
		if err != nil {
			return fmt.Errorf("redisbroker: marshal headers for %s: %w", msg.EventID, err)
		}
		values["headers"] = hdr
	}

	args := &redis.XAddArgs{
		Stream: StreamName(tenantID),
		MaxLen: b.maxLen,
		Approx: true,
		Values: values,
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redisbroker: publish to %s: %w", tenantID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MessageBroker = (*Broker)(nil)
