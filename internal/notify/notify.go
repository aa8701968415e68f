package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KindTableGranted is published when a waitlisted customer gets a table.
const KindTableGranted = "table_granted"

// Event is the wire payload published for every notification.
type Event struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	CustomerID   int64     `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	TableID      int       `json:"table_id"`
	At           time.Time `json:"at"`
}

func NewTableGranted(customerID int64, name string, tableID int, at time.Time) Event {
	return Event{
		ID:           uuid.New().String(),
		Kind:         KindTableGranted,
		CustomerID:   customerID,
		CustomerName: name,
		TableID:      tableID,
		At:           at.UTC(),
	}
}

// Publisher delivers events to whoever is listening.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// RedisPublisher publishes JSON events on a Redis Pub/Sub channel.
// Delivery is fire-and-forget: Redis drops messages nobody subscribes to.
type RedisPublisher struct {
	log     *zap.Logger
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(log *zap.Logger, rdb *redis.Client, channel string) (*RedisPublisher, error) {
	if rdb == nil {
		return nil, errors.New("nil redis client")
	}
	if channel == "" {
		return nil, fmt.Errorf("invalid channel: must be non-empty")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisPublisher{log: log.Named("redis-publisher"), rdb: rdb, channel: channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	n, err := p.rdb.Publish(ctx, p.channel, raw).Result()
	if err != nil {
		return fmt.Errorf("publish (channel=%s): %w", p.channel, err)
	}

	p.log.Debug("event published",
		zap.String("event_id", ev.ID),
		zap.String("kind", ev.Kind),
		zap.Int64("receivers", n))
	return nil
}
