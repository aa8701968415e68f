package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableGranted(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	ev := NewTableGranted(3, "Nathan", 1, at)

	_, err := uuid.Parse(ev.ID)
	assert.NoError(t, err)
	assert.Equal(t, KindTableGranted, ev.Kind)
	assert.Equal(t, at.UTC(), ev.At)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Nathan", decoded["customer_name"])
	assert.EqualValues(t, 1, decoded["table_id"])
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}

func TestNewRedisPublisher_InvalidArgs(t *testing.T) {
	_, err := NewRedisPublisher(nil, nil, "tablemux:events")
	assert.Error(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	_, err = NewRedisPublisher(nil, rdb, "")
	assert.Error(t, err)
}

func TestRedisPublisher_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	p, err := NewRedisPublisher(nil, rdb, "tablemux:events")
	require.NoError(t, err)

	err = p.Publish(context.Background(), NewTableGranted(1, "A", 1, time.Now()))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "channel=tablemux:events")
}
