package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "structchat:audit"

// RedisTurnStore keeps each label/index pair as a Redis list of JSON records.
type RedisTurnStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTurnStore connects to the Redis server at url. A zero ttl keeps
// records forever.
func NewRedisTurnStore(url string, ttl time.Duration) (*RedisTurnStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &RedisTurnStore{client: redis.NewClient(opt), ttl: ttl}, nil
}

// Ping checks connectivity.
func (s *RedisTurnStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Store appends rec to its label/index list.
func (s *RedisTurnStore) Store(ctx context.Context, rec ports.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := redisKey(rec.Label, rec.Index)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

// Load returns every record stored under label and index, oldest first.
func (s *RedisTurnStore) Load(ctx context.Context, label string, index int) ([]ports.Record, error) {
	items, err := s.client.LRange(ctx, redisKey(label, index), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	records := make([]ports.Record, 0, len(items))
	for _, item := range items {
		var rec ports.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close releases the client.
func (s *RedisTurnStore) Close() error {
	return s.client.Close()
}

func redisKey(label string, index int) string {
	return fmt.Sprintf("%s:%s:%d", redisKeyPrefix, label, index)
}

// Ensure RedisTurnStore implements the TurnStore interface.
var _ ports.TurnStore = (*RedisTurnStore)(nil)
