package presence

import (
	"context"
	"fmt"
	"time"

	"liveclass/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "liveclass:presence:"

// Heartbeat-refreshed room sets; a room key with no writers expires rather
// than reporting ghosts forever.
const roomTTL = 5 * time.Minute

// RedisStore is a server-assisted presence counter used when the signaling
// transport's own presence query is unavailable. Implements
// ports.PresenceStore.
type RedisStore struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewRedisClient creates a Redis client with connection pooling and verifies
// the connection.
func NewRedisClient(address, password string, db, poolSize int, logger *zap.SugaredLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     password,
		DB:           db,
		PoolSize:     poolSize,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger != nil {
		logger.Infow("connected to Redis", "address", address, "db", db, "pool_size", poolSize)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, logger *zap.SugaredLogger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) roomKey(room domain.RoomID) string {
	return keyPrefix + string(room)
}

func (s *RedisStore) Join(ctx context.Context, room domain.RoomID, uid domain.UserID) error {
	key := s.roomKey(room)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, string(uid))
	pipe.Expire(ctx, key, roomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to join presence set for %s: %w", room, err)
	}
	return nil
}

func (s *RedisStore) Leave(ctx context.Context, room domain.RoomID, uid domain.UserID) error {
	if err := s.client.SRem(ctx, s.roomKey(room), string(uid)).Err(); err != nil {
		return fmt.Errorf("failed to leave presence set for %s: %w", room, err)
	}
	return nil
}

func (s *RedisStore) MemberCount(ctx context.Context, room domain.RoomID) (int, error) {
	count, err := s.client.SCard(ctx, s.roomKey(room)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count presence set for %s: %w", room, err)
	}
	return int(count), nil
}
