package credstore

import (
	"context"
	"fmt"
	"strconv"

	"gridee/internal/config"
	"gridee/internal/models"

	"github.com/redis/go-redis/v9"
)

const sessionKey = "gridee:session"

// RedisStore keeps the session in a redis hash. Each record field is
// its own hash field, mirroring the independent per-key writes of the
// original client; HSet applies them in one command so readers never
// see a half-written session.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient creates a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Save(ctx context.Context, session *models.Session) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	rec := recordFromSession(session)
	err := r.client.HSet(ctx, sessionKey,
		models.KeyAuthenticated, strconv.FormatBool(rec.Authenticated),
		models.KeyToken, rec.Token,
		models.KeyRole, rec.Role,
		models.KeyUserID, rec.UserID,
		models.KeyProfile, rec.Profile,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context) (*models.Session, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	fields, err := r.client.HGetAll(ctx, sessionKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session from redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	authenticated, _ := strconv.ParseBool(fields[models.KeyAuthenticated])
	rec := record{
		Authenticated: authenticated,
		Token:         fields[models.KeyToken],
		Role:          fields[models.KeyRole],
		UserID:        fields[models.KeyUserID],
		Profile:       fields[models.KeyProfile],
	}
	return rec.session(), nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, sessionKey).Err(); err != nil {
		return fmt.Errorf("failed to clear session in redis: %w", err)
	}
	return nil
}

// Ping checks the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}
