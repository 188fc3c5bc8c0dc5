package jwt

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"support-console-backend/internal/env"
)

const (
	AccessTokenDuration  = time.Minute * 15
	RefreshTokenDuration = time.Hour * 24 * 7
)

var roleSecretKeys = map[Role]string{
	RoleOperator: env.OperatorSecretKey,
}

var (
	redisOnce   sync.Once
	redisClient *redis.Client
)

func secretFor(role Role) ([]byte, error) {
	key, ok := roleSecretKeys[role]
	if !ok {
		return nil, fmt.Errorf("unknown token role: %d", role)
	}
	secret := env.Get(key)
	if secret == "" {
		return nil, fmt.Errorf("missing secret for token role %q", key)
	}
	return []byte(secret), nil
}

func tokenRedis() *redis.Client {
	redisOnce.Do(func() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     env.GetOrDefault(env.AuthRedisURL, "localhost:6379"),
			Password: env.Get(env.AuthRedisPass),
			DB:       0,
		})
	})
	return redisClient
}
