package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/s2"
	"github.com/passbi/passbi_planner/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a concurrent computation did not finish in time
var ErrLockTimeout = errors.New("timeout waiting for lock")

// Config holds Redis configuration
type Config struct {
	Host       string `validate:"required"`
	Port       int    `validate:"required,gt=0"`
	Password   string
	DB         int `validate:"gte=0"`
	TLSEnabled bool
	TTL        time.Duration `validate:"gt=0"`
	MutexTTL   time.Duration `validate:"gt=0"`
}

// LoadConfigFromEnv loads Redis configuration from environment variables
func LoadConfigFromEnv() *Config {
	port, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, _ := time.ParseDuration(getEnv("CACHE_TTL", "10m"))
	mutexTTL, _ := time.ParseDuration(getEnv("CACHE_MUTEX_TTL", "5s"))

	return &Config{
		Host:       getEnv("REDIS_HOST", "localhost"),
		Port:       port,
		Password:   getEnv("REDIS_PASSWORD", ""),
		DB:         db,
		TLSEnabled: getEnv("REDIS_TLS_ENABLED", "false") == "true",
		TTL:        ttl,
		MutexTTL:   mutexTTL,
	}
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, config *Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}

	// Managed Redis (Upstash and friends) only accepts TLS
	if config.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// PlanCache stores synthesized plans keyed by origin and destination
type PlanCache struct {
	client    *redis.Client
	ttl       time.Duration
	mutexTTL  time.Duration
	pollEvery time.Duration
}

// NewPlanCache wraps a connected client
func NewPlanCache(client *redis.Client, config *Config) *PlanCache {
	return &PlanCache{
		client:    client,
		ttl:       config.TTL,
		mutexTTL:  config.MutexTTL,
		pollEvery: 100 * time.Millisecond,
	}
}

// PlanKey generates a cache key for an origin/destination pair.
// Place names are compared case- and whitespace-insensitively.
func PlanKey(origin, destination string) string {
	data := normalizePlace(origin) + "\x1f" + normalizePlace(destination)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("plan:%x", hash[:8])
}

// LockKey generates a mutex lock key
func LockKey(planKey string) string {
	return fmt.Sprintf("lock:%s", planKey)
}

func normalizePlace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// GetPlan retrieves a cached plan; a miss returns (nil, nil)
func (c *PlanCache) GetPlan(ctx context.Context, key string) (*models.Plan, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return decodePlan(data)
}

// SetPlan caches a plan for the configured TTL
func (c *PlanCache) SetPlan(ctx context.Context, key string, plan *models.Plan) error {
	data, err := encodePlan(plan)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Plans carry every turn instruction, so they are stored s2-compressed
func encodePlan(plan *models.Plan) ([]byte, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}
	return s2.Encode(nil, data), nil
}

func decodePlan(data []byte) (*models.Plan, error) {
	raw, err := s2.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cached plan: %w", err)
	}

	var plan models.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached plan: %w", err)
	}
	return &plan, nil
}

// AcquireLock attempts to acquire a distributed lock.
// Returns true if the lock was acquired, false if already held.
func (c *PlanCache) AcquireLock(ctx context.Context, key string) (bool, error) {
	return c.client.SetNX(ctx, key, "1", c.mutexTTL).Result()
}

// ReleaseLock releases a distributed lock
func (c *PlanCache) ReleaseLock(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// WaitForPlan waits for another request's lock to go away and then reads its result
func (c *PlanCache) WaitForPlan(ctx context.Context, planKey string, maxWait time.Duration) (*models.Plan, error) {
	lockKey := LockKey(planKey)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		exists, err := c.client.Exists(ctx, lockKey).Result()
		if err != nil {
			return nil, err
		}

		if exists == 0 {
			return c.GetPlan(ctx, planKey)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollEvery):
		}
	}

	return nil, ErrLockTimeout
}

// GetOrCompute returns the cached plan for origin/destination or computes and caches it.
// cached reports whether the plan came from Redis. Cache failures degrade to computing.
func (c *PlanCache) GetOrCompute(ctx context.Context, origin, destination string, compute func(context.Context) (*models.Plan, error)) (plan *models.Plan, cached bool, err error) {
	key := PlanKey(origin, destination)
	lockKey := LockKey(key)

	if plan, err := c.GetPlan(ctx, key); err == nil && plan != nil {
		return plan, true, nil
	} else if err != nil {
		log.Printf("Failed to read cached plan: %v", err)
	}

	acquired, err := c.AcquireLock(ctx, lockKey)
	if err != nil {
		log.Printf("Failed to acquire lock: %v", err)
	} else if !acquired {
		plan, err := c.WaitForPlan(ctx, key, c.mutexTTL)
		if err == nil && plan != nil {
			return plan, true, nil
		}
	}

	defer func() {
		if acquired {
			c.ReleaseLock(context.WithoutCancel(ctx), lockKey)
		}
	}()

	plan, err = compute(ctx)
	if err != nil {
		return nil, false, err
	}

	// A plan with no routes usually means the provider was down; let the next request retry
	if len(plan.Routes) > 0 {
		if err := c.SetPlan(ctx, key, plan); err != nil {
			log.Printf("Failed to cache plan: %v", err)
		}
	}

	return plan, false, nil
}

// HealthCheck performs a health check on the Redis connection
func (c *PlanCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}
	return nil
}

// Stats returns connection pool counters
func (c *PlanCache) Stats() map[string]interface{} {
	poolStats := c.client.PoolStats()

	return map[string]interface{}{
		"hits":        poolStats.Hits,
		"misses":      poolStats.Misses,
		"timeouts":    poolStats.Timeouts,
		"total_conns": poolStats.TotalConns,
		"idle_conns":  poolStats.IdleConns,
		"stale_conns": poolStats.StaleConns,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
