// Package bootstrap wires config into runtime dependencies shared by the
// API and worker binaries.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/rayfield/solar-ai-platform/internal/appointments"
	appconfig "github.com/rayfield/solar-ai-platform/internal/config"
	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/internal/leads"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// Stores bundles the persistence layer. DB is nil when running on the
// in-memory stores.
type Stores struct {
	Leads        leads.Repository
	Messages     conversation.MessageStore
	Appointments appointments.Store
	DB           *sql.DB
	pool         *pgxpool.Pool
}

// Close releases database handles. Safe on memory-backed stores.
func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
}

// BuildStores opens Postgres-backed stores when DATABASE_URL is set and
// falls back to in-memory stores otherwise.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		return &Stores{
			Leads:        leads.NewInMemoryRepository(),
			Messages:     conversation.NewMemoryMessageStore(),
			Appointments: appointments.NewMemoryStore(),
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}

	// The conversation store and readiness probe run on database/sql.
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: open sql db: %w", err)
	}

	return &Stores{
		Leads:        leads.NewPostgresRepository(pool),
		Messages:     conversation.NewStore(db),
		Appointments: appointments.NewPostgresStore(pool),
		DB:           db,
		pool:         pool,
	}, nil
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildLeadLocker returns a Redis-backed lock when Redis is available and a
// process-local lock otherwise. Single-process deployments are correct with
// the local lock; multi-worker deployments need Redis.
func BuildLeadLocker(client *redis.Client, logger *logging.Logger) conversation.LeadLocker {
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil {
		logger.Warn("redis disabled; lead locks are process-local")
		return conversation.NewMemoryLeadLocker()
	}
	return conversation.NewRedisLeadLocker(client, logger)
}
