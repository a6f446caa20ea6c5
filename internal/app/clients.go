package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/neurobridge-mastery/internal/platform/redisclient"
	"github.com/yungbote/neurobridge-mastery/internal/config"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/platform/neo4jdb"
	"github.com/yungbote/neurobridge-mastery/internal/temporalx"
)

// Clients holds optional infrastructure. Each field is nil when its address
// is not configured.
type Clients struct {
	Redis    *goredis.Client
	Neo4j    *neo4jdb.Client
	Temporal temporalsdkclient.Client
}

func temporalConfig(cfg *config.Config) temporalx.Config {
	t := cfg.Temporal
	return temporalx.Config{
		Address:               t.Address,
		Namespace:             t.Namespace,
		TaskQueue:             t.TaskQueue,
		ClientCertPath:        t.ClientCertPath,
		ClientKeyPath:         t.ClientKeyPath,
		ClientCAPath:          t.ClientCAPath,
		AutoRegisterNamespace: t.AutoRegisterNamespace,
		WorkerConcurrency:     t.WorkerConcurrency,
	}
}

func wireClients(ctx context.Context, cfg *config.Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := redisclient.Connect(ctx, redisclient.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return out, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	}

	// Neo4j
	n4j, err := neo4jdb.New(ctx, neo4jdb.Options{
		URI:         cfg.Neo4j.URI,
		User:        cfg.Neo4j.User,
		Password:    cfg.Neo4j.Password,
		Database:    cfg.Neo4j.Database,
		Timeout:     cfg.Neo4j.Timeout.Duration,
		MaxPoolSize: cfg.Neo4j.MaxPoolSize,
	}, log)
	if err != nil {
		return out, fmt.Errorf("init neo4j: %w", err)
	}
	out.Neo4j = n4j

	// Temporal
	tc, err := temporalx.NewClient(ctx, temporalConfig(cfg), log)
	if err != nil {
		return out, fmt.Errorf("init temporal: %w", err)
	}
	out.Temporal = tc
	return out, nil
}

func (c Clients) Close(ctx context.Context, log *logger.Logger) {
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Neo4j != nil {
		if err := c.Neo4j.Close(ctx); err != nil {
			log.Warn("neo4j close failed", "error", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
}
