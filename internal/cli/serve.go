package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/prereqgraph/pkg/cache"
	"github.com/matzehuels/prereqgraph/pkg/metrics"
	"github.com/matzehuels/prereqgraph/pkg/pipeline"
	"github.com/matzehuels/prereqgraph/pkg/server"
	"github.com/matzehuels/prereqgraph/pkg/session"
)

// Backends selectable with --store and --cache.
const (
	backendMemory = "memory"
	backendFile   = "file"
	backendRedis  = "redis"
	backendNone   = "none"
)

type serveFlags struct {
	cfg       server.Config
	store     string
	cache     string
	scope     string
	redis     cache.RedisConfig
	noMetrics bool
}

// serveCommand creates the serve command, which runs the session API.
func (c *CLI) serveCommand() *cobra.Command {
	f := serveFlags{
		cfg: server.Config{
			Addr:               server.DefaultAddr,
			TickInterval:       server.DefaultTickInterval,
			MaxSessions:        server.DefaultMaxSessions,
			MaxTicksPerRequest: server.DefaultMaxTicksPerRequest,
			IdleTimeout:        server.DefaultIdleTimeout,
			SessionTTL:         session.DefaultTTL,
		},
		store: backendMemory,
		cache: backendFile,
		redis: cache.RedisConfig{Addr: "localhost:6379"},
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for live layout sessions",
		Long: `Run the HTTP API for live layout sessions.

Clients create a session from a payload URL or a catalog department, then
tick it, drag nodes between columns, and follow the simulation over a
websocket. Session records are kept in memory, on disk, or in Redis; a
session evicted for idleness or lost in a restart is rebuilt from its
record, manual placements included.

Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd.Context(), f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.cfg.Addr, "addr", f.cfg.Addr, "listen address")
	fs.DurationVar(&f.cfg.TickInterval, "tick-interval", f.cfg.TickInterval, "interval between ticks of an active session")
	fs.IntVar(&f.cfg.MaxSessions, "max-sessions", f.cfg.MaxSessions, "maximum number of live sessions")
	fs.IntVar(&f.cfg.MaxTicksPerRequest, "max-ticks-per-request", f.cfg.MaxTicksPerRequest, "upper bound for POST /ticks")
	fs.DurationVar(&f.cfg.IdleTimeout, "idle-timeout", f.cfg.IdleTimeout, "evict live sessions unused for this long")
	fs.DurationVar(&f.cfg.SessionTTL, "session-ttl", f.cfg.SessionTTL, "lifetime of stored session records")
	fs.StringVar(&f.cfg.CatalogURL, "catalog-url", "", "course catalog service URL")
	fs.BoolVar(&f.cfg.AllowLocalFiles, "allow-local-files", false, "accept payload paths on the server's file system")
	fs.StringVar(&f.store, "store", f.store, "session store: memory, file, redis")
	fs.StringVar(&f.cache, "cache", f.cache, "payload and layout cache: file, redis, none")
	fs.StringVar(&f.scope, "cache-scope", "", "prefix for every cache key, so deployments can share one Redis")
	fs.StringVar(&f.redis.Addr, "redis-addr", f.redis.Addr, "Redis address for --store redis and --cache redis")
	fs.StringVar(&f.redis.Password, "redis-password", "", "Redis password")
	fs.IntVar(&f.redis.DB, "redis-db", 0, "Redis database")
	fs.BoolVar(&f.noMetrics, "no-metrics", false, "disable /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, f serveFlags) error {
	backend, err := c.serverCache(ctx, f)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}

	store, err := c.serverStore(ctx, f)
	if err != nil {
		backend.Close()
		return fmt.Errorf("initialize session store: %w", err)
	}
	defer store.Close()

	var m *metrics.Registry
	if !f.noMetrics {
		m = metrics.NewRegistry()
		m.Install()
		backend = cache.Observe(backend)
	}

	var keyer cache.Keyer
	if f.scope != "" {
		keyer = cache.NewScopedKeyer(nil, f.scope)
	}
	runner := pipeline.NewRunner(backend, keyer, c.Logger)
	defer runner.Close()

	logger := loggerFromContext(ctx).WithPrefix("server")
	logger.Info("starting", "store", f.store, "cache", f.cache, "metrics", m != nil)
	return server.New(f.cfg, runner, store, m, logger).Run(ctx)
}

func (c *CLI) serverCache(ctx context.Context, f serveFlags) (cache.Cache, error) {
	switch f.cache {
	case backendNone:
		return cache.NewNullCache(), nil
	case backendFile:
		return newCache(false)
	case backendRedis:
		cfg := f.redis
		cfg.Prefix = appName + ":cache:"
		return cache.NewRedisCache(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", f.cache)
	}
}

func (c *CLI) serverStore(ctx context.Context, f serveFlags) (session.Store, error) {
	switch f.store {
	case backendMemory:
		return session.NewMemoryStore(), nil
	case backendFile:
		dir, err := stateDir()
		if err != nil {
			return nil, err
		}
		return session.NewFileStore(filepath.Join(dir, "sessions"))
	case backendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     f.redis.Addr,
			Password: f.redis.Password,
			DB:       f.redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", f.redis.Addr, err)
		}
		return session.NewRedisStore(client, session.DefaultRedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", f.store)
	}
}
