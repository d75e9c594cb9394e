// Package server exposes live layout sessions over HTTP.
//
// A client creates a session by posting pipeline options; the server loads
// and levels the dataset and starts a simulation for it. Each session runs
// on its own event-loop goroutine that owns the graph: ticks, drags and
// snapshot reads are all funneled through it, so no lock ever guards graph
// state. While the simulation is active the loop ticks it on a fixed
// interval and pushes frames to websocket subscribers.
//
// # Routes
//
//	GET    /healthz
//	GET    /metrics
//	GET    /api/sessions
//	POST   /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	POST   /api/sessions/{id}/ticks
//	POST   /api/sessions/{id}/nodes/{node}/drag
//	GET    /api/sessions/{id}/stream
//	GET    /api/sessions/{id}/svg
//
// Session records (options plus manual placements) are kept in a
// [session.Store]. A session evicted for idleness, or lost in a restart, is
// rebuilt from its record on the next request.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	perrors "github.com/matzehuels/prereqgraph/pkg/errors"
	"github.com/matzehuels/prereqgraph/pkg/metrics"
	"github.com/matzehuels/prereqgraph/pkg/observability"
	"github.com/matzehuels/prereqgraph/pkg/pipeline"
	"github.com/matzehuels/prereqgraph/pkg/session"
)

// Default server settings.
const (
	DefaultAddr               = ":8080"
	DefaultTickInterval       = 30 * time.Millisecond
	DefaultMaxSessions        = 64
	DefaultMaxTicksPerRequest = 1000
	DefaultIdleTimeout        = 30 * time.Minute
	DefaultCleanupInterval    = time.Minute
	shutdownTimeout           = 10 * time.Second
)

// Config configures a [Server].
type Config struct {
	Addr               string        `toml:"addr" yaml:"addr"`
	TickInterval       time.Duration `toml:"tick_interval" yaml:"tick_interval"`
	MaxSessions        int           `toml:"max_sessions" yaml:"max_sessions"`
	MaxTicksPerRequest int           `toml:"max_ticks_per_request" yaml:"max_ticks_per_request"`
	IdleTimeout        time.Duration `toml:"idle_timeout" yaml:"idle_timeout"`
	CleanupInterval    time.Duration `toml:"cleanup_interval" yaml:"cleanup_interval"`
	SessionTTL         time.Duration `toml:"session_ttl" yaml:"session_ttl"`

	// CatalogURL is used for sessions that name neither an input nor a
	// catalog.
	CatalogURL string `toml:"catalog_url" yaml:"catalog_url"`

	// AllowLocalFiles lets clients name payload files on the server's file
	// system as input. Off by default; only URLs and the catalog are
	// accepted then.
	AllowLocalFiles bool `toml:"allow_local_files" yaml:"allow_local_files"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
	if c.MaxTicksPerRequest <= 0 {
		c.MaxTicksPerRequest = DefaultMaxTicksPerRequest
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = session.DefaultTTL
	}
}

// Server serves the session API.
type Server struct {
	cfg     Config
	runner  *pipeline.Runner
	store   session.Store
	metrics *metrics.Registry
	logger  *log.Logger

	mu       sync.Mutex
	sessions map[string]*entry
	restores singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	loops  sync.WaitGroup
}

// entry is the registry's view of a live session. The fields other than
// lastUsed and streams never change after registration.
type entry struct {
	live     *live
	nodes    int
	lastUsed atomic.Int64
	streams  atomic.Int32
}

func (e *entry) touch() { e.lastUsed.Store(time.Now().UnixNano()) }

// New creates a server. A nil store keeps session records in memory; a nil
// metrics registry disables /metrics.
func New(cfg Config, runner *pipeline.Runner, store session.Store, m *metrics.Registry, logger *log.Logger) *Server {
	cfg.setDefaults()
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	if store == nil {
		store = session.NewMemoryStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		runner:   runner,
		store:    store,
		metrics:  m,
		logger:   logger,
		sessions: make(map[string]*entry),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run serves HTTP on the configured address until ctx is canceled, then
// shuts down gracefully and stops every session loop.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		return err
	})
	g.Go(func() error {
		s.janitor(gctx)
		return nil
	})
	return g.Wait()
}

// Close stops every session loop. Session records stay in the store.
func (s *Server) Close() {
	s.cancel()
	s.loops.Wait()
	s.mu.Lock()
	for id := range s.sessions {
		delete(s.sessions, id)
		observability.Session().OnSessionClose(id)
	}
	s.mu.Unlock()
}

// janitor periodically evicts idle sessions and purges expired records.
func (s *Server) janitor(ctx context.Context) {
	t := time.NewTicker(s.cfg.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.evictIdle(time.Now().Add(-s.cfg.IdleTimeout))
			if err := s.store.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
			}
		}
	}
}

// evictIdle stops sessions without stream clients that were last used
// before cutoff. Their records stay in the store.
func (s *Server) evictIdle(cutoff time.Time) int {
	var idle []*entry
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.streams.Load() == 0 && time.Unix(0, e.lastUsed.Load()).Before(cutoff) {
			idle = append(idle, e)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, e := range idle {
		e.live.stop()
		observability.Session().OnSessionClose(e.live.id)
		s.logger.Debug("evicted idle session", "session", e.live.id)
	}
	return len(idle)
}

// register starts the loop of l and adds it to the registry.
func (s *Server) register(l *live) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return nil, perrors.New(perrors.ErrCodeUnsupported, "server is shutting down")
	}
	if len(s.sessions) >= s.cfg.MaxSessions {
		return nil, perrors.New(perrors.ErrCodeRateLimited, "too many live sessions (max %d)", s.cfg.MaxSessions)
	}
	e := &entry{live: l, nodes: l.s.Graph().NodeCount()}
	e.touch()
	s.sessions[l.id] = e

	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		l.run(s.ctx, s.cfg.TickInterval)
	}()
	observability.Session().OnSessionOpen(l.id, e.nodes)
	return e, nil
}

// lookup returns the live session for id, rebuilding it from its record
// when it is not running.
func (s *Server) lookup(ctx context.Context, id string) (*entry, error) {
	if err := session.ValidateID(id); err != nil {
		return nil, perrors.New(perrors.ErrCodeSessionNotFound, "session %q not found", id)
	}
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		e.touch()
		return e, nil
	}

	v, err, _ := s.restores.Do(id, func() (any, error) {
		s.mu.Lock()
		e, ok := s.sessions[id]
		s.mu.Unlock()
		if ok {
			return e, nil
		}
		rec, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeInternal, err, "read session %s", id)
		}
		if rec == nil {
			return nil, perrors.New(perrors.ErrCodeSessionNotFound, "session %q not found", id)
		}
		ls, ds, err := s.runner.RestoreSession(ctx, rec.Options, rec.Placements)
		if err != nil {
			return nil, err
		}
		s.logger.Info("restored session", "session", id, "placements", len(rec.Placements))
		return s.register(newLive(id, ds.Department, ls, s.logger))
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// remove stops and unregisters a session and deletes its record.
func (s *Server) remove(ctx context.Context, id string) error {
	if err := session.ValidateID(id); err != nil {
		return perrors.New(perrors.ErrCodeSessionNotFound, "session %q not found", id)
	}
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		e.live.stop()
		observability.Session().OnSessionClose(id)
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeInternal, err, "read session %s", id)
	}
	if !ok && rec == nil {
		return perrors.New(perrors.ErrCodeSessionNotFound, "session %q not found", id)
	}
	return s.store.Delete(ctx, id)
}

// list returns a summary of the running sessions ordered by ID.
func (s *Server) list() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for id, e := range s.sessions {
		out = append(out, SessionInfo{
			ID:         id,
			Department: e.live.dept,
			Nodes:      e.nodes,
			Streams:    int(e.streams.Load()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
