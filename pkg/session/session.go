// Package session stores the records behind live layout sessions of the
// HTTP server.
//
// A live session (a running [layout.Session] on its own event loop) cannot
// be serialized. What is persisted instead is the recipe to rebuild it: the
// pipeline options that loaded and leveled the dataset, plus every manual
// column placement made by dragging. After a restart the server replays a
// record and the session continues with the same columns.
//
// Implementations:
//   - memory: In-memory storage for development/testing and single instances
//   - file: File-based storage that survives restarts
//   - redis: Redis-backed storage for multi-instance deployments
//
// # Usage
//
//	store := session.NewMemoryStore()
//
//	sess, err := session.New(opts, session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if sess == nil {
//	    // Session not found or expired
//	}
//
// [layout.Session]: github.com/matzehuels/prereqgraph/pkg/layout.Session
package session

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/prereqgraph/pkg/pipeline"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned for IDs that are not UUIDs.
	ErrInvalidID = errors.New("invalid session id")
)

// DefaultTTL is the default lifetime of a session record. Every write
// extends it.
const DefaultTTL = 24 * time.Hour

// Session is the persisted record of a live layout session.
type Session struct {
	ID         string           `json:"id"`
	Options    pipeline.Options `json:"options"`
	Placements map[string]int   `json:"placements,omitempty"` // node ID → manually committed column
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// New creates a record with a fresh random ID.
func New(opts pipeline.Options, ttl time.Duration) (*Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:        id.String(),
		Options:   opts,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Place records a manual column for node. A later placement of the same
// node replaces the earlier one.
func (s *Session) Place(node string, column int) {
	if s.Placements == nil {
		s.Placements = make(map[string]int)
	}
	s.Placements[node] = column
}

// Touch extends the expiry to ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	s.ExpiresAt = time.Now().Add(ttl)
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.Placements = maps.Clone(s.Placements)
	c.Options.Formats = append([]string(nil), s.Options.Formats...)
	return &c
}

// ValidateID checks that id is a canonical UUID.
func ValidateID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil || u.String() != id {
		return ErrInvalidID
	}
	return nil
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (optional, may be no-op for Redis).
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
