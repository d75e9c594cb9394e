// Package cache stores fetched payloads, computed layouts and rendered
// artifacts behind a small byte-oriented interface.
//
// Three backends are provided:
//   - [FileCache]: one file per key under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for server deployments
//   - [NullCache]: stores nothing, for --no-cache and tests
//
// Keys are built by a [Keyer] so that every backend sees the same layout:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.LayoutKey(cache.Hash(payload), cache.LayoutKeyOpts{Seed: 42})
//	data, hit, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Default time-to-live values for the cached resource kinds.
const (
	HTTPTTL     = 24 * time.Hour
	LayoutTTL   = 7 * 24 * time.Hour
	ArtifactTTL = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key-value store with per-entry expiry.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A ttl of 0 stores an entry without expiry. Implementations must
// be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer builds cache keys for each resource kind.
type Keyer interface {
	// HTTPKey is the key of a raw HTTP response body.
	HTTPKey(namespace, key string) string

	// LayoutKey is the key of a settled layout of the dataset with the given hash.
	LayoutKey(datasetHash string, opts LayoutKeyOpts) string

	// ArtifactKey is the key of a rendered artifact of the layout with the given hash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the layout parameters that change the settled positions.
type LayoutKeyOpts struct {
	Width        float64    `json:"width"`
	Height       float64    `json:"height"`
	ColumnWidth  float64    `json:"column_width"`
	NodeRadius   float64    `json:"node_radius"`
	StrokeWidth  float64    `json:"stroke_width"`
	BandMargin   float64    `json:"band_margin"`
	LinkDistance float64    `json:"link_distance"`
	Attract      [3]float64 `json:"attract"`
	Repel        [3]float64 `json:"repel"`
	HighLevel    string     `json:"high_level"`
	Seed         uint64     `json:"seed"`
	MaxTicks     int        `json:"max_ticks"`
}

// ArtifactKeyOpts are the render parameters that change an artifact.
type ArtifactKeyOpts struct {
	Format  string  `json:"format"`
	Engine  string  `json:"engine"`
	Labels  bool    `json:"labels"`
	Columns bool    `json:"columns"`
	Scale   float64 `json:"scale"`
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

func (DefaultKeyer) LayoutKey(datasetHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", datasetHash, opts)
}

func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
