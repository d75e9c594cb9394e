package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/prereqgraph/pkg/cache"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/integrations"
)

// DefaultBaseURL is where the course catalog service listens by default.
const DefaultBaseURL = "http://localhost:3100"

// Client fetches department payloads from the course catalog service.
//
// The service answers GET <base>/prereq/<DEPT> with the payload documented on
// [graph.Dataset]. All methods are safe for concurrent use.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a catalog client for baseURL. An empty baseURL selects
// [DefaultBaseURL]. Responses are cached in backend for cacheTTL.
func NewClient(backend cache.Cache, baseURL string, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	headers := map[string]string{"Accept": "application/json"}
	return &Client{
		Client:  integrations.NewClient(backend, "catalog:"+baseURL, cacheTTL, headers),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// DepartmentURL returns the endpoint serving dept.
func (c *Client) DepartmentURL(dept string) string {
	return integrations.JoinURL(c.baseURL, "prereq", strings.ToUpper(dept))
}

// FetchRaw returns the undecoded payload for dept.
//
// If refresh is true, the cache is bypassed and a fresh request is made.
// Returns [integrations.ErrNotFound] (wrapped) if the service does not know the
// department and [integrations.ErrNetwork] for transport failures.
func (c *Client) FetchRaw(ctx context.Context, dept string, refresh bool) ([]byte, error) {
	dept = strings.ToUpper(dept)

	var raw json.RawMessage
	err := c.Cached(ctx, dept, refresh, &raw, func() error {
		data, err := c.GetBytes(ctx, c.DepartmentURL(dept))
		if err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return fmt.Errorf("%w: department %s", err, dept)
			}
			return err
		}
		raw = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// FetchDepartment fetches and decodes the payload for dept.
func (c *Client) FetchDepartment(ctx context.Context, dept string, refresh bool) (graph.Dataset, error) {
	raw, err := c.FetchRaw(ctx, dept, refresh)
	if err != nil {
		return graph.Dataset{}, err
	}
	return graph.ParseDataset(raw, dept)
}
