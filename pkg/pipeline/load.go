package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/matzehuels/prereqgraph/pkg/cache"
	perrors "github.com/matzehuels/prereqgraph/pkg/errors"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/integrations"
	"github.com/matzehuels/prereqgraph/pkg/integrations/catalog"
)

// Source describes where [Load] reads the payload from.
func Source(opts Options) string {
	switch {
	case opts.Input != "":
		return opts.Input
	case opts.CatalogURL != "":
		return catalog.NewClient(nil, opts.CatalogURL, 0).DepartmentURL(opts.Department)
	default:
		return catalog.NewClient(nil, catalog.DefaultBaseURL, 0).DepartmentURL(opts.Department)
	}
}

// Load decodes the department payload named by opts. Input is read as a
// file unless it is an http(s) URL; with no Input the payload is fetched
// from the catalog service. Remote payloads go through c.
func Load(ctx context.Context, c cache.Cache, opts Options) (graph.Dataset, error) {
	return load(ctx, c, nil, opts)
}

func load(ctx context.Context, c cache.Cache, keyer cache.Keyer, opts Options) (graph.Dataset, error) {
	dept := opts.Department
	if dept == "" {
		dept = graph.DefaultDepartment
	}

	switch {
	case isURL(opts.Input):
		if err := perrors.ValidateURL(opts.Input); err != nil {
			return graph.Dataset{}, err
		}
		data, err := fetchURL(ctx, c, keyer, opts.Input, opts.Refresh)
		if err != nil {
			return graph.Dataset{}, remoteError(err, opts.Input)
		}
		return parse(data, dept, opts.Input)

	case opts.Input != "":
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return graph.Dataset{}, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "payload %s", opts.Input)
			}
			return graph.Dataset{}, fmt.Errorf("read %s: %w", opts.Input, err)
		}
		return parse(data, dept, opts.Input)

	default:
		if err := perrors.ValidateDepartment(dept); err != nil {
			return graph.Dataset{}, err
		}
		base := opts.CatalogURL
		if base == "" {
			base = catalog.DefaultBaseURL
		}
		client := catalog.NewClient(c, base, cache.HTTPTTL)
		client.SetKeyer(keyer)
		data, err := client.FetchRaw(ctx, dept, opts.Refresh)
		if err != nil {
			return graph.Dataset{}, remoteError(err, client.DepartmentURL(dept))
		}
		return parse(data, dept, client.DepartmentURL(dept))
	}
}

func fetchURL(ctx context.Context, c cache.Cache, keyer cache.Keyer, rawURL string, refresh bool) ([]byte, error) {
	client := integrations.NewClient(c, "input", cache.HTTPTTL, nil)
	client.SetKeyer(keyer)
	var raw json.RawMessage
	err := client.Cached(ctx, rawURL, refresh, &raw, func() error {
		data, err := client.GetBytes(ctx, rawURL)
		if err != nil {
			return err
		}
		raw = data
		return nil
	})
	return raw, err
}

func parse(data []byte, dept, source string) (graph.Dataset, error) {
	ds, err := graph.ParseDataset(data, dept)
	if err != nil {
		return graph.Dataset{}, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "decode %s", source)
	}
	return ds, nil
}

func remoteError(err error, source string) error {
	switch {
	case errors.Is(err, integrations.ErrNotFound):
		return perrors.Wrap(perrors.ErrCodeNotFound, err, "fetch %s", source)
	case errors.Is(err, context.DeadlineExceeded):
		return perrors.Wrap(perrors.ErrCodeTimeout, err, "fetch %s", source)
	case errors.Is(err, integrations.ErrNetwork):
		return perrors.Wrap(perrors.ErrCodeNetwork, err, "fetch %s", source)
	default:
		return fmt.Errorf("fetch %s: %w", source, err)
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
