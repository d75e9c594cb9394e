// Package integrations provides the shared HTTP client used to talk to
// upstream services.
//
// # Overview
//
// Service-specific clients live in subpackages and embed [Client]:
//
//   - [catalog]: the course catalog service serving prerequisite payloads
//
// # Client Pattern
//
//	client := catalog.NewClient(backend, "http://localhost:3100", 24*time.Hour)
//	ds, err := client.FetchDepartment(ctx, "CSCI", false) // false = use cache
//
// [Client] handles:
//   - Response caching through [cache.Cache] with a per-client namespace
//   - Retry with exponential backoff for network failures and 5xx responses
//   - Default request headers
//   - Request and response events for [observability.HTTPHooks]
//
// [catalog]: github.com/matzehuels/prereqgraph/pkg/integrations/catalog
// [cache.Cache]: github.com/matzehuels/prereqgraph/pkg/cache.Cache
// [observability.HTTPHooks]: github.com/matzehuels/prereqgraph/pkg/observability.HTTPHooks
package integrations
