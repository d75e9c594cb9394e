// Package catalog provides a client for the course catalog service that
// serves prerequisite payloads per department.
//
// # Usage
//
//	client := catalog.NewClient(backend, "http://localhost:3100", 24*time.Hour)
//	ds, err := client.FetchDepartment(ctx, "CSCI", false)
//	if err != nil {
//	    return err
//	}
//	g, report := ds.Build()
//
// Responses are cached by department and base URL through [cache.Cache], so a
// second fetch of the same department within the TTL makes no request.
//
// [cache.Cache]: github.com/matzehuels/prereqgraph/pkg/cache.Cache
package catalog
