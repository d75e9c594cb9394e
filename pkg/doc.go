// Package pkg holds the libraries behind prereqgraph, which lays out course
// prerequisite graphs in columns.
//
// # Overview
//
// Every course is placed one column to the right of its deepest
// prerequisite. Within its column band a force simulation arranges the
// courses: links pull related courses together, courses push each other
// apart, and a drag can move a course into another column.
//
// # Architecture
//
//	department payload (file, URL, catalog service)
//	         ↓
//	    [graph] decode, build the [dag]
//	         ↓
//	    [level] assign columns
//	         ↓
//	    [layout] + [force] simulate within column bands
//	         ↓
//	    [render] SVG, DOT, PNG, PDF, JSON
//
// [pipeline] wires these stages together with caching and is shared by the
// CLI and the HTTP [server].
//
// # Quick Start
//
//	ds, _ := graph.ReadDatasetFile("csci.json", "CSCI")
//	g, _ := ds.Build()
//
//	opts := pipeline.Options{}
//	_ = opts.ValidateAndSetDefaults()
//	l, _ := pipeline.GenerateLayout(ctx, g, opts, logger)
//
//	svg := nodelink.RenderSVG(l, opts.RenderOptions())
//
// # Main Packages
//
// ## Graph and Leveling
//
// [dag] - Nodes, prerequisite and corequisite edges, and link crossing
// counts between adjacent columns.
//
// [graph] - The department payload and the serialized layout.
//
// [level] - Column assignment: longest prerequisite chain, cycle cap,
// high-level courses without prerequisites pinned to the last column.
//
// ## Simulation
//
// [force] - A d3-force style simulation with link, many-body and
// centering forces.
//
// [layout] - Live sessions: bodies constrained to their column bands, and
// the drag controller that commits column changes.
//
// ## Output
//
// [render] - SVG to PNG and PDF conversion; [render/nodelink] draws the
// layout natively or through Graphviz.
//
// ## Infrastructure
//
// [cache] - File, Redis and null caches for payloads, layouts and
// artifacts.
//
// [session] - Stored server sessions (options plus manual placements) in
// memory, on disk or in Redis.
//
// [integrations] - The retrying, caching HTTP client and the catalog
// service client.
//
// [observability] and [metrics] - Hook interfaces with no-op defaults and
// their Prometheus implementation.
//
// [errors] - Coded errors shared by the CLI and the HTTP API.
//
// # Testing
//
//	go test ./...                        # All tests
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Include Redis tests
//
// [dag]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/dag
// [graph]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/graph
// [level]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/level
// [force]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/force
// [layout]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/layout
// [render]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/render
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/server
// [cache]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/session
// [integrations]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/integrations
// [observability]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/observability
// [metrics]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/metrics
// [errors]: https://pkg.go.dev/github.com/matzehuels/prereqgraph/pkg/errors
package pkg
