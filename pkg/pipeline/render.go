package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/render"
	"github.com/matzehuels/prereqgraph/pkg/render/nodelink"
)

// RenderOptions returns the diagram options derived from opts.
func (o *Options) RenderOptions() nodelink.Options {
	return nodelink.Options{Labels: !o.HideLabels, Columns: o.ShowColumns}
}

// Render generates output artifacts for l in the requested formats.
//
// PNG and PDF are converted from the SVG of the selected engine, so they
// need rsvg-convert on PATH.
func Render(ctx context.Context, l graph.Layout, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	nl := opts.RenderOptions()

	var svg []byte
	svgFor := func() ([]byte, error) {
		if svg != nil {
			return svg, nil
		}
		var err error
		svg, err = RenderSVG(ctx, l, opts.Engine, nl)
		return svg, err
	}

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data, err = svgFor()
		case FormatDOT:
			data = []byte(nodelink.ToDOT(l, nl))
		case FormatPNG:
			if data, err = svgFor(); err == nil {
				data, err = render.ToPNG(ctx, data, opts.Scale)
			}
		case FormatPDF:
			if data, err = svgFor(); err == nil {
				data, err = render.ToPDF(ctx, data)
			}
		case FormatJSON:
			data, err = graph.MarshalLayout(l)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// RenderSVG draws l with the given engine.
func RenderSVG(ctx context.Context, l graph.Layout, engine string, opts nodelink.Options) ([]byte, error) {
	switch engine {
	case EngineGraphviz:
		return nodelink.RenderGraphviz(ctx, nodelink.ToDOT(l, opts))
	case EngineNative, "":
		return nodelink.RenderSVG(l, opts), nil
	default:
		return nil, ValidateEngine(engine)
	}
}
