package engine

import (
	"errors"

	"github.com/weftline/weft/pkg/errdefs"
	"github.com/weftline/weft/pkg/graph"
)

// Pipeline is an executable pipeline: the canonical graph, its derived
// identity, and the processor implementation resolved for each node.
// Construction fails fast on any node referencing an unregistered
// processor, so execution never discovers a missing processor mid-run.
type Pipeline struct {
	// Graph is the canonical graph this pipeline executes.
	Graph *graph.GraphV1

	// ID is the content-derived pipeline identity.
	ID string

	// processors is node-aligned with Graph.Nodes.
	processors []Processor
}

// NewPipeline binds a canonical graph to processor implementations from
// the registry.
func NewPipeline(g *graph.GraphV1, registry *ProcessorRegistry) (*Pipeline, error) {
	id, err := graph.ComputePipelineID(g)
	if err != nil {
		return nil, err
	}

	processors := make([]Processor, len(g.Nodes))
	for i, node := range g.Nodes {
		p, err := registry.Get(node.Processor)
		if err != nil {
			var e *errdefs.Error
			if errors.As(err, &e) {
				return nil, e.WithNode(i)
			}
			return nil, err
		}
		processors[i] = p
	}

	return &Pipeline{
		Graph:      g,
		ID:         id,
		processors: processors,
	}, nil
}

// Processor returns the processor bound to node index i.
func (p *Pipeline) Processor(i int) Processor {
	return p.processors[i]
}
