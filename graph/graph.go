package graph

import (
	"context"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// Config carries per-run options for a compiled graph.
type Config struct {
	// ResumeFrom restarts execution at the named node instead of the entry
	// point, typically after a GraphInterrupt.
	ResumeFrom string

	// ResumeValue is handed to the first Interrupt call of the run. It is
	// consumed once; later Interrupt calls suspend again.
	ResumeValue any

	// MaxSteps caps the number of node executions in one run. Zero means
	// DefaultMaxSteps.
	MaxSteps int
}

// DefaultMaxSteps bounds a run when Config.MaxSteps is unset.
const DefaultMaxSteps = 100

// Interrupt pauses execution and waits for input. On a resumed run it
// returns the resume value exactly once; otherwise it returns a
// NodeInterrupt error for the node to propagate:
//
//	reply, err := graph.Interrupt(ctx, "Which regions should the report cover?")
//	if err != nil {
//	    return state, err // suspends the run
//	}
func Interrupt(ctx context.Context, value any) (any, error) {
	if v, ok := takeResumeValue(ctx); ok {
		return v, nil
	}
	return nil, &NodeInterrupt{Value: value}
}
