package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryPointNotSet is returned by Compile when no entry point was set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when an edge, entry point, or resume target
	// names a node that was never added.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned by Compile for a node with neither a
	// static nor a conditional edge.
	ErrNoOutgoingEdge = errors.New("no outgoing edge")

	// ErrStepLimitExceeded is returned when a run executes more nodes than
	// Config.MaxSteps allows, which usually means a routing cycle.
	ErrStepLimitExceeded = errors.New("step limit exceeded")
)

// NodeInterrupt is the error a node returns, via Interrupt, to suspend the
// run and hand control back to the caller.
type NodeInterrupt struct {
	// Node is filled in by the runner with the interrupting node's name
	Node string
	// Value is the payload shown to the caller, typically the question the
	// node needs answered
	Value any
}

func (e *NodeInterrupt) Error() string {
	return fmt.Sprintf("interrupt at node %s: %v", e.Node, e.Value)
}

// GraphInterrupt is returned by Invoke when a node suspended the run. It
// carries the state as of suspension and the node to resume from.
type GraphInterrupt[S any] struct {
	// Node is the node that suspended; pass it back as Config.ResumeFrom
	Node string
	// State is the state at suspension, including mutations the node made
	// before interrupting
	State S
	// Value is the interrupt payload
	Value any
}

func (e *GraphInterrupt[S]) Error() string {
	return fmt.Sprintf("graph interrupted at node %s", e.Node)
}
