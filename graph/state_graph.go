package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/deepresearch/log"
)

// StateGraph represents a state-based graph with compile-time type safety.
// The type parameter S is the state type that flows through the nodes.
//
// Example usage:
//
//	type MyState struct {
//	    Count int
//	}
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, state MyState) (MyState, error) {
//	    state.Count++
//	    return state, nil
//	})
//	g.SetEntryPoint("increment")
//	g.AddEdge("increment", graph.END)
type StateGraph[S any] struct {
	// nodes maps node names to their Node objects
	nodes map[string]Node[S]

	// edges holds the static connections between nodes
	edges []Edge

	// conditionalEdges maps a "From" node to a function that picks the
	// next node from the state at runtime
	conditionalEdges map[string]func(ctx context.Context, state S) string

	// entryPoint is the name of the entry point node
	entryPoint string

	// merge optionally combines the previous state with a node's result,
	// and may reject the result to enforce state invariants
	merge func(current, next S) (S, error)
}

// Node represents a typed node in the graph.
type Node[S any] struct {
	Name        string
	Description string
	Function    func(ctx context.Context, state S) (S, error)
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
	}
}

// AddNode adds a new node to the state graph with the given name,
// description and function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a static edge between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds an edge whose target node is determined at
// runtime from the state.
//
// Example:
//
//	g.AddConditionalEdge("check", func(ctx context.Context, state MyState) string {
//	    if state.Count > 10 {
//	        return "high"
//	    }
//	    return "low"
//	})
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetMerge sets the merge hook applied after every node. It receives the
// state before the node and the node's result; returning an error aborts
// the run, which makes it a convenient place to enforce invariants such as
// append-only histories.
func (g *StateGraph[S]) SetMerge(merge func(current, next S) (S, error)) {
	g.merge = merge
}

// Compile validates the graph structure and returns a Runnable.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	outgoing := make(map[string]int)
	for _, edge := range g.edges {
		if _, ok := g.nodes[edge.From]; !ok {
			return nil, fmt.Errorf("%w: edge from %s", ErrNodeNotFound, edge.From)
		}
		if edge.To != END {
			if _, ok := g.nodes[edge.To]; !ok {
				return nil, fmt.Errorf("%w: edge to %s", ErrNodeNotFound, edge.To)
			}
		}
		outgoing[edge.From]++
	}
	for from := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: conditional edge from %s", ErrNodeNotFound, from)
		}
	}

	for name := range g.nodes {
		if _, ok := g.conditionalEdges[name]; ok {
			continue
		}
		switch outgoing[name] {
		case 0:
			return nil, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, name)
		case 1:
		default:
			return nil, fmt.Errorf("multiple outgoing edges from %s; use a conditional edge", name)
		}
	}

	return &Runnable[S]{graph: g}, nil
}

// Runnable represents a compiled state graph ready for execution.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Invoke executes the compiled state graph with the given input state and
// returns the final state.
func (r *Runnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the graph with per-run options. Execution runs
// node by node from the entry point (or Config.ResumeFrom) until a node
// routes to END, a node fails, the context is cancelled, or a node
// suspends via Interrupt, in which case the error is a *GraphInterrupt[S]
// carrying the suspended state.
//
// On failure the returned state is the last successfully merged state;
// callers that must not observe partial progress should invoke with a copy.
func (r *Runnable[S]) InvokeWithConfig(ctx context.Context, initialState S, config *Config) (S, error) {
	state := initialState
	current := r.graph.entryPoint
	maxSteps := DefaultMaxSteps

	if config != nil {
		if config.ResumeFrom != "" {
			if _, ok := r.graph.nodes[config.ResumeFrom]; !ok {
				return state, fmt.Errorf("%w: resume target %s", ErrNodeNotFound, config.ResumeFrom)
			}
			current = config.ResumeFrom
		}
		if config.ResumeValue != nil {
			ctx = WithResumeValue(ctx, config.ResumeValue)
		}
		if config.MaxSteps > 0 {
			maxSteps = config.MaxSteps
		}
	}

	for steps := 0; current != END; steps++ {
		if steps >= maxSteps {
			return state, fmt.Errorf("%w after %d nodes", ErrStepLimitExceeded, steps)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		log.Debug("executing node %s", current)
		next, err := node.Function(ctx, state)
		if err != nil {
			var interrupt *NodeInterrupt
			if errors.As(err, &interrupt) {
				interrupt.Node = current
				// Interrupting nodes return the state they want preserved.
				return next, &GraphInterrupt[S]{Node: current, State: next, Value: interrupt.Value}
			}
			return state, fmt.Errorf("node %s: %w", current, err)
		}

		if r.graph.merge != nil {
			merged, err := r.graph.merge(state, next)
			if err != nil {
				return state, fmt.Errorf("merge after node %s: %w", current, err)
			}
			next = merged
		}
		state = next

		current, err = r.route(ctx, current, state)
		if err != nil {
			return state, err
		}
	}

	return state, nil
}

// route picks the next node after "from". Conditional edges win over
// static ones.
func (r *Runnable[S]) route(ctx context.Context, from string, state S) (string, error) {
	if condition, ok := r.graph.conditionalEdges[from]; ok {
		to := condition(ctx, state)
		if to == "" {
			return "", fmt.Errorf("conditional edge from %s returned no target", from)
		}
		if to != END {
			if _, ok := r.graph.nodes[to]; !ok {
				return "", fmt.Errorf("%w: %s (routed from %s)", ErrNodeNotFound, to, from)
			}
		}
		return to, nil
	}

	for _, edge := range r.graph.edges {
		if edge.From == from {
			return edge.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}
