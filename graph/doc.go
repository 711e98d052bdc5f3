// Package graph provides the typed state-machine substrate the research
// pipeline runs on.
//
// A StateGraph[S] is a directed graph of named nodes, each a function from
// state to state. Static edges connect nodes in a fixed order; conditional
// edges pick the next node from the state at runtime. Execution is single
// threaded: one node runs at a time and the state it returns feeds the
// next, optionally passed through a merge hook that can enforce state
// invariants.
//
// # Example
//
//	type Counter struct{ N int }
//
//	g := graph.NewStateGraph[Counter]()
//	g.AddNode("inc", "Increment", func(ctx context.Context, s Counter) (Counter, error) {
//	    s.N++
//	    return s, nil
//	})
//	g.AddConditionalEdge("inc", func(ctx context.Context, s Counter) string {
//	    if s.N < 3 {
//	        return "inc"
//	    }
//	    return graph.END
//	})
//	g.SetEntryPoint("inc")
//
//	runnable, _ := g.Compile()
//	out, _ := runnable.Invoke(ctx, Counter{})
//
// # Interrupts
//
// A node can suspend the run to wait for outside input, the mechanism the
// clarification stage uses to ask a human a question:
//
//	g.AddNode("ask", "Ask for input", func(ctx context.Context, s State) (State, error) {
//	    reply, err := graph.Interrupt(ctx, "Continue? (yes/no)")
//	    if err != nil {
//	        return s, err // suspends; Invoke returns *GraphInterrupt[State]
//	    }
//	    s.Answer = reply.(string)
//	    return s, nil
//	})
//
// The caller detects the suspension with errors.As, shows the interrupt
// value to the user, and resumes with
// Config{ResumeFrom: node, ResumeValue: answer}. Resume values are
// consumed exactly once per run, so a node may interrupt repeatedly
// without re-reading a stale answer.
//
// Compile validates the wiring up front: a set entry point, edges that
// reference known nodes, and exactly one way out of every node (a single
// static edge or a conditional edge). Runs are bounded by Config.MaxSteps
// to keep routing cycles from spinning forever.
package graph
