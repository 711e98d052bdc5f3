package graph

import (
	"context"
	"sync"
)

type resumeValueKey struct{}

// resumeCarrier holds a resume value that may be consumed exactly once.
// One-shot consumption lets a node interrupt again in the same run (a
// re-ask loop) without seeing the previous answer twice.
type resumeCarrier struct {
	mu    sync.Mutex
	value any
	taken bool
}

// WithResumeValue adds a resume value to the context. The first Interrupt
// call in the run receives it; later calls suspend again.
func WithResumeValue(ctx context.Context, value any) context.Context {
	return context.WithValue(ctx, resumeValueKey{}, &resumeCarrier{value: value})
}

// takeResumeValue consumes the pending resume value, if any.
func takeResumeValue(ctx context.Context) (any, bool) {
	carrier, ok := ctx.Value(resumeValueKey{}).(*resumeCarrier)
	if !ok {
		return nil, false
	}
	carrier.mu.Lock()
	defer carrier.mu.Unlock()
	if carrier.taken {
		return nil, false
	}
	carrier.taken = true
	return carrier.value, true
}
