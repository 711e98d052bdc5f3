// Package agent wires the clarification and research stages into one
// resumable pipeline: a phase machine over the graph substrate, advanced
// one user input at a time and suspendable at every human-in-the-loop
// point.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	deepresearch "github.com/smallnest/deepresearch"
	"github.com/smallnest/deepresearch/clarify"
	"github.com/smallnest/deepresearch/graph"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/research"
	"github.com/smallnest/deepresearch/search"
	"github.com/smallnest/deepresearch/session"
)

// DefaultMaxClarifyRounds caps the clarification question rounds before a
// topic-bearing draft is presented for approval as-is.
const DefaultMaxClarifyRounds = 5

// Config assembles an Agent. Model and Search are required; everything
// else has a sensible default.
type Config struct {
	// Model generates clarification questions, search queries, and the
	// report text.
	Model llms.Model

	// Search executes the research queries.
	Search search.Client

	// Store persists the session after every advance. Nil disables
	// persistence.
	Store session.Store

	// Fetcher enriches thin search snippets with page text. Optional.
	Fetcher *search.Fetcher

	// Logger defaults to the package default logger.
	Logger log.Logger

	// MaxClarifyRounds caps clarification question rounds. Zero means
	// DefaultMaxClarifyRounds.
	MaxClarifyRounds int

	// MaxIterations caps search calls per research run. Zero means the
	// research default.
	MaxIterations int

	// QueriesPerQuestion caps planned queries per key question. Zero
	// means the research default.
	QueriesPerQuestion int

	// MinFindings is the minimum finding count a research run must
	// gather. Zero means the research default.
	MinFindings int

	// Retry bounds transient retries of model and search calls. A zero
	// MaxAttempts means DefaultPolicy.
	Retry deepresearch.Policy
}

// Agent drives research sessions from the first user message to a
// finished report. It holds no per-session state, so one Agent can serve
// many sessions; each session is advanced by one goroutine at a time.
type Agent struct {
	clarifier  *clarify.Clarifier
	researcher *research.Researcher
	store      session.Store
	logger     log.Logger
	maxRounds  int
	runnable   *graph.Runnable[*session.State]
}

// New creates an Agent from the config.
func New(cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, errors.New("agent: model is required")
	}
	if cfg.Search == nil {
		return nil, errors.New("agent: search client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = deepresearch.DefaultPolicy()
	}
	maxRounds := cfg.MaxClarifyRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxClarifyRounds
	}

	clarifier, err := clarify.New(cfg.Model,
		clarify.WithRetryPolicy(retry),
		clarify.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	researchOpts := []research.Option{
		research.WithRetryPolicy(retry),
		research.WithLogger(logger),
	}
	if cfg.MaxIterations > 0 {
		researchOpts = append(researchOpts, research.WithMaxIterations(cfg.MaxIterations))
	}
	if cfg.QueriesPerQuestion > 0 {
		researchOpts = append(researchOpts, research.WithQueriesPerQuestion(cfg.QueriesPerQuestion))
	}
	if cfg.MinFindings > 0 {
		researchOpts = append(researchOpts, research.WithMinFindings(cfg.MinFindings))
	}
	if cfg.Fetcher != nil {
		researchOpts = append(researchOpts, research.WithFetcher(cfg.Fetcher))
	}
	researcher, err := research.New(cfg.Model, cfg.Search, researchOpts...)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		clarifier:  clarifier,
		researcher: researcher,
		store:      cfg.Store,
		logger:     logger,
		maxRounds:  maxRounds,
	}
	a.runnable, err = a.buildGraph()
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NewSession starts a fresh session in the clarifying phase.
func (a *Agent) NewSession() *session.State {
	return session.New()
}

// Advance feeds one user input into the session and runs the pipeline
// until it suspends for more input, finishes the report, or fails.
//
// Advance never mutates the caller's state; it works on a deep clone.
// On a failure the returned state is the last node-consistent snapshot
// (a failing call leaves the session in its pre-call phase, eligible
// for retry) with the explanation in LastError. On suspension the
// pending question is the last agent turn and the state's ResumeNode
// records where to resume.
func (a *Agent) Advance(ctx context.Context, st *session.State, input string) (*session.State, error) {
	if st == nil {
		return nil, errors.New("agent: session state is required")
	}
	if st.Phase == session.PhaseComplete {
		return st, fmt.Errorf("%w: session %s is already complete", deepresearch.ErrInvalidPhaseTransition, st.ID)
	}

	work := st.Clone()
	work.LastError = ""

	cfg := &graph.Config{}
	switch {
	case work.ResumeNode != "":
		cfg.ResumeFrom = work.ResumeNode
		cfg.ResumeValue = input
		work.ResumeNode = ""
	case work.Phase == session.PhaseResearching:
		// A restored or previously failed session re-enters mid-stage.
		cfg.ResumeFrom = nodeResearch
		if len(work.Findings) > 0 {
			cfg.ResumeFrom = nodeReport
		}
		if input != "" {
			work.AppendUser(input)
		}
	default:
		if input != "" {
			work.AppendUser(input)
		}
	}

	final, err := a.runnable.InvokeWithConfig(ctx, work, cfg)
	if err != nil {
		var interrupt *graph.GraphInterrupt[*session.State]
		if errors.As(err, &interrupt) {
			suspended := interrupt.State
			suspended.ResumeNode = interrupt.Node
			return a.persist(ctx, suspended)
		}
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			final.LastError = err.Error()
			a.persistBestEffort(ctx, final)
		}
		return final, err
	}
	return a.persist(ctx, final)
}

// persist saves the state when a store is configured. The advanced state
// is returned even when the save fails.
func (a *Agent) persist(ctx context.Context, st *session.State) (*session.State, error) {
	if a.store == nil {
		return st, nil
	}
	if err := a.store.Save(ctx, st); err != nil {
		return st, fmt.Errorf("failed to save session %s: %w", st.ID, err)
	}
	return st, nil
}

// persistBestEffort saves a failure snapshot without masking the run's
// own error.
func (a *Agent) persistBestEffort(ctx context.Context, st *session.State) {
	if a.store == nil || ctx.Err() != nil {
		return
	}
	if err := a.store.Save(ctx, st); err != nil {
		a.logger.Warn("agent: could not save session %s: %v", st.ID, err)
	}
}
