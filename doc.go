// Deep Research - A Clarify-then-Research Pipeline in Go
//
// Deep Research is a library for turning a vague research request into a
// cited report in two phases: a conversational clarification stage that
// produces an approved research brief, and a bounded search stage that
// executes the brief against a web search provider and synthesizes a
// sectioned, cited report.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/smallnest/deepresearch
//
// Basic example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/smallnest/deepresearch/agent"
//		"github.com/smallnest/deepresearch/search"
//		"github.com/tmc/langchaingo/llms/openai"
//	)
//
//	func main() {
//		llm, _ := openai.New()
//		tavily, _ := search.NewTavilySearch()
//
//		a, _ := agent.New(agent.Config{Model: llm, Search: tavily})
//
//		ctx := context.Background()
//		st := a.NewSession()
//
//		// Each Advance either asks a clarifying question (shown as the
//		// last agent turn) or moves the session forward.
//		st, _ = a.Advance(ctx, st, "I want to research renewable energy trends")
//		if turn, ok := st.LastAgentTurn(); ok {
//			fmt.Println(turn.Content)
//		}
//	}
//
// # Pipeline
//
// A session moves through three phases:
//
//   - clarifying: the agent asks targeted questions, builds a draft brief,
//     and presents it for explicit approval
//   - researching: the agent plans queries per key question, searches,
//     collects findings, and writes the report
//   - complete: the report is attached to the session; further advances fail
//
// Phases only move forward. The brief is immutable once approved, the
// conversation is append-only, and a failed advance never corrupts the
// caller's state.
//
// # Package Structure
//
// agent/
// The orchestrator: an explicit, resumable Advance step function over the
// two stages, with human-in-the-loop suspension between turns.
//
// clarify/
// The clarification stage: structured brief extraction, readiness
// classification, and approval handling.
//
// research/
// The research stage: query planning, search execution with retry,
// finding collection, and report synthesis with citations.
//
// session/
// Session state, the phase machine, and pluggable persistence (in-memory,
// Redis, SQLite, PostgreSQL).
//
// search/
// Search provider clients (Tavily, Brave) and an optional page fetcher
// that enriches thin result snippets.
//
// brief/
// The research brief artifact: topic, objectives, key questions,
// constraints.
//
// graph/
// The small typed state-machine substrate the orchestrator runs on, with
// node-level suspend/resume for human input.
//
// llms/openaicompat/
// An llms.Model provider for OpenAI-compatible endpoints, for running the
// pipeline against vLLM, Ollama, DeepSeek and similar services.
//
// log/
// Leveled logging with a golog-backed implementation.
//
// # Configuration
//
// Components take explicit configuration records and functional options.
// API keys default from environment variables:
//
//   - OPENAI_API_KEY: key for the OpenAI-compatible provider
//   - TAVILY_API_KEY: key for Tavily search
//   - BRAVE_API_KEY: key for Brave search
//
// # Persistence
//
// Sessions are plain JSON documents keyed by session ID. Any session.Store
// backend can persist a suspended session, including mid-clarification,
// and a later Advance resumes it where it stopped:
//
//	store, _ := sqlite.New(sqlite.Options{Path: "research.db"})
//	a, _ := agent.New(agent.Config{Model: llm, Search: tavily, Store: store})
//
// See the examples directory for runnable interactive, batch, and
// persistence demos.
package deepresearch // import "github.com/smallnest/deepresearch"
