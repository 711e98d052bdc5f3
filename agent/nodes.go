package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/smallnest/deepresearch/clarify"
	"github.com/smallnest/deepresearch/graph"
	"github.com/smallnest/deepresearch/session"
)

// Node names of the internal graph. ResumeNode values are drawn from
// these, so they are part of the persisted session format.
const (
	nodeClarify  = "clarify"
	nodeApprove  = "approve"
	nodeResearch = "research"
	nodeReport   = "report"
)

const approvalReask = `I wasn't sure how to read that. Reply "yes" to start the research, tell me what to change, or "cancel" to stop.`

const declinedMessage = "Understood, stopping here. No research was run."

func (a *Agent) buildGraph() (*graph.Runnable[*session.State], error) {
	g := graph.NewStateGraph[*session.State]()

	g.AddNode(nodeClarify, "Runs one clarification round over the conversation", cloneBound(a.clarifyNode))
	g.AddNode(nodeApprove, "Presents the draft brief and classifies the verdict", cloneBound(a.approveNode))
	g.AddNode(nodeResearch, "Plans queries and gathers findings for the approved brief", cloneBound(a.researchNode))
	g.AddNode(nodeReport, "Composes the cited report and completes the session", cloneBound(a.reportNode))

	g.SetEntryPoint(nodeClarify)
	g.AddEdge(nodeClarify, nodeApprove)
	g.AddConditionalEdge(nodeApprove, func(ctx context.Context, st *session.State) string {
		switch st.Phase {
		case session.PhaseResearching:
			return nodeResearch
		case session.PhaseComplete:
			return graph.END
		default:
			return nodeClarify
		}
	})
	g.AddEdge(nodeResearch, nodeReport)
	g.AddEdge(nodeReport, graph.END)

	g.SetMerge(session.MergeGuard)
	return g.Compile()
}

// cloneBound runs fn on a copy of the state, so the merge guard compares
// distinct before and after snapshots and a failing node's mutations are
// discarded.
func cloneBound(fn func(context.Context, *session.State) (*session.State, error)) func(context.Context, *session.State) (*session.State, error) {
	return func(ctx context.Context, st *session.State) (*session.State, error) {
		return fn(ctx, st.Clone())
	}
}

// clarifyNode runs one clarification round. When the round ends with
// more questions the node suspends; it re-enters with the user's answer
// on the resumed run.
func (a *Agent) clarifyNode(ctx context.Context, st *session.State) (*session.State, error) {
	// A resumed round carries the answer to the questions in the last
	// agent turn.
	if n := len(st.Conversation); n > 0 && st.Conversation[n-1].Role == session.RoleAgent {
		reply, err := graph.Interrupt(ctx, st.Conversation[n-1].Content)
		if err != nil {
			return st, err
		}
		if text, ok := reply.(string); ok && strings.TrimSpace(text) != "" {
			st.AppendUser(text)
		}
	}

	result, err := a.clarifier.Run(ctx, st.Conversation, st.Draft)
	if err != nil {
		return st, err
	}
	if result.Draft != nil {
		st.Draft = result.Draft
	}

	if result.Ready {
		return st, nil
	}

	// The round cap forces a topic-bearing draft to presentation instead
	// of asking forever; without a topic there is nothing to present.
	if st.Rounds >= a.maxRounds && st.Draft != nil && st.Draft.Validate() == nil {
		a.logger.Info("agent: clarification round cap reached for session %s, presenting draft", st.ID)
		return st, nil
	}

	st.Rounds++
	questions := strings.Join(result.Questions, "\n")
	st.AppendAgent(questions)
	if _, err := graph.Interrupt(ctx, questions); err != nil {
		return st, err
	}
	return st, nil
}

// approveNode presents the draft for approval and acts on the verdict:
// approved freezes the brief and moves to research, rejected loops back
// to clarification with the feedback in the conversation, declined
// completes the session without a report, ambiguous re-asks.
func (a *Agent) approveNode(ctx context.Context, st *session.State) (*session.State, error) {
	if st.Draft == nil {
		return st, errors.New("agent: no draft brief to approve")
	}

	if !st.AwaitingApproval {
		st.AwaitingApproval = true
		st.AppendAgent(clarify.ConfirmationMessage(st.Draft))
	}

	pending := ""
	if turn, ok := st.LastAgentTurn(); ok {
		pending = turn.Content
	}
	reply, err := graph.Interrupt(ctx, pending)
	if err != nil {
		return st, err
	}

	text, _ := reply.(string)
	if strings.TrimSpace(text) != "" {
		st.AppendUser(text)
	}

	verdict, verr := clarify.ClassifyApproval(text)
	switch verdict {
	case clarify.Approved:
		st.AwaitingApproval = false
		st.Brief = st.Draft.Clone()
		if err := st.Transition(session.PhaseResearching); err != nil {
			return st, err
		}
		a.logger.Info("agent: brief approved for session %s: %s", st.ID, st.Brief.Topic)
	case clarify.Rejected:
		// The reply stays in the conversation as revision feedback for
		// the next clarification round.
		st.AwaitingApproval = false
		a.logger.Debug("agent: brief rejected for session %s", st.ID)
	case clarify.Declined:
		st.AwaitingApproval = false
		st.AppendAgent(declinedMessage)
		if err := st.Transition(session.PhaseComplete); err != nil {
			return st, err
		}
		a.logger.Info("agent: session %s declined at approval", st.ID)
	default:
		a.logger.Debug("agent: ambiguous approval reply for session %s: %v", st.ID, verr)
		st.AppendAgent(approvalReask)
		if _, err := graph.Interrupt(ctx, approvalReask); err != nil {
			return st, err
		}
	}
	return st, nil
}

// researchNode gathers findings for the approved brief.
func (a *Agent) researchNode(ctx context.Context, st *session.State) (*session.State, error) {
	if st.Brief == nil {
		return st, errors.New("agent: no approved brief to research")
	}

	a.logger.Info("agent: researching %q for session %s", st.Brief.Topic, st.ID)
	findings, err := a.researcher.Gather(ctx, st.Brief)
	if err != nil {
		return st, err
	}
	st.Findings = findings
	return st, nil
}

// reportNode composes the report and completes the session. The report
// text is also appended as the final agent turn of the transcript.
func (a *Agent) reportNode(ctx context.Context, st *session.State) (*session.State, error) {
	if st.Brief == nil {
		return st, errors.New("agent: no approved brief to report on")
	}

	report, err := a.researcher.Compose(ctx, st.Brief, st.Findings)
	if err != nil {
		return st, err
	}
	st.Report = report
	st.AppendAgent(report.Markdown())
	if err := st.Transition(session.PhaseComplete); err != nil {
		return st, err
	}
	a.logger.Info("agent: report ready for session %s, %d sections", st.ID, len(report.Sections))
	return st, nil
}
