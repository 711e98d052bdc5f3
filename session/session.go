// Package session holds the durable state of one research conversation:
// the transcript, the clarification draft and approved brief, the phase
// machine, and the research artifacts accumulated along the way. A
// session is the unit of persistence; the Store interface abstracts the
// backends under session/memory, session/redis, session/sqlite, and
// session/postgres.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/deepresearch"
	"github.com/smallnest/deepresearch/brief"
	"github.com/smallnest/deepresearch/research"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one conversation entry. Conversations are append-only; there
// is no API for removing or editing a turn.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Phase names the pipeline stage a session is in. Phases only move
// forward: clarifying, then researching, then complete. A clarifying
// session may also complete directly when the user declines to
// continue; such an aborted session never carries a report.
type Phase string

const (
	PhaseClarifying  Phase = "clarifying"
	PhaseResearching Phase = "researching"
	PhaseComplete    Phase = "complete"
)

// State is the full session record.
//
// Draft is the clarification working brief and changes between rounds.
// Brief is set exactly once, at approval, and is nil while clarifying.
// Findings and Report accumulate during research so a persisted session
// can resume mid-stage. ResumeNode records the graph node a suspended
// run is waiting in. LastError keeps the explanation of the most recent
// failed run for display; it is cleared when a run succeeds.
type State struct {
	ID               string             `json:"id"`
	Conversation     []Turn             `json:"conversation"`
	Draft            *brief.Brief       `json:"draft,omitempty"`
	Brief            *brief.Brief       `json:"brief,omitempty"`
	Phase            Phase              `json:"phase"`
	Findings         []research.Finding `json:"findings,omitempty"`
	Report           *research.Report   `json:"report,omitempty"`
	Rounds           int                `json:"rounds"`
	AwaitingApproval bool               `json:"awaiting_approval"`
	ResumeNode       string             `json:"resume_node,omitempty"`
	LastError        string             `json:"last_error,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// New creates a fresh session in the clarifying phase.
func New() *State {
	now := time.Now()
	return &State{
		ID:        uuid.New().String(),
		Phase:     PhaseClarifying,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendUser appends a user turn to the conversation.
func (s *State) AppendUser(content string) {
	s.appendTurn(RoleUser, content)
}

// AppendAgent appends an agent turn to the conversation.
func (s *State) AppendAgent(content string) {
	s.appendTurn(RoleAgent, content)
}

func (s *State) appendTurn(role Role, content string) {
	now := time.Now()
	s.Conversation = append(s.Conversation, Turn{Role: role, Content: content, At: now})
	s.UpdatedAt = now
}

// LastAgentTurn returns the most recent agent turn. For a suspended
// session this is the pending question or confirmation to show the user.
func (s *State) LastAgentTurn() (Turn, bool) {
	for i := len(s.Conversation) - 1; i >= 0; i-- {
		if s.Conversation[i].Role == RoleAgent {
			return s.Conversation[i], true
		}
	}
	return Turn{}, false
}

// Transition moves the session to the next phase. Only forward steps
// are allowed: clarifying to researching, researching to complete, and
// the abort step clarifying to complete for a user who declines to
// continue. Anything else fails with ErrInvalidPhaseTransition and
// leaves the state untouched.
func (s *State) Transition(to Phase) error {
	valid := (s.Phase == PhaseClarifying && to == PhaseResearching) ||
		(s.Phase == PhaseClarifying && to == PhaseComplete) ||
		(s.Phase == PhaseResearching && to == PhaseComplete)
	if !valid {
		return fmt.Errorf("%w: %s to %s", deepresearch.ErrInvalidPhaseTransition, s.Phase, to)
	}
	s.Phase = to
	s.UpdatedAt = time.Now()
	return nil
}

// Clone returns a deep copy of the session.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.Conversation != nil {
		out.Conversation = append([]Turn(nil), s.Conversation...)
	}
	out.Draft = s.Draft.Clone()
	out.Brief = s.Brief.Clone()
	if s.Findings != nil {
		out.Findings = append([]research.Finding(nil), s.Findings...)
	}
	out.Report = s.Report.Clone()
	return &out
}

func phaseRank(p Phase) int {
	switch p {
	case PhaseClarifying:
		return 0
	case PhaseResearching:
		return 1
	case PhaseComplete:
		return 2
	}
	return -1
}

// MergeGuard validates a node result against the state it replaces:
// the phase must not regress and the existing conversation must be a
// prefix of the new one. Wired as the graph merge hook so a buggy node
// cannot rewind the session.
func MergeGuard(current, next *State) (*State, error) {
	if next == nil {
		return current, fmt.Errorf("merge: nil session state")
	}
	if current == nil {
		return next, nil
	}
	if phaseRank(next.Phase) < phaseRank(current.Phase) {
		return current, fmt.Errorf("%w: %s back to %s", deepresearch.ErrInvalidPhaseTransition, current.Phase, next.Phase)
	}
	if len(next.Conversation) < len(current.Conversation) {
		return current, fmt.Errorf("merge: conversation shrank from %d to %d turns", len(current.Conversation), len(next.Conversation))
	}
	for i := range current.Conversation {
		if next.Conversation[i].Role != current.Conversation[i].Role ||
			next.Conversation[i].Content != current.Conversation[i].Content {
			return current, fmt.Errorf("merge: conversation turn %d rewritten", i)
		}
	}
	return next, nil
}
