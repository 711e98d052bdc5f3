package clarify

import (
	"fmt"
	"strings"

	deepresearch "github.com/smallnest/deepresearch"
	"github.com/smallnest/deepresearch/brief"
)

// Approval classifies a user's reply to a presented brief.
type Approval int

const (
	// Ambiguous means the reply neither approves nor rejects the brief.
	// It is always re-asked, never guessed.
	Ambiguous Approval = iota
	// Approved means the user accepted the brief as presented.
	Approved
	// Rejected means the user wants changes; the reply text is the feedback.
	Rejected
	// Declined means the user does not want to continue at all; the
	// session ends without a report.
	Declined
)

// String returns the string representation of an Approval.
func (a Approval) String() string {
	switch a {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	case Declined:
		return "declined"
	default:
		return "ambiguous"
	}
}

// Decline markers end the session outright. They are matched before
// rejection so "no thanks, forget it" is not read as revision feedback;
// a bare "no" stays a revision request.
var declineWords = map[string]bool{
	"cancel": true, "quit": true, "abort": true, "exit": true,
	"nevermind": true,
}

var declinePhrases = []string{
	"never mind", "forget it", "no thanks", "not interested",
	"stop the research", "don't bother", "changed my mind", "give up",
}

// Rejection is checked before approval so that "no, looks good except..."
// and "not correct" read as revision requests.
var rejectionWords = map[string]bool{
	"no": true, "nope": true, "not": true, "don't": true, "dont": true,
	"change": true, "revise": true, "rework": true, "redo": true,
	"wrong": true, "incorrect": true, "instead": true, "rather": true,
	"different": true, "adjust": true, "modify": true,
	"add": true, "remove": true, "drop": true,
}

var approvalWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true,
	"confirm": true, "confirmed": true, "correct": true,
	"proceed": true, "perfect": true,
	"approve": true, "approved": true,
	"ok": true, "okay": true, "sure": true,
}

var approvalPhrases = []string{"looks good", "sounds good", "go ahead"}

// ClassifyApproval decides whether a reply approves the presented brief,
// rejects it with feedback, declines to continue at all, or is too
// ambiguous to act on. Ambiguous replies come back with
// ErrAmbiguousApproval so callers re-ask.
func ClassifyApproval(reply string) (Approval, error) {
	text := strings.ToLower(strings.TrimSpace(reply))
	if text == "" {
		return Ambiguous, fmt.Errorf("%w: empty reply", deepresearch.ErrAmbiguousApproval)
	}

	words := tokenize(text)
	for _, phrase := range declinePhrases {
		if strings.Contains(text, phrase) {
			return Declined, nil
		}
	}
	for _, w := range words {
		if declineWords[w] {
			return Declined, nil
		}
	}
	for _, w := range words {
		if rejectionWords[w] {
			return Rejected, nil
		}
	}
	for _, w := range words {
		if approvalWords[w] {
			return Approved, nil
		}
	}
	for _, phrase := range approvalPhrases {
		if strings.Contains(text, phrase) {
			return Approved, nil
		}
	}

	return Ambiguous, fmt.Errorf("%w: %q", deepresearch.ErrAmbiguousApproval, reply)
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := strings.Trim(f, ".,!?;:\"'()[]"); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// ConfirmationMessage formats a brief for presentation and asks the user to
// approve it.
func ConfirmationMessage(b *brief.Brief) string {
	if b == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Great! I've prepared the research brief:\n\n")
	sb.WriteString(fmt.Sprintf("**Topic:** %s\n", b.Topic))

	if len(b.Objectives) > 0 {
		sb.WriteString("\n**Objectives:**\n")
		for _, obj := range b.Objectives {
			sb.WriteString("- " + obj + "\n")
		}
	}

	if len(b.KeyQuestions) > 0 {
		sb.WriteString("\n**Key Questions:**\n")
		for _, q := range b.KeyQuestions {
			sb.WriteString("- " + q + "\n")
		}
	}

	sb.WriteString("\n**Constraints:**\n")
	if len(b.Constraints) > 0 {
		for _, c := range b.Constraints {
			sb.WriteString("- " + c + "\n")
		}
	} else {
		sb.WriteString("None specified\n")
	}

	sb.WriteString("\nShall I proceed with the research? (yes / request changes)")
	return sb.String()
}
