package clarify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallnest/deepresearch/brief"
)

const (
	statusReady    = "ready"
	statusNeedMore = "need_more"
)

// topicQuestion is asked whenever the model declares itself ready without
// having extracted a topic.
const topicQuestion = "Could you please tell me what topic you'd like me to research?"

const correctivePrompt = `Your previous reply was not valid JSON in the required format. Return ONLY the JSON object with the fields "status", "questions" and "brief", no additional text.`

// buildSystemPrompt creates the instruction for one clarification round.
func buildSystemPrompt(draft *brief.Brief, maxQuestions int) string {
	var sb strings.Builder
	sb.WriteString(`You are a research assistant helping to clarify the scope of a research project. Your goal is to understand:
1. The main topic to research
2. Specific objectives and goals
3. Key questions to answer
4. Any constraints or limitations

`)

	if draft != nil {
		if data, err := json.Marshal(draft); err == nil {
			sb.WriteString("Current draft of the research brief:\n")
			sb.Write(data)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString(fmt.Sprintf(`Analyze the conversation and decide whether you have enough information for a comprehensive research brief. You need a clear topic, two or three specific objectives and some key questions to answer.

Respond in the following JSON format:
{
  "status": "ready" or "need_more",
  "questions": ["clarifying question"],
  "brief": {
    "topic": "main research topic",
    "objectives": ["specific objective"],
    "key_questions": ["question the research must answer"],
    "constraints": ["constraint or limitation"]
  }
}

Rules:
1. Use status "ready" only when the conversation supports a complete brief
2. With status "need_more", ask at most %d concise, focused questions
3. Always include your best current "brief" built from the conversation
4. Return ONLY the JSON object, no additional text`, maxQuestions))

	return sb.String()
}
