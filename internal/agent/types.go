// Package agent implements the adaptive retrieval loop behind the
// caregiving assistant. A question is routed to a knowledge base,
// candidate passages are retrieved and graded for relevance by a judge
// model, the query is expanded to cover graded-out gaps, and the cycle
// repeats until a document quota is met or the retry budget runs out.
// The accepted documents are then synthesized into a cited answer.
package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/calmcare/calm-agent/internal/knowledge"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation history.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Input carries one question through the engine together with the
// per-request retrieval parameters. History is the bounded recent
// window of the conversation; the engine does not manage its length
// beyond formatting the most recent turns.
type Input struct {
	Question   string
	History    []Message
	Threshold  float64
	MaxRetries int
	DocNumber  int
}

// Knowledge base labels as emitted by the routing model.
const (
	kbLabelResearch      = "research"
	kbLabelPeerSupport   = "peer_support"
	kbLabelNotApplicable = "NA"
)

// RoutingDecision is the structured output of the intent router.
// KnowledgeBase is "NA" exactly when RequiresRetrieval is false.
type RoutingDecision struct {
	RequiresRetrieval bool   `json:"requires_retrieval"`
	KnowledgeBase     string `json:"knowledge_base"`
}

// KB maps the routing label to a knowledge base identifier. The second
// return is false for "NA" or any unrecognized label.
func (d RoutingDecision) KB() (knowledge.KB, bool) {
	switch d.KnowledgeBase {
	case kbLabelResearch:
		return knowledge.KBResearch, true
	case kbLabelPeerSupport:
		return knowledge.KBPeerSupport, true
	default:
		return "", false
	}
}

// consistent reports whether the decision satisfies its own invariant:
// a knowledge base is named exactly when retrieval is required.
func (d RoutingDecision) consistent() bool {
	if d.RequiresRetrieval {
		_, ok := d.KB()
		return ok
	}
	return d.KnowledgeBase == kbLabelNotApplicable || d.KnowledgeBase == ""
}

// GradedDocument is one document together with the judge's assessment.
// RelevanceScore is continuous in [0,1]; the accept threshold uses the
// same scale.
type GradedDocument struct {
	Document       knowledge.Document
	RelevanceScore float64
	Reasoning      string
	MissingTopics  []string
}

// sourceKey is the identity used for deduplication across retrieval
// rounds. Documents without a source URL fall back to exact content.
func (g GradedDocument) sourceKey() string {
	if url := g.Document.URL(); url != "" {
		return url
	}
	return g.Document.Content
}

// Source is one citation entry in a Generation, matching the 1-based
// [index] markers in the answer text.
type Source struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Generation is the final answer returned to the caller.
type Generation struct {
	Answer            string   `json:"answer"`
	Sources           []Source `json:"sources"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}
