package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// degradedAnswer is returned when the final generation call itself
// fails. Synthesis is the last user-facing step, so it never surfaces
// an error to the caller.
const degradedAnswer = "I'm sorry, I wasn't able to put together a complete answer just now. Please try asking your question again in a moment, and reach out to a healthcare professional if the matter is urgent."

// AnswerSynthesizer implements Synthesizer with one structured model
// call. The citation list is derived from the context documents rather
// than trusted from the model.
type AnswerSynthesizer struct {
	g     *genkit.Genkit
	model string
	settings
}

// NewAnswerSynthesizer builds a synthesizer on the given model.
func NewAnswerSynthesizer(g *genkit.Genkit, model string, opts ...Option) *AnswerSynthesizer {
	return &AnswerSynthesizer{g: g, model: model, settings: newSettings(opts...)}
}

// synthesisOutput is the structured part the model produces; sources
// are assembled locally so indexes always match the context numbering.
type synthesisOutput struct {
	Answer            string   `json:"answer"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// Synthesize produces the final answer. In informal mode (direct
// answers and empty retrieval results) the model speaks generally and
// the source list is empty. Errors degrade to an apologetic Generation.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, docs []GradedDocument, conversation string, informal bool) Generation {
	sources := buildSources(docs)

	out, err := s.generate(ctx, question, docs, sources, conversation, informal)
	if err != nil {
		s.logger.Error("synthesis failed, returning degraded answer", "error", err)
		return Generation{
			Answer:            degradedAnswer,
			Sources:           []Source{},
			FollowUpQuestions: []string{},
		}
	}

	if out.FollowUpQuestions == nil {
		out.FollowUpQuestions = []string{}
	}
	return Generation{
		Answer:            out.Answer,
		Sources:           sources,
		FollowUpQuestions: out.FollowUpQuestions,
	}
}

func (s *AnswerSynthesizer) generate(ctx context.Context, question string, docs []GradedDocument, sources []Source, conversation string, informal bool) (synthesisOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	system := synthesisSystemPrompt
	if informal {
		system = directSystemPrompt
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(s.model),
		ai.WithSystem(system),
		ai.WithPrompt(synthesisUserPrompt(question, docs, sources, conversation, informal)),
		ai.WithOutputType(synthesisOutput{}),
	}
	if s.config != nil {
		opts = append(opts, ai.WithConfig(s.config))
	}

	response, err := genkit.Generate(ctx, s.g, opts...)
	if err != nil {
		return synthesisOutput{}, err
	}

	var out synthesisOutput
	if err := response.Output(&out); err != nil {
		return synthesisOutput{}, fmt.Errorf("parse generation: %w", err)
	}
	return out, nil
}

// buildSources lists one entry per unique source URL, in the order
// first encountered in the already score-sorted document list. Indexes
// are 1-based and match the citation markers offered to the model.
func buildSources(docs []GradedDocument) []Source {
	sources := make([]Source, 0, len(docs))
	indexByURL := make(map[string]int, len(docs))
	for _, gd := range docs {
		url := gd.Document.URL()
		if url == "" {
			continue
		}
		if _, ok := indexByURL[url]; ok {
			continue
		}
		indexByURL[url] = len(sources) + 1
		sources = append(sources, Source{
			Index: len(sources) + 1,
			URL:   url,
			Title: gd.Document.Title(),
		})
	}
	return sources
}

func synthesisUserPrompt(question string, docs []GradedDocument, sources []Source, conversation string, informal bool) string {
	var b strings.Builder

	b.WriteString("The caregiver's current question:\n")
	b.WriteString(question)

	if !informal && len(docs) > 0 {
		indexByURL := make(map[string]int, len(sources))
		for _, src := range sources {
			indexByURL[src.URL] = src.Index
		}

		b.WriteString("\n\nRelevant information to guide your response. Cite passages in-text by their bracketed index:\n")
		for _, gd := range docs {
			if idx, ok := indexByURL[gd.Document.URL()]; ok {
				fmt.Fprintf(&b, "\n[%d] %s\n%s\n", idx, gd.Document.Title(), gd.Document.Content)
			} else {
				fmt.Fprintf(&b, "\n(uncited passage)\n%s\n", gd.Document.Content)
			}
		}
	}

	if conversation != "" {
		b.WriteString("\n\nChat history for reference:\n")
		b.WriteString(conversation)
	}
	return b.String()
}
