package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/calmcare/calm-agent/internal/knowledge"
)

// sentinelReasoning marks a grading that could not be completed. The
// sentinel scores at the bottom of the scale so the merge step treats
// the document as simply below threshold.
const sentinelReasoning = "evaluation error"

// RelevanceJudge implements Judge with one structured model call per
// document.
type RelevanceJudge struct {
	g     *genkit.Genkit
	model string
	settings
}

// NewRelevanceJudge builds a judge on the given model.
func NewRelevanceJudge(g *genkit.Genkit, model string, opts ...Option) *RelevanceJudge {
	return &RelevanceJudge{g: g, model: model, settings: newSettings(opts...)}
}

// assessment is the judge model's structured output.
type assessment struct {
	RelevanceScore float64  `json:"relevance_score"`
	Reasoning      string   `json:"reasoning"`
	MissingTopics  []string `json:"missing_topics"`
}

// Grade scores one document against the question on the [0,1] scale.
func (j *RelevanceJudge) Grade(ctx context.Context, question string, doc knowledge.Document) (GradedDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Query:\n%s\n\nThis is the document you will be grading:\n<start_of_document>\n%s\n<end_of_document>",
		question, doc.Content)

	opts := []ai.GenerateOption{
		ai.WithModelName(j.model),
		ai.WithSystem(gradingSystemPrompt),
		ai.WithPrompt(prompt),
		ai.WithOutputType(assessment{}),
	}
	if j.config != nil {
		opts = append(opts, ai.WithConfig(j.config))
	}

	response, err := genkit.Generate(ctx, j.g, opts...)
	if err != nil {
		return GradedDocument{}, err
	}

	var out assessment
	if err := response.Output(&out); err != nil {
		return GradedDocument{}, fmt.Errorf("parse assessment: %w", err)
	}
	if out.RelevanceScore < 0 || out.RelevanceScore > 1 {
		return GradedDocument{}, fmt.Errorf("relevance score %v outside [0,1]", out.RelevanceScore)
	}
	if len(out.MissingTopics) > 3 {
		out.MissingTopics = out.MissingTopics[:3]
	}

	return GradedDocument{
		Document:       doc,
		RelevanceScore: out.RelevanceScore,
		Reasoning:      out.Reasoning,
		MissingTopics:  out.MissingTopics,
	}, nil
}

// GradeBatch grades all documents concurrently. The result has exactly
// one entry per input document, in input order; a failed grading is
// substituted with the sentinel rather than failing the batch.
func (j *RelevanceJudge) GradeBatch(ctx context.Context, question string, docs []knowledge.Document) []GradedDocument {
	return gradeConcurrently(ctx, question, docs, j.logger, j.Grade)
}

type gradeFunc func(ctx context.Context, question string, doc knowledge.Document) (GradedDocument, error)

// gradeConcurrently fans one grading goroutine out per document and
// waits for the whole batch. Output order matches input order
// regardless of completion order.
func gradeConcurrently(ctx context.Context, question string, docs []knowledge.Document, logger *slog.Logger, grade gradeFunc) []GradedDocument {
	results := make([]GradedDocument, len(docs))

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			graded, err := grade(ctx, question, doc)
			if err != nil {
				if logger != nil {
					logger.Warn("grading failed, substituting sentinel", "document_id", doc.ID, "error", err)
				}
				results[i] = sentinelGrade(doc)
				return
			}
			results[i] = graded
		}()
	}
	wg.Wait()

	return results
}

// sentinelGrade stands in for a grading that errored or timed out.
func sentinelGrade(doc knowledge.Document) GradedDocument {
	return GradedDocument{
		Document:       doc,
		RelevanceScore: 0,
		Reasoning:      sentinelReasoning,
		MissingTopics:  []string{sentinelReasoning},
	}
}
