package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// QueryExpander implements Expander with a short completion call. An
// empty missing-topic list is a no-op and skips the model entirely.
type QueryExpander struct {
	g     *genkit.Genkit
	model string
	settings
}

// NewQueryExpander builds an expander on the given model.
func NewQueryExpander(g *genkit.Genkit, model string, opts ...Option) *QueryExpander {
	return &QueryExpander{g: g, model: model, settings: newSettings(opts...)}
}

// Expand rewrites the query to also cover the missing topics. An empty
// or blank completion triggers exactly one strict-mode retry before the
// error propagates.
func (e *QueryExpander) Expand(ctx context.Context, query string, missingTopics []string) (string, error) {
	if len(missingTopics) == 0 {
		return query, nil
	}

	expanded, err := e.expand(ctx, query, missingTopics, false)
	if err == nil {
		return expanded, nil
	}

	e.logger.Warn("expansion attempt failed, retrying in strict mode", "error", err)
	expanded, retryErr := e.expand(ctx, query, missingTopics, true)
	if retryErr != nil {
		return "", fmt.Errorf("strict retry: %w", retryErr)
	}
	return expanded, nil
}

func (e *QueryExpander) expand(ctx context.Context, query string, missingTopics []string, strict bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	system := expansionSystemPrompt
	if strict {
		system += "\n\nRespond with a single line containing only the expanded query."
	}

	prompt := fmt.Sprintf("User query: %s\n\nTopics the retrieved documents should also cover: %s",
		query, strings.Join(missingTopics, "; "))

	opts := []ai.GenerateOption{
		ai.WithModelName(e.model),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
	}
	if e.config != nil {
		opts = append(opts, ai.WithConfig(e.config))
	}

	response, err := genkit.Generate(ctx, e.g, opts...)
	if err != nil {
		return "", err
	}

	expanded := strings.TrimSpace(response.Text())
	if expanded == "" {
		return "", errors.New("empty expansion")
	}
	return expanded, nil
}
