package agent

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// IntentRouter implements Router with a structured model call. A
// malformed or inconsistent decision triggers exactly one strict-mode
// retry before the error propagates.
type IntentRouter struct {
	g     *genkit.Genkit
	model string
	settings
}

// NewIntentRouter builds a router on the given model.
func NewIntentRouter(g *genkit.Genkit, model string, opts ...Option) *IntentRouter {
	return &IntentRouter{g: g, model: model, settings: newSettings(opts...)}
}

// Route decides whether the question needs retrieval and from which
// knowledge base.
func (r *IntentRouter) Route(ctx context.Context, question, conversation string) (RoutingDecision, error) {
	decision, err := r.route(ctx, question, conversation, false)
	if err == nil {
		return decision, nil
	}

	r.logger.Warn("routing attempt failed, retrying in strict mode", "error", err)
	decision, retryErr := r.route(ctx, question, conversation, true)
	if retryErr != nil {
		return RoutingDecision{}, fmt.Errorf("strict retry: %w", retryErr)
	}
	return decision, nil
}

func (r *IntentRouter) route(ctx context.Context, question, conversation string, strict bool) (RoutingDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	system := routingSystemPrompt
	if strict {
		system += strictModeReminder
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(r.model),
		ai.WithSystem(system),
		ai.WithPrompt(routingUserPrompt(question, conversation)),
		ai.WithOutputType(RoutingDecision{}),
	}
	if r.config != nil {
		opts = append(opts, ai.WithConfig(r.config))
	}

	response, err := genkit.Generate(ctx, r.g, opts...)
	if err != nil {
		return RoutingDecision{}, err
	}

	var decision RoutingDecision
	if err := response.Output(&decision); err != nil {
		return RoutingDecision{}, fmt.Errorf("parse routing decision: %w", err)
	}
	if !decision.consistent() {
		return RoutingDecision{}, fmt.Errorf("inconsistent routing decision: requires_retrieval=%t knowledge_base=%q",
			decision.RequiresRetrieval, decision.KnowledgeBase)
	}
	return decision, nil
}

func routingUserPrompt(question, conversation string) string {
	if conversation == "" {
		conversation = "(no prior conversation)"
	}
	return fmt.Sprintf("The user's question:\n%s\n\nConversation history for reference:\n%s", question, conversation)
}
