package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/calmcare/calm-agent/internal/knowledge"
)

// Router decides whether a question needs retrieval and, if so, from
// which knowledge base.
type Router interface {
	Route(ctx context.Context, question, conversation string) (RoutingDecision, error)
}

// Retriever performs semantic search against one knowledge base.
// Implementations return results ordered by descending similarity; an
// empty result set is not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, kb knowledge.KB, k int) ([]knowledge.Document, error)
}

// Judge scores documents against the user's question. GradeBatch
// always returns exactly one GradedDocument per input document, in
// input order; failed gradings are substituted with a minimum-score
// sentinel rather than dropped.
type Judge interface {
	Grade(ctx context.Context, question string, doc knowledge.Document) (GradedDocument, error)
	GradeBatch(ctx context.Context, question string, docs []knowledge.Document) []GradedDocument
}

// Expander rewrites the working query to cover the topics the last
// graded batch missed. An empty topic list returns the query unchanged.
type Expander interface {
	Expand(ctx context.Context, query string, missingTopics []string) (string, error)
}

// Synthesizer produces the final answer. Informal mode means no
// retrieval context is available and the model should speak generally.
// Synthesis never fails the request; implementations degrade to an
// apologetic Generation instead of returning an error.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, docs []GradedDocument, conversation string, informal bool) Generation
}

// Engine orchestrates the retrieval-grading-expansion cycle. All model
// capabilities are injected at construction; the engine holds no
// mutable state between requests.
type Engine struct {
	router      Router
	retriever   Retriever
	judge       Judge
	expander    Expander
	synthesizer Synthesizer
	logger      *slog.Logger
}

// NewEngine wires the injected capabilities into an engine.
func NewEngine(router Router, retriever Retriever, judge Judge, expander Expander, synthesizer Synthesizer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		router:      router,
		retriever:   retriever,
		judge:       judge,
		expander:    expander,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// accumulator is the per-request loop state. filtered grows
// monotonically and stays deduplicated and sorted; missingTopics is
// replaced wholesale each grading pass so expanded queries do not grow
// without bound across iterations.
type accumulator struct {
	filtered      []GradedDocument
	missingTopics []string
	retryCount    int
	seen          map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{seen: make(map[string]struct{})}
}

// merge folds one graded batch into the accumulator. Documents at or
// above the threshold are appended unless an entry with the same
// source identity already exists; rejected documents contribute their
// missing topics to the next expansion. The accepted set is re-sorted
// descending by score after every merge, stable so ties keep the order
// in which they were first accepted.
func (a *accumulator) merge(batch []GradedDocument, threshold float64) {
	missing := make([]string, 0, len(batch))
	for _, gd := range batch {
		if gd.RelevanceScore >= threshold {
			key := gd.sourceKey()
			if _, dup := a.seen[key]; dup {
				continue
			}
			a.seen[key] = struct{}{}
			a.filtered = append(a.filtered, gd)
		} else {
			missing = append(missing, gd.MissingTopics...)
		}
	}
	a.missingTopics = missing

	sort.SliceStable(a.filtered, func(i, j int) bool {
		return a.filtered[i].RelevanceScore > a.filtered[j].RelevanceScore
	})
}

// Run answers one question. Control flow: route, then either answer
// directly or cycle retrieve-grade-expand until the retry budget is
// exhausted or the accepted-document quota is met, then synthesize
// from whatever was accepted.
//
// Routing, retrieval, and expansion failures are fatal and returned
// wrapped in their sentinel error class. Grading failures are contained
// per document by the judge; synthesis failures are contained by the
// synthesizer. A successful return always carries a usable Generation.
func (e *Engine) Run(ctx context.Context, in Input) (Generation, error) {
	conversation := formatHistory(in.History, historyWindow)

	decision, err := e.router.Route(ctx, in.Question, conversation)
	if err != nil {
		return Generation{}, fmt.Errorf("%w: %w", ErrRouting, err)
	}

	if !decision.RequiresRetrieval {
		e.logger.Info("answering directly", "question_len", len(in.Question))
		return e.synthesizer.Synthesize(ctx, in.Question, nil, conversation, true), nil
	}

	kb, ok := decision.KB()
	if !ok {
		return Generation{}, fmt.Errorf("%w: unknown knowledge base %q", ErrRouting, decision.KnowledgeBase)
	}
	e.logger.Info("routing to knowledge base", "kb", kb)

	state := newAccumulator()
	workingQuery := in.Question

	for {
		docs, err := e.retriever.Retrieve(ctx, workingQuery, kb, in.DocNumber)
		if err != nil {
			return Generation{}, fmt.Errorf("%w: %w", ErrRetrieval, err)
		}
		state.retryCount++

		// Grading is always against the original question, not the
		// expanded search string.
		graded := e.judge.GradeBatch(ctx, in.Question, docs)
		state.merge(graded, in.Threshold)

		e.logger.Debug("graded retrieval batch",
			"attempt", state.retryCount,
			"retrieved", len(docs),
			"accepted_total", len(state.filtered),
			"missing_topics", len(state.missingTopics))

		if state.retryCount >= in.MaxRetries || len(state.filtered) >= in.DocNumber {
			break
		}

		workingQuery, err = e.expander.Expand(ctx, workingQuery, state.missingTopics)
		if err != nil {
			return Generation{}, fmt.Errorf("%w: %w", ErrExpansion, err)
		}
	}

	informal := len(state.filtered) == 0
	return e.synthesizer.Synthesize(ctx, in.Question, state.filtered, conversation, informal), nil
}
