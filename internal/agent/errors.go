package agent

import "errors"

// Fatal error classes surfaced by Engine.Run. Per-document grading
// failures and synthesis failures are contained inside the engine and
// never reach the caller as errors.
var (
	// ErrRouting means the router produced no usable decision after a
	// strict retry. There is no safe default to substitute.
	ErrRouting = errors.New("routing decision unavailable")

	// ErrRetrieval means the knowledge base search failed at the
	// transport or store level. An empty result set is not an error.
	ErrRetrieval = errors.New("knowledge base retrieval failed")

	// ErrExpansion means the expander produced no usable query after a
	// strict retry. Continuing with a stale query would silently waste
	// the retry budget.
	ErrExpansion = errors.New("query expansion failed")
)
