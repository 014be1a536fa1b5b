package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/calmcare/calm-agent/internal/knowledge"
	"github.com/calmcare/calm-agent/internal/log"
)

func TestGradeConcurrentlyBatchShape(t *testing.T) {
	docs := []knowledge.Document{
		doc("a", "https://kb/a", "one"),
		doc("b", "https://kb/b", "two"),
		doc("c", "https://kb/c", "three"),
	}

	// The grading of document #2 fails; the batch must still come back
	// with one entry per input, in input order.
	grade := func(_ context.Context, _ string, d knowledge.Document) (GradedDocument, error) {
		if d.ID == "b" {
			return GradedDocument{}, errors.New("judge timed out")
		}
		return GradedDocument{Document: d, RelevanceScore: 0.75, Reasoning: "fine"}, nil
	}

	graded := gradeConcurrently(context.Background(), "q", docs, log.NewNop(), grade)

	if len(graded) != len(docs) {
		t.Fatalf("len(graded) = %d, want %d", len(graded), len(docs))
	}
	for i, gd := range graded {
		if gd.Document.ID != docs[i].ID {
			t.Errorf("position %d: got %s, want %s", i, gd.Document.ID, docs[i].ID)
		}
	}

	failed := graded[1]
	if failed.RelevanceScore != 0 {
		t.Errorf("sentinel score = %v, want 0", failed.RelevanceScore)
	}
	if failed.Reasoning != sentinelReasoning {
		t.Errorf("sentinel reasoning = %q", failed.Reasoning)
	}
	if len(failed.MissingTopics) != 1 || failed.MissingTopics[0] != sentinelReasoning {
		t.Errorf("sentinel missing topics = %v", failed.MissingTopics)
	}
}

func TestGradeConcurrentlyEmptyBatch(t *testing.T) {
	grade := func(context.Context, string, knowledge.Document) (GradedDocument, error) {
		t.Fatal("grade must not be called for an empty batch")
		return GradedDocument{}, nil
	}
	graded := gradeConcurrently(context.Background(), "q", nil, log.NewNop(), grade)
	if len(graded) != 0 {
		t.Fatalf("len(graded) = %d, want 0", len(graded))
	}
}

func TestGradeConcurrentlyAllFail(t *testing.T) {
	docs := []knowledge.Document{
		doc("a", "https://kb/a", "one"),
		doc("b", "https://kb/b", "two"),
	}
	grade := func(context.Context, string, knowledge.Document) (GradedDocument, error) {
		return GradedDocument{}, errors.New("boom")
	}

	graded := gradeConcurrently(context.Background(), "q", docs, log.NewNop(), grade)
	if len(graded) != 2 {
		t.Fatalf("len(graded) = %d, want 2", len(graded))
	}
	for _, gd := range graded {
		if gd.RelevanceScore != 0 || gd.Reasoning != sentinelReasoning {
			t.Errorf("expected sentinel, got %+v", gd)
		}
	}
}
