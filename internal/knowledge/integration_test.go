package knowledge

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/calmcare/calm-agent/internal/log"
	"github.com/calmcare/calm-agent/internal/testutil"
)

// vectorEmbedder returns a fixed vector per known text so similarity
// ordering in the database is fully deterministic.
type vectorEmbedder struct {
	vectors map[string][]float32
}

func (e *vectorEmbedder) Name() string { return "vector-embedder" }

func (e *vectorEmbedder) Register(api.Registry) {}

func (e *vectorEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	text := req.Input[0].Content[0].Text
	vec, ok := e.vectors[text]
	if !ok {
		vec = unitVec(700)
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: vec}}}, nil
}

// unitVec returns a VectorDimension-length vector with a single hot
// component.
func unitVec(hot int) []float32 {
	v := make([]float32, VectorDimension)
	v[hot] = 1
	return v
}

// blendVec returns a normalized two-component vector. The larger the
// first weight, the closer it is to unitVec(a).
func blendVec(a, b int, wa, wb float32) []float32 {
	v := make([]float32, VectorDimension)
	v[a] = wa
	v[b] = wb
	return v
}

func TestStoreIntegrationRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("requires a container runtime")
	}

	ctx := context.Background()
	tdb := testutil.SetupTestDB(t)

	embedder := &vectorEmbedder{vectors: map[string][]float32{
		"what helps with sundowning":      unitVec(0),
		"evening light reduces agitation": unitVec(0),
		"keeping a predictable routine":   blendVec(0, 1, 0.6, 0.8),
		"respite care options":            unitVec(5),
		"my mother paces at dusk too":     unitVec(0),
	}}
	store := New(NewQueries(tdb.Pool), embedder, log.NewNop())

	docs := []Document{
		{ID: "r1", KB: KBResearch, Content: "evening light reduces agitation", Metadata: map[string]string{"url": "https://example.org/light", "title": "Light therapy"}},
		{ID: "r2", KB: KBResearch, Content: "keeping a predictable routine", Metadata: map[string]string{"url": "https://example.org/routine", "title": "Routines"}},
		{ID: "r3", KB: KBResearch, Content: "respite care options", Metadata: map[string]string{"url": "https://example.org/respite", "title": "Respite"}},
		{ID: "p1", KB: KBPeerSupport, Content: "my mother paces at dusk too", Metadata: map[string]string{"url": "https://forum.example.org/1", "title": "Dusk pacing"}},
	}
	for _, doc := range docs {
		if err := store.Add(ctx, doc); err != nil {
			t.Fatalf("Add(%s): %v", doc.ID, err)
		}
	}

	count, err := store.Count(ctx, KBResearch)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("Count(research) = %d, want 3", count)
	}

	// The peer support document embeds identically to the query but
	// must not leak into a research search.
	results, err := store.Search(ctx, "what helps with sundowning", WithKB(KBResearch), WithTopK(5))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Search returned %d results, want 3", len(results))
	}
	wantOrder := []string{"r1", "r2", "r3"}
	for i, want := range wantOrder {
		if results[i].Document.ID != want {
			t.Errorf("results[%d].ID = %s, want %s", i, results[i].Document.ID, want)
		}
	}
	if results[0].Similarity < 0.99 {
		t.Errorf("exact-match similarity = %f, want ~1", results[0].Similarity)
	}
	if results[0].Document.URL() != "https://example.org/light" {
		t.Errorf("metadata url = %q after round trip", results[0].Document.URL())
	}

	// Upsert: re-adding r1 with new content replaces the row.
	updated := docs[0]
	updated.Content = "respite care options"
	if err := store.Add(ctx, updated); err != nil {
		t.Fatalf("re-Add: %v", err)
	}
	count, err = store.Count(ctx, KBResearch)
	if err != nil {
		t.Fatalf("Count after upsert: %v", err)
	}
	if count != 3 {
		t.Errorf("Count after upsert = %d, want 3", count)
	}

	if err := store.Delete(ctx, "r3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	count, err = store.Count(ctx, KBResearch)
	if err != nil {
		t.Fatalf("Count after delete: %v", err)
	}
	if count != 2 {
		t.Errorf("Count after delete = %d, want 2", count)
	}
}
