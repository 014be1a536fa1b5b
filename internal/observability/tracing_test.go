package observability

import (
	"context"
	"testing"

	"github.com/calmcare/calm-agent/internal/log"
)

func TestSetupReturnsShutdown(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Setup(ctx, Config{
		Endpoint:    "localhost:4318",
		ServiceName: "calm-agent-test",
		Environment: "test",
	}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown func")
	}
	// The batch processor drops spans when no collector is listening,
	// so shutdown must still succeed.
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupDefaultsEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())
}
