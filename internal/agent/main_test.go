package agent

import (
	"testing"

	"go.uber.org/goleak"
)

// The grading fan-out spawns one goroutine per document; verify every
// test leaves none behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
