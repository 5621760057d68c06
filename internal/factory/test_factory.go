package factory

import (
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/mcoot/wordduel/internal/dependencies/mocks"
	"github.com/mcoot/wordduel/internal/services/secrets"
	"github.com/mcoot/wordduel/internal/services/session"
	"github.com/mcoot/wordduel/internal/storage/memory"
	"github.com/mcoot/wordduel/internal/testutil"
)

// testSecretKey is a fixed root key so sealed values are reproducible in tests
var testSecretKey = []byte("wordduel-test-root-key-0123456789")

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *quartz.Mock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp(t testing.TB) *TestApp {
	t.Helper()

	store := memory.New()
	mockClock := quartz.NewMock(t)
	mockClock.Set(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	sealer, err := secrets.New(testSecretKey)
	if err != nil {
		t.Fatalf("create sealer: %v", err)
	}

	app := newWithDependencies(store, mockClock, mockRandom, sealer, session.DefaultConfig(), testutil.NopLogger())
	t.Cleanup(func() { _ = app.Close() })

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
