package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeStreamEvents(t *testing.T, out string) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var event StreamEvent
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		events = append(events, event)
	}
	return events
}

func TestEventPrinter_SkipsStaleStates(t *testing.T) {
	var buf bytes.Buffer
	printer := &eventPrinter{w: &buf, json: true}

	require.NoError(t, printer.print("state", []byte(`{"phase":"secrets","version":3}`)))
	// Same snapshot delivered twice, then an older one arriving late
	require.NoError(t, printer.print("state", []byte(`{"phase":"secrets","version":3}`)))
	require.NoError(t, printer.print("state", []byte(`{"phase":"waiting","version":2}`)))
	require.NoError(t, printer.print("guess-result", []byte(`{"guess":"CRANE"}`)))
	require.NoError(t, printer.print("state", []byte(`{"phase":"in_progress","version":4}`)))

	events := decodeStreamEvents(t, buf.String())
	require.Len(t, events, 3)
	assert.Equal(t, "state", events[0].Event)
	assert.JSONEq(t, `{"phase":"secrets","version":3}`, string(events[0].Data))
	assert.Equal(t, "guess-result", events[1].Event)
	assert.JSONEq(t, `{"phase":"in_progress","version":4}`, string(events[2].Data))
}

func TestEventPrinter_SkippedStatesDoNotCountTowardsLimit(t *testing.T) {
	var buf bytes.Buffer
	printer := &eventPrinter{w: &buf, json: true, limit: 2}

	require.NoError(t, printer.print("state", []byte(`{"version":5}`)))
	require.NoError(t, printer.print("state", []byte(`{"version":4}`)))
	assert.ErrorIs(t, printer.print("state", []byte(`{"version":6}`)), errStop)
}
