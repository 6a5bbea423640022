package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventRoundTripsThroughFlattenedJSON(t *testing.T) {
	original := Event{
		TS:      time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC),
		Session: "sess-1",
		Event:   EventStepComplete,
		Payload: map[string]any{"step_id": "extract_orders", "rows_processed": float64(3)},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var roundTripped Event
	require.NoError(t, json.Unmarshal(data, &roundTripped))

	require.True(t, original.TS.Equal(roundTripped.TS))
	require.Equal(t, original.Session, roundTripped.Session)
	require.Equal(t, original.Event, roundTripped.Event)
	require.Equal(t, original.Payload, roundTripped.Payload)
}
