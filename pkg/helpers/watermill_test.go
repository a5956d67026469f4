package helpers

import (
	"bytes"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWatermillAdapterMapsInfoToDebug(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermill(zerolog.New(&buf).Level(zerolog.InfoLevel))

	adapter.Info("chatty", watermill.LogFields{"topic": "x"})
	assert.Empty(t, buf.String())

	adapter.With(watermill.LogFields{"handler": "printer"}).Error("boom", assert.AnError, nil)
	assert.Contains(t, buf.String(), `"handler":"printer"`)
	assert.Contains(t, buf.String(), `"message":"boom"`)
}

func TestWatermillAdapterKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermill(zerolog.New(&buf).Level(zerolog.TraceLevel))

	adapter.Debug("subscribed", watermill.LogFields{"topic": "session"})
	assert.Contains(t, buf.String(), `"topic":"session"`)

	buf.Reset()
	adapter.Trace("ack", watermill.LogFields{"uuid": "m-1"})
	assert.Contains(t, buf.String(), `"uuid":"m-1"`)

	buf.Reset()
	adapter.Error("failed", assert.AnError, watermill.LogFields{"retries": 3})
	assert.Contains(t, buf.String(), `"retries":3`)
}
