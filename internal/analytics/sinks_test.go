package analytics

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PizzaHomicide/muxbridge/internal/bridge"
	"github.com/PizzaHomicide/muxbridge/internal/log"
)

type staticProviders struct {
	playhead int64
	known    bool
	state    bridge.StateSnapshot
}

func (p staticProviders) PlayheadTime() (int64, bool)     { return p.playhead, p.known }
func (p staticProviders) StateData() bridge.StateSnapshot { return p.state }

type call struct {
	sink    string
	method  string
	event   bridge.EventName
	session string
}

type orderSink struct {
	name  string
	calls *[]call
}

func (s orderSink) Init(sessionID string, _ bridge.Config) {
	*s.calls = append(*s.calls, call{sink: s.name, method: "init", session: sessionID})
}

func (s orderSink) Emit(sessionID string, event bridge.EventName, _ bridge.Payload) {
	*s.calls = append(*s.calls, call{sink: s.name, method: "emit", event: event, session: sessionID})
}

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetDefaultLogger(log.NewWithWriter(&buf, level))
	t.Cleanup(func() { log.SetDefaultLogger(nil) })
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	return records
}

func TestLogSink(t *testing.T) {
	logs := captureLogs(t, "info")
	providers := staticProviders{
		playhead: 4200,
		known:    true,
		state: bridge.StateSnapshot{
			Paused:       false,
			PlayerWidth:  1280,
			PlayerHeight: 720,
			SourceURL:    "https://example.com/a.m3u8",
		},
	}

	sink := NewLogSink()
	sink.Init("s1", bridge.Config{
		Data:         map[string]any{"env_key": "k"},
		PlayheadTime: providers,
		State:        providers,
	})
	sink.Emit("s1", bridge.EventPlayerReady, nil)
	sink.Emit("s1", bridge.EventTimeUpdate, bridge.Payload{bridge.KeyPlayheadTime: int64(4200)})
	sink.Emit("s1", bridge.EventRenditionChange, bridge.Payload{bridge.KeySourceWidth: 1280, bridge.KeySourceHeight: 720})
	sink.Emit("s1", bridge.EventDestroy, nil)
	// After destroy the session is forgotten and no snapshot can be attached
	sink.Emit("s1", bridge.EventPause, nil)

	records := decodeLines(t, logs)
	require.Len(t, records, 5, "timeupdate is only logged at trace level")

	assert.Equal(t, "Analytics session started", records[0]["msg"])
	assert.Equal(t, "s1", records[0]["session_id"])

	assert.Equal(t, "playerready", records[1]["event"])
	assert.Contains(t, records[1], "state")
	assert.Equal(t, float64(4200), records[1]["playhead_ms"])

	assert.Equal(t, "renditionchange", records[2]["event"])
	assert.Equal(t, float64(1280), records[2][bridge.KeySourceWidth])
	state, ok := records[2]["state"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a.m3u8", state[bridge.KeySourceURL])

	assert.Equal(t, "destroy", records[3]["event"])

	assert.Equal(t, "pause", records[4]["event"])
	assert.NotContains(t, records[4], "state")
	assert.NotContains(t, records[4], "playhead_ms")
}

func TestLogSinkTraceLogsTimeUpdates(t *testing.T) {
	logs := captureLogs(t, "trace")

	sink := NewLogSink()
	sink.Emit("s1", bridge.EventTimeUpdate, bridge.Payload{bridge.KeyPlayheadTime: int64(10)})

	assert.Contains(t, logs.String(), "TRACE: Analytics event")
	assert.Contains(t, logs.String(), `"player_playhead_time":10`)
}

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	var calls []call
	sink := NewMetricsSink(orderSink{name: "next", calls: &calls}, reg)

	sink.Init("s1", bridge.Config{})
	sink.Init("s2", bridge.Config{})
	sink.Emit("s1", bridge.EventPlayerReady, nil)
	sink.Emit("s1", bridge.EventTimeUpdate, nil)
	sink.Emit("s1", bridge.EventTimeUpdate, nil)
	sink.Emit("s1", bridge.EventError, bridge.Payload{bridge.KeyErrorCode: "decode", bridge.KeyErrorMessage: "bad frame"})
	sink.Emit("s2", bridge.EventError, bridge.Payload{bridge.KeyErrorCode: ""})
	sink.Emit("s1", bridge.EventDestroy, nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(sink.sessions))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.activeSessions))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.events.WithLabelValues("playerready")))
	assert.Equal(t, float64(2), testutil.ToFloat64(sink.events.WithLabelValues("timeupdate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.playbackErrors.WithLabelValues("decode")))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.playbackErrors.WithLabelValues("unknown")))

	// Everything is passed through
	assert.Len(t, calls, 8)
}

func TestMetricsSinkWithoutNext(t *testing.T) {
	sink := NewMetricsSink(nil, prometheus.NewRegistry())

	assert.NotPanics(t, func() {
		sink.Init("s1", bridge.Config{})
		sink.Emit("s1", bridge.EventPlay, nil)
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.events.WithLabelValues("play")))
}

func TestMulti(t *testing.T) {
	var calls []call
	m := Multi{
		orderSink{name: "a", calls: &calls},
		nil,
		orderSink{name: "b", calls: &calls},
	}

	m.Init("s1", bridge.Config{})
	m.Emit("s1", bridge.EventPlaying, nil)

	assert.Equal(t, []call{
		{sink: "a", method: "init", session: "s1"},
		{sink: "b", method: "init", session: "s1"},
		{sink: "a", method: "emit", event: bridge.EventPlaying, session: "s1"},
		{sink: "b", method: "emit", event: bridge.EventPlaying, session: "s1"},
	}, calls)
}
