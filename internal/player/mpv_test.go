package player

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PizzaHomicide/muxbridge/internal/bridge"
	"github.com/PizzaHomicide/muxbridge/internal/config"
)

type hostEvent struct {
	name string
	data any
}

func newTestPlayer(t *testing.T) (*MPVPlayer, *[]hostEvent) {
	t.Helper()
	p := NewMPVPlayer(&config.Config{
		Player: config.PlayerConfig{
			Path:    "mpv",
			Width:   1280,
			Height:  720,
			Version: "0.38.0",
		},
	})

	var fired []hostEvent
	record := func(name string) bridge.Handler {
		return func(data any) {
			fired = append(fired, hostEvent{name: name, data: data})
		}
	}
	for _, name := range []string{EventPlayerSeek, EventPlayerTimeUpdate, EventPlayerDestroy} {
		p.On(name, record(name))
	}
	for _, name := range []string{
		EventPlaybackPause,
		EventPlaybackPlayIntent,
		EventPlaybackPlay,
		EventPlaybackError,
		EventPlaybackEnded,
		EventPlaybackBitrate,
	} {
		p.CurrentPlayback().On(name, record(name))
	}
	return p, &fired
}

func propertyChange(name string, data string) MPVEvent {
	return MPVEvent{Event: "property-change", Name: name, Data: json.RawMessage(data)}
}

func names(events []hostEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.name)
	}
	return out
}

func TestLibrary(t *testing.T) {
	p, _ := newTestPlayer(t)

	lib := p.Library()
	assert.Equal(t, "mpv", lib.Name)
	assert.Equal(t, "0.38.0", lib.Version)
	assert.Equal(t, HostEvents, lib.Events)

	unknown := NewMPVPlayer(&config.Config{})
	assert.Equal(t, "unknown", unknown.Library().Version)
}

func TestStartupSequence(t *testing.T) {
	p, fired := newTestPlayer(t)
	lifecycle := make(chan PlaybackEvent, 10)
	p.lifecycle = lifecycle

	p.handleEvent(propertyChange("pause", "false"))
	p.handleEvent(MPVEvent{Event: "start-file"})
	p.handleEvent(propertyChange("duration", "60.0"))
	p.handleEvent(MPVEvent{Event: "file-loaded"})
	p.handleEvent(MPVEvent{Event: "playback-restart"})

	assert.Equal(t, []string{EventPlaybackPlayIntent, EventPlaybackPlay}, names(*fired))
	assert.True(t, p.IsPlaying())
	assert.Equal(t, 60.0, p.Duration())

	require.Len(t, lifecycle, 1)
	assert.Equal(t, PlaybackStarted, (<-lifecycle).Type)
}

func TestPauseAndResume(t *testing.T) {
	p, fired := newTestPlayer(t)
	p.handleEvent(MPVEvent{Event: "playback-restart"})
	*fired = nil

	p.handleEvent(propertyChange("pause", "true"))
	assert.False(t, p.IsPlaying())

	// Repeated values are not changes
	p.handleEvent(propertyChange("pause", "true"))

	p.handleEvent(propertyChange("pause", "false"))
	assert.True(t, p.IsPlaying())

	assert.Equal(t, []string{EventPlaybackPause, EventPlaybackPlayIntent, EventPlaybackPlay}, names(*fired))
}

func TestResumeBeforeLoadOnlySignalsIntent(t *testing.T) {
	p, fired := newTestPlayer(t)

	p.handleEvent(propertyChange("pause", "true"))
	p.handleEvent(propertyChange("pause", "false"))

	assert.Equal(t, []string{EventPlaybackPause, EventPlaybackPlayIntent}, names(*fired))
	assert.False(t, p.IsPlaying())
}

func TestSeek(t *testing.T) {
	p, fired := newTestPlayer(t)
	p.handleEvent(MPVEvent{Event: "playback-restart"})
	*fired = nil

	p.handleEvent(MPVEvent{Event: "seek"})
	p.handleEvent(MPVEvent{Event: "playback-restart"})

	assert.Equal(t, []string{EventPlayerSeek, EventPlaybackPlay}, names(*fired))
}

func TestSeekWhilePausedDoesNotPlay(t *testing.T) {
	p, fired := newTestPlayer(t)
	p.handleEvent(MPVEvent{Event: "playback-restart"})
	p.handleEvent(propertyChange("pause", "true"))
	*fired = nil

	p.handleEvent(MPVEvent{Event: "seek"})
	p.handleEvent(MPVEvent{Event: "playback-restart"})

	assert.Equal(t, []string{EventPlayerSeek}, names(*fired))
	assert.False(t, p.IsPlaying())
}

func TestTimeUpdatesAreThrottled(t *testing.T) {
	p, fired := newTestPlayer(t)

	for _, pos := range []string{"0.0", "0.04", "0.08", "0.25", "0.30", "0.50", "null", "10.0", "2.0"} {
		p.handleEvent(propertyChange("time-pos", pos))
	}

	// 0.0, 0.25, 0.50, 10.0 and the backwards jump to 2.0
	assert.Equal(t, []string{
		EventPlayerTimeUpdate,
		EventPlayerTimeUpdate,
		EventPlayerTimeUpdate,
		EventPlayerTimeUpdate,
		EventPlayerTimeUpdate,
	}, names(*fired))
	assert.Equal(t, 2.0, p.CurrentTime())
}

func TestRenditionChange(t *testing.T) {
	p, fired := newTestPlayer(t)

	p.handleEvent(propertyChange("video-bitrate", "2500000.0"))
	p.handleEvent(propertyChange("video-params", `{"w":1280,"h":720,"pixelformat":"yuv420p"}`))
	// Same size again is not a rendition change
	p.handleEvent(propertyChange("video-params", `{"w":1280,"h":720,"pixelformat":"yuv420p"}`))
	p.handleEvent(propertyChange("video-params", "null"))
	p.handleEvent(propertyChange("video-params", `{"w":1920,"h":1080}`))

	require.Len(t, *fired, 2)
	assert.Equal(t, hostEvent{
		name: EventPlaybackBitrate,
		data: bridge.BitrateInfo{Bandwidth: 2500000, Width: 1280, Height: 720},
	}, (*fired)[0])
	assert.Equal(t, bridge.BitrateInfo{Bandwidth: 2500000, Width: 1920, Height: 1080}, (*fired)[1].data)
}

func TestEndFile(t *testing.T) {
	t.Run("eof", func(t *testing.T) {
		p, fired := newTestPlayer(t)
		p.handleEvent(MPVEvent{Event: "playback-restart"})
		*fired = nil

		p.handleEvent(MPVEvent{Event: "end-file", Reason: "eof"})

		assert.Equal(t, []string{EventPlaybackEnded}, names(*fired))
		assert.False(t, p.IsPlaying())
	})

	t.Run("error", func(t *testing.T) {
		p, fired := newTestPlayer(t)
		lifecycle := make(chan PlaybackEvent, 10)
		p.lifecycle = lifecycle

		p.handleEvent(MPVEvent{Event: "end-file", Reason: "error", FileError: "loading failed"})

		expected := bridge.PlaybackError{Code: ErrorCodeEndFile, Description: "loading failed"}
		assert.Equal(t, []hostEvent{{name: EventPlaybackError, data: expected}}, *fired)

		require.Len(t, lifecycle, 1)
		event := <-lifecycle
		assert.Equal(t, PlaybackError, event.Type)
		assert.Equal(t, expected, event.Error)
	})

	t.Run("quit", func(t *testing.T) {
		p, fired := newTestPlayer(t)

		p.handleEvent(MPVEvent{Event: "end-file", Reason: "quit"})

		assert.Empty(t, *fired)
	})
}

func TestPlaybackTypeAndOffsets(t *testing.T) {
	p, _ := newTestPlayer(t)

	assert.Equal(t, bridge.PlaybackTypeVOD, p.CurrentPlayback().PlaybackType())

	p.handleEvent(propertyChange("seekable", "false"))
	p.handleEvent(propertyChange("demuxer-start-time", "3.5"))
	assert.Equal(t, bridge.PlaybackTypeLive, p.CurrentPlayback().PlaybackType())
	assert.Equal(t, 3.5, p.StartTimeOffset())

	p.handleEvent(propertyChange("seekable", "true"))
	assert.Equal(t, bridge.PlaybackTypeVOD, p.CurrentPlayback().PlaybackType())

	p.handleEvent(propertyChange("duration", "42.0"))
	p.handleEvent(propertyChange("duration", "null"))
	assert.Zero(t, p.Duration())
}

func TestOptions(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.state.source = "https://example.com/live.m3u8"

	assert.Equal(t, bridge.PlayerOptions{
		Width:  1280,
		Height: 720,
		Source: "https://example.com/live.m3u8",
	}, p.Options())
}

func TestRunFiresDestroyOnce(t *testing.T) {
	p, fired := newTestPlayer(t)
	lifecycle := make(chan PlaybackEvent, 10)
	p.lifecycle = lifecycle

	mpvEvents := make(chan MPVEvent, 10)
	mpvEvents <- propertyChange("duration", "100.0")
	mpvEvents <- propertyChange("time-pos", "50.0")
	mpvEvents <- MPVEvent{Event: "shutdown"}
	close(mpvEvents)

	p.run(context.Background(), mpvEvents)

	assert.Equal(t, []string{EventPlayerTimeUpdate, EventPlayerDestroy}, names(*fired))

	require.Len(t, lifecycle, 1)
	event := <-lifecycle
	assert.Equal(t, PlaybackEnded, event.Type)
	assert.Equal(t, 50.0, event.Progress)
}

func TestRunStopsOnCancel(t *testing.T) {
	p, fired := newTestPlayer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.run(ctx, make(chan MPVEvent))

	assert.Equal(t, []string{EventPlayerDestroy}, names(*fired))
}

func TestBuildArgs(t *testing.T) {
	p := NewMPVPlayer(&config.Config{
		Player: config.PlayerConfig{
			Width:  800,
			Height: 600,
			Args:   `--mute=yes --title="my stream"`,
		},
	})

	args := p.buildArgs("https://example.com/a.m3u8")

	assert.Contains(t, args, "--input-ipc-server="+p.socketPath)
	assert.Contains(t, args, "--geometry=800x600")
	assert.Contains(t, args, "--mute=yes")
	assert.Contains(t, args, "--title=my stream")
	assert.Equal(t, "https://example.com/a.m3u8", args[len(args)-1])
}

func TestParseMPVVersion(t *testing.T) {
	assert.Equal(t, "0.38.0", parseMPVVersion("mpv v0.38.0 Copyright © 2000-2024 mpv/MPlayer/mplayer2 projects\n built on..."))
	assert.Equal(t, "0.34.1", parseMPVVersion("mpv 0.34.1 Copyright © 2000-2021 mpv/MPlayer/mplayer2 projects"))
	assert.Empty(t, parseMPVVersion("vlc 3.0.20"))
	assert.Empty(t, parseMPVVersion(""))
}

func TestCalculateProgressPercentage(t *testing.T) {
	assert.Equal(t, 0.0, calculateProgressPercentage(0, 100))
	assert.Equal(t, 0.0, calculateProgressPercentage(10, 0))
	assert.Equal(t, 25.0, calculateProgressPercentage(25, 100))
}

func TestNilPlayerIsRejectedByBridge(t *testing.T) {
	var p *MPVPlayer
	assert.Nil(t, p.CurrentPlayback())

	var b *bridge.Bridge
	require.NotPanics(t, func() {
		b = bridge.New(p, bridge.Options{}, bridge.Library{}, discardSink{})
	})
	assert.Nil(t, b)
}

func TestStopWithoutConnection(t *testing.T) {
	p, _ := newTestPlayer(t)

	// Not connected and never started, so there is nothing to ask or kill
	assert.NoError(t, p.Stop())
}

type discardSink struct{}

func (discardSink) Init(string, bridge.Config)                    {}
func (discardSink) Emit(string, bridge.EventName, bridge.Payload) {}
