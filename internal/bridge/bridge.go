package bridge

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"dario.cat/mergo"

	"github.com/PizzaHomicide/muxbridge/internal/log"
	"github.com/PizzaHomicide/muxbridge/internal/version"
)

// Bridge translates the events of one host player into canonical analytics events and forwards them to a sink,
// tagged with a session ID that is fixed for the lifetime of the bridge.
type Bridge struct {
	player    Player
	sink      Sink
	sessionID string

	// The sink may pull the providers from its own goroutine while the host dispatches events, so the little
	// mutable state there is lives behind mu.  mu is never held while calling into the sink or the player.
	mu           sync.Mutex
	isSeeking    bool
	sourceWidth  int
	sourceHeight int
}

// Option customises bridge construction
type Option func(*settings)

type settings struct {
	ids IDGenerator
}

// WithIDGenerator replaces the default short ID generator
func WithIDGenerator(g IDGenerator) Option {
	return func(s *settings) {
		if g != nil {
			s.ids = g
		}
	}
}

// New starts monitoring player.  It merges opts over the integration identity defaults, generates a session ID,
// subscribes to the host events named by lib, initialises the sink and finally emits playerready.
//
// If player (or its current playback) or sink is missing, a warning is logged and nil is returned without any
// subscription being made or the sink being contacted.
func New(player Player, opts Options, lib Library, sink Sink, extra ...Option) *Bridge {
	if isNil(player) {
		log.Warn("A valid player must be provided to start monitoring")
		return nil
	}
	if player.CurrentPlayback() == nil {
		log.Warn("The player has no current playback to monitor")
		return nil
	}
	if isNil(sink) {
		log.Warn("An analytics sink must be provided to start monitoring")
		return nil
	}

	s := settings{ids: ShortIDGenerator{}}
	for _, opt := range extra {
		opt(&s)
	}

	b := &Bridge{
		player:    player,
		sink:      sink,
		sessionID: s.ids.NewID(),
	}

	data, err := mergeData(lib, opts.Data)
	if err != nil {
		log.Warn("Failed to merge monitoring data, continuing with what was merged", "session_id", b.sessionID, "error", err)
	}

	cfg := Config{
		Data:         data,
		Debug:        opts.Debug,
		PlayheadTime: b,
		State:        b,
	}

	b.subscribe(lib.Events)

	log.Debug("Initialising analytics session", "session_id", b.sessionID, "player", lib.Name, "player_version", lib.Version)
	sink.Init(b.sessionID, cfg)

	// The host has no native ready signal that fits, so readiness is announced once setup is done
	b.Emit(EventPlayerReady, nil)

	return b
}

// isNil reports whether v is nil or an interface holding a nil pointer, map, slice, func or chan
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// mergeData overlays the caller's data on top of the integration identity.  Caller keys win.
func mergeData(lib Library, overlay map[string]any) (map[string]any, error) {
	data := map[string]any{
		KeySoftwareName:    lib.Name,
		KeySoftwareVersion: lib.Version,
		KeyPluginName:      version.PluginName,
		KeyPluginVersion:   version.GetVersion(),
	}
	if len(overlay) == 0 {
		return data, nil
	}
	if err := mergo.Merge(&data, overlay, mergo.WithOverride); err != nil {
		return data, fmt.Errorf("error merging monitoring data: %w", err)
	}
	return data, nil
}

func (b *Bridge) subscribe(names EventNames) {
	playback := b.player.CurrentPlayback()

	b.on(playback, names.PlaybackPause, func(any) {
		b.Emit(EventPause, nil)
	})
	b.on(playback, names.PlaybackPlayIntent, func(any) {
		b.Emit(EventPlay, nil)
	})
	b.on(playback, names.PlaybackPlay, b.handlePlay)
	b.on(playback, names.PlaybackError, b.handleError)
	b.on(playback, names.PlaybackEnded, func(any) {
		b.Emit(EventEnded, nil)
	})
	b.on(playback, names.PlaybackBitrate, b.handleBitrate)

	b.on(b.player, names.PlayerSeek, b.handleSeek)
	b.on(b.player, names.PlayerTimeUpdate, b.handleTimeUpdate)
	// No further events are expected after destroy; the host stops firing them
	b.on(b.player, names.PlayerDestroy, func(any) {
		b.Emit(EventDestroy, nil)
	})
}

func (b *Bridge) on(src EventSource, event string, h Handler) {
	if event == "" {
		log.Debug("Host does not name this event, skipping subscription", "session_id", b.sessionID)
		return
	}
	src.On(event, h)
}

func (b *Bridge) handlePlay(any) {
	b.mu.Lock()
	wasSeeking := b.isSeeking
	b.isSeeking = false
	b.mu.Unlock()

	if wasSeeking {
		b.Emit(EventSeeked, nil)
	}
	b.Emit(EventPlaying, nil)
}

func (b *Bridge) handleSeek(any) {
	b.mu.Lock()
	b.isSeeking = true
	b.mu.Unlock()

	b.Emit(EventSeeking, nil)
}

func (b *Bridge) handleTimeUpdate(any) {
	payload := Payload{}
	if ms, ok := b.PlayheadTime(); ok {
		payload[KeyPlayheadTime] = ms
	}
	b.Emit(EventTimeUpdate, payload)
}

func (b *Bridge) handleError(data any) {
	var perr PlaybackError
	switch e := data.(type) {
	case PlaybackError:
		perr = e
	case *PlaybackError:
		if e != nil {
			perr = *e
		}
	case error:
		perr = PlaybackError{Description: e.Error()}
	case string:
		perr = PlaybackError{Description: e}
	}

	log.Warn("Host reported a playback error", "session_id", b.sessionID, "code", perr.Code, "message", perr.Description)
	b.Emit(EventError, Payload{
		KeyErrorCode:    perr.Code,
		KeyErrorMessage: perr.Description,
	})
}

func (b *Bridge) handleBitrate(data any) {
	var info BitrateInfo
	switch e := data.(type) {
	case BitrateInfo:
		info = e
	case *BitrateInfo:
		if e == nil {
			log.Warn("Ignoring empty rendition change", "session_id", b.sessionID)
			return
		}
		info = *e
	default:
		log.Warn("Ignoring rendition change with unexpected payload", "session_id", b.sessionID, "type", fmt.Sprintf("%T", data))
		return
	}

	b.mu.Lock()
	// Dimensions never fall back to zero once known
	if info.Width > 0 {
		b.sourceWidth = info.Width
	}
	if info.Height > 0 {
		b.sourceHeight = info.Height
	}
	b.mu.Unlock()

	b.Emit(EventRenditionChange, Payload{
		KeySourceBitrate: info.Bandwidth,
		KeySourceHeight:  info.Height,
		KeySourceWidth:   info.Width,
	})
}

// Emit forwards an event to the sink under this bridge's session.  Callers may use it to send their own events.
func (b *Bridge) Emit(event EventName, payload Payload) {
	log.Trace("Forwarding analytics event", "session_id", b.sessionID, "event", event)
	b.sink.Emit(b.sessionID, event, payload)
}

// SessionID returns the identifier every event of this bridge is tagged with
func (b *Bridge) SessionID() string {
	return b.sessionID
}

// Seeking reports whether a seek has started and playback has not yet resumed
func (b *Bridge) Seeking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isSeeking
}

// SourceDimensions returns the last observed rendition size, (0, 0) until the first rendition change
func (b *Bridge) SourceDimensions() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sourceWidth, b.sourceHeight
}

// PlayheadTime implements PlayheadTimeProvider.
//
// On-demand content with a zero duration has not loaded its metadata yet and reports an unknown playhead.  Live
// playheads are shifted by the start time offset so they line up with the live window.
func (b *Bridge) PlayheadTime() (int64, bool) {
	playbackType := b.player.CurrentPlayback().PlaybackType()
	if playbackType != PlaybackTypeLive && b.player.Duration() == 0 {
		return 0, false
	}

	ms := SecondsToMs(b.player.CurrentTime())
	if playbackType == PlaybackTypeLive {
		ms += SecondsToMs(b.player.StartTimeOffset())
	}
	return ms, true
}

// StateData implements StateSnapshotProvider
func (b *Bridge) StateData() StateSnapshot {
	opts := b.player.Options()
	width, height := b.SourceDimensions()

	return StateSnapshot{
		Paused:           !b.player.IsPlaying(),
		PlayerWidth:      opts.Width,
		PlayerHeight:     opts.Height,
		SourceWidth:      width,
		SourceHeight:     height,
		Fullscreen:       false,
		SourceURL:        opts.Source,
		SourceDurationMs: SecondsToMs(b.player.Duration()),
	}
}

// SecondsToMs converts host seconds to whole milliseconds, rounding down.  Values that are not finite become 0.
func SecondsToMs(seconds float64) int64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int64(math.Floor(seconds * 1000))
}
