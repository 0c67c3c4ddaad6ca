package bridge

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PizzaHomicide/muxbridge/internal/log"
)

var testEvents = EventNames{
	PlaybackPause:      "playback:pause",
	PlaybackPlayIntent: "playback:play:intent",
	PlaybackPlay:       "playback:play",
	PlaybackError:      "playback:error",
	PlaybackEnded:      "playback:ended",
	PlaybackBitrate:    "playback:bitrate",
	PlayerSeek:         "seek",
	PlayerTimeUpdate:   "timeupdate",
	PlayerDestroy:      "destroyEvent",
}

var testLibrary = Library{
	Name:    "TestPlayer",
	Version: "1.2.3",
	Events:  testEvents,
}

type emitter struct {
	handlers map[string][]Handler
}

func (e *emitter) On(event string, h Handler) {
	if e.handlers == nil {
		e.handlers = make(map[string][]Handler)
	}
	e.handlers[event] = append(e.handlers[event], h)
}

func (e *emitter) fire(event string, data any) {
	for _, h := range e.handlers[event] {
		h(data)
	}
}

func (e *emitter) subscriptions() int {
	n := 0
	for _, hs := range e.handlers {
		n += len(hs)
	}
	return n
}

type fakePlayback struct {
	emitter
	playbackType PlaybackType
}

func (p *fakePlayback) PlaybackType() PlaybackType {
	return p.playbackType
}

type fakePlayer struct {
	emitter
	playback *fakePlayback

	playing     bool
	currentTime float64
	duration    float64
	startOffset float64
	options     PlayerOptions
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		playback: &fakePlayback{playbackType: PlaybackTypeVOD},
		duration: 120,
		options: PlayerOptions{
			Width:  640,
			Height: 360,
			Source: "https://example.com/video.m3u8",
		},
	}
}

func (p *fakePlayer) IsPlaying() bool          { return p.playing }
func (p *fakePlayer) CurrentTime() float64     { return p.currentTime }
func (p *fakePlayer) Duration() float64        { return p.duration }
func (p *fakePlayer) StartTimeOffset() float64 { return p.startOffset }
func (p *fakePlayer) Options() PlayerOptions   { return p.options }

func (p *fakePlayer) CurrentPlayback() Playback {
	if p.playback == nil {
		return nil
	}
	return p.playback
}

type emitted struct {
	SessionID string
	Event     EventName
	Payload   Payload
}

type recordingSink struct {
	inits     int
	sessionID string
	cfg       Config
	events    []emitted
}

func (s *recordingSink) Init(sessionID string, cfg Config) {
	s.inits++
	s.sessionID = sessionID
	s.cfg = cfg
}

func (s *recordingSink) Emit(sessionID string, event EventName, payload Payload) {
	s.events = append(s.events, emitted{SessionID: sessionID, Event: event, Payload: payload})
}

func (s *recordingSink) names() []EventName {
	names := make([]EventName, 0, len(s.events))
	for _, e := range s.events {
		names = append(names, e.Event)
	}
	return names
}

func (s *recordingSink) reset() {
	s.events = nil
}

type fixedIDs []string

func (f *fixedIDs) NewID() string {
	id := (*f)[0]
	*f = (*f)[1:]
	return id
}

// captureLogs installs a default logger writing into a buffer for the duration of the test
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetDefaultLogger(log.NewWithWriter(&buf, "debug"))
	t.Cleanup(func() { log.SetDefaultLogger(nil) })
	return &buf
}

func countWarnings(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), `"level":"WARN"`)
}
