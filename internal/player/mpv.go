package player

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/PizzaHomicide/muxbridge/internal/bridge"
	"github.com/PizzaHomicide/muxbridge/internal/config"
	"github.com/PizzaHomicide/muxbridge/internal/log"
)

// Host event names fired by MPVPlayer.  The playback events fire on CurrentPlayback(), the others on the player.
const (
	EventPlaybackPause      = "playback:pause"
	EventPlaybackPlayIntent = "playback:play:intent"
	EventPlaybackPlay       = "playback:play"
	EventPlaybackError      = "playback:error"
	EventPlaybackEnded      = "playback:ended"
	EventPlaybackBitrate    = "playback:bitrate"
	EventPlayerSeek         = "seek"
	EventPlayerTimeUpdate   = "timeupdate"
	EventPlayerDestroy      = "destroyEvent"
)

// HostEvents describes the events above to the bridge
var HostEvents = bridge.EventNames{
	PlaybackPause:      EventPlaybackPause,
	PlaybackPlayIntent: EventPlaybackPlayIntent,
	PlaybackPlay:       EventPlaybackPlay,
	PlaybackError:      EventPlaybackError,
	PlaybackEnded:      EventPlaybackEnded,
	PlaybackBitrate:    EventPlaybackBitrate,
	PlayerSeek:         EventPlayerSeek,
	PlayerTimeUpdate:   EventPlayerTimeUpdate,
	PlayerDestroy:      EventPlayerDestroy,
}

// ErrorCodeEndFile is the error code reported when mpv gives up on a file
const ErrorCodeEndFile = "end_file_error"

// mpv reports time-pos for every frame.  timeupdate fires once per this much media time, in seconds.
const timeUpdateInterval = 0.25

var observedProperties = []string{
	"pause",
	"time-pos",
	"duration",
	"seekable",
	"demuxer-start-time",
	"video-params",
	"video-bitrate",
}

var (
	_ VideoPlayer   = (*MPVPlayer)(nil)
	_ bridge.Player = (*MPVPlayer)(nil)
)

// MPVPlayer drives an mpv process over its JSON IPC socket and exposes it as a bridge.Player.
// All host events are fired from a single monitoring goroutine.
type MPVPlayer struct {
	emitter
	playback *mpvPlayback

	config     *config.Config
	ipcClient  *MPVIPCClient
	cmd        *exec.Cmd
	socketPath string
	version    string

	mu          sync.Mutex
	state       playerState
	lifecycle   chan PlaybackEvent
	destroyOnce sync.Once
}

type playerState struct {
	source         string
	loaded         bool
	paused         bool
	playing        bool
	timePos        float64
	lastTimeUpdate float64
	duration       float64
	unseekable     bool
	startTime      float64
	width          int
	height         int
	bitrate        int64
}

// mpvPlayback is the playback backend of an MPVPlayer
type mpvPlayback struct {
	emitter
	player *MPVPlayer
}

// PlaybackType reports live once mpv says the stream cannot be seeked
func (pb *mpvPlayback) PlaybackType() bridge.PlaybackType {
	pb.player.mu.Lock()
	defer pb.player.mu.Unlock()
	if pb.player.state.unseekable {
		return bridge.PlaybackTypeLive
	}
	return bridge.PlaybackTypeVOD
}

// NewMPVPlayer creates a new MPV player instance
func NewMPVPlayer(cfg *config.Config) *MPVPlayer {
	socketPath := GetMPVSocketPath()
	version := cfg.Player.Version
	if version == "" {
		version = "unknown"
	}

	p := &MPVPlayer{
		config:     cfg,
		socketPath: socketPath,
		ipcClient:  NewMPVIPCClient(socketPath),
		version:    version,
		state:      playerState{lastTimeUpdate: -1},
	}
	p.playback = &mpvPlayback{player: p}
	return p
}

// Library describes this player to the bridge
func (p *MPVPlayer) Library() bridge.Library {
	return bridge.Library{
		Name:    "mpv",
		Version: p.version,
		Events:  HostEvents,
	}
}

// Play starts playback of the given URL, monitors mpv for events, and returns a lifecycle notification channel
func (p *MPVPlayer) Play(ctx context.Context, url string) (<-chan PlaybackEvent, error) {
	log.Info("Starting MPV playback", "url", url)

	events := make(chan PlaybackEvent, 10)

	p.mu.Lock()
	p.state.source = url
	p.lifecycle = events
	p.mu.Unlock()

	mpvPath := p.config.Player.Path
	if mpvPath == "" {
		mpvPath = "mpv"
	}

	cmd := exec.Command(mpvPath, p.buildArgs(url)...)

	// Platform-specific process setup
	setupPlayerProcess(cmd)

	if err := cmd.Start(); err != nil {
		close(events)
		return events, fmt.Errorf("failed to start MPV: %w", err)
	}
	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()
	reapPlayerProcess(cmd)

	go p.monitor(ctx, events)

	return events, nil
}

func (p *MPVPlayer) buildArgs(url string) []string {
	args := []string{
		"--no-terminal",                      // Disable terminal control
		"--keep-open=no",                     // Exit when playback is complete
		"--idle=no",                          // Exit when there is nothing to play
		"--input-ipc-server=" + p.socketPath, // Set IPC socket path
	}

	if p.config.Player.Width > 0 && p.config.Player.Height > 0 {
		args = append(args, fmt.Sprintf("--geometry=%dx%d", p.config.Player.Width, p.config.Player.Height))
	}

	if p.config.Player.Args != "" {
		args = append(args, ParseArgs(p.config.Player.Args)...)
	}

	// The stream URL is always the final argument
	return append(args, url)
}

// reapPlayerProcess waits for mpv in the background so it does not linger as a zombie
func reapPlayerProcess(cmd *exec.Cmd) {
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("MPV process exited", "error", err)
		}
	}()
}

func (p *MPVPlayer) monitor(ctx context.Context, events chan PlaybackEvent) {
	defer close(events)

	// Allow time for MPV to create the socket
	select {
	case <-ctx.Done():
		return
	case <-time.After(300 * time.Millisecond):
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.ipcClient.WaitForConnection(connCtx, 20, 500*time.Millisecond); err != nil {
		log.Error("Failed to connect to MPV", "error", err)
		events <- PlaybackEvent{
			Type:  PlaybackError,
			Error: err,
		}
		return
	}

	for i, name := range observedProperties {
		if err := p.ipcClient.ObserveProperty(i+1, name); err != nil {
			log.Warn("Failed to observe MPV property", "property", name, "error", err)
		}
	}

	p.run(ctx, p.ipcClient.Events())
}

// run translates mpv events until the connection closes or ctx is cancelled.  It is the only place host events
// are fired from.
func (p *MPVPlayer) run(ctx context.Context, mpvEvents <-chan MPVEvent) {
	for {
		select {
		case <-ctx.Done():
			log.Debug("Context cancelled, stopping MPV monitoring")
			p.destroy()
			return
		case event, ok := <-mpvEvents:
			if !ok {
				log.Debug("MPV event channel closed")
				p.notify(PlaybackEvent{
					Type:     PlaybackEnded,
					Progress: p.progress(),
				})
				p.destroy()
				return
			}
			p.handleEvent(event)
		}
	}
}

func (p *MPVPlayer) handleEvent(event MPVEvent) {
	switch event.Event {
	case "property-change":
		p.handlePropertyChange(event)
	case "start-file":
		if !p.isPaused() {
			p.playback.fire(EventPlaybackPlayIntent, nil)
		}
	case "seek":
		p.fire(EventPlayerSeek, nil)
	case "playback-restart":
		p.handlePlaybackRestart()
	case "end-file":
		p.handleEndFile(event)
	case "shutdown":
		p.destroy()
	case "":
		if event.Error != "" && event.Error != "success" {
			log.Debug("MPV command failed", "request_id", event.RequestID, "error", event.Error)
		}
	default:
		log.Trace("Ignoring MPV event", "event", event.Event)
	}
}

func (p *MPVPlayer) handlePropertyChange(event MPVEvent) {
	switch event.Name {
	case "pause":
		var paused bool
		if decodeProperty(event.Data, &paused) {
			p.setPaused(paused)
		}
	case "time-pos":
		var pos float64
		if decodeProperty(event.Data, &pos) {
			p.setTimePos(pos)
		}
	case "duration":
		var duration float64
		decodeProperty(event.Data, &duration)
		p.mu.Lock()
		p.state.duration = duration
		p.mu.Unlock()
	case "seekable":
		var seekable bool
		if decodeProperty(event.Data, &seekable) {
			p.mu.Lock()
			p.state.unseekable = !seekable
			p.mu.Unlock()
		}
	case "demuxer-start-time":
		var start float64
		decodeProperty(event.Data, &start)
		p.mu.Lock()
		p.state.startTime = start
		p.mu.Unlock()
	case "video-params":
		var params struct {
			W int `json:"w"`
			H int `json:"h"`
		}
		if decodeProperty(event.Data, &params) {
			p.setVideoSize(params.W, params.H)
		}
	case "video-bitrate":
		var bitrate float64
		decodeProperty(event.Data, &bitrate)
		p.mu.Lock()
		p.state.bitrate = int64(bitrate)
		p.mu.Unlock()
	}
}

// decodeProperty unmarshals a property value, reporting false when the property is unavailable
func decodeProperty(data json.RawMessage, v any) bool {
	if len(data) == 0 || string(data) == "null" {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn("Failed to unmarshal MPV property", "data", string(data), "error", err)
		return false
	}
	return true
}

func (p *MPVPlayer) setPaused(paused bool) {
	p.mu.Lock()
	changed := paused != p.state.paused
	p.state.paused = paused
	loaded := p.state.loaded
	p.state.playing = !paused && loaded
	p.mu.Unlock()

	if !changed {
		return
	}
	if paused {
		p.playback.fire(EventPlaybackPause, nil)
		return
	}

	p.playback.fire(EventPlaybackPlayIntent, nil)
	// Resuming a loaded file produces frames straight away, mpv sends no playback-restart for it
	if loaded {
		p.playback.fire(EventPlaybackPlay, nil)
	}
}

func (p *MPVPlayer) setTimePos(pos float64) {
	p.mu.Lock()
	p.state.timePos = pos
	due := p.state.lastTimeUpdate < 0 || math.Abs(pos-p.state.lastTimeUpdate) >= timeUpdateInterval
	if due {
		p.state.lastTimeUpdate = pos
	}
	p.mu.Unlock()

	if due {
		p.fire(EventPlayerTimeUpdate, nil)
	}
}

func (p *MPVPlayer) setVideoSize(width, height int) {
	p.mu.Lock()
	if width <= 0 || height <= 0 || (width == p.state.width && height == p.state.height) {
		p.mu.Unlock()
		return
	}
	p.state.width = width
	p.state.height = height
	info := bridge.BitrateInfo{
		Bandwidth: p.state.bitrate,
		Width:     width,
		Height:    height,
	}
	p.mu.Unlock()

	log.Debug("MPV rendition changed", "width", width, "height", height, "bitrate", info.Bandwidth)
	p.playback.fire(EventPlaybackBitrate, info)
}

func (p *MPVPlayer) handlePlaybackRestart() {
	p.mu.Lock()
	first := !p.state.loaded
	p.state.loaded = true
	paused := p.state.paused
	p.state.playing = !paused
	p.mu.Unlock()

	if first {
		log.Info("MPV playback has started")
		p.notify(PlaybackEvent{Type: PlaybackStarted})
	}
	if !paused {
		p.playback.fire(EventPlaybackPlay, nil)
	}
}

func (p *MPVPlayer) handleEndFile(event MPVEvent) {
	p.mu.Lock()
	p.state.playing = false
	p.mu.Unlock()

	switch event.Reason {
	case "eof":
		log.Info("MPV playback ended")
		p.playback.fire(EventPlaybackEnded, nil)
	case "error":
		perr := bridge.PlaybackError{
			Code:        ErrorCodeEndFile,
			Description: event.FileError,
		}
		log.Error("MPV failed to play file", "error", event.FileError)
		p.notify(PlaybackEvent{Type: PlaybackError, Error: perr})
		p.playback.fire(EventPlaybackError, perr)
	default:
		log.Debug("MPV file ended", "reason", event.Reason)
	}
}

// destroy fires the teardown event exactly once
func (p *MPVPlayer) destroy() {
	p.destroyOnce.Do(func() {
		p.mu.Lock()
		p.state.playing = false
		p.mu.Unlock()
		p.fire(EventPlayerDestroy, nil)
	})
}

// notify delivers a lifecycle event without ever blocking event translation
func (p *MPVPlayer) notify(event PlaybackEvent) {
	p.mu.Lock()
	ch := p.lifecycle
	p.mu.Unlock()

	if ch == nil {
		return
	}
	select {
	case ch <- event:
	default:
		log.Warn("Dropping playback lifecycle event", "type", event.Type)
	}
}

func (p *MPVPlayer) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.paused
}

func (p *MPVPlayer) progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return calculateProgressPercentage(p.state.timePos, p.state.duration)
}

func calculateProgressPercentage(playbackTime, duration float64) float64 {
	if playbackTime == 0.0 || duration == 0.0 {
		return 0.0
	}
	return (playbackTime / duration) * 100
}

// IsPlaying reports whether mpv is currently producing frames
func (p *MPVPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.playing
}

// CurrentTime is the playhead in seconds
func (p *MPVPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.timePos
}

// Duration is the file duration in seconds, 0 while unknown
func (p *MPVPlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.duration
}

// StartTimeOffset is the demuxer start time in seconds
func (p *MPVPlayer) StartTimeOffset() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.startTime
}

func (p *MPVPlayer) Options() bridge.PlayerOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bridge.PlayerOptions{
		Width:  p.config.Player.Width,
		Height: p.config.Player.Height,
		Source: p.state.source,
	}
}

func (p *MPVPlayer) CurrentPlayback() bridge.Playback {
	if p == nil || p.playback == nil {
		return nil
	}
	return p.playback
}

// TogglePause pauses or resumes playback
func (p *MPVPlayer) TogglePause() error {
	return p.ipcClient.SendCommand([]interface{}{"cycle", "pause"})
}

// Seek moves the playhead relative to its current position
func (p *MPVPlayer) Seek(seconds float64) error {
	return p.ipcClient.SendCommand([]interface{}{"seek", seconds, "relative"})
}

// Stop asks mpv to quit, killing it if it cannot be reached
func (p *MPVPlayer) Stop() error {
	if err := p.ipcClient.SendCommand([]interface{}{"quit"}); err != nil {
		log.Debug("Could not ask MPV to quit", "error", err)
		p.mu.Lock()
		cmd := p.cmd
		p.mu.Unlock()
		if cmd != nil && cmd.Process != nil {
			log.Info("Stopping MPV playback")
			if err := cmd.Process.Kill(); err != nil {
				log.Warn("Failed to kill MPV", "error", err)
			}
		}
	}

	return p.ipcClient.Close()
}

// Cleanup performs any necessary cleanup
func (p *MPVPlayer) Cleanup() {
	if err := p.Stop(); err != nil {
		log.Debug("Error while stopping MPV", "error", err)
	}

	// Remove socket file if it exists (Unix only)
	if _, err := os.Stat(p.socketPath); err == nil {
		if err := os.Remove(p.socketPath); err != nil {
			log.Warn("Failed to remove MPV socket file", "path", p.socketPath, "error", err)
		}
	}
}

// DetectMPVVersion asks the mpv binary for its version
func DetectMPVVersion(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = "mpv"
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to run %s --version: %w", path, err)
	}

	version := parseMPVVersion(string(out))
	if version == "" {
		return "", fmt.Errorf("unrecognised mpv version output")
	}
	return version, nil
}

// parseMPVVersion extracts the version from output like "mpv v0.38.0 Copyright..."
func parseMPVVersion(output string) string {
	firstLine, _, _ := strings.Cut(output, "\n")
	fields := strings.Fields(firstLine)
	if len(fields) < 2 || fields[0] != "mpv" {
		return ""
	}
	return strings.TrimPrefix(fields[1], "v")
}
