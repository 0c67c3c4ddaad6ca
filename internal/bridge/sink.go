package bridge

// Sink is the analytics service the bridge forwards to.  Delivery is fire and forget: the bridge
// neither retries nor queues events, and failures inside the sink are the sink's concern.
type Sink interface {
	// Init is called exactly once per session, before any Emit for that session
	Init(sessionID string, cfg Config)
	// Emit forwards a single canonical event.  payload may be nil.
	Emit(sessionID string, event EventName, payload Payload)
}

// PlayheadTimeProvider is pulled by the sink whenever it needs the current playhead.
// ok is false when the playhead is not yet known, which is distinct from a playhead of zero.
type PlayheadTimeProvider interface {
	PlayheadTime() (ms int64, ok bool)
}

// StateSnapshotProvider is pulled by the sink whenever it needs the current player state
type StateSnapshotProvider interface {
	StateData() StateSnapshot
}

// Options is the caller supplied overlay for the monitoring configuration
type Options struct {
	// Data holds metadata such as env_key, video_title or viewer_user_id.  Keys here win over the
	// integration identity defaults.
	Data map[string]any
	// Debug asks the sink for verbose output
	Debug bool
}

// Config is the final monitoring configuration handed to the sink on Init
type Config struct {
	Data  map[string]any
	Debug bool

	PlayheadTime PlayheadTimeProvider
	State        StateSnapshotProvider
}

// StateSnapshot is the player state reported to the sink on demand
type StateSnapshot struct {
	Paused       bool
	PlayerWidth  int
	PlayerHeight int
	SourceWidth  int
	SourceHeight int
	// Fullscreen is always false, the host's fullscreen state is not queried
	Fullscreen       bool
	SourceURL        string
	SourceDurationMs int64
}

// Payload converts the snapshot to the analytics key/value form
func (s StateSnapshot) Payload() Payload {
	return Payload{
		KeyIsPaused:       s.Paused,
		KeyPlayerWidth:    s.PlayerWidth,
		KeyPlayerHeight:   s.PlayerHeight,
		KeySourceHeight:   s.SourceHeight,
		KeySourceWidth:    s.SourceWidth,
		KeyIsFullscreen:   s.Fullscreen,
		KeySourceURL:      s.SourceURL,
		KeySourceDuration: s.SourceDurationMs,
	}
}
