package bridge

// EventName is a canonical analytics event name
type EventName string

const (
	EventPlay            EventName = "play"
	EventPause           EventName = "pause"
	EventPlaying         EventName = "playing"
	EventSeeking         EventName = "seeking"
	EventSeeked          EventName = "seeked"
	EventTimeUpdate      EventName = "timeupdate"
	EventError           EventName = "error"
	EventEnded           EventName = "ended"
	EventRenditionChange EventName = "renditionchange"
	EventDestroy         EventName = "destroy"
	EventPlayerReady     EventName = "playerready"
)

// Events lists every canonical event, in no particular order
var Events = []EventName{
	EventPlay,
	EventPause,
	EventPlaying,
	EventSeeking,
	EventSeeked,
	EventTimeUpdate,
	EventError,
	EventEnded,
	EventRenditionChange,
	EventDestroy,
	EventPlayerReady,
}

// Payload is the flat key/value data attached to an event.  Values are primitives only.
type Payload map[string]any

// Payload keys used by the analytics vocabulary
const (
	KeyPlayheadTime    = "player_playhead_time"
	KeyErrorCode       = "player_error_code"
	KeyErrorMessage    = "player_error_message"
	KeySourceBitrate   = "video_source_bitrate"
	KeySourceHeight    = "video_source_height"
	KeySourceWidth     = "video_source_width"
	KeyIsPaused        = "player_is_paused"
	KeyPlayerWidth     = "player_width"
	KeyPlayerHeight    = "player_height"
	KeyIsFullscreen    = "player_is_fullscreen"
	KeySourceURL       = "video_source_url"
	KeySourceDuration  = "video_source_duration"
	KeySoftwareName    = "player_software_name"
	KeySoftwareVersion = "player_software_version"
	KeyPluginName      = "player_mux_plugin_name"
	KeyPluginVersion   = "player_mux_plugin_version"
)
