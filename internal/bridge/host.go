package bridge

// PlaybackType classifies the stream currently loaded in the host player
type PlaybackType string

const (
	// PlaybackTypeLive is a live stream, possibly with a DVR window
	PlaybackTypeLive PlaybackType = "live"
	// PlaybackTypeVOD is on-demand content.  Any type other than live is treated as on-demand.
	PlaybackTypeVOD PlaybackType = "vod"
)

// Handler receives the payload of a host event.  Most host events carry no payload and pass nil.
type Handler func(data any)

// EventSource is anything that lets the bridge subscribe to named events
type EventSource interface {
	// On registers h for the named event.  Handlers are invoked synchronously in registration order.
	On(event string, h Handler)
}

// Playback is the host's current playback backend
type Playback interface {
	EventSource

	// PlaybackType reports whether the loaded stream is live or on-demand
	PlaybackType() PlaybackType
}

// PlayerOptions are the configured values of the host player the bridge reports on
type PlayerOptions struct {
	Width  int
	Height int
	Source string
}

// Player lists every capability the bridge needs from a host media player.
// All time values are in seconds.
type Player interface {
	EventSource

	IsPlaying() bool
	CurrentTime() float64
	Duration() float64
	// StartTimeOffset is the offset of the live window start, zero for on-demand content
	StartTimeOffset() float64
	Options() PlayerOptions
	CurrentPlayback() Playback
}

// EventNames maps each host signal the bridge listens for to the host's own event name
type EventNames struct {
	// Fired on the current playback backend
	PlaybackPause      string
	PlaybackPlayIntent string
	PlaybackPlay       string
	PlaybackError      string
	PlaybackEnded      string
	PlaybackBitrate    string

	// Fired on the player itself
	PlayerSeek       string
	PlayerTimeUpdate string
	PlayerDestroy    string
}

// Library describes the host player software: its identity and its event vocabulary
type Library struct {
	Name    string
	Version string
	Events  EventNames
}

// PlaybackError is the payload of a host playback error event
type PlaybackError struct {
	Code        string
	Description string
}

func (e PlaybackError) Error() string {
	if e.Code == "" {
		return e.Description
	}
	return e.Code + ": " + e.Description
}

// BitrateInfo is the payload of a host rendition change event
type BitrateInfo struct {
	// Bandwidth in bits per second
	Bandwidth int64
	Width     int
	Height    int
}
