package player

import (
	"context"
)

// PlaybackEventType represents the type of playback lifecycle event
type PlaybackEventType string

const (
	// PlaybackStarted indicates that playback has successfully started
	PlaybackStarted PlaybackEventType = "started"
	// PlaybackEnded indicates that playback has completed or the player exited
	PlaybackEnded PlaybackEventType = "ended"
	// PlaybackError indicates an error during playback
	PlaybackError PlaybackEventType = "error"
)

// PlaybackEvent represents a lifecycle event from the video player
type PlaybackEvent struct {
	Type     PlaybackEventType
	Progress float64 // Percentage of progress (0-100)
	Error    error   // Error if Type is PlaybackError
}

// VideoPlayer defines the interface for media player implementations
type VideoPlayer interface {
	// Play starts playback of the given URL and returns a channel for lifecycle events
	Play(ctx context.Context, url string) (<-chan PlaybackEvent, error)

	// TogglePause pauses or resumes playback
	TogglePause() error

	// Seek moves the playhead by the given number of seconds
	Seek(seconds float64) error

	// Stop stops the current playback
	Stop() error

	// Cleanup performs any necessary cleanup
	Cleanup()
}
