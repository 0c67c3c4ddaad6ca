package models

import (
	"time"

	"github.com/PizzaHomicide/muxbridge/internal/bridge"
	"github.com/PizzaHomicide/muxbridge/internal/player"
	kb "github.com/PizzaHomicide/muxbridge/internal/ui/tui/keybindings"
)

// SessionStartedMsg is sent when the bridge initialises a monitoring session
type SessionStartedMsg struct {
	SessionID string
	Data      map[string]any
	Playhead  bridge.PlayheadTimeProvider
	State     bridge.StateSnapshotProvider
}

// EventMsg carries one analytics event emitted by the bridge
type EventMsg struct {
	SessionID string
	Event     bridge.EventName
	Payload   bridge.Payload
	At        time.Time
}

// PlaybackLifecycleMsg wraps a lifecycle event from the player
type PlaybackLifecycleMsg struct {
	Event player.PlaybackEvent
}

// PlaybackDoneMsg is sent once the player's lifecycle channel is closed
type PlaybackDoneMsg struct{}

// ControlResultMsg reports the outcome of a command sent to the player
type ControlResultMsg struct {
	Action kb.Action
	Error  error
}

type tickMsg time.Time
