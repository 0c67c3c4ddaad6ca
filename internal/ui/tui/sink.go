package tui

import (
	"fmt"
	"maps"
	"time"

	"github.com/PizzaHomicide/muxbridge/internal/bridge"
	"github.com/PizzaHomicide/muxbridge/internal/log"
	"github.com/PizzaHomicide/muxbridge/internal/ui/tui/models"
	tea "github.com/charmbracelet/bubbletea"
)

// Sink forwards analytics events to the monitor.  It never blocks the bridge: when the monitor falls behind,
// updates are dropped.
type Sink struct {
	updates chan<- tea.Msg
}

func (s *Sink) Init(sessionID string, cfg bridge.Config) {
	s.push(models.SessionStartedMsg{
		SessionID: sessionID,
		Data:      maps.Clone(cfg.Data),
		Playhead:  cfg.PlayheadTime,
		State:     cfg.State,
	})
}

func (s *Sink) Emit(sessionID string, event bridge.EventName, payload bridge.Payload) {
	s.push(models.EventMsg{
		SessionID: sessionID,
		Event:     event,
		Payload:   maps.Clone(payload),
		At:        time.Now(),
	})
}

func (s *Sink) push(msg tea.Msg) {
	select {
	case s.updates <- msg:
	default:
		log.Debug("Event monitor is behind, dropping update", "type", fmt.Sprintf("%T", msg))
	}
}
