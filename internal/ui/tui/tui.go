package tui

import (
	"github.com/PizzaHomicide/muxbridge/internal/config"
	"github.com/PizzaHomicide/muxbridge/internal/player"
	"github.com/PizzaHomicide/muxbridge/internal/ui/tui/models"
	tea "github.com/charmbracelet/bubbletea"
)

// Number of undelivered monitor updates held before new ones are dropped
const updateBuffer = 256

// Monitor is the terminal event monitor for one playback.  Its Sink must be handed to the bridge before playback
// starts, Run then blocks until the player exits or the user quits.
type Monitor struct {
	config  config.UIConfig
	ctrl    models.Controller
	updates chan tea.Msg
	sink    *Sink
}

func New(cfg config.UIConfig, ctrl models.Controller) *Monitor {
	updates := make(chan tea.Msg, updateBuffer)
	return &Monitor{
		config:  cfg,
		ctrl:    ctrl,
		updates: updates,
		sink:    &Sink{updates: updates},
	}
}

// Sink returns the analytics sink feeding this monitor
func (m *Monitor) Sink() *Sink {
	return m.sink
}

// Run shows the monitor until the lifecycle channel closes or the user quits
func (m *Monitor) Run(lifecycle <-chan player.PlaybackEvent) error {
	model := models.NewMonitorModel(m.config, m.ctrl, m.updates, lifecycle)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
