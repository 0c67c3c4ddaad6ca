package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PizzaHomicide/muxbridge/internal/bridge"
	"github.com/PizzaHomicide/muxbridge/internal/config"
	"github.com/PizzaHomicide/muxbridge/internal/log"
	"github.com/PizzaHomicide/muxbridge/internal/player"
	"github.com/PizzaHomicide/muxbridge/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/muxbridge/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/muxbridge/internal/ui/tui/styles"
	"github.com/PizzaHomicide/muxbridge/internal/ui/tui/util"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is the part of the player the monitor can drive
type Controller interface {
	TogglePause() error
	Seek(seconds float64) error
	Stop() error
}

const (
	seekStep         = 10.0
	refreshInterval  = 500 * time.Millisecond
	defaultMaxEvents = 20
	defaultWidth     = 100
	timeColumnWidth  = 12
	eventColumnWidth = 16
)

// MonitorModel is the top level model of the event monitor.  It listens to the analytics events of one session and
// periodically pulls the session's playhead and state snapshot.
type MonitorModel struct {
	ctrl      Controller
	updates   <-chan tea.Msg
	lifecycle <-chan player.PlaybackEvent
	maxEvents int

	activeModal   Modal
	width, height int
	helpModel     *HelpModel
	loadingModel  *LoadingModel

	sessionID string
	data      map[string]any
	playhead  bridge.PlayheadTimeProvider
	state     bridge.StateSnapshotProvider

	snapshot      bridge.StateSnapshot
	playheadMs    int64
	playheadKnown bool

	started   bool
	status    string
	lastError string
	total     int
	counts    map[bridge.EventName]int
	rows      []table.Row
	table     table.Model
}

// NewMonitorModel creates the monitor.  updates carries SessionStartedMsg and EventMsg values, lifecycle is the
// channel returned by the player's Play.
func NewMonitorModel(cfg config.UIConfig, ctrl Controller, updates <-chan tea.Msg, lifecycle <-chan player.PlaybackEvent) MonitorModel {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}

	t := table.New(
		table.WithColumns(eventColumns(defaultWidth)),
		table.WithHeight(maxEvents+1),
		table.WithFocused(true),
	)

	return MonitorModel{
		ctrl:         ctrl,
		updates:      updates,
		lifecycle:    lifecycle,
		maxEvents:    maxEvents,
		activeModal:  ModalNone,
		helpModel:    NewHelpModel(),
		loadingModel: NewLoadingModel("Waiting for the player to start"),
		counts:       make(map[bridge.EventName]int),
		status:       "Starting player",
		table:        t,
	}
}

func eventColumns(width int) []table.Column {
	// Every cell carries one column of padding on each side
	details := width - timeColumnWidth - eventColumnWidth - 6
	if details < 20 {
		details = 20
	}
	return []table.Column{
		{Title: "Time", Width: timeColumnWidth},
		{Title: "Event", Width: eventColumnWidth},
		{Title: "Details", Width: details},
	}
}

func (m MonitorModel) Init() tea.Cmd {
	log.Info("Initialising event monitor")
	return tea.Batch(
		waitForUpdate(m.updates),
		waitForLifecycle(m.lifecycle),
		tick(),
		m.loadingModel.Init(),
	)
}

func waitForUpdate(updates <-chan tea.Msg) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}

func waitForLifecycle(lifecycle <-chan player.PlaybackEvent) tea.Cmd {
	if lifecycle == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-lifecycle
		if !ok {
			return PlaybackDoneMsg{}
		}
		return PlaybackLifecycleMsg{Event: event}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the models as appropriate
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.activeModal == ModalHelp {
			var cmd tea.Cmd
			m.helpModel, cmd = m.helpModel.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		log.Debug("Window size changed", "old_width", m.width, "new_width", msg.Width, "old_height", m.height, "new_height", msg.Height)
		m.resize(msg.Width, msg.Height)
		return m, nil

	case SessionStartedMsg:
		log.Debug("Monitor attached to session", "session_id", msg.SessionID)
		m.sessionID = msg.SessionID
		m.data = msg.Data
		m.playhead = msg.Playhead
		m.state = msg.State
		m.refresh()
		return m, waitForUpdate(m.updates)

	case EventMsg:
		m.recordEvent(msg)
		return m, waitForUpdate(m.updates)

	case tickMsg:
		m.refresh()
		return m, tick()

	case PlaybackLifecycleMsg:
		m.handleLifecycle(msg.Event)
		return m, waitForLifecycle(m.lifecycle)

	case PlaybackDoneMsg:
		log.Info("Player exited, closing monitor")
		m.status = "Player exited"
		return m, tea.Quit

	case ControlResultMsg:
		if msg.Error != nil {
			log.Warn("Player command failed", "action", msg.Action, "error", msg.Error)
			m.status = fmt.Sprintf("%s failed: %v", msg.Action, msg.Error)
		}
		return m, nil

	case spinner.TickMsg:
		if m.started {
			return m, nil
		}
		var cmd tea.Cmd
		m.loadingModel, cmd = m.loadingModel.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m MonitorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch kb.GetActionByKey(msg, kb.ContextGlobal) {
	case kb.ActionQuit:
		log.Info("Quit command received.  Stopping playback...")
		return m, m.stopAndQuit()
	case kb.ActionToggleHelp:
		log.Debug("Help requested")
		if m.activeModal == ModalHelp {
			m.activeModal = ModalNone
		} else {
			m.activeModal = ModalHelp
		}
		return m, nil
	case kb.ActionBack:
		m.activeModal = ModalNone
		return m, nil
	}

	if m.activeModal == ModalHelp {
		var cmd tea.Cmd
		m.helpModel, cmd = m.helpModel.Update(msg)
		return m, cmd
	}

	action := kb.GetActionByKey(msg, kb.ContextMonitor)
	switch action {
	case kb.ActionTogglePause:
		return m, m.control(action, func() error { return m.ctrl.TogglePause() })
	case kb.ActionSeekForward:
		return m, m.control(action, func() error { return m.ctrl.Seek(seekStep) })
	case kb.ActionSeekBackward:
		return m, m.control(action, func() error { return m.ctrl.Seek(-seekStep) })
	case kb.ActionClearEvents:
		m.rows = nil
		m.table.SetRows(nil)
	case kb.ActionMoveUp:
		m.table.MoveUp(1)
	case kb.ActionMoveDown:
		m.table.MoveDown(1)
	case kb.ActionPageUp:
		m.table.MoveUp(m.table.Height())
	case kb.ActionPageDown:
		m.table.MoveDown(m.table.Height())
	case kb.ActionMoveTop:
		m.table.GotoTop()
	case kb.ActionMoveBottom:
		m.table.GotoBottom()
	}
	return m, nil
}

// control runs a player command off the update loop, IPC round trips can take a while
func (m MonitorModel) control(action kb.Action, fn func() error) tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	return func() tea.Msg {
		return ControlResultMsg{Action: action, Error: fn()}
	}
}

func (m MonitorModel) stopAndQuit() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if ctrl != nil {
			if err := ctrl.Stop(); err != nil {
				log.Warn("Failed to stop player", "error", err)
			}
		}
		return tea.Quit()
	}
}

func (m *MonitorModel) handleLifecycle(event player.PlaybackEvent) {
	switch event.Type {
	case player.PlaybackStarted:
		log.Debug("Playback started, switching to event view")
		m.started = true
		m.status = "Playing"
	case player.PlaybackEnded:
		m.started = true
		m.status = fmt.Sprintf("Playback ended at %.0f%%", event.Progress)
	case player.PlaybackError:
		m.started = true
		if event.Error != nil {
			m.lastError = event.Error.Error()
		}
		m.status = "Playback error"
	}
}

func (m *MonitorModel) recordEvent(msg EventMsg) {
	m.total++
	m.counts[msg.Event]++

	switch msg.Event {
	case bridge.EventTimeUpdate:
		if ms, ok := msg.Payload[bridge.KeyPlayheadTime].(int64); ok {
			m.playheadMs = ms
			m.playheadKnown = true
		}
		return
	case bridge.EventError:
		m.lastError = fmt.Sprintf("%v: %v", msg.Payload[bridge.KeyErrorCode], msg.Payload[bridge.KeyErrorMessage])
	case bridge.EventDestroy:
		m.status = "Player destroyed"
	}

	row := table.Row{
		msg.At.Format("15:04:05.000"),
		string(msg.Event),
		FormatPayload(msg.Payload),
	}
	m.rows = append([]table.Row{row}, m.rows...)
	if len(m.rows) > m.maxEvents {
		m.rows = m.rows[:m.maxEvents]
	}
	m.table.SetRows(m.rows)
}

// refresh pulls the latest playhead and state snapshot from the session
func (m *MonitorModel) refresh() {
	if m.state != nil {
		m.snapshot = m.state.StateData()
		m.loadingModel.WithContextInfo(m.snapshot.SourceURL)
	}
	if m.playhead != nil {
		m.playheadMs, m.playheadKnown = m.playhead.PlayheadTime()
	}
}

func (m *MonitorModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.helpModel.Resize(width, height)
	m.loadingModel.Resize(width, height)

	tableWidth := width - 4 // Account for borders
	m.table.SetColumns(eventColumns(tableWidth))
	m.table.SetWidth(tableWidth)

	// header, six info lines, box borders, footer and spacing
	tableHeight := height - 13
	if tableHeight < 3 {
		tableHeight = 3
	}
	m.table.SetHeight(tableHeight)
}

// FormatPayload renders a payload as sorted key=value pairs
func FormatPayload(payload bridge.Payload) string {
	if len(payload) == 0 {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return strings.Join(parts, " ")
}

func (m MonitorModel) View() string {
	if m.activeModal == ModalHelp {
		return m.helpModel.View()
	}
	if m.activeView() == ViewLoading {
		return m.loadingModel.View()
	}

	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.Header(width, "muxbridge event monitor"),
		m.infoView(width),
		styles.ContentBox(width-2, m.table.View(), 0),
		m.footerView(width),
	)
}

// activeView is the loading view until the player reports that playback started or failed
func (m MonitorModel) activeView() View {
	if !m.started {
		return ViewLoading
	}
	return ViewMonitor
}

func (m MonitorModel) infoView(width int) string {
	line := func(label, value string) string {
		return styles.Label.Render(label+": ") + value
	}

	software := fmt.Sprintf("%v %v", m.data[bridge.KeySoftwareName], m.data[bridge.KeySoftwareVersion])
	if m.data == nil {
		software = "unknown"
	}

	playState := "playing"
	if m.snapshot.Paused {
		playState = "paused"
	}

	duration := util.FormatPlayhead(m.snapshot.SourceDurationMs, m.snapshot.SourceDurationMs > 0)

	lines := []string{
		line("Session", m.sessionID) + "   " + line("Player", software),
		line("Source", styles.Url.Render(util.TruncateString(m.snapshot.SourceURL, max(width-10, 10)))),
		line("State", playState) + "   " +
			line("Playhead", util.FormatPlayhead(m.playheadMs, m.playheadKnown)) + " / " + duration,
		line("Player size", util.FormatDimensions(m.snapshot.PlayerWidth, m.snapshot.PlayerHeight)) + "   " +
			line("Source size", util.FormatDimensions(m.snapshot.SourceWidth, m.snapshot.SourceHeight)),
		line("Events", fmt.Sprintf("%d (%d time updates)", m.total, m.counts[bridge.EventTimeUpdate])),
		styles.Status.Render(m.status),
	}
	if m.lastError != "" {
		lines = append(lines, styles.Error.Render("Last error: "+util.TruncateString(m.lastError, max(width-14, 10))))
	}
	return strings.Join(lines, "\n")
}

func (m MonitorModel) footerView(width int) string {
	bindings := components.BarFor(kb.ContextMonitor, map[kb.Action]string{
		kb.ActionTogglePause:  "pause",
		kb.ActionSeekBackward: "-10s",
		kb.ActionSeekForward:  "+10s",
		kb.ActionClearEvents:  "clear",
	}, kb.ActionTogglePause, kb.ActionSeekBackward, kb.ActionSeekForward, kb.ActionClearEvents)
	bindings = append(bindings, components.BarFor(kb.ContextGlobal, map[kb.Action]string{
		kb.ActionToggleHelp: "help",
		kb.ActionQuit:       "quit",
	}, kb.ActionToggleHelp, kb.ActionQuit)...)

	return components.KeyBindingsBar(width, bindings)
}
