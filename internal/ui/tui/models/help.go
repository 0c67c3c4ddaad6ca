package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	kb "github.com/PizzaHomicide/muxbridge/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/muxbridge/internal/ui/tui/styles"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModel displays the key bindings and a short description of the monitor with scrolling
type HelpModel struct {
	width, height int
	viewport      viewport.Model
}

// NewHelpModel creates a new help model
func NewHelpModel() *HelpModel {
	return &HelpModel{
		viewport: viewport.New(0, 0),
	}
}

// Update handles scrolling
func (m *HelpModel) Update(msg tea.Msg) (*HelpModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextHelp) {
		case kb.ActionMoveUp:
			m.viewport.LineUp(1)
		case kb.ActionMoveDown:
			m.viewport.LineDown(1)
		case kb.ActionPageUp:
			m.viewport.ViewUp()
		case kb.ActionPageDown:
			m.viewport.ViewDown()
		case kb.ActionMoveTop:
			m.viewport.GotoTop()
		case kb.ActionMoveBottom:
			m.viewport.GotoBottom()
		}
	}
	return m, cmd
}

// Resize updates the dimensions
func (m *HelpModel) Resize(width, height int) {
	m.width = width
	m.height = height

	contentWidth := width - 4    // Account for borders
	contentHeight := height - 10 // Account for header, footer, spacing

	if contentWidth < 1 {
		contentWidth = 1
	}
	if contentHeight < 1 {
		contentHeight = 1
	}

	m.viewport.Width = contentWidth
	m.viewport.Height = contentHeight

	m.viewport.SetContent(m.generateHelpContent())
	m.viewport.GotoTop()
}

// View renders the help screen
func (m *HelpModel) View() string {
	header := styles.Header(m.width, "Help: Event Monitor")

	scrollText := "↑/↓: Scroll • PgUp/PgDn: Page scroll • Home/End: Goto top/bottom • ESC: Return"
	footer := styles.CenteredText(m.width, styles.Info.Render(scrollText))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		styles.ContentBox(m.width-2, m.viewport.View(), 1),
		"",
		footer,
	)
}

// formatKeybindingSection formats a section of keybindings with aligned colons
func (m *HelpModel) formatKeybindingSection(title string, bindings []kb.Binding) string {
	if len(bindings) == 0 {
		return ""
	}

	keyText := func(binding kb.Binding) string {
		text := kb.DisplayKey(binding.KeyMap.Primary)
		if binding.KeyMap.Secondary != "" {
			text += " or " + kb.DisplayKey(binding.KeyMap.Secondary)
		}
		return text
	}

	maxKeyWidth := 0
	for _, binding := range bindings {
		if width := utf8.RuneCountInString(keyText(binding)); width > maxKeyWidth {
			maxKeyWidth = width
		}
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(title))
	b.WriteString("\n\n")
	for _, binding := range bindings {
		text := keyText(binding)
		padding := strings.Repeat(" ", maxKeyWidth-utf8.RuneCountInString(text))

		b.WriteString(fmt.Sprintf("• %s%s : %s\n",
			lipgloss.NewStyle().Bold(true).Render(text),
			padding,
			binding.KeyMap.Help))
	}

	return b.String()
}

// generateHelpContent builds the complete help content
func (m *HelpModel) generateHelpContent() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

	b.WriteString(titleStyle.Render("Event Monitor"))
	b.WriteString("\n\n")
	b.WriteString("The monitor shows the analytics session bound to the running player.\n\n" +
		"The event table lists the canonical events sent to the analytics sinks, newest first. " +
		"Time updates are counted but not listed; they move the playhead instead. " +
		"The state line is refreshed on its own timer by pulling the session's state snapshot.")
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Keybindings"))
	b.WriteString("\n\n")
	b.WriteString(m.formatKeybindingSection("Global commands:", kb.ContextBindings[kb.ContextGlobal]))
	b.WriteString("\n")
	b.WriteString(m.formatKeybindingSection("Monitor commands:", kb.ContextBindings[kb.ContextMonitor]))

	return b.String()
}
