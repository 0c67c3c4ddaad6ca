package models

import (
	"strings"

	"github.com/PizzaHomicide/muxbridge/internal/ui/tui/styles"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LoadingModel displays a loading indicator while the player starts up
type LoadingModel struct {
	width, height int
	message       string // Primary message displayed with the spinner
	contextInfo   string // Optional additional context
	spinner       spinner.Model
}

// NewLoadingModel creates a new loading model with the required message
func NewLoadingModel(message string) *LoadingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return &LoadingModel{
		message: message,
		spinner: s,
	}
}

// WithContextInfo adds additional context information
func (m *LoadingModel) WithContextInfo(info string) *LoadingModel {
	m.contextInfo = info
	return m
}

func (m *LoadingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update only advances the spinner
func (m *LoadingModel) Update(msg tea.Msg) (*LoadingModel, tea.Cmd) {
	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}
	return m, nil
}

// View renders the loading state
func (m *LoadingModel) View() string {
	contentWidth := min(m.width-20, 80)
	if contentWidth < 40 {
		contentWidth = min(m.width-4, 40)
	}
	if contentWidth < 10 {
		contentWidth = 40
	}

	spinnerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9D86FF")).
		Bold(true).
		PaddingRight(1)

	messageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true)

	centerStyle := lipgloss.NewStyle().
		Width(contentWidth - 6). // Account for padding
		Align(lipgloss.Center)

	var b strings.Builder
	b.WriteString(centerStyle.Render(spinnerStyle.Render(m.spinner.View()) + " " + messageStyle.Render(m.message)))

	if m.contextInfo != "" {
		contextStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Italic(true).
			Width(contentWidth - 6).
			Align(lipgloss.Center)

		b.WriteString("\n\n")
		b.WriteString(contextStyle.Render(m.contextInfo))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#9D86FF")).
		Padding(2, 3).
		Width(contentWidth).
		Render(b.String())

	return styles.CenteredView(m.width, m.height, box)
}

// Resize updates the dimensions of the loading model
func (m *LoadingModel) Resize(width, height int) {
	m.width = width
	m.height = height
}
