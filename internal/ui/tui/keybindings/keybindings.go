package keybindings

import tea "github.com/charmbracelet/bubbletea"

// Action represents a specific action that can be triggered by a key
type Action string

// Define all possible actions
const (
	// Global actions
	ActionQuit       Action = "quit"
	ActionToggleHelp Action = "toggle_help"
	ActionBack       Action = "back" // General purpose "go back" or "cancel"

	// Navigation actions
	ActionMoveUp     Action = "move_up"
	ActionMoveDown   Action = "move_down"
	ActionPageUp     Action = "page_up"
	ActionPageDown   Action = "page_down"
	ActionMoveTop    Action = "move_top"
	ActionMoveBottom Action = "move_bottom"

	// Player control actions
	ActionTogglePause  Action = "toggle_pause"
	ActionSeekForward  Action = "seek_forward"
	ActionSeekBackward Action = "seek_backward"
	ActionClearEvents  Action = "clear_events"
)

// ContextName represents a specific UI context in the application that has its own keybinds
type ContextName string

const (
	ContextGlobal  ContextName = "global"
	ContextMonitor ContextName = "monitor"
	ContextHelp    ContextName = "help"
)

var ContextBindings = map[ContextName][]Binding{
	ContextGlobal:  globalBindings,
	ContextMonitor: monitorBindings,
	ContextHelp:    helpBindings,
}

// KeyMap stores the mappings from actions to key sequences for each context
type KeyMap struct {
	Primary   string
	Secondary string // Optional alternative key
	Help      string // Description for help screen
}

// Binding maps an action to its keys and help text
type Binding struct {
	Action Action
	KeyMap KeyMap
}

// navigationBindings contains general navigation bindings for consistent navigation across the app
var navigationBindings = []Binding{
	{
		Action: ActionMoveUp,
		KeyMap: KeyMap{
			Primary:   "up",
			Secondary: "k",
			Help:      "Move cursor up",
		},
	},
	{
		Action: ActionMoveDown,
		KeyMap: KeyMap{
			Primary:   "down",
			Secondary: "j",
			Help:      "Move cursor down",
		},
	},
	{
		Action: ActionPageUp,
		KeyMap: KeyMap{
			Primary: "pgup",
			Help:    "Move up one page",
		},
	},
	{
		Action: ActionPageDown,
		KeyMap: KeyMap{
			Primary: "pgdown",
			Help:    "Move down one page",
		},
	},
	{
		Action: ActionMoveTop,
		KeyMap: KeyMap{
			Primary: "home",
			Help:    "Move top of view",
		},
	},
	{
		Action: ActionMoveBottom,
		KeyMap: KeyMap{
			Primary: "end",
			Help:    "Move bottom of view",
		},
	},
}

// globalBindings contains key bindings that work across all views
var globalBindings = []Binding{
	{
		Action: ActionQuit,
		KeyMap: KeyMap{
			Primary:   "ctrl+c",
			Secondary: "q",
			Help:      "Stop playback and quit",
		},
	},
	{
		Action: ActionToggleHelp,
		KeyMap: KeyMap{
			Primary:   "ctrl+h",
			Secondary: "?",
			Help:      "Toggle help screen",
		},
	},
	{
		Action: ActionBack,
		KeyMap: KeyMap{
			Primary: "esc",
			Help:    "Close the help screen",
		},
	},
}

// helpBindings contains key bindings specific to the help view
var helpBindings = withNavigation([]Binding{})

// monitorBindings contains key bindings specific to the event monitor
var monitorBindings = withNavigation([]Binding{
	{
		Action: ActionTogglePause,
		KeyMap: KeyMap{
			Primary:   " ",
			Secondary: "p",
			Help:      "Pause or resume playback",
		},
	},
	{
		Action: ActionSeekForward,
		KeyMap: KeyMap{
			Primary:   "right",
			Secondary: "l",
			Help:      "Seek forward",
		},
	},
	{
		Action: ActionSeekBackward,
		KeyMap: KeyMap{
			Primary:   "left",
			Secondary: "h",
			Help:      "Seek backward",
		},
	},
	{
		Action: ActionClearEvents,
		KeyMap: KeyMap{
			Primary: "c",
			Help:    "Clear the event table",
		},
	},
})

// GetActionKey returns the primary key for an action
func GetActionKey(action Action, bindings []Binding) string {
	for _, binding := range bindings {
		if binding.Action == action {
			return binding.KeyMap.Primary
		}
	}
	return ""
}

// GetBindingByKey returns the action and help text for a given key
func GetBindingByKey(key string, bindings []Binding) (Action, string) {
	for _, binding := range bindings {
		if binding.KeyMap.Primary == key || binding.KeyMap.Secondary == key {
			return binding.Action, binding.KeyMap.Help
		}
	}
	return "", ""
}

// GetActionByKey returns just the action for a given key, or an empty Action if not found
func GetActionByKey(keyMsg tea.KeyMsg, name ContextName) Action {
	if bindings, exists := ContextBindings[name]; exists {
		action, _ := GetBindingByKey(keyMsg.String(), bindings)
		return action
	}
	return ""
}

// DisplayKey renders a key the way it should read on screen
func DisplayKey(key string) string {
	if key == " " {
		return "space"
	}
	return key
}

// FormatKeyHelp formats a key binding for display in help text
func FormatKeyHelp(binding Binding) string {
	if binding.KeyMap.Secondary != "" {
		return DisplayKey(binding.KeyMap.Primary) + "/" + DisplayKey(binding.KeyMap.Secondary) + ": " + binding.KeyMap.Help
	}
	return DisplayKey(binding.KeyMap.Primary) + ": " + binding.KeyMap.Help
}

// GetHelpText generates formatted help text for a set of bindings
func GetHelpText(title string, bindings []Binding) string {
	helpText := "## " + title + "\n\n"
	for _, binding := range bindings {
		helpText += "* " + FormatKeyHelp(binding) + "\n"
	}
	return helpText
}

// withNavigation is a helper function to include navigation bindings in other binding sets
func withNavigation(bindings []Binding) []Binding {
	return append(append([]Binding{}, navigationBindings...), bindings...)
}
