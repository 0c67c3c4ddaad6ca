package keybindings

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNoDuplicateKeyBindings(t *testing.T) {
	// Check each context individually
	for contextName, bindings := range ContextBindings {
		t.Run(fmt.Sprintf("Context_%s", contextName), func(t *testing.T) {
			keyToAction := make(map[string]Action)

			for _, binding := range bindings {
				// Check primary key
				if existingAction, exists := keyToAction[binding.KeyMap.Primary]; exists {
					t.Errorf("Duplicate key binding '%s' in context '%s': "+
						"first assigned to action '%s', then to '%s'",
						binding.KeyMap.Primary, contextName, existingAction, binding.Action)
				} else {
					keyToAction[binding.KeyMap.Primary] = binding.Action
				}

				// Check secondary key if it exists
				if binding.KeyMap.Secondary != "" {
					if existingAction, exists := keyToAction[binding.KeyMap.Secondary]; exists {
						t.Errorf("Duplicate key binding '%s' in context '%s': "+
							"first assigned to action '%s', then to '%s'",
							binding.KeyMap.Secondary, contextName, existingAction, binding.Action)
					} else {
						keyToAction[binding.KeyMap.Secondary] = binding.Action
					}
				}
			}
		})
	}
}

// Global keys are checked before context keys, so a clash would make the context binding unreachable
func TestGlobalKeysDoNotShadowContextKeys(t *testing.T) {
	global := make(map[string]Action)
	for _, binding := range ContextBindings[ContextGlobal] {
		global[binding.KeyMap.Primary] = binding.Action
		if binding.KeyMap.Secondary != "" {
			global[binding.KeyMap.Secondary] = binding.Action
		}
	}

	for contextName, bindings := range ContextBindings {
		if contextName == ContextGlobal {
			continue
		}
		for _, binding := range bindings {
			for _, key := range []string{binding.KeyMap.Primary, binding.KeyMap.Secondary} {
				if key == "" {
					continue
				}
				_, clash := global[key]
				assert.False(t, clash, "key %q of %s in context %s is also a global key", key, binding.Action, contextName)
			}
		}
	}
}

func TestGetActionByKey(t *testing.T) {
	tests := []struct {
		name     string
		msg      tea.KeyMsg
		context  ContextName
		expected Action
	}{
		{"space toggles pause", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, ContextMonitor, ActionTogglePause},
		{"secondary key", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}}, ContextMonitor, ActionTogglePause},
		{"arrow seeks forward", tea.KeyMsg{Type: tea.KeyRight}, ContextMonitor, ActionSeekForward},
		{"arrow seeks backward", tea.KeyMsg{Type: tea.KeyLeft}, ContextMonitor, ActionSeekBackward},
		{"quit is global", tea.KeyMsg{Type: tea.KeyCtrlC}, ContextGlobal, ActionQuit},
		{"navigation in help", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}, ContextHelp, ActionMoveDown},
		{"unbound key", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'z'}}, ContextMonitor, ""},
		{"unknown context", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}}, ContextName("nope"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetActionByKey(tt.msg, tt.context))
		})
	}
}

func TestFormatKeyHelp(t *testing.T) {
	assert.Equal(t, "space/p: Pause or resume playback", FormatKeyHelp(Binding{
		Action: ActionTogglePause,
		KeyMap: KeyMap{Primary: " ", Secondary: "p", Help: "Pause or resume playback"},
	}))
	assert.Equal(t, "c: Clear the event table", FormatKeyHelp(Binding{
		Action: ActionClearEvents,
		KeyMap: KeyMap{Primary: "c", Help: "Clear the event table"},
	}))

	text := GetHelpText("Global", ContextBindings[ContextGlobal])
	assert.Contains(t, text, "## Global\n\n")
	assert.Contains(t, text, "* ctrl+c/q: Stop playback and quit\n")
	assert.Equal(t, "ctrl+c", GetActionKey(ActionQuit, ContextBindings[ContextGlobal]))
}
