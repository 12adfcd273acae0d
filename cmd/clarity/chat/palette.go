// Slash commands and transcript export.
package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clarity/internal/conversation"
	"clarity/internal/logging"
	"clarity/internal/toast"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	m.textarea.Reset()

	switch cmd {
	case "/new":
		return m.startNewChat()

	case "/history":
		m.viewMode = HistoryView
		m.refreshListItems()
		return m, nil

	case "/fast":
		m.fastMode = !m.fastMode
		mode := "thorough"
		if m.fastMode {
			mode = "fast"
		}
		m.toasts.Push(toast.Info, "Response mode: "+mode)
		return m, m.expireToasts()

	case "/search":
		m.searchMode = !m.searchMode
		state := "off"
		if m.searchMode {
			state = "on"
		}
		m.toasts.Push(toast.Info, "Search mode "+state)
		return m, m.expireToasts()

	case "/export":
		return m, m.exportTranscript()

	case "/retry":
		return m.handleRetry()

	case "/help":
		help := strings.Join([]string{
			"Commands: /new /history /fast /search /export /retry /quit",
			"Keys: Ctrl+N new | Ctrl+L history | Ctrl+K palette | Ctrl+R retry",
			"      Ctrl+X cancel | Ctrl+B sidebar | Ctrl+G insights | Ctrl+F fast",
			"      Ctrl+E export | Ctrl+T voice",
		}, "\n")
		m.session.Append(conversation.NewSystemMessage(help, time.Now()))
		m.syncViewport()
		return m, nil

	case "/quit", "/exit":
		m.Shutdown()
		return m, tea.Quit

	default:
		m.toasts.Push(toast.Error, "Unknown command: "+cmd+" (try /help)")
		return m, m.expireToasts()
	}
}

// =============================================================================
// COMMAND PALETTE
// =============================================================================

func paletteItems() []list.Item {
	return []list.Item{
		paletteItem{name: "New conversation", hint: "Start a fresh thread", action: actionNewChat},
		paletteItem{name: "Conversation history", hint: "Browse and reopen past threads", action: actionHistory},
		paletteItem{name: "Toggle sidebar", hint: "Show or hide the thread list", action: actionToggleSidebar},
		paletteItem{name: "Toggle insights", hint: "Show or hide the signal readout", action: actionToggleInsights},
		paletteItem{name: "Toggle fast mode", hint: "Trade depth for speed", action: actionToggleFast},
		paletteItem{name: "Toggle search mode", hint: "Let the coach pull in outside material", action: actionToggleSearch},
		paletteItem{name: "Export transcript", hint: "Save this conversation as markdown", action: actionExport},
		paletteItem{name: "Retry last message", hint: "Resend the most recent failed turn", action: actionRetry},
		paletteItem{name: "Quit", hint: "Leave clarity", action: actionQuit},
	}
}

func (m Model) runPaletteAction(action paletteAction) (tea.Model, tea.Cmd) {
	switch action {
	case actionNewChat:
		return m.startNewChat()
	case actionHistory:
		m.viewMode = HistoryView
		m.refreshListItems()
		return m, nil
	case actionToggleSidebar:
		m.sidebar = m.sidebar.Toggle()
		return m.relayout()
	case actionToggleInsights:
		m.sidebar = m.sidebar.ToggleInsights()
		return m, nil
	case actionToggleFast:
		m.fastMode = !m.fastMode
		mode := "thorough"
		if m.fastMode {
			mode = "fast"
		}
		m.toasts.Push(toast.Info, "Response mode: "+mode)
		return m, m.expireToasts()
	case actionToggleSearch:
		m.searchMode = !m.searchMode
		state := "off"
		if m.searchMode {
			state = "on"
		}
		m.toasts.Push(toast.Info, "Search mode "+state)
		return m, m.expireToasts()
	case actionExport:
		return m, m.exportTranscript()
	case actionRetry:
		return m.handleRetry()
	case actionQuit:
		m.Shutdown()
		return m, tea.Quit
	default:
		return m, nil
	}
}

// =============================================================================
// TRANSCRIPT EXPORT
// =============================================================================

// exportTranscript writes the current conversation as markdown under
// ~/.clarity/exports.
func (m Model) exportTranscript() tea.Cmd {
	msgs := m.session.Messages()
	title := m.activeTitle()

	return func() tea.Msg {
		if len(msgs) == 0 {
			return exportDoneMsg{err: fmt.Errorf("nothing to export")}
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return exportDoneMsg{err: fmt.Errorf("failed to resolve home directory: %w", err)}
		}
		dir := filepath.Join(home, ".clarity", "exports")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return exportDoneMsg{err: fmt.Errorf("failed to create export directory: %w", err)}
		}

		path := filepath.Join(dir, fmt.Sprintf("transcript-%s.md", time.Now().Format("2006-01-02-150405")))
		if err := os.WriteFile(path, []byte(formatTranscript(title, msgs)), 0644); err != nil {
			return exportDoneMsg{err: fmt.Errorf("failed to write transcript: %w", err)}
		}

		logging.UI("exported %d messages to %s", len(msgs), path)
		return exportDoneMsg{path: path}
	}
}

func formatTranscript(title string, msgs []conversation.Message) string {
	var sb strings.Builder
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString("Exported " + time.Now().Format("January 2, 2006 15:04") + "\n\n")

	for _, msg := range msgs {
		if msg.System {
			continue
		}
		when := time.UnixMilli(msg.Timestamp).Format("15:04")
		switch msg.Role {
		case conversation.RoleUser:
			sb.WriteString(fmt.Sprintf("## You (%s)\n\n%s\n\n", when, msg.Content))
		default:
			sb.WriteString(fmt.Sprintf("## Coach (%s)\n\n%s\n\n", when, msg.Content))
		}
	}
	return sb.String()
}
