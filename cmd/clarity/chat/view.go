// View rendering for the chat TUI: history, header, footer, sidebar,
// toasts, and the boot screen.
package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"clarity/internal/conversation"
	"clarity/internal/toast"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// VIEW RENDERING
// =============================================================================

func (m Model) renderHistory() string {
	msgs := m.session.Messages()
	if len(msgs) == 0 {
		return m.renderEmptyState()
	}

	var sb strings.Builder
	for _, msg := range msgs {
		switch {
		case msg.System:
			sb.WriteString(m.styles.SystemNote.Render(msg.Content))
			sb.WriteString("\n\n")

		case msg.Role == conversation.RoleUser:
			userStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Primary).
				MarginTop(1)
			sb.WriteString(userStyle.Render("You") + m.renderStatusTag(msg) + "\n")
			sb.WriteString(m.styles.UserMessage.Render(msg.Content))
			sb.WriteString("\n\n")
			if msg.Thinking != nil {
				sb.WriteString(m.renderThinking(msg.Thinking))
			}

		default: // assistant
			coachStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Accent).
				MarginTop(1)
			sb.WriteString(coachStyle.Render("Coach") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.Content))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func (m Model) renderEmptyState() string {
	title := m.styles.Title.Render("What's on your mind today?")
	hint := m.styles.Muted.Render("Describe what you're working through. Ctrl+L opens past conversations.")
	return lipgloss.JoinVertical(lipgloss.Left, "", title, hint)
}

// renderStatusTag marks pending and failed user turns inline.
func (m Model) renderStatusTag(msg conversation.Message) string {
	switch msg.Status {
	case conversation.StatusSending:
		return " " + m.styles.Pending.Render("sending...")
	case conversation.StatusError:
		return " " + m.styles.Failed.Render("failed - Ctrl+R to retry")
	default:
		return ""
	}
}

// renderThinking shows the staged diagnostic text while a turn is in
// flight.
func (m Model) renderThinking(t *conversation.Thinking) string {
	var sb strings.Builder
	for _, line := range []string{t.Observation, t.Pattern, t.Evaluation} {
		if line != "" {
			sb.WriteString(m.styles.Muted.Render("  · "+line) + "\n")
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return sb.String() + "\n"
}

// safeRenderMarkdown renders markdown with panic recovery
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If glamour panics, return plain text
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

func (m Model) View() string {
	if !m.ready && !m.isBooting {
		return "Initializing..."
	}

	if m.isBooting {
		return m.renderBootScreen()
	}

	if m.viewMode == HistoryView {
		return m.styles.Content.Render(m.list.View())
	}
	if m.viewMode == PaletteView {
		return m.styles.Content.Render(m.palette.View())
	}

	header := m.renderHeader()

	chatView := m.styles.Content.Render(m.viewport.View())
	if m.sidebar.Visible() {
		side := m.renderSidebar()
		chatView = lipgloss.JoinHorizontal(lipgloss.Top, side, chatView)
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)
	inputArea := inputStyle.Render(m.textarea.View())

	footer := m.renderFooter()

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chatView,
		inputArea,
		footer,
	)

	if toasts := m.renderToasts(); toasts != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, toasts, view)
	}
	return view
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" clarity ")

	var status string
	switch {
	case !m.online:
		status = m.styles.Offline.Render("OFFLINE")
	case m.isLoading:
		label := m.stages.Stage().String()
		if label == "" {
			label = "Thinking"
		}
		status = lipgloss.JoinHorizontal(lipgloss.Center,
			m.spinner.View(), " ", m.styles.StageLabel.Render(label+"..."))
	default:
		status = m.styles.Success.Render("Ready")
	}

	conv := m.styles.Muted.Render(" " + m.activeTitle())

	headerLine := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		conv,
		m.styles.RenderDivider(m.width),
	)
}

func (m Model) activeTitle() string {
	id := m.session.ActiveID()
	if id == "" {
		return "New Conversation"
	}
	for _, c := range m.conversations {
		if c.ID == id {
			return c.DisplayTitle()
		}
	}
	return "Conversation"
}

func (m Model) renderFooter() string {
	mode := "thorough"
	if m.fastMode {
		mode = "fast"
	}
	if m.searchMode {
		mode += "+search"
	}

	signalIndicator := ""
	if len(m.lastSignals) > 0 {
		signalIndicator = " | " + m.renderSignals()
	}

	hotkeys := "Ctrl+K: commands | Ctrl+N: new | Ctrl+L: history | Ctrl+B: sidebar | Ctrl+E: export"
	if m.isLoading {
		hotkeys = "Ctrl+X: CANCEL | " + hotkeys
	}

	timestamp := time.Now().Format("15:04")
	help := m.styles.Muted.Render(fmt.Sprintf("[%s]%s | %s | %s", mode, signalIndicator, timestamp, hotkeys))
	return lipgloss.NewStyle().MarginTop(1).Render(help)
}

// renderSignals summarizes the latest coaching signal readout.
func (m Model) renderSignals() string {
	keys := make([]string, 0, len(m.lastSignals))
	for k := range m.lastSignals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", k, m.lastSignals[k]*100))
	}
	return m.styles.SignalBadge.Render(strings.Join(parts, "  "))
}

func (m Model) renderSidebar() string {
	width := m.sidebar.Cells()
	var sb strings.Builder

	groups := conversation.GroupByAge(m.conversations, time.Now())
	for _, label := range conversation.GroupOrder {
		convs := groups[label]
		if len(convs) == 0 {
			continue
		}
		sb.WriteString(m.styles.SidebarGroup.Render(label) + "\n")
		for _, c := range convs {
			title := c.DisplayTitle()
			if len(title) > width-2 && width > 5 {
				title = title[:width-5] + "..."
			}
			style := m.styles.SidebarItem
			if c.ID == m.session.ActiveID() {
				style = m.styles.SidebarSelected
			}
			sb.WriteString(style.Render(title) + "\n")
		}
	}
	if sb.Len() == 0 {
		sb.WriteString(m.styles.Muted.Render("No conversations yet"))
	}

	if m.sidebar.InsightsVisible() {
		sb.WriteString("\n" + m.renderInsights())
	}

	return m.styles.Sidebar.
		Width(width).
		Height(m.viewport.Height).
		Render(sb.String())
}

// renderInsights shows the running signal readout for the active
// thread.
func (m Model) renderInsights() string {
	var sb strings.Builder
	sb.WriteString(m.styles.SidebarGroup.Render("Insights") + "\n")
	sb.WriteString(m.styles.SidebarItem.Render(fmt.Sprintf("Clarity score: %d", m.insights.Score())) + "\n")

	patterns := m.insights.Patterns()
	if len(patterns) == 0 {
		sb.WriteString(m.styles.Muted.Render("No patterns detected yet"))
		return sb.String()
	}
	for _, p := range patterns {
		sb.WriteString(m.styles.SidebarItem.Render("· "+p) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderToasts() string {
	active := m.toasts.Active()
	if len(active) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(active))
	for _, t := range active {
		style := m.styles.ToastInfo
		switch t.Kind {
		case toast.Success:
			style = m.styles.ToastSuccess
		case toast.Error:
			style = m.styles.ToastError
		}
		rendered = append(rendered, style.Render(t.Message))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}

func (m Model) renderBootScreen() string {
	spin := m.spinner.View()
	title := m.styles.Header.Render(" clarity ")
	subtitle := m.styles.Subtitle.Render("Loading your conversations...")

	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, title, "", spin+" "+subtitle),
	)
}
