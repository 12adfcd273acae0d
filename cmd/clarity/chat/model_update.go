package chat

import (
	"fmt"
	"time"

	"clarity/cmd/clarity/ui"
	"clarity/internal/api"
	"clarity/internal/conversation"
	"clarity/internal/layout"
	"clarity/internal/logging"
	"clarity/internal/toast"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global Keybindings
		switch msg.Type {
		case tea.KeyCtrlC:
			m.Shutdown()
			return m, tea.Quit
		case tea.KeyEsc:
			if m.viewMode != ChatView {
				m.viewMode = ChatView
				return m, nil
			}
			m.Shutdown()
			return m, tea.Quit
		}

		// Palette View Handling
		if m.viewMode == PaletteView {
			if msg.Type == tea.KeyCtrlK {
				m.viewMode = ChatView
				return m, nil
			}
			// While the filter input is focused, every key belongs to it.
			if m.palette.FilterState() != list.Filtering && msg.Type == tea.KeyEnter {
				if item, ok := m.palette.SelectedItem().(paletteItem); ok {
					m.viewMode = ChatView
					return m.runPaletteAction(item.action)
				}
				return m, nil
			}
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}

		// History View Handling
		if m.viewMode == HistoryView {
			// While the filter input is focused, every key belongs to
			// it; "d" must filter, not delete.
			if m.list.FilterState() == list.Filtering {
				var cmd tea.Cmd
				m.list, cmd = m.list.Update(msg)
				return m, cmd
			}
			switch msg.String() {
			case "enter":
				if item, ok := m.list.SelectedItem().(conversationItem); ok {
					return m.adoptConversation(item.conv.ID)
				}
				return m, nil
			case "d":
				if item, ok := m.list.SelectedItem().(conversationItem); ok {
					return m, m.deleteConversation(item.conv.ID)
				}
				return m, nil
			}
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		// Chat View Handling
		switch msg.Type {
		case tea.KeyEnter:
			// Alt+Enter inserts a newline
			if msg.Alt {
				break
			}
			return m.handleSubmit()

		case tea.KeyUp:
			// History Previous (if at top line)
			if m.textarea.Line() == 0 {
				if m.historyIndex > 0 {
					m.historyIndex--
					m.textarea.SetValue(m.inputHistory[m.historyIndex])
					m.textarea.CursorEnd()
				}
				return m, nil
			}

		case tea.KeyDown:
			// History Next (if at bottom line)
			if m.textarea.Line() == m.textarea.LineCount()-1 {
				if m.historyIndex < len(m.inputHistory) {
					m.historyIndex++
					if m.historyIndex == len(m.inputHistory) {
						m.textarea.SetValue("")
					} else {
						m.textarea.SetValue(m.inputHistory[m.historyIndex])
						m.textarea.CursorEnd()
					}
				}
				return m, nil
			}

		case tea.KeyCtrlN:
			return m.startNewChat()

		case tea.KeyCtrlR:
			return m.handleRetry()

		case tea.KeyCtrlX:
			return m.handleAbort()

		case tea.KeyCtrlL:
			m.viewMode = HistoryView
			m.refreshListItems()
			return m, nil

		case tea.KeyCtrlB:
			m.sidebar = m.sidebar.Toggle()
			return m.relayout()

		case tea.KeyCtrlK:
			m.viewMode = PaletteView
			m.palette.ResetFilter()
			return m, nil

		case tea.KeyCtrlG:
			m.sidebar = m.sidebar.ToggleInsights()
			return m, nil

		case tea.KeyCtrlF:
			m.fastMode = !m.fastMode
			label := "Fast mode off"
			if m.fastMode {
				label = "Fast mode on"
			}
			m.toasts.Push(toast.Info, label)
			return m, m.expireToasts()

		case tea.KeyCtrlE:
			return m, m.exportTranscript()

		case tea.KeyCtrlT:
			return m, m.listen()

		case tea.KeyPgUp, tea.KeyPgDown:
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

		// Anything else is composer input. The viewport must not see
		// raw keys or typing letters would scroll the history.
		if !m.isLoading {
			m.textarea, tiCmd = m.textarea.Update(msg)
		}
		return m, tiCmd

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m.relayout()

	case spinner.TickMsg:
		if m.isLoading || m.isBooting {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case bootCompleteMsg:
		return m.handleBootComplete(msg)

	case sendResultMsg:
		return m.handleSendResult(msg)

	case stageTickMsg:
		if m.stages.Advance(msg.generation) {
			return m, stageTick(msg.generation)
		}
		return m, nil

	case stageClearMsg:
		if msg.generation == m.stages.Generation() {
			m.stages.Reset()
			m.session.ClearThinking()
			m.syncViewport()
		}
		return m, nil

	case toastExpiredMsg:
		m.toasts.Dismiss(msg.id)
		delete(m.scheduledToasts, msg.id)
		return m, nil

	case connectivityMsg:
		m.online = msg.Online
		if msg.Online {
			logging.Connectivity("back online")
			m.toasts.Push(toast.Success, "Back online")
		} else {
			logging.Connectivity("connection lost")
			m.toasts.Push(toast.Error, "You're offline. Messages will fail until the connection returns.")
		}
		return m, tea.Batch(m.expireToasts(), m.waitForConnectivity())

	case configReloadedMsg:
		if msg.cfg != nil {
			m.Config = msg.cfg
			m.styles = ui.NewStyles(ui.ThemeFromName(msg.cfg.GetTheme()))
			m.spinner.Style = m.styles.Spinner
			m.fastMode = msg.cfg.FastMode
			m.toasts.Push(toast.Info, "Settings reloaded")
		}
		return m, tea.Batch(m.expireToasts(), m.waitForConfig())

	case conversationsMsg:
		if msg.err != nil {
			logging.APIError("conversation refresh failed: %v", msg.err)
			return m, nil
		}
		m.conversations = msg.convs
		m.cacheConversations()
		m.refreshListItems()
		return m, nil

	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case conversationDeletedMsg:
		return m.handleConversationDeleted(msg)

	case exportDoneMsg:
		if msg.err != nil {
			m.toasts.Push(toast.Error, "Export failed: "+msg.err.Error())
		} else {
			m.toasts.Push(toast.Success, "Transcript saved to "+msg.path)
		}
		return m, m.expireToasts()

	case speechResultMsg:
		if msg.err == nil && msg.text != "" {
			m.textarea.SetValue(msg.text)
			m.textarea.CursorEnd()
		}
		return m, nil
	}

	// Forward remaining messages to the components that animate
	if m.viewMode == ChatView {
		m.textarea, tiCmd = m.textarea.Update(msg)
	}
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleBootComplete(msg bootCompleteMsg) (tea.Model, tea.Cmd) {
	m.isBooting = false
	m.ready = true

	var cmds []tea.Cmd
	if msg.err != nil {
		logging.BootError("startup fetch failed: %v", msg.err)
		m.online = false
		m.toasts.Push(toast.Error, "Couldn't reach the coach. Showing cached conversations.")
		cmds = append(cmds, m.expireToasts())

		// Cached index keeps the sidebar useful while offline.
		if m.localDB != nil {
			if convs, err := m.localDB.Conversations(); err == nil {
				m.conversations = convs
			}
		}
	} else {
		m.conversations = msg.data.Conversations
		m.cacheConversations()

		if msg.lastID != "" && len(msg.data.Messages) > 0 {
			m.session.Replace(msg.lastID, msg.data.Messages)
			m.insights.LoadFrom(msg.data.Messages)
			if wb, ok := conversation.WelcomeBack(msg.data.Messages, time.Now()); ok {
				m.session.Append(wb)
				logging.Session("welcome-back bridge added for %s", msg.lastID)
			}
		}
		logging.Boot("startup fetch complete: %d conversations", len(m.conversations))
	}

	m.refreshListItems()
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	return m, tea.Batch(cmds...)
}

func (m Model) handleSendResult(msg sendResultMsg) (tea.Model, tea.Cmd) {
	// A result from a superseded send (aborted then retried) must not
	// touch the current turn.
	if m.inflight == nil || msg.generation != m.inflight.generation {
		logging.SessionDebug("discarding stale send result gen=%d", msg.generation)
		return m, nil
	}
	m.inflight.cancel()
	m.inflight = nil
	m.isLoading = false

	var cmds []tea.Cmd
	if msg.err != nil {
		// A failed or cancelled turn never shows the done label; the
		// indicator drops straight back to idle.
		m.stages.Reset()
		if err := m.session.Fail(msg.timestamp); err != nil {
			logging.SessionWarn("%v", err)
		}
		if api.IsAborted(msg.err) {
			// User-cancelled: the slot stays retryable, no noise.
			logging.Session("send cancelled ts=%d", msg.timestamp)
		} else {
			logging.APIError("send failed ts=%d: %v", msg.timestamp, msg.err)
			m.err = msg.err
			m.toasts.Push(toast.Error, "Couldn't send your message. Press Ctrl+R to retry.")
			cmds = append(cmds, m.expireToasts())
		}
	} else {
		settling := false
		if owed := m.stages.Settle(time.Now()); owed > 0 {
			cmds = append(cmds, stageClear(msg.generation, owed))
			settling = true
		} else {
			m.stages.Reset()
		}

		reply := conversation.NewAssistantMessage(msg.resp.Response, msg.resp.Signals, time.Now())
		if err := m.session.Resolve(msg.timestamp, reply); err != nil {
			// Thread was swapped mid-flight; drop the orphaned reply
			// and do not adopt its conversation id either.
			logging.SessionWarn("%v", err)
		} else {
			m.err = nil
			m.lastSignals = msg.resp.Signals
			m.insights.Absorb(msg.resp.Signals)
			if settling && msg.resp.Thinking != nil {
				// The staged diagnostic text rides out the indicator's
				// minimum display window, then stageClear removes it.
				m.session.SetThinking(msg.timestamp, msg.resp.Thinking)
			}
			cmds = append(cmds, m.speak(reply))

			if id := msg.resp.ConversationID; id != "" && id != m.session.ActiveID() {
				m.session.SetActiveID(id)
				if m.localDB != nil {
					if err := m.localDB.SetLastConversation(id); err != nil {
						logging.StoreError("failed to persist last conversation: %v", err)
					}
				}
			}
		}

		// Titles arrive asynchronously server-side; a full refetch is
		// the only way to pick them up.
		cmds = append(cmds, m.refreshConversations())
	}

	m.syncViewport()
	return m, tea.Batch(cmds...)
}

func (m Model) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		logging.APIError("history load failed for %s: %v", msg.conversationID, msg.err)
		m.toasts.Push(toast.Error, "Couldn't open that conversation.")
		return m, m.expireToasts()
	}

	m.session.Replace(msg.conversationID, msg.messages)
	m.stages.Reset()
	m.insights.LoadFrom(msg.messages)
	m.lastSignals = nil
	if wb, ok := conversation.WelcomeBack(msg.messages, time.Now()); ok {
		m.session.Append(wb)
	}
	if m.localDB != nil {
		if err := m.localDB.SetLastConversation(msg.conversationID); err != nil {
			logging.StoreError("failed to persist last conversation: %v", err)
		}
	}
	logging.Session("adopted conversation %s (%d messages)", msg.conversationID, len(msg.messages))

	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleConversationDeleted(msg conversationDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		logging.APIError("delete failed for %s: %v", msg.conversationID, msg.err)
		m.toasts.Push(toast.Error, "Couldn't delete the conversation.")
		return m, m.expireToasts()
	}

	m.session.Drop(msg.conversationID)
	kept := m.conversations[:0]
	for _, c := range m.conversations {
		if c.ID != msg.conversationID {
			kept = append(kept, c)
		}
	}
	m.conversations = kept
	if m.localDB != nil {
		if err := m.localDB.DeleteConversation(msg.conversationID); err != nil {
			logging.StoreError("failed to drop cached conversation: %v", err)
		}
	}
	m.refreshListItems()
	m.viewport.SetContent(m.renderHistory())
	m.toasts.Push(toast.Success, "Conversation deleted")
	logging.Session("deleted conversation %s", msg.conversationID)
	return m, m.expireToasts()
}

// =============================================================================
// MOUSE / LAYOUT
// =============================================================================

// handleMouse implements the draggable sidebar divider.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if !m.sidebar.Visible() {
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && onDivider(msg.X, m.sidebar.Cells()) {
			m.sidebar = m.sidebar.StartResize()
		}
	case tea.MouseActionMotion:
		if m.sidebar.Resizing() {
			m.sidebar = m.sidebar.SetWidth(msg.X * layout.CellScale)
			return m.relayout()
		}
	case tea.MouseActionRelease:
		if m.sidebar.Resizing() {
			m.sidebar = m.sidebar.EndResize()
			logging.UIDebug("sidebar resized to %d units", m.sidebar.Width())
			return m.relayout()
		}
	}
	return m, nil
}

// onDivider gives the drag handle a one-cell grab tolerance.
func onDivider(x, divider int) bool {
	return x >= divider-1 && x <= divider+1
}

// relayout recomputes component dimensions after a terminal resize or
// sidebar change.
func (m Model) relayout() (tea.Model, tea.Cmd) {
	if m.width == 0 || m.height == 0 {
		return m, nil
	}

	headerHeight := 3
	footerHeight := 2
	inputHeight := 3
	paddingHeight := 2

	chatWidth := m.width - 4
	if m.sidebar.Visible() {
		chatWidth -= m.sidebar.Cells() + 1
	}
	if chatWidth < 1 {
		chatWidth = 1
	}

	calcHeight := m.height - headerHeight - footerHeight - inputHeight - paddingHeight
	if calcHeight < 1 {
		calcHeight = 1
	}

	m.viewport.Width = chatWidth
	m.viewport.Height = calcHeight
	m.textarea.SetWidth(chatWidth - 4)
	m.list.SetSize(m.width, m.height-headerHeight)
	m.palette.SetSize(m.width, m.height-headerHeight)

	// Re-wrap markdown for the new width
	if m.renderer != nil {
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(chatWidth-4),
		)
		m.viewport.SetContent(m.renderHistory())
	}

	m.ready = true
	return m, nil
}

// =============================================================================
// LIST / CACHE HELPERS
// =============================================================================

// refreshListItems rebuilds the history view from the conversation
// index, bucketed by age.
func (m *Model) refreshListItems() {
	groups := conversation.GroupByAge(m.conversations, time.Now())
	var items []list.Item
	for _, label := range conversation.GroupOrder {
		for _, c := range groups[label] {
			items = append(items, conversationItem{conv: c, group: label})
		}
	}
	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("Conversations (%d)", len(m.conversations))
}

func (m *Model) cacheConversations() {
	if m.localDB == nil {
		return
	}
	if err := m.localDB.ReplaceConversations(m.conversations); err != nil {
		logging.StoreError("failed to cache conversations: %v", err)
	}
}
