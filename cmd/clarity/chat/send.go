package chat

// Background commands. Every closure returns exactly one typed message
// that Update reconciles against current model state; nothing in here
// touches the model directly.

import (
	"context"
	"time"

	"clarity/internal/api"
	"clarity/internal/conversation"
	"clarity/internal/logging"
	"clarity/internal/progress"
	"clarity/internal/toast"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// SEND
// =============================================================================

// sendMessage posts one exchange. The result carries the optimistic
// turn's timestamp and the send generation so a stale delivery (after
// abort and retry) can be discarded.
func (m Model) sendMessage(ctx context.Context, req api.ChatRequest, timestamp int64, generation int) tea.Cmd {
	return func() tea.Msg {
		timer := logging.StartTimer(logging.CategoryAPI, "SendMessage")
		resp, err := m.svc.SendMessage(ctx, req)
		timer.StopWithThreshold(10 * time.Second)
		return sendResultMsg{
			timestamp:  timestamp,
			generation: generation,
			resp:       resp,
			err:        err,
		}
	}
}

// stageTick schedules the next advance of the activity indicator.
func stageTick(generation int) tea.Cmd {
	return tea.Tick(progress.TickInterval, func(time.Time) tea.Msg {
		return stageTickMsg{generation: generation}
	})
}

// stageClear hides the indicator after the remaining minimum display
// time has elapsed.
func stageClear(generation int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return stageClearMsg{generation: generation}
	})
}

// =============================================================================
// BOOT / FETCH
// =============================================================================

// performBoot runs the startup fetch: last active thread id from the
// local cache, then conversation list and history in parallel.
func (m Model) performBoot() tea.Cmd {
	return func() tea.Msg {
		timer := logging.StartTimer(logging.CategoryBoot, "performBoot")
		defer timer.Stop()

		var lastID string
		if m.localDB != nil {
			id, err := m.localDB.LastConversation()
			if err != nil {
				logging.StoreError("failed to read last conversation: %v", err)
			}
			lastID = id
		}

		ctx, cancel := context.WithTimeout(m.shutdownCtx, 30*time.Second)
		defer cancel()

		data, err := api.Boot(ctx, m.svc, lastID)
		return bootCompleteMsg{data: data, lastID: lastID, err: err}
	}
}

// refreshConversations refetches the full thread index. Titles are
// assigned server-side after the first exchange, so a completed send
// triggers this rather than patching the list locally.
func (m Model) refreshConversations() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.shutdownCtx, 15*time.Second)
		defer cancel()
		convs, err := m.svc.Conversations(ctx)
		return conversationsMsg{convs: convs, err: err}
	}
}

// loadHistory fetches a thread's messages for adoption.
func (m Model) loadHistory(conversationID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.shutdownCtx, 15*time.Second)
		defer cancel()
		msgs, err := m.svc.History(ctx, conversationID)
		return historyLoadedMsg{conversationID: conversationID, messages: msgs, err: err}
	}
}

// deleteConversation removes a thread server-side.
func (m Model) deleteConversation(conversationID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.shutdownCtx, 15*time.Second)
		defer cancel()
		err := m.svc.DeleteConversation(ctx, conversationID)
		return conversationDeletedMsg{conversationID: conversationID, err: err}
	}
}

// =============================================================================
// AMBIENT LISTENERS
// =============================================================================

// waitForConnectivity blocks on the next reachability transition.
func (m Model) waitForConnectivity() tea.Cmd {
	if m.monitor == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-m.monitor.Events()
		if !ok {
			return nil
		}
		return connectivityMsg(ev)
	}
}

// waitForConfig blocks on the next live config reload.
func (m Model) waitForConfig() tea.Cmd {
	if m.cfgUpdates == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-m.cfgUpdates
		if !ok {
			return nil
		}
		return configReloadedMsg{cfg: cfg}
	}
}

// expireToasts schedules dismissal for every toast that does not have
// a timer yet. Dismissal is by id, so a timer racing a manual dismiss
// is harmless.
func (m *Model) expireToasts() tea.Cmd {
	var cmds []tea.Cmd
	for _, t := range m.toasts.Active() {
		id := t.ID
		if m.scheduledToasts == nil {
			m.scheduledToasts = make(map[int]bool)
		}
		if m.scheduledToasts[id] {
			continue
		}
		m.scheduledToasts[id] = true
		cmds = append(cmds, tea.Tick(toast.TTL, func(time.Time) tea.Msg {
			return toastExpiredMsg{id: id}
		}))
	}
	return tea.Batch(cmds...)
}

// listen restarts speech recognition and delivers the utterance.
func (m Model) listen() tea.Cmd {
	if !m.recognizer.Available() {
		return nil
	}
	return func() tea.Msg {
		text, err := m.recognizer.Listen(m.shutdownCtx)
		return speechResultMsg{text: text, err: err}
	}
}

// speak voices an assistant reply when synthesis is enabled.
func (m Model) speak(msg conversation.Message) tea.Cmd {
	if !m.speaker.Available() || msg.Role != conversation.RoleAssistant {
		return nil
	}
	return func() tea.Msg {
		if err := m.speaker.Speak(m.shutdownCtx, msg.Content); err != nil {
			logging.UIDebug("speech synthesis failed: %v", err)
		}
		return nil
	}
}
