// Package chat provides the interactive TUI for the clarity coaching
// client: the message lifecycle, the staged activity indicator, the
// conversation sidebar, and the send/retry controller.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"clarity/cmd/clarity/ui"
	"clarity/internal/api"
	"clarity/internal/config"
	"clarity/internal/connectivity"
	"clarity/internal/conversation"
	"clarity/internal/layout"
	"clarity/internal/logging"
	"clarity/internal/speech"
	"clarity/internal/store"
	"clarity/internal/toast"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const inputPlaceholder = "What's on your mind? (Enter to send, Alt+Enter for newline, Ctrl+C to exit)"

// =============================================================================
// MODEL CONSTRUCTION
// =============================================================================

// InitChat assembles the model with real backend wiring.
func InitChat(cfg Config) Model {
	userCfg := cfg.UserConfig

	client := api.NewClient(userCfg.GetAPIURL(), userCfg.UserID)

	var localDB *store.LocalStore
	if path, err := store.DefaultPath(); err == nil {
		if db, err := store.NewLocalStore(path); err == nil {
			localDB = db
		} else {
			logging.StoreError("local cache unavailable: %v", err)
		}
	}

	m := newModel(userCfg, client, localDB)
	m.isBooting = true
	m.monitor = connectivity.New(connectivity.HTTPProbe(userCfg.GetAPIURL()+"/api/health"), connectivity.ProbeInterval)
	go m.monitor.Run(m.shutdownCtx)

	if cfg.ConfigPath != "" {
		if updates, err := config.Watch(m.shutdownCtx, cfg.ConfigPath); err == nil {
			m.cfgUpdates = updates
		} else {
			logging.Boot("config watch disabled: %v", err)
		}
	}

	if history, err := loadInputHistory(localDB); err == nil {
		m.inputHistory = history
		m.historyIndex = len(history)
	}

	return m
}

// newModel builds the model around an injected service, which is what
// tests use to avoid the network.
func newModel(userCfg *config.UserConfig, svc Service, localDB *store.LocalStore) Model {
	ta := textarea.New()
	ta.Placeholder = inputPlaceholder
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	lst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	lst.Title = "Conversations"
	lst.SetShowStatusBar(false)

	pal := list.New(paletteItems(), list.NewDefaultDelegate(), 0, 0)
	pal.Title = "Commands"
	pal.SetShowStatusBar(false)

	styles := ui.NewStyles(ui.ThemeFromName(userCfg.GetTheme()))
	sp.Style = styles.Spinner

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		textarea:       ta,
		viewport:       vp,
		spinner:        sp,
		list:           lst,
		palette:        pal,
		styles:         styles,
		renderer:       renderer,
		viewMode:       ChatView,
		session:        conversation.NewSession(),
		sidebar:        layout.New(),
		online:         true,
		fastMode:       userCfg.FastMode,
		searchMode:     userCfg.SearchMode,
		Config:         userCfg,
		svc:            svc,
		localDB:        localDB,
		recognizer:     speech.Noop{},
		speaker:        speech.Noop{},
		shutdownOnce:   &sync.Once{},
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}
}

func loadInputHistory(db *store.LocalStore) ([]string, error) {
	if db == nil {
		return nil, nil
	}
	newest, err := db.InputHistory(50)
	if err != nil {
		return nil, err
	}
	// Store returns newest first; recall walks oldest to newest.
	history := make([]string, 0, len(newest))
	for i := len(newest) - 1; i >= 0; i-- {
		history = append(history, newest[i])
	}
	return history, nil
}

// Shutdown stops background goroutines and releases resources.
// Safe to call multiple times.
func (m *Model) Shutdown() {
	m.shutdownOnce.Do(func() {
		logging.UI("shutting down")
		m.shutdownCancel()
		if m.localDB != nil {
			if id := m.session.ActiveID(); id != "" {
				if err := m.localDB.SetLastConversation(id); err != nil {
					logging.StoreError("failed to persist last conversation: %v", err)
				}
			}
			m.localDB.Close()
		}
		logging.CloseAll()
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		tea.EnableMouseCellMotion,
		m.performBoot(),
		m.waitForConnectivity(),
		m.waitForConfig(),
	)
}

// =============================================================================
// SUBMIT / RETRY
// =============================================================================

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}

	// Special commands
	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	// One exchange at a time
	if m.inflight != nil {
		return m, nil
	}

	// Offline sends are rejected outright; the draft stays in the
	// composer instead of becoming a doomed pending turn.
	if !m.online {
		m.toasts.Push(toast.Error, "You're offline. Try again once the connection returns.")
		return m, m.expireToasts()
	}

	now := time.Now()
	user := conversation.NewUserMessage(input, now)
	m.session.Append(user)
	logging.Session("user turn appended ts=%d", user.Timestamp)

	// Input history recall
	if len(m.inputHistory) == 0 || m.inputHistory[len(m.inputHistory)-1] != input {
		m.inputHistory = append(m.inputHistory, input)
		if m.localDB != nil {
			if err := m.localDB.AppendInput(input); err != nil {
				logging.StoreError("failed to record input: %v", err)
			}
		}
	}
	m.historyIndex = len(m.inputHistory)

	m.textarea.Reset()
	m.syncViewport()

	return m.startSend(user, now)
}

// startSend arms the in-flight machinery for a pending user turn. The
// turn must already be in the session with status sending.
func (m Model) startSend(user conversation.Message, now time.Time) (tea.Model, tea.Cmd) {
	gen := m.stages.Start(now)
	m.isLoading = true

	ctx, cancel := context.WithCancel(m.shutdownCtx)
	m.inflight = &inflightSend{
		timestamp:  user.Timestamp,
		generation: gen,
		cancel:     cancel,
	}

	req := api.ChatRequest{
		Message:        user.Content,
		ConversationID: m.session.ActiveID(),
		NewChat:        m.session.ConsumeForceNew(),
		FastMode:       m.fastMode,
		SearchMode:     m.searchMode,
	}

	return m, tea.Batch(
		m.spinner.Tick,
		m.sendMessage(ctx, req, user.Timestamp, gen),
		stageTick(gen),
	)
}

// handleRetry resends the most recent failed turn in place.
func (m Model) handleRetry() (tea.Model, tea.Cmd) {
	if m.inflight != nil {
		return m, nil
	}
	failed, ok := m.session.LastFailed()
	if !ok {
		return m, nil
	}
	if !m.online {
		m.toasts.Push(toast.Error, "Still offline. Retry once the connection returns.")
		return m, m.expireToasts()
	}

	now := time.Now()
	retried, err := m.session.Retry(failed.Timestamp, now)
	if err != nil {
		logging.SessionWarn("retry rejected: %v", err)
		return m, nil
	}
	logging.Session("retrying turn ts=%d", retried.Timestamp)

	// A failed first turn of a new thread never reached the server, so
	// the resend must still open a new conversation.
	if m.session.ActiveID() == "" {
		m.session.ArmForceNew()
	}

	m.syncViewport()

	return m.startSend(retried, now)
}

// handleAbort cancels the in-flight send. The pending turn fails into
// a retryable slot without an error notification.
func (m Model) handleAbort() (tea.Model, tea.Cmd) {
	if m.inflight == nil {
		return m, nil
	}
	logging.Session("aborting in-flight send ts=%d", m.inflight.timestamp)
	m.inflight.cancel()
	return m, nil
}

// =============================================================================
// THREAD SWITCHING
// =============================================================================

// startNewChat clears the screen and arms the next send to open a
// fresh server-side thread.
func (m Model) startNewChat() (tea.Model, tea.Cmd) {
	if m.inflight != nil {
		// Settle or abort first; swapping threads mid-send would strand
		// the reconciliation target.
		m.toasts.Push(toast.Info, "Wait for the current reply or press Ctrl+X to cancel it")
		return m, m.expireToasts()
	}
	m.session.StartNew()
	m.stages.Reset()
	m.insights.Reset()
	m.lastSignals = nil
	m.viewport.SetContent(m.renderHistory())
	logging.Session("started new conversation")
	return m, nil
}

// syncViewport re-renders the history after a message mutation. The
// scroll position only follows when the viewer was already at the
// bottom; someone reading older messages keeps their place.
func (m *Model) syncViewport() {
	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderHistory())
	if follow {
		m.viewport.GotoBottom()
	}
}

// adoptConversation loads a thread from the sidebar selection.
func (m Model) adoptConversation(id string) (tea.Model, tea.Cmd) {
	if m.inflight != nil {
		m.toasts.Push(toast.Info, "Wait for the current reply or press Ctrl+X to cancel it")
		return m, m.expireToasts()
	}
	m.viewMode = ChatView
	return m, tea.Batch(m.spinner.Tick, m.loadHistory(id))
}

// =============================================================================
// PROGRAM ENTRY
// =============================================================================

// RunInteractiveChat starts the interactive chat session
func RunInteractiveChat(cfg Config) error {
	model := InitChat(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
