// Test utilities for the chat package: a mock backend service and a
// model builder with safe defaults.
package chat

import (
	"context"
	"sync"
	"testing"

	"clarity/cmd/clarity/ui"
	"clarity/internal/api"
	"clarity/internal/config"
	"clarity/internal/conversation"
	"clarity/internal/layout"
	"clarity/internal/speech"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MOCK SERVICE
// =============================================================================

// MockService simulates the coaching backend for testing.
type MockService struct {
	mu sync.Mutex

	response    *api.ChatResponse
	sendErr     error
	sendCalls   []api.ChatRequest
	sendBlockCh chan struct{}

	conversations []conversation.Conversation
	listErr       error

	histories  map[string][]conversation.Message
	historyErr error

	deleted   []string
	deleteErr error
}

// NewMockService creates a mock with a plain default reply.
func NewMockService() *MockService {
	return &MockService{
		response: &api.ChatResponse{
			Response:       "Mock coach reply",
			ConversationID: "conv-1",
		},
		histories: make(map[string][]conversation.Message),
	}
}

// SendMessage records the request and returns the configured response.
// If a block channel is set, it waits until that channel closes or the
// context is cancelled, simulating a slow backend.
func (m *MockService) SendMessage(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	m.mu.Lock()
	m.sendCalls = append(m.sendCalls, req)
	block := m.sendBlockCh
	resp, err := m.response, m.sendErr
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (m *MockService) Conversations(_ context.Context) ([]conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]conversation.Conversation, len(m.conversations))
	copy(result, m.conversations)
	return result, nil
}

func (m *MockService) History(_ context.Context, conversationID string) ([]conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.histories[conversationID], nil
}

func (m *MockService) DeleteConversation(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, conversationID)
	return nil
}

// SetResponse configures the reply returned by SendMessage.
func (m *MockService) SetResponse(resp *api.ChatResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = resp
}

// SetSendError configures SendMessage to fail.
func (m *MockService) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// BlockSends makes SendMessage hang until the returned release func is
// called.
func (m *MockService) BlockSends() func() {
	ch := make(chan struct{})
	m.mu.Lock()
	m.sendBlockCh = ch
	m.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// SetConversations seeds the thread index.
func (m *MockService) SetConversations(convs []conversation.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = convs
}

// SetHistory seeds the message history for a thread.
func (m *MockService) SetHistory(conversationID string, msgs []conversation.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[conversationID] = msgs
}

// SendCalls returns every request passed to SendMessage.
func (m *MockService) SendCalls() []api.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]api.ChatRequest, len(m.sendCalls))
	copy(result, m.sendCalls)
	return result
}

// Deleted returns the ids passed to DeleteConversation.
func (m *MockService) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.deleted))
	copy(result, m.deleted)
	return result
}

// =============================================================================
// TEST MODEL BUILDER
// =============================================================================

// TestModelOption configures a test model.
type TestModelOption func(*Model)

// NewTestModel creates a minimal Model suitable for testing.
// It initializes all required fields with lightweight defaults and a
// MockService backend.
func NewTestModel(opts ...TestModelOption) Model {
	ta := textarea.New()
	ta.Placeholder = "Test input..."
	ta.SetWidth(80)
	ta.SetHeight(3)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	lst := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	lst.Title = "Conversations"
	lst.SetShowStatusBar(false)

	pal := list.New(paletteItems(), list.NewDefaultDelegate(), 80, 20)
	pal.Title = "Commands"
	pal.SetShowStatusBar(false)

	ctx, cancel := context.WithCancel(context.Background())

	userCfg := &config.UserConfig{UserID: "test-user"}

	m := Model{
		textarea:        ta,
		viewport:        vp,
		spinner:         sp,
		list:            lst,
		palette:         pal,
		styles:          ui.DefaultStyles(),
		viewMode:        ChatView,
		session:         conversation.NewSession(),
		sidebar:         layout.New(),
		online:          true,
		ready:           true,
		width:           100,
		height:          50,
		Config:          userCfg,
		lastSignals:     map[string]float64{},
		scheduledToasts: make(map[int]bool),
		svc:             NewMockService(),
		recognizer:      speech.Noop{},
		speaker:         speech.Noop{},
		shutdownOnce:    &sync.Once{},
		shutdownCtx:     ctx,
		shutdownCancel:  cancel,
	}

	// Renderer creation may fail in a bare test environment; plain
	// text fallback covers that.
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	m.renderer = renderer

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// WithService sets the backend service.
func WithService(svc Service) TestModelOption {
	return func(m *Model) {
		m.svc = svc
	}
}

// WithBooting sets the model to booting state.
func WithBooting(booting bool) TestModelOption {
	return func(m *Model) {
		m.isBooting = booting
		m.ready = !booting
	}
}

// WithViewMode sets the view mode.
func WithViewMode(mode ViewMode) TestModelOption {
	return func(m *Model) {
		m.viewMode = mode
	}
}

// WithMessages seeds the active session.
func WithMessages(msgs ...conversation.Message) TestModelOption {
	return func(m *Model) {
		for _, msg := range msgs {
			m.session.Append(msg)
		}
	}
}

// WithConversations seeds the thread index.
func WithConversations(convs ...conversation.Conversation) TestModelOption {
	return func(m *Model) {
		m.conversations = convs
	}
}

// WithSize sets the terminal dimensions.
func WithSize(width, height int) TestModelOption {
	return func(m *Model) {
		m.width = width
		m.height = height
		m.viewport = viewport.New(width, height-10)
		m.textarea.SetWidth(width - 4)
	}
}

// WithOnline sets connectivity state.
func WithOnline(online bool) TestModelOption {
	return func(m *Model) {
		m.online = online
	}
}

// WithFastMode sets the response mode.
func WithFastMode(fast bool) TestModelOption {
	return func(m *Model) {
		m.fastMode = fast
	}
}

// =============================================================================
// INPUT HELPERS
// =============================================================================

// MakeKeyMsg builds a key message for a named key or a rune sequence.
func MakeKeyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+b":
		return tea.KeyMsg{Type: tea.KeyCtrlB}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyCtrlF}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

// SimulateInput types text into the model's textarea and submits it.
func SimulateInput(m Model, text string) (Model, tea.Cmd) {
	m.textarea.SetValue(text)
	next, cmd := m.handleSubmit()
	return next.(Model), cmd
}

// execMsg runs a command tree synchronously and returns the first
// message satisfying match, or nil. Tick commands in the tree sleep
// for their interval before producing anything.
func execMsg(cmd tea.Cmd, match func(tea.Msg) bool) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if found := execMsg(c, match); found != nil {
				return found
			}
		}
		return nil
	}
	if match(msg) {
		return msg
	}
	return nil
}

// execSendResult runs a command tree until the send settles.
func execSendResult(t *testing.T, cmd tea.Cmd) sendResultMsg {
	t.Helper()
	msg := execMsg(cmd, func(m tea.Msg) bool {
		_, ok := m.(sendResultMsg)
		return ok
	})
	if msg == nil {
		t.Fatal("command tree produced no send result")
	}
	return msg.(sendResultMsg)
}
