package chat

import (
	"context"
	"sync"

	"clarity/cmd/clarity/ui"
	"clarity/internal/api"
	"clarity/internal/config"
	"clarity/internal/connectivity"
	"clarity/internal/conversation"
	"clarity/internal/layout"
	"clarity/internal/progress"
	"clarity/internal/speech"
	"clarity/internal/store"
	"clarity/internal/toast"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for initializing the chat interface.
type Config struct {
	UserConfig *config.UserConfig

	// ConfigPath enables live reload when set.
	ConfigPath string
}

// Service is the backend surface the chat loop depends on. *api.Client
// implements it; tests substitute a mock.
type Service interface {
	SendMessage(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	History(ctx context.Context, conversationID string) ([]conversation.Message, error)
	Conversations(ctx context.Context) ([]conversation.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

// ViewMode determines which component is focused/active
type ViewMode int

const (
	ChatView ViewMode = iota
	HistoryView
	PaletteView
)

// inflightSend is the single permitted outstanding exchange. The
// cancel func aborts the HTTP call; generation ties progress ticks and
// the result back to this send so stale deliveries miss.
type inflightSend struct {
	timestamp  int64
	generation int
	cancel     context.CancelFunc
}

// conversationItem is a list item for the history view
type conversationItem struct {
	conv  conversation.Conversation
	group string
}

func (i conversationItem) Title() string       { return i.conv.DisplayTitle() }
func (i conversationItem) Description() string { return i.group }
func (i conversationItem) FilterValue() string { return i.conv.Title }

// paletteAction identifies a command palette entry.
type paletteAction int

const (
	actionNewChat paletteAction = iota
	actionHistory
	actionToggleSidebar
	actionToggleInsights
	actionToggleFast
	actionToggleSearch
	actionExport
	actionRetry
	actionQuit
)

// paletteItem is a list item for the command palette
type paletteItem struct {
	name   string
	hint   string
	action paletteAction
}

func (i paletteItem) Title() string       { return i.name }
func (i paletteItem) Description() string { return i.hint }
func (i paletteItem) FilterValue() string { return i.name }

// =============================================================================
// CORE TYPES
// =============================================================================

// Model is the main model for the interactive chat interface
type Model struct {
	// UI Components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	list     list.Model
	palette  list.Model
	styles   ui.Styles
	renderer *glamour.TermRenderer

	viewMode ViewMode

	// State
	session       *conversation.Session
	conversations []conversation.Conversation
	stages        progress.Sequencer
	toasts        toast.Queue
	sidebar       layout.Sidebar
	online        bool
	isLoading     bool
	fastMode      bool
	searchMode    bool
	insights      conversation.Insights
	err           error
	width         int
	height        int
	ready         bool
	Config        *config.UserConfig

	// Latest signal readout from the backend, shown in the footer
	lastSignals map[string]float64

	// In-flight send. Nil when idle; sends are single-flight.
	inflight *inflightSend

	// Toast ids with a pending expiry timer.
	scheduledToasts map[int]bool

	// Backend
	svc        Service
	localDB    *store.LocalStore
	monitor    *connectivity.Monitor
	cfgUpdates <-chan *config.UserConfig
	recognizer speech.Recognizer
	speaker    speech.Synthesizer

	// Boot State
	isBooting bool

	// Input History
	inputHistory []string
	historyIndex int

	// Shutdown coordination
	shutdownOnce   *sync.Once
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// Messages for tea updates
type (
	// bootCompleteMsg delivers the parallel startup fetch.
	bootCompleteMsg struct {
		data   *api.BootData
		lastID string
		err    error
	}

	// sendResultMsg settles one exchange. timestamp identifies the
	// optimistic user turn; generation guards against late delivery
	// after a retry restarted the send machinery.
	sendResultMsg struct {
		timestamp  int64
		generation int
		resp       *api.ChatResponse
		err        error
	}

	// stageTickMsg advances the activity indicator.
	stageTickMsg struct {
		generation int
	}

	// stageClearMsg hides the indicator after its minimum display time.
	stageClearMsg struct {
		generation int
	}

	// toastExpiredMsg dismisses one notification by id.
	toastExpiredMsg struct {
		id int
	}

	// connectivityMsg is a reachability transition from the monitor.
	connectivityMsg connectivity.Event

	// configReloadedMsg carries a live config reload.
	configReloadedMsg struct {
		cfg *config.UserConfig
	}

	// conversationsMsg refreshes the thread index.
	conversationsMsg struct {
		convs []conversation.Conversation
		err   error
	}

	// historyLoadedMsg delivers an adopted thread's messages.
	historyLoadedMsg struct {
		conversationID string
		messages       []conversation.Message
		err            error
	}

	// conversationDeletedMsg confirms a server-side delete.
	conversationDeletedMsg struct {
		conversationID string
		err            error
	}

	// exportDoneMsg reports a transcript export.
	exportDoneMsg struct {
		path string
		err  error
	}

	// speechResultMsg delivers a recognized utterance.
	speechResultMsg struct {
		text string
		err  error
	}
)
