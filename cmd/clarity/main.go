// Package main provides the clarity CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"clarity/cmd/clarity/chat"
	"clarity/internal/api"
	"clarity/internal/config"
	"clarity/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is stamped by the release build.
var Version = "dev"

var (
	// Global flags
	verbose    bool
	apiURL     string
	userID     string
	configPath string
	timeout    time.Duration

	// Logger for non-interactive commands
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clarity",
	Short: "clarity - terminal career coaching client",
	Long: `clarity is a terminal client for the clarity coaching backend.

It keeps a running conversation with your coach, remembers past
threads, and works through connection drops: failed messages stay on
screen and can be retried in place.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it has its own UI)
		if cmd.Use == "clarity" && cmd.CalledAs() == "clarity" {
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

// conversationsCmd groups thread management subcommands
var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "Manage saved conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations stored on the backend",
	RunE:  listConversations,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a conversation from the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteConversation,
}

// statusCmd checks backend reachability
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the coaching backend is reachable",
	RunE:  showStatus,
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the clarity version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clarity %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend address (or set CLARITY_API_URL)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User id the backend keys conversations on")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.clarity/config.json)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)

	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadUserConfig resolves configuration from file, environment, and
// flags, in increasing precedence.
func loadUserConfig() (*config.UserConfig, string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if userID != "" {
		cfg.UserID = userID
	}
	return cfg, path, nil
}

func runInteractiveChat() error {
	cfg, path, err := loadUserConfig()
	if err != nil {
		return err
	}

	if home, err := os.UserHomeDir(); err == nil {
		if err := logging.Initialize(home); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging unavailable: %v\n", err)
		}
	}
	defer logging.CloseAll()

	return chat.RunInteractiveChat(chat.Config{
		UserConfig: cfg,
		ConfigPath: path,
	})
}

func newClient() (*api.Client, error) {
	cfg, _, err := loadUserConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.GetAPIURL(), cfg.UserID), nil
}

func listConversations(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	convs, err := client.Conversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	logger.Debug("Fetched conversations", zap.Int("count", len(convs)))

	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTITLE")
	for _, c := range convs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.CreatedAt.Format("2006-01-02 15:04"), c.DisplayTitle())
	}
	return w.Flush()
}

func deleteConversation(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	id := args[0]
	if err := client.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	logger.Info("Deleted conversation", zap.String("id", id))
	fmt.Printf("Deleted %s\n", id)
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	convs, err := client.Conversations(ctx)
	if err != nil {
		fmt.Printf("Backend:  %s\n", client.BaseURL())
		fmt.Println("Status:   unreachable")
		return err
	}

	fmt.Printf("Backend:  %s\n", client.BaseURL())
	fmt.Println("Status:   online")
	fmt.Printf("Latency:  %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Threads:  %d\n", len(convs))
	return nil
}
