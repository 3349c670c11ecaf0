// Package cli implements the memorialctl commands over a local SQLite store.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"memorial-narrator/internal/integrations/openai"
	"memorial-narrator/internal/narrative"
	"memorial-narrator/internal/ratelimit"
	"memorial-narrator/internal/usecase"
)

const defaultUser = "local"

type app struct {
	dbPath  string
	table   string
	user    string
	verbose bool
	window  time.Duration

	openTable func(ctx context.Context, table string) (Store, error)
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	a.openTable = a.openDynamo
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "memorialctl",
		Short: "Manage memorials and generate first-person narratives locally",
		Long: `memorialctl keeps memorials and their memories in a local SQLite database,
or in the deployed DynamoDB table with --table, and generates first-person
life narratives from them.

Environment:
  MEMORIAL_DB     database path (default: ~/.memorial-narrator/memorial.db)
  MEMORIAL_TABLE  DynamoDB table to use instead of the local database
  MEMORIAL_USER   acting user id (default: local)
  OPENAI_API_KEY  enables model generation; without it narratives use templates
  OPENAI_MODEL    model id (default: ` + narrative.DefaultModel + `)`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.dbPath, "db", "d", "", "Database path (default: $MEMORIAL_DB or ~/.memorial-narrator/memorial.db)")
	root.PersistentFlags().StringVar(&a.table, "table", "", "DynamoDB table to use instead of the local database (default: $MEMORIAL_TABLE)")
	root.PersistentFlags().StringVarP(&a.user, "user", "u", "", "Acting user id (default: $MEMORIAL_USER or \"local\")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log progress to stderr")
	root.PersistentFlags().DurationVar(&a.window, "window", ratelimit.DefaultWindow, "Cooldown between narrative generations per user")

	root.AddCommand(a.memorialCmd(), a.memoryCmd(), a.narrateCmd())
	return root
}

// Execute runs memorialctl with os.Args.
func Execute() {
	_ = godotenv.Load()

	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func (a *app) getDBPath() string {
	if a.dbPath != "" {
		return a.dbPath
	}
	if env := os.Getenv("MEMORIAL_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memorial-narrator", "memorial.db")
}

func (a *app) userID() string {
	if u := strings.TrimSpace(a.user); u != "" {
		return u
	}
	if env := strings.TrimSpace(os.Getenv("MEMORIAL_USER")); env != "" {
		return env
	}
	return defaultUser
}

func (a *app) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// service wires the narrative service over the local store. Without an API
// key, or when offline, every narrative comes from the template composer.
func (a *app) service(cmd *cobra.Command, store Store, offline bool) (*usecase.NarrativeService, error) {
	logger := a.logger(cmd.ErrOrStderr())

	var llm narrative.LLMClient = narrative.Unavailable{}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && !offline {
		client, err := openai.NewClient(nil, "", openai.WithAPIKey(key))
		if err != nil {
			return nil, err
		}
		llm = client
	}
	generator, err := narrative.NewGenerator(llm, narrative.Config{Model: os.Getenv("OPENAI_MODEL")})
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.New(store, a.window, ratelimit.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return usecase.NewNarrativeService(store, store, limiter, generator,
		usecase.WithAuthenticator(usecase.StaticUser(a.userID())),
		usecase.WithLogger(logger),
	)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
