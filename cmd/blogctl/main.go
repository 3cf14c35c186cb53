package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hypergopher/blogsync"
	"github.com/hypergopher/blogsync/bboltstore"
	"github.com/hypergopher/blogsync/sqlitestore"
)

var (
	configPath string
	apiURL     string
	dataDir    string
	storeKind  string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "blogctl",
		Short: "blogctl - command-line client for the blog platform",
		Long:  "A blog client with a cached feed, optimistic likes, offline search, and a draft-based publishing flow",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Local data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "bbolt", "Local store backend (bbolt, sqlite)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		loginCmd(),
		registerCmd(),
		logoutCmd(),
		whoamiCmd(),
		feedCmd(),
		showCmd(),
		likeCmd(),
		searchCmd(),
		watchCmd(),
		draftCmd(),
		publishCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (blogsync.Config, error) {
	cfg, err := blogsync.LoadConfig(configPath)
	if err != nil {
		return blogsync.Config{}, err
	}
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return blogsync.Config{}, fmt.Errorf("failed to resolve home dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".blogsync")
	}
	return cfg, nil
}

func openStore(cfg blogsync.Config, logger *slog.Logger) (blogsync.LocalStore, error) {
	var store blogsync.LocalStore
	switch storeKind {
	case "bbolt":
		store = bboltstore.New(cfg.DataDir, logger)
	case "sqlite":
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		db, err := sqlitestore.Open(filepath.Join(cfg.DataDir, "blogsync.sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		store = sqlitestore.New(db)
	default:
		return nil, fmt.Errorf("unknown store backend: %s (valid: bbolt, sqlite)", storeKind)
	}

	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize local store: %w", err)
	}
	return store, nil
}

// newClient builds a client over the configured local store. The returned
// cleanup closes both.
func newClient(ctx context.Context) (*blogsync.Client, func(), error) {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	client, err := blogsync.New(ctx, cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = client.Close()
		_ = store.Close()
	}
	return client, cleanup, nil
}

// requireSignedIn refuses commands behind the private-route guard.
func requireSignedIn(c *blogsync.Client, path string) error {
	if c.Guard(path) == blogsync.RouteToSignIn {
		return fmt.Errorf("not signed in; run 'blogctl login' first")
	}
	return nil
}
