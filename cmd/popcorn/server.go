package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/popcorn/internal/api"
	"github.com/kalambet/popcorn/internal/catalog"
	"github.com/kalambet/popcorn/internal/config"
	"github.com/kalambet/popcorn/internal/engine"
	"github.com/kalambet/popcorn/internal/intent"
	"github.com/kalambet/popcorn/internal/pipeline"
	"github.com/kalambet/popcorn/internal/results"
	"github.com/kalambet/popcorn/internal/session"
	"github.com/kalambet/popcorn/internal/storage"
	"github.com/kalambet/popcorn/internal/tmdb"
)

const (
	historyRetention = 90 * 24 * time.Hour
	sweepInterval    = time.Minute
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the popcorn server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcp, _ := cmd.Flags().GetBool("mcp")
		return runServer(mcp)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running popcorn server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show popcorn system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "popcorn.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "popcorn version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr))

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("popcorn is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("popcorn is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	extractor, err := buildExtractor(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	tmdbClient := tmdb.New(tmdb.Config{
		APIKey:   cfg.Catalog.APIKey,
		BaseURL:  cfg.Catalog.BaseURL,
		Language: cfg.Catalog.Language,
		Timeout:  cfg.Catalog.Timeout,
	})
	builder := catalog.NewBuilder(tmdbClient, results.Processor{ImageBaseURL: cfg.Catalog.ImageBaseURL}, cfg.Catalog.MaxPages)

	sessions := session.NewManager(cfg.Session.TTL)
	go sessions.Run(ctx, sweepInterval)
	go pruneHistory(ctx, store, historyRetention)

	assistant := pipeline.NewAssistant(extractor, builder, tmdbClient, sessions, store)

	if cfg.Server.APIToken == "" {
		slog.Info("API bearer auth disabled (server.api_token unset)")
	}
	handler := api.NewHandler(api.Deps{
		Assistant: assistant,
		Sessions:  sessions,
		Store:     store,
		Token:     cfg.Server.APIToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Assistant: assistant,
			Sessions:  sessions,
			Store:     store,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "popcorn listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildExtractor wires the configured model backend in front of the rule
// parser. An unreachable backend is not fatal: its breaker opens and rules
// take over until it recovers.
func buildExtractor(ctx context.Context, cfg config.Config) (*intent.Extractor, error) {
	eng, err := engine.Detect(engine.DetectConfig{
		Provider:         cfg.Model.Provider,
		OllamaBaseURL:    cfg.Ollama.BaseURL,
		OpenRouterAPIKey: cfg.OpenRouter.APIKey,
		GeminiAPIKey:     cfg.Gemini.APIKey,
		GeminiBaseURL:    cfg.Gemini.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("detecting model backend: %w", err)
	}
	if eng == nil {
		slog.Info("model extraction disabled, using rules only")
		return intent.NewExtractor(), nil
	}

	model := cfg.Model.Name
	if model == "" {
		model = eng.DefaultModel()
	}
	if err := engine.EnsureReady(ctx, eng, model, os.Stderr); err != nil {
		slog.Warn("model backend not ready, rules will cover until it is", "backend", eng.Name(), "error", err)
	}

	breaker := intent.NewBreaker(3, time.Minute, 30*time.Second)
	return intent.NewExtractor(intent.NewModelStrategy(eng, model, cfg.Model.Timeout, breaker)), nil
}

func pruneHistory(ctx context.Context, store *storage.Store, retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		n, err := store.PruneInteractions(time.Now().Add(-retention))
		if err != nil {
			slog.Warn("pruning interaction history", "error", err)
		} else if n > 0 {
			slog.Info("pruned interaction history", "deleted", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("popcorn is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop popcorn (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to popcorn (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.Server.APIToken,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	running := false
	if n, err := client.health(ctx); err != nil {
		printStatus("Server", "stopped")
	} else {
		running = true
		printStatus("Server", "running on port %d (%d active sessions)", cfg.Server.Port, n)
	}

	eng, err := engine.Detect(engine.DetectConfig{
		Provider:         cfg.Model.Provider,
		OllamaBaseURL:    cfg.Ollama.BaseURL,
		OpenRouterAPIKey: cfg.OpenRouter.APIKey,
		GeminiAPIKey:     cfg.Gemini.APIKey,
		GeminiBaseURL:    cfg.Gemini.BaseURL,
	})
	switch {
	case err != nil:
		printStatus("Model", "misconfigured: %v", err)
	case eng == nil:
		printStatus("Model", "disabled (rules only)")
	default:
		model := cfg.Model.Name
		if model == "" {
			model = eng.DefaultModel()
		}
		state := "unreachable"
		if eng.IsRunning(ctx) {
			state = "reachable"
		}
		printStatus("Model", "%s %s (%s)", eng.Name(), model, state)
	}

	tmdbClient := tmdb.New(tmdb.Config{
		APIKey:   cfg.Catalog.APIKey,
		BaseURL:  cfg.Catalog.BaseURL,
		Language: cfg.Catalog.Language,
		Timeout:  cfg.Catalog.Timeout,
	})
	if genres, err := tmdbClient.Genres(ctx, "movie"); err != nil {
		printStatus("Catalog", "error: %v", err)
	} else {
		printStatus("Catalog", "reachable (%d movie genres)", len(genres))
	}

	if running {
		if page, err := client.listInteractions(ctx, "", 1, 0); err == nil {
			printStatus("Interactions", "%d", page.Total)
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	printStatus("Config file", "%s", config.ConfigFilePath())
	return nil
}
