package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/memoraxx/internal/api"
	"github.com/kalambet/memoraxx/internal/config"
	"github.com/kalambet/memoraxx/internal/memory"
	"github.com/kalambet/memoraxx/internal/ollama"
	"github.com/kalambet/memoraxx/internal/storage"
	"github.com/kalambet/memoraxx/internal/textmetrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session over a loopback HTTP API",
	Long: `Serve the session over a loopback HTTP API.

Routes:
  GET    /health
  POST   /v1/dispatch        {"input": "..."}
  GET    /v1/memory
  DELETE /v1/memory
  GET    /v1/interactions    ?q=&limit=&offset=
  GET    /v1/interactions/{id}
  GET    /metrics

Set MEMORAXX_SERVER_TOKEN to require a bearer token on every route except /health.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the session as an MCP server on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show memoraxx system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func runServer(parent context.Context) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("closing session", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ollama.EnsureReady(ctx, a.ollama, a.cfg.Ollama.Model, os.Stderr); err != nil {
		return err
	}

	handler := api.NewHandler(api.Deps{
		Session: api.NewSession(a.dispatcher, a.memory),
		Archive: a.archiveStore(),
		Metrics: a.metrics,
		Token:   a.cfg.Server.Token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	if a.cfg.Server.Token == "" {
		slog.Warn("no server token set; API is open to any local process")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "memoraxx %s listening on %s\n", version, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMCP(parent context.Context) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("closing session", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// stdout carries the protocol; readiness output goes to stderr.
	if err := ollama.EnsureReady(ctx, a.ollama, a.cfg.Ollama.Model, os.Stderr); err != nil {
		return err
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Session: api.NewSession(a.dispatcher, a.memory),
		Archive: a.archiveStore(),
		Version: version,
	})
	slog.Info("MCP server started (stdio transport)")
	err = server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := ollama.New(cfg.Ollama.BaseURL, ollama.WithTimeouts(2*time.Second, 2*time.Second))
	if client.IsRunning(ctx) {
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		if client.HasModel(ctx, cfg.Ollama.Model) {
			printStatus("Model", "%s (available)", cfg.Ollama.Model)
		} else {
			printStatus("Model", "%s (missing; run `memoraxx pull`)", cfg.Ollama.Model)
		}
	} else {
		printStatus("Ollama", "not running at %s", cfg.Ollama.BaseURL)
		printStatus("Model", "%s", cfg.Ollama.Model)
	}

	// Read the memory file without taking over the session.
	mem := memory.New(cfg.Memory.MaxTokens, cfg.Memory.File, textmetrics.CounterByName(cfg.Memory.TokenCounter))
	if err := mem.Hydrate(); err != nil {
		printStatus("Memory", "unreadable (%v)", err)
	} else {
		printStatus("Memory", "%d interactions, %d/%d tokens", mem.Len(), mem.TotalTokens(), mem.MaxTokens())
	}
	printStatus("Memory file", "%s", cfg.Memory.File)

	if cfg.Storage.Archive {
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			printStatus("Archive", "unavailable (%v)", err)
		} else {
			n, err := store.CountInteractions()
			store.Close()
			if err != nil {
				printStatus("Archive", "error (%v)", err)
			} else {
				printStatus("Archive", "%d interactions", n)
			}
		}
	} else {
		printStatus("Archive", "disabled")
	}

	c := newAPIClient(cfg, 2*time.Second)
	if snap, err := c.memory(ctx); err == nil {
		printStatus("Server", "running on port %d (%d interactions in memory)", cfg.Server.Port, len(snap.Interactions))
	} else if c.healthy(ctx) {
		printStatus("Server", "running on port %d (%v)", cfg.Server.Port, err)
	} else {
		printStatus("Server", "stopped")
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
