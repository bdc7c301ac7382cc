package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/memoraxx/internal/api"
	"github.com/kalambet/memoraxx/internal/composer"
	"github.com/kalambet/memoraxx/internal/config"
	"github.com/kalambet/memoraxx/internal/dispatch"
	"github.com/kalambet/memoraxx/internal/memory"
	"github.com/kalambet/memoraxx/internal/metrics"
	"github.com/kalambet/memoraxx/internal/ollama"
	"github.com/kalambet/memoraxx/internal/pipeline"
	"github.com/kalambet/memoraxx/internal/storage"
	"github.com/kalambet/memoraxx/internal/textmetrics"
	"github.com/kalambet/memoraxx/internal/tools"
)

// app is one wired session: memory, archive, tools, transport, pipeline
// and dispatcher, built from a loaded config.
type app struct {
	cfg        config.Config
	memory     *memory.Store
	archive    *storage.Store // nil when storage.archive is off
	session    storage.Session
	ollama     *ollama.Client
	metrics    *metrics.Metrics
	tools      *tools.Registry
	pipeline   *pipeline.Pipeline
	dispatcher *dispatch.Dispatcher
}

// loadApp loads config, sets up logging and wires an app.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)
	return newApp(cfg, nil)
}

// newApp wires an app from cfg. A non-nil transport replaces the Ollama
// client for completions.
func newApp(cfg config.Config, transport pipeline.Transport) (*app, error) {
	counter := textmetrics.CounterByName(cfg.Memory.TokenCounter)
	mem := memory.New(cfg.Memory.MaxTokens, cfg.Memory.File, counter)
	if err := mem.Hydrate(); err != nil {
		slog.Warn("starting with empty memory", "path", cfg.Memory.File, "error", err)
	}

	a := &app{
		cfg:     cfg,
		memory:  mem,
		ollama:  ollama.New(cfg.Ollama.BaseURL, ollama.WithTimeouts(cfg.Request.Timeout, cfg.Request.ConnectTimeout)),
		metrics: metrics.New(),
	}
	a.metrics.SetMemory(mem.TotalTokens(), mem.Len())

	opts := pipeline.Options{
		Model:       cfg.Ollama.Model,
		MaxAttempts: cfg.Request.MaxAttempts,
		Metrics:     a.metrics,
	}

	if cfg.Storage.Archive {
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		a.archive = store
		opts.Archive = store

		sess, err := store.StartSession(cfg.Ollama.Model)
		if err != nil {
			slog.Warn("recording session start", "error", err)
		} else {
			a.session = sess
			opts.SessionID = sess.ID
		}
		a.tools = tools.NewDefaultRegistry(store)
	} else {
		a.tools = tools.NewDefaultRegistry(nil)
	}

	if transport == nil {
		transport = a.ollama
	}
	builder := composer.New(a.tools, mem)
	a.pipeline = pipeline.New(transport, builder, a.tools, mem, opts)
	a.dispatcher = dispatch.New(a.pipeline, dispatch.DefaultCommands(mem)...)
	return a, nil
}

// archiveStore returns the archive as an interface value that is nil when
// archiving is off.
func (a *app) archiveStore() api.InteractionStore {
	if a.archive == nil {
		return nil
	}
	return a.archive
}

// Close persists memory, closes the session record and the archive.
func (a *app) Close() error {
	var errs []error
	if err := a.memory.Persist(); err != nil {
		errs = append(errs, fmt.Errorf("persisting memory: %w", err))
	}
	if a.archive != nil {
		if a.session.ID != "" {
			if err := a.archive.EndSession(a.session.ID); err != nil {
				slog.Warn("recording session end", "session", a.session.ID, "error", err)
			}
		}
		if err := a.archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing archive: %w", err))
		}
	}
	return errors.Join(errs...)
}
