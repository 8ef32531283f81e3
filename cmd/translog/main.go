// Command translog serves the transformation dashboard API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tidehunter/translog/internal/advice"
	"github.com/tidehunter/translog/internal/api"
	"github.com/tidehunter/translog/internal/blob"
	"github.com/tidehunter/translog/internal/buildinfo"
	"github.com/tidehunter/translog/internal/chat"
	"github.com/tidehunter/translog/internal/config"
	"github.com/tidehunter/translog/internal/llm"
	"github.com/tidehunter/translog/internal/logstore"
	"github.com/tidehunter/translog/internal/paths"
	"github.com/tidehunter/translog/internal/tools"
)

const usage = `translog - personal transformation dashboard

Usage:
  translog serve [-config FILE]    start the API server
  translog advice [-config FILE]   print today's coaching note and exit
  translog version                 print version information

Options:
  -config FILE   explicit configuration file (default: search standard paths)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	command := "serve"
	var configPath string

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-config", "--config":
			i++
			if i >= len(args) {
				return errors.New("-config requires a path")
			}
			configPath = args[i]
		case "-h", "-help", "--help", "help":
			fmt.Fprint(stdout, usage)
			return nil
		case "serve", "advice", "version":
			command = arg
		default:
			return fmt.Errorf("unknown argument %q\n\n%s", arg, usage)
		}
	}

	if command == "version" {
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	}

	found, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(found)
	if err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))

	app := buildApp(logger, cfg)

	switch command {
	case "advice":
		note, err := app.advisor.Daily(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, note.Advice)
		return nil
	case "serve":
		return serve(ctx, logger, cfg, app.server.Handler())
	}
	return fmt.Errorf("unknown command %q", command)
}

// app bundles the wired components.
type app struct {
	server  *api.Server
	advisor *advice.Advisor
}

func buildApp(logger *slog.Logger, cfg *config.Config) *app {
	store := logstore.New(logger, paths.New(nil), cfg.FunctionRoot, logstore.Locations{
		LegacyLog: cfg.Data.LegacyLog,
		DailyDir:  cfg.Data.DailyDir,
		MasterLog: cfg.Data.MasterLog,
	})

	photos := blob.New(logger, cfg.Blob.BaseURL, cfg.Blob.Token)
	registry := tools.NewRegistry(logger, store, photos, cfg.ReadOnly)

	client := llm.NewClient(logger, cfg.Model.APIKey)
	negotiator := llm.NewNegotiator(client, llm.Candidates(cfg.Model.BaseURL, cfg.Model.Models))

	orchestrator := chat.New(logger, client, negotiator, registry, store)
	advisor := advice.New(logger, negotiator, store)

	// The local upload fallback needs a writable filesystem.
	uploadsDir := ""
	if !cfg.ReadOnly {
		uploadsDir = filepath.Join("static", "uploads")
	}

	return &app{
		server:  api.NewServer(logger, store, orchestrator, advisor, photos, uploadsDir),
		advisor: advisor,
	}
}

func serve(ctx context.Context, logger *slog.Logger, cfg *config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", srv.Addr,
			"version", buildinfo.Version,
			"read_only", cfg.ReadOnly)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
