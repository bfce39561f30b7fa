package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/stupiduntilnot/toolguard/internal/config"
	"github.com/stupiduntilnot/toolguard/internal/db"
	"github.com/stupiduntilnot/toolguard/internal/httpapi"
	"github.com/stupiduntilnot/toolguard/internal/tool"
)

func main() {
	var (
		configPath = pflag.String("config", "", "path to TOML config file")
		addr       = pflag.String("addr", "", "listen address (overrides config)")
		noAudit    = pflag.Bool("no-audit", false, "disable the sqlite invocation audit log")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := initLogger(cfg.Server.LogLevel)

	auditDB := openAudit(cfg, *noAudit, logger)
	if auditDB != nil {
		defer auditDB.Close()
	}

	registry := tool.NewRegistry()
	execTool := tool.NewExec(
		cfg.Exec.Workdir,
		time.Duration(cfg.Exec.TimeoutMs)*time.Millisecond,
		cfg.Exec.MaxOutputBytes,
	)
	fetchTool := tool.NewFetch(
		time.Duration(cfg.Fetch.TimeoutMs)*time.Millisecond,
		cfg.Fetch.MaxBytes,
		cfg.Fetch.MaxRedirects,
	)
	if err := registry.Register(execTool); err != nil {
		logger.Fatal().Err(err).Msg("failed to register exec tool")
	}
	if err := registry.Register(fetchTool); err != nil {
		logger.Fatal().Err(err).Msg("failed to register fetch tool")
	}

	runner := tool.NewRunner(registry)
	server := httpapi.NewServer(cfg.Server.Addr, runner, auditDB, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}
}

// openAudit opens the invocation audit database and records server startup.
// Audit is best-effort: a failure to open it downgrades to a warning rather
// than refusing to serve.
func openAudit(cfg config.Config, disabled bool, logger zerolog.Logger) *sql.DB {
	if disabled {
		return nil
	}
	database, err := db.OpenDB(cfg.Server.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("audit log disabled")
		return nil
	}
	if err := db.InitSchema(database); err != nil {
		logger.Warn().Err(err).Msg("audit log disabled: schema init failed")
		database.Close()
		return nil
	}
	if _, err := db.LogInvocation(database, db.EventServerStarted, "server", "", 0, map[string]any{
		"pid":  os.Getpid(),
		"addr": cfg.Server.Addr,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to log server start")
	}
	return database
}

func initLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "toolguard").Logger()
}
