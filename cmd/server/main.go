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
	"sync"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/partdesk/internal/config"
	"github.com/rpggio/partdesk/internal/domain/activity"
	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/firebase"
	"github.com/rpggio/partdesk/internal/jsonstore"
	"github.com/rpggio/partdesk/internal/mcp"
	"github.com/rpggio/partdesk/internal/repository"
	"github.com/rpggio/partdesk/internal/resilient"
	"github.com/rpggio/partdesk/internal/sqlite"
	"github.com/rpggio/partdesk/internal/transport"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	local, err := jsonstore.New(cfg.Local.Root, logger)
	if err != nil {
		logger.Error("failed to open local store", "error", err)
		os.Exit(1)
	}
	if err := local.EnsureInitialized(); err != nil {
		logger.Error("failed to initialize local store", "root", local.Root(), "error", err)
		os.Exit(1)
	}

	facadeOpts := []resilient.Option{resilient.WithLogger(logger)}
	var remote repository.RemoteBackend
	adapter, configErr := buildRemote(ctx, cfg.Remote, logger)
	if configErr != nil {
		facadeOpts = append(facadeOpts, resilient.WithConfigError(configErr))
	}
	if adapter != nil {
		defer adapter.Close()
		remote = adapter
	}

	store := resilient.New(remote, local, facadeOpts...)
	store.Init(ctx)

	var (
		journal     record.ActivityRepository
		activitySvc mcp.ActivityService
	)
	if cfg.Journal.Path != "" {
		db, err := openJournal(cfg.Journal.Path)
		if err != nil {
			logger.Error("failed to open journal", "path", cfg.Journal.Path, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		svc := activity.NewService(sqlite.NewActivityRepository(db), logger)
		journal = svc
		activitySvc = svc
	}

	recordSvc := record.NewService(store, journal, logger)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Records:  recordSvc,
			Activity: activitySvc,
		},
		StatusPassword: cfg.Auth.StatusPassword,
		Version:        version,
		Logger:         logger,
	})

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(ctx, logger, mcpServer)
		return
	}
	runHTTPMode(ctx, logger, mcpServer, recordSvc, cfg)
}

// buildRemote returns the remote adapter, or nil when it cannot be built.
// Missing credentials are not an error; a malformed configuration is returned
// so it can be reported.
func buildRemote(ctx context.Context, cfg config.RemoteConfig, logger *slog.Logger) (*firebase.Adapter, error) {
	adapter, err := firebase.New(ctx, firebase.Config{
		CredentialsJSON: cfg.CredentialsJSON,
		Bucket:          cfg.Bucket,
		Collection:      cfg.Collection,
		IDMode:          cfg.IDMode,
		Timeout:         cfg.Timeout,
		SignedURLTTL:    cfg.SignedURLTTL,
	}, logger)
	switch {
	case err == nil:
		return adapter, nil
	case errors.Is(err, firebase.ErrNotConfigured):
		return nil, nil
	case errors.Is(err, firebase.ErrConfig):
		logger.Error("remote backend configuration invalid", "error", err)
		return nil, err
	default:
		logger.Warn("remote backend clients not created", "error", err)
		return nil, err
	}
}

func openJournal(path string) (*sqlite.DB, error) {
	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport")

	// Run blocks until stdin closes or the context is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server, records *record.Service, cfg config.Config) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	router := transport.NewServer(transport.Config{
		MCP:    mcpHandler,
		Status: records.BackendStatus,
		Token:  cfg.Auth.APIToken,
		Logger: logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "auth", cfg.Auth.APIToken != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(ctx, logger, httpServer)
}

func waitForShutdown(ctx context.Context, logger *slog.Logger, server *http.Server) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}
	if size <= keepLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
