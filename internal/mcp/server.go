package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/partdesk/internal/domain/activity"
	"github.com/rpggio/partdesk/internal/domain/record"
)

// RecordService defines part request operations needed by MCP.
type RecordService interface {
	Create(ctx context.Context, req record.CreateRequest) (record.CreateResult, error)
	List(ctx context.Context, opts record.ListOptions) ([]record.Record, error)
	UpdateStatus(ctx context.Context, id string, status record.Status) (bool, error)
	AttachPhoto(ctx context.Context, id string, photo record.Photo) (record.Outcome, error)
	Delete(ctx context.Context, id string) (bool, error)
	BackendStatus() record.BackendStatus
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Records RecordService
	// Activity may be nil when the journal is disabled.
	Activity ActivityService
}

// Config contains server configuration.
type Config struct {
	Services Services
	// StatusPassword gates mutating tools when set.
	StatusPassword string
	Version        string
	Logger         *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "partdesk",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(metricsMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &tools{
		records:  cfg.Services.Records,
		activity: cfg.Services.Activity,
		password: cfg.StatusPassword,
		logger:   cfg.Logger,
	})

	return server
}
