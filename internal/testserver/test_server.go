package testserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/partdesk/internal/domain/activity"
	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/jsonstore"
	"github.com/rpggio/partdesk/internal/mcp"
	"github.com/rpggio/partdesk/internal/repository"
	"github.com/rpggio/partdesk/internal/resilient"
	"github.com/rpggio/partdesk/internal/sqlite"
	"github.com/rpggio/partdesk/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer runs the full HTTP stack against a temporary local store.
type TestServer struct {
	Server   *httptest.Server
	Store    *resilient.Facade
	Local    *jsonstore.Store
	Token    string
	Password string
}

// Options customizes New.
type Options struct {
	// Remote is used as the remote backend. Nil runs local only.
	Remote repository.RemoteBackend
	// Password gates the mutating tools.
	Password string
}

// New starts a server requiring token as bearer token. An empty token disables auth.
func New(t *testing.T, token string, opts Options) *TestServer {
	t.Helper()

	local, err := jsonstore.New(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, local.EnsureInitialized())

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	store := resilient.New(opts.Remote, local)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	recordSvc := record.NewService(store, activitySvc, nil)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:       mcp.Services{Records: recordSvc, Activity: activitySvc},
		StatusPassword: opts.Password,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	server := httptest.NewServer(transport.NewServer(transport.Config{
		MCP:    mcpHandler,
		Status: recordSvc.BackendStatus,
		Token:  token,
	}))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:   server,
		Store:    store,
		Local:    local,
		Token:    token,
		Password: opts.Password,
	}
}

// Connect opens an MCP client session over streamable HTTP.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(t.Context(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearer{token: ts.Token, next: http.DefaultTransport}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

type bearer struct {
	token string
	next  http.RoundTripper
}

func (b bearer) RoundTrip(r *http.Request) (*http.Response, error) {
	if b.token == "" {
		return b.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(r)
}
