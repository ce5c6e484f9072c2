//go:build integration

package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Black-And-White-Club/club-ladder/app"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// APIClient calls a test server as a given player.
type APIClient struct {
	t      *testing.T
	app    *app.App
	server *httptest.Server
}

// NewAPIClient serves the application router on a local listener.
func NewAPIClient(t *testing.T, a *app.App) *APIClient {
	t.Helper()
	server := httptest.NewServer(a.Router())
	t.Cleanup(server.Close)
	return &APIClient{t: t, app: a, server: server}
}

// Do sends body as JSON with a bearer token for player and decodes a JSON
// response into out when out is non-nil. player uuid.Nil sends no token.
func (c *APIClient) Do(method, path string, player uuid.UUID, body, out any) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if player != uuid.Nil {
		token, err := c.app.AuthModule.GetService().IssueToken(context.Background(), player, 0)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })

	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}
