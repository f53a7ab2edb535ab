// Package testutil holds shared helpers for source fixture tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

// Credentials returns a throwaway login/password pair, so fixture servers
// never accept a constant that could mask a dropped form field.
func Credentials(t *testing.T) (string, string) {
	t.Helper()
	login, err := random.String(8)
	require.NoError(t, err)
	password, err := random.String(12)
	require.NoError(t, err)
	return login, password
}

// Serve starts a fixture server torn down with the test.
func Serve(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}
