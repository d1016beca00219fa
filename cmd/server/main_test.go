package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T, endpoint string) {
	t.Helper()
	for _, k := range []string{"CONFIG_FILE", "DB_DRIVER", "DATABASE_URL", "REDIS_URL", "RETENTION_DAYS", "SEARCH_TIMEOUT_SECONDS"} {
		t.Setenv(k, "")
	}
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "history.sqlite"))
	t.Setenv("SEARCH_ENDPOINT", endpoint)
	t.Setenv("NAVER_CLIENT_ID", "id")
	t.Setenv("NAVER_CLIENT_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIngestThenCleanup(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"title":"<b>Phone</b> X","link":"https://l","image":"https://i","lprice":"100"},{"title":"Case","lprice":"?"}]}`))
	}))
	defer api.Close()
	setupEnv(t, api.URL)

	out, err := run(t, "ingest", "phone")
	require.NoError(t, err)
	assert.Contains(t, out, "phone: fetched 2, inserted 1, rejected 1")

	out, err = run(t, "ingest", "phone")
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 0")

	out, err = run(t, "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 0 records older than 180 days")
}

func TestIngest_QueryArgKeptVerbatim(t *testing.T) {
	var queries []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("query"))
		w.Write([]byte(`{"items":[{"title":"Phone X","lprice":"100"}]}`))
	}))
	defer api.Close()
	setupEnv(t, api.URL)

	out, err := run(t, "ingest", "phone ")
	require.NoError(t, err)
	assert.Contains(t, out, "phone : fetched 1, inserted 1")

	out, err = run(t, "ingest", "phone")
	require.NoError(t, err)
	assert.Contains(t, out, "phone: fetched 1, inserted 1", "different history key")
	assert.Equal(t, []string{"phone ", "phone"}, queries)
}

func TestIngest_UpstreamError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer api.Close()
	setupEnv(t, api.URL)

	_, err := run(t, "ingest", "phone")
	assert.Error(t, err)
}

func TestCleanup_RejectsArgs(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:0")
	_, err := run(t, "cleanup", "extra")
	assert.Error(t, err)
}
