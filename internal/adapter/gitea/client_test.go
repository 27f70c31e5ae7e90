package gitea

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M3kH/gigi-sub006/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		BaseURL: srv.URL,
		Token:   "secret",
	}, slog.Default())
	require.NoError(t, err)
	return client
}

func TestGetRepository(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 7, "name": "app", "full_name": "org/app", "private": false,
			"owner": {"id": 1, "login": "org"}}`))
	})

	repo, err := client.GetRepository(context.Background(), "org", "app")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/repos/org/app", gotPath)
	assert.Equal(t, "token secret", gotAuth)
	assert.Equal(t, int64(7), repo.ID)
	assert.Equal(t, "org/app", repo.FullName)
	require.NotNil(t, repo.Owner)
	assert.Equal(t, "org", repo.Owner.Login)
}

func TestListIssuesPassesQuery(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[
			{"id": 1, "number": 10, "title": "Bug", "state": "open"},
			{"id": 2, "number": 11, "title": "Feature", "state": "closed"}
		]`))
	})

	issues, err := client.ListIssues(context.Background(), "org", "app", ListOptions{Page: 2, Limit: 25, State: "all"})
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, int64(10), issues[0].Number)
	assert.Equal(t, "closed", issues[1].State)
	assert.Contains(t, gotQuery, "page=2")
	assert.Contains(t, gotQuery, "limit=25")
	assert.Contains(t, gotQuery, "state=all")
}

func TestGetPullRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 3, "number": 42, "title": "Add cache", "state": "open", "merged": false,
			"head": {"ref": "feature", "sha": "abc123"}, "base": {"ref": "main", "sha": "def456"}}`))
	})

	pr, err := client.GetPullRequest(context.Background(), "org", "app", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), pr.Number)
	require.NotNil(t, pr.Head)
	assert.Equal(t, "feature", pr.Head.Ref)
}

func TestSchemaValidationRejectsDriftedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Missing required full_name, id is a string.
		w.Write([]byte(`{"id": "seven", "name": "app"}`))
	})

	_, err := client.GetRepository(context.Background(), "org", "app")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestNonOKStatusIsTypedError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.GetIssue(context.Background(), "org", "app", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAPIStatus)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		BaseURL:       srv.URL,
		CBMaxFailures: 2,
	}, slog.Default())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.GetRepository(ctx, "org", "app")
		require.ErrorIs(t, err, domain.ErrAPIStatus)
	}

	// Circuit is open now: no HTTP call happens.
	_, err = client.GetRepository(ctx, "org", "app")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrAPIStatus))
	assert.Equal(t, 2, hits)
}

func TestNewClientRejectsRelativeBaseURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "gitea.example.com"}, slog.Default())
	require.Error(t, err)
}
