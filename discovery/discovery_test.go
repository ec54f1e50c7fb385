package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gh "github.com/google/go-github/v56/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/pr-tracker/config"
	"github.com/perbu/pr-tracker/models"
	"github.com/perbu/pr-tracker/store"
)

func trackedPR(number int, status string, updated time.Time) *models.PullRequest {
	return &models.PullRequest{
		Number:     number,
		Repository: "acme/widgets",
		Status:     status,
		CreatedAt:  updated.Add(-24 * time.Hour),
		UpdatedAt:  updated,
	}
}

func TestSortByPriority(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	}

	repo := models.NewRepository("acme", "widgets")
	repo.AddPR(trackedPR(1, models.StatusMerged, day(1)))
	repo.AddPR(trackedPR(3, models.StatusOpen, day(5)))
	repo.AddPR(trackedPR(4, models.StatusOpen, day(2)))
	repositories := map[string]*models.Repository{"acme/widgets": repo}

	candidates := []candidate{
		{repoName: "acme/widgets", number: 1},
		{repoName: "acme/widgets", number: 4},
		{repoName: "acme/widgets", number: 2}, // unknown, counts as new
		{repoName: "acme/widgets", number: 3},
	}

	sortByPriority(candidates, repositories)

	var order []int
	for _, c := range candidates {
		order = append(order, c.number)
	}
	// New first, then known open by freshness, merged last.
	assert.Equal(t, []int{2, 3, 4, 1}, order)
}

func TestDetermineStatus(t *testing.T) {
	testCases := []struct {
		name string
		pr   *gh.PullRequest
		want string
	}{
		{"merged", &gh.PullRequest{Merged: gh.Bool(true), State: gh.String("closed")}, models.StatusMerged},
		{"closed unmerged", &gh.PullRequest{Merged: gh.Bool(false), State: gh.String("closed")}, models.StatusClosed},
		{"draft", &gh.PullRequest{State: gh.String("open"), Draft: gh.Bool(true)}, models.StatusDraft},
		{"open", &gh.PullRequest{State: gh.String("open")}, models.StatusOpen},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, determineStatus(tc.pr))
		})
	}
}

func TestRepoFullName(t *testing.T) {
	name, ok := repoFullName("https://api.github.com/repos/acme/widgets")
	require.True(t, ok)
	assert.Equal(t, "acme/widgets", name)

	name, ok = repoFullName("https://api.github.com/repos/acme/widgets/")
	require.True(t, ok)
	assert.Equal(t, "acme/widgets", name)

	_, ok = repoFullName("")
	assert.False(t, ok)
}

func TestParsePRRef(t *testing.T) {
	ref, err := ParsePRRef("acme/widgets#42")
	require.NoError(t, err)
	assert.Equal(t, PRRef{Repository: "acme/widgets", Number: 42}, ref)

	for _, bad := range []string{"acme/widgets", "widgets#42", "acme/widgets#0", "acme/widgets#abc"} {
		_, err := ParsePRRef(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestRunNotModifiedKeepsRecord(t *testing.T) {
	const etag = `W/"abc123"`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search/issues"):
			fmt.Fprint(w, `{"total_count":1,"incomplete_results":false,"items":[
				{"number":42,"title":"Fix typos found by codespell","repository_url":"https://api.github.com/repos/acme/widgets"}
			]}`)
		case r.URL.Path == "/repos/acme/widgets/pulls/42":
			if r.Header.Get("If-None-Match") != etag {
				t.Errorf("expected conditional request with etag, got %q", r.Header.Get("If-None-Match"))
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNotModified)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dataFile := filepath.Join(t.TempDir(), "repositories.json")
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seeded := trackedPR(42, models.StatusOpen, updated)
	seeded.Tool = "codespell"
	seeded.Title = "Fix typos found by codespell"
	seeded.Author = "alice"
	seeded.ETag = etag

	repo := models.NewRepository("acme", "widgets")
	repo.AddPR(seeded)
	require.NoError(t, store.Save(dataFile, map[string]*models.Repository{"acme/widgets": repo}, nil))

	cfg := config.Default()
	cfg.GitHubToken = "test-token"
	cfg.APIBaseURL = srv.URL
	cfg.DataFile = dataFile
	cfg.TrackedUsers = []string{"alice"}

	run, err := Run(context.Background(), cfg, true)
	require.NoError(t, err)

	// A 304 is not new data: nothing counted, nothing processed.
	assert.Zero(t, run.TotalProcessed)
	assert.Zero(t, run.NewPRs)
	assert.Zero(t, run.UpdatedPRs)
	assert.Empty(t, run.Errors)

	// The stored record survives untouched, etag included.
	loaded, _, err := store.Load(dataFile)
	require.NoError(t, err)
	got := loaded["acme/widgets"].PRs[42]
	require.NotNil(t, got)
	assert.Equal(t, *seeded, *got)
}

func TestLookupPR(t *testing.T) {
	repo := models.NewRepository("acme", "widgets")
	pr := trackedPR(7, models.StatusOpen, time.Now())
	repo.AddPR(pr)
	repositories := map[string]*models.Repository{"acme/widgets": repo}

	assert.Equal(t, pr, lookupPR(repositories, "acme/widgets", 7))
	assert.Nil(t, lookupPR(repositories, "acme/widgets", 8))
	assert.Nil(t, lookupPR(repositories, "other/repo", 7))
}
