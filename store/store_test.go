package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/pr-tracker/models"
)

func sampleRepositories() map[string]*models.Repository {
	repo := models.NewRepository("acme", "widgets")
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.AddPR(&models.PullRequest{
		Number:         42,
		Repository:     "acme/widgets",
		Platform:       "github",
		URL:            "https://github.com/acme/widgets/pull/42",
		Tool:           "codespell",
		Title:          "Fix typos",
		Author:         "alice",
		CreatedAt:      created,
		UpdatedAt:      created.Add(time.Hour),
		Status:         models.StatusOpen,
		CommitCount:    1,
		FilesChanged:   2,
		AdoptionLevel:  models.TypoFixes,
		ResponseStatus: models.NoResponse,
		ETag:           `W/"etag42"`,
	})
	repo.RecalculateMetrics()
	return map[string]*models.Repository{"acme/widgets": repo}
}

func TestLoadMissingFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")

	repos, lastRun, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, repos)
	assert.NotNil(t, repos)
	assert.Nil(t, lastRun)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "repositories.json")
	repositories := sampleRepositories()

	run := models.NewDiscoveryRun(models.ModeNormal)
	run.NewPRs = 1
	completed := run.StartedAt.Add(time.Minute)
	run.CompletedAt = &completed

	require.NoError(t, Save(path, repositories, run))

	loaded, lastRun, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, loaded, "acme/widgets")

	got := loaded["acme/widgets"].PRs[42]
	require.NotNil(t, got)
	assert.Equal(t, *repositories["acme/widgets"].PRs[42], *got)

	require.NotNil(t, lastRun)
	assert.Equal(t, 1, lastRun.NewPRs)
	assert.True(t, lastRun.StartedAt.Equal(run.StartedAt))
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repositories.json")

	require.NoError(t, Save(path, sampleRepositories(), nil))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveWritesVersionedMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")
	require.NoError(t, Save(path, sampleRepositories(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "meta")
	require.Contains(t, raw, "repositories")

	var m struct {
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(raw["meta"], &m))
	assert.Equal(t, ModelVersion, m.Version)
}

func TestLoadVersionMismatchIsAdvisory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")
	content := `{"meta":{"version":"0.9","last_updated":"2024-03-01T00:00:00Z"},"repositories":{}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	repos, lastRun, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, repos)
	assert.Nil(t, lastRun)
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, _, err := Load(path)
	assert.Error(t, err)
}
