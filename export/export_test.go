package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/pr-tracker/models"
)

func exportFixture() map[string]*models.Repository {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	days := 4

	widgets := models.NewRepository("acme", "widgets")
	widgets.AddPR(&models.PullRequest{
		Number: 1, Repository: "acme/widgets", Status: models.StatusOpen,
		Title: "Fix typos", Author: "alice", Tool: "codespell",
		CreatedAt: created, UpdatedAt: created,
		ResponseStatus:        models.AwaitingSubmitter,
		DaysAwaitingSubmitter: &days,
		LastCommentAuthor:     "bob",
	})
	widgets.AddPR(&models.PullRequest{
		Number: 2, Repository: "acme/widgets", Status: models.StatusOpen,
		Title: "More typos", Author: "alice", Tool: "codespell",
		CreatedAt: created, UpdatedAt: created,
		ResponseStatus: models.NoResponse,
	})

	gadgets := models.NewRepository("acme", "gadgets")
	gadgets.AddPR(&models.PullRequest{
		Number: 9, Repository: "acme/gadgets", Status: models.StatusMerged,
		Title: "shellcheck fixes", Author: "alice", Tool: "shellcheck",
		CreatedAt: created, UpdatedAt: created,
		ResponseStatus: models.AwaitingSubmitter,
	})

	return map[string]*models.Repository{
		"acme/widgets": widgets,
		"acme/gadgets": gadgets,
	}
}

func TestExportJSONSorted(t *testing.T) {
	out, err := Export(exportFixture(), FilterAll, "json")
	require.NoError(t, err)

	var records []PRRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 3)

	// Sorted by repository, then number.
	assert.Equal(t, "acme/gadgets", records[0].Repository)
	assert.Equal(t, 1, records[1].Number)
	assert.Equal(t, 2, records[2].Number)
}

func TestExportFilters(t *testing.T) {
	testCases := []struct {
		filter Filter
		want   int
	}{
		{FilterAll, 3},
		{FilterOpen, 2},
		{FilterMerged, 1},
		{FilterNeedsResponse, 1}, // merged PR is not actionable
	}

	for _, tc := range testCases {
		t.Run(string(tc.filter), func(t *testing.T) {
			out, err := Export(exportFixture(), tc.filter, "json")
			require.NoError(t, err)
			var records []PRRecord
			require.NoError(t, json.Unmarshal([]byte(out), &records))
			assert.Len(t, records, tc.want)
		})
	}
}

func TestExportCSV(t *testing.T) {
	out, err := Export(exportFixture(), FilterNeedsResponse, "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Repository,Number,"))
	assert.Contains(t, lines[1], "acme/widgets,1,")
	assert.Contains(t, lines[1], ",4,") // days awaiting submitter
}

func TestExportUnknownFormat(t *testing.T) {
	_, err := Export(exportFixture(), FilterAll, "xml")
	assert.Error(t, err)
}

func TestExportUnknownFilter(t *testing.T) {
	// A typo must error out, not silently export everything.
	_, err := Export(exportFixture(), Filter("need-response"), "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need-response")
}
