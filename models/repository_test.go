package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoWithPRs(prs ...*PullRequest) *Repository {
	repo := NewRepository("acme", "widgets")
	for _, pr := range prs {
		repo.AddPR(pr)
	}
	return repo
}

func mergedPR(number int, responseHours float64) *PullRequest {
	pr := validPR()
	pr.Number = number
	pr.Status = StatusMerged
	t := pr.CreatedAt.Add(time.Hour)
	pr.MergedAt = &t
	pr.TimeToFirstResponseHours = &responseHours
	return pr
}

func closedPR(number int, responseHours float64) *PullRequest {
	pr := validPR()
	pr.Number = number
	pr.Status = StatusClosed
	t := pr.CreatedAt.Add(time.Hour)
	pr.ClosedAt = &t
	pr.TimeToFirstResponseHours = &responseHours
	return pr
}

func TestAddPRToolIndex(t *testing.T) {
	repo := NewRepository("acme", "widgets")

	pr := validPR()
	pr.Tool = "codespell"
	repo.AddPR(pr)
	repo.AddPR(pr) // re-adding must not duplicate the index entry

	assert.Equal(t, []int{42}, repo.CodespellPRs)
	assert.Empty(t, repo.ShellcheckPRs)
	assert.Len(t, repo.PRs, 1)

	other := validPR()
	other.Number = 43
	other.Tool = "shellcheck"
	repo.AddPR(other)
	assert.Equal(t, []int{43}, repo.ShellcheckPRs)
}

func TestRecalculateMetricsEmpty(t *testing.T) {
	repo := NewRepository("acme", "widgets")
	repo.RecalculateMetrics()

	assert.Equal(t, InsufficientData, repo.BehaviorCategory)
	assert.Zero(t, repo.PRAcceptanceRate)
	assert.Nil(t, repo.AvgTimeToFirstResponseHours)
}

func TestRecalculateMetricsIdempotent(t *testing.T) {
	repo := repoWithPRs(mergedPR(1, 10), closedPR(2, 30))

	repo.RecalculateMetrics()
	category := repo.BehaviorCategory
	rate := repo.PRAcceptanceRate
	require.NotNil(t, repo.AvgTimeToFirstResponseHours)
	avg := *repo.AvgTimeToFirstResponseHours

	repo.RecalculateMetrics()
	assert.Equal(t, category, repo.BehaviorCategory)
	assert.Equal(t, rate, repo.PRAcceptanceRate)
	assert.Equal(t, avg, *repo.AvgTimeToFirstResponseHours)
}

func TestBehaviorCategories(t *testing.T) {
	testCases := []struct {
		name string
		repo *Repository
		want string
	}{
		{
			name: "single PR is insufficient data",
			repo: repoWithPRs(mergedPR(1, 1)),
			want: InsufficientData,
		},
		{
			name: "two merged PRs with fast response are welcoming",
			repo: repoWithPRs(mergedPR(1, 1), mergedPR(2, 1)),
			want: Welcoming,
		},
		{
			name: "partial acceptance is selective",
			repo: repoWithPRs(mergedPR(1, 100), closedPR(2, 100), closedPR(3, 100)),
			want: Selective,
		},
		{
			name: "fast rejection without merges is hostile",
			repo: repoWithPRs(closedPR(1, 2), closedPR(2, 3)),
			want: Hostile,
		},
		{
			name: "no responses at all is unresponsive",
			repo: func() *Repository {
				a := validPR()
				a.Number = 1
				b := validPR()
				b.Number = 2
				return repoWithPRs(a, b)
			}(),
			want: Unresponsive,
		},
		{
			name: "slow rejection is unresponsive",
			repo: repoWithPRs(closedPR(1, 200), closedPR(2, 300)),
			want: Unresponsive,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.repo.RecalculateMetrics()
			assert.Equal(t, tc.want, tc.repo.BehaviorCategory)
		})
	}
}

func TestAcceptanceRate(t *testing.T) {
	repo := repoWithPRs(mergedPR(1, 1), closedPR(2, 1), closedPR(3, 1), mergedPR(4, 1))
	repo.RecalculateMetrics()
	assert.InDelta(t, 0.5, repo.PRAcceptanceRate, 1e-9)
}

func TestValidateToolIndexConsistency(t *testing.T) {
	repo := NewRepository("acme", "widgets")
	repo.CodespellPRs = []int{7}

	errs := repo.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "tool index")
}
