package models

import (
	"fmt"
	"time"
)

// Behavior categories summarizing how a repository treats incoming PRs.
const (
	Welcoming        = "welcoming"
	Selective        = "selective"
	Unresponsive     = "unresponsive"
	Hostile          = "hostile"
	InsufficientData = "insufficient_data"
)

// Repository is a target repository that received tracked PRs, together with
// aggregate metrics recomputed from the owned PR set.
type Repository struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	URL      string `json:"url"`

	PRs map[int]*PullRequest `json:"prs"`

	// Per-tool membership indexes (PR numbers, append-only).
	CodespellPRs  []int `json:"codespell_prs"`
	ShellcheckPRs []int `json:"shellcheck_prs"`
	OtherPRs      []int `json:"other_prs"`

	Accessible bool `json:"accessible"`

	AvgTimeToFirstResponseHours *float64 `json:"avg_time_to_first_response_hours"`
	PRAcceptanceRate            float64  `json:"pr_acceptance_rate"`
	AvgEngagementLevel          float64  `json:"avg_engagement_level"`
	BehaviorCategory            string   `json:"behavior_category"`

	LastCheckedAt       *time.Time `json:"last_checked_at"`
	RepositoryUpdatedAt *time.Time `json:"repository_updated_at"`
}

// NewRepository creates an empty repository record for owner/name.
func NewRepository(owner, name string) *Repository {
	return &Repository{
		Owner:            owner,
		Name:             name,
		Platform:         "github",
		URL:              fmt.Sprintf("https://github.com/%s/%s", owner, name),
		PRs:              make(map[int]*PullRequest),
		Accessible:       true,
		BehaviorCategory: InsufficientData,
	}
}

// FullName returns the owner/name form.
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r *Repository) TotalPRs() int { return len(r.PRs) }

func (r *Repository) countStatus(status string) int {
	n := 0
	for _, pr := range r.PRs {
		if pr.Status == status {
			n++
		}
	}
	return n
}

func (r *Repository) MergedCount() int { return r.countStatus(StatusMerged) }
func (r *Repository) OpenCount() int   { return r.countStatus(StatusOpen) }
func (r *Repository) DraftCount() int  { return r.countStatus(StatusDraft) }
func (r *Repository) ClosedCount() int { return r.countStatus(StatusClosed) }

// AddPR inserts or replaces a PR by number and records it in the per-tool
// index for its classification.
func (r *Repository) AddPR(pr *PullRequest) {
	if r.PRs == nil {
		r.PRs = make(map[int]*PullRequest)
	}
	r.PRs[pr.Number] = pr

	switch pr.Tool {
	case "codespell":
		r.CodespellPRs = appendIfAbsent(r.CodespellPRs, pr.Number)
	case "shellcheck":
		r.ShellcheckPRs = appendIfAbsent(r.ShellcheckPRs, pr.Number)
	default:
		r.OtherPRs = appendIfAbsent(r.OtherPRs, pr.Number)
	}
}

func appendIfAbsent(nums []int, n int) []int {
	for _, existing := range nums {
		if existing == n {
			return nums
		}
	}
	return append(nums, n)
}

// RecalculateMetrics recomputes all aggregate metrics from the owned PR set.
// Always a full recompute, never an incremental patch.
func (r *Repository) RecalculateMetrics() {
	if len(r.PRs) == 0 {
		r.AvgTimeToFirstResponseHours = nil
		r.PRAcceptanceRate = 0
		r.AvgEngagementLevel = 0
		r.BehaviorCategory = InsufficientData
		return
	}

	total := len(r.PRs)
	r.PRAcceptanceRate = float64(r.MergedCount()) / float64(total)

	var responseSum float64
	responseCount := 0
	totalComments := 0
	for _, pr := range r.PRs {
		if pr.TimeToFirstResponseHours != nil {
			responseSum += *pr.TimeToFirstResponseHours
			responseCount++
		}
		totalComments += pr.TotalComments
	}

	if responseCount > 0 {
		avg := responseSum / float64(responseCount)
		r.AvgTimeToFirstResponseHours = &avg
	} else {
		r.AvgTimeToFirstResponseHours = nil
	}

	r.AvgEngagementLevel = float64(totalComments) / float64(total)
	r.BehaviorCategory = r.categorizeBehavior()
}

// categorizeBehavior applies the behavior rules in order; the first match
// wins and "unresponsive" is the governing catch-all.
func (r *Repository) categorizeBehavior() string {
	if r.TotalPRs() < 2 {
		return InsufficientData
	}

	if r.AvgTimeToFirstResponseHours != nil &&
		*r.AvgTimeToFirstResponseHours < 72 &&
		r.PRAcceptanceRate > 0.7 {
		return Welcoming
	}

	if r.PRAcceptanceRate > 0.3 {
		return Selective
	}

	if r.PRAcceptanceRate == 0 &&
		r.AvgTimeToFirstResponseHours != nil &&
		*r.AvgTimeToFirstResponseHours < 24 {
		return Hostile
	}

	return Unresponsive
}

// Validate checks model invariants and returns human-readable violations.
func (r *Repository) Validate() []string {
	var errs []string

	if r.PRAcceptanceRate < 0 || r.PRAcceptanceRate > 1 {
		errs = append(errs, fmt.Sprintf(
			"pr_acceptance_rate must be between 0.0 and 1.0, got %v", r.PRAcceptanceRate))
	}

	switch r.BehaviorCategory {
	case Welcoming, Selective, Unresponsive, Hostile, InsufficientData:
	default:
		errs = append(errs, fmt.Sprintf("invalid behavior_category: %q", r.BehaviorCategory))
	}

	for _, num := range concat(r.CodespellPRs, r.ShellcheckPRs, r.OtherPRs) {
		if _, ok := r.PRs[num]; !ok {
			errs = append(errs, fmt.Sprintf("PR number %d in tool index but not in prs map", num))
		}
	}

	return errs
}

func concat(lists ...[]int) []int {
	var out []int
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
