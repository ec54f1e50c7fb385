package models

import (
	"fmt"
	"time"
)

// PR lifecycle status.
const (
	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusMerged = "merged"
	StatusClosed = "closed"
)

// Response status: which party is expected to act next.
const (
	AwaitingSubmitter  = "awaiting_submitter"
	AwaitingMaintainer = "awaiting_maintainer"
	NoResponse         = "no_response"
)

// Adoption level of the automation a PR introduces.
const (
	FullAutomation = "full_automation"
	ConfigOnly     = "config_only"
	TypoFixes      = "typo_fixes"
	Rejected       = "rejected"
)

// CI tri-state (empty string means unknown).
const (
	CISuccess = "success"
	CIFailure = "failure"
	CIPending = "pending"
)

// PullRequest is a single tracked PR submission with all derived metadata.
type PullRequest struct {
	Number     int    `json:"number"`
	Repository string `json:"repository"` // "owner/repo"
	Platform   string `json:"platform"`
	URL        string `json:"url"`

	Tool   string `json:"tool"`
	Title  string `json:"title"`
	Author string `json:"author"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	MergedAt  *time.Time `json:"merged_at"`
	ClosedAt  *time.Time `json:"closed_at"`

	Status string `json:"status"`

	CommitCount  int `json:"commit_count"`
	FilesChanged int `json:"files_changed"`

	AutomationTypes []string `json:"automation_types"`
	AdoptionLevel   string   `json:"adoption_level"`

	TotalComments      int `json:"total_comments"`
	SubmitterComments  int `json:"submitter_comments"`
	MaintainerComments int `json:"maintainer_comments"`
	BotComments        int `json:"bot_comments"`

	LastCommentAuthor       string     `json:"last_comment_author"`
	LastCommentIsMaintainer bool       `json:"last_comment_is_maintainer"`
	LastMaintainerCommentAt *time.Time `json:"last_maintainer_comment_at"`

	TimeToFirstResponseHours *float64 `json:"time_to_first_response_hours"`
	DaysAwaitingSubmitter    *int     `json:"days_awaiting_submitter"`
	ResponseStatus           string   `json:"response_status"`

	ETag          string     `json:"etag"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`

	// Body of the last human maintainer comment, exported as context for
	// AI-assisted responses. Never populated from bot or submitter comments.
	LastDeveloperCommentBody string `json:"last_developer_comment_body"`

	HasConflicts        bool   `json:"has_conflicts"`
	CIStatus            string `json:"ci_status"`
	MainBranchCI        string `json:"main_branch_ci"`
	CodespellWorkflowCI string `json:"codespell_workflow_ci"`
}

// IsActive reports whether the PR is still draft or open.
func (pr *PullRequest) IsActive() bool {
	return pr.Status == StatusDraft || pr.Status == StatusOpen
}

// FreshnessScore is the last-known activity timestamp, used as a priority
// sort key (higher = more recent).
func (pr *PullRequest) FreshnessScore() int64 {
	return pr.UpdatedAt.Unix()
}

// Validate checks model invariants and returns human-readable violations.
func (pr *PullRequest) Validate() []string {
	var errs []string

	switch pr.Status {
	case StatusDraft, StatusOpen, StatusMerged, StatusClosed:
	default:
		errs = append(errs, fmt.Sprintf("invalid status: %q", pr.Status))
	}

	switch pr.ResponseStatus {
	case AwaitingSubmitter, AwaitingMaintainer, NoResponse:
	default:
		errs = append(errs, fmt.Sprintf("invalid response_status: %q", pr.ResponseStatus))
	}

	switch pr.AdoptionLevel {
	case FullAutomation, ConfigOnly, TypoFixes, Rejected:
	default:
		errs = append(errs, fmt.Sprintf("invalid adoption_level: %q", pr.AdoptionLevel))
	}

	if pr.Status == StatusMerged && pr.MergedAt == nil {
		errs = append(errs, "merged PR must have merged_at timestamp")
	}

	counted := pr.SubmitterComments + pr.MaintainerComments + pr.BotComments
	if pr.TotalComments < counted {
		errs = append(errs, fmt.Sprintf(
			"total_comments (%d) < sum of categories (%d)", pr.TotalComments, counted))
	}

	if pr.CommitCount < 1 {
		errs = append(errs, fmt.Sprintf("commit_count must be >= 1, got %d", pr.CommitCount))
	}
	if pr.FilesChanged < 1 {
		errs = append(errs, fmt.Sprintf("files_changed must be >= 1, got %d", pr.FilesChanged))
	}

	return errs
}
