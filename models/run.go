package models

import (
	"fmt"
	"strings"
	"time"
)

// Run modes.
const (
	ModeNormal = "normal"
	ModeForce  = "force"
)

// DiscoveryRun captures metadata about a single discovery execution. The
// persisted last run doubles as the cursor for the next incremental run.
type DiscoveryRun struct {
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Mode        string     `json:"mode"`

	NewRepositories int `json:"new_repositories"`
	NewPRs          int `json:"new_prs"`
	UpdatedPRs      int `json:"updated_prs"`
	NewlyMergedPRs  int `json:"newly_merged_prs"`
	NewlyClosedPRs  int `json:"newly_closed_prs"`
	TotalProcessed  int `json:"total_processed"`

	APICallsMade       int `json:"api_calls_made"`
	RateLimitRemaining int `json:"rate_limit_remaining"`

	Errors []string `json:"errors"`
}

// NewDiscoveryRun starts a run record in the given mode.
func NewDiscoveryRun(mode string) *DiscoveryRun {
	return &DiscoveryRun{
		StartedAt:          time.Now().UTC(),
		Mode:               mode,
		RateLimitRemaining: 5000,
		Errors:             []string{},
	}
}

// AddError records a non-fatal failure on the run.
func (r *DiscoveryRun) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// CommitMessage renders the run as a git commit message summarizing what
// changed, with an error preview capped at five entries.
func (r *DiscoveryRun) CommitMessage() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Update dashboard: %d new PRs, %d merged\n\n", r.NewPRs, r.NewlyMergedPRs)
	fmt.Fprintf(&b, "- Discovered %d new repositories\n", r.NewRepositories)
	fmt.Fprintf(&b, "- Found %d new PRs across tracked repositories\n", r.NewPRs)
	fmt.Fprintf(&b, "- Updated %d existing PRs with new data\n", r.UpdatedPRs)
	fmt.Fprintf(&b, "- %d PRs newly merged since last run\n", r.NewlyMergedPRs)
	fmt.Fprintf(&b, "- %d PRs closed without merge\n", r.NewlyClosedPRs)
	fmt.Fprintf(&b, "- Processed %d PRs total\n", r.TotalProcessed)
	fmt.Fprintf(&b, "- API calls: %d, remaining quota: %d\n", r.APICallsMade, r.RateLimitRemaining)
	fmt.Fprintf(&b, "\nMode: %s\n", r.Mode)
	fmt.Fprintf(&b, "Run: %s", r.StartedAt.Format(time.RFC3339))

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\n\nErrors (%d):\n", len(r.Errors))
		for i, e := range r.Errors {
			if i == 5 {
				fmt.Fprintf(&b, "  ... and %d more\n", len(r.Errors)-5)
				break
			}
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}

	return b.String()
}

// Summary renders a short human-readable run report for the terminal.
func (r *DiscoveryRun) Summary() string {
	var b strings.Builder

	b.WriteString("Discovery complete:\n")
	fmt.Fprintf(&b, "  New repositories: %d\n", r.NewRepositories)
	fmt.Fprintf(&b, "  New PRs: %d\n", r.NewPRs)
	fmt.Fprintf(&b, "  Updated PRs: %d\n", r.UpdatedPRs)
	fmt.Fprintf(&b, "  Newly merged: %d\n", r.NewlyMergedPRs)
	fmt.Fprintf(&b, "  Newly closed: %d\n", r.NewlyClosedPRs)
	fmt.Fprintf(&b, "  Total processed: %d\n", r.TotalProcessed)
	fmt.Fprintf(&b, "  API calls: %d\n", r.APICallsMade)

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "  Errors: %d\n", len(r.Errors))
		for i, e := range r.Errors {
			if i == 5 {
				fmt.Fprintf(&b, "    ... and %d more\n", len(r.Errors)-5)
				break
			}
			fmt.Fprintf(&b, "    - %s\n", e)
		}
	}

	return b.String()
}
