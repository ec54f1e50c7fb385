// Package export produces JSON or CSV views of the tracked PRs for
// downstream processing, such as drafting responses with an AI assistant.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/perbu/pr-tracker/models"
)

// PRRecord is one exported PR row.
type PRRecord struct {
	Repository            string `json:"repository"`
	Number                int    `json:"number"`
	URL                   string `json:"url"`
	Title                 string `json:"title"`
	Author                string `json:"author"`
	Tool                  string `json:"tool"`
	Status                string `json:"status"`
	ResponseStatus        string `json:"response_status"`
	DaysAwaitingSubmitter *int   `json:"days_awaiting_submitter,omitempty"`
	LastCommentAuthor     string `json:"last_comment_author,omitempty"`
	LastDeveloperComment  string `json:"last_developer_comment,omitempty"`
	CIStatus              string `json:"ci_status,omitempty"`
	HasConflicts          bool   `json:"has_conflicts"`
}

// Filter selects which PRs to export.
type Filter string

const (
	FilterAll           Filter = "all"
	FilterNeedsResponse Filter = "needs-response"
	FilterOpen          Filter = "open"
	FilterMerged        Filter = "merged"
)

func (f Filter) matches(pr *models.PullRequest) bool {
	switch f {
	case FilterNeedsResponse:
		return pr.IsActive() && pr.ResponseStatus == models.AwaitingSubmitter
	case FilterOpen:
		return pr.IsActive()
	case FilterMerged:
		return pr.Status == models.StatusMerged
	default:
		return true
	}
}

// Export renders the filtered PR set in the requested format ("json" or
// "csv"), sorted by repository and PR number for stable output.
func Export(repositories map[string]*models.Repository, filter Filter, format string) (string, error) {
	switch filter {
	case FilterAll, FilterNeedsResponse, FilterOpen, FilterMerged:
	default:
		return "", fmt.Errorf("unknown export filter %q", filter)
	}

	var records []PRRecord
	for _, repo := range repositories {
		for _, pr := range repo.PRs {
			if !filter.matches(pr) {
				continue
			}
			records = append(records, PRRecord{
				Repository:            pr.Repository,
				Number:                pr.Number,
				URL:                   pr.URL,
				Title:                 pr.Title,
				Author:                pr.Author,
				Tool:                  pr.Tool,
				Status:                pr.Status,
				ResponseStatus:        pr.ResponseStatus,
				DaysAwaitingSubmitter: pr.DaysAwaitingSubmitter,
				LastCommentAuthor:     pr.LastCommentAuthor,
				LastDeveloperComment:  pr.LastDeveloperCommentBody,
				CIStatus:              pr.CIStatus,
				HasConflicts:          pr.HasConflicts,
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Repository != records[j].Repository {
			return records[i].Repository < records[j].Repository
		}
		return records[i].Number < records[j].Number
	})

	switch format {
	case "csv":
		return formatCSV(records)
	case "json":
		return formatJSON(records)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

func formatJSON(records []PRRecord) (string, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatCSV(records []PRRecord) (string, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	header := []string{
		"Repository", "Number", "URL", "Title", "Author", "Tool",
		"Status", "Response Status", "Days Awaiting", "Last Comment Author",
		"Last Developer Comment", "CI Status", "Has Conflicts",
	}
	if err := writer.Write(header); err != nil {
		return "", err
	}

	for _, r := range records {
		days := ""
		if r.DaysAwaitingSubmitter != nil {
			days = fmt.Sprintf("%d", *r.DaysAwaitingSubmitter)
		}
		record := []string{
			r.Repository,
			fmt.Sprintf("%d", r.Number),
			r.URL,
			r.Title,
			r.Author,
			r.Tool,
			r.Status,
			r.ResponseStatus,
			days,
			r.LastCommentAuthor,
			r.LastDeveloperComment,
			r.CIStatus,
			fmt.Sprintf("%t", r.HasConflicts),
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}

	writer.Flush()
	return buf.String(), writer.Error()
}
