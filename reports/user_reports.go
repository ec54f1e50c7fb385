package reports

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/perbu/pr-tracker/models"
)

// GenerateUserReports writes one markdown file per tracked user listing all
// of their PRs, open work first, newest first within each group.
func GenerateUserReports(repositories map[string]*models.Repository, outputDir string, trackedUsers []string) error {
	for _, user := range trackedUsers {
		var prs []*models.PullRequest
		for _, repo := range repositories {
			for _, pr := range repo.PRs {
				if pr.Author == user {
					prs = append(prs, pr)
				}
			}
		}

		sort.Slice(prs, func(i, j int) bool {
			ai, aj := prs[i].IsActive(), prs[j].IsActive()
			if ai != aj {
				return ai
			}
			return prs[i].UpdatedAt.After(prs[j].UpdatedAt)
		})

		content := renderUserReport(user, prs)
		path := filepath.Join(outputDir, user+".md")
		if err := writeIfChanged(path, content); err != nil {
			return err
		}
	}
	return nil
}

func renderUserReport(user string, prs []*models.PullRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# PRs by %s\n\n", user)
	fmt.Fprintf(&b, "*Generated: %s*\n\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "Total: %d\n\n", len(prs))

	if len(prs) == 0 {
		b.WriteString("No tracked PRs.\n")
		return b.String()
	}

	b.WriteString("| PR | Title | Tool | Status | Response | Waiting |\n")
	b.WriteString("|----|-------|------|--------|----------|--------|\n")
	for _, pr := range prs {
		waiting := ""
		if pr.DaysAwaitingSubmitter != nil {
			waiting = fmt.Sprintf("%dd", *pr.DaysAwaitingSubmitter)
		}
		fmt.Fprintf(&b, "| [%s#%d](%s) | %s | %s | %s | %s | %s |\n",
			pr.Repository, pr.Number, pr.URL,
			sanitizeAndTruncate(pr.Title, 60),
			pr.Tool, pr.Status, pr.ResponseStatus, waiting)
	}

	return b.String()
}
