package reports

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/perbu/pr-tracker/models"
)

// GenerateResponsivenessReports writes one markdown file per behavior
// category listing the repositories in it, including the last maintainer
// feedback on PRs that are waiting on the submitter.
func GenerateResponsivenessReports(repositories map[string]*models.Repository, outputDir string, overrides map[string]string) error {
	byCategory := make(map[string][]*models.Repository)
	for _, repo := range repositories {
		cat := effectiveCategory(repo, overrides)
		byCategory[cat] = append(byCategory[cat], repo)
	}

	for _, cat := range behaviorOrder {
		repos := byCategory[cat]
		sort.Slice(repos, func(i, j int) bool {
			return repos[i].FullName() < repos[j].FullName()
		})

		content := renderCategorySummary(cat, repos)
		path := filepath.Join(outputDir, cat+".md")
		if err := writeIfChanged(path, content); err != nil {
			return err
		}
	}
	return nil
}

func renderCategorySummary(category string, repos []*models.Repository) string {
	info := behaviorMeta[category]

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Repositories\n\n", info.display)
	fmt.Fprintf(&b, "%s\n\n", info.description)
	fmt.Fprintf(&b, "*Generated: %s*\n\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))

	if len(repos) == 0 {
		b.WriteString("None.\n")
		return b.String()
	}

	for _, repo := range repos {
		fmt.Fprintf(&b, "## [%s](%s)\n\n", repo.FullName(), repo.URL)
		fmt.Fprintf(&b, "- PRs: %d (merged %d, open %d, closed %d)\n",
			repo.TotalPRs(), repo.MergedCount(), repo.OpenCount(), repo.ClosedCount())
		fmt.Fprintf(&b, "- Acceptance rate: %.0f%%\n", repo.PRAcceptanceRate*100)
		if repo.AvgTimeToFirstResponseHours != nil {
			fmt.Fprintf(&b, "- Avg time to first response: %.1fh\n", *repo.AvgTimeToFirstResponseHours)
		}
		b.WriteString("\n")

		writeAwaitingSection(&b, repo)
	}

	return b.String()
}

func writeAwaitingSection(b *strings.Builder, repo *models.Repository) {
	var waiting []*models.PullRequest
	for _, pr := range repo.PRs {
		if pr.IsActive() && pr.ResponseStatus == models.AwaitingSubmitter {
			waiting = append(waiting, pr)
		}
	}
	if len(waiting) == 0 {
		return
	}
	sort.Slice(waiting, func(i, j int) bool { return waiting[i].Number < waiting[j].Number })

	b.WriteString("Awaiting submitter response:\n\n")
	for _, pr := range waiting {
		fmt.Fprintf(b, "- [#%d](%s) %s", pr.Number, pr.URL, sanitizeAndTruncate(pr.Title, 60))
		if pr.LastDeveloperCommentBody != "" {
			fmt.Fprintf(b, "\n  > %s", sanitizeAndTruncate(pr.LastDeveloperCommentBody, 200))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
