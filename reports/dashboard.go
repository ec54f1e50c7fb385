package reports

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/perbu/pr-tracker/models"
)

type behaviorInfo struct {
	display     string
	description string
}

var behaviorMeta = map[string]behaviorInfo{
	models.Welcoming:        {"Welcoming", "Fast response, high acceptance rate"},
	models.Selective:        {"Selective", "Reviews carefully before accepting"},
	models.Unresponsive:     {"Unresponsive", "Slow or no response"},
	models.Hostile:          {"Hostile", "Quick rejection without engagement"},
	models.InsufficientData: {"Insufficient Data", "Not enough PRs to categorize reliably"},
}

var behaviorOrder = []string{
	models.Welcoming,
	models.Selective,
	models.Unresponsive,
	models.Hostile,
	models.InsufficientData,
}

// GenerateDashboard renders the top-level README with per-user and
// per-category summaries. overrides maps repository full names to manually
// assigned behavior categories.
func GenerateDashboard(repositories map[string]*models.Repository, outputPath string, trackedUsers []string, overrides map[string]string) error {
	var b strings.Builder

	b.WriteString("# PR Tracker Dashboard\n\n")
	b.WriteString("Tracking automation tool PRs (codespell, shellcheck) across GitHub repositories.\n\n")
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "*Last updated: %s*\n\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))

	totalPRs, totalMerged, totalOpen := 0, 0, 0
	for _, repo := range repositories {
		totalPRs += repo.TotalPRs()
		totalMerged += repo.MergedCount()
		totalOpen += repo.OpenCount()
	}

	fmt.Fprintf(&b, "- **Repositories tracked**: %d\n", len(repositories))
	fmt.Fprintf(&b, "- **Total PRs**: %d\n", totalPRs)
	fmt.Fprintf(&b, "- **Merged**: %d\n", totalMerged)
	fmt.Fprintf(&b, "- **Open**: %d\n\n", totalOpen)

	writeContributorTable(&b, repositories, trackedUsers)
	writeCategorySections(&b, repositories, overrides)

	return writeIfChanged(outputPath, b.String())
}

func writeContributorTable(b *strings.Builder, repositories map[string]*models.Repository, trackedUsers []string) {
	type userStats struct{ total, draft, open, merged, closed int }
	stats := make(map[string]*userStats)
	for _, user := range trackedUsers {
		stats[user] = &userStats{}
	}
	for _, repo := range repositories {
		for _, pr := range repo.PRs {
			s, ok := stats[pr.Author]
			if !ok {
				continue
			}
			s.total++
			switch pr.Status {
			case models.StatusDraft:
				s.draft++
			case models.StatusOpen:
				s.open++
			case models.StatusMerged:
				s.merged++
			case models.StatusClosed:
				s.closed++
			}
		}
	}

	b.WriteString("## Contributors\n\n")
	b.WriteString("| User | Total | Draft | Open | Merged | Closed |\n")
	b.WriteString("|------|-------|-------|------|--------|--------|\n")

	users := make([]string, len(trackedUsers))
	copy(users, trackedUsers)
	sort.Strings(users)
	for _, user := range users {
		s := stats[user]
		fmt.Fprintf(b, "| %s | %d | %d | %d | %d | %d |\n",
			user, s.total, s.draft, s.open, s.merged, s.closed)
	}
	b.WriteString("\n")
}

// effectiveCategory applies a manual override when one exists.
func effectiveCategory(repo *models.Repository, overrides map[string]string) string {
	if cat, ok := overrides[repo.FullName()]; ok {
		return cat
	}
	return repo.BehaviorCategory
}

func writeCategorySections(b *strings.Builder, repositories map[string]*models.Repository, overrides map[string]string) {
	byCategory := make(map[string][]*models.Repository)
	for _, repo := range repositories {
		cat := effectiveCategory(repo, overrides)
		byCategory[cat] = append(byCategory[cat], repo)
	}

	b.WriteString("## Repositories by Behavior\n\n")

	for _, cat := range behaviorOrder {
		repos := byCategory[cat]
		if len(repos) == 0 {
			continue
		}
		sort.Slice(repos, func(i, j int) bool {
			return repos[i].FullName() < repos[j].FullName()
		})

		info := behaviorMeta[cat]
		fmt.Fprintf(b, "### %s (%d)\n\n", info.display, len(repos))
		fmt.Fprintf(b, "%s\n\n", info.description)
		b.WriteString("| Repository | PRs | Merged | Acceptance | Avg Response |\n")
		b.WriteString("|------------|-----|--------|------------|--------------|\n")
		for _, repo := range repos {
			avg := "–"
			if repo.AvgTimeToFirstResponseHours != nil {
				avg = fmt.Sprintf("%.1fh", *repo.AvgTimeToFirstResponseHours)
			}
			fmt.Fprintf(b, "| [%s](%s) | %d | %d | %.0f%% | %s |\n",
				repo.FullName(), repo.URL, repo.TotalPRs(), repo.MergedCount(),
				repo.PRAcceptanceRate*100, avg)
		}
		b.WriteString("\n")
	}
}
