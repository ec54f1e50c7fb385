package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/perbu/pr-tracker/config"
	"github.com/perbu/pr-tracker/github"
	"github.com/perbu/pr-tracker/store"
)

// PRRef identifies one PR for targeted reanalysis.
type PRRef struct {
	Repository string
	Number     int
}

// ParsePRRef parses the "owner/repo#number" form.
func ParsePRRef(s string) (PRRef, error) {
	repoName, numStr, found := strings.Cut(s, "#")
	if !found || !strings.Contains(repoName, "/") {
		return PRRef{}, fmt.Errorf("invalid PR reference %q (want owner/repo#number)", s)
	}
	number, err := strconv.Atoi(numStr)
	if err != nil || number < 1 {
		return PRRef{}, fmt.Errorf("invalid PR number in %q", s)
	}
	return PRRef{Repository: repoName, Number: number}, nil
}

// Reanalyze re-runs the comment and file analysis for specific PRs already
// in the model, without a full discovery pass. Used to correct misclassified
// engagement after extending the bot tables. PR core metadata is not
// re-fetched.
func Reanalyze(ctx context.Context, cfg *config.Config, refs []PRRef) error {
	client := github.NewClient(cfg.GitHubToken, cfg.RateLimitThreshold, cfg.APIBaseURL)

	repositories, lastRun, err := store.Load(cfg.DataFile)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		repo, ok := repositories[ref.Repository]
		if !ok {
			log.Warnf("repository %s not in model, skipping", ref.Repository)
			continue
		}
		pr, ok := repo.PRs[ref.Number]
		if !ok {
			log.Warnf("PR %s#%d not in model, skipping", ref.Repository, ref.Number)
			continue
		}

		log.Infof("reanalyzing %s#%d", ref.Repository, ref.Number)
		if err := analyzeComments(ctx, client, repo, pr); err != nil {
			return err
		}
		if err := analyzeFiles(ctx, client, repo, pr); err != nil {
			return err
		}

		repo.RecalculateMetrics()
	}

	return store.Save(cfg.DataFile, repositories, lastRun)
}
