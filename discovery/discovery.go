// Package discovery drives the PR discovery control loop: search, priority
// ordering, budgeted conditional fetching, analysis and checkpointing.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v56/github"
	log "github.com/sirupsen/logrus"

	"github.com/perbu/pr-tracker/analyzer"
	"github.com/perbu/pr-tracker/config"
	"github.com/perbu/pr-tracker/github"
	"github.com/perbu/pr-tracker/models"
	"github.com/perbu/pr-tracker/store"
)

// candidate is one discovered (repository, number) pair awaiting processing.
type candidate struct {
	repoName string
	number   int
	issue    *gh.Issue
}

// Run executes one discovery pass. In incremental mode only PRs updated
// since the previous run's start time are searched. Per-user and per-PR
// failures are recorded on the run and never abort it; only a rate-limit
// abort from the governor propagates, and the last checkpoint survives it.
func Run(ctx context.Context, cfg *config.Config, incremental bool) (*models.DiscoveryRun, error) {
	mode := models.ModeNormal
	if cfg.ForceMode {
		mode = models.ModeForce
	}
	run := models.NewDiscoveryRun(mode)

	client := github.NewClient(cfg.GitHubToken, cfg.RateLimitThreshold, cfg.APIBaseURL)

	repositories, lastRun, err := store.Load(cfg.DataFile)
	if err != nil {
		return nil, err
	}

	var updatedSince time.Time
	if incremental && lastRun != nil {
		updatedSince = lastRun.StartedAt
		log.Infof("incremental mode: fetching PRs updated since %s", updatedSince.Format(time.RFC3339))
	}

	candidates := searchAll(ctx, client, cfg, updatedSince, run)
	log.Infof("found %d PRs to process", len(candidates))

	sortByPriority(candidates, repositories)

	processed := 0
	for _, cand := range candidates {
		if cfg.MaxPRsPerRun > 0 && processed >= cfg.MaxPRsPerRun {
			log.Infof("reached max PRs limit (%d)", cfg.MaxPRsPerRun)
			break
		}

		// Merged PRs are terminal state, not worth re-fetching.
		if existing := lookupPR(repositories, cand.repoName, cand.number); existing != nil &&
			existing.Status == models.StatusMerged && !cfg.ForceMode {
			log.Debugf("skipping merged PR: %s#%d", cand.repoName, cand.number)
			continue
		}

		outcome, err := processPR(ctx, client, cfg, repositories, cand, run)
		if err != nil {
			var rle *github.RateLimitError
			if errors.As(err, &rle) {
				return run, err
			}
			msg := fmt.Sprintf("failed to process %s#%d: %v", cand.repoName, cand.number, err)
			log.Error(msg)
			run.Errors = append(run.Errors, msg)
			continue
		}
		if outcome == outcomeSkipped {
			// 304 or unreachable: nothing changed, nothing counted.
			continue
		}

		processed++
		run.TotalProcessed++
		if outcome == outcomeNew {
			run.NewPRs++
		} else {
			run.UpdatedPRs++
		}

		if processed%cfg.BatchSize == 0 {
			log.Infof("periodic save after %d PRs", processed)
			if err := store.Save(cfg.DataFile, repositories, run); err != nil {
				return run, err
			}
		}
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	run.APICallsMade = client.APICalls()
	run.RateLimitRemaining = client.RateLimitRemaining()

	if err := store.Save(cfg.DataFile, repositories, run); err != nil {
		return run, err
	}

	log.Infof("discovery complete: %d new PRs, %d updated, %d merged",
		run.NewPRs, run.UpdatedPRs, run.NewlyMergedPRs)

	return run, nil
}

// searchAll queries authored PRs for every tracked user. A failing user
// search is recorded and does not stop the others.
func searchAll(ctx context.Context, client *github.Client, cfg *config.Config, updatedSince time.Time, run *models.DiscoveryRun) []candidate {
	keywords := cfg.AllKeywords()

	var candidates []candidate
	for _, username := range cfg.TrackedUsers {
		results, err := client.SearchUserPRs(ctx, username, updatedSince, keywords)
		if err != nil {
			msg := fmt.Sprintf("failed to search PRs for %s: %v", username, err)
			log.Error(msg)
			run.Errors = append(run.Errors, msg)
			continue
		}
		for _, item := range results {
			repoName, ok := repoFullName(item.GetRepositoryURL())
			if !ok {
				continue
			}
			candidates = append(candidates, candidate{
				repoName: repoName,
				number:   item.GetNumber(),
				issue:    item,
			})
		}
	}
	return candidates
}

// repoFullName extracts "owner/repo" from a search result's repository API
// URL (https://api.github.com/repos/owner/repo).
func repoFullName(repoURL string) (string, bool) {
	parts := strings.Split(strings.TrimRight(repoURL, "/"), "/")
	if len(parts) < 2 {
		return "", false
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1], true
}

func lookupPR(repositories map[string]*models.Repository, repoName string, number int) *models.PullRequest {
	repo, ok := repositories[repoName]
	if !ok {
		return nil
	}
	return repo.PRs[number]
}

// sortByPriority orders candidates so the most valuable work is done first
// under a truncated budget: new PRs, then known unmerged PRs by descending
// freshness, merged PRs last.
func sortByPriority(candidates []candidate, repositories map[string]*models.Repository) {
	tierAndFreshness := func(c candidate) (int, int64) {
		existing := lookupPR(repositories, c.repoName, c.number)
		if existing == nil {
			return 0, 0
		}
		if existing.Status == models.StatusMerged {
			return 2, existing.FreshnessScore()
		}
		return 1, existing.FreshnessScore()
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ti, fi := tierAndFreshness(candidates[i])
		tj, fj := tierAndFreshness(candidates[j])
		if ti != tj {
			return ti < tj
		}
		return fi > fj
	})
}

// determineStatus maps a PR detail payload to the lifecycle status.
func determineStatus(pr *gh.PullRequest) string {
	switch {
	case pr.GetMerged():
		return models.StatusMerged
	case pr.GetState() == "closed":
		return models.StatusClosed
	case pr.GetDraft():
		return models.StatusDraft
	default:
		return models.StatusOpen
	}
}

type prOutcome int

const (
	outcomeSkipped prOutcome = iota
	outcomeNew
	outcomeUpdated
)

// processPR fetches and analyzes one PR, merging the result into the model.
// Analysis-step failures are logged and leave the already-fetched core
// fields in place; only a rate-limit abort surfaces as an error from them.
func processPR(ctx context.Context, client *github.Client, cfg *config.Config, repositories map[string]*models.Repository, cand candidate, run *models.DiscoveryRun) (prOutcome, error) {
	log.Debugf("processing %s#%d", cand.repoName, cand.number)

	repo, ok := repositories[cand.repoName]
	if !ok {
		owner, name, found := strings.Cut(cand.repoName, "/")
		if !found {
			return outcomeSkipped, fmt.Errorf("malformed repository name %q", cand.repoName)
		}
		repo = models.NewRepository(owner, name)
		repositories[cand.repoName] = repo
		run.NewRepositories++
	}

	existing := repo.PRs[cand.number]

	etag := ""
	if existing != nil {
		etag = existing.ETag
	}

	prData, newETag, modified, err := client.FetchPRDetails(ctx, repo.Owner, repo.Name, cand.number, etag)
	if err != nil {
		return outcomeSkipped, err
	}
	if !modified && existing != nil {
		// 304: existing record stays untouched and is not counted.
		log.Debugf("no changes for %s#%d", cand.repoName, cand.number)
		return outcomeSkipped, nil
	}
	if prData == nil {
		log.Warnf("could not fetch %s#%d", cand.repoName, cand.number)
		return outcomeSkipped, nil
	}

	title := prData.GetTitle()
	newStatus := determineStatus(prData)

	if existing != nil && existing.Status != newStatus {
		switch newStatus {
		case models.StatusMerged:
			run.NewlyMergedPRs++
		case models.StatusClosed:
			run.NewlyClosedPRs++
		}
	}

	now := time.Now().UTC()
	pr := &models.PullRequest{
		Number:         cand.number,
		Repository:     cand.repoName,
		Platform:       "github",
		URL:            prData.GetHTMLURL(),
		Tool:           cfg.ToolForTitle(title),
		Title:          title,
		Author:         prData.GetUser().GetLogin(),
		CreatedAt:      prData.GetCreatedAt().Time,
		UpdatedAt:      prData.GetUpdatedAt().Time,
		Status:         newStatus,
		CommitCount:    max(prData.GetCommits(), 1),
		FilesChanged:   max(prData.GetChangedFiles(), 1),
		AdoptionLevel:  models.TypoFixes,
		ResponseStatus: models.NoResponse,
		ETag:           newETag,
		LastFetchedAt:  &now,
	}
	if pr.URL == "" {
		pr.URL = fmt.Sprintf("https://github.com/%s/pull/%d", cand.repoName, cand.number)
	}
	if mergedAt := prData.MergedAt; mergedAt != nil {
		t := mergedAt.Time
		pr.MergedAt = &t
	}
	if closedAt := prData.ClosedAt; closedAt != nil {
		t := closedAt.Time
		pr.ClosedAt = &t
	}

	if err := analyzeComments(ctx, client, repo, pr); err != nil {
		return outcomeSkipped, err
	}
	if err := analyzeFiles(ctx, client, repo, pr); err != nil {
		return outcomeSkipped, err
	}

	if pr.IsActive() {
		if err := analyzeCIStatus(ctx, client, repo, pr, prData.GetHead().GetSHA()); err != nil {
			return outcomeSkipped, err
		}
	}

	repo.AddPR(pr)
	repo.RecalculateMetrics()
	repo.LastCheckedAt = &now

	if existing == nil {
		return outcomeNew, nil
	}
	return outcomeUpdated, nil
}

// fatal reports whether an analysis-step error must abort the run instead
// of being logged per-PR.
func fatal(err error) bool {
	var rle *github.RateLimitError
	return errors.As(err, &rle)
}

func analyzeComments(ctx context.Context, client *github.Client, repo *models.Repository, pr *models.PullRequest) error {
	raw, err := client.FetchPRComments(ctx, repo.Owner, repo.Name, pr.Number)
	if err != nil {
		if fatal(err) {
			return err
		}
		log.Warnf("failed to analyze comments for %s#%d: %v", pr.Repository, pr.Number, err)
		return nil
	}
	comments := analyzer.ClassifyComments(raw, pr.Author)
	analyzer.AnalyzeEngagement(comments, pr)
	return nil
}

func analyzeFiles(ctx context.Context, client *github.Client, repo *models.Repository, pr *models.PullRequest) error {
	files, err := client.FetchPRFiles(ctx, repo.Owner, repo.Name, pr.Number)
	if err != nil {
		if fatal(err) {
			return err
		}
		log.Warnf("failed to analyze files for %s#%d: %v", pr.Repository, pr.Number, err)
		return nil
	}
	pr.AutomationTypes = analyzer.DetectAutomationTypes(files)
	pr.AdoptionLevel = analyzer.DetermineAdoptionLevel(pr.AutomationTypes, pr.Status)
	return nil
}

func analyzeCIStatus(ctx context.Context, client *github.Client, repo *models.Repository, pr *models.PullRequest, headSHA string) error {
	if headSHA == "" {
		return nil
	}
	status, err := client.FetchPRStatus(ctx, repo.Owner, repo.Name, pr.Number, headSHA)
	if err != nil {
		if fatal(err) {
			return err
		}
		log.Warnf("failed to fetch CI status for %s#%d: %v", pr.Repository, pr.Number, err)
		return nil
	}
	pr.HasConflicts = status.HasConflicts
	pr.CIStatus = status.CIStatus
	pr.CodespellWorkflowCI = status.CodespellWorkflowCI

	branchCI, err := client.FetchBranchStatus(ctx, repo.Owner, repo.Name, "main")
	if err != nil {
		if fatal(err) {
			return err
		}
		log.Warnf("failed to fetch branch status for %s: %v", pr.Repository, err)
		return nil
	}
	pr.MainBranchCI = branchCI
	return nil
}
