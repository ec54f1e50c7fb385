package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v56/github"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const perPage = 100

// Client wraps the GitHub REST API for PR discovery. It owns the per-run
// API call counter and the rate-limit governor; every response is routed
// through the governor before the caller sees the payload.
type Client struct {
	gh       *github.Client
	limiter  *rate.Limiter
	governor *rateLimitGovernor
	apiCalls int
}

// NewClient creates a client authenticated with a personal access token.
// rateLimitThreshold is the remaining-quota soft pause point. A non-empty
// baseURL points the client at a GitHub Enterprise API endpoint instead of
// api.github.com.
func NewClient(token string, rateLimitThreshold int, baseURL string) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	gh := github.NewClient(tc)
	if baseURL != "" {
		// go-github requires the trailing slash.
		if u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/"); err == nil {
			gh.BaseURL = u
		}
	}

	// Conservative client-side pacing on top of the header-driven governor.
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	return &Client{
		gh:       gh,
		limiter:  limiter,
		governor: newRateLimitGovernor(rateLimitThreshold),
	}
}

// APICalls returns the number of API requests issued so far.
func (c *Client) APICalls() int {
	return c.apiCalls
}

// RateLimitRemaining returns the last-known remaining quota.
func (c *Client) RateLimitRemaining() int {
	return c.governor.remaining
}

// govern counts the call and enforces rate-limit policy on its response.
func (c *Client) govern(ctx context.Context, resp *github.Response) error {
	c.apiCalls++
	if resp == nil {
		return nil
	}
	return c.governor.checkAndWait(ctx, resp.Rate)
}

func isStatus(resp *github.Response, code int) bool {
	return resp != nil && resp.StatusCode == code
}

// SearchUserPRs returns search results for PRs authored by username, newest
// first. A zero updatedSince means no cutoff. When keywords are given, only
// PRs whose title contains one of them (case-insensitive) are kept. An
// invalid query (422) terminates the search with a warning instead of an
// error so one malformed user query cannot abort the whole run.
func (c *Client) SearchUserPRs(ctx context.Context, username string, updatedSince time.Time, keywords []string) ([]*github.Issue, error) {
	query := fmt.Sprintf("is:pr author:%s", username)
	if !updatedSince.IsZero() {
		query += fmt.Sprintf(" updated:>%s", updatedSince.Format("2006-01-02"))
	}

	log.Infof("searching PRs for user %s: %s", username, query)

	opts := &github.SearchOptions{
		Sort:  "updated",
		Order: "desc",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	var all []*github.Issue
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		result, resp, err := c.gh.Search.Issues(ctx, query, opts)
		if gerr := c.govern(ctx, resp); gerr != nil {
			return nil, gerr
		}
		if isStatus(resp, http.StatusUnprocessableEntity) {
			log.Warnf("invalid search query: %s", query)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to search PRs for %s: %w", username, err)
		}

		page := result.Issues
		if len(page) == 0 {
			break
		}

		all = append(all, filterByKeywords(page, keywords)...)

		if len(page) < perPage || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	log.Infof("found %d PRs for %s", len(all), username)
	return all, nil
}

func filterByKeywords(issues []*github.Issue, keywords []string) []*github.Issue {
	if len(keywords) == 0 {
		return issues
	}
	var kept []*github.Issue
	for _, issue := range issues {
		title := strings.ToLower(issue.GetTitle())
		for _, kw := range keywords {
			if strings.Contains(title, strings.ToLower(kw)) {
				kept = append(kept, issue)
				break
			}
		}
	}
	return kept
}

// FetchPRDetails fetches a PR with conditional request support. When etag is
// set it is sent as If-None-Match; a 304 yields (nil, etag, false, nil) and
// the caller must keep its existing record. A 404 yields (nil, "", false,
// nil): the PR is currently unreachable, not new data.
func (c *Client) FetchPRDetails(ctx context.Context, owner, repo string, number int, etag string) (*github.PullRequest, string, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", false, fmt.Errorf("rate limiter error: %w", err)
	}

	u := fmt.Sprintf("repos/%s/%s/pulls/%d", owner, repo, number)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to build PR request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	pr := new(github.PullRequest)
	resp, err := c.gh.Do(ctx, req, pr)
	if gerr := c.govern(ctx, resp); gerr != nil {
		return nil, "", false, gerr
	}

	if isStatus(resp, http.StatusNotModified) {
		return nil, etag, false, nil
	}
	if isStatus(resp, http.StatusNotFound) {
		log.Warnf("PR not found: %s/%s#%d", owner, repo, number)
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to get PR %s/%s#%d: %w", owner, repo, number, err)
	}

	return pr, resp.Header.Get("ETag"), true, nil
}

// FetchPRComments fetches all issue comments on a PR. A 404 is treated as
// "no comments", not an error.
func (c *Client) FetchPRComments(ctx context.Context, owner, repo string, number int) ([]*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	var all []*github.IssueComment
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if gerr := c.govern(ctx, resp); gerr != nil {
			return nil, gerr
		}
		if isStatus(resp, http.StatusNotFound) {
			log.Warnf("comments not found: %s/%s#%d", owner, repo, number)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list comments for %s/%s#%d: %w", owner, repo, number, err)
		}

		if len(comments) == 0 {
			break
		}
		all = append(all, comments...)

		if len(comments) < perPage || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// FetchPRFiles fetches the changed files of a PR (first page, up to 100).
// A 404 yields an empty list.
func (c *Client) FetchPRFiles(ctx context.Context, owner, repo string, number int) ([]*github.CommitFile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	opts := &github.ListOptions{PerPage: perPage}
	files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
	if gerr := c.govern(ctx, resp); gerr != nil {
		return nil, gerr
	}
	if isStatus(resp, http.StatusNotFound) {
		log.Warnf("PR files not found: %s/%s#%d", owner, repo, number)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list files for %s/%s#%d: %w", owner, repo, number, err)
	}

	return files, nil
}

// PRStatus is the normalized CI and mergeability snapshot for a PR head.
type PRStatus struct {
	CIStatus            string
	CodespellWorkflowCI string
	HasConflicts        bool
}

// FetchPRStatus aggregates the combined commit status, the check-run list
// and PR mergeability into one snapshot. Any failing check run forces
// "failure" regardless of the legacy combined status; a queued or running
// check run forces "pending" unless a failure already won.
func (c *Client) FetchPRStatus(ctx context.Context, owner, repo string, number int, headSHA string) (*PRStatus, error) {
	status := &PRStatus{}

	combined, err := c.fetchCombinedStatus(ctx, owner, repo, headSHA)
	if err != nil {
		return nil, err
	}
	status.CIStatus = combined

	if err := c.applyCheckRuns(ctx, owner, repo, headSHA, status); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if gerr := c.govern(ctx, resp); gerr != nil {
		return nil, gerr
	}
	if err == nil {
		// mergeable is null while GitHub is still computing it.
		if (pr.Mergeable != nil && !*pr.Mergeable) || pr.GetMergeableState() == "dirty" {
			status.HasConflicts = true
		}
	}

	return status, nil
}

func (c *Client) fetchCombinedStatus(ctx context.Context, owner, repo, ref string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	combined, resp, err := c.gh.Repositories.GetCombinedStatus(ctx, owner, repo, ref, &github.ListOptions{PerPage: perPage})
	if gerr := c.govern(ctx, resp); gerr != nil {
		return "", gerr
	}
	if err != nil {
		return "", nil
	}

	switch combined.GetState() {
	case "success":
		return "success", nil
	case "failure", "error":
		return "failure", nil
	case "pending":
		return "pending", nil
	}
	return "", nil
}

func (c *Client) applyCheckRuns(ctx context.Context, owner, repo, ref string, status *PRStatus) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, &github.ListCheckRunsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if gerr := c.govern(ctx, resp); gerr != nil {
		return gerr
	}
	if err != nil || result == nil || len(result.CheckRuns) == 0 {
		return nil
	}

	allSuccess := true
	anyFailure := false
	anyRunning := false
	for _, cr := range result.CheckRuns {
		switch cr.GetConclusion() {
		case "failure", "cancelled", "timed_out":
			anyFailure = true
			allSuccess = false
		case "success", "":
		default:
			allSuccess = false
		}
		if s := cr.GetStatus(); s == "queued" || s == "in_progress" {
			anyRunning = true
		}
	}

	switch {
	case anyFailure:
		status.CIStatus = "failure"
	case allSuccess:
		if status.CIStatus != "failure" {
			status.CIStatus = "success"
		}
	case anyRunning:
		if status.CIStatus == "" {
			status.CIStatus = "pending"
		}
	}

	// Track a dedicated codespell workflow run separately.
	for _, cr := range result.CheckRuns {
		if !strings.Contains(strings.ToLower(cr.GetName()), "codespell") {
			continue
		}
		switch cr.GetConclusion() {
		case "success":
			status.CodespellWorkflowCI = "success"
		case "failure", "cancelled", "timed_out":
			status.CodespellWorkflowCI = "failure"
		default:
			if s := cr.GetStatus(); s == "queued" || s == "in_progress" {
				status.CodespellWorkflowCI = "pending"
			}
		}
		break
	}

	return nil
}

// FetchBranchStatus returns the combined CI state of a branch head, falling
// back from "main" to "master" when the branch does not exist. An empty
// string means unknown.
func (c *Client) FetchBranchStatus(ctx context.Context, owner, repo, branch string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	b, resp, err := c.gh.Repositories.GetBranch(ctx, owner, repo, branch, 0)
	if gerr := c.govern(ctx, resp); gerr != nil {
		return "", gerr
	}
	if isStatus(resp, http.StatusNotFound) {
		if branch == "main" {
			return c.FetchBranchStatus(ctx, owner, repo, "master")
		}
		return "", nil
	}
	if err != nil {
		return "", nil
	}

	sha := b.GetCommit().GetSHA()
	if sha == "" {
		return "", nil
	}

	return c.fetchCombinedStatus(ctx, owner, repo, sha)
}
