package analyzer

import (
	"sort"
	"time"

	"github.com/perbu/pr-tracker/models"
)

// AnalyzeEngagement folds a PR's classified comment thread into the PR's
// engagement fields: role counters, time to first maintainer response, last
// comment and last maintainer comment, and the response status. It is a
// full recompute from the whole thread, never incremental.
func AnalyzeEngagement(comments []models.Comment, pr *models.PullRequest) {
	pr.TotalComments = len(comments)
	pr.SubmitterComments = 0
	pr.MaintainerComments = 0
	pr.BotComments = 0
	for _, c := range comments {
		switch c.AuthorType {
		case models.AuthorSubmitter:
			pr.SubmitterComments++
		case models.AuthorMaintainer:
			pr.MaintainerComments++
		case models.AuthorBot:
			pr.BotComments++
		}
	}

	sorted := make([]models.Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var firstMaintainer, lastComment, lastMaintainer *models.Comment
	for i := range sorted {
		c := &sorted[i]
		if c.AuthorType == models.AuthorMaintainer {
			if firstMaintainer == nil {
				firstMaintainer = c
			}
			lastMaintainer = c
		}
		lastComment = c
	}

	if firstMaintainer != nil {
		hours := firstMaintainer.CreatedAt.Sub(pr.CreatedAt).Hours()
		pr.TimeToFirstResponseHours = &hours
	}

	if lastComment != nil {
		pr.LastCommentAuthor = lastComment.Author
		pr.LastCommentIsMaintainer = lastComment.AuthorType == models.AuthorMaintainer
	}

	if lastMaintainer != nil {
		t := lastMaintainer.CreatedAt
		pr.LastMaintainerCommentAt = &t
		// Only human maintainer feedback feeds the assistant-context export.
		pr.LastDeveloperCommentBody = lastMaintainer.Body
	}

	pr.ResponseStatus = responseStatus(pr, lastComment, lastMaintainer)

	if pr.ResponseStatus == models.AwaitingSubmitter && lastMaintainer != nil {
		days := int(time.Since(lastMaintainer.CreatedAt).Hours() / 24)
		pr.DaysAwaitingSubmitter = &days
	} else {
		pr.DaysAwaitingSubmitter = nil
	}
}

// responseStatus decides which party is expected to act next.
//
// For merged/closed PRs this is a historical label: awaiting_submitter when
// a maintainer ever spoke, no_response otherwise. For active PRs a trailing
// bot comment falls back to awaiting_maintainer even when a maintainer
// commented between the submitter's last comment and the bot. Known
// simplification; downstream reports depend on it, keep as is.
func responseStatus(pr *models.PullRequest, lastComment, lastMaintainer *models.Comment) string {
	if pr.Status == models.StatusMerged || pr.Status == models.StatusClosed {
		if lastMaintainer != nil {
			return models.AwaitingSubmitter
		}
		return models.NoResponse
	}

	if lastComment == nil {
		return models.NoResponse
	}

	if lastMaintainer == nil {
		return models.AwaitingMaintainer
	}

	switch lastComment.AuthorType {
	case models.AuthorMaintainer:
		return models.AwaitingSubmitter
	case models.AuthorSubmitter:
		return models.AwaitingMaintainer
	default:
		return models.AwaitingMaintainer
	}
}
