// Package analyzer turns raw GitHub payloads into engagement and automation
// classifications on the PR model.
package analyzer

import (
	"strings"

	"github.com/google/go-github/v56/github"
	log "github.com/sirupsen/logrus"

	"github.com/perbu/pr-tracker/models"
)

// ClassifyComment maps a raw comment to an actor role. Bot detection is a
// disjunction of four signals: declared Bot account type, "[bot]" login
// suffix, the known-bot login list, and known automated message bodies. Any
// one is sufficient. This is a heuristic, not ground truth; unrecognized
// bots classified as maintainers corrupt response-status downstream, so the
// tables in models live apart from this logic and are easy to extend.
func ClassifyComment(raw *github.IssueComment, prAuthor string) models.Comment {
	login := raw.GetUser().GetLogin()
	body := raw.GetBody()

	isBot := raw.GetUser().GetType() == "Bot" ||
		strings.HasSuffix(login, "[bot]") ||
		models.IsBotLogin(login) ||
		models.IsBotMessage(body)

	authorType := models.AuthorMaintainer
	switch {
	case isBot:
		authorType = models.AuthorBot
	case login == prAuthor:
		authorType = models.AuthorSubmitter
	}

	return models.Comment{
		ID:         raw.GetID(),
		Author:     login,
		AuthorType: authorType,
		Body:       body,
		CreatedAt:  raw.GetCreatedAt().Time,
		IsBot:      isBot,
	}
}

// ClassifyComments classifies a full comment payload, skipping entries
// without an author.
func ClassifyComments(raw []*github.IssueComment, prAuthor string) []models.Comment {
	comments := make([]models.Comment, 0, len(raw))
	for _, rc := range raw {
		if rc.GetUser() == nil {
			log.Warnf("skipping comment %d without user", rc.GetID())
			continue
		}
		comments = append(comments, ClassifyComment(rc, prAuthor))
	}
	return comments
}
