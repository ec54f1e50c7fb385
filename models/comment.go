package models

import (
	"fmt"
	"strings"
	"time"
)

// Comment author roles.
const (
	AuthorSubmitter  = "submitter"
	AuthorMaintainer = "maintainer"
	AuthorBot        = "bot"
)

// knownBotLogins are bot accounts that do not carry the "[bot]" suffix or
// declare a Bot account type. Extend this list when a new bot slips through
// classification; never encode bot knowledge in logic elsewhere.
var knownBotLogins = map[string]bool{
	"codecov":                  true,
	"coveralls":                true,
	"dependabot":               true,
	"renovate":                 true,
	"greenkeeper":              true,
	"snyk-bot":                 true,
	"imgbot":                   true,
	"stale":                    true,
	"allcontributors":          true,
	"semantic-release-bot":     true,
	"github-actions":           true,
	"claassistant":             true,
	"cla-bot":                  true,
	"linux-foundation-easycla": true,
	"easycla":                  true,
}

// botMessagePatterns are case-folded substrings of automated comment bodies.
var botMessagePatterns = []string{
	"all committers have signed the cla",
	"cla check",
	"cla signature",
	"contributor license agreement",
	"coverage report",
	"codecov report",
	"this pull request has been automatically marked as stale",
	"codacy",
	"sonarcloud",
	"thank you for your contribution",
}

// Comment is the transient, analysis-only view of a PR comment. It is folded
// into PullRequest fields and never persisted on its own.
type Comment struct {
	ID         int64
	Author     string
	AuthorType string
	Body       string
	CreatedAt  time.Time
	IsBot      bool
}

// IsBotLogin reports whether a login is on the known-bot allow list.
func IsBotLogin(login string) bool {
	return knownBotLogins[strings.ToLower(login)]
}

// IsBotMessage reports whether a comment body matches a known automated
// message pattern.
func IsBotMessage(body string) bool {
	folded := strings.ToLower(strings.TrimSpace(body))
	for _, pattern := range botMessagePatterns {
		if strings.Contains(folded, pattern) {
			return true
		}
	}
	return false
}

// Validate checks model invariants and returns human-readable violations.
func (c *Comment) Validate() []string {
	var errs []string

	switch c.AuthorType {
	case AuthorSubmitter, AuthorMaintainer, AuthorBot:
	default:
		errs = append(errs, fmt.Sprintf("invalid author_type: %q", c.AuthorType))
	}

	if c.IsBot && c.AuthorType != AuthorBot {
		errs = append(errs, "is_bot=true but author_type is not \"bot\"")
	}

	return errs
}
