package analyzer

import (
	"sort"
	"strings"

	"github.com/google/go-github/v56/github"

	"github.com/perbu/pr-tracker/models"
)

// DetectAutomationTypes maps the changed file paths of a PR to automation
// adoption tags. Tags are deduplicated and sorted for deterministic output.
func DetectAutomationTypes(files []*github.CommitFile) []string {
	tags := make(map[string]bool)

	for _, f := range files {
		path := f.GetFilename()
		lower := strings.ToLower(path)

		if strings.Contains(path, ".github/workflows/") &&
			(strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml")) {
			tags["github-actions"] = true
		}

		if path == ".pre-commit-config.yaml" {
			tags["pre-commit"] = true
		}

		if path == ".codespellrc" || strings.Contains(lower, "codespell") {
			tags["codespell-config"] = true
		}

		if path == ".shellcheckrc" || strings.Contains(lower, "shellcheck") {
			tags["shellcheck-config"] = true
		}

		if path == ".travis.yml" {
			tags["travis-ci"] = true
		}
		if path == "Jenkinsfile" || path == "jenkins.yml" {
			tags["jenkins"] = true
		}
		if path == ".gitlab-ci.yml" {
			tags["gitlab-ci"] = true
		}
		if strings.Contains(lower, "circleci") {
			tags["circleci"] = true
		}
	}

	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

var fullAutomationTags = map[string]bool{
	"github-actions": true,
	"pre-commit":     true,
	"travis-ci":      true,
	"jenkins":        true,
	"gitlab-ci":      true,
	"circleci":       true,
}

var configOnlyTags = map[string]bool{
	"codespell-config":  true,
	"shellcheck-config": true,
}

// DetermineAdoptionLevel maps automation tags and PR status to a single
// adoption level. A closed PR is rejected regardless of what it contained;
// otherwise workflow tags outrank config-only tags.
func DetermineAdoptionLevel(automationTypes []string, prStatus string) string {
	if prStatus == models.StatusClosed {
		return models.Rejected
	}

	for _, t := range automationTypes {
		if fullAutomationTags[t] {
			return models.FullAutomation
		}
	}

	for _, t := range automationTypes {
		if configOnlyTags[t] {
			return models.ConfigOnly
		}
	}

	return models.TypoFixes
}
