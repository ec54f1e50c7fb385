package analyzer

import (
	"testing"

	gh "github.com/google/go-github/v56/github"
	"github.com/stretchr/testify/assert"

	"github.com/perbu/pr-tracker/models"
)

func commitFiles(paths ...string) []*gh.CommitFile {
	files := make([]*gh.CommitFile, len(paths))
	for i, p := range paths {
		files[i] = &gh.CommitFile{Filename: gh.String(p)}
	}
	return files
}

func TestDetectAutomationTypes(t *testing.T) {
	testCases := []struct {
		name  string
		paths []string
		want  []string
	}{
		{
			name:  "workflow plus codespell config",
			paths: []string{".github/workflows/codespell.yml", ".codespellrc"},
			want:  []string{"codespell-config", "github-actions"},
		},
		{
			name:  "plain typo fixes carry no tags",
			paths: []string{"README.md", "src/main.c"},
			want:  []string{},
		},
		{
			name:  "workflow without yaml suffix is ignored",
			paths: []string{".github/workflows/notes.txt"},
			want:  []string{},
		},
		{
			name:  "duplicate signals are deduplicated",
			paths: []string{".github/workflows/a.yml", ".github/workflows/b.yaml"},
			want:  []string{"github-actions"},
		},
		{
			name:  "other ci systems",
			paths: []string{".travis.yml", ".gitlab-ci.yml", "Jenkinsfile"},
			want:  []string{"gitlab-ci", "jenkins", "travis-ci"},
		},
		{
			name:  "shellcheck config by name match",
			paths: []string{"ci/shellcheck-exclusions.txt"},
			want:  []string{"shellcheck-config"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectAutomationTypes(commitFiles(tc.paths...)))
		})
	}
}

func TestDetermineAdoptionLevel(t *testing.T) {
	testCases := []struct {
		name   string
		tags   []string
		status string
		want   string
	}{
		{"closed is rejected regardless of tags", []string{"github-actions"}, models.StatusClosed, models.Rejected},
		{"workflow tag is full automation", []string{"codespell-config", "github-actions"}, models.StatusOpen, models.FullAutomation},
		{"config only", []string{"codespell-config"}, models.StatusOpen, models.ConfigOnly},
		{"no tags means typo fixes", []string{}, models.StatusMerged, models.TypoFixes},
		{"merged workflow stays full automation", []string{"pre-commit"}, models.StatusMerged, models.FullAutomation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetermineAdoptionLevel(tc.tags, tc.status))
		})
	}
}
