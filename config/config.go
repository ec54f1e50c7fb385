// Package config loads tracker configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var validBehaviorCategories = map[string]bool{
	"welcoming":         true,
	"selective":         true,
	"unresponsive":      true,
	"hostile":           true,
	"insufficient_data": true,
}

// RepositoryOverride is a manual override of a repository's behavior
// category, keyed by full name in the config file.
type RepositoryOverride struct {
	Category string `yaml:"category"`
	Note     string `yaml:"note"`
}

// UnmarshalYAML accepts both the full mapping form and the shorthand where
// the override is just the category string.
func (o *RepositoryOverride) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		o.Category = value.Value
		return nil
	}
	type plain RepositoryOverride
	return value.Decode((*plain)(o))
}

// Config holds all discovery and rendering settings.
type Config struct {
	TrackedUsers []string            `yaml:"tracked_users"`
	ToolKeywords map[string][]string `yaml:"tool_keywords"`

	GitHubToken        string `yaml:"github_token"`
	APIBaseURL         string `yaml:"github_api_url"` // empty means api.github.com
	RateLimitThreshold int    `yaml:"rate_limit_threshold"`

	ForceMode    bool `yaml:"force_mode"`
	BatchSize    int  `yaml:"batch_size"`
	MaxPRsPerRun int  `yaml:"max_prs_per_run"` // 0 means unlimited

	DataFile           string `yaml:"data_file"`
	OutputReadme       string `yaml:"output_readme"`
	OutputReadmesDir   string `yaml:"output_readmes_dir"`
	OutputSummariesDir string `yaml:"output_summaries_dir"`

	RepositoryOverrides map[string]RepositoryOverride `yaml:"repository_overrides"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TrackedUsers: []string{"yarikoptic", "DimitriPapadopoulos"},
		ToolKeywords: map[string][]string{
			"codespell":  {"codespell", "codespellit"},
			"shellcheck": {"shellcheck", "shellcheckit"},
		},
		RateLimitThreshold: 100,
		BatchSize:          10,
		DataFile:           "data/repositories.json",
		OutputReadme:       "README.md",
		OutputReadmesDir:   "READMEs",
		OutputSummariesDir: "Summaries",
	}
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.GitHubToken = token
	}
	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("PRTRACKER_FORCE_MODE"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			c.ForceMode = true
		}
	}
	if v := os.Getenv("PRTRACKER_MAX_PRS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxPRsPerRun = n
		}
	}
	if v := os.Getenv("PRTRACKER_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchSize = n
		}
	}
	if v := os.Getenv("PRTRACKER_RATE_LIMIT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitThreshold = n
		}
	}
	if v := os.Getenv("PRTRACKER_DATA_FILE"); v != "" {
		c.DataFile = v
	}
}

// Validate returns all configuration problems as human-readable messages.
// Validation runs before any network activity.
func (c *Config) Validate() []string {
	var errs []string

	if len(c.TrackedUsers) == 0 {
		errs = append(errs, "tracked_users cannot be empty")
	}
	if c.APIBaseURL != "" {
		if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("github_api_url is not a valid URL: %q", c.APIBaseURL))
		}
	}
	if c.RateLimitThreshold < 0 {
		errs = append(errs, "rate_limit_threshold must be non-negative")
	}
	if c.BatchSize < 1 {
		errs = append(errs, "batch_size must be at least 1")
	}
	if c.MaxPRsPerRun < 0 {
		errs = append(errs, "max_prs_per_run must be non-negative (0 means unlimited)")
	}

	for name, override := range c.RepositoryOverrides {
		if !validBehaviorCategories[override.Category] {
			errs = append(errs, fmt.Sprintf(
				"repository_overrides[%s]: invalid category %q", name, override.Category))
		}
	}

	return errs
}

// AllKeywords flattens the tool keyword table into one filter list.
func (c *Config) AllKeywords() []string {
	var keywords []string
	for _, list := range c.ToolKeywords {
		keywords = append(keywords, list...)
	}
	return keywords
}

// ToolForTitle returns the first tool whose keyword matches the PR title
// (case-insensitive), or "other". Tools are checked in sorted order so the
// classification is deterministic.
func (c *Config) ToolForTitle(title string) string {
	lower := strings.ToLower(title)
	tools := make([]string, 0, len(c.ToolKeywords))
	for tool := range c.ToolKeywords {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		for _, kw := range c.ToolKeywords[tool] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return tool
			}
		}
	}
	return "other"
}

// CategoryOverrides flattens the override table into a repository full name
// to category map for the report renderers.
func (c *Config) CategoryOverrides() map[string]string {
	overrides := make(map[string]string, len(c.RepositoryOverrides))
	for name, o := range c.RepositoryOverrides {
		overrides[name] = o.Category
	}
	return overrides
}
