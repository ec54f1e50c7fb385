package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/perbu/pr-tracker/config"
	"github.com/perbu/pr-tracker/discovery"
	"github.com/perbu/pr-tracker/export"
	"github.com/perbu/pr-tracker/reports"
	"github.com/perbu/pr-tracker/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		updateCmd    = flag.NewFlagSet("update", flag.ExitOnError)
		generateCmd  = flag.NewFlagSet("generate", flag.ExitOnError)
		exportCmd    = flag.NewFlagSet("export", flag.ExitOnError)
		reanalyzeCmd = flag.NewFlagSet("reanalyze", flag.ExitOnError)

		// Update flags
		updateConfig  = updateCmd.String("config", "config.yaml", "Path to configuration file")
		updateFull    = updateCmd.Bool("full", false, "Fetch all PRs, not just those updated since the last run")
		updateForce   = updateCmd.Bool("force", false, "Re-analyze merged PRs")
		updateMaxPRs  = updateCmd.Int("max-prs", 0, "Maximum number of PRs to process (0 = unlimited)")
		updateNoGen   = updateCmd.Bool("no-generate", false, "Skip report generation after update")
		updateCommit  = updateCmd.Bool("commit", false, "Create a git commit summarizing the run")
		updateVerbose = updateCmd.Bool("v", false, "Verbose output")
		updateQuiet   = updateCmd.Bool("q", false, "Errors only")

		// Generate flags
		generateConfig  = generateCmd.String("config", "config.yaml", "Path to configuration file")
		generateVerbose = generateCmd.Bool("v", false, "Verbose output")

		// Export flags
		exportConfig = exportCmd.String("config", "config.yaml", "Path to configuration file")
		exportFormat = exportCmd.String("format", "json", "Export format: json or csv")
		exportFilter = exportCmd.String("filter", "all", "PR filter: all, needs-response, open, merged")
		exportOutput = exportCmd.String("o", "", "Output file (default: stdout)")

		// Reanalyze flags
		reanalyzeConfig = reanalyzeCmd.String("config", "config.yaml", "Path to configuration file")
	)

	if len(args) < 1 {
		fmt.Println("Usage: pr-tracker <command> [options]")
		fmt.Println("Commands:")
		fmt.Println("  update     - Discover PRs and update the tracked model")
		fmt.Println("  generate   - Regenerate markdown reports from existing data")
		fmt.Println("  export     - Export PR data as JSON or CSV")
		fmt.Println("  reanalyze  - Re-run comment/file analysis for specific PRs (owner/repo#number)")
		return 1
	}

	// .env is optional; environment wins over config file values.
	_ = godotenv.Load()

	switch args[0] {
	case "update":
		updateCmd.Parse(args[1:])
		setupLogging(*updateVerbose, *updateQuiet)
		cfg, ok := loadConfig(*updateConfig)
		if !ok {
			return 1
		}
		if *updateForce {
			cfg.ForceMode = true
		}
		if *updateMaxPRs > 0 {
			cfg.MaxPRsPerRun = *updateMaxPRs
		}
		return cmdUpdate(cfg, !*updateFull, *updateNoGen, *updateCommit)

	case "generate":
		generateCmd.Parse(args[1:])
		setupLogging(*generateVerbose, false)
		cfg, ok := loadConfig(*generateConfig)
		if !ok {
			return 1
		}
		return cmdGenerate(cfg)

	case "export":
		exportCmd.Parse(args[1:])
		setupLogging(false, true)
		cfg, ok := loadConfig(*exportConfig)
		if !ok {
			return 1
		}
		return cmdExport(cfg, *exportFilter, *exportFormat, *exportOutput)

	case "reanalyze":
		reanalyzeCmd.Parse(args[1:])
		setupLogging(false, false)
		cfg, ok := loadConfig(*reanalyzeConfig)
		if !ok {
			return 1
		}
		return cmdReanalyze(cfg, reanalyzeCmd.Args())

	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		return 1
	}
}

func setupLogging(verbose, quiet bool) {
	switch {
	case quiet:
		log.SetLevel(log.ErrorLevel)
	case verbose:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

func loadConfig(path string) (*config.Config, bool) {
	cfg, err := config.Load(path)
	if err != nil {
		log.Errorf("failed to load configuration: %v", err)
		return nil, false
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Errorf("configuration error: %s", e)
		}
		return nil, false
	}
	if cfg.GitHubToken == "" {
		log.Error("GITHUB_TOKEN not set; set it via environment or config file")
		return nil, false
	}
	return cfg, true
}

func cmdUpdate(cfg *config.Config, incremental, noGenerate, commit bool) int {
	ctx := context.Background()

	run, err := discovery.Run(ctx, cfg, incremental)
	if err != nil {
		log.Errorf("update failed: %v", err)
		return 1
	}

	fmt.Println()
	fmt.Print(run.Summary())

	if !noGenerate {
		if rc := cmdGenerate(cfg); rc != 0 {
			return rc
		}
	}

	if commit {
		if err := createCommit(run.CommitMessage()); err != nil {
			log.Errorf("git commit failed: %v", err)
			return 1
		}
	}

	return 0
}

func cmdGenerate(cfg *config.Config) int {
	repositories, _, err := store.Load(cfg.DataFile)
	if err != nil {
		log.Errorf("failed to load model: %v", err)
		return 1
	}

	overrides := cfg.CategoryOverrides()

	if err := reports.GenerateDashboard(repositories, cfg.OutputReadme, cfg.TrackedUsers, overrides); err != nil {
		log.Errorf("failed to generate dashboard: %v", err)
		return 1
	}
	if err := reports.GenerateUserReports(repositories, cfg.OutputReadmesDir, cfg.TrackedUsers); err != nil {
		log.Errorf("failed to generate user reports: %v", err)
		return 1
	}
	if err := reports.GenerateResponsivenessReports(repositories, cfg.OutputSummariesDir, overrides); err != nil {
		log.Errorf("failed to generate summaries: %v", err)
		return 1
	}
	return 0
}

func cmdExport(cfg *config.Config, filter, format, output string) int {
	repositories, _, err := store.Load(cfg.DataFile)
	if err != nil {
		log.Errorf("failed to load model: %v", err)
		return 1
	}

	result, err := export.Export(repositories, export.Filter(filter), format)
	if err != nil {
		log.Errorf("export failed: %v", err)
		return 1
	}

	if output == "" {
		fmt.Println(result)
		return 0
	}
	if err := os.WriteFile(output, []byte(result), 0o644); err != nil {
		log.Errorf("failed to write %s: %v", output, err)
		return 1
	}
	return 0
}

func cmdReanalyze(cfg *config.Config, args []string) int {
	if len(args) == 0 {
		log.Error("no PRs given; expected owner/repo#number arguments")
		return 1
	}

	var refs []discovery.PRRef
	for _, arg := range args {
		ref, err := discovery.ParsePRRef(arg)
		if err != nil {
			log.Errorf("%v", err)
			return 1
		}
		refs = append(refs, ref)
	}

	if err := discovery.Reanalyze(context.Background(), cfg, refs); err != nil {
		log.Errorf("reanalyze failed: %v", err)
		return 1
	}
	return cmdGenerate(cfg)
}

// createCommit stages everything and commits with the run summary. A clean
// tree is not an error.
func createCommit(message string) error {
	diff := exec.Command("git", "diff", "--quiet")
	staged := exec.Command("git", "diff", "--cached", "--quiet")
	if diff.Run() == nil && staged.Run() == nil {
		log.Info("no changes to commit")
		return nil
	}

	if out, err := exec.Command("git", "add", "-A").CombinedOutput(); err != nil {
		return fmt.Errorf("git add: %v: %s", err, out)
	}
	if out, err := exec.Command("git", "commit", "-m", message).CombinedOutput(); err != nil {
		return fmt.Errorf("git commit: %v: %s", err, out)
	}
	log.Info("created commit")
	return nil
}
