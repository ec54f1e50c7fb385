// Package reports renders the persisted model as markdown files. Rendering
// is read-only over the repository collection and only runs after the model
// has been persisted.
package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// sanitizeAndTruncate makes a comment body safe for a markdown table cell.
func sanitizeAndTruncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.TrimSpace(s)
	// Truncate on rune boundaries so multibyte text stays valid UTF-8.
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen-3]) + "..."
	}
	return s
}

// writeIfChanged writes content only when it differs from what is on disk,
// keeping no-op runs from dirtying the git tree.
func writeIfChanged(path, content string) error {
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == content {
		log.Debugf("unchanged: %s", path)
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Infof("wrote %s", path)
	return nil
}
