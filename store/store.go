// Package store persists the repository model as a versioned JSON file.
// Writes are atomic: temp file, fsync, rename.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/perbu/pr-tracker/models"
)

// ModelVersion is the persisted file format version. A mismatch on load is
// advisory: logged, never rejected.
const ModelVersion = "1.0"

type meta struct {
	Version     string               `json:"version"`
	LastUpdated time.Time            `json:"last_updated"`
	LastRun     *models.DiscoveryRun `json:"last_run,omitempty"`
}

type modelFile struct {
	Meta         meta                          `json:"meta"`
	Repositories map[string]*models.Repository `json:"repositories"`
}

// Load reads the model file. A missing file is a fresh start, not an error.
// Returns the repository map and the last run (nil when none was recorded).
func Load(path string) (map[string]*models.Repository, *models.DiscoveryRun, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Infof("no existing model at %s, starting fresh", path)
		return make(map[string]*models.Repository), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var file modelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse model file %s: %w", path, err)
	}

	if file.Meta.Version != ModelVersion {
		log.Warnf("model version mismatch: %q != %q", file.Meta.Version, ModelVersion)
	}

	repos := file.Repositories
	if repos == nil {
		repos = make(map[string]*models.Repository)
	}

	log.Infof("loaded %d repositories from %s", len(repos), path)
	return repos, file.Meta.LastRun, nil
}

// Save writes the model atomically. On any failure the partial temp file is
// removed and the previous on-disk state is left intact.
func Save(path string, repositories map[string]*models.Repository, lastRun *models.DiscoveryRun) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	file := modelFile{
		Meta: meta{
			Version:     ModelVersion,
			LastUpdated: time.Now().UTC(),
			LastRun:     lastRun,
		},
		Repositories: repositories,
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := writeAndRename(tmpPath, path, data); err != nil {
		os.Remove(tmpPath)
		return err
	}

	log.Infof("saved %d repositories to %s", len(repositories), path)
	return nil
}

func writeAndRename(tmpPath, path string, data []byte) error {
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync model: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename model into place: %w", err)
	}
	return nil
}
