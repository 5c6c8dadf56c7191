package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/geoalarm/internal/config"
	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

// FileRepository persists checkpoints to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the YAML file.
	path string
	// mu protects concurrent access to the file.
	mu sync.Mutex
}

// document is the on-disk layout.
type document struct {
	Checkpoints []domain.Checkpoint `yaml:"checkpoints"`
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the checkpoints from disk. A missing file yields an empty list.
func (r *FileRepository) Load(_ context.Context) ([]domain.Checkpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Checkpoint{}, nil
		}

		return nil, fmt.Errorf("read checkpoints file: %w", err)
	}

	var doc document
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode checkpoints file: %w", err)
	}

	if doc.Checkpoints == nil {
		doc.Checkpoints = []domain.Checkpoint{}
	}

	return doc.Checkpoints, nil
}

// Save writes the checkpoints next to the target and renames the result over
// it, so a crash never leaves a truncated file behind.
func (r *FileRepository) Save(_ context.Context, checkpoints []domain.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(document{Checkpoints: checkpoints})
	if err != nil {
		return fmt.Errorf("encode checkpoints: %w", err)
	}

	tmp := r.path + ".tmp"

	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write checkpoints file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("replace checkpoints file: %w", err)
	}

	return nil
}

// Close is a no-op.
func (r *FileRepository) Close() error {
	return nil
}
