package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

// Locator resolves the current position.
type Locator interface {
	Locate(ctx context.Context) (domain.Position, error)
}

// Submitter is satisfied by *engine.Engine.
type Submitter interface {
	SubmitPosition(ctx context.Context, p domain.Position) error
}

// ErrNoFix is returned when no position is available yet.
var ErrNoFix = errors.New("no position fix available")

// FileLocator reads the latest fix from a JSON or YAML file holding
// {latitude, longitude, timestamp?}.
type FileLocator struct {
	path string
}

// NewFileLocator creates a locator for path.
func NewFileLocator(path string) *FileLocator {
	return &FileLocator{path: filepath.Clean(path)}
}

// Path returns the watched file.
func (l *FileLocator) Path() string {
	return l.path
}

// Locate reads and validates the fix. The source is left for the caller to set.
func (l *FileLocator) Locate(_ context.Context) (domain.Position, error) {
	contents, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Position{}, ErrNoFix
		}

		return domain.Position{}, fmt.Errorf("read position file: %w", err)
	}

	if len(strings.TrimSpace(string(contents))) == 0 {
		return domain.Position{}, ErrNoFix
	}

	var payload map[string]any

	if strings.EqualFold(filepath.Ext(l.path), ".json") {
		err = json.Unmarshal(contents, &payload)
	} else {
		err = yaml.Unmarshal(contents, &payload)
	}

	if err != nil {
		return domain.Position{}, fmt.Errorf("decode position file: %w", err)
	}

	// YAML may hand back a parsed timestamp.
	if ts, ok := payload["timestamp"].(time.Time); ok {
		payload["timestamp"] = ts.UTC().Format(domain.TimeLayout)
	}

	p, err := domain.PositionFromPayload(payload)
	if err != nil {
		return domain.Position{}, err
	}

	if err = p.Validate(); err != nil {
		return domain.Position{}, err
	}

	return p, nil
}
