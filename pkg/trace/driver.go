package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileDriver materializes one trace stream file per launch. File naming
// and location are a driver detail, not part of the trace contract; this
// driver names streams after the launch coordinates and a timestamp so
// retries of the same launch land in separate files.
type FileDriver struct {
	dir      string
	registry *SchemaRegistry
	opts     EmitterOptions
}

// NewFileDriver creates a driver writing streams under dir, creating it
// if needed.
func NewFileDriver(dir string, registry *SchemaRegistry, opts EmitterOptions) (*FileDriver, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	return &FileDriver{dir: dir, registry: registry, opts: opts}, nil
}

// StreamForLaunch opens the append-only stream for one launch attempt.
func (d *FileDriver) StreamForLaunch(launchID string, attempt int) (*JSONLEmitter, string, error) {
	name := fmt.Sprintf("weft-%s-a%d-%s.jsonl",
		launchID, attempt, time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(d.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open trace stream: %w", err)
	}

	return NewJSONLEmitter(f, d.registry, d.opts), path, nil
}
