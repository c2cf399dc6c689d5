package patterns

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	pgerrors "github.com/paperglass/paperglass/pkg/errors"
	"github.com/paperglass/paperglass/pkg/logging"
)

// Library hands out the current pattern snapshot. Reloads swap the whole
// snapshot atomically; in-flight extractions keep the snapshot they started
// with.
type Library struct {
	current atomic.Pointer[Snapshot]
	logger  logging.Logger
}

// NewLibrary starts with the given snapshot, typically DefaultSnapshot().
func NewLibrary(initial *Snapshot, logger logging.Logger) (*Library, error) {
	if initial == nil || initial.Len() == 0 {
		return nil, pgerrors.ErrNoPatterns
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	l := &Library{logger: logger}
	l.current.Store(initial)
	return l, nil
}

// Current returns the active snapshot. The returned snapshot is immutable
// and safe for concurrent use.
func (l *Library) Current() *Snapshot {
	return l.current.Load()
}

// Swap installs a new snapshot. Returns the previous version for logging.
func (l *Library) Swap(next *Snapshot) (string, error) {
	if next == nil || next.Len() == 0 {
		return "", pgerrors.ErrNoPatterns
	}
	prev := l.current.Swap(next)
	l.logger.Info("pattern snapshot swapped",
		logging.F("previous_version", prev.Version),
		logging.F("version", next.Version),
		logging.F("patterns", next.Len()))
	return prev.Version, nil
}

// ReloadFile loads a pattern file and swaps it in.
func (l *Library) ReloadFile(path string) error {
	snap, err := LoadFile(path)
	if err != nil {
		return err
	}
	_, err = l.Swap(snap)
	return err
}

// patternFile is the on-disk YAML layout.
type patternFile struct {
	Version  string         `yaml:"version"`
	Patterns []FieldPattern `yaml:"patterns"`
}

// LoadFile parses and compiles a YAML pattern file into a snapshot.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns %s: %w", path, err)
	}
	return Parse(data)
}

// Parse compiles a YAML pattern document into a snapshot.
func Parse(data []byte) (*Snapshot, error) {
	var f patternFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("parse patterns: %w", pgerrors.ErrSnapshotVersion)
	}
	if len(f.Patterns) == 0 {
		return nil, pgerrors.ErrNoPatterns
	}
	return NewSnapshot(f.Version, f.Patterns)
}

// Merge layers extra patterns over a base set into a new snapshot. Extra
// rules with an existing ID replace the base rule.
func Merge(version string, base, extra []FieldPattern) (*Snapshot, error) {
	byID := make(map[string]int, len(base))
	merged := make([]FieldPattern, 0, len(base)+len(extra))
	for i, p := range base {
		byID[p.ID] = i
		merged = append(merged, p)
	}
	for _, p := range extra {
		if i, ok := byID[p.ID]; ok {
			merged[i] = p
			continue
		}
		merged = append(merged, p)
	}
	return NewSnapshot(version, merged)
}
