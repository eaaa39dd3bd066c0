// Package state records which version of a component each action list last
// ran at, so run-on-new-version can skip work that was already done.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SmartSoftDev/git-info-generator/pkg/fsutil"
)

// GlobalDir is the system-wide store.
const GlobalDir = "/etc/_git_components"

// UserDirName is the per-user store under $HOME.
const UserDirName = ".git_components"

// Record is one successful execution of an action list.
type Record struct {
	UTCTime         time.Time `yaml:"utctime"`
	ExecutedVersion string    `yaml:"executed_version"`
	PreviousVersion string    `yaml:"previous_version,omitempty"`
	Fingerprint     string    `yaml:"fingerprint,omitempty"`
	Duration        float64   `yaml:"duration"` // seconds
}

// Info is the state file of one component.
type Info struct {
	Component string            `yaml:"cmp_name"`
	FromPath  string            `yaml:"from_path"`
	Executed  map[string]Record `yaml:"executed,omitempty"`
}

// Last returns the record for action, if any.
func (i *Info) Last(action string) (Record, bool) {
	if i == nil || i.Executed == nil {
		return Record{}, false
	}
	r, ok := i.Executed[action]
	return r, ok
}

// Store keeps one <slug>.yml file per component in Dir.
type Store struct {
	Dir string
}

// DefaultDir picks the store directory: explicit wins, then GIG_STORE_DIR,
// then the user or global default.
func DefaultDir(explicit string, user bool) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv("GIG_STORE_DIR"); env != "" {
		return env, nil
	}
	if !user {
		return GlobalDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("state dir: %w", err)
	}
	return filepath.Join(home, UserDirName), nil
}

// Path is the state file of slug.
func (s *Store) Path(slug string) string { return filepath.Join(s.Dir, slug+".yml") }

// Load reads the state of slug. A missing file yields an empty Info.
func (s *Store) Load(slug string) (*Info, error) {
	data, err := os.ReadFile(s.Path(slug))
	if errors.Is(err, os.ErrNotExist) {
		return &Info{Executed: make(map[string]Record)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", slug, err)
	}
	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("load state %s: %w", s.Path(slug), err)
	}
	if info.Executed == nil {
		info.Executed = make(map[string]Record)
	}
	return &info, nil
}

// Save writes info atomically.
func (s *Store) Save(slug string, info *Info) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("save state %s: %w", slug, err)
	}
	return fsutil.WriteFileAtomic(s.Path(slug), data, 0o644)
}

// Record stores a successful run of action at version and saves info.
func (s *Store) Record(slug string, info *Info, action, version, fingerprint string, d time.Duration, now time.Time) error {
	if info.Executed == nil {
		info.Executed = make(map[string]Record)
	}
	prev := info.Executed[action].ExecutedVersion
	info.Executed[action] = Record{
		UTCTime:         now.UTC(),
		ExecutedVersion: version,
		PreviousVersion: prev,
		Fingerprint:     fingerprint,
		Duration:        float64(d.Milliseconds()) / 1000,
	}
	return s.Save(slug, info)
}
