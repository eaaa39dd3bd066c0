// Package component loads component configuration files.
//
// A component file names a path-scoped unit of a repository: its tag
// prefixes, tracked locations, action lists and packaging options. Files are
// YAML (.git_component.yml, .git_component.yaml) or TOML (.git_component.toml)
// and decode into the same Component.
package component

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/SmartSoftDev/git-info-generator/pkg/plan"
)

// File names searched, in order, when a directory is given.
var FileNames = []string{".git_component.yml", ".git_component.yaml", ".git_component.toml"}

// ErrConfiguration reports an unusable component file.
var ErrConfiguration = errors.New("configuration error")

// Error locates a configuration problem.
type Error struct {
	File  string
	Field string
	Msg   string
}

func (e *Error) Error() string {
	switch {
	case e.Field == "":
		return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.File, e.Msg)
	case e.File == "":
		return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s: %s", ErrConfiguration, e.File, e.Field, e.Msg)
}

func (e *Error) Unwrap() error { return ErrConfiguration }

// Location is a source path with an optional destination inside packages.
type Location struct {
	Src            string
	Dst            string
	FollowSymlinks bool
}

// ActionList is a named step sequence.
type ActionList struct {
	Name        string
	Depends     []string
	Run         []string
	RunOnChange []string // relative to the location root
}

// PackageAction maps a package hook name to a script under the location root.
type PackageAction struct {
	Name string
	Path string
}

// Component is one decoded configuration file. It is not modified after Load.
type Component struct {
	Name string
	File string // absolute path of the configuration file
	Dir  string // directory holding File; steps run here

	TagPrefixes     []string
	LocationRoot    string // absolute
	DestinationRoot string

	Locations    []Location
	GitOnlyFiles []string
	JustCopy     []Location
	Actions      []ActionList // declaration order

	Package            bool
	PackageArchiveType string
	PackageStorage     string
	PackageInfo        map[string]any
	PackageActions     []PackageAction // sorted by name
	PackageScripts     []string
	// Extra holds package-* and deb-* keys not interpreted here.
	Extra map[string]any
}

// Slug is the file-system friendly name used for state and package files.
func (c *Component) Slug() string { return Slugify(c.Name) }

var nonAlnum = regexp.MustCompile(`[\W_]+`)

// Slugify replaces every run of characters other than ASCII letters and
// digits with a dash.
func Slugify(s string) string { return nonAlnum.ReplaceAllString(s, "-") }

// TrackedPaths returns the paths that define the component's fingerprint:
// locations, git_only_files and package-actions scripts, relative to
// LocationRoot.
func (c *Component) TrackedPaths() []string {
	var out []string
	for _, l := range c.Locations {
		out = append(out, l.Src)
	}
	out = append(out, c.GitOnlyFiles...)
	for _, a := range c.PackageActions {
		out = append(out, a.Path)
	}
	return out
}

// Action returns the action list called name.
func (c *Component) Action(name string) (ActionList, bool) {
	for _, a := range c.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionList{}, false
}

// Graph builds the action graph in declaration order.
func (c *Component) Graph() (*plan.Graph, error) {
	nodes := make([]plan.Node, 0, len(c.Actions))
	for _, a := range c.Actions {
		nodes = append(nodes, plan.Node{
			Name:        a.Name,
			Depends:     a.Depends,
			RunOnChange: a.RunOnChange,
			Steps:       a.Run,
		})
	}
	g, err := plan.NewGraph(nodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.File, err)
	}
	return g, nil
}

// Rel returns p relative to the configuration directory, for display.
func (c *Component) Rel(p string) string {
	if r, err := filepath.Rel(c.Dir, p); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return p
}
