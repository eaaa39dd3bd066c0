package component

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// document is a decoded file before validation. Map iteration order is lost
// by both decoders, so the order of the scripts table is carried separately.
type document struct {
	file        string
	fields      map[string]any
	scriptOrder []string
}

// Load reads a component file. path may name the file itself or a directory
// holding one of FileNames.
func Load(path string) (*Component, error) {
	file, err := locate(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &Error{File: file, Msg: err.Error()}
	}
	var doc *document
	if strings.EqualFold(filepath.Ext(file), ".toml") {
		doc, err = decodeTOML(file, data)
	} else {
		doc, err = decodeYAML(file, data)
	}
	if err != nil {
		return nil, err
	}
	return doc.build()
}

// Discover loads every component file under root, skipping .git
// directories. Component names must be unique across the tree.
func Discover(root string) ([]*Component, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		for _, n := range FileNames {
			if d.Name() == n {
				files = append(files, p)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover components in %s: %w", root, err)
	}
	sort.Strings(files)

	var out []*Component
	byName := make(map[string]string)
	for _, f := range files {
		c, err := Load(f)
		if err != nil {
			return nil, err
		}
		if prev, dup := byName[c.Name]; dup {
			return nil, &Error{File: c.File, Field: "name", Msg: fmt.Sprintf("%q is already used by %s", c.Name, prev)}
		}
		byName[c.Name] = c.File
		out = append(out, c)
	}
	return out, nil
}

func locate(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &Error{File: path, Msg: err.Error()}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &Error{File: abs, Msg: "config file not found"}
	}
	if !info.IsDir() {
		return abs, nil
	}
	for _, n := range FileNames {
		candidate := filepath.Join(abs, n)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", &Error{File: abs, Msg: "no " + strings.Join(FileNames, ", ") + " found"}
}

func decodeYAML(file string, data []byte) (*document, error) {
	doc := &document{file: file, fields: make(map[string]any)}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &Error{File: file, Msg: err.Error()}
	}
	if len(root.Content) == 0 {
		return doc, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, &Error{File: file, Msg: "top level must be a mapping"}
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i].Value, top.Content[i+1]
		var v any
		if err := val.Decode(&v); err != nil {
			return nil, &Error{File: file, Field: key, Msg: err.Error()}
		}
		doc.fields[key] = v
		if key == "scripts" && val.Kind == yaml.MappingNode {
			for j := 0; j < len(val.Content); j += 2 {
				doc.scriptOrder = append(doc.scriptOrder, val.Content[j].Value)
			}
		}
	}
	return doc, nil
}

func decodeTOML(file string, data []byte) (*document, error) {
	doc := &document{file: file, fields: make(map[string]any)}
	md, err := toml.Decode(string(data), &doc.fields)
	if err != nil {
		return nil, &Error{File: file, Msg: err.Error()}
	}
	for k, v := range doc.fields {
		doc.fields[k] = normalizeTOML(v)
	}
	seen := make(map[string]bool)
	for _, k := range md.Keys() {
		if len(k) < 2 || k[0] != "scripts" || seen[k[1]] {
			continue
		}
		seen[k[1]] = true
		doc.scriptOrder = append(doc.scriptOrder, k[1])
	}
	return doc, nil
}

// normalizeTOML turns arrays of tables into plain lists so both decoders
// produce the same shapes.
func normalizeTOML(v any) any {
	switch t := v.(type) {
	case []map[string]any:
		out := make([]any, 0, len(t))
		for _, m := range t {
			out = append(out, normalizeTOML(m))
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalizeTOML(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeTOML(t[k])
		}
		return t
	}
	return v
}

func (d *document) errorf(field, format string, args ...any) error {
	return &Error{File: d.file, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func (d *document) build() (*Component, error) {
	c := &Component{
		File:  d.file,
		Dir:   filepath.Dir(d.file),
		Extra: make(map[string]any),
	}

	name, err := d.scalar("name", d.fields["name"])
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, d.errorf("name", "is required")
	}
	c.Name = name

	prefixKey := "git_tag_prefix"
	if _, ok := d.fields[prefixKey]; !ok {
		prefixKey = "git_tab_prefix"
	}
	if c.TagPrefixes, err = d.stringList(prefixKey, d.fields[prefixKey], true); err != nil {
		return nil, err
	}

	if err := d.locationRoot(c); err != nil {
		return nil, err
	}
	if c.Locations, err = d.locations("locations"); err != nil {
		return nil, err
	}
	if c.GitOnlyFiles, err = d.stringList("git_only_files", d.fields["git_only_files"], false); err != nil {
		return nil, err
	}
	if c.JustCopy, err = d.locations("just_copy"); err != nil {
		return nil, err
	}
	if c.Actions, err = d.actions(); err != nil {
		return nil, err
	}
	if err := d.packaging(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *document) locationRoot(c *Component) error {
	c.LocationRoot = c.Dir
	switch v := d.fields["location_root"].(type) {
	case nil:
	case string:
		if v != "" {
			c.LocationRoot = v
		}
	case map[string]any:
		src, err := d.scalar("location_root.src", v["src"])
		if err != nil {
			return err
		}
		if src != "" {
			c.LocationRoot = src
		}
		if v["dst"] != nil {
			if c.DestinationRoot, err = d.scalar("location_root.dst", v["dst"]); err != nil {
				return err
			}
		}
	default:
		return d.errorf("location_root", "must be a path or a mapping with src and dst")
	}
	if !filepath.IsAbs(c.LocationRoot) {
		c.LocationRoot = filepath.Join(c.Dir, c.LocationRoot)
	}
	c.LocationRoot = filepath.Clean(c.LocationRoot)
	return nil
}

func (d *document) locations(field string) ([]Location, error) {
	raw, ok := d.fields[field]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, d.errorf(field, "must be a list")
	}
	out := make([]Location, 0, len(items))
	for i, item := range items {
		at := fmt.Sprintf("%s[%d]", field, i)
		switch v := item.(type) {
		case map[string]any:
			src, err := d.scalar(at+".src", v["src"])
			if err != nil {
				return nil, err
			}
			dst, err := d.scalar(at+".dst", v["dst"])
			if err != nil {
				return nil, err
			}
			if src == "" || dst == "" {
				return nil, d.errorf(at, "needs non-empty src and dst")
			}
			loc := Location{Src: src, Dst: dst, FollowSymlinks: true}
			if f, ok := v["follow_sym_links"]; ok {
				b, isBool := f.(bool)
				if !isBool {
					return nil, d.errorf(at+".follow_sym_links", "must be a boolean")
				}
				loc.FollowSymlinks = b
			}
			out = append(out, loc)
		default:
			s, err := d.scalar(at, item)
			if err != nil {
				return nil, err
			}
			if s == "" {
				return nil, d.errorf(at, "is empty")
			}
			out = append(out, Location{Src: s, FollowSymlinks: true})
		}
	}
	return out, nil
}

func (d *document) actions() ([]ActionList, error) {
	raw, ok := d.fields["scripts"]
	if !ok || raw == nil {
		return nil, nil
	}
	table, ok := raw.(map[string]any)
	if !ok {
		return nil, d.errorf("scripts", "must be a mapping of action lists")
	}
	out := make([]ActionList, 0, len(table))
	for _, name := range d.scriptOrder {
		v, ok := table[name]
		if !ok {
			continue
		}
		field := "scripts." + name
		a := ActionList{Name: name}
		var err error
		switch body := v.(type) {
		case []any, nil:
			if a.Run, err = d.stringList(field, body, false); err != nil {
				return nil, err
			}
		case map[string]any:
			for k := range body {
				switch k {
				case "depends", "run", "run_on_change", "git_files":
				default:
					return nil, d.errorf(field, "unknown key %q", k)
				}
			}
			if a.Depends, err = d.stringList(field+".depends", body["depends"], false); err != nil {
				return nil, err
			}
			if a.Run, err = d.stringList(field+".run", body["run"], false); err != nil {
				return nil, err
			}
			if a.RunOnChange, err = d.stringList(field+".run_on_change", body["run_on_change"], false); err != nil {
				return nil, err
			}
			gitFiles, err := d.stringList(field+".git_files", body["git_files"], false)
			if err != nil {
				return nil, err
			}
			a.RunOnChange = append(a.RunOnChange, gitFiles...)
		default:
			return nil, d.errorf(field, "must be a list of steps or a mapping")
		}
		out = append(out, a)
	}
	return out, nil
}

func (d *document) packaging(c *Component) error {
	if v, ok := d.fields["package"]; ok && v != nil {
		switch b := v.(type) {
		case bool:
			c.Package = b
		default:
			s, err := d.scalar("package", v)
			if err != nil {
				return err
			}
			c.Package = s != "" && s != "0" && !strings.EqualFold(s, "false")
		}
	}
	var err error
	if v, ok := d.fields["package-archive-type"]; ok {
		if c.PackageArchiveType, err = d.scalar("package-archive-type", v); err != nil {
			return err
		}
	}
	if v, ok := d.fields["package-storage"]; ok {
		if c.PackageStorage, err = d.scalar("package-storage", v); err != nil {
			return err
		}
	}
	switch v := d.fields["package-info"].(type) {
	case nil:
	case map[string]any:
		c.PackageInfo = v
	default:
		return d.errorf("package-info", "must be a mapping")
	}
	switch v := d.fields["package-actions"].(type) {
	case nil:
	case map[string]any:
		for name, p := range v {
			s, err := d.scalar("package-actions."+name, p)
			if err != nil {
				return err
			}
			if s == "" {
				return d.errorf("package-actions."+name, "is empty")
			}
			c.PackageActions = append(c.PackageActions, PackageAction{Name: name, Path: s})
		}
		sort.Slice(c.PackageActions, func(i, j int) bool { return c.PackageActions[i].Name < c.PackageActions[j].Name })
	default:
		return d.errorf("package-actions", "must be a mapping of hook name to script")
	}
	if c.PackageScripts, err = d.stringList("package-scripts", d.fields["package-scripts"], false); err != nil {
		return err
	}
	for k, v := range d.fields {
		switch k {
		case "package-archive-type", "package-storage", "package-info", "package-actions", "package-scripts":
			continue
		}
		if strings.HasPrefix(k, "package-") || strings.HasPrefix(k, "deb-") {
			c.Extra[k] = v
		}
	}
	return nil
}

// scalar accepts strings and numbers, as component files often carry bare
// numeric names and paths.
func (d *document) scalar(field string, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case int, int64, uint64, float64:
		return fmt.Sprint(s), nil
	}
	return "", d.errorf(field, "must be a string")
}

// stringList accepts a list of scalars, or a single scalar when single is set.
func (d *document) stringList(field string, v any, single bool) ([]string, error) {
	switch items := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, 0, len(items))
		for i, item := range items {
			s, err := d.scalar(fmt.Sprintf("%s[%d]", field, i), item)
			if err != nil {
				return nil, err
			}
			if s == "" && !single {
				return nil, d.errorf(fmt.Sprintf("%s[%d]", field, i), "is empty")
			}
			out = append(out, s)
		}
		return out, nil
	}
	if !single {
		return nil, d.errorf(field, "must be a list")
	}
	s, err := d.scalar(field, v)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}
