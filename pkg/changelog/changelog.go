// Package changelog lists the commits that touched a component.
package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SmartSoftDev/git-info-generator/pkg/oracle"
)

// FormatVersion identifies the document layout.
const FormatVersion = "v1.0.0"

// Entry is one commit.
type Entry struct {
	Hash        string    `yaml:"hash" json:"hash"`
	Author      string    `yaml:"author" json:"author"`
	AuthorEmail string    `yaml:"author_email" json:"author_email"`
	Time        time.Time `yaml:"time" json:"time"`
	Subject     string    `yaml:"subject" json:"subject"`
	Body        string    `yaml:"body,omitempty" json:"body,omitempty"`
}

// Changelog is the commit history of a component between two refs.
type Changelog struct {
	Format    string  `yaml:"format" json:"format"`
	Component string  `yaml:"component" json:"component"`
	Version   string  `yaml:"version" json:"version"`
	From      string  `yaml:"from,omitempty" json:"from,omitempty"` // empty for the full history
	To        string  `yaml:"to" json:"to"`
	Commits   []Entry `yaml:"commits" json:"commits"`
}

// Request selects the history to collect.
type Request struct {
	Component string
	Version   string
	Paths     []string
	From      string // exclusive; empty means from the first commit
	To        string // default HEAD
}

// Build collects commits in From..To touching Paths, newest first.
func Build(ctx context.Context, o oracle.Oracle, req Request) (*Changelog, error) {
	to := req.To
	if to == "" {
		to = "HEAD"
	}
	id, err := o.ResolveRef(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("changelog: %w", err)
	}
	commits, err := o.Log(ctx, req.From, string(id), req.Paths)
	if err != nil {
		return nil, fmt.Errorf("changelog: %w", err)
	}
	cl := &Changelog{
		Format:    FormatVersion,
		Component: req.Component,
		Version:   req.Version,
		From:      req.From,
		To:        string(id),
		Commits:   make([]Entry, 0, len(commits)),
	}
	for _, c := range commits {
		cl.Commits = append(cl.Commits, Entry{
			Hash:        string(c.Hash),
			Author:      c.Author,
			AuthorEmail: c.AuthorEmail,
			Time:        c.Time.UTC(),
			Subject:     c.Subject,
			Body:        c.Body,
		})
	}
	return cl, nil
}

// Write encodes cl as "yaml" (the default) or "json".
func (cl *Changelog) Write(w io.Writer, format string) error {
	switch format {
	case "", "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cl); err != nil {
			return fmt.Errorf("changelog: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cl)
	}
	return fmt.Errorf("changelog: unknown format %q", format)
}
