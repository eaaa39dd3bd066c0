package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/SmartSoftDev/git-info-generator/pkg/component"
	"github.com/SmartSoftDev/git-info-generator/pkg/engine"
	"github.com/SmartSoftDev/git-info-generator/pkg/logging"
	"github.com/SmartSoftDev/git-info-generator/pkg/oracle"
	"github.com/SmartSoftDev/git-info-generator/pkg/pathset"
)

type globals struct {
	verbose int
	config  string
	limit   int
	lenient bool
}

func (g *globals) logger(cmd *cobra.Command) *logging.Logger {
	return logging.New(cmd.ErrOrStderr(), g.verbose)
}

func (g *globals) pathMode() pathset.Mode {
	if g.lenient {
		return pathset.Lenient
	}
	return pathset.Strict
}

// open loads the component, seeds the environment from a .env file next to
// it and binds it to the enclosing git repository.
func (g *globals) open(cmd *cobra.Command) (*engine.Engine, error) {
	c, err := component.Load(g.config)
	if err != nil {
		return nil, err
	}
	log := g.logger(cmd)
	log.Debugf("Processing %q from %s", c.Name, c.File)
	if err := loadDotEnv(c.Dir); err != nil {
		return nil, err
	}
	return g.bind(cmd.Context(), c, log)
}

func (g *globals) bind(ctx context.Context, c *component.Component, log *logging.Logger) (*engine.Engine, error) {
	git, err := oracle.OpenGit(ctx, c.Dir)
	if err != nil {
		return nil, err
	}
	cached, err := oracle.NewCached(git, 0)
	if err != nil {
		return nil, err
	}
	return engine.New(c, engine.Options{
		Oracle:   cached,
		RepoRoot: git.Root,
		PathMode: g.pathMode(),
		ShortLen: g.limit,
		Log:      log,
	})
}

// loadDotEnv reads dir/.env when present. Variables already set win.
func loadDotEnv(dir string) error {
	p := filepath.Join(dir, ".env")
	if _, err := os.Stat(p); err != nil {
		return nil
	}
	if err := godotenv.Load(p); err != nil {
		return fmt.Errorf("load %s: %w", p, err)
	}
	return nil
}
