package main

import (
	"fmt"

	"stackresolve/internal/backends/git"
	"stackresolve/internal/config"
	"stackresolve/internal/documents"
	"stackresolve/internal/logging"
	"stackresolve/internal/remotes"
	"stackresolve/internal/repos"
	"stackresolve/internal/resolver"
	"stackresolve/internal/symbols"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg       *config.Config
	dir       string
	logger    *logging.Logger
	registry  *repos.Registry
	git       *git.GitAdapter
	documents *documents.Store
	resolver  *resolver.Resolver
}

// newApp wires configuration, the workspace registry and the resolver.
func newApp() (*app, error) {
	cfg, dir, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	registry, err := repos.LoadRegistry(cfg.WorkspacePath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	adapter, err := git.NewGitAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}

	docs := documents.NewStore()
	deps := resolver.Deps{
		Git:       adapter,
		Repos:     registry,
		Remotes:   remotes.NewNormalizer(cfg, logger),
		Documents: docs,
	}
	if cfg.Resolution.SymbolContext && symbols.IsAvailable() {
		deps.Symbols = symbols.NewLocator()
	}

	r, err := resolver.New(cfg, deps, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		dir:       dir,
		logger:    logger,
		registry:  registry,
		git:       adapter,
		documents: docs,
		resolver:  r,
	}, nil
}

// openRegistry loads only the workspace, for commands that never resolve.
func openRegistry() (*repos.Registry, *config.Config, error) {
	cfg, dir, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	registry, err := repos.LoadRegistry(cfg.WorkspacePath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	return registry, cfg, nil
}

// activeRepo picks the repository a command applies to: --repo, then
// $STACKRESOLVE_REPO, then the registered work tree containing the cwd.
func (a *app) activeRepo() (*repos.RepoEntry, error) {
	resolved, err := repos.ResolveActiveRepo(a.registry, repoFlag)
	if err != nil {
		return nil, err
	}
	if resolved.Entry != nil {
		return resolved.Entry, nil
	}
	if resolved.DetectedGitRoot != "" {
		return nil, fmt.Errorf("%s is not registered; run 'stackresolve repos add %s'",
			resolved.DetectedGitRoot, resolved.DetectedGitRoot)
	}
	return nil, fmt.Errorf("no repository selected; pass --repo or run inside a registered work tree")
}
