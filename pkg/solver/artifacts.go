package solver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
)

// Artifact is a solved dependency and its cached files. Path is empty when
// no repository has the library.
type Artifact struct {
	maven.Dependency
	Path        string
	SourcesPath string
}

// RetrieveArtifacts solves scope and downloads each member's library, and
// its sources when enabled. Downloads run concurrently; the result keeps
// solution order. Missing sources are not an error.
func (s *Solver) RetrieveArtifacts(ctx context.Context, scope maven.Scope) ([]Artifact, error) {
	deps, err := s.Solve(ctx, scope)
	if err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, len(deps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, d := range deps {
		g.Go(func() error {
			a, err := s.artifact(gctx, d)
			if err != nil {
				return err
			}
			artifacts[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (s *Solver) artifact(ctx context.Context, d maven.Dependency) (Artifact, error) {
	a := Artifact{Dependency: d}
	if !d.IsMavenObject() {
		if path, ok := s.build.Cache.Artifact(d, ""); ok {
			a.Path = path
		} else {
			s.logger.Warnf("system dependency %s does not exist", d.Path)
		}
		return a, nil
	}
	if d.Version == "" || d.IsVersionQuery() {
		s.logger.Warnf("skipping %s: no concrete version", d.ManagementID())
		return a, nil
	}

	ext := d.Extension
	if ext == "" {
		ext = maven.ExtJAR
	}
	path, err := s.fetch(ctx, d, ext)
	switch {
	case err == nil:
		a.Path = path
	case errors.Is(err, errors.ErrCodeNotFound):
		s.logger.Warnf("no artifact for %s", d.Coordinates())
		return a, nil
	default:
		return a, err
	}

	if s.opts.Sources && ext == maven.ExtJAR && d.Classifier == "" {
		src := d.SourcesArtifact()
		path, err := s.fetch(ctx, src, maven.ExtJAR)
		switch {
		case err == nil:
			a.SourcesPath = path
		case ctx.Err() != nil:
			return a, ctx.Err()
		default:
			s.logger.Debugf("no sources for %s: %v", d.Coordinates(), errors.UserMessage(err))
		}
	}
	return a, nil
}
