// Package solver computes the transitive dependency closure of a project
// per scope and retrieves the artifacts it names.
//
// A [Solver] works on a [Build]: the root descriptor, the artifact cache and
// the ordered repositories of one invocation. Solutions are deterministic:
// the walk is depth-first in declaration order and keeps the first
// occurrence of each mediation id. Versions are not mediated: two versions
// of one library both appear.
// Downloads may run concurrently but never reorder the solution.
//
// # Usage
//
//	s, err := solver.New(solver.Build{Cache: c, Repositories: repos})
//	root, err := s.ReadRoot(ctx, "pom.xml")
//	deps, err := s.Solve(ctx, maven.ScopeRuntime)
//	artifacts, err := s.RetrieveArtifacts(ctx, maven.ScopeRuntime)
package solver

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/mvnkit/pkg/cache"
	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
	"github.com/matzehuels/mvnkit/pkg/observability"
	"github.com/matzehuels/mvnkit/pkg/pom"
	"github.com/matzehuels/mvnkit/pkg/repository"
)

// Defaults applied by [Options.WithDefaults].
const (
	DefaultWorkers        = 8
	DefaultUpdateInterval = 24 * time.Hour
	DefaultPomCacheSize   = 1024
)

// Options configures a [Solver].
type Options struct {
	Workers        int           // Concurrent artifact downloads (default: 8)
	Sources        bool          // Also fetch sources jars, best effort
	UpdateInterval time.Duration // Age after which RELEASE/LATEST are re-checked (default: 24h)
	Offline        bool          // Use the cache only
	PomCacheSize   int           // Parsed descriptors kept in memory (default: 1024)

	// BuildProperties are visible to ${...} placeholders in every descriptor.
	BuildProperties map[string]string

	Logger *log.Logger
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = DefaultUpdateInterval
	}
	if opts.PomCacheSize <= 0 {
		opts.PomCacheSize = DefaultPomCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return opts
}

// Build is the context of one resolution: the project descriptor, where
// artifacts are cached and where they are fetched from.
type Build struct {
	// Root is the project descriptor. It may be left nil and loaded with
	// [Solver.ReadRoot].
	Root *pom.Pom

	Cache        *cache.Cache
	Repositories []*repository.Repository
	Options      Options
}

// Solver resolves a [Build]. It is safe for concurrent use; solves are
// serialized and memoized per scope.
type Solver struct {
	build  Build
	opts   Options
	logger *log.Logger
	reader *pom.Reader
	poms   *lru.Cache[string, *pom.Pom]
	now    func() time.Time

	mu        sync.Mutex
	solutions map[maven.Scope][]maven.Dependency
	visited   map[string]bool
}

// New creates a solver for b.
func New(b Build) (*Solver, error) {
	if b.Cache == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "solver requires a cache")
	}
	opts := b.Options.WithDefaults()
	poms, err := lru.New[string, *pom.Pom](opts.PomCacheSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create descriptor cache")
	}
	return &Solver{
		build:  b,
		opts:   opts,
		logger: opts.Logger,
		reader: &pom.Reader{
			Cache:           b.Cache,
			Logger:          opts.Logger,
			BuildProperties: opts.BuildProperties,
		},
		poms:      poms,
		now:       time.Now,
		solutions: make(map[maven.Scope][]maven.Dependency),
		visited:   make(map[string]bool),
	}, nil
}

// Root returns the project descriptor, or nil before it is loaded.
func (s *Solver) Root() *pom.Pom {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.build.Root
}

// Solve returns the dependencies on the scope's classpath in solution
// order. The result is memoized; callers receive a copy.
func (s *Solver) Solve(ctx context.Context, scope maven.Scope) ([]maven.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deps, ok := s.solutions[scope]; ok {
		return slices.Clone(deps), nil
	}
	if s.build.Root == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no project descriptor loaded")
	}

	roots := s.build.Root.Dependencies(scope, 1)
	hooks := observability.Resolve()
	hooks.OnSolveStart(ctx, scope.String(), len(roots))
	start := time.Now()

	deps, err := s.solve(ctx, scope, roots)
	hooks.OnSolveComplete(ctx, scope.String(), len(deps), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.solutions[scope] = deps
	return slices.Clone(deps), nil
}

type walker struct {
	s     *Solver
	ctx   context.Context
	scope maven.Scope
	out   []maven.Dependency
	seen  map[string]bool
}

func (s *Solver) solve(ctx context.Context, scope maven.Scope, roots []maven.Dependency) ([]maven.Dependency, error) {
	w := &walker{s: s, ctx: ctx, scope: scope, seen: make(map[string]bool)}
	if err := w.walk(roots, s.build.Root.Exclusions()); err != nil {
		return nil, err
	}
	return w.out, nil
}

// walk appends deps depth-first. exclusions accumulate along the path from
// the root.
func (w *walker) walk(deps []maven.Dependency, exclusions []string) error {
	for _, d := range deps {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if d.IsMavenObject() && (maven.MatchesExclusion(exclusions, d) || slices.Contains(exclusions, d.MediationID())) {
			continue
		}

		if d.IsVersionQuery() {
			v, err := w.s.resolveVersion(w.ctx, d)
			switch {
			case err == nil:
				d = d.WithVersion(v)
			case errors.Is(err, errors.ErrCodeNotFound):
				w.s.logger.Warnf("cannot resolve %s: %v", d.Coordinates(), errors.UserMessage(err))
			default:
				return err
			}
		}

		if w.seen[d.Key()] {
			continue
		}
		w.seen[d.Key()] = true
		w.out = append(w.out, d)

		if !d.ResolveDependencies() {
			continue
		}
		p, err := w.s.descriptor(w.ctx, d)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		path := append(slices.Clone(exclusions), d.Exclusions...)
		if err := w.walk(p.Dependencies(w.scope, d.Ring+1), path); err != nil {
			return err
		}
	}
	return nil
}

// descriptor returns the parsed descriptor of d, fetching it if needed. A
// descriptor that no repository has yields nil.
func (s *Solver) descriptor(ctx context.Context, d maven.Dependency) (*pom.Pom, error) {
	if d.Version == "" {
		s.logger.Warnf("%s has no version", d.ManagementID())
		return nil, nil
	}
	pd := d.POMArtifact()
	key := pd.MediationID()
	if p, ok := s.poms.Get(key); ok {
		return p, nil
	}

	if _, err := s.retrievePOM(ctx, pd); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			s.logger.Warnf("no descriptor for %s", d.Coordinates())
			return nil, nil
		}
		return nil, err
	}

	p, err := s.reader.ReadDependency(pd, pom.Strict)
	if errors.Is(err, errors.ErrCodeMissingParent) {
		s.logger.Warnf("%s: %s, reading without it", d.Coordinates(), errors.UserMessage(err))
		p, err = s.reader.ReadDependency(pd, pom.Loose)
	}
	if err != nil {
		return nil, err
	}
	if p != nil {
		s.poms.Add(key, p)
	}
	return p, nil
}

// Classpath returns the cached library paths of the scope's solution in
// solution order, downloading what is missing.
func (s *Solver) Classpath(ctx context.Context, scope maven.Scope) ([]string, error) {
	artifacts, err := s.RetrieveArtifacts(ctx, scope)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Path != "" {
			paths = append(paths, a.Path)
		}
	}
	return paths, nil
}
