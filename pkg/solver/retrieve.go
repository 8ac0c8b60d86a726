package solver

import (
	"context"
	stderrors "errors"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
	"github.com/matzehuels/mvnkit/pkg/observability"
	"github.com/matzehuels/mvnkit/pkg/pom"
	"github.com/matzehuels/mvnkit/pkg/repository"
)

// maxImportRounds bounds re-reads of a descriptor while its BOM imports are
// fetched; each round may reveal imports of the newly fetched BOMs.
const maxImportRounds = 8

// ReadRoot reads the project descriptor at path and makes it the build's
// root. Its parent and imported BOMs are fetched when they are not cached.
func (s *Solver) ReadRoot(ctx context.Context, path string) (*pom.Pom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempted := make(map[string]bool)
	for range maxImportRounds {
		var imports []maven.Dependency
		p, err := s.reader.ReadPom(path, pom.Strict, &imports)

		var pending []maven.Dependency
		if errors.Is(err, errors.ErrCodeMissingParent) {
			var mp *pom.MissingParentError
			if !stderrors.As(err, &mp) {
				return nil, err
			}
			pending = append(pending, mp.Parent)
		} else if err != nil {
			return nil, err
		}
		pending = unattempted(append(pending, imports...), attempted)
		if len(pending) == 0 {
			if err != nil {
				return nil, err
			}
			s.build.Root = p
			clear(s.solutions)
			return p, nil
		}
		if err := s.prefetch(ctx, pending, attempted); err != nil {
			return nil, err
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidDescriptor, "%s: imports do not settle", path)
}

// RetrievePOM makes dep's descriptor available in the cache and prefetches
// its parent, its imported BOMs and the descriptors of the dependencies
// that reach a classpath from dep's ring. It returns the cached path, or "" for dependencies that
// have no descriptor.
func (s *Solver) RetrievePOM(ctx context.Context, dep maven.Dependency) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retrievePOM(ctx, dep)
}

// RetrievePOMs prefetches the descriptors of every root dependency in every
// declared scope, and transitively those of their compile and runtime
// dependencies.
func (s *Solver) RetrievePOMs(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.build.Root == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no project descriptor loaded")
	}
	for _, d := range classpathDependencies(s.build.Root, 1) {
		if _, err := s.retrievePOM(ctx, d); err != nil {
			if !errors.Is(err, errors.ErrCodeNotFound) {
				return err
			}
			s.logger.Warnf("no descriptor for %s", d.Coordinates())
		}
	}
	return nil
}

func (s *Solver) retrievePOM(ctx context.Context, dep maven.Dependency) (string, error) {
	if !dep.IsMavenObject() || dep.Version == "" {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if dep.IsVersionQuery() {
		v, err := s.resolveVersion(ctx, dep)
		if err != nil {
			return "", err
		}
		dep = dep.WithVersion(v)
	}

	pd := dep.POMArtifact()
	key := pd.MediationID()
	if s.visited[key] {
		path, _ := s.build.Cache.Artifact(pd, maven.ExtPOM)
		return path, nil
	}
	s.visited[key] = true

	path, err := s.fetch(ctx, pd, maven.ExtPOM)
	if err != nil {
		return "", err
	}

	p, err := s.settle(ctx, path, dep.Ring)
	if err != nil {
		return path, err
	}
	for _, d := range classpathDependencies(p, dep.Ring+1) {
		if _, err := s.retrievePOM(ctx, d); err != nil {
			if !errors.Is(err, errors.ErrCodeNotFound) {
				return path, err
			}
			s.logger.Debugf("no descriptor for %s (required by %s)", d.Coordinates(), dep.Coordinates())
		}
	}
	return path, nil
}

// settle reads the descriptor at path loosely, fetching its parent and
// imports until nothing more is missing. They are fetched at the ring of
// the descriptor that refers to them.
func (s *Solver) settle(ctx context.Context, path string, ring int) (*pom.Pom, error) {
	attempted := make(map[string]bool)
	for range maxImportRounds {
		var imports []maven.Dependency
		p, err := s.reader.ReadPom(path, pom.Loose, &imports)
		if err != nil {
			return nil, err
		}
		var pending []maven.Dependency
		if p.HasParent() {
			pending = append(pending, p.ParentDependency())
		}
		pending = unattempted(append(pending, imports...), attempted)
		if len(pending) == 0 {
			return p, nil
		}
		for i := range pending {
			pending[i].Ring = ring
		}
		if err := s.prefetch(ctx, pending, attempted); err != nil {
			return nil, err
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidDescriptor, "%s: imports do not settle", path)
}

// classpathDependencies returns p's dependencies at ring that some scope
// puts on a classpath. Test and provided dependencies of non-root
// descriptors never do, nor do their optional ones.
func classpathDependencies(p *pom.Pom, ring int) []maven.Dependency {
	var deps []maven.Dependency
	seen := make(map[string]bool)
	for _, scope := range p.Scopes() {
		for _, d := range p.Dependencies(scope, ring) {
			if seen[d.Key()] {
				continue
			}
			seen[d.Key()] = true
			deps = append(deps, d)
		}
	}
	return deps
}

func (s *Solver) prefetch(ctx context.Context, deps []maven.Dependency, attempted map[string]bool) error {
	for _, d := range deps {
		attempted[d.Key()] = true
		if _, err := s.retrievePOM(ctx, d); err != nil {
			if !errors.Is(err, errors.ErrCodeNotFound) {
				return err
			}
			s.logger.Warnf("no descriptor for %s", d.Coordinates())
		}
	}
	return nil
}

func unattempted(deps []maven.Dependency, attempted map[string]bool) []maven.Dependency {
	var out []maven.Dependency
	for _, d := range deps {
		if !attempted[d.Key()] {
			out = append(out, d)
		}
	}
	return out
}

// fetch returns the cached path of dep's ext file, downloading it from the
// first repository that has it. A cached file without a record is cold: it
// is downloaded again, and kept if no repository has it.
func (s *Solver) fetch(ctx context.Context, dep maven.Dependency, ext string) (string, error) {
	c := s.build.Cache
	path, cached := c.Artifact(dep, ext)
	if cached && (s.opts.Offline || c.IsWarm(dep, ext)) {
		observability.Cache().OnCacheHit(ctx, ext)
		return path, nil
	}
	if s.opts.Offline {
		return "", errors.New(errors.ErrCodeNotFound, "%s not cached (offline)", dep.Coordinates())
	}
	observability.Cache().OnCacheMiss(ctx, ext)

	for _, r := range repository.Order(s.build.Repositories, dep) {
		p, err := r.Download(ctx, dep, ext)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, errors.ErrCodeNotFound) {
			return "", err
		}
	}
	if cached {
		s.logger.Debugf("using unrecorded %s", path)
		return path, nil
	}
	return "", errors.New(errors.ErrCodeNotFound, "%s not found in any repository", maven.ArtifactPath(dep, ext))
}

// ResolveVersion returns the concrete version of a RELEASE or LATEST
// dependency; other versions are returned unchanged. Repository metadata is
// consulted when no record exists or the record is older than the update
// interval.
func (s *Solver) ResolveVersion(ctx context.Context, dep maven.Dependency) (string, error) {
	return s.resolveVersion(ctx, dep)
}

func (s *Solver) resolveVersion(ctx context.Context, dep maven.Dependency) (string, error) {
	if !dep.IsVersionQuery() {
		return dep.Version, nil
	}
	c := s.build.Cache
	rec, ok := c.ReadRecord(dep)
	if !s.opts.Offline && (!ok || rec.IsStale(s.opts.UpdateInterval, s.now())) {
		for _, r := range repository.Order(s.build.Repositories, dep) {
			if _, err := r.DownloadMetadata(ctx, dep); err != nil {
				if !errors.Is(err, errors.ErrCodeNotFound) {
					return "", err
				}
			}
		}
		rec, ok = c.ReadRecord(dep)
	}
	if ok {
		if v := rec.Version(dep.Version); v != "" {
			return v, nil
		}
	}
	return "", errors.New(errors.ErrCodeNotFound, "no %s version of %s", dep.Version, dep.ManagementID())
}
