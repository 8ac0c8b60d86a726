// Package cache implements the local artifact cache.
//
// The cache is a directory tree mirroring the maven2 repository layout: one
// file per (coordinate, extension) pair, so a cache directory can itself be
// served as a repository. Next to every artifact the cache keeps a small
// JSON [Record] with the origin repository and check/update timestamps.
//
// All writes go through a temporary file and a rename. An artifact without
// its record is "cold": it is treated as unverified and re-fetched rather
// than trusted, which makes an interrupted write self-healing.
package cache

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
)

const appName = "mvnkit"

// Cache maps coordinates to files under a root directory.
// It is safe for concurrent use.
type Cache struct {
	root  string
	locks sync.Map // g:a:v -> *sync.Mutex
}

// New creates a cache rooted at dir, creating the directory if needed.
// An empty dir selects [DefaultDir].
func New(dir string) (*Cache, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create cache dir %s", dir)
	}
	return &Cache{root: dir}, nil
}

// DefaultDir returns $MVNKIT_HOME/repository, else the XDG cache directory
// (~/.cache/mvnkit/repository).
func DefaultDir() (string, error) {
	if home := os.Getenv("MVNKIT_HOME"); home != "" {
		return filepath.Join(home, "repository"), nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName, "repository"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName, "repository"), nil
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// ArtifactPath returns the path of dep's ext file, whether or not it exists.
func (c *Cache) ArtifactPath(dep maven.Dependency, ext string) string {
	return filepath.Join(c.root, filepath.FromSlash(maven.ArtifactPath(dep, ext)))
}

// MetadataPath returns the path of dep's metadata ext file.
func (c *Cache) MetadataPath(dep maven.Dependency, ext string) string {
	return filepath.Join(c.root, filepath.FromSlash(maven.MetadataPath(dep, ext)))
}

// Artifact returns the path of dep's ext file if it is cached.
// System dependencies resolve to their own path.
func (c *Cache) Artifact(dep maven.Dependency, ext string) (string, bool) {
	path := dep.Path
	if dep.IsMavenObject() {
		path = c.ArtifactPath(dep, ext)
	}
	return path, isFile(path)
}

// Metadata returns the path of dep's metadata ext file if it is cached.
func (c *Cache) Metadata(dep maven.Dependency, ext string) (string, bool) {
	path := c.MetadataPath(dep, ext)
	return path, isFile(path)
}

// WriteArtifact atomically stores data as dep's ext file. A non-zero mtime
// is applied to the written file.
func (c *Cache) WriteArtifact(dep maven.Dependency, ext string, data []byte, mtime time.Time) (string, error) {
	if err := validate(dep); err != nil {
		return "", err
	}
	path := c.ArtifactPath(dep, ext)
	return path, writeFile(path, data, mtime)
}

// WriteMetadata atomically stores data as dep's metadata ext file.
func (c *Cache) WriteMetadata(dep maven.Dependency, ext string, data []byte, mtime time.Time) (string, error) {
	if err := validate(dep); err != nil {
		return "", err
	}
	path := c.MetadataPath(dep, ext)
	return path, writeFile(path, data, mtime)
}

// ReadFile reads a cached file. A missing file is a NOT_FOUND error.
func (c *Cache) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeNotFound, "%s not cached", path)
	}
	return data, err
}

// IsWarm reports whether dep's ext file and its record are both present.
func (c *Cache) IsWarm(dep maven.Dependency, ext string) bool {
	if _, ok := c.Artifact(dep, ext); !ok {
		return false
	}
	return isFile(c.recordPath(dep))
}

// Purge deletes every cached file of dep's coordinate: all extensions,
// classifiers, checksums and the record. It returns the number of files
// removed.
func (c *Cache) Purge(dep maven.Dependency) (int, error) {
	if !dep.IsMavenObject() {
		return 0, nil
	}
	if err := validate(dep); err != nil {
		return 0, err
	}
	unlock := c.lock(dep)
	defer unlock()

	dir := filepath.Dir(c.ArtifactPath(dep.POMArtifact(), maven.ExtPOM))
	prefix := dep.ArtifactID + "-" + dep.Version
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if !strings.HasPrefix(rest, ".") && !strings.HasPrefix(rest, "-") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err == nil {
			count++
		}
	}
	return count, nil
}

// PurgeMetadata deletes dep's cached maven-metadata.xml and its checksum.
// Records are kept. It returns the number of files removed.
func (c *Cache) PurgeMetadata(dep maven.Dependency) (int, error) {
	if !dep.IsMavenObject() {
		return 0, nil
	}
	if err := validate(dep); err != nil {
		return 0, err
	}
	unlock := c.lock(dep)
	defer unlock()

	count := 0
	for _, ext := range []string{maven.ExtXML, maven.ExtXML + maven.ExtSHA1} {
		err := os.Remove(c.MetadataPath(dep, ext))
		switch {
		case err == nil:
			count++
		case !os.IsNotExist(err):
			return count, err
		}
	}
	return count, nil
}

// Clear removes every cached file and returns the number removed.
func (c *Cache) Clear() (int, error) {
	count := 0
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == c.root || d.IsDir() {
			return nil
		}
		if err := os.Remove(path); err == nil {
			count++
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	// Remove emptied directories, deepest first.
	var dirs []string
	_ = filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != c.root {
			dirs = append(dirs, path)
		}
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
	return count, nil
}

// Walk calls fn for every cached artifact file, skipping records and
// temporary files. rel is slash-separated and relative to the root.
func (c *Cache) Walk(fn func(rel string, info fs.FileInfo) error) error {
	return filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || IsInternalFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(c.root, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), info)
	})
}

// IsInternalFile reports whether name is a record or temporary file that
// must not be exposed as a repository file.
func IsInternalFile(name string) bool {
	return strings.HasSuffix(name, recordSuffix) || strings.HasPrefix(name, tempPrefix)
}

func (c *Cache) lock(dep maven.Dependency) func() {
	v, _ := c.locks.LoadOrStore(dep.POMArtifact().MediationID(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func validate(dep maven.Dependency) error {
	if err := errors.ValidateCoordinatePart("groupId", dep.GroupID); err != nil {
		return err
	}
	if err := errors.ValidateCoordinatePart("artifactId", dep.ArtifactID); err != nil {
		return err
	}
	if err := errors.ValidateCoordinatePart("version", dep.Version); err != nil {
		return err
	}
	if dep.Classifier != "" {
		return errors.ValidateCoordinatePart("classifier", dep.Classifier)
	}
	return nil
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
