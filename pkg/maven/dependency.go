package maven

import (
	"slices"
	"strings"

	"github.com/matzehuels/mvnkit/pkg/errors"
)

// Pseudo-versions resolved through repository metadata.
const (
	VersionRelease = "RELEASE"
	VersionLatest  = "LATEST"
)

// File extensions with special meaning.
const (
	ExtJAR  = "jar"
	ExtPOM  = "pom"
	ExtXML  = "xml"
	ExtSHA1 = ".sha1"

	// ClassifierSources marks the sources artifact of a library.
	ClassifierSources = "sources"
)

// Coordinate identifies an artifact.
type Coordinate struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
	Extension  string
}

// ManagementID returns "group:artifact".
func (c Coordinate) ManagementID() string {
	return c.GroupID + ":" + c.ArtifactID
}

// MediationID returns "group:artifact:version[:classifier]".
func (c Coordinate) MediationID() string {
	id := c.GroupID + ":" + c.ArtifactID + ":" + c.Version
	if c.Classifier != "" {
		id += ":" + c.Classifier
	}
	return id
}

// Coordinates returns the full colon-separated coordinate string.
func (c Coordinate) Coordinates() string {
	s := c.MediationID()
	if c.Extension != "" && c.Extension != ExtJAR {
		if c.Classifier == "" {
			s += ":"
		}
		s += ":" + c.Extension
	}
	return s
}

// IsSnapshot reports whether the version is a snapshot.
func (c Coordinate) IsSnapshot() bool {
	return strings.HasSuffix(c.Version, "-SNAPSHOT")
}

// IsVersionQuery reports whether the version is RELEASE or LATEST.
func (c Coordinate) IsVersionQuery() bool {
	return c.Version == VersionRelease || c.Version == VersionLatest
}

// Dependency is a declared dependency on an artifact. A dependency with a
// Path is a system dependency: an opaque local file that is never resolved
// transitively.
type Dependency struct {
	Coordinate

	// Scope is the scope the dependency was resolved into; empty until
	// resolved.
	Scope Scope

	// DefinedScope is the declared scope, or the transformed scope for
	// transitive dependencies.
	DefinedScope Scope

	Optional   bool
	Exclusions []string

	// Ring is the resolution depth: 0 for dependencies injected by the
	// build, 1 for project declarations and >1 for transitive ones.
	Ring int

	// Path locates a system dependency.
	Path string

	// Origin is the repository URL the artifact was downloaded from.
	Origin string
}

// NewDependency returns a jar dependency on group:artifact:version.
func NewDependency(group, artifact, version string) Dependency {
	return Dependency{Coordinate: Coordinate{
		GroupID:    group,
		ArtifactID: artifact,
		Version:    version,
		Extension:  ExtJAR,
	}}
}

// NewSystemDependency returns a dependency on a local file.
func NewSystemDependency(path string) Dependency {
	return Dependency{Path: path, Scope: ScopeSystem, DefinedScope: ScopeSystem}
}

// ParseDependency parses "group:artifact:version[:classifier[:ext]]".
// The extension defaults to jar.
func ParseDependency(s string) (Dependency, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Dependency{}, errors.New(errors.ErrCodeInvalidInput, "empty coordinate")
	}
	if i := strings.IndexByte(s, '@'); i >= 0 {
		// group:artifact:version@ext shorthand
		ext := s[i+1:]
		d, err := ParseDependency(s[:i])
		if err != nil {
			return d, err
		}
		d.Extension = ext
		return d, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 5 {
		return Dependency{}, errors.New(errors.ErrCodeInvalidInput, "invalid coordinate %q (expected group:artifact:version[:classifier[:ext]])", s)
	}
	for _, p := range parts[:2] {
		if strings.TrimSpace(p) == "" {
			return Dependency{}, errors.New(errors.ErrCodeInvalidInput, "invalid coordinate %q: empty group or artifact", s)
		}
	}
	d := NewDependency(parts[0], parts[1], "")
	if len(parts) > 2 {
		d.Version = parts[2]
	}
	if len(parts) > 3 {
		d.Classifier = parts[3]
	}
	if len(parts) > 4 && parts[4] != "" {
		d.Extension = parts[4]
	}
	return d, nil
}

// IsMavenObject reports whether d is a coordinate dependency.
func (d Dependency) IsMavenObject() bool { return d.Path == "" }

// ResolveDependencies reports whether the solver should walk d's own
// dependencies.
func (d Dependency) ResolveDependencies() bool { return d.IsMavenObject() }

// Key is the de-duplication key: the mediation id, or the path of a
// system dependency.
func (d Dependency) Key() string {
	if !d.IsMavenObject() {
		return d.Path
	}
	return d.MediationID()
}

// POMArtifact returns the descriptor coordinate of d.
func (d Dependency) POMArtifact() Dependency {
	p := d
	p.Classifier = ""
	p.Extension = ExtPOM
	p.Exclusions = slices.Clone(d.Exclusions)
	return p
}

// SourcesArtifact returns the sources jar coordinate of d.
func (d Dependency) SourcesArtifact() Dependency {
	s := d
	s.Classifier = ClassifierSources
	s.Extension = ExtJAR
	return s
}

// WithVersion returns a copy of d with version v.
func (d Dependency) WithVersion(v string) Dependency {
	c := d
	c.Version = v
	c.Exclusions = slices.Clone(d.Exclusions)
	return c
}

// Excludes reports whether any exclusion of d matches other.
func (d Dependency) Excludes(other Dependency) bool {
	return MatchesExclusion(d.Exclusions, other)
}

// MatchesExclusion reports whether dep matches any "group" or
// "group:artifact" pattern. Either half may be "*".
func MatchesExclusion(patterns []string, dep Dependency) bool {
	for _, p := range patterns {
		group, artifact, hasArtifact := strings.Cut(p, ":")
		if group != "*" && group != dep.GroupID {
			continue
		}
		if !hasArtifact || artifact == "*" || artifact == dep.ArtifactID {
			return true
		}
	}
	return false
}

func (d Dependency) String() string {
	if !d.IsMavenObject() {
		return d.Path
	}
	return d.Coordinates()
}

// ExtensionForType maps a dependency <type> to a file extension. An empty
// type maps to an empty extension; the caller applies the jar default.
func ExtensionForType(typ string) string {
	switch typ = strings.TrimSpace(typ); typ {
	case "bundle", "maven-plugin", "ejb", "test-jar", "ejb-client", "java-source", "javadoc":
		return ExtJAR
	default:
		return typ
	}
}
