package pom

import (
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
)

// License is a <license> entry.
type License struct {
	Name         string `xml:"name,omitempty"`
	URL          string `xml:"url,omitempty"`
	Distribution string `xml:"distribution,omitempty"`
	Comments     string `xml:"comments,omitempty"`
}

// Person is a <developer> or <contributor> entry.
type Person struct {
	ID              string   `xml:"id,omitempty"`
	Name            string   `xml:"name,omitempty"`
	Email           string   `xml:"email,omitempty"`
	URL             string   `xml:"url,omitempty"`
	Organization    string   `xml:"organization,omitempty"`
	OrganizationURL string   `xml:"organizationUrl,omitempty"`
	Roles           []string `xml:"roles>role,omitempty"`
}

// SCM is the <scm> block.
type SCM struct {
	Connection          string `xml:"connection,omitempty"`
	DeveloperConnection string `xml:"developerConnection,omitempty"`
	URL                 string `xml:"url,omitempty"`
	Tag                 string `xml:"tag,omitempty"`
}

// IsEmpty reports whether no SCM field is set.
func (s SCM) IsEmpty() bool { return s == SCM{} }

// Property is one entry of the property table.
type Property struct {
	Key   string
	Value string
}

// Pom is an in-memory project descriptor. A Pom is populated while it is
// read and treated as frozen afterwards; reads are safe for concurrent use.
type Pom struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
	Packaging  string

	Name            string
	Description     string
	URL             string
	IssuesURL       string
	Organization    string
	OrganizationURL string
	InceptionYear   string

	ParentGroupID    string
	ParentArtifactID string
	ParentVersion    string

	SCM          SCM
	Licenses     []License
	Developers   []Person
	Contributors []Person

	properties      map[string]string
	propertyOrder   []string
	buildProperties map[string]string

	managedVersions map[string]string
	managedScopes   map[string]maven.Scope
	managedOrder    []string

	exclusions   []string
	dependencies map[maven.Scope][]maven.Dependency
	scopeOrder   []maven.Scope

	logger *log.Logger
	mu     sync.Mutex
	warned map[string]bool
}

// New returns an empty descriptor with jar packaging.
func New() *Pom {
	return &Pom{
		Packaging:       maven.ExtJAR,
		properties:      make(map[string]string),
		buildProperties: make(map[string]string),
		managedVersions: make(map[string]string),
		managedScopes:   make(map[string]maven.Scope),
		dependencies:    make(map[maven.Scope][]maven.Dependency),
		warned:          make(map[string]bool),
	}
}

// SetLogger sets the logger used for warnings. nil selects log.Default().
func (p *Pom) SetLogger(l *log.Logger) { p.logger = l }

func (p *Pom) log() *log.Logger {
	if p.logger != nil {
		return p.logger
	}
	return log.Default()
}

// warnOnce logs a warning the first time key is seen on this descriptor.
func (p *Pom) warnOnce(key, format string, args ...any) {
	p.mu.Lock()
	seen := p.warned[key]
	p.warned[key] = true
	p.mu.Unlock()
	if !seen {
		p.log().Warnf(format, args...)
	}
}

// ManagementID returns "group:artifact".
func (p *Pom) ManagementID() string {
	return p.GroupID + ":" + p.ArtifactID
}

// Coordinates returns "group:artifact:version[:classifier]".
func (p *Pom) Coordinates() string {
	s := p.GroupID + ":" + p.ArtifactID + ":" + p.Version
	if p.Classifier != "" {
		s += ":" + p.Classifier
	}
	return s
}

func (p *Pom) String() string { return p.Coordinates() }

// Dependency returns the descriptor's own coordinate as a dependency on
// its packaged artifact.
func (p *Pom) Dependency() maven.Dependency {
	d := maven.NewDependency(p.GroupID, p.ArtifactID, p.Version)
	d.Classifier = p.Classifier
	d.Extension = p.Extension()
	return d
}

// HasParent reports whether a parent link is declared.
func (p *Pom) HasParent() bool { return p.ParentArtifactID != "" }

// ParentDependency returns the parent descriptor coordinate.
func (p *Pom) ParentDependency() maven.Dependency {
	d := maven.NewDependency(p.ParentGroupID, p.ParentArtifactID, p.ParentVersion)
	d.Extension = maven.ExtPOM
	return d
}

// Extension returns the file extension of the packaged artifact.
func (p *Pom) Extension() string {
	if ext := maven.ExtensionForType(p.Packaging); ext != "" {
		return ext
	}
	return maven.ExtJAR
}

func (p *Pom) IsPOM() bool { return strings.EqualFold(p.Extension(), maven.ExtPOM) }
func (p *Pom) IsJAR() bool { return strings.EqualFold(p.Extension(), maven.ExtJAR) }
func (p *Pom) IsWAR() bool { return strings.EqualFold(p.Extension(), "war") }

// IsSnapshot reports whether the version is a snapshot. It fails when the
// version is undefined.
func (p *Pom) IsSnapshot() (bool, error) {
	if p.Version == "" {
		return false, errors.New(errors.ErrCodeInvalidDescriptor, "version is undefined for %q", p.Coordinates())
	}
	return strings.Contains(p.Version, "-SNAPSHOT"), nil
}

// Inherit merges parent into p. Managed tables and properties are copied
// without overriding p's own entries; licenses, developers and contributors
// are appended; identity and descriptive fields are back-filled only where
// p left them empty.
func (p *Pom) Inherit(parent *Pom) {
	p.ImportManagedDependencies(parent)
	for _, k := range parent.propertyOrder {
		if _, ok := p.properties[k]; !ok {
			p.properties[k] = parent.properties[k]
			p.propertyOrder = append(p.propertyOrder, k)
		}
	}

	backfill(&p.GroupID, parent.GroupID)
	backfill(&p.Version, parent.Version)
	backfill(&p.Name, parent.Name)
	backfill(&p.Description, parent.Description)
	backfill(&p.Organization, parent.Organization)
	backfill(&p.OrganizationURL, parent.OrganizationURL)
	backfill(&p.URL, parent.URL)
	backfill(&p.IssuesURL, parent.IssuesURL)

	p.Licenses = append(p.Licenses, parent.Licenses...)
	p.Developers = append(p.Developers, parent.Developers...)
	p.Contributors = append(p.Contributors, parent.Contributors...)
}

// ImportManagedDependencies merges other's managed versions and scopes
// into p without overriding p's entries.
func (p *Pom) ImportManagedDependencies(other *Pom) {
	for _, k := range other.managedOrder {
		if _, ok := p.managedVersions[k]; !ok {
			p.managedVersions[k] = other.managedVersions[k]
			p.managedOrder = append(p.managedOrder, k)
		}
		if s, ok := other.managedScopes[k]; ok {
			if _, exists := p.managedScopes[k]; !exists {
				p.managedScopes[k] = s
			}
		}
	}
}

func backfill(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}
