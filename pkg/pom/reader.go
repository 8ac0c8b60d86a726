package pom

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
)

// Requirements controls how strictly a descriptor is read.
type Requirements int

const (
	// Strict requires the parent descriptor to be cached and resolves the
	// descriptive fields.
	Strict Requirements = iota

	// Loose substitutes a stand-in parent carrying only its coordinate when
	// the parent is not cached yet. It is used while descriptors are still
	// being fetched.
	Loose
)

func (r Requirements) String() string {
	if r == Loose {
		return "loose"
	}
	return "strict"
}

func (r Requirements) requireParent() bool     { return r == Strict }
func (r Requirements) resolveDescriptor() bool { return r == Strict }

// PomLocator finds cached artifact files. *cache.Cache implements it.
type PomLocator interface {
	Artifact(dep maven.Dependency, ext string) (string, bool)
}

// MissingParentError reports that a parent descriptor is not cached. It is
// returned wrapped in an [errors.ErrCodeMissingParent] error.
type MissingParentError struct {
	Parent maven.Dependency
}

func (e *MissingParentError) Error() string {
	return "missing parent descriptor " + e.Parent.Coordinates()
}

// Reader parses descriptor documents, reading parents and imported
// descriptors from a cache.
type Reader struct {
	Cache  PomLocator
	Logger *log.Logger

	// BuildProperties are consulted during property resolution after the
	// environment.
	BuildProperties map[string]string
}

// ReadDependency reads the cached descriptor of dep. It returns nil and no
// error when the descriptor is not cached.
func (r *Reader) ReadDependency(dep maven.Dependency, req Requirements) (*Pom, error) {
	return r.readDependency(dep, req, nil, nil)
}

// ReadPom reads the descriptor at path.
//
// The parent link is followed recursively and inherited before the rest of
// the document is applied. Dependency coordinates are resolved only after
// the whole document has been read, so a property may be defined after the
// dependency that uses it. Imported descriptors (scope import) that are not
// cached are appended to imports, if non-nil, for the caller to fetch.
func (r *Reader) ReadPom(path string, req Requirements, imports *[]maven.Dependency) (*Pom, error) {
	return r.readPom(path, req, imports, nil)
}

// Parse reads a descriptor document from rd. Parent and import lookups use
// r.Cache; a nil Cache behaves like an empty cache.
func (r *Reader) Parse(rd io.Reader, req Requirements, imports *[]maven.Dependency) (*Pom, error) {
	return r.parse(rd, "descriptor", req, imports, nil)
}

func (r *Reader) readDependency(dep maven.Dependency, req Requirements, imports *[]maven.Dependency, chain []string) (*Pom, error) {
	if r.Cache == nil {
		return nil, nil
	}
	path, ok := r.Cache.Artifact(dep.POMArtifact(), maven.ExtPOM)
	if !ok {
		return nil, nil
	}
	return r.readPom(path, req, imports, chain)
}

func (r *Reader) readPom(path string, req Requirements, imports *[]maven.Dependency, chain []string) (*Pom, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "descriptor %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open descriptor %s", path)
	}
	defer f.Close()
	return r.parse(f, path, req, imports, chain)
}

// document holds the parts of a descriptor that are applied after the walk.
type document struct {
	managed []xmlDependency
	deps    []xmlDependency
}

func (r *Reader) parse(rd io.Reader, name string, req Requirements, imports *[]maven.Dependency, chain []string) (*Pom, error) {
	p := New()
	p.SetLogger(r.Logger)
	p.SetBuildProperties(r.BuildProperties)

	dec := xml.NewDecoder(rd)
	dec.CharsetReader = charsetReader

	if err := seekRoot(dec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDescriptor, err, "parse %s", name)
	}

	var doc document
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDescriptor, err, "parse %s", name)
		}
		if _, ok := tok.(xml.EndElement); ok {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if err := r.element(dec, start, p, &doc, req, imports, chain); err != nil {
			if errors.GetCode(err) != "" {
				return nil, err
			}
			return nil, errors.Wrap(errors.ErrCodeInvalidDescriptor, err, "parse %s <%s>", name, start.Name.Local)
		}
	}

	if req.resolveDescriptor() {
		p.resolveDescriptor()
	}

	for _, x := range doc.managed {
		dep, scope := x.dependency(p)
		if scope == maven.ScopeImport {
			if err := r.importManaged(p, dep, req, imports, chain); err != nil {
				return nil, err
			}
			continue
		}
		p.AddManagedDependency(dep, scope, true)
	}

	for _, x := range doc.deps {
		dep, scope := x.dependency(p)
		p.AddDependency(dep, scope, true)
	}
	return p, nil
}

// element applies one top-level child of <project>.
func (r *Reader) element(dec *xml.Decoder, start xml.StartElement, p *Pom, doc *document, req Requirements, imports *[]maven.Dependency, chain []string) error {
	switch strings.ToLower(start.Name.Local) {
	case "parent":
		var x xmlParent
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		p.ParentGroupID = strings.TrimSpace(x.GroupID)
		p.ParentArtifactID = strings.TrimSpace(x.ArtifactID)
		p.ParentVersion = strings.TrimSpace(x.Version)
		return r.inheritParent(p, req, imports, chain)

	case "properties":
		var x xmlProperties
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		for _, e := range x.Entries {
			p.SetProperty(e.XMLName.Local, strings.TrimSpace(e.Value))
		}

	case "dependencymanagement":
		var x xmlDependencyManagement
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		doc.managed = append(doc.managed, x.Dependencies...)

	case "dependencies":
		var x xmlDependencies
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		doc.deps = append(doc.deps, x.Dependencies...)

	case "licenses":
		var x xmlLicenses
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		// A descriptor that declares licenses replaces the inherited ones.
		p.Licenses = x.Licenses

	case "developers":
		var x xmlDevelopers
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		p.Developers = append(p.Developers, x.Developers...)

	case "contributors":
		var x xmlContributors
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		p.Contributors = append(p.Contributors, x.Contributors...)

	case "scm":
		var x SCM
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		p.SCM = x

	case "issuemanagement":
		var x xmlNamedURL
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		p.IssuesURL = strings.TrimSpace(x.URL)

	case "organization":
		var x xmlNamedURL
		if err := dec.DecodeElement(&x, &start); err != nil {
			return err
		}
		p.Organization = strings.TrimSpace(x.Name)
		p.OrganizationURL = strings.TrimSpace(x.URL)

	case "groupid":
		return decodeText(dec, start, &p.GroupID)
	case "artifactid":
		return decodeText(dec, start, &p.ArtifactID)
	case "version":
		return decodeText(dec, start, &p.Version)
	case "packaging":
		return decodeText(dec, start, &p.Packaging)
	case "name":
		return decodeText(dec, start, &p.Name)
	case "description":
		return decodeText(dec, start, &p.Description)
	case "url":
		return decodeText(dec, start, &p.URL)
	case "inceptionyear":
		return decodeText(dec, start, &p.InceptionYear)

	default:
		return dec.Skip()
	}
	return nil
}

func (r *Reader) inheritParent(p *Pom, req Requirements, imports *[]maven.Dependency, chain []string) error {
	parent := p.ParentDependency()
	id := parent.MediationID()
	for _, c := range chain {
		if c == id {
			return errors.New(errors.ErrCodeInvalidDescriptor, "parent cycle through %s", id)
		}
	}

	pp, err := r.readDependency(parent, req, imports, append(chain, id))
	if err != nil {
		return err
	}
	if pp == nil {
		if req.requireParent() {
			return errors.Wrap(errors.ErrCodeMissingParent, &MissingParentError{Parent: parent},
				"parent of %s is not cached", p.ManagementID())
		}
		// Stand-in so that ${parent.*} and ${project.version} still resolve.
		pp = New()
		pp.GroupID = p.ParentGroupID
		pp.ArtifactID = p.ParentArtifactID
		pp.Version = p.ParentVersion
	}
	p.Inherit(pp)
	return nil
}

func (r *Reader) importManaged(p *Pom, dep maven.Dependency, req Requirements, imports *[]maven.Dependency, chain []string) error {
	dep = dep.POMArtifact()
	bom, err := r.readDependency(dep, req, imports, chain)
	if err != nil {
		return err
	}
	if bom == nil {
		if imports != nil && !containsKey(*imports, dep) {
			*imports = append(*imports, dep)
		}
		return nil
	}
	p.ImportManagedDependencies(bom)
	return nil
}

func containsKey(deps []maven.Dependency, dep maven.Dependency) bool {
	for _, d := range deps {
		if d.Key() == dep.Key() {
			return true
		}
	}
	return false
}

func seekRoot(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("no root element")
			}
			return err
		}
		if start, ok := tok.(xml.StartElement); ok {
			if !strings.EqualFold(start.Name.Local, "project") {
				return fmt.Errorf("root element is <%s>, want <project>", start.Name.Local)
			}
			return nil
		}
	}
}

func decodeText(dec *xml.Decoder, start xml.StartElement, dst *string) error {
	var s string
	if err := dec.DecodeElement(&s, &start); err != nil {
		return err
	}
	*dst = strings.TrimSpace(s)
	return nil
}

// charsetReader accepts the encodings descriptors declare in practice.
// Latin-1 is close enough to UTF-8 for the ASCII element names and values
// that matter here.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8", "us-ascii", "ascii", "iso-8859-1", "latin1", "windows-1252":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", charset)
}

// =============================================================================
// Document structure
// =============================================================================

type xmlParent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type xmlProperties struct {
	Entries []xmlProperty `xml:",any"`
}

type xmlProperty struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlDependencyManagement struct {
	Dependencies []xmlDependency `xml:"dependencies>dependency"`
}

type xmlDependencies struct {
	Dependencies []xmlDependency `xml:"dependency"`
}

type xmlLicenses struct {
	Licenses []License `xml:"license"`
}

type xmlDevelopers struct {
	Developers []Person `xml:"developer"`
}

type xmlContributors struct {
	Contributors []Person `xml:"contributor"`
}

type xmlNamedURL struct {
	Name string `xml:"name"`
	URL  string `xml:"url"`
}

type xmlDependency struct {
	GroupID    string         `xml:"groupId"`
	ArtifactID string         `xml:"artifactId"`
	Version    string         `xml:"version"`
	Classifier string         `xml:"classifier"`
	Type       string         `xml:"type"`
	Scope      string         `xml:"scope"`
	Optional   string         `xml:"optional"`
	SystemPath string         `xml:"systemPath"`
	Exclusions []xmlExclusion `xml:"exclusions>exclusion"`
}

type xmlExclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

// dependency converts x. Coordinates are left unresolved; the Pom resolves
// them when the dependency is added. An unknown or missing scope is "".
func (x xmlDependency) dependency(p *Pom) (maven.Dependency, maven.Scope) {
	dep := maven.NewDependency(strings.TrimSpace(x.GroupID), strings.TrimSpace(x.ArtifactID), strings.TrimSpace(x.Version))
	dep.Classifier = strings.TrimSpace(x.Classifier)
	dep.Extension = maven.ExtensionForType(x.Type)
	dep.Optional, _ = strconv.ParseBool(strings.TrimSpace(x.Optional))

	for _, e := range x.Exclusions {
		g, a := strings.TrimSpace(e.GroupID), strings.TrimSpace(e.ArtifactID)
		switch {
		case g == "":
		case a == "":
			dep.Exclusions = append(dep.Exclusions, g)
		default:
			dep.Exclusions = append(dep.Exclusions, g+":"+a)
		}
	}

	raw := strings.TrimSpace(x.Scope)
	scope, ok := maven.ParseScope(raw)
	if !ok && raw != "" {
		p.warnOnce("scope:"+raw, "unknown scope %q for %s in %s", raw, dep.ManagementID(), p.Coordinates())
	}
	if scope == maven.ScopeSystem && strings.TrimSpace(x.SystemPath) != "" {
		dep.Path = strings.TrimSpace(x.SystemPath)
	}
	dep.DefinedScope = scope
	return dep, scope
}
