package pom

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/matzehuels/mvnkit/pkg/maven"
)

const modelVersion = "4.0.0"

// Repository is a <repository> entry of an emitted descriptor.
type Repository struct {
	ID   string `xml:"id"`
	Name string `xml:"name,omitempty"`
	URL  string `xml:"url"`
}

// WriteOptions controls descriptor emission.
type WriteOptions struct {
	IncludeProperties bool
	Repositories      []Repository
}

// WriteXML emits p as a plain Maven descriptor. Dependencies are grouped by
// scope; scopes without a Maven equivalent are skipped.
func (p *Pom) WriteXML(w io.Writer, opts WriteOptions) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	x := &xmlWriter{enc: enc}

	x.start("project",
		attr("xmlns", "http://maven.apache.org/POM/"+modelVersion),
		attr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance"),
		attr("xsi:schemaLocation", "http://maven.apache.org/POM/"+modelVersion+
			" http://maven.apache.org/maven-v"+strings.ReplaceAll(modelVersion, ".", "_")+".xsd"),
	)
	x.text("modelVersion", modelVersion)

	if p.HasParent() {
		x.start("parent")
		x.text("groupId", p.ParentGroupID)
		x.text("artifactId", p.ParentArtifactID)
		x.text("version", p.ParentVersion)
		x.end("parent")
	}

	x.text("groupId", p.GroupID)
	x.text("artifactId", p.ArtifactID)
	x.text("version", p.Version)
	x.text("packaging", p.Packaging)
	x.text("name", p.Name)
	x.text("description", p.Description)
	if p.Organization != "" || p.OrganizationURL != "" {
		x.start("organization")
		x.text("name", p.Organization)
		x.text("url", p.OrganizationURL)
		x.end("organization")
	}
	x.text("url", p.URL)
	x.text("inceptionYear", p.InceptionYear)
	if p.IssuesURL != "" {
		x.start("issueManagement")
		x.text("url", p.IssuesURL)
		x.end("issueManagement")
	}

	if len(p.Licenses) > 0 {
		x.start("licenses")
		for _, l := range p.Licenses {
			x.element("license", l)
		}
		x.end("licenses")
	}
	if !p.SCM.IsEmpty() {
		x.element("scm", p.SCM)
	}
	x.persons("developer", p.Developers)
	x.persons("contributor", p.Contributors)

	if opts.IncludeProperties {
		x.properties(p.Properties())
	}

	if len(opts.Repositories) > 0 {
		x.start("repositories")
		for _, r := range opts.Repositories {
			x.element("repository", r)
		}
		x.end("repositories")
	}

	if managed := p.ManagedDependencies(); len(managed) > 0 {
		x.start("dependencyManagement")
		x.start("dependencies")
		for _, d := range managed {
			x.dependency(d, d.Scope)
		}
		x.end("dependencies")
		x.end("dependencyManagement")
	}

	if p.HasDependencies() {
		x.start("dependencies")
		for _, scope := range p.scopeOrder {
			if !scope.IsMavenScope() {
				continue
			}
			x.comment(" " + scope.String() + " dependencies ")
			for _, d := range p.dependencies[scope] {
				x.dependency(d, scope)
			}
		}
		x.end("dependencies")
	}

	x.end("project")
	if x.err != nil {
		return x.err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// xmlWriter emits tokens and keeps the first error.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func (x *xmlWriter) token(t xml.Token) {
	if x.err == nil {
		x.err = x.enc.EncodeToken(t)
	}
}

func (x *xmlWriter) start(name string, attrs ...xml.Attr) {
	x.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (x *xmlWriter) end(name string) {
	x.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (x *xmlWriter) comment(s string) {
	x.token(xml.Comment(s))
}

// text writes <name>value</name>; empty values are omitted.
func (x *xmlWriter) text(name, value string) {
	if value == "" {
		return
	}
	x.start(name)
	x.token(xml.CharData(value))
	x.end(name)
}

func (x *xmlWriter) element(name string, v any) {
	if x.err == nil {
		x.err = x.enc.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: name}})
	}
}

func (x *xmlWriter) persons(kind string, people []Person) {
	if len(people) == 0 {
		return
	}
	x.start(kind + "s")
	for _, person := range people {
		x.element(kind, person)
	}
	x.end(kind + "s")
}

// properties writes the property table. ${…} wrappers are stripped from
// keys and project.* keys are skipped.
func (x *xmlWriter) properties(props []Property) {
	var kept []Property
	for _, prop := range props {
		key := strings.TrimSuffix(strings.TrimPrefix(prop.Key, "${"), "}")
		if key == "" || strings.HasPrefix(strings.ToLower(key), "project.") {
			continue
		}
		kept = append(kept, Property{Key: key, Value: prop.Value})
	}
	if len(kept) == 0 {
		return
	}
	x.start("properties")
	for _, prop := range kept {
		x.text(prop.Key, prop.Value)
	}
	x.end("properties")
}

func (x *xmlWriter) dependency(d maven.Dependency, scope maven.Scope) {
	x.start("dependency")
	x.text("groupId", d.GroupID)
	x.text("artifactId", d.ArtifactID)
	x.text("version", d.Version)
	x.text("classifier", d.Classifier)
	if d.Extension != "" && d.Extension != maven.ExtJAR {
		x.text("type", d.Extension)
	}
	if scope.IsMavenScope() {
		x.text("scope", scope.String())
	}
	if !d.IsMavenObject() {
		x.text("systemPath", d.Path)
	}
	if d.Optional {
		x.text("optional", "true")
	}
	if len(d.Exclusions) > 0 {
		x.start("exclusions")
		for _, e := range d.Exclusions {
			g, a, _ := strings.Cut(e, ":")
			x.start("exclusion")
			x.text("groupId", g)
			x.text("artifactId", a)
			x.end("exclusion")
		}
		x.end("exclusions")
	}
	x.end("dependency")
}
