// Package classpath renders a solved classpath for tools: as a path list
// for the JVM or as an Eclipse .classpath document.
package classpath

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/mvnkit/pkg/solver"
)

// JREContainer is the container entry every Eclipse Java project carries.
const JREContainer = "org.eclipse.jdt.launching.JRE_CONTAINER"

// Entry is one library on the classpath.
type Entry struct {
	Path       string
	SourcePath string // sources jar, if cached
}

// SourceFolder is a project source directory. An empty Output compiles into
// the project's default output folder.
type SourceFolder struct {
	Path   string
	Output string
}

// Options configures [Write].
type Options struct {
	SourceFolders []SourceFolder // default: src/main/java, src/test/java
	Output        string         // default: target/classes
	Projects      []string       // referenced workspace projects
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if len(opts.SourceFolders) == 0 {
		opts.SourceFolders = []SourceFolder{
			{Path: "src/main/java"},
			{Path: "src/test/java", Output: "target/test-classes"},
		}
	}
	if opts.Output == "" {
		opts.Output = "target/classes"
	}
	return opts
}

// FromArtifacts returns the entries of retrieved artifacts in order,
// skipping those without a library file.
func FromArtifacts(artifacts []solver.Artifact) []Entry {
	entries := make([]Entry, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Path == "" {
			continue
		}
		entries = append(entries, Entry{Path: a.Path, SourcePath: a.SourcesPath})
	}
	return entries
}

// Join returns the library paths joined with the platform list separator.
func Join(entries []Entry) string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return strings.Join(paths, string(os.PathListSeparator))
}

type document struct {
	XMLName xml.Name   `xml:"classpath"`
	Entries []xmlEntry `xml:"classpathentry"`
}

type xmlEntry struct {
	Kind       string `xml:"kind,attr"`
	Path       string `xml:"path,attr"`
	SourcePath string `xml:"sourcepath,attr,omitempty"`
	Output     string `xml:"output,attr,omitempty"`
}

// Write emits an Eclipse .classpath document: source folders, one lib entry
// per library, the output folder, referenced projects and the JRE
// container.
func Write(w io.Writer, entries []Entry, opts Options) error {
	opts = opts.WithDefaults()

	var doc document
	for _, sf := range opts.SourceFolders {
		doc.Entries = append(doc.Entries, xmlEntry{Kind: "src", Path: sf.Path, Output: sf.Output})
	}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, xmlEntry{Kind: "lib", Path: e.Path, SourcePath: e.SourcePath})
	}
	doc.Entries = append(doc.Entries, xmlEntry{Kind: "output", Path: opts.Output})
	for _, p := range opts.Projects {
		doc.Entries = append(doc.Entries, xmlEntry{Kind: "src", Path: "/" + strings.TrimPrefix(p, "/")})
	}
	doc.Entries = append(doc.Entries, xmlEntry{Kind: "con", Path: JREContainer})

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
