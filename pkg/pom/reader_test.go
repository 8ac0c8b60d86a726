package pom

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/mvnkit/pkg/cache"
	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
)

const parentPom = `<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <groupId>org.example</groupId>
  <artifactId>parent</artifactId>
  <version>3</version>
  <packaging>pom</packaging>
  <name>Example Parent</name>
  <url>https://example.org</url>
  <licenses>
    <license><name>Apache-2.0</name></license>
  </licenses>
  <properties>
    <slf4j.version>2.0.9</slf4j.version>
  </properties>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>org.slf4j</groupId>
        <artifactId>slf4j-api</artifactId>
        <version>${slf4j.version}</version>
      </dependency>
      <dependency>
        <groupId>junit</groupId>
        <artifactId>junit</artifactId>
        <version>4.13.2</version>
        <scope>test</scope>
      </dependency>
    </dependencies>
  </dependencyManagement>
</project>
`

const childPom = `<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <parent>
    <groupId>org.example</groupId>
    <artifactId>parent</artifactId>
    <version>3</version>
  </parent>
  <artifactId>app</artifactId>
  <name>${project.artifactId} (${parent.version})</name>
  <dependencies>
    <dependency>
      <groupId>org.slf4j</groupId>
      <artifactId>slf4j-api</artifactId>
    </dependency>
    <dependency>
      <groupId>${lib.group}</groupId>
      <artifactId>lib</artifactId>
      <version>${lib.version}</version>
      <type>test-jar</type>
      <optional>true</optional>
      <exclusions>
        <exclusion><groupId>commons-logging</groupId></exclusion>
        <exclusion>
          <groupId>log4j</groupId>
          <artifactId>log4j</artifactId>
        </exclusion>
      </exclusions>
    </dependency>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
    </dependency>
    <dependency>
      <groupId>org.example</groupId>
      <artifactId>app</artifactId>
      <version>0.1</version>
    </dependency>
  </dependencies>
  <properties>
    <lib.group>com.acme</lib.group>
    <lib.version>1.${minor}</lib.version>
    <minor>4</minor>
  </properties>
</project>
`

func newTestReader(t *testing.T) (*Reader, *cache.Cache) {
	t.Helper()
	c, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &Reader{Cache: c, Logger: log.New(io.Discard)}, c
}

func cachePom(t *testing.T, c *cache.Cache, coords, doc string) {
	t.Helper()
	dep, err := maven.ParseDependency(coords)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.WriteArtifact(dep.POMArtifact(), maven.ExtPOM, []byte(doc), time.Time{}); err != nil {
		t.Fatal(err)
	}
}

func writeTemp(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pom.xml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadPomWithParent(t *testing.T) {
	r, c := newTestReader(t)
	cachePom(t, c, "org.example:parent:3", parentPom)

	p, err := r.ReadPom(writeTemp(t, childPom), Strict, nil)
	if err != nil {
		t.Fatalf("ReadPom() error: %v", err)
	}

	if got := p.Coordinates(); got != "org.example:app:3" {
		t.Errorf("Coordinates() = %q", got)
	}
	if p.Name != "app (3)" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.URL != "https://example.org" || len(p.Licenses) != 1 {
		t.Errorf("inherited URL/licenses = %q/%v", p.URL, p.Licenses)
	}

	type entry struct {
		Coords   string
		Scope    maven.Scope
		Optional bool
		Excl     []string
	}
	var got []entry
	for _, d := range p.AllDependencies(false) {
		got = append(got, entry{d.Coordinates(), d.DefinedScope, d.Optional, d.Exclusions})
	}
	want := []entry{
		{"org.slf4j:slf4j-api:2.0.9", maven.ScopeCompile, false, nil},
		{"com.acme:lib:1.4", maven.ScopeCompile, true, []string{"commons-logging", "log4j:log4j"}},
		{"junit:junit:4.13.2", maven.ScopeTest, false, nil},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestReadPomMissingParent(t *testing.T) {
	r, _ := newTestReader(t)
	path := writeTemp(t, childPom)

	_, err := r.ReadPom(path, Strict, nil)
	if !errors.Is(err, errors.ErrCodeMissingParent) {
		t.Fatalf("ReadPom(Strict) error = %v, want MISSING_PARENT", err)
	}
	var mp *MissingParentError
	if !stderrors.As(err, &mp) || mp.Parent.MediationID() != "org.example:parent:3" {
		t.Errorf("MissingParentError = %v", mp)
	}

	p, err := r.ReadPom(path, Loose, nil)
	if err != nil {
		t.Fatalf("ReadPom(Loose) error: %v", err)
	}
	if p.GroupID != "org.example" || p.Version != "3" {
		t.Errorf("stand-in parent not inherited: %s", p.Coordinates())
	}
	// Without the parent's managed table the slf4j version stays blank.
	var versions []string
	for _, d := range p.AllDependencies(false) {
		versions = append(versions, d.Version)
	}
	if diff := cmp.Diff([]string{"", "1.4", ""}, versions); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}
}

func TestReadPomImports(t *testing.T) {
	const app = `<project>
  <groupId>org.example</groupId>
  <artifactId>app</artifactId>
  <version>1</version>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>org.example</groupId>
        <artifactId>bom</artifactId>
        <version>5</version>
        <type>pom</type>
        <scope>import</scope>
      </dependency>
    </dependencies>
  </dependencyManagement>
  <dependencies>
    <dependency>
      <groupId>com.acme</groupId>
      <artifactId>core</artifactId>
    </dependency>
  </dependencies>
</project>`
	const bom = `<project>
  <groupId>org.example</groupId>
  <artifactId>bom</artifactId>
  <version>5</version>
  <packaging>pom</packaging>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>com.acme</groupId>
        <artifactId>core</artifactId>
        <version>9.9</version>
      </dependency>
    </dependencies>
  </dependencyManagement>
</project>`

	r, c := newTestReader(t)
	path := writeTemp(t, app)

	var imports []maven.Dependency
	p, err := r.ReadPom(path, Strict, &imports)
	if err != nil {
		t.Fatal(err)
	}
	if len(imports) != 1 || imports[0].MediationID() != "org.example:bom:5" {
		t.Fatalf("imports = %v", imports)
	}
	if v := p.AllDependencies(false)[0].Version; v != "" {
		t.Errorf("version before import = %q, want empty", v)
	}

	cachePom(t, c, "org.example:bom:5", bom)
	imports = nil
	p, err = r.ReadPom(path, Strict, &imports)
	if err != nil {
		t.Fatal(err)
	}
	if len(imports) != 0 {
		t.Errorf("imports = %v, want none", imports)
	}
	if v := p.AllDependencies(false)[0].Version; v != "9.9" {
		t.Errorf("version after import = %q, want 9.9", v)
	}
}

func TestReadPomInvalid(t *testing.T) {
	r, _ := newTestReader(t)
	tests := map[string]string{
		"malformed":  "<project><groupId>g</artifactId></project>",
		"truncated":  "<project><groupId>g</groupId>",
		"wrong root": "<settings/>",
		"empty":      "",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := r.ReadPom(writeTemp(t, doc), Strict, nil)
			if !errors.Is(err, errors.ErrCodeInvalidDescriptor) {
				t.Errorf("error = %v, want INVALID_DESCRIPTOR", err)
			}
		})
	}
}

func TestReadPomUnknownScope(t *testing.T) {
	var buf bytes.Buffer
	r := &Reader{Logger: log.New(&buf)}
	doc := `<project>
  <groupId>g</groupId>
  <artifactId>app</artifactId>
  <version>1</version>
  <dependencyManagement>
    <dependencies>
      <dependency><groupId>g</groupId><artifactId>managed</artifactId><version>1</version><scope>test</scope></dependency>
    </dependencies>
  </dependencyManagement>
  <dependencies>
    <dependency><groupId>g</groupId><artifactId>managed</artifactId><scope>bogus</scope></dependency>
    <dependency><groupId>g</groupId><artifactId>plain</artifactId><version>1</version><scope>bogus</scope></dependency>
  </dependencies>
</project>`

	p, err := r.Parse(strings.NewReader(doc), Strict, nil)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	got := map[string]maven.Scope{}
	for _, d := range p.AllDependencies(false) {
		got[d.ArtifactID] = d.Scope
	}
	want := map[string]maven.Scope{"managed": maven.ScopeTest, "plain": maven.ScopeCompile}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scopes mismatch (-want +got):\n%s", diff)
	}
	if n := strings.Count(buf.String(), `unknown scope "bogus"`); n != 1 {
		t.Errorf("logged %d unknown scope warnings, want 1:\n%s", n, buf.String())
	}
}

func TestReadDependencyNotCached(t *testing.T) {
	r, _ := newTestReader(t)
	p, err := r.ReadDependency(maven.NewDependency("g", "a", "1"), Strict)
	if p != nil || err != nil {
		t.Errorf("ReadDependency() = %v, %v; want nil, nil", p, err)
	}
}

func TestWriteXMLRoundTrip(t *testing.T) {
	p := newTestPom()
	p.Packaging = "war"
	p.ParentGroupID, p.ParentArtifactID, p.ParentVersion = "org.example", "parent", "3"
	p.Name = "App"
	p.Organization = "Example"
	p.SCM = SCM{URL: "https://git.example.org/app"}
	p.Developers = []Person{{ID: "jd", Name: "J. Doe", Roles: []string{"lead"}}}
	p.SetProperty("lib.version", "1.0")
	p.SetProperty("project.build.sourceEncoding", "UTF-8")
	p.AddManagedDependency(maven.NewDependency("g", "managed", "2.0"), maven.ScopeRuntime, true)

	dep := maven.NewDependency("g", "lib", "${lib.version}")
	dep.Exclusions = []string{"x", "y:z"}
	p.AddDependency(dep, maven.ScopeCompile, true)
	p.AddDependency(maven.NewDependency("g", "junit", "4"), maven.ScopeTest, true)
	p.AddDependency(maven.NewDependency("g", "tool", "1"), maven.ScopeBuild, true)
	zip := maven.NewDependency("g", "assets", "1")
	zip.Extension = "zip"
	zip.Optional = true
	p.AddDependency(zip, maven.ScopeRuntime, true)

	var buf bytes.Buffer
	err := p.WriteXML(&buf, WriteOptions{
		IncludeProperties: true,
		Repositories:      []Repository{{ID: "central", URL: "https://repo1.maven.org/maven2"}},
	})
	if err != nil {
		t.Fatalf("WriteXML() error: %v", err)
	}
	out := buf.String()
	for _, s := range []string{"<modelVersion>4.0.0</modelVersion>", "<!-- test dependencies -->", "<id>central</id>"} {
		if !strings.Contains(out, s) {
			t.Errorf("output lacks %q", s)
		}
	}
	if strings.Contains(out, "project.build.sourceEncoding") || strings.Contains(out, "tool") {
		t.Errorf("output contains skipped entries:\n%s", out)
	}

	r, c := newTestReader(t)
	cachePom(t, c, "org.example:parent:3", parentPom)
	q, err := r.Parse(&buf, Strict, nil)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if q.Coordinates() != p.Coordinates() || q.Packaging != p.Packaging {
		t.Errorf("identity = %s (%s), want %s (%s)", q.Coordinates(), q.Packaging, p.Coordinates(), p.Packaging)
	}
	if diff := cmp.Diff(p.Developers, q.Developers); diff != "" {
		t.Errorf("developers mismatch (-want +got):\n%s", diff)
	}
	if q.SCM != p.SCM {
		t.Errorf("SCM = %+v", q.SCM)
	}
	if got := q.ManagedScope(maven.NewDependency("g", "managed", "")); got != maven.ScopeRuntime {
		t.Errorf("managed scope = %q", got)
	}

	for _, scope := range []maven.Scope{maven.ScopeCompile, maven.ScopeTest, maven.ScopeRuntime} {
		want, got := p.DeclaredDependencies(scope), q.DeclaredDependencies(scope)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s dependencies mismatch (-want +got):\n%s", scope, diff)
		}
	}
	if diff := cmp.Diff([]maven.Scope{maven.ScopeCompile, maven.ScopeTest, maven.ScopeRuntime}, q.Scopes()); diff != "" {
		t.Errorf("Scopes() mismatch (-want +got):\n%s", diff)
	}
}
