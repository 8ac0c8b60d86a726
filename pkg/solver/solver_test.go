package solver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/mvnkit/pkg/cache"
	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/httputil"
	"github.com/matzehuels/mvnkit/pkg/maven"
	"github.com/matzehuels/mvnkit/pkg/repository"
)

// testRepo is a maven2 repository served from memory.
type testRepo struct {
	mu    sync.Mutex
	files map[string]string
	hits  int
}

func (tr *testRepo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.hits++
	body, ok := tr.files[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = io.WriteString(w, body)
}

func (tr *testRepo) requests() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.hits
}

func pomXML(group, artifact, version, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<project>
  <modelVersion>4.0.0</modelVersion>
  <groupId>` + group + `</groupId>
  <artifactId>` + artifact + `</artifactId>
  <version>` + version + `</version>
` + body + `
</project>`
}

func dependencyXML(group, artifact, version, extra string) string {
	s := "<dependency><groupId>" + group + "</groupId><artifactId>" + artifact + "</artifactId>"
	if version != "" {
		s += "<version>" + version + "</version>"
	}
	return s + extra + "</dependency>"
}

func dependenciesXML(deps ...string) string {
	s := "<dependencies>"
	for _, d := range deps {
		s += d
	}
	return s + "</dependencies>"
}

// baseFiles is g:a:1.0 depending on g:b:2.0, both with jars.
func baseFiles() map[string]string {
	return map[string]string{
		"/g/a/1.0/a-1.0.pom": pomXML("g", "a", "1.0", dependenciesXML(dependencyXML("g", "b", "2.0", ""))),
		"/g/a/1.0/a-1.0.jar": "a-jar",
		"/g/b/2.0/b-2.0.pom": pomXML("g", "b", "2.0", ""),
		"/g/b/2.0/b-2.0.jar": "b-jar",
	}
}

type fixture struct {
	solver *Solver
	repo   *testRepo
	cache  *cache.Cache
}

func newFixture(t *testing.T, files map[string]string, rootDeps string, opts Options) *fixture {
	t.Helper()
	tr := &testRepo{files: files}
	srv := httptest.NewServer(tr)
	t.Cleanup(srv.Close)

	c, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	repo := repository.New("test", srv.URL, c, repository.Options{
		Logger: logger,
		Retry:  httputil.Policy{Attempts: 1},
	})

	opts.Logger = logger
	s, err := New(Build{Cache: c, Repositories: []*repository.Repository{repo}, Options: opts})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "pom.xml")
	if err := os.WriteFile(path, []byte(pomXML("com.example", "app", "1.0", rootDeps)), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadRoot(context.Background(), path); err != nil {
		t.Fatalf("ReadRoot() error: %v", err)
	}
	return &fixture{solver: s, repo: tr, cache: c}
}

func ids(deps []maven.Dependency) []string {
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.MediationID()
	}
	return out
}

func TestSolveTestScope(t *testing.T) {
	f := newFixture(t, baseFiles(), dependenciesXML(dependencyXML("g", "a", "1.0", "<scope>compile</scope>")), Options{})

	deps, err := f.solver.Solve(context.Background(), maven.ScopeTest)
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if diff := cmp.Diff([]string{"g:a:1.0", "g:b:2.0"}, ids(deps)); diff != "" {
		t.Errorf("solution mismatch (-want +got):\n%s", diff)
	}
	if deps[0].Ring != 1 || deps[1].Ring != 2 {
		t.Errorf("rings = %d, %d; want 1, 2", deps[0].Ring, deps[1].Ring)
	}
}

func TestSolveScopes(t *testing.T) {
	files := baseFiles()
	files["/g/t/1.0/t-1.0.pom"] = pomXML("g", "t", "1.0", "")
	files["/g/p/1.0/p-1.0.pom"] = pomXML("g", "p", "1.0", "")
	root := dependenciesXML(
		dependencyXML("g", "a", "1.0", ""),
		dependencyXML("g", "t", "1.0", "<scope>test</scope>"),
		dependencyXML("g", "p", "1.0", "<scope>provided</scope>"),
	)
	f := newFixture(t, files, root, Options{})

	tests := []struct {
		scope maven.Scope
		want  []string
	}{
		{maven.ScopeCompile, []string{"g:a:1.0", "g:b:2.0", "g:p:1.0"}},
		{maven.ScopeRuntime, []string{"g:a:1.0", "g:b:2.0"}},
		{maven.ScopeTest, []string{"g:a:1.0", "g:b:2.0", "g:t:1.0", "g:p:1.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.scope.String(), func(t *testing.T) {
			deps, err := f.solver.Solve(context.Background(), tt.scope)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, ids(deps)); diff != "" {
				t.Errorf("solution mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSolveMemoized(t *testing.T) {
	f := newFixture(t, baseFiles(), dependenciesXML(dependencyXML("g", "a", "1.0", "")), Options{})
	ctx := context.Background()

	first, err := f.solver.Solve(ctx, maven.ScopeCompile)
	if err != nil {
		t.Fatal(err)
	}
	n := f.repo.requests()
	first[0].Version = "mutated"

	second, err := f.solver.Solve(ctx, maven.ScopeCompile)
	if err != nil {
		t.Fatal(err)
	}
	if f.repo.requests() != n {
		t.Error("second Solve() hit the repository")
	}
	if second[0].Version != "1.0" {
		t.Error("Solve() returned the memoized slice instead of a copy")
	}
}

func TestSolveExclusions(t *testing.T) {
	exclude := "<exclusions><exclusion><groupId>g</groupId><artifactId>b</artifactId></exclusion></exclusions>"
	f := newFixture(t, baseFiles(), dependenciesXML(dependencyXML("g", "a", "1.0", exclude)), Options{})

	deps, err := f.solver.Solve(context.Background(), maven.ScopeCompile)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"g:a:1.0"}, ids(deps)); diff != "" {
		t.Errorf("solution mismatch (-want +got):\n%s", diff)
	}
}

func TestSolveCycle(t *testing.T) {
	files := map[string]string{
		"/g/a/1.0/a-1.0.pom": pomXML("g", "a", "1.0", dependenciesXML(dependencyXML("g", "b", "2.0", ""))),
		"/g/b/2.0/b-2.0.pom": pomXML("g", "b", "2.0", dependenciesXML(dependencyXML("g", "a", "1.0", ""))),
	}
	f := newFixture(t, files, dependenciesXML(dependencyXML("g", "a", "1.0", "")), Options{})

	deps, err := f.solver.Solve(context.Background(), maven.ScopeCompile)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"g:a:1.0", "g:b:2.0"}, ids(deps)); diff != "" {
		t.Errorf("solution mismatch (-want +got):\n%s", diff)
	}
}

func TestSolveParentManagement(t *testing.T) {
	files := baseFiles()
	files["/g/parent/1/parent-1.pom"] = pomXML("g", "parent", "1",
		"<packaging>pom</packaging><dependencyManagement>"+
			dependenciesXML(dependencyXML("g", "b", "2.0", ""))+
			"</dependencyManagement>")
	files["/g/a/1.0/a-1.0.pom"] = `<project>
  <parent><groupId>g</groupId><artifactId>parent</artifactId><version>1</version></parent>
  <artifactId>a</artifactId>
  <version>1.0</version>
  ` + dependenciesXML(dependencyXML("g", "b", "", "")) + `
</project>`
	f := newFixture(t, files, dependenciesXML(dependencyXML("g", "a", "1.0", "")), Options{})

	deps, err := f.solver.Solve(context.Background(), maven.ScopeCompile)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"g:a:1.0", "g:b:2.0"}, ids(deps)); diff != "" {
		t.Errorf("solution mismatch (-want +got):\n%s", diff)
	}
	if _, ok := f.cache.Artifact(maven.NewDependency("g", "parent", "1"), "pom"); !ok {
		t.Error("parent descriptor was not fetched")
	}
}

func TestSolveMissingDescriptor(t *testing.T) {
	f := newFixture(t, baseFiles(), dependenciesXML(dependencyXML("g", "missing", "1.0", "")), Options{})

	deps, err := f.solver.Solve(context.Background(), maven.ScopeCompile)
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if diff := cmp.Diff([]string{"g:missing:1.0"}, ids(deps)); diff != "" {
		t.Errorf("solution mismatch (-want +got):\n%s", diff)
	}
}

const releaseMetadata = `<metadata>
  <groupId>g</groupId>
  <artifactId>c</artifactId>
  <versioning>
    <release>3.1</release>
    <versions><version>3.0</version><version>3.1</version></versions>
    <lastUpdated>20240101000000</lastUpdated>
  </versioning>
</metadata>`

func TestSolveRelease(t *testing.T) {
	files := baseFiles()
	files["/g/c/maven-metadata.xml"] = releaseMetadata
	files["/g/c/3.1/c-3.1.pom"] = pomXML("g", "c", "3.1", "")
	f := newFixture(t, files, dependenciesXML(dependencyXML("g", "c", maven.VersionRelease, "")), Options{})

	deps, err := f.solver.Solve(context.Background(), maven.ScopeCompile)
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if diff := cmp.Diff([]string{"g:c:3.1"}, ids(deps)); diff != "" {
		t.Errorf("solution mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveVersion(t *testing.T) {
	files := map[string]string{"/g/c/maven-metadata.xml": releaseMetadata}
	f := newFixture(t, files, "", Options{UpdateInterval: time.Hour})
	ctx := context.Background()
	dep := maven.NewDependency("g", "c", maven.VersionRelease)

	v, err := f.solver.ResolveVersion(ctx, dep)
	if err != nil || v != "3.1" {
		t.Fatalf("ResolveVersion() = %q, %v; want 3.1", v, err)
	}

	n := f.repo.requests()
	if _, err := f.solver.ResolveVersion(ctx, dep); err != nil {
		t.Fatal(err)
	}
	if f.repo.requests() != n {
		t.Error("fresh record re-fetched metadata")
	}

	f.solver.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := f.solver.ResolveVersion(ctx, dep); err != nil {
		t.Fatal(err)
	}
	if f.repo.requests() == n {
		t.Error("stale record did not re-fetch metadata")
	}

	if v, _ := f.solver.ResolveVersion(ctx, maven.NewDependency("g", "c", "1.0")); v != "1.0" {
		t.Errorf("ResolveVersion(1.0) = %q", v)
	}
	_, err = f.solver.ResolveVersion(ctx, maven.NewDependency("g", "none", maven.VersionLatest))
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("ResolveVersion(unknown) error = %v, want NOT_FOUND", err)
	}
}

func TestRetrievePOMsSkipsNonClasspathDescriptors(t *testing.T) {
	files := map[string]string{
		"/g/a/1.0/a-1.0.pom": pomXML("g", "a", "1.0", dependenciesXML(
			dependencyXML("g", "t", "1.0", "<scope>test</scope>"),
			dependencyXML("g", "o", "1.0", "<optional>true</optional>"),
		)),
		"/g/t/1.0/t-1.0.pom":   pomXML("g", "t", "1.0", dependenciesXML(dependencyXML("g", "tt", "1.0", "<scope>test</scope>"))),
		"/g/tt/1.0/tt-1.0.pom": pomXML("g", "tt", "1.0", ""),
		"/g/o/1.0/o-1.0.pom":   pomXML("g", "o", "1.0", ""),
	}
	f := newFixture(t, files, dependenciesXML(dependencyXML("g", "a", "1.0", "")), Options{})
	ctx := context.Background()

	if err := f.solver.RetrievePOMs(ctx); err != nil {
		t.Fatalf("RetrievePOMs() error: %v", err)
	}
	if _, ok := f.cache.Artifact(maven.NewDependency("g", "a", "1.0"), maven.ExtPOM); !ok {
		t.Error("descriptor of g:a not retrieved")
	}
	for _, artifact := range []string{"t", "tt", "o"} {
		if _, ok := f.cache.Artifact(maven.NewDependency("g", artifact, "1.0"), maven.ExtPOM); ok {
			t.Errorf("descriptor of g:%s retrieved", artifact)
		}
	}

	deps, err := f.solver.Solve(ctx, maven.ScopeTest)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"g:a:1.0"}, ids(deps)); diff != "" {
		t.Errorf("solution mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrievePOMsRootTestScope(t *testing.T) {
	files := baseFiles()
	files["/g/t/1.0/t-1.0.pom"] = pomXML("g", "t", "1.0", dependenciesXML(dependencyXML("g", "b", "2.0", "")))
	root := dependenciesXML(dependencyXML("g", "t", "1.0", "<scope>test</scope>"))
	f := newFixture(t, files, root, Options{})

	if err := f.solver.RetrievePOMs(context.Background()); err != nil {
		t.Fatalf("RetrievePOMs() error: %v", err)
	}
	for _, d := range []maven.Dependency{maven.NewDependency("g", "t", "1.0"), maven.NewDependency("g", "b", "2.0")} {
		if _, ok := f.cache.Artifact(d, maven.ExtPOM); !ok {
			t.Errorf("descriptor of %s not retrieved", d.Coordinates())
		}
	}
}

func TestRetrieveArtifacts(t *testing.T) {
	files := baseFiles()
	files["/g/a/1.0/a-1.0-sources.jar"] = "a-src"
	f := newFixture(t, files, dependenciesXML(dependencyXML("g", "a", "1.0", "")), Options{Sources: true, Workers: 2})

	artifacts, err := f.solver.RetrieveArtifacts(context.Background(), maven.ScopeRuntime)
	if err != nil {
		t.Fatalf("RetrieveArtifacts() error: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("got %d artifacts, want 2", len(artifacts))
	}
	for i, want := range []string{"a-jar", "b-jar"} {
		data, err := os.ReadFile(artifacts[i].Path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != want {
			t.Errorf("artifact %d = %q, want %q", i, data, want)
		}
	}
	if artifacts[0].SourcesPath == "" {
		t.Error("sources of g:a not retrieved")
	}
	if artifacts[1].SourcesPath != "" {
		t.Error("g:b has no sources but SourcesPath is set")
	}

	paths, err := f.solver.Classpath(context.Background(), maven.ScopeRuntime)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{artifacts[0].Path, artifacts[1].Path}, paths); diff != "" {
		t.Errorf("Classpath() mismatch (-want +got):\n%s", diff)
	}
}

func TestOffline(t *testing.T) {
	f := newFixture(t, baseFiles(), dependenciesXML(dependencyXML("g", "a", "1.0", "")), Options{Offline: true})

	deps, err := f.solver.Solve(context.Background(), maven.ScopeCompile)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"g:a:1.0"}, ids(deps)); diff != "" {
		t.Errorf("solution mismatch (-want +got):\n%s", diff)
	}
	if n := f.repo.requests(); n != 0 {
		t.Errorf("offline solve made %d requests", n)
	}
}

func TestSolveWithoutRoot(t *testing.T) {
	c, _ := cache.New(t.TempDir())
	s, err := New(Build{Cache: c})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Solve(context.Background(), maven.ScopeCompile); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Solve() error = %v, want INVALID_INPUT", err)
	}
}
