// Package pkg provides the libraries behind mvnkit, a Maven-compatible
// dependency resolver and artifact cache.
//
// # Overview
//
// mvnkit reads a project's pom.xml, computes the transitive dependencies of
// each build scope, downloads descriptors and artifacts from maven2 layout
// repositories into a checksum-verified local cache, and renders classpaths.
//
// The typical data flow:
//
//	pom.xml
//	   ↓
//	[pom] package (parse, inherit, interpolate, manage)
//	   ↓
//	[solver] package (fetch descriptors, walk scopes)
//	   ↓
//	[repository] package (HTTP download, SHA-1 check)
//	   ↓
//	[cache] package (files + side records)
//	   ↓
//	[classpath] package (path list or Eclipse .classpath)
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/mvnkit/pkg/cache"
//	    "github.com/matzehuels/mvnkit/pkg/classpath"
//	    "github.com/matzehuels/mvnkit/pkg/maven"
//	    "github.com/matzehuels/mvnkit/pkg/repository"
//	    "github.com/matzehuels/mvnkit/pkg/solver"
//	)
//
//	c, _ := cache.New("")
//	central := repository.New(repository.CentralID, repository.CentralURL, c, repository.Options{})
//	s, _ := solver.New(solver.Build{Cache: c, Repositories: []*repository.Repository{central}})
//
//	ctx := context.Background()
//	_, _ = s.ReadRoot(ctx, "pom.xml")
//	artifacts, _ := s.RetrieveArtifacts(ctx, maven.ScopeRuntime)
//	fmt.Println(classpath.Join(classpath.FromArtifacts(artifacts)))
//
// # Main Packages
//
// [maven] - Coordinates, scopes, exclusions and the maven2 path layout.
//
// [pom] - Project descriptor model. Reads pom.xml in strict or loose mode,
// applies parent inheritance, property interpolation, dependency management
// and BOM imports, and writes effective descriptors back out.
//
// [repository] - One remote repository: transport with retry, rate limit and
// proxies, checksum verification and maven-metadata.xml handling.
//
// [cache] - The local artifact cache. Files follow the maven2 layout so the
// directory can itself be served as a repository; freshness and origin are
// tracked in JSON side records.
//
// [solver] - Scope resolution over a root descriptor. Pre-fetches every
// descriptor the build needs, then walks dependencies breadth-first.
//
// ## Supporting Packages
//
// [config] - TOML settings: cache directory, repositories, proxies.
//
// [classpath] - Classpath rendering.
//
// [server] - Serves a cache over HTTP.
//
// [observability] - Hooks for solves, downloads and cache events, with a
// Prometheus implementation.
//
// [errors] - Error codes shared across packages.
//
// [httputil] - Retry policy for HTTP requests.
//
// [maven]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/maven
// [pom]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/pom
// [repository]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/repository
// [cache]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/cache
// [solver]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/solver
// [config]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/config
// [classpath]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/classpath
// [server]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/matzehuels/mvnkit/pkg/httputil
package pkg
