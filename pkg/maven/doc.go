// Package maven defines the coordinate, dependency and scope model shared by
// the descriptor parser, the solver and the repository layer.
//
// # Coordinates
//
// An artifact is identified by groupId, artifactId, version, classifier and
// extension. Two identities are derived from a coordinate:
//
//   - the management id ("group:artifact") names a family of artifacts
//     irrespective of version and is the key of managed-version tables
//   - the mediation id ("group:artifact:version[:classifier]") names one
//     concrete artifact and is the de-duplication key during resolution
//
// # Scopes
//
// [Scope] is a closed set. [Scope.IncludeOnClasspath] decides whether a
// directly declared dependency is visible to a consuming scope and
// [Scope.TransitiveScope] relabels a dependency inherited one hop further
// down the graph:
//
//	s, ok := maven.ScopeTest.TransitiveScope(maven.ScopeCompile) // test, true
//	_, ok = maven.ScopeCompile.TransitiveScope(maven.ScopeTest)  // dropped
//
// # Repository layout
//
// [Path] expands the maven2 URL patterns ([ArtifactPattern],
// [MetadataPattern], [SnapshotMetadataPattern]) for a dependency. The same
// layout is used for remote URLs and for the local artifact cache.
package maven
