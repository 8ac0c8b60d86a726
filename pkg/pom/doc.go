// Package pom models Maven project descriptors.
//
// A [Pom] holds a descriptor's identity, its property table, the managed
// version and scope tables, and the declared dependencies per scope. The
// [Reader] builds a Pom from a pom.xml document, following the parent chain
// through a cache and merging imported managed-dependency tables.
//
// # Property resolution
//
// Placeholders of the form ${name} are resolved against, in order, the
// descriptor's properties, the project.* and parent.* accessors, env.*
// variables, build properties and host properties such as user.home.
// Unresolvable and self-referential placeholders are left in place:
//
//	p := pom.New()
//	p.SetProperty("guava.version", "33.0.0-jre")
//	p.ResolveProperties("${guava.version}") // "33.0.0-jre"
//	p.ResolveProperties("${missing}")       // "${missing}"
//
// # Dependencies
//
// [Pom.AddDependency] fills blank versions from the managed table and drops
// duplicates, excluded coordinates and references to the descriptor itself.
// [Pom.Dependencies] answers which dependencies are visible for a consuming
// scope at a given resolution depth.
//
// A Pom is mutated only while it is being read. Afterwards it is safe for
// concurrent readers.
package pom
