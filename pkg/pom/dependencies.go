package pom

import (
	"slices"

	"github.com/matzehuels/mvnkit/pkg/maven"
)

// AddDependency declares dep in scope and returns the scope used.
//
// Coordinate dependencies get their group and version property-resolved
// (when resolve is set), a blank version filled from the managed table and
// a jar extension by default. An empty scope selects the managed scope, or
// [maven.DefaultScope].
//
// ok is false when the dependency was not added: it refers to this
// descriptor itself (logged), it is already declared in any scope, or it
// matches a descriptor-level exclusion.
func (p *Pom) AddDependency(dep maven.Dependency, scope maven.Scope, resolve bool) (maven.Scope, bool) {
	if dep.IsMavenObject() {
		if resolve {
			dep.GroupID = p.ResolveProperties(dep.GroupID)
		}
		if dep.Version == "" {
			dep.Version = p.ManagedVersion(dep)
		}
		if resolve {
			dep.Version = p.ResolveProperties(dep.Version)
		}
		if dep.Extension == "" {
			dep.Extension = maven.ExtJAR
		}
		if dep.ManagementID() == p.ManagementID() {
			p.log().Warnf("ignoring circular dependency %s in %s", dep.ManagementID(), p.Coordinates())
			return "", false
		}
	} else if resolve {
		dep.Path = p.ResolveProperties(dep.Path)
	}

	if p.HasDependency(dep) || p.Excludes(dep) {
		return "", false
	}

	if !scope.IsDefined() {
		scope = p.ManagedScope(dep)
		if !scope.IsDefined() {
			scope = maven.DefaultScope
		}
	}

	dep.Scope = scope
	dep.DefinedScope = scope
	dep.Exclusions = slices.Clone(dep.Exclusions)
	if _, ok := p.dependencies[scope]; !ok {
		p.scopeOrder = append(p.scopeOrder, scope)
	}
	p.dependencies[scope] = append(p.dependencies[scope], dep)
	return scope, true
}

// AddManagedDependency records dep's version, and scope if given, in the
// managed tables. A self-reference is dropped with a warning.
func (p *Pom) AddManagedDependency(dep maven.Dependency, scope maven.Scope, resolve bool) {
	if resolve {
		dep.GroupID = p.ResolveProperties(dep.GroupID)
		dep.Version = p.ResolveProperties(dep.Version)
	}
	if dep.ManagementID() == p.ManagementID() {
		p.log().Warnf("ignoring circular managed dependency %s in %s", dep.ManagementID(), p.Coordinates())
		return
	}

	id := dep.ManagementID()
	if _, ok := p.managedVersions[id]; !ok {
		p.managedOrder = append(p.managedOrder, id)
	}
	p.managedVersions[id] = dep.Version
	if scope.IsDefined() {
		p.managedScopes[id] = scope
	}
}

// ManagedVersion returns the managed version for dep, or dep's own version.
func (p *Pom) ManagedVersion(dep maven.Dependency) string {
	if v := p.managedVersions[dep.ManagementID()]; v != "" {
		return v
	}
	return dep.Version
}

// ManagedScope returns the managed scope for dep, or "".
func (p *Pom) ManagedScope(dep maven.Dependency) maven.Scope {
	return p.managedScopes[dep.ManagementID()]
}

// ManagedDependencies returns the managed table as dependencies, in
// declaration order, with Scope set to the managed scope.
func (p *Pom) ManagedDependencies() []maven.Dependency {
	deps := make([]maven.Dependency, 0, len(p.managedOrder))
	for _, id := range p.managedOrder {
		d, err := maven.ParseDependency(id)
		if err != nil {
			continue
		}
		d.Version = p.managedVersions[id]
		d.Scope = p.managedScopes[id]
		deps = append(deps, d)
	}
	return deps
}

// Dependencies returns the dependencies visible to scope at resolution
// depth ring.
//
// At ring 1 (or 0) a declared scope is included when
// scope.IncludeOnClasspath accepts it and optional dependencies are hidden
// from runtime. Beyond ring 1 the declared scope is first transformed with
// scope.TransitiveScope and optional dependencies are always hidden.
//
// The result is de-duplicated, ordered by scope first use and then
// declaration order, and consists of copies stamped with ring and the
// effective defined scope.
func (p *Pom) Dependencies(scope maven.Scope, ring int) []maven.Dependency {
	var deps []maven.Dependency
	seen := make(map[string]bool)
	for _, declared := range p.scopeOrder {
		defined := declared
		include := false
		if ring <= 1 {
			include = scope.IncludeOnClasspath(declared)
		} else if t, ok := scope.TransitiveScope(declared); ok {
			include = scope.IncludeOnClasspath(t)
			defined = t
		}
		if !include {
			continue
		}

		for _, d := range p.dependencies[declared] {
			if d.Optional && (ring > 1 || scope == maven.ScopeRuntime) {
				continue
			}
			if seen[d.Key()] {
				continue
			}
			seen[d.Key()] = true
			c := d
			c.Exclusions = slices.Clone(d.Exclusions)
			c.Ring = ring
			c.DefinedScope = defined
			deps = append(deps, c)
		}
	}
	return deps
}

// DeclaredDependencies returns copies of the dependencies declared in
// scope, in declaration order.
func (p *Pom) DeclaredDependencies(scope maven.Scope) []maven.Dependency {
	return slices.Clone(p.dependencies[scope])
}

// AllDependencies returns every declared dependency across scopes in scope
// first-use order. With ignoreDuplicates, later dependencies sharing a key
// with an earlier one are dropped.
func (p *Pom) AllDependencies(ignoreDuplicates bool) []maven.Dependency {
	var all []maven.Dependency
	seen := make(map[string]bool)
	for _, s := range p.scopeOrder {
		for _, d := range p.dependencies[s] {
			if ignoreDuplicates {
				if seen[d.Key()] {
					continue
				}
				seen[d.Key()] = true
			}
			all = append(all, d)
		}
	}
	return all
}

// Scopes returns the declared scopes in first-use order.
func (p *Pom) Scopes() []maven.Scope {
	return slices.Clone(p.scopeOrder)
}

// HasDependencies reports whether any dependency is declared.
func (p *Pom) HasDependencies() bool { return len(p.scopeOrder) > 0 }

// HasDependency reports whether a dependency with dep's key is declared in
// any scope.
func (p *Pom) HasDependency(dep maven.Dependency) bool {
	key := dep.Key()
	for _, list := range p.dependencies {
		for _, d := range list {
			if d.Key() == key {
				return true
			}
		}
	}
	return false
}

// AddExclusions adds descriptor-level exclusion patterns: a group, a
// management id or a mediation id.
func (p *Pom) AddExclusions(patterns ...string) {
	for _, e := range patterns {
		if e != "" && !slices.Contains(p.exclusions, e) {
			p.exclusions = append(p.exclusions, e)
		}
	}
}

// Exclusions returns the descriptor-level exclusion patterns.
func (p *Pom) Exclusions() []string { return slices.Clone(p.exclusions) }

// Excludes reports whether dep matches a descriptor-level exclusion.
func (p *Pom) Excludes(dep maven.Dependency) bool {
	if !dep.IsMavenObject() {
		return false
	}
	return slices.Contains(p.exclusions, dep.MediationID()) || maven.MatchesExclusion(p.exclusions, dep)
}

// RemoveScope drops every dependency declared in scope.
func (p *Pom) RemoveScope(scope maven.Scope) {
	delete(p.dependencies, scope)
	p.scopeOrder = slices.DeleteFunc(p.scopeOrder, func(s maven.Scope) bool { return s == scope })
}

// ClearDependencies drops every declared dependency.
func (p *Pom) ClearDependencies() {
	clear(p.dependencies)
	p.scopeOrder = nil
}
