package maven

import "strings"

// Scope is a build scope. The zero value means "not declared".
type Scope string

const (
	ScopeCompile  Scope = "compile"
	ScopeProvided Scope = "provided"
	ScopeRuntime  Scope = "runtime"
	ScopeTest     Scope = "test"
	ScopeSystem   Scope = "system"
	ScopeImport   Scope = "import"

	// ScopeBuild holds tool dependencies of the build itself. It has no Maven
	// equivalent and is never written into generated descriptors.
	ScopeBuild Scope = "build"
)

// DefaultScope applies when neither the declaration nor the managed table
// names a scope.
const DefaultScope = ScopeCompile

// Scopes lists every scope in canonical order.
var Scopes = []Scope{ScopeCompile, ScopeProvided, ScopeRuntime, ScopeTest, ScopeSystem, ScopeImport, ScopeBuild}

// ParseScope parses a scope name case-insensitively.
func ParseScope(s string) (Scope, bool) {
	sc := Scope(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Scopes {
		if sc == known {
			return sc, true
		}
	}
	return "", false
}

func (s Scope) String() string { return string(s) }

// IsDefined reports whether s is set.
func (s Scope) IsDefined() bool { return s != "" }

// IsMavenScope reports whether s may appear in a Maven descriptor.
func (s Scope) IsMavenScope() bool {
	return s.IsDefined() && s != ScopeBuild
}

// IsPseudo reports whether s marks a descriptor to merge rather than a
// dependency to add.
func (s Scope) IsPseudo() bool { return s == ScopeImport }

// IncludeOnClasspath reports whether a dependency declared with scope
// declared is visible when building for s.
func (s Scope) IncludeOnClasspath(declared Scope) bool {
	switch s {
	case ScopeCompile:
		return declared == ScopeCompile || declared == ScopeProvided || declared == ScopeSystem
	case ScopeRuntime:
		return declared == ScopeCompile || declared == ScopeRuntime || declared == ScopeSystem
	case ScopeTest:
		switch declared {
		case ScopeCompile, ScopeProvided, ScopeRuntime, ScopeTest, ScopeSystem:
			return true
		}
		return false
	case ScopeBuild:
		return declared == ScopeBuild
	default:
		return false
	}
}

// TransitiveScope returns the scope a dependency declared as declared
// inside a dependency of scope s takes on. ok is false when the
// dependency is not inherited at all.
func (s Scope) TransitiveScope(declared Scope) (Scope, bool) {
	if declared != ScopeCompile && declared != ScopeRuntime {
		return "", false
	}
	switch s {
	case ScopeCompile:
		return declared, true
	case ScopeProvided, ScopeRuntime, ScopeTest, ScopeBuild:
		return s, true
	default:
		return "", false
	}
}
