package maven

import "testing"

func TestParseScope(t *testing.T) {
	tests := []struct {
		in     string
		want   Scope
		wantOK bool
	}{
		{"compile", ScopeCompile, true},
		{"Runtime", ScopeRuntime, true},
		{" test ", ScopeTest, true},
		{"import", ScopeImport, true},
		{"build", ScopeBuild, true},
		{"", "", false},
		{"bogus", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseScope(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseScope(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIncludeOnClasspath(t *testing.T) {
	visible := map[Scope][]Scope{
		ScopeCompile:  {ScopeCompile, ScopeProvided, ScopeSystem},
		ScopeRuntime:  {ScopeCompile, ScopeRuntime, ScopeSystem},
		ScopeTest:     {ScopeCompile, ScopeProvided, ScopeRuntime, ScopeTest, ScopeSystem},
		ScopeBuild:    {ScopeBuild},
		ScopeProvided: nil,
		ScopeSystem:   nil,
		ScopeImport:   nil,
	}

	for consumer, want := range visible {
		for _, declared := range Scopes {
			expected := false
			for _, w := range want {
				if w == declared {
					expected = true
				}
			}
			if got := consumer.IncludeOnClasspath(declared); got != expected {
				t.Errorf("%s.IncludeOnClasspath(%s) = %v, want %v", consumer, declared, got, expected)
			}
		}
	}
}

func TestTransitiveScope(t *testing.T) {
	tests := []struct {
		consumer, declared Scope
		want               Scope
		wantOK             bool
	}{
		{ScopeCompile, ScopeCompile, ScopeCompile, true},
		{ScopeCompile, ScopeRuntime, ScopeRuntime, true},
		{ScopeCompile, ScopeProvided, "", false},
		{ScopeCompile, ScopeTest, "", false},
		{ScopeProvided, ScopeCompile, ScopeProvided, true},
		{ScopeProvided, ScopeRuntime, ScopeProvided, true},
		{ScopeRuntime, ScopeCompile, ScopeRuntime, true},
		{ScopeRuntime, ScopeRuntime, ScopeRuntime, true},
		{ScopeTest, ScopeCompile, ScopeTest, true},
		{ScopeTest, ScopeRuntime, ScopeTest, true},
		{ScopeTest, ScopeTest, "", false},
		{ScopeBuild, ScopeCompile, ScopeBuild, true},
		{ScopeSystem, ScopeCompile, "", false},
		{ScopeImport, ScopeCompile, "", false},
		{ScopeCompile, ScopeSystem, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.consumer)+"/"+string(tt.declared), func(t *testing.T) {
			got, ok := tt.consumer.TransitiveScope(tt.declared)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("TransitiveScope = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestScopeFlags(t *testing.T) {
	if !ScopeImport.IsPseudo() {
		t.Error("import should be a pseudo scope")
	}
	if ScopeCompile.IsPseudo() {
		t.Error("compile should not be a pseudo scope")
	}
	if ScopeBuild.IsMavenScope() {
		t.Error("build should not be a maven scope")
	}
	if !ScopeTest.IsMavenScope() {
		t.Error("test should be a maven scope")
	}
	if Scope("").IsDefined() {
		t.Error("zero scope should be undefined")
	}
}
