package pom

import (
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
)

var placeholderRE = regexp.MustCompile(`\$\{([A-Za-z0-9\-_.]+)\}`)

// maxResolvePasses bounds the number of whole-string passes. A pass can
// only introduce new placeholders through values that splice "${" together
// with other values, so real descriptors settle in one or two passes.
const maxResolvePasses = 16

// projectAccessors is the closed set of project.* and parent.* pseudo
// properties.
var projectAccessors = map[string]func(*Pom) string{
	"project.groupId":           func(p *Pom) string { return p.GroupID },
	"project.artifactId":        func(p *Pom) string { return p.ArtifactID },
	"project.version":           func(p *Pom) string { return p.Version },
	"project.classifier":        func(p *Pom) string { return p.Classifier },
	"project.packaging":         func(p *Pom) string { return p.Packaging },
	"project.name":              func(p *Pom) string { return p.Name },
	"project.description":       func(p *Pom) string { return p.Description },
	"project.url":               func(p *Pom) string { return p.URL },
	"project.issuesUrl":         func(p *Pom) string { return p.IssuesURL },
	"project.organization":      func(p *Pom) string { return p.Organization },
	"project.organizationUrl":   func(p *Pom) string { return p.OrganizationURL },
	"project.inceptionYear":     func(p *Pom) string { return p.InceptionYear },
	"project.parent.groupId":    func(p *Pom) string { return p.ParentGroupID },
	"project.parent.artifactId": func(p *Pom) string { return p.ParentArtifactID },
	"project.parent.version":    func(p *Pom) string { return p.ParentVersion },
	"parent.groupId":            func(p *Pom) string { return p.ParentGroupID },
	"parent.artifactId":         func(p *Pom) string { return p.ParentArtifactID },
	"parent.version":            func(p *Pom) string { return p.ParentVersion },
}

// SetProperty sets a property. Empty keys or values are ignored.
func (p *Pom) SetProperty(key, value string) {
	key = strings.TrimSpace(key)
	if key == "" || value == "" {
		return
	}
	if _, ok := p.properties[key]; !ok {
		p.propertyOrder = append(p.propertyOrder, key)
	}
	p.properties[key] = value
}

// Property returns the value of a declared property.
func (p *Pom) Property(key string) (string, bool) {
	v, ok := p.properties[key]
	return v, ok
}

// Properties returns the property table in declaration order.
func (p *Pom) Properties() []Property {
	props := make([]Property, 0, len(p.propertyOrder))
	for _, k := range p.propertyOrder {
		props = append(props, Property{Key: k, Value: p.properties[k]})
	}
	return props
}

// SetBuildProperties adds properties supplied by the driving build. They
// are consulted after the environment and before host properties.
func (p *Pom) SetBuildProperties(props map[string]string) {
	for k, v := range props {
		p.buildProperties[k] = v
	}
}

// ResolveProperties replaces ${name} placeholders in s.
//
// Values are expanded recursively. A placeholder that cannot be found, or
// whose expansion refers back to itself, is left in place so that it stands
// out in the result. Resolving an already resolved string returns it
// unchanged.
func (p *Pom) ResolveProperties(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	for range maxResolvePasses {
		next, _ := p.expand(s, nil)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// expand performs one pass over s. stack holds the keys currently being
// expanded; cyclic reports that some placeholder in s leads back into the
// stack.
func (p *Pom) expand(s string, stack []string) (out string, cyclic bool) {
	matches := placeholderRE.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, false
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		last = m[1]
		placeholder, key := s[m[0]:m[1]], s[m[2]:m[3]]

		if slices.Contains(stack, key) {
			b.WriteString(placeholder)
			cyclic = true
			continue
		}
		value, ok := p.lookup(key)
		if !ok {
			p.warnOnce(key, "property %q not found for %s", key, p.Coordinates())
			b.WriteString(placeholder)
			continue
		}
		expanded, cyc := p.expand(value, append(stack, key))
		if cyc {
			p.warnOnce(key, "property %q of %s is self-referential", key, p.Coordinates())
			b.WriteString(placeholder)
			cyclic = true
			continue
		}
		b.WriteString(expanded)
	}
	b.WriteString(s[last:])
	return b.String(), cyclic
}

// lookup consults, in order: the property table, the project accessors,
// the environment (env.*), build properties and host properties. Empty
// values fall through to the next source.
func (p *Pom) lookup(key string) (string, bool) {
	if v := p.properties[key]; v != "" {
		return v, true
	}
	if get, ok := projectAccessors[key]; ok {
		if v := get(p); v != "" {
			return v, true
		}
	}
	if name, ok := strings.CutPrefix(key, "env."); ok {
		if v := os.Getenv(name); v != "" {
			return v, true
		}
	}
	if v := p.buildProperties[key]; v != "" {
		return v, true
	}
	if v := hostProperty(key); v != "" {
		return v, true
	}
	return "", false
}

// hostProperty maps the well-known JVM system properties to their host
// equivalents.
func hostProperty(key string) string {
	switch key {
	case "user.home":
		home, _ := os.UserHomeDir()
		return home
	case "user.name":
		if u, err := user.Current(); err == nil {
			return u.Username
		}
		return os.Getenv("USER")
	case "user.dir":
		wd, _ := os.Getwd()
		return wd
	case "os.name":
		return runtime.GOOS
	case "os.arch":
		return runtime.GOARCH
	case "file.separator":
		return string(filepath.Separator)
	case "path.separator":
		return string(filepath.ListSeparator)
	case "line.separator":
		return "\n"
	case "java.io.tmpdir":
		return os.TempDir()
	}
	return ""
}

// resolveDescriptor resolves placeholders in the descriptive fields.
func (p *Pom) resolveDescriptor() {
	p.Name = p.ResolveProperties(p.Name)
	p.Description = p.ResolveProperties(p.Description)
	p.Organization = p.ResolveProperties(p.Organization)
	p.URL = p.ResolveProperties(p.URL)
	p.IssuesURL = p.ResolveProperties(p.IssuesURL)
}
