package repository

import (
	"bytes"
	"encoding/xml"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/mvnkit/pkg/errors"
)

// metadataTimeLayout is the yyyyMMddHHmmss form used by lastUpdated.
const metadataTimeLayout = "20060102150405"

// Metadata is a maven-metadata.xml document.
type Metadata struct {
	XMLName    xml.Name   `xml:"metadata"`
	GroupID    string     `xml:"groupId,omitempty"`
	ArtifactID string     `xml:"artifactId,omitempty"`
	Version    string     `xml:"version,omitempty"`
	Versioning Versioning `xml:"versioning"`
}

// Versioning is the <versioning> block.
type Versioning struct {
	Latest      string    `xml:"latest,omitempty"`
	Release     string    `xml:"release,omitempty"`
	Snapshot    *Snapshot `xml:"snapshot,omitempty"`
	Versions    []string  `xml:"versions>version,omitempty"`
	LastUpdated string    `xml:"lastUpdated,omitempty"`
}

// Snapshot identifies the newest build of a snapshot version.
type Snapshot struct {
	Timestamp   string `xml:"timestamp,omitempty"`
	BuildNumber string `xml:"buildNumber,omitempty"`
	LocalCopy   bool   `xml:"localCopy,omitempty"`
}

// ParseMetadata parses a maven-metadata.xml document.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDescriptor, err, "parse maven metadata")
	}
	for i, v := range m.Versioning.Versions {
		m.Versioning.Versions[i] = strings.TrimSpace(v)
	}
	m.Versioning.Latest = strings.TrimSpace(m.Versioning.Latest)
	m.Versioning.Release = strings.TrimSpace(m.Versioning.Release)
	m.Versioning.LastUpdated = strings.TrimSpace(m.Versioning.LastUpdated)
	return &m, nil
}

// LastUpdated returns the parsed lastUpdated timestamp, or the zero time.
func (m *Metadata) LastUpdated() time.Time {
	t, err := time.Parse(metadataTimeLayout, m.Versioning.LastUpdated)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Merge returns m with blank fields filled from fallback. Fields set in m
// win; version lists are unioned and ordered.
func (m *Metadata) Merge(fallback *Metadata) *Metadata {
	out := *m
	out.Versioning.Versions = slices.Clone(m.Versioning.Versions)
	if fallback == nil {
		out.Versioning.Versions = sortVersions(out.Versioning.Versions)
		return &out
	}

	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&out.GroupID, fallback.GroupID)
	fill(&out.ArtifactID, fallback.ArtifactID)
	fill(&out.Version, fallback.Version)
	fill(&out.Versioning.Latest, fallback.Versioning.Latest)
	fill(&out.Versioning.Release, fallback.Versioning.Release)
	fill(&out.Versioning.LastUpdated, fallback.Versioning.LastUpdated)
	if out.Versioning.Snapshot == nil && fallback.Versioning.Snapshot != nil {
		s := *fallback.Versioning.Snapshot
		out.Versioning.Snapshot = &s
	}

	for _, v := range fallback.Versioning.Versions {
		if !slices.Contains(out.Versioning.Versions, v) {
			out.Versioning.Versions = append(out.Versioning.Versions, v)
		}
	}
	out.Versioning.Versions = sortVersions(out.Versioning.Versions)
	return &out
}

// WriteXML writes m as an indented document.
func (m *Metadata) WriteXML(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(m); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Bytes returns the serialized document.
func (m *Metadata) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.WriteXML(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sortVersions orders versions that parse as semantic versions by
// precedence, followed by the rest in lexical order.
func sortVersions(versions []string) []string {
	type entry struct {
		raw string
		sv  *semver.Version
	}
	entries := make([]entry, 0, len(versions))
	for _, v := range versions {
		if v == "" {
			continue
		}
		sv, err := semver.NewVersion(v)
		if err != nil {
			sv = nil
		}
		entries = append(entries, entry{v, sv})
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.sv != nil && b.sv != nil:
			if c := a.sv.Compare(b.sv); c != 0 {
				return c
			}
			return strings.Compare(a.raw, b.raw)
		case a.sv != nil:
			return -1
		case b.sv != nil:
			return 1
		default:
			return strings.Compare(a.raw, b.raw)
		}
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.raw
	}
	return out
}
