package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/mvnkit/pkg/maven"
)

const recordSuffix = ".record.json"

// Record is the derived metadata kept per coordinate. Records at the
// RELEASE and LATEST pseudo-versions carry the resolved versions.
type Record struct {
	Origin         string    `json:"origin,omitempty"`
	LastDownloaded time.Time `json:"last_downloaded,omitzero"`
	LastChecked    time.Time `json:"last_checked,omitzero"`
	LastUpdated    time.Time `json:"last_updated,omitzero"`
	Release        string    `json:"release,omitempty"`
	Latest         string    `json:"latest,omitempty"`
}

// Version returns the concrete version recorded for a RELEASE or LATEST
// query, or "" if none is recorded.
func (r Record) Version(query string) string {
	switch query {
	case maven.VersionRelease:
		return r.Release
	case maven.VersionLatest:
		if r.Latest != "" {
			return r.Latest
		}
		return r.Release
	}
	return ""
}

// IsStale reports whether the record was last checked more than interval
// ago. A record that was never checked is stale.
func (r Record) IsStale(interval time.Duration, now time.Time) bool {
	return r.LastChecked.IsZero() || now.Sub(r.LastChecked) > interval
}

func (c *Cache) recordPath(dep maven.Dependency) string {
	d := dep.POMArtifact()
	return filepath.Join(filepath.Dir(c.ArtifactPath(d, maven.ExtPOM)), d.ArtifactID+"-"+d.Version+recordSuffix)
}

// ReadRecord returns dep's record. ok is false if none is stored or the
// stored record is unreadable.
func (c *Cache) ReadRecord(dep maven.Dependency) (Record, bool) {
	data, err := os.ReadFile(c.recordPath(dep))
	if err != nil {
		return Record{}, false
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, false
	}
	return r, true
}

// UpdateRecord applies fn to dep's record and stores the result. The
// read-modify-write runs under a per-coordinate lock.
func (c *Cache) UpdateRecord(dep maven.Dependency, fn func(*Record)) (Record, error) {
	if !dep.IsMavenObject() {
		return Record{}, nil
	}
	if err := validate(dep); err != nil {
		return Record{}, err
	}
	unlock := c.lock(dep)
	defer unlock()

	r, _ := c.ReadRecord(dep)
	fn(&r)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return r, err
	}
	return r, writeFile(c.recordPath(dep), data, time.Time{})
}
