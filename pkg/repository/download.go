package repository

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/matzehuels/mvnkit/pkg/cache"
	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/maven"
	"github.com/matzehuels/mvnkit/pkg/observability"
)

// Download fetches dep's ext file into the cache and returns its path.
// A repository that does not have the file returns a NOT_FOUND error.
func (r *Repository) Download(ctx context.Context, dep maven.Dependency, ext string) (string, error) {
	if !dep.IsMavenObject() {
		return "", errors.New(errors.ErrCodeInvalidInput, "%s is not a repository artifact", dep)
	}

	expected, err := r.checksum(ctx, dep, ext, false)
	if err != nil {
		return "", err
	}

	rawURL := r.ArtifactURL(dep, ext)
	start := time.Now()
	resp, err := r.get(ctx, rawURL)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			r.logger.Debugf("%s not found @ %s", dep.Coordinates(), r.URL)
			return "", err
		}
		observability.Resolve().OnDownload(ctx, r.ID, ext, 0, time.Since(start), err)
		return "", err
	}
	observability.Resolve().OnDownload(ctx, r.ID, ext, len(resp.data), time.Since(start), nil)

	if err := r.verify(ctx, dep, ext, expected, resp.data, false); err != nil {
		return "", err
	}

	path, err := r.cache.WriteArtifact(dep, ext, resp.data, resp.lastModified)
	if err != nil {
		return "", err
	}
	observability.Cache().OnCacheSet(ctx, ext, len(resp.data))

	if _, err := r.cache.UpdateRecord(dep, func(rec *cache.Record) {
		r.stampDownload(rec, dep, ext, resp)
	}); err != nil {
		r.logger.Warnf("failed to update record of %s: %v", dep.Coordinates(), err)
	}

	r.logger.Infof("downloaded %s from %s", maven.ArtifactPath(dep, ext), r.ID)
	return path, nil
}

// stampDownload updates a record after dep's ext file was downloaded. A
// descriptor only stamps the timestamps when it is the artifact itself,
// i.e. for pom packaging.
func (r *Repository) stampDownload(rec *cache.Record, dep maven.Dependency, ext string, resp *response) {
	rec.Origin = r.URL
	now := r.now()
	if ext == maven.ExtPOM {
		if packaging(resp.data) == maven.ExtPOM {
			rec.LastDownloaded = now
			rec.LastChecked = now
		}
		return
	}
	rec.LastDownloaded = now
	rec.LastChecked = now
	if !dep.IsSnapshot() && !resp.lastModified.IsZero() {
		rec.LastUpdated = resp.lastModified
	}
}

// DownloadMetadata fetches dep's maven-metadata.xml, merges it with the
// cached copy and updates the version records. For a release version the
// records at the RELEASE and LATEST pseudo-versions are updated as well.
func (r *Repository) DownloadMetadata(ctx context.Context, dep maven.Dependency) (string, error) {
	expected, err := r.checksum(ctx, dep, maven.ExtXML, true)
	if err != nil {
		return "", err
	}

	rawURL := r.MetadataURL(dep, maven.ExtXML)
	resp, err := r.get(ctx, rawURL)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			r.logger.Debugf("metadata of %s not found @ %s", dep.ManagementID(), r.URL)
		}
		return "", err
	}
	if err := r.verify(ctx, dep, maven.ExtXML, expected, resp.data, true); err != nil {
		return "", err
	}

	remote, err := ParseMetadata(resp.data)
	if err != nil {
		return "", err
	}
	var cached *Metadata
	if path, ok := r.cache.Metadata(dep, maven.ExtXML); ok {
		if data, err := r.cache.ReadFile(path); err == nil {
			cached, _ = ParseMetadata(data)
		}
	}
	merged := remote.Merge(cached)

	data, err := merged.Bytes()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode metadata of %s", dep.ManagementID())
	}
	path, err := r.cache.WriteMetadata(dep, maven.ExtXML, data, resp.lastModified)
	if err != nil {
		return "", err
	}
	observability.Cache().OnCacheSet(ctx, "metadata", len(data))

	if err := r.recordMetadata(dep, merged); err != nil {
		r.logger.Warnf("failed to update records of %s: %v", dep.ManagementID(), err)
	}
	return path, nil
}

func (r *Repository) recordMetadata(dep maven.Dependency, m *Metadata) error {
	now := r.now()
	updated := m.LastUpdated()

	if dep.IsSnapshot() {
		_, err := r.cache.UpdateRecord(dep, func(rec *cache.Record) {
			rec.Origin = r.URL
			rec.LastChecked = now
			if !updated.IsZero() {
				rec.LastUpdated = updated
			}
		})
		return err
	}

	if updated.IsZero() {
		updated = now
	}
	versions := []string{maven.VersionRelease, maven.VersionLatest}
	if dep.Version != "" && !dep.IsVersionQuery() {
		versions = append(versions, dep.Version)
	}
	for _, v := range versions {
		_, err := r.cache.UpdateRecord(dep.WithVersion(v), func(rec *cache.Record) {
			rec.Origin = r.URL
			rec.LastChecked = now
			rec.LastUpdated = updated
			if m.Versioning.Release != "" {
				rec.Release = m.Versioning.Release
			}
			if m.Versioning.Latest != "" {
				rec.Latest = m.Versioning.Latest
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// checksum returns the expected SHA1 of dep's ext file. A cached sum is
// only trusted for release artifacts; metadata and snapshots change in
// place, so their sums are always fetched. An empty result means no
// checksum is published.
func (r *Repository) checksum(ctx context.Context, dep maven.Dependency, ext string, metadata bool) (string, error) {
	sumExt := ext + maven.ExtSHA1

	if !metadata && !dep.IsSnapshot() {
		if path, ok := r.cache.Artifact(dep, sumExt); ok {
			if data, err := r.cache.ReadFile(path); err == nil {
				if sum := parseSHA1(data); sum != "" {
					return sum, nil
				}
			}
		}
	}

	rawURL := r.ArtifactURL(dep, sumExt)
	if metadata {
		rawURL = r.MetadataURL(dep, sumExt)
	}
	resp, err := r.get(ctx, rawURL)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return "", nil
		}
		return "", err
	}
	sum := parseSHA1(resp.data)
	if sum == "" {
		return "", nil
	}

	if metadata {
		_, err = r.cache.WriteMetadata(dep, sumExt, []byte(sum), time.Time{})
	} else {
		_, err = r.cache.WriteArtifact(dep, sumExt, []byte(sum), time.Time{})
	}
	if err != nil {
		r.logger.Warnf("failed to cache checksum of %s: %v", dep.Coordinates(), err)
	}
	return sum, nil
}

// verify compares data against the expected SHA1. On mismatch every cached
// file of the coordinate is purged, or for metadata the cached metadata
// document and its checksum.
func (r *Repository) verify(ctx context.Context, dep maven.Dependency, ext, expected string, data []byte, metadata bool) error {
	if expected == "" {
		r.logger.Debugf("no checksum for %s.%s @ %s", dep.Coordinates(), ext, r.ID)
		return nil
	}

	r.verifyMu.Lock()
	defer r.verifyMu.Unlock()

	sum := sha1.Sum(data)
	actual := hex.EncodeToString(sum[:])
	if actual == expected {
		return nil
	}

	observability.Resolve().OnIntegrityFailure(ctx, r.ID, dep.Coordinates())
	purge := r.cache.Purge
	if metadata {
		purge = r.cache.PurgeMetadata
	}
	n, err := purge(dep)
	if err != nil {
		r.logger.Warnf("failed to purge %s: %v", dep.Coordinates(), err)
	}
	observability.Cache().OnCachePurge(ctx, n)

	if !r.opts.EnforceChecksums {
		r.logger.Warnf("sha1 mismatch for %s.%s from %s", dep.Coordinates(), ext, r.ID)
		r.logger.Warnf("  expected %s", expected)
		r.logger.Warnf("  computed %s", actual)
		return nil
	}
	r.logger.Errorf("sha1 mismatch for %s.%s from %s", dep.Coordinates(), ext, r.ID)
	r.logger.Errorf("  expected %s", expected)
	r.logger.Errorf("  computed %s", actual)
	r.logger.Errorf("  purged %d cached files", n)
	return errors.New(errors.ErrCodeIntegrity, "sha1 mismatch for %s.%s from %s: expected %s, computed %s",
		dep.Coordinates(), ext, r.ID, expected, actual)
}

// parseSHA1 extracts the hex digest from a .sha1 file, which may carry a
// trailing file name.
func parseSHA1(data []byte) string {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return ""
	}
	sum := strings.ToLower(fields[0])
	if len(sum) > 40 {
		sum = sum[:40]
	}
	if len(sum) != 40 {
		return ""
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return ""
	}
	return sum
}

// packaging reads <packaging> from a descriptor, defaulting to jar.
func packaging(data []byte) string {
	var doc struct {
		Packaging string `xml:"packaging"`
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	if err := dec.Decode(&doc); err != nil || strings.TrimSpace(doc.Packaging) == "" {
		return maven.ExtJAR
	}
	return strings.TrimSpace(doc.Packaging)
}
