package maven

import "strings"

// maven2 layout patterns.
const (
	ArtifactPattern         = "${groupId}/${artifactId}/${version}/${artifactId}-${version}${classifier}.${ext}"
	MetadataPattern         = "${groupId}/${artifactId}/maven-metadata.${ext}"
	SnapshotMetadataPattern = "${groupId}/${artifactId}/${version}/maven-metadata.${ext}"
)

// MetadataFile is the name of repository version metadata.
const MetadataFile = "maven-metadata.xml"

// Path expands pattern for dep and ext. Group dots become path separators.
func Path(pattern string, dep Dependency, ext string) string {
	classifier := ""
	if dep.Classifier != "" {
		classifier = "-" + dep.Classifier
	}
	r := strings.NewReplacer(
		"${groupId}", strings.ReplaceAll(dep.GroupID, ".", "/"),
		"${artifactId}", dep.ArtifactID,
		"${version}", dep.Version,
		"${classifier}", classifier,
		"${ext}", ext,
	)
	return r.Replace(pattern)
}

// ArtifactPath returns the maven2 relative path of dep's ext file.
func ArtifactPath(dep Dependency, ext string) string {
	return Path(ArtifactPattern, dep, ext)
}

// MetadataPath returns the relative path of dep's metadata ext file,
// using the snapshot variant for snapshot versions.
func MetadataPath(dep Dependency, ext string) string {
	if dep.IsSnapshot() {
		return Path(SnapshotMetadataPattern, dep, ext)
	}
	return Path(MetadataPattern, dep, ext)
}

// JoinURL joins a repository base URL and a relative path.
func JoinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
