// Package repository downloads artifacts from maven2 repositories into the
// local cache.
//
// Every download is checked against the repository's published SHA1. A
// missing checksum is tolerated; a mismatch purges every cached file of the
// coordinate and fails with an INTEGRITY error unless checksum enforcement
// is disabled.
//
// Failures are classified with [errors.Code]: NOT_FOUND when the repository
// does not have the file (try the next repository), NETWORK_ERROR for
// transport problems.
package repository

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/matzehuels/mvnkit/pkg/cache"
	"github.com/matzehuels/mvnkit/pkg/httputil"
	"github.com/matzehuels/mvnkit/pkg/maven"
)

// Central is the default repository.
const (
	CentralID  = "central"
	CentralURL = "https://repo1.maven.org/maven2"
)

const defaultTimeout = 30 * time.Second

// Options configures a [Repository].
type Options struct {
	// Affinity lists group prefixes this repository is preferred for.
	Affinity []string

	// EnforceChecksums turns a checksum mismatch into an error. When false
	// the mismatch is logged and the artifact kept.
	EnforceChecksums bool

	// RateLimit caps requests per second; zero disables limiting.
	RateLimit float64
	Burst     int

	Proxies []Proxy

	// SettingsFile is named in connectivity hints.
	SettingsFile string

	// Timeout applies to each request when HTTPClient is nil.
	Timeout time.Duration

	// HTTPClient overrides the client built from Proxies and Timeout.
	HTTPClient *http.Client

	// Retry controls retries of 5xx, 429 and transport failures. The zero
	// value selects httputil.DefaultPolicy.
	Retry httputil.Policy

	Logger *log.Logger
}

// Repository is a remote maven2 repository backed by the local cache.
// It is safe for concurrent use.
type Repository struct {
	ID  string
	URL string

	cache   *cache.Cache
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger

	flight   singleflight.Group
	verifyMu sync.Mutex
	now      func() time.Time
}

// New creates a repository that stores downloads in c.
func New(id, url string, c *cache.Cache, opts Options) *Repository {
	r := &Repository{
		ID:     id,
		URL:    strings.TrimSuffix(url, "/"),
		cache:  c,
		opts:   opts,
		logger: opts.Logger,
		now:    time.Now,
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.opts.Retry.Attempts == 0 {
		r.opts.Retry = httputil.DefaultPolicy
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = max(1, int(opts.RateLimit))
		}
		r.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	r.client = opts.HTTPClient
	if r.client == nil {
		r.client = r.newHTTPClient()
	}
	return r
}

// Central returns the Maven Central repository.
func Central(c *cache.Cache, opts Options) *Repository {
	return New(CentralID, CentralURL, c, opts)
}

func (r *Repository) String() string { return r.ID + " (" + r.URL + ")" }

// HasAffinity reports whether the repository is preferred for dep's group.
func (r *Repository) HasAffinity(dep maven.Dependency) bool {
	return slices.ContainsFunc(r.opts.Affinity, func(prefix string) bool {
		return prefix != "" && (dep.GroupID == prefix || strings.HasPrefix(dep.GroupID, prefix+"."))
	})
}

// ArtifactURL returns the URL of dep's ext file.
func (r *Repository) ArtifactURL(dep maven.Dependency, ext string) string {
	return maven.JoinURL(r.URL, maven.ArtifactPath(dep, ext))
}

// MetadataURL returns the URL of dep's metadata ext file.
func (r *Repository) MetadataURL(dep maven.Dependency, ext string) string {
	return maven.JoinURL(r.URL, maven.MetadataPath(dep, ext))
}

// Order sorts repositories for dep: those with affinity for its group
// first, otherwise keeping the configured order.
func Order(repos []*Repository, dep maven.Dependency) []*Repository {
	ordered := slices.Clone(repos)
	slices.SortStableFunc(ordered, func(a, b *Repository) int {
		aa, ba := a.HasAffinity(dep), b.HasAffinity(dep)
		switch {
		case aa && !ba:
			return -1
		case ba && !aa:
			return 1
		}
		return 0
	})
	return ordered
}
