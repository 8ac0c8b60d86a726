package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mvnkit"

// Prometheus implements every hook interface with Prometheus collectors.
type Prometheus struct {
	solves            *prometheus.CounterVec
	solveDuration     *prometheus.HistogramVec
	solvedArtifacts   *prometheus.GaugeVec
	downloads         *prometheus.CounterVec
	downloadBytes     *prometheus.CounterVec
	downloadDuration  *prometheus.HistogramVec
	integrityFailures *prometheus.CounterVec
	cacheEvents       *prometheus.CounterVec
	cacheBytes        prometheus.Counter
	purgedFiles       prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	httpErrors        *prometheus.CounterVec
}

var (
	_ ResolveHooks = (*Prometheus)(nil)
	_ CacheHooks   = (*Prometheus)(nil)
	_ HTTPHooks    = (*Prometheus)(nil)
)

// NewPrometheus creates the collectors and registers them with reg.
// It panics if a collector is already registered, like MustRegister.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "solver", Name: "solves_total",
			Help: "Dependency resolutions by scope and outcome.",
		}, []string{"scope", "outcome"}),
		solveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "solver", Name: "solve_duration_seconds",
			Help:    "Time spent resolving a scope.",
			Buckets: prometheus.DefBuckets,
		}, []string{"scope"}),
		solvedArtifacts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "solver", Name: "artifacts",
			Help: "Artifacts in the most recent solution of a scope.",
		}, []string{"scope"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "repository", Name: "downloads_total",
			Help: "Artifact downloads by repository, extension and outcome.",
		}, []string{"repository", "ext", "outcome"}),
		downloadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "repository", Name: "downloaded_bytes_total",
			Help: "Bytes downloaded by repository.",
		}, []string{"repository"}),
		downloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "repository", Name: "download_duration_seconds",
			Help:    "Artifact download latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"repository"}),
		integrityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "repository", Name: "integrity_failures_total",
			Help: "Checksum mismatches by repository.",
		}, []string{"repository"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "events_total",
			Help: "Cache hits, misses and writes by file kind.",
		}, []string{"kind", "event"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "written_bytes_total",
			Help: "Bytes written to the cache.",
		}),
		purgedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "purged_files_total",
			Help: "Files removed by purges.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP responses by host and status code.",
		}, []string{"host", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by host.",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "errors_total",
			Help: "HTTP transport failures by host.",
		}, []string{"host"}),
	}

	reg.MustRegister(
		p.solves, p.solveDuration, p.solvedArtifacts,
		p.downloads, p.downloadBytes, p.downloadDuration, p.integrityFailures,
		p.cacheEvents, p.cacheBytes, p.purgedFiles,
		p.httpRequests, p.httpDuration, p.httpErrors,
	)
	return p
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnSolveStart(context.Context, string, int) {}

func (p *Prometheus) OnSolveComplete(_ context.Context, scope string, artifacts int, d time.Duration, err error) {
	p.solves.WithLabelValues(scope, outcome(err)).Inc()
	p.solveDuration.WithLabelValues(scope).Observe(d.Seconds())
	if err == nil {
		p.solvedArtifacts.WithLabelValues(scope).Set(float64(artifacts))
	}
}

func (p *Prometheus) OnDownload(_ context.Context, repo, ext string, size int, d time.Duration, err error) {
	p.downloads.WithLabelValues(repo, ext, outcome(err)).Inc()
	if err == nil {
		p.downloadBytes.WithLabelValues(repo).Add(float64(size))
		p.downloadDuration.WithLabelValues(repo).Observe(d.Seconds())
	}
}

func (p *Prometheus) OnIntegrityFailure(_ context.Context, repo, _ string) {
	p.integrityFailures.WithLabelValues(repo).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, kind string) {
	p.cacheEvents.WithLabelValues(kind, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, kind string) {
	p.cacheEvents.WithLabelValues(kind, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, kind string, size int) {
	p.cacheEvents.WithLabelValues(kind, "write").Inc()
	p.cacheBytes.Add(float64(size))
}

func (p *Prometheus) OnCachePurge(_ context.Context, files int) {
	p.purgedFiles.Add(float64(files))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, _, host, _ string, code int, d time.Duration) {
	p.httpRequests.WithLabelValues(host, strconv.Itoa(code)).Inc()
	p.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, _, host, _ string, _ error) {
	p.httpErrors.WithLabelValues(host).Inc()
}
