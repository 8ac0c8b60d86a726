package config

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/mvnkit/pkg/cache"
	"github.com/matzehuels/mvnkit/pkg/repository"
	"github.com/matzehuels/mvnkit/pkg/solver"
)

// OpenCache opens the configured cache directory, or the default one.
func (s *Settings) OpenCache() (*cache.Cache, error) {
	dir := s.CacheDir
	if dir == "" {
		d, err := cache.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return cache.New(dir)
}

// ProxyList converts the configured proxies.
func (s *Settings) ProxyList() []repository.Proxy {
	proxies := make([]repository.Proxy, len(s.Proxies))
	for i, p := range s.Proxies {
		proxies[i] = repository.Proxy{
			ID:           p.ID,
			Active:       p.Active,
			Protocol:     p.Protocol,
			Host:         p.Host,
			Port:         p.Port,
			Username:     p.Username,
			Password:     p.Password,
			Repositories: p.Repositories,
		}
	}
	return proxies
}

// NewRepositories creates the configured repositories in order.
func (s *Settings) NewRepositories(c *cache.Cache, logger *log.Logger) []*repository.Repository {
	proxies := s.ProxyList()
	settingsFile := s.Path
	if settingsFile == "" {
		settingsFile, _ = DefaultPath()
	}
	repos := make([]*repository.Repository, len(s.Repositories))
	for i, r := range s.Repositories {
		repos[i] = repository.New(r.ID, r.URL, c, repository.Options{
			Affinity:         r.Affinity,
			EnforceChecksums: s.EnforceChecksums,
			RateLimit:        r.RateLimit,
			Burst:            r.Burst,
			Proxies:          proxies,
			SettingsFile:     settingsFile,
			Timeout:          s.HTTPTimeout.Duration,
			Logger:           logger,
		})
	}
	return repos
}

// SolverOptions returns the solver options the settings describe.
func (s *Settings) SolverOptions(logger *log.Logger) solver.Options {
	return solver.Options{
		Workers:         s.Workers,
		Sources:         s.Sources,
		UpdateInterval:  s.UpdateInterval.Duration,
		Offline:         s.Offline,
		BuildProperties: s.Properties,
		Logger:          logger,
	}
}
