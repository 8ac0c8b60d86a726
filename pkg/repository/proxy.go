package repository

import (
	"net"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Proxy is a configured HTTP proxy.
type Proxy struct {
	ID       string
	Active   bool
	Protocol string // http (default) or https
	Host     string
	Port     int
	Username string
	Password string

	// Repositories limits the proxy to repositories whose id or URL host
	// matches one of these patterns (path.Match syntax). Empty matches all.
	Repositories []string
}

// URL returns the proxy URL including credentials.
func (p Proxy) URL() *url.URL {
	scheme := p.Protocol
	if scheme == "" {
		scheme = "http"
	}
	host := p.Host
	if p.Port > 0 {
		host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}
	u := &url.URL{Scheme: scheme, Host: host}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// String returns the proxy address without credentials.
func (p Proxy) String() string {
	u := p.URL()
	u.User = nil
	return u.String()
}

// Matches reports whether p is active and applies to the repository.
func (p Proxy) Matches(repoID, repoURL string) bool {
	if !p.Active || p.Host == "" {
		return false
	}
	if len(p.Repositories) == 0 {
		return true
	}
	host := repoURL
	if u, err := url.Parse(repoURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	for _, pattern := range p.Repositories {
		pattern = strings.TrimSpace(pattern)
		if pattern == repoID || pattern == host {
			return true
		}
		if ok, _ := path.Match(pattern, repoID); ok {
			return true
		}
		if ok, _ := path.Match(pattern, host); ok {
			return true
		}
	}
	return false
}

// SelectProxy returns the first proxy that matches the repository.
func SelectProxy(proxies []Proxy, repoID, repoURL string) (Proxy, bool) {
	for _, p := range proxies {
		if p.Matches(repoID, repoURL) {
			return p, true
		}
	}
	return Proxy{}, false
}
