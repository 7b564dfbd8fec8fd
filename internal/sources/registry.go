package sources

import (
	"fmt"
	"net/url"
	"strings"
)

// Registry resolves title URLs to the adapter serving their host.
type Registry struct {
	entries  map[string]Source
	fallback Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Source)}
}

// Register binds a host (and its subdomains) to an adapter.
func (r *Registry) Register(host string, src Source) {
	r.entries[strings.ToLower(host)] = src
}

// SetFallback installs the adapter used for hosts nothing else claims.
func (r *Registry) SetFallback(src Source) {
	r.fallback = src
}

// Resolve returns the adapter for a title URL.
func (r *Registry) Resolve(titleURL string) (Source, error) {
	parsed, err := url.Parse(titleURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url %q: %w", titleURL, err)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return nil, fmt.Errorf("source url %q has no host", titleURL)
	}

	for candidate := host; candidate != ""; {
		if src, ok := r.entries[candidate]; ok {
			return src, nil
		}
		_, rest, found := strings.Cut(candidate, ".")
		if !found {
			break
		}
		candidate = rest
	}

	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("no source adapter for host %q", host)
}

// Sources returns the distinct registered adapters, fallback included.
func (r *Registry) Sources() []Source {
	seen := make(map[Source]struct{})
	var out []Source
	for _, src := range r.entries {
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	if r.fallback != nil {
		if _, ok := seen[r.fallback]; !ok {
			out = append(out, r.fallback)
		}
	}
	return out
}
