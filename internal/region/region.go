// Package region derives the active backend region from explicit choice,
// hostname, persisted preference, or locale fallback, in that order.
package region

import (
	"strings"

	"github.com/learnhub/learnhub-go/internal/locale"
)

// Region names the backend deployment a client talks to.
type Region string

const (
	Global Region = "global"
	CN     Region = "cn"
)

// Valid reports whether value is exactly one of the two known regions.
func Valid(value string) bool {
	return value == string(Global) || value == string(CN)
}

// Preference exposes the persisted region choice. Implemented by the
// session store.
type Preference interface {
	Region() string
}

// Resolver applies the resolution precedence. Hostname is the client's own
// host identity; empty skips hostname matching entirely (the generalization
// of the original browser-only guard).
type Resolver struct {
	hosts    map[Region][]string
	hostname string
	pref     Preference
	fallback Region
}

// NewResolver builds a resolver from the configured host map
// ("global=a.com,b.com;cn=c.cn"), host identity, persisted preference and
// configured default.
func NewResolver(regionHosts, hostname string, pref Preference, configured string) *Resolver {
	fallback := Global
	if Valid(configured) {
		fallback = Region(configured)
	}
	return &Resolver{
		hosts:    parseRegionHosts(regionHosts),
		hostname: strings.ToLower(strings.TrimSpace(hostname)),
		pref:     pref,
		fallback: fallback,
	}
}

// Resolve returns the active region. Precedence, highest first: explicit
// parameter, hostname mapping, persisted preference, locale default
// (zh maps to cn), configured default.
func (r *Resolver) Resolve(explicit string, loc locale.Locale) Region {
	if Valid(explicit) {
		return Region(explicit)
	}
	if r.hostname != "" {
		if reg, ok := r.fromHostname(r.hostname); ok {
			return reg
		}
	}
	if r.pref != nil {
		if stored := r.pref.Region(); Valid(stored) {
			return Region(stored)
		}
	}
	if loc != "" {
		return FromLocale(loc)
	}
	return r.fallback
}

// FromLocale maps a locale to its default region.
func FromLocale(loc locale.Locale) Region {
	if loc == locale.ZH {
		return CN
	}
	return Global
}

func (r *Resolver) fromHostname(hostname string) (Region, bool) {
	for _, reg := range []Region{Global, CN} {
		for _, h := range r.hosts[reg] {
			if h == hostname {
				return reg, true
			}
		}
	}
	if strings.HasSuffix(hostname, ".cn") {
		return CN, true
	}
	return "", false
}

// parseRegionHosts parses "global=a.com,b.com;cn=c.cn". Unknown region
// names and empty host lists are skipped.
func parseRegionHosts(value string) map[Region][]string {
	out := map[Region][]string{Global: nil, CN: nil}
	for _, segment := range strings.Split(value, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, hosts, ok := strings.Cut(segment, "=")
		if !ok || !Valid(strings.TrimSpace(name)) {
			continue
		}
		var list []string
		for _, h := range strings.Split(hosts, ",") {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				list = append(list, h)
			}
		}
		out[Region(strings.TrimSpace(name))] = list
	}
	return out
}
