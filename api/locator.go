package api

import (
	"net/url"
	"strings"
)

//Locator schemes understood by the orchestrator
const (
	SchemePool  = "pool"
	SchemeNexus = "nvmt"
)

//Locator is the parsed form of a resource locator string of the shape
//scheme://host/path. A pool locator is pool://host/pool-name, a nexus
//host locator is nvmt://host with no path.
type Locator struct {
	Scheme string
	Host   string
	Path   string
}

//ParseLocator parses a locator string. It fails with ErrMalformedLocator
//if raw is not a well formed URI with a scheme and a host.
func ParseLocator(raw string) (Locator, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Locator{}, NewError(ErrMalformedLocator, err, "parsing locator %q", raw)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return Locator{}, NewError(ErrMalformedLocator, nil, "locator %q: expected scheme://host/path", raw)
	}
	return Locator{
		Scheme: u.Scheme,
		Host:   u.Hostname(),
		Path:   strings.TrimPrefix(u.Path, "/"),
	}, nil
}

//Expect fails with ErrSchemeMismatch if the locator scheme differs from
//the scheme the call site requires
func (l Locator) Expect(scheme string) error {
	if l.Scheme != scheme {
		return NewError(ErrSchemeMismatch, nil, "locator scheme %q, expected %q", l.Scheme, scheme)
	}
	return nil
}

//ParsePoolLocator parses a pool://host/pool-name locator and returns the
//host and pool name
func ParsePoolLocator(raw string) (host string, pool string, err error) {
	l, err := ParseLocator(raw)
	if err != nil {
		return "", "", err
	}
	if err := l.Expect(SchemePool); err != nil {
		return "", "", NewError(ErrSchemeMismatch, err, "pool locator %q", raw)
	}
	if l.Path == "" {
		return "", "", NewError(ErrMalformedLocator, nil, "pool locator %q: missing pool name", raw)
	}
	return l.Host, l.Path, nil
}

//ParseNexusLocator parses a nvmt://host locator and returns the host
func ParseNexusLocator(raw string) (host string, err error) {
	l, err := ParseLocator(raw)
	if err != nil {
		return "", err
	}
	if err := l.Expect(SchemeNexus); err != nil {
		return "", NewError(ErrSchemeMismatch, err, "nexus locator %q", raw)
	}
	return l.Host, nil
}
