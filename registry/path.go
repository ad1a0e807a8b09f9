// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry

import (
	"net/url"
	"path"

	"github.com/juju/errors"
)

// Path defines an absolute path for calling requests to the server.
type Path struct {
	base *url.URL
}

// MakePath creates a URL for queries to a server.
func MakePath(base *url.URL) Path {
	return Path{
		base: base,
	}
}

// Join will sum path names onto a base URL and ensure it constructs a URL
// that is valid. Each name is escaped as a single path segment.
func (p Path) Join(names ...string) (Path, error) {
	if p.base == nil {
		return Path{}, errors.NotValidf("empty base path")
	}
	for _, name := range names {
		if name == "" {
			return Path{}, errors.NotValidf("empty path segment")
		}
	}

	u := *p.base
	escaped := make([]string, len(names)+1)
	escaped[0] = u.EscapedPath()
	for i, name := range names {
		escaped[i+1] = url.PathEscape(name)
	}
	raw := path.Join(escaped...)
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		return Path{}, errors.Trace(err)
	}
	u.Path = unescaped
	u.RawPath = raw
	return MakePath(&u), nil
}

// Query adds an additional query parameter to the existing URL.
func (p Path) Query(key, value string) (Path, error) {
	if p.base == nil {
		return Path{}, errors.NotValidf("empty base path")
	}
	if key == "" {
		return Path{}, errors.NotValidf("empty query key")
	}

	u := *p.base
	query := u.Query()
	query.Set(key, value)
	u.RawQuery = query.Encode()
	return MakePath(&u), nil
}

// String returns a stringified version of the Path.
func (p Path) String() string {
	if p.base == nil {
		return ""
	}
	return p.base.String()
}
