// Package pkgpath classifies request paths as package download or
// package API lookup events.
package pkgpath

import "strings"

// Default path prefixes for the F-Droid mirror layout.
const (
	DefaultRepoPrefix = "/repo/"
	DefaultAPIPrefix  = "/api/v1/packages/"
)

// Kind tags the classification result.
type Kind int

const (
	// KindNone marks paths irrelevant to package accounting, including
	// unparseable download filenames.
	KindNone Kind = iota
	// KindDownload marks a versioned APK download.
	KindDownload
	// KindAPIHit marks a package info API lookup.
	KindAPIHit
)

// Event is a classified request path.
type Event struct {
	Kind    Kind
	Package string
	Version string // set for KindDownload only
}

// Classifier parses request paths against configured prefixes.
type Classifier struct {
	repoPrefix string
	apiPrefix  string
}

// New creates a Classifier. Empty prefixes fall back to the defaults.
func New(repoPrefix, apiPrefix string) *Classifier {
	if repoPrefix == "" {
		repoPrefix = DefaultRepoPrefix
	}
	if apiPrefix == "" {
		apiPrefix = DefaultAPIPrefix
	}
	return &Classifier{repoPrefix: repoPrefix, apiPrefix: apiPrefix}
}

// Classify parses one request path.
//
// Download paths look like {repo-prefix}{package}_{version}.apk, possibly
// with a trailing query-like artifact after "&". The artifact is cut
// before the .apk suffix check so a path like "a_1.apk&x=y" still counts.
// The filename splits on the last underscore; a name with no underscore
// is unparseable and reported as KindNone. API paths are
// {api-prefix}{package}; an empty or slash-containing package id is
// invalid.
func (c *Classifier) Classify(path string) Event {
	if strings.HasPrefix(path, c.repoPrefix) {
		name := strings.TrimPrefix(path, c.repoPrefix)
		if i := strings.Index(name, "&"); i >= 0 {
			name = name[:i]
		}
		if !strings.HasSuffix(name, ".apk") {
			return Event{Kind: KindNone}
		}
		name = strings.Trim(strings.TrimSuffix(name, ".apk"), "/")

		i := strings.LastIndex(name, "_")
		if i < 0 {
			return Event{Kind: KindNone}
		}
		return Event{Kind: KindDownload, Package: name[:i], Version: name[i+1:]}
	}

	if strings.HasPrefix(path, c.apiPrefix) {
		name := strings.Trim(strings.TrimSpace(strings.TrimPrefix(path, c.apiPrefix)), "/")
		if name == "" || strings.Contains(name, "/") {
			return Event{Kind: KindNone}
		}
		return Event{Kind: KindAPIHit, Package: name}
	}

	return Event{Kind: KindNone}
}

// APIPathFor returns the exact API lookup path for a package id.
func (c *Classifier) APIPathFor(packageID string) string {
	return c.apiPrefix + packageID
}
