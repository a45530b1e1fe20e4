package fetch

// Default remote locations for the two published metrics sources.
const (
	DefaultAppsBaseURL   = "https://fdroid.gitlab.io/metrics"
	DefaultSearchBaseURL = "https://fdroid.gitlab.io/metrics/search.f-droid.org"
)

// DefaultAppServers are the origin servers of the app metrics source.
var DefaultAppServers = []string{"http01.fdroid.net", "http02.fdroid.net", "http03.fdroid.net"}

// Source describes one remote metrics publication. Multi-server sources
// publish one directory per server under the base URL; single-origin
// sources publish directly under it (empty server name).
type Source struct {
	Name    string
	BaseURL string
	Servers []string
}

// AppsSource returns the multi-server app metrics source. Empty arguments
// fall back to the defaults.
func AppsSource(baseURL string, servers []string) Source {
	if baseURL == "" {
		baseURL = DefaultAppsBaseURL
	}
	if len(servers) == 0 {
		servers = DefaultAppServers
	}
	return Source{Name: "apps", BaseURL: baseURL, Servers: servers}
}

// SearchSource returns the single-origin search metrics source.
func SearchSource(baseURL string) Source {
	if baseURL == "" {
		baseURL = DefaultSearchBaseURL
	}
	return Source{Name: "search", BaseURL: baseURL, Servers: []string{""}}
}

// serverURL returns the remote directory URL for one server of the source.
func (s Source) serverURL(server string) string {
	if server == "" {
		return s.BaseURL
	}
	return s.BaseURL + "/" + server
}
