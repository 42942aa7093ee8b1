package version

// fallbackVersions are the hardcoded last-resort versions substituted when
// live discovery fails, so a version list is never empty for the UI.
var fallbackVersions = map[string][]string{
	"redis":       {"7.4.1", "7.2.6", "6.2.16"},
	"mariadb":     {"11.4.4", "10.11.10", "10.6.20"},
	"mailpit":     {"1.21.5", "1.20.0"},
	"meilisearch": {"1.11.3", "1.10.2"},
	"minio":       {"RELEASE.2024-11-07T00-52-20Z"},
	"ngrok":       {"3.18.4"},
}

// fallbackPatterns mirrors the per-service URL/name templates used by the
// live fetchers.
var fallbackPatterns = map[string][2]string{
	"redis":       {"https://download.redis.io/releases/redis-{version}.tar.gz", "redis-{version}.tar.gz"},
	"mariadb":     {"https://archive.mariadb.org/mariadb-{version}/source/mariadb-{version}.tar.gz", "mariadb-{version}.tar.gz"},
	"mailpit":     {"https://github.com/axllent/mailpit/releases/download/v{version}/mailpit-linux-amd64.tar.gz", "mailpit-v{version}-linux-amd64.tar.gz"},
	"meilisearch": {"https://github.com/meilisearch/meilisearch/releases/download/v{version}/meilisearch-linux-amd64", "meilisearch-v{version}"},
	"minio":       {"https://dl.min.io/server/minio/release/linux-amd64/archive/minio.{version}", "minio.{version}"},
	"ngrok":       {"https://bin.equinox.io/c/bNyj1mQVY4c/ngrok-v3-stable-linux-amd64.tgz", "ngrok-v3-stable-linux-amd64.tgz"},
}

// Fallback returns the built-in version list for a service, tagged
// SourceFallback. Nil when the service has no fallback.
func Fallback(service string) []Version {
	vs, ok := fallbackVersions[service]
	if !ok {
		return nil
	}
	pats := fallbackPatterns[service]
	out := make([]Version, 0, len(vs))
	for _, v := range vs {
		out = append(out, Version{
			Version:     v,
			DownloadURL: expand(pats[0], v),
			Filename:    expand(pats[1], v),
			Source:      SourceFallback,
		})
	}
	return out
}
