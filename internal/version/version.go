package version

import (
	"sort"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// Source tags where a version entry came from.
type Source string

const (
	SourceAPI      Source = "api"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// MaxVersions is the number of entries a fetcher may return after ranking.
const MaxVersions = 5

// Version is one discovered release of a service. Immutable once produced
// by a fetcher.
type Version struct {
	Version     string    `json:"version"`
	DownloadURL string    `json:"download_url"`
	Filename    string    `json:"filename"`
	ReleaseDate time.Time `json:"release_date,omitzero"`
	Source      Source    `json:"source"`
}

// SortDesc orders versions by descending semantic version. Entries whose
// version string does not parse sort after all parsable ones, ordered by
// descending lexicographic comparison, so the ordering is always total.
func SortDesc(list []Version) {
	sort.SliceStable(list, func(i, j int) bool {
		return versionLess(list[j].Version, list[i].Version)
	})
}

// versionLess reports whether a orders before b ascending.
func versionLess(a, b string) bool {
	va, errA := goversion.NewVersion(strings.TrimPrefix(a, "v"))
	vb, errB := goversion.NewVersion(strings.TrimPrefix(b, "v"))
	switch {
	case errA == nil && errB == nil:
		return va.LessThan(vb)
	case errA == nil:
		// parsable ranks above unparsable
		return false
	case errB == nil:
		return true
	default:
		return a < b
	}
}

// Truncate limits a ranked list to MaxVersions entries.
func Truncate(list []Version) []Version {
	if len(list) > MaxVersions {
		return list[:MaxVersions]
	}
	return list
}

// expand substitutes the resolved version string into a URL/filename pattern.
func expand(pattern, version string) string {
	return strings.ReplaceAll(pattern, "{version}", version)
}
