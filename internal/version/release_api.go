package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// releaseAPIFetcher queries a GitHub-style releases endpoint and maps the
// stable (non-draft, non-prerelease) entries to Version records.
type releaseAPIFetcher struct {
	service     string
	client      *http.Client
	apiURL      string
	urlPattern  string
	filePattern string
}

type apiRelease struct {
	TagName     string    `json:"tag_name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

func (f *releaseAPIFetcher) Service() string { return f.service }

func (f *releaseAPIFetcher) Fetch(ctx context.Context) ([]Version, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build releases request for %s: %w", f.service, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch releases for %s: %w", f.service, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch releases for %s: unexpected status %s", f.service, resp.Status)
	}

	var releases []apiRelease
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode releases for %s: %w", f.service, err)
	}

	out := make([]Version, 0, len(releases))
	for _, rel := range releases {
		if rel.Draft || rel.Prerelease {
			continue
		}
		v := strings.TrimPrefix(strings.TrimSpace(rel.TagName), "v")
		if v == "" {
			continue
		}
		out = append(out, Version{
			Version:     v,
			DownloadURL: expand(f.urlPattern, v),
			Filename:    expand(f.filePattern, v),
			ReleaseDate: rel.PublishedAt,
			Source:      SourceAPI,
		})
	}
	SortDesc(out)
	return Truncate(out), nil
}
