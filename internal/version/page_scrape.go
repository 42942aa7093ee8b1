package version

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

// scrapeBodyLimit caps how much of a download page we are willing to read.
const scrapeBodyLimit = 4 << 20

// pageScrapeFetcher downloads an HTML index page and extracts version
// tokens from anchor hrefs with a per-service pattern. Duplicate tokens
// collapse to one entry.
type pageScrapeFetcher struct {
	service     string
	client      *http.Client
	pageURL     string
	hrefPattern string // regexp with the version token as capture group 1
	urlPattern  string
	filePattern string
}

func (f *pageScrapeFetcher) Service() string { return f.service }

func (f *pageScrapeFetcher) Fetch(ctx context.Context) ([]Version, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultFetchTimeout)
	defer cancel()

	re, err := regexp.Compile(f.hrefPattern)
	if err != nil {
		return nil, fmt.Errorf("version pattern for %s: %w", f.service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request for %s: %w", f.service, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch download page for %s: %w", f.service, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch download page for %s: unexpected status %s", f.service, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, scrapeBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("read download page for %s: %w", f.service, err)
	}

	matches := re.FindAllStringSubmatch(string(body), -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("parse download page for %s: no version tokens found", f.service)
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]Version, 0, len(matches))
	for _, m := range matches {
		if len(m) < 2 {
			continue
		}
		v := m[1]
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, Version{
			Version:     v,
			DownloadURL: expand(f.urlPattern, v),
			Filename:    expand(f.filePattern, v),
			Source:      SourceAPI,
		})
	}
	SortDesc(out)
	return Truncate(out), nil
}
