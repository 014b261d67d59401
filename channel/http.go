package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/archlayer/pkgforge/diag"
)

// httpBackend is the publication-server adapter (spec.md §4.10). It GETs
// `{base}/repodata.json` to find the highest build number and PUTs each
// package's bytes to `{base}/{subdir}/{filename}`; no credentials or
// authentication headers are sent, and server-side indexing is assumed
// (Reindex is a no-op). It reuses the same
// github.com/hashicorp/go-retryablehttp client netfetch uses, since an
// upload warrants the same retry-on-5xx behavior as a source fetch.
type httpBackend struct{}

func httpClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = nil
	return c
}

// baseURL rebuilds the server URL from target: Root holds the host and
// path, Scheme the "http"/"https" prefix.
func baseURL(target Target) string {
	root := strings.TrimSuffix(target.Root, "/")
	if strings.Contains(root, "://") {
		return root
	}
	return target.Scheme + "://" + root
}

func (httpBackend) HighestBuildNumber(ctx context.Context, target Target, name, version string) (int64, error) {
	url := baseURL(target) + "/repodata.json"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return -1, diag.Wrap(diag.KindPublication, diag.Span{}, err, "building repodata request for %q", url)
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return -1, diag.Wrap(diag.KindPublication, diag.Span{}, err, "fetching %q", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return -1, nil
	}
	if resp.StatusCode != http.StatusOK {
		return -1, diag.New(diag.KindPublication, diag.Span{}, "fetching %q: status %d", url, resp.StatusCode)
	}

	var doc repodataDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return -1, diag.Wrap(diag.KindPublication, diag.Span{}, err, "decoding %q", url)
	}
	best := int64(-1)
	for filename := range doc.Packages {
		if n, ok := parseRepodataEntryFilename(filename, name, version); ok && n > best {
			best = n
		}
	}
	for filename := range doc.PackagesConda {
		if n, ok := parseRepodataEntryFilename(filename, name, version); ok && n > best {
			best = n
		}
	}
	return best, nil
}

func (httpBackend) Upload(ctx context.Context, target Target, pkg Package) error {
	url := baseURL(target) + "/" + pkg.Subdir + "/" + pkg.Filename
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(pkg.Data))
	if err != nil {
		return diag.Wrap(diag.KindPublication, diag.Span{}, err, "building upload request for %q", pkg.Filename)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := httpClient().Do(req)
	if err != nil {
		return diag.Wrap(diag.KindPublication, diag.Span{}, err, "uploading %q to %q", pkg.Filename, url)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return diag.New(diag.KindPublication, diag.Span{}, "uploading %q: status %d", pkg.Filename, resp.StatusCode)
	}
	return nil
}

func (httpBackend) Reindex(ctx context.Context, target Target, subdir string) error {
	// Publication servers in the retrieved corpus index server-side once a
	// package lands; no reindex endpoint is assumed.
	return nil
}
