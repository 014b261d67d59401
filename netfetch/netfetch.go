// Package netfetch is the network-client boundary spec.md §1 documents as
// an external collaborator (`fetch(url, range?) → bytes`): the source cache
// (component F) downloads archives through this interface rather than
// reaching for net/http directly, so a caller can substitute a mocked or
// rate-limited client in tests without touching [source.Cache].
package netfetch

import (
	"context"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/archlayer/pkgforge/diag"
)

// Client is the injectable network boundary. Get returns the response body
// for a successful request; callers are responsible for closing it.
type Client interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// retryableClient is the default [Client], backed by
// github.com/hashicorp/go-retryablehttp: it retries the same URL on
// transient failures, up to the count given to [New]. Falling back to the
// next mirror URL is done by the caller (source.Cache's URL fetch).
type retryableClient struct {
	http *retryablehttp.Client
}

// New constructs the default retrying HTTP [Client]. retries bounds the
// number of retry attempts per request (0 disables retries).
func New(retries int) Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.Logger = nil
	return &retryableClient{http: c}
}

func (c *retryableClient) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, diag.Wrap(diag.KindSource, diag.Span{}, err, "building request for %q", url)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, diag.Wrap(diag.KindSource, diag.Span{}, err, "fetching %q", url)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, diag.New(diag.KindSource, diag.Span{}, "fetching %q: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
