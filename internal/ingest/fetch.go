package ingest

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const maxRedirects = 5

// FetchError reports a remote image that could not be downloaded.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("ingest: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher downloads remote images for insertion. It refuses loopback and
// cloud metadata hosts, including on redirects.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	checkHost func(host string) error
}

// NewFetcher returns a Fetcher with the given size cap and timeout.
func NewFetcher(maxBytes int64, timeout time.Duration) *Fetcher {
	f := &Fetcher{maxBytes: maxBytes, checkHost: checkBlockedHost}
	f.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return f.checkHost(req.URL.Hostname())
		},
	}
	return f
}

// Fetch downloads rawURL and returns its bytes and sniffed image type.
// Download failures are *FetchError; oversized or non-image payloads are
// *TooLargeError and *UnsupportedMediaError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	fail := func(err error) ([]byte, string, error) {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fail(fmt.Errorf("invalid URL: %w", err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fail(fmt.Errorf("unsupported scheme %q (only http/https)", parsed.Scheme))
	}
	if err := f.checkHost(parsed.Hostname()); err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return fail(fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", &TooLargeError{Size: int64(len(data)), Limit: f.maxBytes}
	}
	mt, err := Sniff(data, resp.Header.Get("Content-Type"))
	if err != nil {
		// Servers often label images generically; trust the bytes instead.
		if mt, err = Sniff(data, ""); err != nil {
			return nil, "", err
		}
	}
	return data, mt, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let the http client report DNS failures
		}
		ip = ips[0]
	}
	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}
