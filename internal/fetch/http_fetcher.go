package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

const defaultUserAgent = "pagegrab/1.0"

// maxPrealloc bounds how much buffer space the announced Content-Length may
// reserve up front.
const maxPrealloc int64 = 10 << 20

// Headers sent when the caller asks to look like a browser.
const (
	mozillaUserAgent = "Mozilla/5.0"
	mozillaAccept    = "text/html,application/xhtml+xml,application/xml"
)

// Options configures an HTTPFetcher.
type Options struct {
	// Mozilla switches the request headers to a browser-like profile.
	Mozilla bool

	// PrintHeaders dumps the response headers to the side channel.
	PrintHeaders bool

	// Quiet disables the download progress bar.
	Quiet bool

	// SideChannel receives progress and header output. Defaults to stderr.
	SideChannel io.Writer
}

// HTTPFetcher implements Fetcher on top of net/http. Redirects are followed
// by the underlying client; the body is streamed so a progress bar can track
// the download when the server announces a Content-Length.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
}

// NewHTTPFetcher creates an HTTPFetcher with the default http.Client.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.SideChannel == nil {
		opts.SideChannel = os.Stderr
	}
	return &HTTPFetcher{
		client: &http.Client{},
		opts:   opts,
	}
}

// NormalizeURL validates raw as an http(s) URL. Input without a scheme gets
// https:// prefixed, so "example.com/page" is accepted the way a browser
// address bar would accept it.
func NormalizeURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	// Opaque is set for host:port inputs like "example.com:8080", which
	// parse as a scheme; those take the https:// fallback below.
	if err == nil && u.Scheme != "" && u.Opaque == "" {
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%w: unsupported scheme %q in %q", ErrInvalidURL, u.Scheme, raw)
		}
		if u.Hostname() == "" {
			return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
		}
		return u, nil
	}
	u, err = url.Parse("https://" + raw)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// Fetch retrieves targetURL and returns the body with response metadata.
// A non-2xx status is an error wrapping *StatusError. No retries.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", targetURL, err)
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	if f.opts.Mozilla {
		req.Header.Set("User-Agent", mozillaUserAgent)
		req.Header.Set("Accept", mozillaAccept)
	}
	log.Debug().Interface("headers", req.Header).Str("url", targetURL).Msg("request headers")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET from '%s': %w", targetURL, err)
	}
	defer resp.Body.Close()

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if f.opts.PrintHeaders {
		printHeaders(f.opts.SideChannel, resp.Header)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch failed: %w", &StatusError{Code: resp.StatusCode, URL: finalURL})
	}

	body, err := f.readBody(resp, targetURL)
	if err != nil {
		return nil, fmt.Errorf("error while downloading %s: %w", targetURL, err)
	}

	return &Result{
		Body:     string(body),
		FinalURL: finalURL,
		Header:   resp.Header,
		Language: GuessLanguage(resp.Header),
	}, nil
}

// readBody drains the response body. When the size is known ahead of time
// and progress output is wanted, the copy is teed through a progress bar on
// the side channel.
func (f *HTTPFetcher) readBody(resp *http.Response, targetURL string) ([]byte, error) {
	if resp.ContentLength <= 0 || f.opts.Quiet {
		if resp.ContentLength <= 0 {
			log.Debug().Str("url", targetURL).Msg("no content-length header")
		}
		return io.ReadAll(resp.Body)
	}

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetWriter(f.opts.SideChannel),
		progressbar.OptionSetDescription("Downloading "+targetURL),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	// Content-Length is server-controlled; cap the pre-allocation so an
	// absurd value cannot make Grow panic. The buffer still grows as
	// bytes actually arrive.
	var buf bytes.Buffer
	buf.Grow(int(min(resp.ContentLength, maxPrealloc)))
	if _, err := io.Copy(io.MultiWriter(&buf, bar), resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GuessLanguage maps the response Content-Type to a syntax name usable for
// highlighting. Unknown types return the empty string.
func GuessLanguage(header http.Header) string {
	mediaType, _, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return "html"
	case "application/json", "text/json":
		return "json"
	}
	return ""
}

func printHeaders(w io.Writer, header http.Header) {
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keyColor := color.New(color.FgCyan)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", keyColor.Sprint(k), strings.Join(header[k], ", "))
	}
}
