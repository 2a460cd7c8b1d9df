package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name                 string
		targetPath           string
		opts                 Options
		serverHandler        http.HandlerFunc
		expectFinalPath      string
		expectBody           string
		expectLanguage       string
		expectStatusCode     int    // non-zero when a *StatusError is expected
		expectErrorSubstring string // If empty, no error is expected
	}{
		{
			name:       "Success - 200 OK",
			targetPath: "/success",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/success", r.URL.Path)
				fmt.Fprintln(w, "Success Body")
			},
			expectFinalPath: "/success",
			expectBody:      "Success Body\n",
		},
		{
			name:       "Redirect - 302 Found",
			targetPath: "/redirect",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/redirect" {
					http.Redirect(w, r, "/final-destination", http.StatusFound)
				} else if r.URL.Path == "/final-destination" {
					fmt.Fprintln(w, "Redirected Content")
				} else {
					http.NotFound(w, r)
				}
			},
			expectFinalPath: "/final-destination",
			expectBody:      "Redirected Content\n",
		},
		{
			name:       "Language guessed from Content-Type",
			targetPath: "/page",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				fmt.Fprint(w, "<html></html>")
			},
			expectFinalPath: "/page",
			expectBody:      "<html></html>",
			expectLanguage:  "html",
		},
		{
			name:       "Streaming with Content-Length",
			targetPath: "/sized",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				body := []byte("0123456789")
				w.Header().Set("Content-Length", fmt.Sprint(len(body)))
				w.Write(body)
			},
			expectFinalPath: "/sized",
			expectBody:      "0123456789",
		},
		{
			name:       "Mozilla headers sent when enabled",
			targetPath: "/ua",
			opts:       Options{Mozilla: true},
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, mozillaUserAgent, r.Header.Get("User-Agent"))
				require.Equal(t, mozillaAccept, r.Header.Get("Accept"))
				fmt.Fprint(w, "ok")
			},
			expectFinalPath: "/ua",
			expectBody:      "ok",
		},
		{
			name:       "Default user agent",
			targetPath: "/ua-default",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
				fmt.Fprint(w, "ok")
			},
			expectFinalPath: "/ua-default",
			expectBody:      "ok",
		},
		{
			name:       "Client Error - 404 Not Found",
			targetPath: "/notfound",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			expectStatusCode:     http.StatusNotFound,
			expectErrorSubstring: "bad status code fetching",
		},
		{
			name:       "Server Error - 500 Internal Server Error",
			targetPath: "/servererror",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			},
			expectStatusCode:     http.StatusInternalServerError,
			expectErrorSubstring: "bad status code fetching",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tc.serverHandler)
			defer server.Close()

			opts := tc.opts
			opts.Quiet = true
			fetcher := NewHTTPFetcher(opts)

			result, err := fetcher.Fetch(context.Background(), server.URL+tc.targetPath)

			if tc.expectErrorSubstring != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.expectErrorSubstring)
				require.Nil(t, result)
				if tc.expectStatusCode != 0 {
					var statusErr *StatusError
					require.ErrorAs(t, err, &statusErr)
					require.Equal(t, tc.expectStatusCode, statusErr.Code)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, result)
			require.Equal(t, tc.expectBody, result.Body)
			require.Equal(t, server.URL+tc.expectFinalPath, result.FinalURL)
			require.Equal(t, tc.expectLanguage, result.Language)
		})
	}
}

func TestHTTPFetcher_PrintHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test-Header", "42")
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	var side bytes.Buffer
	fetcher := NewHTTPFetcher(Options{PrintHeaders: true, Quiet: true, SideChannel: &side})

	_, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Contains(t, side.String(), "X-Test-Header")
	require.Contains(t, side.String(), "42")
}

func TestHTTPFetcher_LyingContentLength(t *testing.T) {
	t.Parallel()

	// A server may announce far more bytes than it sends. The streaming
	// path must surface that as a fetch error, never a crash.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "9223372036854775000")
	}))
	defer server.Close()

	var side bytes.Buffer
	fetcher := NewHTTPFetcher(Options{SideChannel: &side})

	result, err := fetcher.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.Nil(t, result)
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		input     string
		expect    string
		expectErr bool
	}{
		{name: "absolute http", input: "http://example.com/page", expect: "http://example.com/page"},
		{name: "absolute https", input: "https://example.com", expect: "https://example.com"},
		{name: "scheme-less gets https", input: "example.com/page?q=1", expect: "https://example.com/page?q=1"},
		{name: "bare host gets https", input: "example.com", expect: "https://example.com"},
		{name: "host and port get https", input: "example.com:8080", expect: "https://example.com:8080"},
		{name: "unsupported scheme", input: "ftp://example.com/file", expectErr: true},
		{name: "mail scheme", input: "mailto://someone@example.com", expectErr: true},
		{name: "scheme without host", input: "https://", expectErr: true},
		{name: "empty input", input: "", expectErr: true},
		{name: "space in host", input: "exa mple.com", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			u, err := NormalizeURL(tc.input)
			if tc.expectErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, u.String())
		})
	}
}

func TestGuessLanguage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		contentType string
		expect      string
	}{
		{"text/html", "html"},
		{"text/html; charset=utf-8", "html"},
		{"application/xhtml+xml", "html"},
		{"application/json", "json"},
		{"text/plain", ""},
		{"", ""},
	}

	for _, tc := range testCases {
		header := http.Header{}
		if tc.contentType != "" {
			header.Set("Content-Type", tc.contentType)
		}
		require.Equal(t, tc.expect, GuessLanguage(header), "content type %q", tc.contentType)
	}
}
