package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidURL is returned when the target cannot be interpreted as an
// http(s) URL, even after scheme normalization.
var ErrInvalidURL = errors.New("invalid URL")

// StatusError reports a response with a non-success HTTP status code.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status code fetching %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Result holds a fetched page body together with the response metadata the
// rest of the pipeline cares about.
type Result struct {
	// Body is the full response body, decoded as text.
	Body string

	// FinalURL is the URL reached after any redirects.
	FinalURL string

	// Header holds the response headers.
	Header http.Header

	// Language is the syntax guessed from the Content-Type header
	// ("html", "json", or empty when unknown).
	Language string
}

// Fetcher defines the contract for retrieving web content.
// Implementations follow redirects and report the final URL in the Result.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (*Result, error)
}
