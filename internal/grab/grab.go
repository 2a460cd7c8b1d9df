// Package grab runs the fetch, parse and extract stages for a single
// request. It is shared by the CLI and the MCP server.
package grab

import (
	"context"
	"errors"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/pvdbleek/pagegrab/internal/extract"
	"github.com/pvdbleek/pagegrab/internal/fetch"
)

// ErrAttributeWithoutSelector rejects attribute projection when there is no
// selector to produce elements to project from.
var ErrAttributeWithoutSelector = errors.New("--attribute requires a selector")

// Request describes one page-selection run.
type Request struct {
	URL       string
	Selector  string // empty means "emit the whole fetched body"
	Attribute string
	TextMode  bool
	Count     int // 0 means unlimited
	Pattern   *regexp.Regexp
}

// Result is the outcome of a run. Units is nil when no selector was given;
// the whole Body is the output then.
type Result struct {
	Body     string
	Units    []string
	Selected bool
	Language string
}

// Grabber wires a Fetcher to the selection pipeline.
type Grabber struct {
	fetcher fetch.Fetcher
}

func New(fetcher fetch.Fetcher) *Grabber {
	return &Grabber{fetcher: fetcher}
}

// Grab validates the request, fetches the page and extracts the selected
// content. The selector is compiled before any network activity, so an
// invalid selector never costs a request.
func (g *Grabber) Grab(ctx context.Context, req Request) (*Result, error) {
	if req.Attribute != "" && req.Selector == "" {
		return nil, ErrAttributeWithoutSelector
	}

	var compiled goquery.Matcher
	if req.Selector != "" {
		m, err := extract.Compile(req.Selector)
		if err != nil {
			return nil, err
		}
		compiled = m
	}

	target, err := fetch.NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}

	content, err := g.fetcher.Fetch(ctx, target.String())
	if err != nil {
		return nil, err
	}

	if compiled == nil {
		return &Result{Body: content.Body, Language: content.Language}, nil
	}

	doc, err := extract.Parse(content.Body)
	if err != nil {
		return nil, err
	}

	mode := extract.ModeHTML
	if req.TextMode {
		mode = extract.ModeText
	}
	units, err := extract.Extract(doc, compiled, extract.Options{
		Mode:      mode,
		Attribute: req.Attribute,
		Limit:     req.Count,
		Pattern:   req.Pattern,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Units: units, Selected: true, Language: content.Language}, nil
}
