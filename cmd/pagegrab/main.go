package main

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/pvdbleek/pagegrab/internal/fetch"
	"github.com/pvdbleek/pagegrab/internal/grab"
	"github.com/pvdbleek/pagegrab/internal/mcpserver"
	"github.com/pvdbleek/pagegrab/internal/present"
)

// Build information, initialized to defaults and potentially overridden by ldflags.
var (
	version = "development" // Git tag or version number
	commit  = "n/a"         // Git commit hash
	date    = "n/a"         // Build date
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	app := &cli.App{
		Name:      "pagegrab",
		Usage:     "Download a web page and extract content with a CSS selector.",
		UsageText: "pagegrab [options] <url> [selector]",
		Version:   fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "attribute",
				Aliases: []string{"a"},
				Usage:   "Print the value of attribute `NAME` instead of the matched HTML",
			},
			&cli.StringFlag{
				Name:    "regex",
				Aliases: []string{"r"},
				Usage:   "Keep only the first match of `PATTERN` within each result",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Print at most `N` results",
			},
			&cli.BoolFlag{
				Name:  "text",
				Usage: "Print the text content of matched elements instead of their HTML",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not print progress or warnings",
			},
			&cli.BoolFlag{
				Name:    "mozilla",
				Aliases: []string{"m"},
				Usage:   "Pretend to be Mozilla, like everyone else",
			},
			&cli.BoolFlag{
				Name:    "headers",
				EnvVars: []string{"HEADERS"},
				Usage:   "Print response headers to stderr",
			},
			&cli.BoolFlag{
				Name:  "no-colors",
				Usage: "Turn off syntax highlighting",
			},
			&cli.StringFlag{
				Name:    "theme",
				Aliases: []string{"t"},
				Value:   "monokai",
				Usage:   "Syntax highlighting `THEME`",
			},
			&cli.StringFlag{
				Name:    "lang",
				Aliases: []string{"l"},
				Usage:   "Highlighting `SYNTAX` (default: guessed from Content-Type)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print debug output",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "mcp",
				Usage: "Run as an MCP server over stdio",
				Action: func(c *cli.Context) error {
					if err := mcpserver.New(version).ServeStdio(); err != nil {
						return cli.Exit(fmt.Sprintf("MCP server error: %v", err), 1)
					}
					return nil
				},
			},
		},
		Action: run,
	}

	cli.AppHelpTemplate = fmt.Sprintf(`%s
%s`, cli.AppHelpTemplate, `EXAMPLE:
   pagegrab example.com
   pagegrab https://example.com li
   pagegrab -a href -n 10 https://example.com a
`)

	if err := app.Run(os.Args); err != nil {
		zlog.Error().Msg(err.Error())
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	switch {
	case c.Bool("verbose"):
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case c.Bool("quiet"):
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}

	if c.NArg() < 1 {
		cli.ShowAppHelpAndExit(c, 1)
	}
	if c.NArg() > 2 {
		return cli.Exit(fmt.Sprintf("Error: expected <url> [selector], got %d arguments", c.NArg()), 1)
	}

	count := c.Int("count")
	if count < 0 {
		return cli.Exit(fmt.Sprintf("Error: --count must not be negative, got %d", count), 1)
	}

	var pattern *regexp.Regexp
	if raw := c.String("regex"); raw != "" {
		var err error
		pattern, err = regexp.Compile(raw)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: invalid regex: %v", err), 1)
		}
	}

	fetcher := fetch.NewHTTPFetcher(fetch.Options{
		Mozilla:      c.Bool("mozilla"),
		PrintHeaders: c.Bool("headers"),
		Quiet:        c.Bool("quiet"),
	})
	grabber := grab.New(fetcher)

	result, err := grabber.Grab(context.Background(), grab.Request{
		URL:       c.Args().Get(0),
		Selector:  c.Args().Get(1),
		Attribute: c.String("attribute"),
		TextMode:  c.Bool("text"),
		Count:     count,
		Pattern:   pattern,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	units := result.Units
	if !result.Selected {
		units = []string{result.Body}
	}

	if err := presenter(c, result.Language).Present(os.Stdout, units); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	return nil
}

// presenter picks the output strategy: highlighted when stdout is a
// terminal and colors are not turned off, plain otherwise.
func presenter(c *cli.Context, guessed string) present.Presenter {
	if c.Bool("no-colors") || !isatty.IsTerminal(os.Stdout.Fd()) {
		return present.Plain{}
	}
	language := c.String("lang")
	if language == "" {
		language = guessed
	}
	return present.Highlighter{
		Language: language,
		Theme:    c.String("theme"),
	}
}
