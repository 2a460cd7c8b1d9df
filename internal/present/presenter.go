// Package present writes extraction units to the data stream, either plain
// or with terminal syntax highlighting.
package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/rs/zerolog/log"
)

// Presenter writes extraction units to w, one unit per line.
type Presenter interface {
	Present(w io.Writer, units []string) error
}

// Plain writes units verbatim.
type Plain struct{}

func (Plain) Present(w io.Writer, units []string) error {
	for _, unit := range units {
		if _, err := fmt.Fprintln(w, unit); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// Highlighter colorizes units for terminal display. Language may be a
// chroma lexer name ("html", "json"); when empty the content is analysed.
// Any gap in highlighting support degrades to plain output instead of
// failing the run.
type Highlighter struct {
	Language string
	Theme    string
}

func (h Highlighter) Present(w io.Writer, units []string) error {
	if len(units) == 0 {
		return nil
	}
	content := strings.Join(units, "\n")

	lexer := h.lexer(content)
	if lexer == nil {
		log.Debug().Str("language", h.Language).Msg("no lexer available, printing plain")
		return Plain{}.Present(w, units)
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(h.Theme)
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		log.Debug().Err(err).Msg("tokenise failed, printing plain")
		return Plain{}.Present(w, units)
	}
	if err := formatter.Format(w, style, iterator); err != nil {
		return fmt.Errorf("failed to write highlighted output: %w", err)
	}
	if !strings.HasSuffix(content, "\n") {
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func (h Highlighter) lexer(content string) chroma.Lexer {
	if h.Language != "" {
		return lexers.Get(h.Language)
	}
	return lexers.Analyse(content)
}
