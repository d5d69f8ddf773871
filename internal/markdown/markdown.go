// Package markdown extracts titles and wiki-link tokens from raw note text
// and renders it to HTML.
//
// Every function is pure and synchronous. Link targets are returned exactly
// as written; canonicalization belongs to the graph, not to parsing.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// engine is shared: goldmark instances are safe for concurrent use and
// expensive to build.
var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

type frontMatter struct {
	Title string `yaml:"title"`
}

// split separates front matter from the markdown body. Malformed front
// matter is not an error: the whole document is treated as body.
func split(source string) (frontMatter, string) {
	var fm frontMatter
	body, err := frontmatter.Parse(strings.NewReader(source), &fm)
	if err != nil {
		return frontMatter{}, source
	}
	return fm, string(body)
}

// Title returns the note title found in source: the front matter "title"
// field if present, otherwise the text of the first level-1 heading,
// otherwise the empty string.
func Title(source string) string {
	fm, body := split(source)
	if t := strings.TrimSpace(fm.Title); t != "" {
		return t
	}
	return firstHeading([]byte(body))
}

// firstHeading walks the parsed document and returns the text of the first
// level-1 heading. Parsing the real AST keeps headings inside code fences
// from being mistaken for titles.
func firstHeading(body []byte) string {
	doc := engine.Parser().Parse(text.NewReader(body))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return string(h.Text(body))
		}
	}
	return ""
}

// LinkTargets returns the raw wiki-link targets found in source, in order of
// first appearance and deduplicated. [[target|alias]] reduces to target,
// surrounding whitespace is trimmed, and front matter is excluded. Targets
// are not canonicalized.
func LinkTargets(source string) []string {
	_, body := split(source)
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// Body returns source with any front matter removed.
func Body(source string) string {
	_, body := split(source)
	return body
}

// Render converts the note body to HTML (GFM, auto heading ids). Front
// matter is stripped before rendering.
func Render(source string) ([]byte, error) {
	_, body := split(source)
	var buf bytes.Buffer
	if err := engine.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("markdown: render: %w", err)
	}
	return buf.Bytes(), nil
}
