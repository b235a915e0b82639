package web

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/merak-travel/merak/internal/errors"
)

func renderHome(t *testing.T) *html.Node {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderHome(&buf))

	doc, err := html.Parse(&buf)
	require.NoError(t, err)
	return doc
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func TestHomeRendersHeroCopy(t *testing.T) {
	t.Parallel()

	doc := renderHome(t)

	headings := findAll(doc, "h1")
	require.Len(t, headings, 1)
	assert.Equal(t, "Merak Trip Planner", strings.TrimSpace(textOf(headings[0])))

	body := findAll(doc, "body")
	require.Len(t, body, 1)
	assert.Regexp(t, regexp.MustCompile(`(?i)web client is under active development`), textOf(body[0]))
}

func TestLayoutMetadata(t *testing.T) {
	t.Parallel()

	doc := renderHome(t)

	htmlEls := findAll(doc, "html")
	require.Len(t, htmlEls, 1)
	assert.Equal(t, "en", attr(htmlEls[0], "lang"))

	titles := findAll(doc, "title")
	require.Len(t, titles, 1)
	assert.Equal(t, SiteTitle, textOf(titles[0]))

	var description string
	for _, m := range findAll(doc, "meta") {
		if attr(m, "name") == "description" {
			description = attr(m, "content")
		}
	}
	assert.Equal(t, SiteDescription, description)

	links := findAll(doc, "link")
	require.Len(t, links, 1)
	assert.Equal(t, "/static/globals.css", attr(links[0], "href"))

	mains := findAll(doc, "main")
	require.Len(t, mains, 1)
	assert.Len(t, findAll(mains[0], "h1"), 1, "page body is wrapped in main")
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer()
	require.NoError(t, err)

	err = r.Render(&bytes.Buffer{}, "missing", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	broken := fstest.MapFS{
		"layout.html": {Data: []byte(`{{define "layout"}}{{template "content" .}}{{end}}`)},
		"home.html":   {Data: []byte(`{{define "content"}}{{.Missing}}{{end}}`)},
	}
	r, err = NewRendererFS(broken)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.RenderHome(&buf)
	require.Error(t, err)
	assert.Zero(t, buf.Len(), "nothing written on failure")

	_, err = NewRendererFS(fstest.MapFS{})
	require.Error(t, err)
}
