// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/pdiddy/paper-writer/internal/container"
)

// Extractor turns a fetched response body into plain text whose paragraphs
// are separated by blank lines.
type Extractor interface {
	Extract(ctx context.Context, body []byte, contentType string) (string, error)
}

// skipTags hold content that is never reader-visible text.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"head": true, "svg": true, "iframe": true,
}

// blockTags end the current paragraph when they open or close.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "table": true, "section": true, "article": true, "header": true,
	"footer": true, "nav": true, "aside": true, "main": true, "blockquote": true,
	"pre": true, "figure": true, "figcaption": true, "dd": true, "dt": true, "dl": true,
	"body": true, "title": true,
}

// MarkupExtractor extracts visible text from HTML.
type MarkupExtractor struct{}

// Extract transcodes body to UTF-8 using the declared content type (or the
// document's own meta charset), then walks the token stream keeping text
// outside skipped elements.
func (MarkupExtractor) Extract(_ context.Context, body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("decoding charset: %w", err)
	}

	var (
		paras     []string
		cur       strings.Builder
		skipDepth int
	)
	flush := func() {
		if p := strings.Join(strings.Fields(cur.String()), " "); p != "" {
			paras = append(paras, p)
		}
		cur.Reset()
	}

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("tokenizing html: %w", err)
			}
			break
		}

		switch tt {
		case html.TextToken:
			if skipDepth == 0 {
				cur.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "body" {
				// A missing </head> must not hide the whole document.
				skipDepth = 0
			}
			if skipTags[tag] && tt == html.StartTagToken {
				skipDepth++
			}
			if blockTags[tag] {
				flush()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] && skipDepth > 0 {
				skipDepth--
			}
			if blockTags[tag] {
				flush()
			}
		}
	}
	flush()
	return strings.Join(paras, "\n\n"), nil
}

// PDFExtractor extracts text from PDF documents in process.
type PDFExtractor struct{}

// Extract returns the document text with one paragraph per non-empty line.
// Malformed documents yield an error; the PDF library panics on some
// inputs, which is recovered into an error.
func (PDFExtractor) Extract(_ context.Context, body []byte, _ string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return paragraphs(string(data)), nil
}

// ContainerExtractor runs a document-to-text image under a container runtime.
type ContainerExtractor struct {
	Runtime container.Runtime
	Image   string
}

// Extract pipes body through the image and returns its stdout as paragraphs.
func (c ContainerExtractor) Extract(ctx context.Context, body []byte, _ string) (string, error) {
	var out bytes.Buffer
	if err := c.Runtime.Run(ctx, c.Image, bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	return paragraphs(out.String()), nil
}

// paragraphs keeps each non-empty trimmed line as its own paragraph.
func paragraphs(s string) string {
	var out []string
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n\n")
}
