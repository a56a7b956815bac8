// Package parser renders a mirrored news page as readable plain text.
package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Block is one heading, paragraph or list item of the readable content.
type Block struct {
	Tag  string
	Text string
}

// Readable is the distilled main content of a page.
type Readable struct {
	URL    string
	Title  string
	Blocks []Block
}

// Text joins the title and blocks, one paragraph per block.
func (r *Readable) Text() string {
	var b strings.Builder
	if r.Title != "" {
		b.WriteString(r.Title)
		b.WriteString("\n\n")
	}
	for _, block := range r.Blocks {
		if block.Tag == "li" {
			b.WriteString("- ")
		}
		b.WriteString(block.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

type Parser struct{}

// ParseReadable uses go-readability to find the main content, then walks the
// cleaned HTML with goquery to collect text blocks.
func (p *Parser) ParseReadable(rawURL string, html []byte) (*Readable, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	rp := readability.NewParser()
	article, err := rp.Parse(bytes.NewReader(html), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, fmt.Errorf("parsing readable content: %w", err)
	}

	var blocks []Block
	doc.Find("h1,h2,h3,h4,p,li,blockquote").Each(func(_ int, s *goquery.Selection) {
		// Nested matches would repeat their text.
		if s.ParentsFiltered("p,li,blockquote").Length() > 0 {
			return
		}
		text := normalizeText(s.Text())
		if text != "" {
			blocks = append(blocks, Block{Tag: goquery.NodeName(s), Text: text})
		}
	})

	if len(blocks) == 0 {
		if text := normalizeText(doc.Text()); text != "" {
			blocks = append(blocks, Block{Tag: "p", Text: text})
		}
	}

	return &Readable{
		URL:    rawURL,
		Title:  normalizeText(article.Title),
		Blocks: blocks,
	}, nil
}

// normalizeText trims every line and joins the non-empty ones with single spaces.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}
