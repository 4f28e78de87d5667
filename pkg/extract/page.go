package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Elements removed wholesale before selector-based parsing. Site pages
// carry heavy inline scripts and SVG sprites that only slow goquery down.
var noiseElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
}

// parsePage parses raw page markup, prunes script/style noise and returns
// a queryable document plus the page title.
func parsePage(raw string) (*goquery.Document, string, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse page: %w", err)
	}
	pruneNoise(root)
	return goquery.NewDocumentFromNode(root), pageTitle(root), nil
}

func pruneNoise(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.CommentNode ||
			(c.Type == html.ElementNode && noiseElements[strings.ToLower(c.Data)]) {
			n.RemoveChild(c)
			continue
		}
		pruneNoise(c)
	}
}

func pageTitle(root *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(root)
	return title
}

var spaceRE = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}
