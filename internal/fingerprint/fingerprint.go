// Package fingerprint computes a bounded structural digest of a page's main
// content area, used as the DOM-state axis of node identity alongside the
// normalized URL.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"golang.org/x/net/html"
)

// maxDepth bounds how deep the structural walk descends from the main
// content root.
const maxDepth = 4

// Fingerprint produces an MD5 hex digest of docHTML's tag+role structure,
// walked to maxDepth from the first matching main-content root. Text nodes,
// non-role attributes and all styling are ignored. Empty input yields the
// empty string, signalling the caller should treat the node as URL-only.
func Fingerprint(docHTML string) string {
	if docHTML == "" {
		return ""
	}

	root := findMainRoot(docHTML)
	if root == nil {
		return ""
	}

	var buf []byte
	walk(root, 0, &buf)
	if len(buf) == 0 {
		return ""
	}

	sum := md5.Sum(buf)
	return hex.EncodeToString(sum[:])
}

// findMainRoot parses docHTML and returns the first of: <main>,
// [role="main"], an element with a component-root id, an element with a
// dataframe-dashboard class, or the <body> element.
func findMainRoot(docHTML string) *html.Node {
	doc, err := html.Parse(strings.NewReader(docHTML))
	if err != nil {
		return nil
	}

	var body *html.Node
	var found *html.Node

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "main":
				found = n
				return
			case "body":
				body = n
			}
			if attr(n, "role") == "main" {
				found = n
				return
			}
			if id := attr(n, "id"); id == "root" || id == "app" || id == "__next" {
				found = n
				return
			}
			if hasClass(n, "dataframe-dashboard") || hasClass(n, "dash-dashboard") {
				found = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
			if found != nil {
				return
			}
		}
	}
	visit(doc)

	if found != nil {
		return found
	}
	return body
}

// walk emits "<tagname role=\"...\">" for each element node up to maxDepth,
// depth-first, matching the parent-before-children structural order the
// digest is taken over.
func walk(n *html.Node, depth int, buf *[]byte) {
	if n == nil || depth > maxDepth {
		return
	}
	if n.Type == html.ElementNode {
		*buf = append(*buf, '<')
		*buf = append(*buf, n.Data...)
		if role := attr(n, "role"); role != "" {
			*buf = append(*buf, ` role="`...)
			*buf = append(*buf, role...)
			*buf = append(*buf, '"')
		}
		*buf = append(*buf, '>')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, depth+1, buf)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
