package explorer

import (
	"bytes"
	"regexp"

	"golang.org/x/net/html"
)

// anchorHrefRe extracts href values from <a ...> tags only, the
// "spider" mode candidate filter required by §4.3 ("regex-level
// extraction").
var anchorHrefRe = regexp.MustCompile(`(?is)<a\s[^>]*\bhref\s*=\s*["']([^"']*)["'][^>]*>`)

// extractLinks returns every href found inside an <a> tag, in document
// order, for spider mode.
func extractLinks(body []byte) []string {
	matches := anchorHrefRe.FindAllSubmatch(body, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, string(m[1]))
	}
	return links
}

// extractReferences returns every href or src attribute value found
// anywhere in the document, for mirror mode, using an HTML tokenizer so
// attribute values inside scripts or comments are never mistaken for
// markup.
func extractReferences(body []byte) []string {
	var refs []string
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return refs
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		for _, attr := range tok.Attr {
			if attr.Key == "href" || attr.Key == "src" {
				refs = append(refs, attr.Val)
			}
		}
	}
}

// rewriteReferences rewrites every href/src attribute value in body
// using rewrite(originalValue) (which returns the new value, or the
// same value to leave an attribute untouched), preserving everything
// else byte-for-byte — including text inside scripts/comments, which
// the tokenizer re-emits via Raw().
func rewriteReferences(body []byte, rewrite func(string) string) []byte {
	var out bytes.Buffer
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out.Bytes()
		}

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(z.Raw())
			continue
		}

		tok := z.Token()
		changed := false
		for i, attr := range tok.Attr {
			if attr.Key == "href" || attr.Key == "src" {
				if nv := rewrite(attr.Val); nv != attr.Val {
					tok.Attr[i].Val = nv
					changed = true
				}
			}
		}
		if changed {
			out.WriteString(tok.String())
		} else {
			out.Write(z.Raw())
		}
	}
}
