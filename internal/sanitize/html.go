// Package sanitize makes message HTML safe to hand to a renderer.
package sanitize

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	anyStyle = regexp.MustCompile(".*")
	policy   = bluemonday.UGCPolicy().
			AllowElements("center", "font").
			AllowAttrs("color", "face", "size").OnElements("font").
			AllowAttrs("style").Matching(anyStyle).Globally()
)

// HTML strips scripts, event handlers and unsafe markup from a message
// body. Inline styles survive, reduced to a list of harmless properties.
func HTML(input string) (string, error) {
	filtered, err := filterStyleAttrs(input)
	if err != nil {
		return "", err
	}
	return policy.Sanitize(filtered), nil
}

// filterStyleAttrs rewrites every style attribute through Style. The rest
// of the markup is copied byte for byte.
func filterStyleAttrs(input string) (string, error) {
	var out bytes.Buffer
	z := html.NewTokenizer(strings.NewReader(input))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return out.String(), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			raw := append([]byte(nil), z.Raw()...)
			token := z.Token()
			if !hasStyle(token) {
				out.Write(raw)
				continue
			}
			attrs := token.Attr[:0]
			for _, attr := range token.Attr {
				if strings.EqualFold(attr.Key, "style") {
					attr.Val = Style(attr.Val)
					if attr.Val == "" {
						continue
					}
				}
				attrs = append(attrs, attr)
			}
			token.Attr = attrs
			out.WriteString(token.String())
		default:
			out.Write(z.Raw())
		}
	}
}

func hasStyle(token html.Token) bool {
	for _, attr := range token.Attr {
		if strings.EqualFold(attr.Key, "style") {
			return true
		}
	}
	return false
}
