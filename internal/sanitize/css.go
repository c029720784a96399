package sanitize

import (
	"strings"

	"github.com/gorilla/css/scanner"
)

var allowedProperties = map[string]bool{
	"background-color": true,
	"border":           true,
	"border-collapse":  true,
	"border-radius":    true,
	"color":            true,
	"display":          true,
	"font-family":      true,
	"font-size":        true,
	"font-style":       true,
	"font-weight":      true,
	"height":           true,
	"line-height":      true,
	"margin":           true,
	"margin-bottom":    true,
	"margin-left":      true,
	"margin-right":     true,
	"margin-top":       true,
	"max-width":        true,
	"padding":          true,
	"padding-bottom":   true,
	"padding-left":     true,
	"padding-right":    true,
	"padding-top":      true,
	"text-align":       true,
	"text-decoration":  true,
	"vertical-align":   true,
	"white-space":      true,
	"width":            true,
}

var colorFunctions = map[string]bool{
	"rgb(":  true,
	"rgba(": true,
	"hsl(":  true,
	"hsla(": true,
}

// Style filters a style attribute value down to declarations of allowed
// properties. Declarations that load resources (url()) or call functions
// are dropped, except color functions. Unparseable input yields "".
func Style(input string) string {
	var kept []string
	var decl strings.Builder
	property := ""
	safe := true

	flush := func() {
		if property != "" && safe && allowedProperties[property] {
			kept = append(kept, strings.TrimSpace(decl.String()))
		}
		decl.Reset()
		property = ""
		safe = true
	}

	s := scanner.New(input)
	for {
		t := s.Next()
		switch t.Type {
		case scanner.TokenEOF:
			flush()
			return strings.Join(kept, "; ")
		case scanner.TokenError:
			return ""
		case scanner.TokenComment:
			continue
		case scanner.TokenChar:
			if t.Value == ";" {
				flush()
				continue
			}
		case scanner.TokenIdent:
			if property == "" {
				property = strings.ToLower(t.Value)
			}
		case scanner.TokenFunction:
			if !colorFunctions[strings.ToLower(t.Value)] {
				safe = false
			}
		case scanner.TokenURI, scanner.TokenAtKeyword:
			safe = false
		}
		if property == "" && t.Type != scanner.TokenS {
			// Garbage before the property name.
			safe = false
		}
		decl.WriteString(t.Value)
	}
}
