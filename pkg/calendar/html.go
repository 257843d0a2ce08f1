package calendar

import (
	"strings"

	"golang.org/x/net/html"
)

// lineBreakTags end a line of text when they close (or, for br, when they appear)
var lineBreakTags = map[string]bool{
	"br":  true,
	"p":   true,
	"div": true,
	"li":  true,
}

// StripHTML removes markup from s, keeping the enclosed text in order and
// decoding entities. Line breaking tags become newlines so HTML descriptions
// stay line oriented.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") && !strings.Contains(s, "&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input, either way nothing more to read
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag != "br" && lineBreakTags[tag] {
				b.WriteByte('\n')
			}
		}
	}
}
