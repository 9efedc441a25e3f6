// Package media resolves %%keyword%% directives in generated text to a
// media URL and strips them from the text shown to users.
package media

import (
	"regexp"
	"strings"
)

var directivePattern = regexp.MustCompile(`%%([^%]+)%%`)

// ScanDirectives returns the keywords of all directives in text, in order.
func ScanDirectives(text string) []string {
	matches := directivePattern.FindAllStringSubmatch(text, -1)
	keywords := make([]string, 0, len(matches))
	for _, m := range matches {
		if kw := strings.TrimSpace(m[1]); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// StripDirectives removes every directive and trims the result.
// StripDirectives(StripDirectives(s)) == StripDirectives(s).
func StripDirectives(text string) string {
	return strings.TrimSpace(directivePattern.ReplaceAllString(text, ""))
}

// StripPartial strips a streamed snapshot. A trailing directive that has
// not been closed yet is cut so it never flashes on screen.
func StripPartial(text string) string {
	s := directivePattern.ReplaceAllString(text, "")
	if i := strings.LastIndex(s, "%%"); i >= 0 {
		s = s[:i]
	} else if strings.HasSuffix(s, "%") {
		s = s[:len(s)-1]
	}
	return strings.TrimSpace(s)
}
