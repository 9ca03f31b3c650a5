package document

import (
	"regexp"
	"strings"
)

var (
	reCRLF   = regexp.MustCompile(`\r\n?`)
	reHyphen = regexp.MustCompile(`([\p{L}\p{N}_])-\s*\n([\p{L}\p{N}_])`)
	reManyNL = regexp.MustCompile(`\n{3,}`)
	reHSpace = regexp.MustCompile(`[ \t\x{00A0}]+`)
)

// Normalize turns raw extracted or recognized text into paragraph-preserving
// plain text: hyphenated line breaks are joined, a lone line break becomes a
// space, runs of blank lines collapse to one blank line, and horizontal
// whitespace collapses to single spaces. Applying it twice gives the same
// result as applying it once.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reHyphen.ReplaceAllString(s, "${1}${2}")
	s = reManyNL.ReplaceAllString(s, "\n\n")

	// A lone newline is a soft wrap, not a paragraph break. At this point
	// paragraphs are separated by exactly one blank line.
	paras := strings.Split(s, "\n\n")
	for i, p := range paras {
		paras[i] = strings.ReplaceAll(p, "\n", " ")
	}
	s = strings.Join(paras, "\n\n")

	s = reHSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
