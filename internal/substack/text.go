package substack

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	scriptRe     = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleRe      = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	blockCloseRe = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|li|tr|blockquote)\s*>`)
	breakRe      = regexp.MustCompile(`(?i)<br\s*/?>`)
	listRe       = regexp.MustCompile(`(?i)</?(?:ul|ol)\b[^>]*>`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	entityRe     = regexp.MustCompile(`&(#[0-9]+|#[xX][0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// namedEntities is the fixed table of named references that are decoded.
// Each maps to exactly one character so the table can be inverted.
var namedEntities = map[string]rune{
	"amp":    '&',
	"lt":     '<',
	"gt":     '>',
	"quot":   '"',
	"apos":   '\'',
	"nbsp":   '\u00a0',
	"ndash":  '–',
	"mdash":  '—',
	"hellip": '…',
	"lsquo":  '‘',
	"rsquo":  '’',
	"ldquo":  '“',
	"rdquo":  '”',
	"laquo":  '«',
	"raquo":  '»',
	"bull":   '•',
	"middot": '·',
	"copy":   '©',
	"reg":    '®',
	"trade":  '™',
	"deg":    '°',
	"times":  '×',
	"divide": '÷',
	"euro":   '€',
	"pound":  '£',
	"yen":    '¥',
	"cent":   '¢',
	"sect":   '§',
	"para":   '¶',
}

// NormalizeHTML extracts readable text from an HTML body. The steps run in order:
//  1. drop <script> and <style> blocks with their content
//  2. turn closing block tags (p, div, h1-h6, li, tr, blockquote), <br> and
//     <ul>/<ol> tags into newlines
//  3. strip every remaining tag
//  4. decode entities from the fixed table plus decimal and hex references
//  5. squeeze space/tab runs, trim lines, keep at most one blank line, trim
//
// The result is stable under a second pass unless the input carried escaped markup:
// "&lt;b&gt;" decodes to "<b>" in step 4, which a second pass would strip.
func NormalizeHTML(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")

	s = blockCloseRe.ReplaceAllString(s, "\n")
	s = breakRe.ReplaceAllString(s, "\n")
	s = listRe.ReplaceAllString(s, "\n")

	s = tagRe.ReplaceAllString(s, "")

	s = DecodeEntities(s)

	s = spaceRunRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// DecodeEntities replaces known named references and numeric references in one pass,
// so "&amp;lt;" becomes "&lt;" and not "<". Unknown names and invalid code points
// are left as written.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityRe.ReplaceAllStringFunc(s, func(m string) string {
		ref := m[1 : len(m)-1]
		if ref[0] != '#' {
			if r, ok := namedEntities[ref]; ok {
				return string(r)
			}
			return m
		}
		var n int64
		var err error
		if len(ref) > 1 && (ref[1] == 'x' || ref[1] == 'X') {
			n, err = strconv.ParseInt(ref[2:], 16, 32)
		} else {
			n, err = strconv.ParseInt(ref[1:], 10, 32)
		}
		if err != nil || n <= 0 || n > 0x10FFFF || (n >= 0xD800 && n <= 0xDFFF) {
			return m
		}
		return string(rune(n))
	})
}
