package irc

import (
	"regexp"
	"strings"
)

// ColorTag is the raw mIRC color control byte.
const ColorTag = "\x03"

// Matches [c:N] and [c:N,M] where N and M are one or two digits.
var colorCodeRe = regexp.MustCompile(`\[c:(\d\d?(?:,\d\d?)?)\]`)

// RewriteColors expands the inline color markup into raw color control
// codes: "[c]" resets, "[c:N]" selects a foreground and "[c:N,M]" a
// foreground/background pair. Segments that do not match the markup
// are left unmodified.
func RewriteColors(text string) string {
	text = strings.ReplaceAll(text, "[c]", ColorTag)
	return colorCodeRe.ReplaceAllString(text, ColorTag+"$1")
}
