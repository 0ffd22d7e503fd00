package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify turns a title into a URL-safe identifier: accents are folded to their
// base letters, everything is lowercased, runs of anything outside [a-z0-9]
// collapse into a single hyphen and leading/trailing hyphens are dropped.
func Slugify(title string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		title,
	)
	if err != nil {
		folded = title
	}

	var sb strings.Builder
	sb.Grow(len(folded))
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingDash = false
			sb.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	return sb.String()
}

// HeadingID is the anchor used for header blocks. Two headers with the same
// text get the same id.
func HeadingID(text string) string {
	return Slugify(text)
}
