package content

import (
	"strings"
	"unicode/utf8"
)

const (
	WordsPerMinute    = 170
	ExcerptMaxChars   = 155
	ExcerptEllipsis   = "..."
	MinReadingMinutes = 1
)

var plainText Sanitizer = NewPolicySanitizer()

// WordCount counts whitespace separated words in the text-bearing blocks:
// paragraph, header and quote text, list and checklist items. Markup is
// stripped before counting.
func WordCount(doc Document) int {
	words := 0
	for _, b := range doc.Blocks {
		for _, text := range countedTexts(b) {
			words += len(strings.Fields(plainText.Text(text)))
		}
	}
	return words
}

func countedTexts(b Block) []string {
	switch v := b.(type) {
	case ParagraphBlock:
		return []string{v.Text}
	case HeaderBlock:
		return []string{v.Text}
	case QuoteBlock:
		return []string{v.Text}
	case ListBlock:
		return v.Items
	case ChecklistBlock:
		texts := make([]string, 0, len(v.Items))
		for _, it := range v.Items {
			texts = append(texts, it.Text)
		}
		return texts
	default:
		return nil
	}
}

// ReadingTime returns whole minutes, rounded up, never less than one.
func ReadingTime(doc Document) int {
	words := WordCount(doc)
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < MinReadingMinutes {
		return MinReadingMinutes
	}
	return minutes
}

// Excerpt returns the plain text of the first paragraph, falling back to the
// first header or quote. Text longer than maxChars runes is cut on a rune
// boundary and gets an ellipsis appended.
func Excerpt(doc Document, maxChars int) string {
	source, ok := excerptSource(doc)
	if !ok {
		return ""
	}
	return Truncate(plainText.Text(source), maxChars)
}

func excerptSource(doc Document) (string, bool) {
	for _, b := range doc.Blocks {
		if p, ok := b.(ParagraphBlock); ok && strings.TrimSpace(p.Text) != "" {
			return p.Text, true
		}
	}
	for _, b := range doc.Blocks {
		var text string
		switch v := b.(type) {
		case HeaderBlock:
			text = v.Text
		case QuoteBlock:
			text = v.Text
		}
		if strings.TrimSpace(text) != "" {
			return text, true
		}
	}
	return "", false
}

// Truncate cuts s to at most maxChars runes, appending the ellipsis if anything was cut.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}

	cut := 0
	for i := range s {
		if cut == maxChars {
			return strings.TrimRight(s[:i], " \t\n") + ExcerptEllipsis
		}
		cut++
	}
	return s
}

// PlainText joins the text of every block, in order, for indexing.
func PlainText(doc Document) string {
	var parts []string
	add := func(s string) {
		if t := plainText.Text(s); t != "" {
			parts = append(parts, t)
		}
	}
	for _, b := range doc.Blocks {
		switch v := b.(type) {
		case ImageBlock:
			add(v.Caption)
		case CodeBlock:
			add(v.Code)
		case TableBlock:
			for _, row := range v.Content {
				for _, cell := range row {
					add(cell)
				}
			}
		case QuoteBlock:
			add(v.Text)
			add(v.Caption)
		default:
			for _, t := range countedTexts(b) {
				add(t)
			}
		}
	}
	return strings.Join(parts, "\n")
}
