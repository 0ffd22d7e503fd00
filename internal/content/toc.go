package content

type TOCEntry struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// TableOfContents lists the header blocks in reading order, with the same
// anchors the renderer puts on the headings.
func TableOfContents(doc Document) []TOCEntry {
	var entries []TOCEntry
	for _, b := range doc.Blocks {
		h, ok := b.(HeaderBlock)
		if !ok {
			continue
		}
		text := plainText.Text(h.Text)
		if text == "" {
			continue
		}
		entries = append(entries, TOCEntry{
			ID:    HeadingID(text),
			Text:  text,
			Level: h.Level,
		})
	}
	return entries
}
