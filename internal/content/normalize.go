package content

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type payload map[string]any

// NormalizeBlock maps a stored record onto its block variant, filling defaults
// for anything missing or malformed. It never fails: unknown tags become an
// UnsupportedBlock carrying the original data.
func NormalizeBlock(sb StoredBlock) Block {
	if !IsSupported(sb.Type) {
		return UnsupportedBlock{TypeName: sb.Type, Data: sb.Data}
	}

	data := decodePayload(sb.Data)

	switch BlockType(sb.Type) {
	case TypeHeader:
		level, ok := data.integer("level")
		if !ok || level < 1 || level > 6 {
			level = DefaultHeaderLevel
		}
		return HeaderBlock{Text: data.str("text"), Level: level}
	case TypeParagraph:
		return ParagraphBlock{Text: data.str("text")}
	case TypeImage:
		return normalizeImage(data)
	case TypeList:
		style := ListUnordered
		if data.str("style") == string(ListOrdered) {
			style = ListOrdered
		}
		return ListBlock{Style: style, Items: listItems(data.list("items"))}
	case TypeCode:
		return CodeBlock{Code: data.str("code"), Language: data.str("language")}
	case TypeQuote:
		return QuoteBlock{Text: data.str("text"), Caption: data.str("caption")}
	case TypeTable:
		return TableBlock{
			WithHeadings: data.boolean("withHeadings"),
			Content:      tableRows(data.list("content")),
		}
	case TypeDelimiter:
		return DelimiterBlock{}
	case TypeChecklist:
		return ChecklistBlock{Items: checklistItems(data.list("items"))}
	case TypeEmbed:
		width, _ := data.integer("width")
		height, _ := data.integer("height")
		return EmbedBlock{
			Service: data.str("service"),
			Source:  data.str("source"),
			Embed:   data.str("embed"),
			Caption: data.str("caption"),
			Width:   width,
			Height:  height,
		}
	case TypeRaw:
		return RawHTMLBlock{HTML: data.str("html")}
	default:
		// mermaid, diagram
		return DiagramBlock{
			Kind:    BlockType(sb.Type),
			Code:    data.str("code"),
			Caption: data.str("caption"),
		}
	}
}

// normalizeImage resolves the source as file.url first, then url.
func normalizeImage(data payload) ImageBlock {
	file := data.object("file")
	url := file.str("url")
	if url == "" {
		url = data.str("url")
	}
	return ImageBlock{
		URL:     url,
		Caption: data.str("caption"),
		Alt:     data.str("alt"),
		AssetID: file.str("id"),
	}
}

// listItems accepts plain strings as well as nested item objects, which are
// flattened to their content (or text) field.
func listItems(raw []any) []string {
	var items []string
	for _, it := range raw {
		if obj, ok := it.(map[string]any); ok {
			p := payload(obj)
			text := p.str("content")
			if text == "" {
				text = p.str("text")
			}
			items = append(items, text)
			continue
		}
		items = append(items, scalarString(it))
	}
	return items
}

func checklistItems(raw []any) []ChecklistItem {
	var items []ChecklistItem
	for _, it := range raw {
		obj, ok := it.(map[string]any)
		if !ok {
			items = append(items, ChecklistItem{Text: scalarString(it)})
			continue
		}
		p := payload(obj)
		items = append(items, ChecklistItem{Text: p.str("text"), Checked: p.boolean("checked")})
	}
	return items
}

func tableRows(raw []any) [][]string {
	var rows [][]string
	for _, r := range raw {
		cells, ok := r.([]any)
		if !ok {
			// a scalar row is treated as a single cell
			rows = append(rows, []string{scalarString(r)})
			continue
		}
		row := make([]string, 0, len(cells))
		for _, c := range cells {
			row = append(row, scalarString(c))
		}
		rows = append(rows, row)
	}
	return rows
}

func decodePayload(raw json.RawMessage) payload {
	if len(raw) == 0 {
		return payload{}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return payload{}
	}
	return m
}

func (p payload) str(key string) string {
	return scalarString(p[key])
}

func (p payload) integer(key string) (int, bool) {
	switch v := p[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
		f, err := v.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func (p payload) boolean(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case json.Number:
		return v.String() != "0"
	default:
		return false
	}
}

func (p payload) list(key string) []any {
	l, _ := p[key].([]any)
	return l
}

func (p payload) object(key string) payload {
	m, ok := p[key].(map[string]any)
	if !ok {
		return payload{}
	}
	return m
}

// scalarString stringifies scalars; objects, arrays and null become "".
func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
