package content

import "encoding/json"

type BlockType string

const (
	TypeHeader    BlockType = "header"
	TypeParagraph BlockType = "paragraph"
	TypeImage     BlockType = "image"
	TypeList      BlockType = "list"
	TypeCode      BlockType = "code"
	TypeQuote     BlockType = "quote"
	TypeTable     BlockType = "table"
	TypeDelimiter BlockType = "delimiter"
	TypeChecklist BlockType = "checklist"
	TypeEmbed     BlockType = "embed"
	TypeRaw       BlockType = "raw"
	TypeMermaid   BlockType = "mermaid"
	TypeDiagram   BlockType = "diagram"
)

const (
	DefaultHeaderLevel = 1
	DefaultImageAlt    = "Blog post image"
)

// Block is one typed unit of a Document. The set of implementations is closed,
// anything the normalizer does not recognise becomes an UnsupportedBlock.
type Block interface {
	Type() BlockType
	isBlock()
}

type ListStyle string

const (
	ListOrdered   ListStyle = "ordered"
	ListUnordered ListStyle = "unordered"
)

type HeaderBlock struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

type ParagraphBlock struct {
	Text string `json:"text"`
}

type ImageBlock struct {
	URL     string
	Caption string
	Alt     string
	// AssetID is set when the image was uploaded through the asset store.
	AssetID string
}

// AltText resolves the alternative text: explicit alt, then caption, then a generic label.
func (b ImageBlock) AltText() string {
	if b.Alt != "" {
		return b.Alt
	}
	if b.Caption != "" {
		return b.Caption
	}
	return DefaultImageAlt
}

type ListBlock struct {
	Style ListStyle `json:"style"`
	Items []string  `json:"items"`
}

type CodeBlock struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type QuoteBlock struct {
	Text    string `json:"text"`
	Caption string `json:"caption,omitempty"`
}

// TableBlock rows may have different lengths.
type TableBlock struct {
	WithHeadings bool       `json:"withHeadings"`
	Content      [][]string `json:"content"`
}

type DelimiterBlock struct{}

type ChecklistItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

type ChecklistBlock struct {
	Items []ChecklistItem `json:"items"`
}

type EmbedBlock struct {
	Service string `json:"service,omitempty"`
	Source  string `json:"source,omitempty"`
	Embed   string `json:"embed"`
	Caption string `json:"caption,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type RawHTMLBlock struct {
	HTML string `json:"html"`
}

// DiagramBlock holds diagram definition text. Kind keeps the tag it was stored
// under (mermaid or diagram) so it round-trips unchanged.
type DiagramBlock struct {
	Kind    BlockType `json:"-"`
	Code    string    `json:"code"`
	Caption string    `json:"caption,omitempty"`
}

// UnsupportedBlock keeps an unrecognised entry verbatim.
type UnsupportedBlock struct {
	TypeName string
	Data     json.RawMessage
}

func (HeaderBlock) Type() BlockType    { return TypeHeader }
func (ParagraphBlock) Type() BlockType { return TypeParagraph }
func (ImageBlock) Type() BlockType     { return TypeImage }
func (ListBlock) Type() BlockType      { return TypeList }
func (CodeBlock) Type() BlockType      { return TypeCode }
func (QuoteBlock) Type() BlockType     { return TypeQuote }
func (TableBlock) Type() BlockType     { return TypeTable }
func (DelimiterBlock) Type() BlockType { return TypeDelimiter }
func (ChecklistBlock) Type() BlockType { return TypeChecklist }
func (EmbedBlock) Type() BlockType     { return TypeEmbed }
func (RawHTMLBlock) Type() BlockType   { return TypeRaw }

func (b DiagramBlock) Type() BlockType {
	if b.Kind == "" {
		return TypeMermaid
	}
	return b.Kind
}

func (b UnsupportedBlock) Type() BlockType { return BlockType(b.TypeName) }

func (HeaderBlock) isBlock()      {}
func (ParagraphBlock) isBlock()   {}
func (ImageBlock) isBlock()       {}
func (ListBlock) isBlock()        {}
func (CodeBlock) isBlock()        {}
func (QuoteBlock) isBlock()       {}
func (TableBlock) isBlock()       {}
func (DelimiterBlock) isBlock()   {}
func (ChecklistBlock) isBlock()   {}
func (EmbedBlock) isBlock()       {}
func (RawHTMLBlock) isBlock()     {}
func (DiagramBlock) isBlock()     {}
func (UnsupportedBlock) isBlock() {}

// IsSupported reports whether t is one of the known block tags. Matching is exact.
func IsSupported(t string) bool {
	switch BlockType(t) {
	case TypeHeader, TypeParagraph, TypeImage, TypeList, TypeCode, TypeQuote,
		TypeTable, TypeDelimiter, TypeChecklist, TypeEmbed, TypeRaw,
		TypeMermaid, TypeDiagram:
		return true
	default:
		return false
	}
}
