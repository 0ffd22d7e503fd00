package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedDocument = errors.New("malformed document")

// StoredBlock is the persisted {type, data} record.
type StoredBlock struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Document is an ordered sequence of blocks. Time and Version are editor
// metadata and are carried through untouched.
type Document struct {
	Time    int64
	Version string
	Blocks  []Block
}

type storedDocument struct {
	Time    int64         `json:"time,omitempty"`
	Version string        `json:"version,omitempty"`
	Blocks  []StoredBlock `json:"blocks"`
}

type rawDocument struct {
	Time    json.RawMessage   `json:"time"`
	Version string            `json:"version"`
	Blocks  []json.RawMessage `json:"blocks"`
}

// ParseDocument decodes the persisted layout. Only a payload that is not a JSON
// object at all is an error; every block entry is normalized leniently.
func ParseDocument(raw []byte) (Document, error) {
	var doc Document
	if err := doc.UnmarshalJSON(raw); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (d *Document) UnmarshalJSON(raw []byte) error {
	var rd rawDocument
	if err := json.Unmarshal(raw, &rd); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	d.Version = rd.Version
	d.Time = 0
	var t float64
	if err := json.Unmarshal(rd.Time, &t); err == nil {
		d.Time = int64(t)
	}

	d.Blocks = make([]Block, 0, len(rd.Blocks))
	for _, rawBlock := range rd.Blocks {
		var sb StoredBlock
		if err := json.Unmarshal(rawBlock, &sb); err != nil {
			// not even a {type, data} record; keep it so nothing is silently lost
			d.Blocks = append(d.Blocks, UnsupportedBlock{Data: rawBlock})
			continue
		}
		d.Blocks = append(d.Blocks, NormalizeBlock(sb))
	}

	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	sd := storedDocument{
		Time:    d.Time,
		Version: d.Version,
		Blocks:  make([]StoredBlock, 0, len(d.Blocks)),
	}
	for i, b := range d.Blocks {
		sb, err := EncodeBlock(b)
		if err != nil {
			return nil, fmt.Errorf("encode block %d: %w", i, err)
		}
		sd.Blocks = append(sd.Blocks, sb)
	}
	return json.Marshal(sd)
}

type imageFile struct {
	URL string `json:"url"`
	ID  string `json:"id,omitempty"`
}

type imagePayload struct {
	File    imageFile `json:"file"`
	Caption string    `json:"caption,omitempty"`
	Alt     string    `json:"alt,omitempty"`
}

// EncodeBlock produces the persisted record for b.
func EncodeBlock(b Block) (StoredBlock, error) {
	var payload any
	switch v := b.(type) {
	case UnsupportedBlock:
		data := v.Data
		if len(data) == 0 {
			data = json.RawMessage("{}")
		}
		return StoredBlock{Type: v.TypeName, Data: data}, nil
	case ImageBlock:
		payload = imagePayload{
			File:    imageFile{URL: v.URL, ID: v.AssetID},
			Caption: v.Caption,
			Alt:     v.Alt,
		}
	case DelimiterBlock:
		payload = struct{}{}
	case nil:
		return StoredBlock{}, errors.New("nil block")
	default:
		payload = v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return StoredBlock{}, err
	}

	return StoredBlock{Type: string(b.Type()), Data: data}, nil
}

// Walk calls fn for every block in order, stopping at the first false.
func (d Document) Walk(fn func(i int, b Block) bool) {
	for i, b := range d.Blocks {
		if !fn(i, b) {
			return
		}
	}
}

func (d Document) IsEmpty() bool {
	return len(d.Blocks) == 0
}
