package emailblocks

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// BlockType identifies a block variant in its JSON form.
type BlockType string

const (
	TypeText    BlockType = "text"
	TypeImage   BlockType = "image"
	TypeButton  BlockType = "button"
	TypeSpacer  BlockType = "spacer"
	TypeProduct BlockType = "product"
)

// KnownTypes lists the block types the renderer can draw, in editor order.
var KnownTypes = []BlockType{TypeText, TypeImage, TypeButton, TypeSpacer, TypeProduct}

// Block is one unit of email content. The set of implementations is closed:
// only the variants in this package satisfy it.
type Block interface {
	GetID() string
	GetType() BlockType
	Validate() error

	withID(id string) Block
	isBlock()
}

// TextBlock holds a pre-sanitized HTML fragment.
type TextBlock struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type ImageBlock struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Alt      string `json:"alt,omitempty"`
}

type ButtonBlock struct {
	ID         string `json:"id"`
	ButtonText string `json:"buttonText"`
	ButtonURL  string `json:"buttonUrl"`
}

// SpacerBlock is vertical whitespace of SpacerHeight pixels.
type SpacerBlock struct {
	ID           string `json:"id"`
	SpacerHeight int    `json:"spacerHeight"`
}

// ProductCard is the catalog snapshot embedded in a product block.
type ProductCard struct {
	Image string `json:"image"`
	Brand string `json:"brand"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
}

type ProductBlock struct {
	ID      string      `json:"id"`
	Product ProductCard `json:"product"`
}

// UnknownBlock keeps a block whose type this version does not recognize.
// It round-trips through JSON unchanged and never renders.
type UnknownBlock struct {
	ID   string
	Type BlockType
	Raw  json.RawMessage
}

func (b TextBlock) GetID() string    { return b.ID }
func (b ImageBlock) GetID() string   { return b.ID }
func (b ButtonBlock) GetID() string  { return b.ID }
func (b SpacerBlock) GetID() string  { return b.ID }
func (b ProductBlock) GetID() string { return b.ID }
func (b UnknownBlock) GetID() string { return b.ID }

func (TextBlock) GetType() BlockType      { return TypeText }
func (ImageBlock) GetType() BlockType     { return TypeImage }
func (ButtonBlock) GetType() BlockType    { return TypeButton }
func (SpacerBlock) GetType() BlockType    { return TypeSpacer }
func (ProductBlock) GetType() BlockType   { return TypeProduct }
func (b UnknownBlock) GetType() BlockType { return b.Type }

func (b TextBlock) withID(id string) Block    { b.ID = id; return b }
func (b ImageBlock) withID(id string) Block   { b.ID = id; return b }
func (b ButtonBlock) withID(id string) Block  { b.ID = id; return b }
func (b SpacerBlock) withID(id string) Block  { b.ID = id; return b }
func (b ProductBlock) withID(id string) Block { b.ID = id; return b }

// The raw payload of an unknown block carries its own id, so it is left alone.
func (b UnknownBlock) withID(string) Block { return b }

func (TextBlock) isBlock()    {}
func (ImageBlock) isBlock()   {}
func (ButtonBlock) isBlock()  {}
func (SpacerBlock) isBlock()  {}
func (ProductBlock) isBlock() {}
func (UnknownBlock) isBlock() {}

// typed prefixes a variant's fields with its "type" discriminator.
func typed(t BlockType, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head := fmt.Sprintf(`{"type":%q`, t)
	if bytes.Equal(body, []byte("{}")) {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), body[1:]...), nil
}

func (b TextBlock) MarshalJSON() ([]byte, error) {
	type plain TextBlock
	return typed(TypeText, plain(b))
}

func (b ImageBlock) MarshalJSON() ([]byte, error) {
	type plain ImageBlock
	return typed(TypeImage, plain(b))
}

func (b ButtonBlock) MarshalJSON() ([]byte, error) {
	type plain ButtonBlock
	return typed(TypeButton, plain(b))
}

func (b SpacerBlock) MarshalJSON() ([]byte, error) {
	type plain SpacerBlock
	return typed(TypeSpacer, plain(b))
}

func (b ProductBlock) MarshalJSON() ([]byte, error) {
	type plain ProductBlock
	return typed(TypeProduct, plain(b))
}

func (b UnknownBlock) MarshalJSON() ([]byte, error) {
	if len(b.Raw) == 0 {
		return json.Marshal(map[string]string{"id": b.ID, "type": string(b.Type)})
	}
	return b.Raw, nil
}

// Blocks is an ordered block sequence; order is render order.
type Blocks []Block

// MarshalJSON encodes a nil sequence as an empty array.
func (bs Blocks) MarshalJSON() ([]byte, error) {
	if bs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Block(bs))
}

// UnmarshalJSON decodes a heterogeneous array, dispatching on each element's "type".
func (bs *Blocks) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*bs = nil
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("failed to unmarshal blocks array: %w", err)
	}

	out := make(Blocks, 0, len(raws))
	for i, raw := range raws {
		b, err := UnmarshalBlock(raw)
		if err != nil {
			return fmt.Errorf("failed to unmarshal block at index %d: %w", i, err)
		}
		out = append(out, b)
	}
	*bs = out
	return nil
}

// UnmarshalBlock decodes a single block object.
func UnmarshalBlock(data []byte) (Block, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("block must be a JSON object")
	}
	t := BlockType(gjson.GetBytes(data, "type").String())

	var (
		b   Block
		err error
	)
	switch t {
	case TypeText:
		var v TextBlock
		err = json.Unmarshal(data, &v)
		b = v
	case TypeImage:
		var v ImageBlock
		err = json.Unmarshal(data, &v)
		b = v
	case TypeButton:
		var v ButtonBlock
		err = json.Unmarshal(data, &v)
		b = v
	case TypeSpacer:
		var v SpacerBlock
		err = json.Unmarshal(data, &v)
		b = v
	case TypeProduct:
		var v ProductBlock
		err = json.Unmarshal(data, &v)
		b = v
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		b = UnknownBlock{
			ID:   gjson.GetBytes(data, "id").String(),
			Type: t,
			Raw:  raw,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s block: %w", t, err)
	}
	return b, nil
}

// WithIDs returns a copy where every block lacking an id gets a fresh one.
func (bs Blocks) WithIDs() Blocks {
	out := make(Blocks, len(bs))
	for i, b := range bs {
		if b.GetID() == "" {
			b = b.withID(NewBlockID())
		}
		out[i] = b
	}
	return out
}

func NewBlockID() string {
	return uuid.NewString()
}

// Document is everything the renderer needs: the draft minus its bookkeeping.
type Document struct {
	SubjectLine   string `json:"subjectLine"`
	PreheaderText string `json:"preheaderText"`
	Blocks        Blocks `json:"blocks"`
}
