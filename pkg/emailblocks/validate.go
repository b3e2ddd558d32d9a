package emailblocks

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/asaskevich/govalidator"
)

const MaxSpacerHeight = 500

var (
	ErrUnknownBlockType = errors.New("unknown block type")
	ErrDuplicateID      = errors.New("duplicate block id")
	ErrMissingID        = errors.New("block id is required")
	ErrMissingField     = errors.New("required field missing")
	ErrInvalidField     = errors.New("invalid field value")
)

// BlockError locates a failure within a sequence.
type BlockError struct {
	Index int
	ID    string
	Type  BlockType
	Err   error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d (%s, id %q): %v", e.Index, e.Type, e.ID, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidField, field, reason)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && govalidator.IsRequestURL(s)
}

func isMailto(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "mailto" {
		return false
	}
	addr, _, _ := strings.Cut(u.Opaque, "?")
	return govalidator.IsEmail(addr)
}

func (b TextBlock) Validate() error {
	if blank(b.Content) {
		return missing("content")
	}
	return nil
}

func (b ImageBlock) Validate() error {
	if blank(b.ImageURL) {
		return missing("imageUrl")
	}
	if !isWebURL(b.ImageURL) {
		return invalid("imageUrl", "must be an absolute http(s) URL")
	}
	return nil
}

func (b ButtonBlock) Validate() error {
	if blank(b.ButtonText) {
		return missing("buttonText")
	}
	if blank(b.ButtonURL) {
		return missing("buttonUrl")
	}
	if !isWebURL(b.ButtonURL) && !isMailto(b.ButtonURL) {
		return invalid("buttonUrl", "must be an absolute http(s) or mailto URL")
	}
	return nil
}

func (b SpacerBlock) Validate() error {
	if b.SpacerHeight <= 0 {
		return invalid("spacerHeight", "must be a positive number of pixels")
	}
	if b.SpacerHeight > MaxSpacerHeight {
		return invalid("spacerHeight", fmt.Sprintf("must not exceed %d", MaxSpacerHeight))
	}
	return nil
}

func (b ProductBlock) Validate() error {
	switch {
	case blank(b.Product.Image):
		return missing("product.image")
	case blank(b.Product.Brand):
		return missing("product.brand")
	case blank(b.Product.Name):
		return missing("product.name")
	}
	if !isWebURL(b.Product.Image) {
		return invalid("product.image", "must be an absolute http(s) URL")
	}
	if b.Product.URL != "" && !isWebURL(b.Product.URL) {
		return invalid("product.url", "must be an absolute http(s) URL")
	}
	return nil
}

func (b UnknownBlock) Validate() error {
	return fmt.Errorf("%w %q", ErrUnknownBlockType, b.Type)
}

// Validate checks every block and the id uniqueness of the sequence,
// returning a *BlockError for the first problem found.
func (bs Blocks) Validate() error {
	seen := make(map[string]int, len(bs))
	for i, b := range bs {
		if b == nil {
			return &BlockError{Index: i, Err: errors.New("nil block")}
		}
		if err := checkBlock(b, i, seen); err != nil {
			return err
		}
	}
	return nil
}

func checkBlock(b Block, i int, seen map[string]int) *BlockError {
	id := b.GetID()
	fail := func(err error) *BlockError {
		return &BlockError{Index: i, ID: id, Type: b.GetType(), Err: err}
	}

	if blank(id) {
		return fail(ErrMissingID)
	}
	if first, dup := seen[id]; dup {
		return fail(fmt.Errorf("%w (first used by block %d)", ErrDuplicateID, first))
	}
	seen[id] = i

	if err := b.Validate(); err != nil {
		return fail(err)
	}
	return nil
}
