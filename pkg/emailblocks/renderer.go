package emailblocks

import (
	"fmt"
	"html"
	"strings"

	"github.com/wholesail/wholesail/pkg/logger"
)

// DefaultUnsubscribeTag is replaced per recipient by the Personalizer.
const DefaultUnsubscribeTag = "{{ unsubscribe_url }}"

// Brand holds the construction-time settings that appear in every email.
// Year is fixed here rather than read from the clock so output stays reproducible.
type Brand struct {
	Name            string
	Tagline         string
	Year            int
	SiteURL         string
	UnsubscribeURL  string
	AccentColor     string
	BackgroundColor string
	ProductCTA      string
}

func (b Brand) withDefaults() Brand {
	if b.Name == "" {
		b.Name = "Wholesail"
	}
	if b.AccentColor == "" {
		b.AccentColor = "#1f4e79"
	}
	if b.BackgroundColor == "" {
		b.BackgroundColor = "#f4f4f5"
	}
	if b.ProductCTA == "" {
		b.ProductCTA = "Request a quote"
	}
	return b
}

// BlockIssue describes a block the lenient preview could not draw as authored.
type BlockIssue struct {
	Index   int       `json:"index"`
	ID      string    `json:"id"`
	Type    BlockType `json:"type"`
	Message string    `json:"message"`
	Skipped bool      `json:"skipped"`
}

type Renderer struct {
	brand  Brand
	logger logger.Logger
}

type RendererOption func(*Renderer)

func WithLogger(l logger.Logger) RendererOption {
	return func(r *Renderer) { r.logger = l }
}

func NewRenderer(brand Brand, opts ...RendererOption) *Renderer {
	r := &Renderer{brand: brand.withDefaults()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Brand() Brand {
	return r.brand
}

// Render produces the final email document. Any invalid or unknown block aborts
// rendering with a *BlockError; errors.Is(err, ErrUnknownBlockType) identifies the latter.
func (r *Renderer) Render(doc Document) (string, error) {
	if err := doc.Blocks.Validate(); err != nil {
		return "", err
	}

	rows := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		rows = append(rows, r.renderBlock(b))
	}
	return r.document(doc, rows), nil
}

// RenderPreview always returns a document. Unknown blocks are left out and
// invalid ones are replaced by a visible placeholder row.
func (r *Renderer) RenderPreview(doc Document) (string, []BlockIssue) {
	var issues []BlockIssue
	seen := make(map[string]int, len(doc.Blocks))
	rows := make([]string, 0, len(doc.Blocks))

	for i, b := range doc.Blocks {
		if b == nil {
			continue
		}
		berr := checkBlock(b, i, seen)
		if berr == nil {
			rows = append(rows, r.renderBlock(b))
			continue
		}

		issue := BlockIssue{Index: i, ID: b.GetID(), Type: b.GetType(), Message: berr.Err.Error()}
		if _, unknown := b.(UnknownBlock); unknown {
			issue.Skipped = true
		} else {
			rows = append(rows, placeholderRow(berr))
		}
		issues = append(issues, issue)
		r.warn(issue)
	}
	return r.document(doc, rows), issues
}

func (r *Renderer) warn(issue BlockIssue) {
	if r.logger == nil {
		return
	}
	msg := "Block rendered as placeholder"
	if issue.Skipped {
		msg = "Skipped block with unknown type"
	}
	r.logger.WithFields(map[string]interface{}{
		"block_index": issue.Index,
		"block_id":    issue.ID,
		"block_type":  string(issue.Type),
		"reason":      issue.Message,
	}).Warn(msg)
}

// braceEscaper keeps catalog and editor data out of merge tag evaluation:
// only text block content and the footer link are seen by the Personalizer.
var braceEscaper = strings.NewReplacer("{", "&#123;", "}", "&#125;")

func esc(s string) string {
	return braceEscaper.Replace(html.EscapeString(s))
}

func (r *Renderer) renderBlock(b Block) string {
	switch v := b.(type) {
	case TextBlock:
		return fmt.Sprintf(textRow, esc(v.ID), v.Content)
	case ImageBlock:
		return fmt.Sprintf(imageRow, esc(v.ID), esc(v.ImageURL), esc(v.Alt))
	case ButtonBlock:
		return fmt.Sprintf(buttonRow, esc(v.ID), esc(v.ButtonURL), esc(r.brand.AccentColor), esc(v.ButtonText))
	case SpacerBlock:
		return fmt.Sprintf(spacerRow, esc(v.ID), v.SpacerHeight, v.SpacerHeight, v.SpacerHeight)
	case ProductBlock:
		href := v.Product.URL
		if href == "" {
			href = r.brand.SiteURL
		}
		return fmt.Sprintf(productRow,
			esc(v.ID),
			esc(v.Product.Image), esc(v.Product.Name),
			esc(v.Product.Brand),
			esc(v.Product.Name),
			esc(href), esc(r.brand.AccentColor), esc(r.brand.ProductCTA),
		)
	}
	return ""
}

func placeholderRow(e *BlockError) string {
	label := fmt.Sprintf("Block %d (%s) cannot be rendered: %s", e.Index+1, e.Type, e.Err.Error())
	return fmt.Sprintf(placeholderTpl, esc(e.ID), esc(label))
}

func (r *Renderer) document(doc Document, rows []string) string {
	var footerLink string
	if r.brand.UnsubscribeURL != "" {
		footerLink = fmt.Sprintf(unsubscribeTpl, html.EscapeString(r.brand.UnsubscribeURL))
	}
	var tagline string
	if r.brand.Tagline != "" {
		tagline = fmt.Sprintf(taglineTpl, esc(r.brand.Tagline))
	}

	var sb strings.Builder
	sb.Grow(len(documentTpl) + 512*len(rows))
	fmt.Fprintf(&sb, documentTpl,
		esc(doc.SubjectLine),
		esc(r.brand.BackgroundColor),
		esc(doc.PreheaderText),
		esc(r.brand.BackgroundColor),
		esc(r.brand.AccentColor),
		esc(r.brand.Name),
		esc(doc.PreheaderText),
		strings.Join(rows, "\n"),
		r.brand.Year, esc(r.brand.Name),
		tagline,
		footerLink,
	)
	return sb.String()
}

const documentTpl = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="X-UA-Compatible" content="IE=edge">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:%s;">
<div style="display:none;max-height:0;overflow:hidden;mso-hide:all;">%s</div>
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0" border="0" style="background-color:%s;">
<tr><td align="center" style="padding:24px 12px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" border="0" style="width:600px;max-width:100%%;background-color:#ffffff;border-radius:8px;">
<tr data-band="header"><td align="center" style="padding:28px 32px;background-color:%s;border-radius:8px 8px 0 0;font-family:Arial,Helvetica,sans-serif;">
<p style="margin:0;font-size:22px;font-weight:bold;color:#ffffff;">%s</p>
<p style="margin:8px 0 0;font-size:14px;color:#e5e7eb;">%s</p>
</td></tr>
%s
<tr data-band="footer"><td align="center" style="padding:24px 32px;border-top:1px solid #e5e7eb;font-family:Arial,Helvetica,sans-serif;font-size:12px;color:#6b7280;">
<p style="margin:0;">&copy; %d %s. All rights reserved.</p>%s%s
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>
`

const taglineTpl = `
<p style="margin:6px 0 0;">%s</p>`

const unsubscribeTpl = `
<p style="margin:12px 0 0;"><a href="%s" style="color:#6b7280;text-decoration:underline;">Unsubscribe</a></p>`

const textRow = `<tr data-block-id="%s"><td align="center" style="padding:16px 32px;font-family:Arial,Helvetica,sans-serif;font-size:16px;line-height:1.5;color:#111827;">
%s
</td></tr>`

const imageRow = `<tr data-block-id="%s"><td style="padding:16px 32px;">
<img src="%s" alt="%s" width="536" style="display:block;width:100%%;height:auto;border:0;border-radius:8px;">
</td></tr>`

const buttonRow = `<tr data-block-id="%s"><td align="center" style="padding:16px 32px;">
<a href="%s" style="display:inline-block;padding:12px 28px;background-color:%s;color:#ffffff;font-family:Arial,Helvetica,sans-serif;font-size:16px;font-weight:bold;text-decoration:none;border-radius:6px;">%s</a>
</td></tr>`

const spacerRow = `<tr data-block-id="%s"><td height="%d" style="height:%dpx;line-height:%dpx;font-size:0;"></td></tr>`

const productRow = `<tr data-block-id="%s"><td style="padding:16px 32px;">
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0" border="0" style="border:1px solid #e5e7eb;border-radius:8px;">
<tr><td style="padding:16px;"><img src="%s" alt="%s" width="502" style="display:block;width:100%%;height:auto;border:0;border-radius:6px;"></td></tr>
<tr><td style="padding:0 16px;font-family:Arial,Helvetica,sans-serif;font-size:12px;font-weight:bold;letter-spacing:1px;text-transform:uppercase;color:#6b7280;">%s</td></tr>
<tr><td style="padding:4px 16px 0;font-family:Arial,Helvetica,sans-serif;font-size:18px;font-weight:bold;color:#111827;">%s</td></tr>
<tr><td style="padding:16px;"><a href="%s" style="display:inline-block;padding:10px 20px;background-color:%s;color:#ffffff;font-family:Arial,Helvetica,sans-serif;font-size:14px;text-decoration:none;border-radius:6px;">%s</a></td></tr>
</table>
</td></tr>`

const placeholderTpl = `<tr data-block-id="%s" data-placeholder="true"><td style="padding:16px 32px;">
<div style="padding:12px;border:2px dashed #dc2626;border-radius:6px;background-color:#fef2f2;font-family:Arial,Helvetica,sans-serif;font-size:13px;color:#991b1b;">%s</div>
</td></tr>`
