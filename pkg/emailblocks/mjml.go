package emailblocks

import (
	"context"
	"fmt"
	"html"
	"strings"

	mjmlgo "github.com/Boostport/mjml-go"
)

// ToMJML converts a document into MJML markup. It is strict in the same way as Render.
func (r *Renderer) ToMJML(doc Document) (string, error) {
	if err := doc.Blocks.Validate(); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("<mjml>\n<mj-head>\n")
	fmt.Fprintf(&sb, "<mj-title>%s</mj-title>\n", esc(doc.SubjectLine))
	if doc.PreheaderText != "" {
		fmt.Fprintf(&sb, "<mj-preview>%s</mj-preview>\n", esc(doc.PreheaderText))
	}
	sb.WriteString("<mj-attributes><mj-all font-family=\"Arial, Helvetica, sans-serif\" /></mj-attributes>\n")
	sb.WriteString("</mj-head>\n")
	fmt.Fprintf(&sb, "<mj-body background-color=\"%s\" width=\"600px\">\n", esc(r.brand.BackgroundColor))

	fmt.Fprintf(&sb, "<mj-section background-color=\"%s\" padding=\"28px 32px\">\n<mj-column>\n", esc(r.brand.AccentColor))
	fmt.Fprintf(&sb, "<mj-text align=\"center\" color=\"#ffffff\" font-size=\"22px\" font-weight=\"bold\">%s</mj-text>\n", esc(r.brand.Name))
	if doc.PreheaderText != "" {
		fmt.Fprintf(&sb, "<mj-text align=\"center\" color=\"#e5e7eb\" font-size=\"14px\">%s</mj-text>\n", esc(doc.PreheaderText))
	}
	sb.WriteString("</mj-column>\n</mj-section>\n")

	for _, b := range doc.Blocks {
		sb.WriteString(r.mjmlBlock(b))
	}

	sb.WriteString("<mj-section background-color=\"#ffffff\" border-top=\"1px solid #e5e7eb\" padding=\"24px 32px\">\n<mj-column>\n")
	fmt.Fprintf(&sb, "<mj-text align=\"center\" color=\"#6b7280\" font-size=\"12px\">&copy; %d %s. All rights reserved.</mj-text>\n", r.brand.Year, esc(r.brand.Name))
	if r.brand.Tagline != "" {
		fmt.Fprintf(&sb, "<mj-text align=\"center\" color=\"#6b7280\" font-size=\"12px\">%s</mj-text>\n", esc(r.brand.Tagline))
	}
	if r.brand.UnsubscribeURL != "" {
		fmt.Fprintf(&sb, "<mj-text align=\"center\" color=\"#6b7280\" font-size=\"12px\"><a href=\"%s\" style=\"color:#6b7280;\">Unsubscribe</a></mj-text>\n", html.EscapeString(r.brand.UnsubscribeURL))
	}
	sb.WriteString("</mj-column>\n</mj-section>\n</mj-body>\n</mjml>\n")
	return sb.String(), nil
}

func (r *Renderer) mjmlBlock(b Block) string {
	open := "<mj-section background-color=\"#ffffff\" padding=\"0\">\n<mj-column>\n"
	closing := "</mj-column>\n</mj-section>\n"

	switch v := b.(type) {
	case TextBlock:
		return open + fmt.Sprintf("<mj-text align=\"center\" font-size=\"16px\" line-height=\"1.5\" padding=\"16px 32px\">%s</mj-text>\n", v.Content) + closing
	case ImageBlock:
		return open + fmt.Sprintf("<mj-image src=\"%s\" alt=\"%s\" border-radius=\"8px\" padding=\"16px 32px\" />\n", esc(v.ImageURL), esc(v.Alt)) + closing
	case ButtonBlock:
		return open + fmt.Sprintf("<mj-button href=\"%s\" background-color=\"%s\" border-radius=\"6px\" font-weight=\"bold\" padding=\"16px 32px\">%s</mj-button>\n",
			esc(v.ButtonURL), esc(r.brand.AccentColor), esc(v.ButtonText)) + closing
	case SpacerBlock:
		return open + fmt.Sprintf("<mj-spacer height=\"%dpx\" />\n", v.SpacerHeight) + closing
	case ProductBlock:
		href := v.Product.URL
		if href == "" {
			href = r.brand.SiteURL
		}
		return "<mj-section background-color=\"#ffffff\" padding=\"16px 32px\">\n<mj-column border=\"1px solid #e5e7eb\" border-radius=\"8px\">\n" +
			fmt.Sprintf("<mj-image src=\"%s\" alt=\"%s\" border-radius=\"6px\" padding=\"16px\" />\n", esc(v.Product.Image), esc(v.Product.Name)) +
			fmt.Sprintf("<mj-text font-size=\"12px\" font-weight=\"bold\" color=\"#6b7280\" padding=\"0 16px\">%s</mj-text>\n", esc(strings.ToUpper(v.Product.Brand))) +
			fmt.Sprintf("<mj-text font-size=\"18px\" font-weight=\"bold\" padding=\"4px 16px 0\">%s</mj-text>\n", esc(v.Product.Name)) +
			fmt.Sprintf("<mj-button href=\"%s\" background-color=\"%s\" align=\"left\" padding=\"16px\">%s</mj-button>\n", esc(href), esc(r.brand.AccentColor), esc(r.brand.ProductCTA)) +
			closing
	}
	return ""
}

// CompileMJML turns MJML markup into an HTML document.
func CompileMJML(ctx context.Context, mjml string) (string, error) {
	out, err := mjmlgo.ToHTML(ctx, mjml)
	if err != nil {
		return "", fmt.Errorf("failed to compile MJML: %w", err)
	}
	return out, nil
}
