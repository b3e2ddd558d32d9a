package emailblocks

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "tr": true, "table": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "blockquote": true,
}

// PlainText derives the text/plain alternative of a rendered email.
// Hidden elements are dropped and links are written as "label (url)".
func PlainText(htmlDoc string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlDoc))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("head, style, script, [style*='display:none']").Remove()

	var sb strings.Builder
	collectText(doc.Find("body"), &sb)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func collectText(s *goquery.Selection, sb *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch name {
		case "#text":
			sb.WriteString(c.Text())
		case "#comment":
		case "br":
			sb.WriteString("\n")
		case "img":
			if alt, _ := c.Attr("alt"); strings.TrimSpace(alt) != "" {
				sb.WriteString("[" + strings.TrimSpace(alt) + "]")
			}
		case "a":
			label := strings.Join(strings.Fields(c.Text()), " ")
			href, _ := c.Attr("href")
			sb.WriteString(label)
			if href != "" && href != label && !strings.HasPrefix(href, "#") {
				if label != "" {
					sb.WriteString(" ")
				}
				sb.WriteString("(" + href + ")")
			}
		default:
			if blockElements[name] {
				sb.WriteString("\n")
			}
			collectText(c, sb)
			if blockElements[name] {
				sb.WriteString("\n")
			}
		}
	})
}
