package emailblocks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText_FromRenderedDocument(t *testing.T) {
	html, err := NewRenderer(testBrand()).Render(fullDocument())
	require.NoError(t, err)

	text, err := PlainText(html)
	require.NoError(t, err)

	assert.Contains(t, text, "Northwind Supply")
	assert.Contains(t, text, "Hello retailers")
	assert.Contains(t, text, "Browse <new> (https://shop.example.com/new?a=1&b=2)")
	assert.Contains(t, text, "Stoneware Mug")
	assert.Contains(t, text, "Request a quote (https://northwind.example.com)")
	assert.Contains(t, text, "© 2024 Northwind Supply. All rights reserved.")

	// title and hidden preheader span are not part of the body text
	assert.NotContains(t, text, "Spring restock")
	assert.Equal(t, 1, strings.Count(text, "Twelve new lines from Acme"))
}

func TestPlainText_Fragments(t *testing.T) {
	text, err := PlainText(`<p>One<br>Two</p><div>  spaced    out </div><a href="#top">Top</a><!-- hidden -->`)
	require.NoError(t, err)
	assert.Equal(t, "One\nTwo\nspaced out\nTop", text)
}
