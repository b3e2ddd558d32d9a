package emailblocks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonalize(t *testing.T) {
	p := NewPersonalizer()

	out, err := p.Personalize(context.Background(),
		`<p>Hi {{ subscriber.name }}</p><a href="{{ unsubscribe_url }}">Unsubscribe</a>`,
		Recipient{
			Email:          "jane@shop.test",
			Name:           "Jane",
			UnsubscribeURL: "https://northwind.example.com/unsubscribe?email=jane%40shop.test",
		})
	require.NoError(t, err)
	assert.Equal(t, `<p>Hi Jane</p><a href="https://northwind.example.com/unsubscribe?email=jane%40shop.test">Unsubscribe</a>`, out)
}

func TestPersonalize_RenderedDocument(t *testing.T) {
	html, err := NewRenderer(testBrand()).Render(fullDocument())
	require.NoError(t, err)

	out, err := NewPersonalizer().Personalize(context.Background(), html, Recipient{
		Email:          "a@b.test",
		UnsubscribeURL: "https://x.test/u",
	})
	require.NoError(t, err)
	assert.Contains(t, out, `href="https://x.test/u"`)
	assert.NotContains(t, out, "{{")
}

func TestPersonalize_LeavesBlockDataAlone(t *testing.T) {
	doc := Document{
		SubjectLine:   "Sizes {{size}}",
		PreheaderText: "{% raw %}",
		Blocks: Blocks{
			TextBlock{ID: "t1", Content: "<p>Hi {{ subscriber.name }}</p>"},
			ProductBlock{ID: "p1", Product: ProductCard{
				Image: "https://cdn.example.com/mug.jpg",
				Brand: "Acme {{brand}}",
				Name:  "Mug {{size}}",
			}},
			ButtonBlock{ID: "b1", ButtonText: "Shop {% if x %}", ButtonURL: "https://northwind.example.com"},
		},
	}
	html, err := NewRenderer(testBrand()).Render(doc)
	require.NoError(t, err)

	out, err := NewPersonalizer().Personalize(context.Background(), html, Recipient{
		Name:           "Jane",
		UnsubscribeURL: "https://x.test/u",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Hi Jane")
	assert.Contains(t, out, `href="https://x.test/u"`)

	page := parse(t, out)
	card := page.Find(`[data-block-id="p1"]`).Text()
	assert.Contains(t, card, "Mug {{size}}")
	assert.Contains(t, card, "Acme {{brand}}")
	assert.Contains(t, page.Find(`[data-block-id="b1"]`).Text(), "Shop {% if x %}")
	assert.Equal(t, "Sizes {{size}}", page.Find("title").Text())
}

func TestPersonalize_SizeLimit(t *testing.T) {
	p := NewPersonalizerWithLimits(time.Second, 16)

	_, err := p.Personalize(context.Background(), strings.Repeat("x", 17), Recipient{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size")
}

func TestPersonalize_SyntaxError(t *testing.T) {
	_, err := NewPersonalizer().Personalize(context.Background(), "{% if %}", Recipient{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "liquid rendering failed")
}

func TestPersonalize_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPersonalizer()
	_, err := p.Personalize(ctx, "{% for i in (1..1000000) %}{{ i }}{% endfor %}", Recipient{})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
