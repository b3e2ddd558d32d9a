package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Home Goods!", "home-goods"},
		{"home goods", "home-goods"},
		{"  --Kitchen & Bath--  ", "kitchen-bath"},
		{"Café Crème", "cafe-creme"},
		{"Ｆｕｌｌｗｉｄｔｈ 42", "fullwidth-42"},
		{"already-a-slug", "already-a-slug"},
		{"a___b...c", "a-b-c"},
		{"!!!", ""},
		{"", ""},
		{"日本", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{"Home Goods!", "Café Crème", "x--y", " Über  Große ", "Ｆｕｌｌ", "A1 b2 C3"}
	for _, in := range inputs {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once), in)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("home-goods"))
	assert.False(t, Valid("Home-Goods"))
	assert.False(t, Valid("home--goods"))
	assert.False(t, Valid(""))
}

func TestNext(t *testing.T) {
	assert.Equal(t, "mug", Next("mug", nil))
	assert.Equal(t, "mug", Next("mug", []string{"mug-2"}))
	assert.Equal(t, "mug-2", Next("mug", []string{"mug"}))
	assert.Equal(t, "mug-4", Next("mug", []string{"mug", "mug-2", "mug-3"}))
	assert.Equal(t, "mug-3", Next("mug", []string{"mug", "mug-2", "mug-4"}))
}
