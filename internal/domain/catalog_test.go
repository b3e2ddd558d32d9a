package domain

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProductRequest_Validate(t *testing.T) {
	inactive := false
	req := CreateProductRequest{
		Name:       " Stoneware Mug ",
		Brand:      "Kiln & Co",
		ImageURL:   "https://cdn.example.com/mug.jpg",
		CategoryID: "cat-1",
		PriceCents: 1250,
		IsActive:   &inactive,
	}
	p, err := req.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Stoneware Mug", p.Name)
	assert.Equal(t, 1, p.MinOrderQty)
	assert.False(t, p.IsActive)
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, "cat-1", *p.CategoryID)
	assert.Empty(t, p.Slug)

	_, err = (&CreateProductRequest{Brand: "b"}).Validate()
	assert.ErrorContains(t, err, "name is required")
	_, err = (&CreateProductRequest{Name: "n"}).Validate()
	assert.ErrorContains(t, err, "brand is required")
	_, err = (&CreateProductRequest{Name: "n", Brand: "b", ImageURL: "mug.jpg"}).Validate()
	assert.ErrorContains(t, err, "image_url")
	_, err = (&CreateProductRequest{Name: "n", Brand: "b", PriceCents: -1}).Validate()
	assert.ErrorContains(t, err, "price_cents")
}

func TestUpdateProductRequest_Validate(t *testing.T) {
	_, err := (&UpdateProductRequest{CreateProductRequest: CreateProductRequest{Name: "n", Brand: "b"}}).Validate()
	assert.ErrorContains(t, err, "id is required")

	p, err := (&UpdateProductRequest{ID: "p1", CreateProductRequest: CreateProductRequest{Name: "n", Brand: "b"}}).Validate()
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestProduct_ValidateRequiresSlug(t *testing.T) {
	p := &Product{Name: "n", Brand: "b", MinOrderQty: 1}
	assert.ErrorContains(t, p.Validate(), "slug is required")
	p.Slug = "n"
	assert.NoError(t, p.Validate())
}

func TestCategory_Validate(t *testing.T) {
	assert.NoError(t, (&Category{Name: "Home Goods", Slug: "home-goods"}).Validate())
	assert.Error(t, (&Category{Name: "", Slug: "x"}).Validate())
	assert.Error(t, (&Category{Name: "!!!", Slug: ""}).Validate())
}

func TestProductFilter_FromURLParams(t *testing.T) {
	var f ProductFilter
	require.NoError(t, f.FromURLParams(url.Values{"category": {"home-goods"}, "offset": {"24"}}))
	assert.Equal(t, "home-goods", f.CategorySlug)
	assert.Equal(t, DefaultPageSize, f.Limit)
	assert.Equal(t, 24, f.Offset)

	assert.Error(t, f.FromURLParams(url.Values{"limit": {"abc"}}))
	assert.Error(t, f.FromURLParams(url.Values{"limit": {"0"}}))
}

func TestDeleteRequest_Validate(t *testing.T) {
	assert.NoError(t, (&DeleteRequest{ID: "x"}).Validate())
	assert.Error(t, (&DeleteRequest{ID: " "}).Validate())
}
