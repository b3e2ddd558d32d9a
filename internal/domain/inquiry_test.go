package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInquiry() CreateInquiryRequest {
	return CreateInquiryRequest{
		CompanyName: "Corner Store Co",
		ContactName: "Dana Reyes",
		Email:       "Dana@CornerStore.example.com",
		Message:     "Looking for 200 units of the ceramic mugs.",
		Quantity:    200,
	}
}

func TestCreateInquiryRequest_Validate(t *testing.T) {
	req := validInquiry()
	inq, err := req.Validate()
	require.NoError(t, err)
	assert.Equal(t, "dana@cornerstore.example.com", inq.Email)
	assert.Equal(t, InquiryStatusNew, inq.Status)
	assert.Nil(t, inq.ProductID)

	req.ProductID = "6f1c2d6e-8f59-4a3c-9d7e-1b2a3c4d5e6f"
	inq, err = req.Validate()
	require.NoError(t, err)
	require.NotNil(t, inq.ProductID)
}

func TestCreateInquiryRequest_ValidateErrors(t *testing.T) {
	tests := map[string]func(*CreateInquiryRequest){
		"company":  func(r *CreateInquiryRequest) { r.CompanyName = " " },
		"contact":  func(r *CreateInquiryRequest) { r.ContactName = "" },
		"email":    func(r *CreateInquiryRequest) { r.Email = "dana" },
		"message":  func(r *CreateInquiryRequest) { r.Message = "" },
		"long":     func(r *CreateInquiryRequest) { r.Message = strings.Repeat("x", 5001) },
		"quantity": func(r *CreateInquiryRequest) { r.Quantity = -1 },
		"product":  func(r *CreateInquiryRequest) { r.ProductID = "mugs" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := validInquiry()
			mutate(&req)
			_, err := req.Validate()
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestInquiryStatus_Valid(t *testing.T) {
	assert.True(t, InquiryStatusQuoted.Valid())
	assert.False(t, InquiryStatus("archived").Valid())
}
