package domain

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"john.smith@x.com", "John Smith"},
		{"info@x.com", "Info"},
		{"mary-jane_watson@shop.example", "Mary Jane Watson"},
		{"buyer+2024@x.com", "Buyer"},
		{"ANNA.LEE@x.com", "Anna Lee"},
		{"1234@x.com", ""},
		{"sales.team2@x.com", "Sales Team2"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayNameFromEmail(tt.email))
		})
	}
}

func TestSubscribeRequest_Validate(t *testing.T) {
	req := SubscribeRequest{Email: "  John.Smith@X.com "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "john.smith@x.com", req.Email)
	assert.Equal(t, "website", req.Source)

	for _, email := range []string{"", "   ", "not-an-email", "a@"} {
		req := SubscribeRequest{Email: email}
		err := req.Validate()
		require.Error(t, err, email)
		assert.True(t, IsValidation(err))
	}
}

func TestSubscriberFilter_FromURLParams(t *testing.T) {
	var f SubscriberFilter
	require.NoError(t, f.FromURLParams(url.Values{"status": {"active"}, "q": {" anna "}, "limit": {"500"}}))
	assert.Equal(t, SubscriberStatusActive, f.Status)
	assert.Equal(t, "anna", f.Query)
	assert.Equal(t, MaxPageSize, f.Limit)

	assert.Error(t, f.FromURLParams(url.Values{"status": {"bounced"}}))
	assert.Error(t, f.FromURLParams(url.Values{"offset": {"-1"}}))
}

func TestUpdateSubscriberStatusRequest_Validate(t *testing.T) {
	assert.NoError(t, (&UpdateSubscriberStatusRequest{ID: "s1", Status: SubscriberStatusUnsubscribed}).Validate())
	assert.Error(t, (&UpdateSubscriberStatusRequest{Status: SubscriberStatusActive}).Validate())
	assert.Error(t, (&UpdateSubscriberStatusRequest{ID: "s1", Status: "gone"}).Validate())
}
