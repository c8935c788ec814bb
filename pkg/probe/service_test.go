package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRejectsNonHTTPScheme(t *testing.T) {
	err := validate("ftp://example.com", "GET")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestValidateRejectsDisallowedMethod(t *testing.T) {
	err := validate("https://example.com", "DELETE")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestValidateAcceptsHTTPAndHTTPS(t *testing.T) {
	assert.NoError(t, validate("http://example.com", "GET"))
	assert.NoError(t, validate("https://example.com", "HEAD"))
	assert.NoError(t, validate("https://example.com", "POST"))
}

func TestDefaultAcceptedStatusCodesDefaultsTo200(t *testing.T) {
	assert.Equal(t, []int32{200}, defaultAcceptedStatusCodes(nil))
	assert.Equal(t, []int32{200}, defaultAcceptedStatusCodes([]int{}))
}

func TestDefaultAcceptedStatusCodesPassesThrough(t *testing.T) {
	assert.Equal(t, []int32{200, 204, 301}, defaultAcceptedStatusCodes([]int{200, 204, 301}))
}

func TestAcceptedStatus(t *testing.T) {
	codes := []int32{200, 204}
	assert.True(t, acceptedStatus(200, codes))
	assert.True(t, acceptedStatus(204, codes))
	assert.False(t, acceptedStatus(500, codes))
	assert.False(t, acceptedStatus(0, codes))
}
