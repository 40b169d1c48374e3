package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGoogleMapsURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://maps.app.goo.gl/abc123", true},
		{"https://www.google.com/maps/place/Club/@4.6,-74.0,17z", true},
		{"https://www.google.com.co/maps?q=club", true},
		{"https://maps.google.com/?q=4.6,-74.0", true},
		{"http://maps.google.com/?q=4.6,-74.0", false},
		{"https://www.google.com/search?q=club", false},
		{"https://example.com/maps", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGoogleMapsURL(tt.url))
		})
	}
}

type form struct {
	Email string `json:"email" validate:"required,email"`
	Date  string `json:"date" validate:"required,isodate"`
	Maps  string `json:"maps" validate:"omitempty,gmapsurl"`
}

func TestStruct(t *testing.T) {
	assert.Nil(t, Struct(form{Email: "a@b.co", Date: "2024-06-01"}))

	errs := Struct(form{Email: "nope", Date: "2024-13-01", Maps: "https://example.com"})
	assert.Equal(t, []string{"Please enter a valid email address"}, errs["email"])
	assert.Equal(t, []string{"Please pick a valid date"}, errs["date"])
	assert.Equal(t, []string{"Not a Google Maps link"}, errs["maps"])
}

func TestIsISODate(t *testing.T) {
	assert.True(t, IsISODate("2024-06-01"))
	assert.False(t, IsISODate("01/06/2024"))
}
