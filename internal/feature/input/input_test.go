package input

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"eco-haat/internal/domain"
)

func TestText(t *testing.T) {
	assert.Equal(t, "Tom & Jerry", Text("Tom & Jerry"))
	assert.Equal(t, "hello", Text("  <p>hello</p> "))
	assert.Equal(t, "ok", Text(`<img src=x onerror=alert(1)>ok`))
	assert.Empty(t, Text("<script>alert(1)</script>"))
}

type sample struct {
	Email  string   `json:"email"  validate:"required,email"`
	Role   string   `json:"role"   validate:"omitempty,oneof=buyer seller"`
	Images []string `json:"images" validate:"max=1,dive,http_url"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Email: "a@b.io"}))

	cases := []struct {
		in    sample
		field string
		msg   string
	}{
		{sample{}, "email", "is required"},
		{sample{Email: "nope"}, "email", "must be a valid email address"},
		{sample{Email: "a@b.io", Role: "admin"}, "role", "must be one of: buyer seller"},
		{sample{Email: "a@b.io", Images: []string{"https://x", "https://y"}}, "images", "at most 1 entries allowed"},
		{sample{Email: "a@b.io", Images: []string{"mailto:x"}}, "images", "must be an http(s) URL"},
	}
	for _, tc := range cases {
		err := Struct(tc.in)
		var ve *domain.ValidationError
		if assert.True(t, errors.As(err, &ve), "%+v", tc.in) {
			assert.Equal(t, tc.field, ve.Field)
			assert.Equal(t, tc.msg, ve.Message)
		}
	}
}
