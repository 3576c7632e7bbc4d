package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeNeverHasNullData(t *testing.T) {
	for _, r := range []Resp{OK(nil), Error(CodeNotFound, ""), ErrorWith(CodeForbidden, "forbidden", nil)} {
		b, err := json.Marshal(r)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"data":{}`)
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "Not Found", Error(CodeNotFound, "").Msg)
	assert.Equal(t, "product not found", Error(CodeNotFound, "product not found").Msg)

	r := ErrorWith(CodeBadRequest, "price: must be greater than 0", map[string]string{"field": "price"})
	assert.Equal(t, CodeBadRequest, r.Code)
	assert.Equal(t, map[string]string{"field": "price"}, r.Data)
}
